package bot

import "yatzy-lite/yatzy"

// GreedyBrain never re-rolls on purpose: it commits the best open category for
// the first roll of every turn.
type GreedyBrain struct{}

func (GreedyBrain) Name() string { return "greedy" }

func (GreedyBrain) Decide(view View) Decision {
	if !view.Rolled {
		return rerollAll()
	}
	all, err := yatzy.ScoreAll(view.Dice)
	if err != nil {
		return rerollAll()
	}
	best, score, ok := bestOpen(all, view.Table)
	if !ok {
		return Decision{}
	}
	if score == 0 && view.BlockZeroScores && view.RollsLeft > 0 {
		return rerollAll()
	}
	return Decision{Category: best}
}
