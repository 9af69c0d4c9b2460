package bot

import (
	"errors"
	"fmt"
	"strings"

	"yatzy-lite/dice"
	"yatzy-lite/yatzy"
)

// unlimitedRollCap bounds how many rolls a bot plans per turn when the game
// itself sets no limit.
const unlimitedRollCap = 3

// View is a read-only projection of the game state visible to a bot.
type View struct {
	Round     int
	Rounds    int
	Dice      dice.Roll
	Held      [dice.NumDice]bool
	Rolled    bool
	RollsLeft int
	Table     yatzy.ScoreTable

	BlockZeroScores bool
}

// Decision is what a Brain returns: either re-roll keeping Hold, or commit Category.
type Decision struct {
	Roll     bool
	Hold     [dice.NumDice]bool
	Category yatzy.Category
}

// Brain is the interface all bot types implement.
type Brain interface {
	// Decide is called whenever the bot has to act.
	Decide(view View) Decision
	// Name returns a human-readable identifier for logs.
	Name() string
}

// ViewFromSnapshot builds the bot view for a game snapshot.
func ViewFromSnapshot(s yatzy.Snapshot, blockZero bool) View {
	rollsLeft := s.RollsLeft
	if rollsLeft == yatzy.UnlimitedRolls {
		rollsLeft = unlimitedRollCap - s.RollsUsed
		if rollsLeft < 0 {
			rollsLeft = 0
		}
	}
	return View{
		Round:           s.Round,
		Rounds:          s.Rounds,
		Dice:            s.Dice,
		Held:            s.Held,
		Rolled:          s.Rolled,
		RollsLeft:       rollsLeft,
		Table:           s.Table,
		BlockZeroScores: blockZero,
	}
}

var ErrUnknownKind = errors.New("unknown bot kind")

// New returns a brain by kind: "greedy" or "rule".
func New(kind string, seed int64) (Brain, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "greedy":
		return GreedyBrain{}, nil
	case "rule", "montecarlo":
		return NewRuleBrain(RuleConfig{Seed: seed})
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}
}

// bestOpen returns the open category with the highest score for r. Ties go to
// the lowest category. ok is false when no category is open.
func bestOpen(all [yatzy.NumCategories]int, table yatzy.ScoreTable) (best yatzy.Category, score int, ok bool) {
	score = -1
	for _, c := range table.Open() {
		if all[c] > score {
			best, score, ok = c, all[c], true
		}
	}
	return best, score, ok
}

func rerollAll() Decision {
	return Decision{Roll: true}
}
