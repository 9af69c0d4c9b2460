package yatzy

import "yatzy-lite/dice"

// UnlimitedRolls is reported as RollsLeft when the config sets no per-turn limit.
const UnlimitedRolls = -1

type Snapshot struct {
	Round        int
	Rounds       int
	RollsUsed    int
	RollsLeft    int
	RollsPerTurn int
	Ended        bool

	Dice   dice.Roll // nil until the first roll of the game
	Held   [dice.NumDice]bool
	Rolled bool // rolled at least once in the current turn

	Table   ScoreTable
	Total   int
	History []TurnResult
}

func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := Snapshot{
		Round:        g.round,
		Rounds:       g.cfg.Rounds,
		RollsUsed:    g.rollsUsed,
		RollsLeft:    g.rollsLeftLocked(),
		RollsPerTurn: g.cfg.RollsPerTurn,
		Ended:        g.ended,
		Held:         g.cup.Held(),
		Rolled:       g.rollsUsed > 0,
		Table:        g.table,
		Total:        g.table.Total(),
	}
	if g.cup.Rolled() {
		s.Dice = g.cup.Values()
	}
	for _, h := range g.history {
		h.Roll = h.Roll.Clone()
		s.History = append(s.History, h)
	}
	return s
}

// CanRoll reports whether Roll would succeed from this state.
func (s Snapshot) CanRoll() bool {
	return !s.Ended && (s.RollsLeft == UnlimitedRolls || s.RollsLeft > 0)
}
