package bot

import (
	"context"
	"errors"
	"fmt"

	"yatzy-lite/yatzy"
)

// Play lets brain play g until the game ends or ctx is cancelled, and returns
// the final score table.
func Play(ctx context.Context, g *yatzy.Game, brain Brain) (yatzy.ScoreTable, error) {
	cfg := g.Config()
	// A zero-blocking game with unlimited rolls may keep a bot rolling; cap it.
	maxSteps := cfg.Rounds * 64
	for step := 0; step < maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return g.Table(), err
		}
		snap := g.Snapshot()
		if snap.Ended {
			return snap.Table, nil
		}
		if err := Step(g, brain, snap); err != nil {
			return snap.Table, err
		}
	}
	return g.Table(), yatzy.ErrInvalidState(fmt.Sprintf("%s did not finish within %d steps", brain.Name(), maxSteps))
}

// Step applies a single decision of brain to g.
func Step(g *yatzy.Game, brain Brain, snap yatzy.Snapshot) error {
	d := brain.Decide(ViewFromSnapshot(snap, g.Config().BlockZeroScores))
	if d.Roll {
		if snap.Rolled {
			if err := g.SetHolds(d.Hold); err != nil {
				return err
			}
		}
		_, err := g.Roll()
		return err
	}

	_, err := g.Commit(d.Category)
	if errors.Is(err, yatzy.ErrZeroScore) {
		if err := g.SetHolds([5]bool{}); err != nil {
			return err
		}
		_, err = g.Roll()
	}
	return err
}
