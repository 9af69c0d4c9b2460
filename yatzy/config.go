package yatzy

import "fmt"

const (
	DefaultRounds       = NumCategories
	DefaultRollsPerTurn = 3
)

type Config struct {
	// Turns per game; each turn commits exactly one category.
	Rounds int

	// Rolls allowed per turn (0 => unlimited).
	RollsPerTurn int

	// Reject committing a zero score while the turn still has rolls left.
	BlockZeroScores bool

	// RNG seed (0 => time-based)
	Seed int64
}

func DefaultConfig() Config {
	return Config{
		Rounds:       DefaultRounds,
		RollsPerTurn: DefaultRollsPerTurn,
	}
}

func (c Config) validate() error {
	if c.Rounds <= 0 {
		return fmt.Errorf("Rounds must be > 0")
	}
	if c.Rounds > NumCategories {
		return fmt.Errorf("Rounds must be <= %d", NumCategories)
	}
	if c.RollsPerTurn < 0 {
		return fmt.Errorf("RollsPerTurn must be >= 0")
	}
	return nil
}
