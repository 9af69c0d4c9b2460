package dice

import (
	"math/rand"
	"time"
)

// Source is the randomness provider for rolling. *rand.Rand satisfies it.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	Intn(n int) int
}

// NewSource returns a seeded generator; seed 0 selects a time-based seed.
func NewSource(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// RollDie draws a single uniform face from src.
func RollDie(src Source) Die {
	return Die(src.Intn(NumFaces) + 1)
}
