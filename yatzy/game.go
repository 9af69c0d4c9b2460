package yatzy

import (
	"fmt"
	"math/rand"
	"sync"

	"yatzy-lite/dice"
)

// TurnResult records a committed turn.
type TurnResult struct {
	Round    int
	Category Category
	Roll     dice.Roll
	Score    int
}

// Potential is the score a category would receive for the current dice.
type Potential struct {
	Category Category
	Score    int
}

// Game is the turn controller of a single-player game. It owns the dice cup
// and the score table and calls the scoring engine at most once per category.
type Game struct {
	cfg Config
	rng *rand.Rand

	mu sync.Mutex

	round     int // 1-based
	rollsUsed int
	cup       *dice.Cup
	table     ScoreTable
	ended     bool
	history   []TurnResult
}

func NewGame(cfg Config) (*Game, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	g := &Game{
		cfg: cfg,
		rng: dice.NewSource(cfg.Seed),
	}
	g.resetLocked()
	return g, nil
}

func (g *Game) Config() Config { return g.cfg }

// Reset starts a fresh game with the same config. The random stream continues,
// so a reset game deals different dice than the previous one.
func (g *Game) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetLocked()
}

func (g *Game) resetLocked() {
	g.round = 1
	g.rollsUsed = 0
	g.cup = dice.NewCup()
	g.table = NewScoreTable()
	g.ended = false
	g.history = nil
}

// Roll rolls every unheld die. The first roll of a turn always rolls all five.
func (g *Game) Roll() (dice.Roll, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.ended {
		return nil, ErrGameEnded
	}
	if !g.canRollLocked() {
		return nil, ErrNoRollsLeft
	}
	if g.rollsUsed == 0 {
		g.cup.ReleaseAll()
	}
	g.rollsUsed++
	return g.cup.Roll(g.rng), nil
}

// ToggleHold flips the held flag of die i and returns its new state.
func (g *Game) ToggleHold(i int) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.checkRolledLocked(); err != nil {
		return false, err
	}
	return g.cup.Toggle(i)
}

// SetHolds replaces all held flags at once.
func (g *Game) SetHolds(held [dice.NumDice]bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.checkRolledLocked(); err != nil {
		return err
	}
	g.cup.SetHeld(held)
	return nil
}

// Commit scores the current dice in category c, records it as final and
// advances to the next turn. It returns the committed score.
func (g *Game) Commit(c Category) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.checkRolledLocked(); err != nil {
		return 0, err
	}
	if g.table.IsScored(c) {
		return 0, fmt.Errorf("%w: %s", ErrAlreadyScored, c)
	}
	roll := g.cup.Values()
	score, err := Score(c, roll)
	if err != nil {
		return 0, err
	}
	// A zero is ambiguous between "no match" and "worth nothing"; the
	// blocking policy only applies while the player could still re-roll.
	if score == 0 && g.cfg.BlockZeroScores && g.canRollLocked() {
		return 0, fmt.Errorf("%w: %s with %s", ErrZeroScore, c, roll)
	}

	next, err := g.table.Commit(c, score)
	if err != nil {
		return 0, err
	}
	g.table = next
	g.history = append(g.history, TurnResult{
		Round:    g.round,
		Category: c,
		Roll:     roll,
		Score:    score,
	})
	g.endTurnLocked()
	return score, nil
}

// Preview returns the potential score of every open category for the current
// dice. It fails with ErrNotRolled before the first roll of a turn.
func (g *Game) Preview() ([]Potential, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.checkRolledLocked(); err != nil {
		return nil, err
	}
	all, err := ScoreAll(g.cup.Values())
	if err != nil {
		return nil, err
	}
	open := g.table.Open()
	out := make([]Potential, 0, len(open))
	for _, c := range open {
		out = append(out, Potential{Category: c, Score: all[c]})
	}
	return out, nil
}

func (g *Game) Table() ScoreTable {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.table
}

func (g *Game) Ended() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ended
}

func (g *Game) endTurnLocked() {
	g.rollsUsed = 0
	g.cup.ReleaseAll()
	if g.round >= g.cfg.Rounds {
		g.ended = true
		return
	}
	g.round++
}

func (g *Game) checkRolledLocked() error {
	if g.ended {
		return ErrGameEnded
	}
	if g.rollsUsed == 0 {
		return ErrNotRolled
	}
	return nil
}

func (g *Game) canRollLocked() bool {
	return g.cfg.RollsPerTurn == 0 || g.rollsUsed < g.cfg.RollsPerTurn
}

func (g *Game) rollsLeftLocked() int {
	if g.cfg.RollsPerTurn == 0 {
		return UnlimitedRolls
	}
	return g.cfg.RollsPerTurn - g.rollsUsed
}
