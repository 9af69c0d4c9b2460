package bot

import (
	"context"
	"math/rand"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"yatzy-lite/dice"
	"yatzy-lite/yatzy"
)

const numHoldMasks = 1 << dice.NumDice

const (
	defaultSamples   = 400
	defaultThreshold = 1.0
	defaultCacheSize = 4096
	defaultWorkers   = 8
)

type RuleConfig struct {
	Seed int64
	// Simulated re-rolls per hold pattern.
	Samples int
	// Minimum expected gain before the brain re-rolls instead of committing.
	Threshold float64
	CacheSize int
	Workers   int
}

// RuleBrain estimates, for every hold pattern, the expected best open-category
// score after one more roll and keeps the dice of the best pattern. Patterns
// are simulated in parallel and memoised per (sorted dice, open categories).
type RuleBrain struct {
	cfg   RuleConfig
	cache *lru.Cache[evalKey, [numHoldMasks]float64]
}

type evalKey struct {
	dice [dice.NumDice]dice.Die
	open uint16
}

func NewRuleBrain(cfg RuleConfig) (*RuleBrain, error) {
	if cfg.Samples <= 0 {
		cfg.Samples = defaultSamples
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = defaultThreshold
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	cache, err := lru.New[evalKey, [numHoldMasks]float64](cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	return &RuleBrain{cfg: cfg, cache: cache}, nil
}

func (b *RuleBrain) Name() string { return "rule" }

// Decide implements Brain.
func (b *RuleBrain) Decide(view View) Decision {
	if !view.Rolled {
		return rerollAll()
	}
	all, err := yatzy.ScoreAll(view.Dice)
	if err != nil {
		return rerollAll()
	}
	best, current, ok := bestOpen(all, view.Table)
	if !ok {
		return Decision{}
	}
	if view.RollsLeft <= 0 {
		return Decision{Category: best}
	}

	sorted, order := sortDice(view.Dice)
	key := evalKey{dice: sorted, open: view.Table.OpenMask()}
	evs, err := b.expectations(context.Background(), key)
	if err != nil {
		return Decision{Category: best}
	}

	bestMask, bestEV := numHoldMasks-1, float64(current)
	for mask := 0; mask < numHoldMasks-1; mask++ {
		if evs[mask] > bestEV {
			bestMask, bestEV = mask, evs[mask]
		}
	}

	mustReroll := current == 0 && view.BlockZeroScores
	if bestEV-float64(current) < b.cfg.Threshold && !mustReroll {
		return Decision{Category: best}
	}
	if bestMask == numHoldMasks-1 {
		// Nothing beats standing pat but the zero policy forces a roll.
		bestMask = 0
	}
	return Decision{Roll: true, Hold: holdFromMask(bestMask, order)}
}

// expectations returns the expected best open score for each hold mask over
// the sorted dice in key.
func (b *RuleBrain) expectations(ctx context.Context, key evalKey) ([numHoldMasks]float64, error) {
	if evs, ok := b.cache.Get(key); ok {
		return evs, nil
	}

	var evs [numHoldMasks]float64
	table := tableFromMask(key.open)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Workers)
	for mask := 0; mask < numHoldMasks; mask++ {
		mask := mask
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ev, err := b.simulate(key, table, mask)
			if err != nil {
				return err
			}
			evs[mask] = ev
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return evs, err
	}
	b.cache.Add(key, evs)
	return evs, nil
}

func (b *RuleBrain) simulate(key evalKey, table yatzy.ScoreTable, mask int) (float64, error) {
	samples := b.cfg.Samples
	if mask == numHoldMasks-1 {
		samples = 1
	}
	rng := rand.New(rand.NewSource(maskSeed(b.cfg.Seed, key, mask)))
	roll := make(dice.Roll, dice.NumDice)
	total := 0
	for s := 0; s < samples; s++ {
		for i := 0; i < dice.NumDice; i++ {
			if mask&(1<<i) != 0 {
				roll[i] = key.dice[i]
			} else {
				roll[i] = dice.RollDie(rng)
			}
		}
		all, err := yatzy.ScoreAll(roll)
		if err != nil {
			return 0, err
		}
		_, score, _ := bestOpen(all, table)
		total += score
	}
	return float64(total) / float64(samples), nil
}

// sortDice returns the dice in ascending order plus, for every sorted slot,
// the index of that die in the original roll.
func sortDice(r dice.Roll) ([dice.NumDice]dice.Die, [dice.NumDice]int) {
	var order [dice.NumDice]int
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order[:], func(a, b int) bool { return r[order[a]] < r[order[b]] })
	var sorted [dice.NumDice]dice.Die
	for i, idx := range order {
		sorted[i] = r[idx]
	}
	return sorted, order
}

func holdFromMask(mask int, order [dice.NumDice]int) [dice.NumDice]bool {
	var held [dice.NumDice]bool
	for i := 0; i < dice.NumDice; i++ {
		if mask&(1<<i) != 0 {
			held[order[i]] = true
		}
	}
	return held
}

// tableFromMask rebuilds a table whose open categories match mask. Scores of
// closed categories are irrelevant to the simulation.
func tableFromMask(open uint16) yatzy.ScoreTable {
	t := yatzy.NewScoreTable()
	for _, c := range yatzy.Categories() {
		if open&(1<<c) == 0 {
			t, _ = t.Commit(c, 0)
		}
	}
	return t
}

func maskSeed(seed int64, key evalKey, mask int) int64 {
	h := uint64(seed) ^ uint64(key.open)<<40
	for i, d := range key.dice {
		h ^= uint64(d) << (8 * i)
	}
	h ^= (uint64(mask) + 1) * 0x9E3779B97F4A7C15
	return int64(h)
}
