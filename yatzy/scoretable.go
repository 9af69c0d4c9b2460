package yatzy

import "fmt"

// ScoreTable is an immutable per-game score sheet. Every category is always
// present and is either unscored or holds a committed value; a committed
// value never changes. Commit returns a new table instead of mutating.
type ScoreTable struct {
	scores [NumCategories]int
	scored [NumCategories]bool
}

// Entry is one row of a ScoreTable.
type Entry struct {
	Category Category
	Score    int
	Scored   bool
}

func NewScoreTable() ScoreTable {
	return ScoreTable{}
}

// Get returns the committed score for c; ok is false while c is unscored.
func (t ScoreTable) Get(c Category) (score int, ok bool) {
	if !c.Valid() || !t.scored[c] {
		return 0, false
	}
	return t.scores[c], true
}

func (t ScoreTable) IsScored(c Category) bool {
	return c.Valid() && t.scored[c]
}

// Commit returns a copy of t with c set to score.
func (t ScoreTable) Commit(c Category, score int) (ScoreTable, error) {
	if !c.Valid() {
		return t, &CategoryError{Category: c}
	}
	if t.scored[c] {
		return t, fmt.Errorf("%w: %s", ErrAlreadyScored, c)
	}
	if score < 0 {
		return t, ErrInvalidState(fmt.Sprintf("negative score %d for %s", score, c))
	}
	next := t
	next.scores[c] = score
	next.scored[c] = true
	return next, nil
}

// Open returns the unscored categories in table order.
func (t ScoreTable) Open() []Category {
	out := make([]Category, 0, NumCategories)
	for i := 0; i < NumCategories; i++ {
		if !t.scored[i] {
			out = append(out, Category(i))
		}
	}
	return out
}

// OpenMask encodes the unscored categories as a bit set (bit i = Category(i)).
func (t ScoreTable) OpenMask() uint16 {
	var mask uint16
	for i := 0; i < NumCategories; i++ {
		if !t.scored[i] {
			mask |= 1 << i
		}
	}
	return mask
}

func (t ScoreTable) Filled() int {
	n := 0
	for _, s := range t.scored {
		if s {
			n++
		}
	}
	return n
}

func (t ScoreTable) Complete() bool {
	return t.Filled() == NumCategories
}

// Total sums every committed entry.
func (t ScoreTable) Total() int {
	total := 0
	for i := 0; i < NumCategories; i++ {
		if t.scored[i] {
			total += t.scores[i]
		}
	}
	return total
}

// UpperSubtotal sums the committed Aces..Sixes entries.
func (t ScoreTable) UpperSubtotal() int {
	total := 0
	for c := Aces; c <= Sixes; c++ {
		if t.scored[c] {
			total += t.scores[c]
		}
	}
	return total
}

func (t ScoreTable) Entries() []Entry {
	out := make([]Entry, NumCategories)
	for i := range out {
		out[i] = Entry{
			Category: Category(i),
			Score:    t.scores[i],
			Scored:   t.scored[i],
		}
	}
	return out
}
