package yatzy

import "yatzy-lite/dice"

// Fixed-value category scores.
const (
	FullHouseScore     = 25
	SmallStraightScore = 30
	LargeStraightScore = 40
	YatzyScore         = 50
)

const (
	smallStraightRun = 4
	largeStraightRun = 5
)

// Score evaluates roll r against category c. It is pure and safe for
// concurrent use. A roll that does not match the category scores 0 with a
// nil error; only an unknown category or a malformed roll is an error.
func Score(c Category, r dice.Roll) (int, error) {
	if !c.Valid() {
		return 0, &CategoryError{Category: c}
	}
	if err := r.Validate(); err != nil {
		return 0, &RollError{Roll: r.Clone(), Err: err}
	}
	return evalCategory(c, r, r.Counts()), nil
}

// ScoreAll evaluates r against every category at once, indexed by Category.
func ScoreAll(r dice.Roll) ([NumCategories]int, error) {
	var out [NumCategories]int
	if err := r.Validate(); err != nil {
		return out, &RollError{Roll: r.Clone(), Err: err}
	}
	counts := r.Counts()
	for i := range out {
		out[i] = evalCategory(Category(i), r, counts)
	}
	return out, nil
}

// evalCategory assumes c and r were validated.
func evalCategory(c Category, r dice.Roll, counts [dice.NumFaces + 1]int) int {
	switch c {
	case Aces, Twos, Threes, Fours, Fives, Sixes:
		face := c.Face()
		return counts[face] * int(face)
	case ThreeOfAKind:
		if hasOfAKind(counts, 3) {
			return r.Sum()
		}
	case FourOfAKind:
		if hasOfAKind(counts, 4) {
			return r.Sum()
		}
	case FullHouse:
		if isFullHouse(counts) {
			return FullHouseScore
		}
	case SmallStraight:
		if longestRun(counts) >= smallStraightRun {
			return SmallStraightScore
		}
	case LargeStraight:
		if longestRun(counts) >= largeStraightRun {
			return LargeStraightScore
		}
	case Yatzy:
		if hasOfAKind(counts, dice.NumDice) {
			return YatzyScore
		}
	case Chance:
		return r.Sum()
	}
	return 0
}

func hasOfAKind(counts [dice.NumFaces + 1]int, n int) bool {
	for f := 1; f <= dice.NumFaces; f++ {
		if counts[f] >= n {
			return true
		}
	}
	return false
}

// isFullHouse requires one face counted exactly 3 times and another exactly 2;
// five of a kind has neither and does not qualify.
func isFullHouse(counts [dice.NumFaces + 1]int) bool {
	three, two := false, false
	for f := 1; f <= dice.NumFaces; f++ {
		switch counts[f] {
		case 3:
			three = true
		case 2:
			two = true
		}
	}
	return three && two
}

// longestRun scans the distinct faces in ascending order for the longest
// stretch of consecutive values. Duplicates do not break a run.
func longestRun(counts [dice.NumFaces + 1]int) int {
	best, run := 0, 0
	for f := 1; f <= dice.NumFaces; f++ {
		if counts[f] == 0 {
			run = 0
			continue
		}
		run++
		if run > best {
			best = run
		}
	}
	return best
}
