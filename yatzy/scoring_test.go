package yatzy

import (
	"errors"
	"sync"
	"testing"

	"yatzy-lite/dice"
)

// allRolls enumerates every ordered 5-dice outcome (6^5 = 7776).
func allRolls() []dice.Roll {
	out := make([]dice.Roll, 0, 7776)
	var rec func(prefix dice.Roll)
	rec = func(prefix dice.Roll) {
		if len(prefix) == dice.NumDice {
			out = append(out, prefix.Clone())
			return
		}
		for f := 1; f <= dice.NumFaces; f++ {
			rec(append(prefix, dice.Die(f)))
		}
	}
	rec(make(dice.Roll, 0, dice.NumDice))
	return out
}

func mustScore(t *testing.T, c Category, r dice.Roll) int {
	t.Helper()
	got, err := Score(c, r)
	if err != nil {
		t.Fatalf("Score(%s, %v) err: %v", c, r, err)
	}
	return got
}

func TestScore_KnownRolls(t *testing.T) {
	cases := []struct {
		c    Category
		roll dice.Roll
		want int
	}{
		{Aces, dice.Of(1, 1, 3, 4, 5), 2},
		{Aces, dice.Of(2, 3, 4, 5, 6), 0},
		{Twos, dice.Of(2, 2, 2, 1, 6), 6},
		{Threes, dice.Of(3, 1, 3, 1, 3), 9},
		{Fours, dice.Of(4, 4, 4, 4, 4), 20},
		{Fives, dice.Of(5, 1, 2, 3, 4), 5},
		{Sixes, dice.Of(6, 6, 6, 1, 2), 18},
		{ThreeOfAKind, dice.Of(3, 3, 3, 5, 6), 20},
		{ThreeOfAKind, dice.Of(1, 2, 3, 4, 5), 0},
		{ThreeOfAKind, dice.Of(2, 2, 2, 2, 6), 14},
		{FourOfAKind, dice.Of(5, 5, 5, 5, 1), 21},
		{FourOfAKind, dice.Of(5, 5, 5, 1, 1), 0},
		{FourOfAKind, dice.Of(6, 6, 6, 6, 6), 30},
		{FullHouse, dice.Of(2, 2, 2, 5, 5), 25},
		{FullHouse, dice.Of(5, 2, 5, 2, 2), 25},
		{FullHouse, dice.Of(6, 6, 6, 6, 6), 0},
		{FullHouse, dice.Of(1, 2, 3, 4, 5), 0},
		{FullHouse, dice.Of(3, 3, 3, 3, 5), 0},
		{SmallStraight, dice.Of(1, 2, 3, 4, 6), 30},
		{SmallStraight, dice.Of(1, 1, 2, 3, 4), 30},
		{SmallStraight, dice.Of(6, 4, 5, 3, 3), 30},
		{SmallStraight, dice.Of(1, 2, 3, 4, 5), 30},
		{SmallStraight, dice.Of(1, 2, 3, 5, 6), 0},
		{LargeStraight, dice.Of(1, 2, 3, 4, 5), 40},
		{LargeStraight, dice.Of(6, 5, 4, 3, 2), 40},
		{LargeStraight, dice.Of(1, 2, 3, 4, 6), 0},
		{Yatzy, dice.Of(4, 4, 4, 4, 4), 50},
		{Yatzy, dice.Of(4, 4, 4, 4, 3), 0},
		{Chance, dice.Of(1, 3, 5, 6, 6), 21},
	}
	for _, tc := range cases {
		if got := mustScore(t, tc.c, tc.roll); got != tc.want {
			t.Fatalf("Score(%s, %v) = %d, want %d", tc.c, tc.roll, got, tc.want)
		}
	}
}

func TestScore_YatzyForEveryFace(t *testing.T) {
	for f := 1; f <= dice.NumFaces; f++ {
		r := dice.Of(f, f, f, f, f)
		if got := mustScore(t, Yatzy, r); got != YatzyScore {
			t.Fatalf("Score(Yatzy, %v) = %d, want %d", r, got, YatzyScore)
		}
	}
}

func TestScore_PropertiesOverAllRolls(t *testing.T) {
	for _, r := range allRolls() {
		all, err := ScoreAll(r)
		if err != nil {
			t.Fatalf("ScoreAll(%v) err: %v", r, err)
		}
		counts := r.Counts()
		maxCount := 0
		for _, n := range counts {
			if n > maxCount {
				maxCount = n
			}
		}

		for _, c := range Categories() {
			got := mustScore(t, c, r)
			if got < 0 {
				t.Fatalf("negative score %d for %s %v", got, c, r)
			}
			if got != all[c] {
				t.Fatalf("Score and ScoreAll disagree for %s %v: %d vs %d", c, r, got, all[c])
			}
		}
		if all[Chance] != r.Sum() {
			t.Fatalf("Chance %v = %d, want sum %d", r, all[Chance], r.Sum())
		}
		if maxCount < dice.NumDice && all[Yatzy] != 0 {
			t.Fatalf("Yatzy scored %d for %v", all[Yatzy], r)
		}
		if all[LargeStraight] > 0 && all[SmallStraight] == 0 {
			t.Fatalf("large straight without small straight for %v", r)
		}
		if all[FourOfAKind] > 0 && all[ThreeOfAKind] != all[FourOfAKind] {
			t.Fatalf("four of a kind %d without equal three of a kind %d for %v", all[FourOfAKind], all[ThreeOfAKind], r)
		}
		if maxCount == dice.NumDice && all[FullHouse] != 0 {
			t.Fatalf("five of a kind scored as full house for %v", r)
		}
	}
}

func TestScore_IsIdempotent(t *testing.T) {
	r := dice.Of(3, 3, 3, 5, 6)
	for _, c := range Categories() {
		a := mustScore(t, c, r)
		b := mustScore(t, c, r)
		if a != b {
			t.Fatalf("Score(%s) not idempotent: %d then %d", c, a, b)
		}
	}
	if r.String() != "3,3,3,5,6" {
		t.Fatalf("Score mutated its input: %v", r)
	}
}

func TestScore_InvalidCategory(t *testing.T) {
	for _, r := range []dice.Roll{dice.Of(1, 2, 3, 4, 5), dice.Of(6, 6, 6, 6, 6)} {
		_, err := Score(Category(NumCategories), r)
		if !errors.Is(err, ErrInvalidCategory) {
			t.Fatalf("expected ErrInvalidCategory, got %v", err)
		}
		var ce *CategoryError
		if !errors.As(err, &ce) {
			t.Fatalf("expected *CategoryError, got %T", err)
		}
	}
	if _, err := ParseCategory("Bowling"); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory for Bowling, got %v", err)
	}
}

func TestScore_InvalidRoll(t *testing.T) {
	cases := []struct {
		roll    dice.Roll
		diceErr error
	}{
		{dice.Of(1, 2, 3, 4), dice.ErrRollLength},
		{dice.Of(1, 2, 3, 4, 5, 6), dice.ErrRollLength},
		{dice.Of(0, 2, 3, 4, 5), dice.ErrFaceRange},
		{dice.Of(1, 2, 3, 4, 7), dice.ErrFaceRange},
	}
	for _, tc := range cases {
		_, err := Score(Chance, tc.roll)
		if !errors.Is(err, ErrInvalidRoll) {
			t.Fatalf("expected ErrInvalidRoll for %v, got %v", tc.roll, err)
		}
		if !errors.Is(err, tc.diceErr) {
			t.Fatalf("expected %v for %v, got %v", tc.diceErr, tc.roll, err)
		}
	}
	if _, err := ScoreAll(dice.Of(1, 2)); !errors.Is(err, ErrInvalidRoll) {
		t.Fatalf("expected ErrInvalidRoll from ScoreAll, got %v", err)
	}
}

func TestScore_ConcurrentCallers(t *testing.T) {
	rolls := allRolls()
	want := make([][NumCategories]int, len(rolls))
	for i, r := range rolls {
		all, err := ScoreAll(r)
		if err != nil {
			t.Fatal(err)
		}
		want[i] = all
	}

	var wg sync.WaitGroup
	errs := make(chan string, 8)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for i := offset; i < len(rolls); i += 8 {
				for _, c := range Categories() {
					got, err := Score(c, rolls[i])
					if err != nil || got != want[i][c] {
						errs <- rolls[i].String()
						return
					}
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for r := range errs {
		t.Fatalf("concurrent score mismatch for %s", r)
	}
}
