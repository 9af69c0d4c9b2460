package yatzy

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestScoreTable_CommitDoesNotMutateReceiver(t *testing.T) {
	empty := NewScoreTable()
	next, err := empty.Commit(FullHouse, 25)
	if err != nil {
		t.Fatalf("Commit err: %v", err)
	}
	if empty.IsScored(FullHouse) {
		t.Fatalf("Commit mutated the original table")
	}
	if score, ok := next.Get(FullHouse); !ok || score != 25 {
		t.Fatalf("expected committed 25, got %d ok=%v", score, ok)
	}
}

func TestScoreTable_ZeroIsDistinctFromUnscored(t *testing.T) {
	tbl, err := NewScoreTable().Commit(Aces, 0)
	if err != nil {
		t.Fatal(err)
	}
	if score, ok := tbl.Get(Aces); !ok || score != 0 {
		t.Fatalf("expected committed zero, got %d ok=%v", score, ok)
	}
	if _, ok := tbl.Get(Twos); ok {
		t.Fatalf("Twos must still be unscored")
	}
}

func TestScoreTable_RejectsRecommitAndInvalid(t *testing.T) {
	tbl, _ := NewScoreTable().Commit(Chance, 17)
	if _, err := tbl.Commit(Chance, 20); !errors.Is(err, ErrAlreadyScored) {
		t.Fatalf("expected ErrAlreadyScored, got %v", err)
	}
	if score, _ := tbl.Get(Chance); score != 17 {
		t.Fatalf("committed value changed to %d", score)
	}
	if _, err := tbl.Commit(Category(99), 1); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
	if _, err := tbl.Commit(Twos, -2); err == nil {
		t.Fatalf("expected error for negative score")
	}
}

func TestScoreTable_TotalsAndOpen(t *testing.T) {
	tbl := NewScoreTable()
	commits := []struct {
		c Category
		s int
	}{
		{Aces, 3}, {Sixes, 24}, {Yatzy, 50}, {Chance, 22},
	}
	for _, cm := range commits {
		var err error
		tbl, err = tbl.Commit(cm.c, cm.s)
		if err != nil {
			t.Fatal(err)
		}
	}
	if tbl.Total() != 99 {
		t.Fatalf("expected total 99, got %d", tbl.Total())
	}
	if tbl.UpperSubtotal() != 27 {
		t.Fatalf("expected upper subtotal 27, got %d", tbl.UpperSubtotal())
	}
	if tbl.Filled() != 4 || tbl.Complete() {
		t.Fatalf("unexpected fill state: filled=%d complete=%v", tbl.Filled(), tbl.Complete())
	}
	wantOpen := []Category{Twos, Threes, Fours, Fives, ThreeOfAKind, FourOfAKind, FullHouse, SmallStraight, LargeStraight}
	if diff := cmp.Diff(wantOpen, tbl.Open()); diff != "" {
		t.Fatalf("open categories mismatch (-want +got):\n%s", diff)
	}
	mask := tbl.OpenMask()
	if mask&(1<<Aces) != 0 || mask&(1<<Twos) == 0 {
		t.Fatalf("unexpected open mask %013b", mask)
	}
	entries := tbl.Entries()
	if len(entries) != NumCategories || !entries[Yatzy].Scored || entries[Yatzy].Score != 50 {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}
