package dice

import (
	"errors"
	"math/rand"
	"testing"
)

func TestCupRollKeepsHeldDice(t *testing.T) {
	src := rand.New(rand.NewSource(7))
	c := NewCup()
	if c.Rolled() {
		t.Fatalf("fresh cup must not report rolled")
	}

	first := c.Roll(src)
	if err := first.Validate(); err != nil {
		t.Fatalf("rolled values invalid: %v", err)
	}
	if err := c.Hold(0); err != nil {
		t.Fatal(err)
	}
	if err := c.Hold(3); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 50; i++ {
		next := c.Roll(src)
		if next[0] != first[0] || next[3] != first[3] {
			t.Fatalf("held dice changed: before=%v after=%v", first, next)
		}
	}
}

func TestCupRollIsUniformEnough(t *testing.T) {
	src := rand.New(rand.NewSource(1))
	c := NewCup()
	var seen [NumFaces + 1]int
	for i := 0; i < 6000; i++ {
		for _, d := range c.Roll(src) {
			if !d.Valid() {
				t.Fatalf("invalid face %d", d)
			}
			seen[d]++
		}
	}
	for f := 1; f <= NumFaces; f++ {
		if seen[f] < 4000 || seen[f] > 6000 {
			t.Fatalf("face %d drawn %d times out of 30000", f, seen[f])
		}
	}
}

func TestCupToggleAndIndexErrors(t *testing.T) {
	c := NewCup()
	held, err := c.Toggle(2)
	if err != nil || !held {
		t.Fatalf("expected die 2 held, got held=%v err=%v", held, err)
	}
	held, err = c.Toggle(2)
	if err != nil || held {
		t.Fatalf("expected die 2 released, got held=%v err=%v", held, err)
	}
	if _, err := c.Toggle(5); !errors.Is(err, ErrDieIndex) {
		t.Fatalf("expected ErrDieIndex, got %v", err)
	}
	if err := c.Hold(-1); !errors.Is(err, ErrDieIndex) {
		t.Fatalf("expected ErrDieIndex, got %v", err)
	}

	_ = c.Hold(1)
	c.ReleaseAll()
	if c.Held() != [NumDice]bool{} {
		t.Fatalf("expected all dice released")
	}
}

func TestCupSetRejectsInvalidRoll(t *testing.T) {
	c := NewCup()
	if err := c.Set(Of(1, 2, 3)); !errors.Is(err, ErrRollLength) {
		t.Fatalf("expected ErrRollLength, got %v", err)
	}
	if err := c.Set(Of(6, 6, 6, 6, 6)); err != nil {
		t.Fatal(err)
	}
	if !c.Rolled() {
		t.Fatalf("cup with a full set of faces should report rolled")
	}
}
