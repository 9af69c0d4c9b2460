package yatzy

import (
	"errors"
	"strings"
	"testing"
)

func TestParseCategory_AcceptsNamesKeysAndAliases(t *testing.T) {
	cases := map[string]Category{
		"Aces":            Aces,
		"ones":            Aces,
		"Three of a Kind": ThreeOfAKind,
		"THREE_OF_A_KIND": ThreeOfAKind,
		"four-of-a-kind":  FourOfAKind,
		" full house ":    FullHouse,
		"SmallStraight":   SmallStraight,
		"LARGE_STRAIGHT":  LargeStraight,
		"Yahtzee":         Yatzy,
		"chance":          Chance,
	}
	for name, want := range cases {
		got, err := ParseCategory(name)
		if err != nil {
			t.Fatalf("ParseCategory(%q) err: %v", name, err)
		}
		if got != want {
			t.Fatalf("ParseCategory(%q) = %s, want %s", name, got, want)
		}
	}
}

func TestCategory_RoundTripsThroughNameAndKey(t *testing.T) {
	for _, c := range Categories() {
		for _, s := range []string{c.String(), c.Key()} {
			got, err := ParseCategory(s)
			if err != nil || got != c {
				t.Fatalf("ParseCategory(%q) = %v, %v; want %s", s, got, err, c)
			}
		}
	}
	if len(Categories()) != NumCategories {
		t.Fatalf("expected %d categories", NumCategories)
	}
}

func TestCategory_UpperFaces(t *testing.T) {
	for c := Aces; c <= Sixes; c++ {
		if !c.IsUpper() || int(c.Face()) != int(c)+1 {
			t.Fatalf("unexpected face for %s: %d", c, c.Face())
		}
	}
	if Chance.IsUpper() || Chance.Face().Valid() {
		t.Fatalf("Chance must not be an upper category")
	}
	if Category(40).Valid() || Category(40).String() != "Unknown" {
		t.Fatalf("out-of-range category must be invalid")
	}
}

func TestParseCategory_UnknownNameIsNotAces(t *testing.T) {
	for _, name := range []string{"", "  ", "bonus"} {
		got, err := ParseCategory(name)
		if !errors.Is(err, ErrInvalidCategory) {
			t.Fatalf("ParseCategory(%q) err = %v, want ErrInvalidCategory", name, err)
		}
		if got.Valid() {
			t.Fatalf("ParseCategory(%q) = %s, want an invalid category", name, got)
		}
		if want := `"` + name + `"`; !strings.Contains(err.Error(), want) {
			t.Fatalf("ParseCategory(%q) err %q does not quote the input", name, err)
		}
	}
}
