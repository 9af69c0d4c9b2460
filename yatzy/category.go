package yatzy

import (
	"strings"

	"yatzy-lite/dice"
)

// Category 计分类别（固定 13 项，不支持动态扩展）
type Category byte

const (
	Aces Category = iota
	Twos
	Threes
	Fours
	Fives
	Sixes
	ThreeOfAKind
	FourOfAKind
	FullHouse
	SmallStraight
	LargeStraight
	Yatzy
	Chance
)

// NumCategories is the size of the closed category set.
const NumCategories = int(Chance) + 1

var CategoryDictionary = map[Category]string{
	Aces:          "Aces",
	Twos:          "Twos",
	Threes:        "Threes",
	Fours:         "Fours",
	Fives:         "Fives",
	Sixes:         "Sixes",
	ThreeOfAKind:  "Three of a Kind",
	FourOfAKind:   "Four of a Kind",
	FullHouse:     "Full House",
	SmallStraight: "Small Straight",
	LargeStraight: "Large Straight",
	Yatzy:         "Yatzy",
	Chance:        "Chance",
}

// CategoryKeyDictionary holds the wire identifiers used by clients and replay specs.
var CategoryKeyDictionary = map[Category]string{
	Aces:          "ACES",
	Twos:          "TWOS",
	Threes:        "THREES",
	Fours:         "FOURS",
	Fives:         "FIVES",
	Sixes:         "SIXES",
	ThreeOfAKind:  "THREE_OF_A_KIND",
	FourOfAKind:   "FOUR_OF_A_KIND",
	FullHouse:     "FULL_HOUSE",
	SmallStraight: "SMALL_STRAIGHT",
	LargeStraight: "LARGE_STRAIGHT",
	Yatzy:         "YATZY",
	Chance:        "CHANCE",
}

// aliases accepted by ParseCategory in addition to display names and keys.
var categoryAliases = map[string]Category{
	"ones":    Aces,
	"yahtzee": Yatzy,
	"3kind":   ThreeOfAKind,
	"4kind":   FourOfAKind,
}

var categoryByToken = func() map[string]Category {
	m := make(map[string]Category, NumCategories*2+len(categoryAliases))
	for c, name := range CategoryDictionary {
		m[categoryToken(name)] = c
	}
	for c, key := range CategoryKeyDictionary {
		m[categoryToken(key)] = c
	}
	for alias, c := range categoryAliases {
		m[alias] = c
	}
	return m
}()

func (c Category) Valid() bool {
	return int(c) < NumCategories
}

func (c Category) String() string {
	if name, ok := CategoryDictionary[c]; ok {
		return name
	}
	return "Unknown"
}

// Key returns the upper snake-case wire identifier, e.g. "FULL_HOUSE".
func (c Category) Key() string {
	if key, ok := CategoryKeyDictionary[c]; ok {
		return key
	}
	return "UNKNOWN"
}

// IsUpper reports whether c is one of Aces..Sixes.
func (c Category) IsUpper() bool {
	return c <= Sixes
}

// Face returns the die face counted by an upper-section category, or DieInvalid.
func (c Category) Face() dice.Die {
	if !c.IsUpper() {
		return dice.DieInvalid
	}
	return dice.Die(c) + 1
}

// Categories returns every category in table order.
func Categories() []Category {
	out := make([]Category, NumCategories)
	for i := range out {
		out[i] = Category(i)
	}
	return out
}

// ParseCategory maps an external name ("Full House", "FULL_HOUSE", "full-house")
// to a Category. Unknown names fail with ErrInvalidCategory and return a
// category outside the valid set.
func ParseCategory(name string) (Category, error) {
	if c, ok := categoryByToken[categoryToken(name)]; ok {
		return c, nil
	}
	return invalidCategory, &CategoryError{Category: invalidCategory, Name: name, Parsed: true}
}

func categoryToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}
