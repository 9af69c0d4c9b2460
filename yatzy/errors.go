package yatzy

import (
	"errors"
	"fmt"

	"yatzy-lite/dice"
)

var (
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidRoll     = errors.New("invalid roll")

	ErrGameEnded     = errors.New("game already ended")
	ErrNotRolled     = errors.New("dice not rolled this turn")
	ErrNoRollsLeft   = errors.New("no rolls left this turn")
	ErrAlreadyScored = errors.New("category already scored")
	ErrZeroScore     = errors.New("roll does not score in category")
)

const invalidCategory Category = 0xFF

// CategoryError reports a category outside the closed set, either a raw
// out-of-range value or an unknown external name.
type CategoryError struct {
	Category Category
	Name     string
	Parsed   bool // Name came from ParseCategory; Category is meaningless
}

func (e *CategoryError) Error() string {
	if e.Parsed {
		return fmt.Sprintf("%s: unknown scoring category %q", ErrInvalidCategory, e.Name)
	}
	return fmt.Sprintf("%s: %d", ErrInvalidCategory, e.Category)
}

func (e *CategoryError) Unwrap() error { return ErrInvalidCategory }

// RollError wraps the dice validation failure of a malformed roll.
type RollError struct {
	Roll dice.Roll
	Err  error
}

func (e *RollError) Error() string {
	return fmt.Sprintf("%s [%s]: %v", ErrInvalidRoll, e.Roll, e.Err)
}

// Unwrap exposes both ErrInvalidRoll and the underlying dice error.
func (e *RollError) Unwrap() []error { return []error{ErrInvalidRoll, e.Err} }

type InvalidStateError string

func (e InvalidStateError) Error() string { return "invalid state: " + string(e) }

func ErrInvalidState(msg string) error { return InvalidStateError(msg) }
