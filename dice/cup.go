package dice

import (
	"errors"
	"fmt"
)

var ErrDieIndex = errors.New("die index out of range")

// Cup holds the five dice of a turn together with their held flags.
// A held die keeps its value when the cup is rolled.
type Cup struct {
	values [NumDice]Die
	held   [NumDice]bool
}

func NewCup() *Cup {
	return &Cup{}
}

// Roll re-rolls every unheld die and returns the resulting values.
func (c *Cup) Roll(src Source) Roll {
	for i := range c.values {
		if !c.held[i] {
			c.values[i] = RollDie(src)
		}
	}
	return c.Values()
}

// Rolled reports whether every die shows a face, i.e. the cup was rolled at least once.
func (c *Cup) Rolled() bool {
	for _, d := range c.values {
		if !d.Valid() {
			return false
		}
	}
	return true
}

func (c *Cup) Values() Roll {
	out := make(Roll, NumDice)
	copy(out, c.values[:])
	return out
}

func (c *Cup) Held() [NumDice]bool {
	return c.held
}

// Toggle flips the held flag of die i and returns its new state.
func (c *Cup) Toggle(i int) (bool, error) {
	if err := checkIndex(i); err != nil {
		return false, err
	}
	c.held[i] = !c.held[i]
	return c.held[i], nil
}

func (c *Cup) Hold(i int) error {
	if err := checkIndex(i); err != nil {
		return err
	}
	c.held[i] = true
	return nil
}

func (c *Cup) Release(i int) error {
	if err := checkIndex(i); err != nil {
		return err
	}
	c.held[i] = false
	return nil
}

func (c *Cup) SetHeld(held [NumDice]bool) {
	c.held = held
}

func (c *Cup) ReleaseAll() {
	c.held = [NumDice]bool{}
}

// Set overwrites the dice values, e.g. to restore a recorded position.
func (c *Cup) Set(r Roll) error {
	if err := r.Validate(); err != nil {
		return err
	}
	copy(c.values[:], r)
	return nil
}

// Reset clears values and holds back to the unrolled state.
func (c *Cup) Reset() {
	c.values = [NumDice]Die{}
	c.held = [NumDice]bool{}
}

func checkIndex(i int) error {
	if i < 0 || i >= NumDice {
		return fmt.Errorf("%w: %d", ErrDieIndex, i)
	}
	return nil
}
