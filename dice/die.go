package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// Die 骰子点数 1..6，0 表示尚未掷出
type Die byte

const (
	DieInvalid Die = 0
	MinFace    Die = 1
	MaxFace    Die = 6
)

// NumDice is the fixed number of dice in a Yatzy roll.
const NumDice = 5

// NumFaces is the number of faces on a die.
const NumFaces = int(MaxFace)

func (d Die) Valid() bool {
	return d >= MinFace && d <= MaxFace
}

func (d Die) String() string {
	if !d.Valid() {
		return "?"
	}
	return strconv.Itoa(int(d))
}

// Int returns the face value as an int.
func (d Die) Int() int { return int(d) }

// ParseDie parses a single face value such as "4".
func ParseDie(s string) (Die, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return DieInvalid, fmt.Errorf("invalid die %q: %w", s, ErrFaceRange)
	}
	d := Die(n)
	if n < int(MinFace) || n > int(MaxFace) {
		return DieInvalid, fmt.Errorf("invalid die %q: %w", s, ErrFaceRange)
	}
	return d, nil
}
