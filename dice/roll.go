package dice

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRollLength = errors.New("roll must contain exactly 5 dice")
	ErrFaceRange  = errors.New("die face out of range 1..6")
)

// Roll is the face values of all five dice. Order carries no scoring meaning.
type Roll []Die

// Of builds a Roll from plain ints without validating it.
func Of(faces ...int) Roll {
	r := make(Roll, len(faces))
	for i, f := range faces {
		r[i] = Die(f)
	}
	return r
}

// Validate reports whether r has exactly NumDice dice, all within 1..6.
func (r Roll) Validate() error {
	if len(r) != NumDice {
		return fmt.Errorf("%w: got %d", ErrRollLength, len(r))
	}
	for i, d := range r {
		if !d.Valid() {
			return fmt.Errorf("%w: die %d is %d", ErrFaceRange, i, d)
		}
	}
	return nil
}

func (r Roll) Sum() int {
	total := 0
	for _, d := range r {
		total += int(d)
	}
	return total
}

// Counts 统计每个点数出现的次数，下标即点数（下标 0 不使用）
func (r Roll) Counts() [NumFaces + 1]int {
	var counts [NumFaces + 1]int
	for _, d := range r {
		if d.Valid() {
			counts[d]++
		}
	}
	return counts
}

// Faces returns the distinct face values in ascending order.
func (r Roll) Faces() []Die {
	counts := r.Counts()
	faces := make([]Die, 0, NumDice)
	for f := MinFace; f <= MaxFace; f++ {
		if counts[f] > 0 {
			faces = append(faces, f)
		}
	}
	return faces
}

// Clone returns a copy that shares no memory with r.
func (r Roll) Clone() Roll {
	out := make(Roll, len(r))
	copy(out, r)
	return out
}

func (r Roll) Ints() []int {
	out := make([]int, len(r))
	for i, d := range r {
		out[i] = int(d)
	}
	return out
}

func (r Roll) String() string {
	parts := make([]string, len(r))
	for i, d := range r {
		parts[i] = d.String()
	}
	return strings.Join(parts, ",")
}

// ParseRoll 将 "1,2,3,4,5" 或 "1 2 3 4 5" 形式的字符串解析为 Roll
func ParseRoll(s string) (Roll, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	roll := make(Roll, 0, len(fields))
	for _, f := range fields {
		d, err := ParseDie(f)
		if err != nil {
			return nil, err
		}
		roll = append(roll, d)
	}
	if err := roll.Validate(); err != nil {
		return nil, err
	}
	return roll, nil
}
