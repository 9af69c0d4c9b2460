package replay

import "fmt"

type ReplayError struct {
	StepIndex int32          `json:"step_index"`
	Reason    string         `json:"reason"`
	Message   string         `json:"message"`
	Expected  *ExpectedState `json:"expected,omitempty"`
}

// ExpectedState describes the game at the failing step.
type ExpectedState struct {
	Round     int      `json:"round"`
	RollsLeft int      `json:"rolls_left"`
	Rolled    bool     `json:"rolled"`
	Dice      []int    `json:"dice,omitempty"`
	Open      []string `json:"open,omitempty"`
}

func (e *ReplayError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("replay error(step=%d reason=%s): %s", e.StepIndex, e.Reason, e.Message)
}
