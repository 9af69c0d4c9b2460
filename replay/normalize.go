package replay

import (
	"fmt"
	"strings"

	"yatzy-lite/dice"
	"yatzy-lite/yatzy"
)

type actionKind uint8

const (
	actionRoll actionKind = iota + 1
	actionHold
	actionScore
)

type normalizedAction struct {
	kind     actionKind
	die      int
	category yatzy.Category
	expect   dice.Roll
}

type normalizedSpec struct {
	cfg     yatzy.Config
	actions []normalizedAction
}

func normalizeSpec(spec GameSpec) (normalizedSpec, error) {
	var out normalizedSpec

	if spec.RNG == nil || spec.RNG.Seed == 0 {
		return out, &ReplayError{StepIndex: -1, Reason: "missing_seed", Message: "rng.seed must be non-zero for a reproducible tape"}
	}
	out.cfg = yatzy.DefaultConfig()
	out.cfg.Seed = spec.RNG.Seed
	out.cfg.BlockZeroScores = spec.BlockZeroScores
	if spec.Rounds != 0 {
		out.cfg.Rounds = spec.Rounds
	}
	if spec.RollsPerTurn != nil {
		out.cfg.RollsPerTurn = *spec.RollsPerTurn
	}
	if out.cfg.Rounds < 1 || out.cfg.Rounds > yatzy.NumCategories {
		return out, &ReplayError{StepIndex: -1, Reason: "invalid_rounds", Message: fmt.Sprintf("rounds must be in [1,%d]", yatzy.NumCategories)}
	}
	if out.cfg.RollsPerTurn < 0 {
		return out, &ReplayError{StepIndex: -1, Reason: "invalid_rolls_per_turn", Message: "rolls_per_turn must be >= 0"}
	}
	if len(spec.Actions) == 0 {
		return out, &ReplayError{StepIndex: -1, Reason: "invalid_actions", Message: "at least one action is required"}
	}

	out.actions = make([]normalizedAction, 0, len(spec.Actions))
	for i, a := range spec.Actions {
		na, err := normalizeAction(a)
		if err != nil {
			return out, &ReplayError{StepIndex: int32(i), Reason: err.reason, Message: err.msg}
		}
		out.actions = append(out.actions, na)
	}
	return out, nil
}

type actionErr struct {
	reason string
	msg    string
}

func normalizeAction(a ActionSpec) (normalizedAction, *actionErr) {
	var na normalizedAction
	switch strings.ToUpper(strings.TrimSpace(a.Type)) {
	case "ROLL":
		na.kind = actionRoll
		if len(a.Expect) > 0 {
			for _, f := range a.Expect {
				if f < int(dice.MinFace) || f > int(dice.MaxFace) {
					return na, &actionErr{"invalid_expect", fmt.Sprintf("face %d out of range", f)}
				}
			}
			r := dice.Of(a.Expect...)
			if err := r.Validate(); err != nil {
				return na, &actionErr{"invalid_expect", err.Error()}
			}
			na.expect = r
		}
	case "HOLD":
		na.kind = actionHold
		if a.Die < 0 || a.Die >= dice.NumDice {
			return na, &actionErr{"invalid_die", fmt.Sprintf("die %d out of range [0,%d)", a.Die, dice.NumDice)}
		}
		na.die = a.Die
	case "SCORE":
		na.kind = actionScore
		c, err := yatzy.ParseCategory(a.Category)
		if err != nil {
			return na, &actionErr{"invalid_category", err.Error()}
		}
		na.category = c
	default:
		return na, &actionErr{"invalid_action_type", fmt.Sprintf("unsupported action type %q", a.Type)}
	}
	return na, nil
}
