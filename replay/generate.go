package replay

import (
	"encoding/base64"
	"errors"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"yatzy-lite/codec"
	"yatzy-lite/dice"
	"yatzy-lite/yatzy"
)

const defaultGameID = "replay_local"

// marshalEnvelope is swapped in tests to exercise encode failures.
var marshalEnvelope = codec.Marshal

func GenerateReplayTape(spec GameSpec) (*ReplayTape, error) {
	ns, err := normalizeSpec(spec)
	if err != nil {
		return nil, err
	}

	game, err := yatzy.NewGame(ns.cfg)
	if err != nil {
		return nil, &ReplayError{StepIndex: -1, Reason: "engine_init_failed", Message: err.Error()}
	}

	builder := newTapeBuilder(defaultGameID)
	if err := builder.push(-1, codec.TypeSnapshot, codec.SnapshotToStruct(game.Snapshot())); err != nil {
		return nil, err
	}

	for stepIdx, action := range ns.actions {
		before := game.Snapshot()
		if before.Ended {
			return nil, &ReplayError{
				StepIndex: int32(stepIdx),
				Reason:    "game_ended",
				Message:   "game is already complete; no further actions are allowed",
				Expected:  expectedState(before),
			}
		}

		var pushErr error
		switch action.kind {
		case actionRoll:
			rolled, err := game.Roll()
			if err != nil {
				return nil, applyError(stepIdx, err, before)
			}
			if action.expect != nil && !sameDice(rolled, action.expect) {
				return nil, &ReplayError{
					StepIndex: int32(stepIdx),
					Reason:    "dice_mismatch",
					Message:   fmt.Sprintf("expected dice %s, rolled %s", action.expect, rolled),
					Expected:  expectedState(game.Snapshot()),
				}
			}
			after := game.Snapshot()
			pushErr = builder.push(stepIdx, codec.TypeRoll, codec.RollToStruct(after.Round, after.RollsUsed, after.RollsLeft, after.Dice, after.Held))

		case actionHold:
			if _, err := game.ToggleHold(action.die); err != nil {
				return nil, applyError(stepIdx, err, before)
			}
			pushErr = builder.push(stepIdx, codec.TypeHold, codec.HoldToStruct(action.die, game.Snapshot().Held))

		case actionScore:
			if _, err := game.Commit(action.category); err != nil {
				return nil, applyError(stepIdx, err, before)
			}
			after := game.Snapshot()
			turn := after.History[len(after.History)-1]
			pushErr = builder.push(stepIdx, codec.TypeScore, codec.ScoreToStruct(turn, after.Total))
			if pushErr == nil && after.Ended {
				pushErr = builder.push(stepIdx, codec.TypeGameEnd, codec.GameEndToStruct(after.Table))
			}
		}
		if pushErr != nil {
			return nil, pushErr
		}
	}

	return &ReplayTape{
		TapeVersion: 1,
		GameID:      builder.gameID,
		Seed:        ns.cfg.Seed,
		FinalTotal:  game.Table().Total(),
		Events:      builder.events,
	}, nil
}

func applyError(stepIdx int, err error, before yatzy.Snapshot) *ReplayError {
	reason := "action_apply_failed"
	switch {
	case errors.Is(err, yatzy.ErrNoRollsLeft):
		reason = "no_rolls_left"
	case errors.Is(err, yatzy.ErrNotRolled):
		reason = "not_rolled"
	case errors.Is(err, yatzy.ErrAlreadyScored):
		reason = "already_scored"
	case errors.Is(err, yatzy.ErrZeroScore):
		reason = "zero_score"
	case errors.Is(err, yatzy.ErrGameEnded):
		reason = "game_ended"
	}
	return &ReplayError{
		StepIndex: int32(stepIdx),
		Reason:    reason,
		Message:   err.Error(),
		Expected:  expectedState(before),
	}
}

func expectedState(s yatzy.Snapshot) *ExpectedState {
	out := &ExpectedState{
		Round:     s.Round,
		RollsLeft: s.RollsLeft,
		Rolled:    s.Rolled,
	}
	if s.Dice != nil {
		out.Dice = s.Dice.Ints()
	}
	for _, c := range s.Table.Open() {
		out.Open = append(out.Open, c.Key())
	}
	return out
}

// sameDice compares rolls as multisets.
func sameDice(a, b dice.Roll) bool {
	return a.Counts() == b.Counts()
}

type tapeBuilder struct {
	gameID string
	seq    uint64
	events []ReplayEvent
}

func newTapeBuilder(gameID string) *tapeBuilder {
	return &tapeBuilder{
		gameID: gameID,
		events: make([]ReplayEvent, 0, 64),
	}
}

// push appends one event; stepIdx is reported if encoding fails.
func (b *tapeBuilder) push(stepIdx int, typ string, payload *structpb.Struct) error {
	b.seq++
	env := codec.WrapServerEnvelopeAt(b.gameID, b.seq, int64(b.seq), typ, payload)
	bin, err := marshalEnvelope(env)
	if err != nil {
		return &ReplayError{
			StepIndex: int32(stepIdx),
			Reason:    "encode_failed",
			Message:   fmt.Sprintf("encode %s envelope: %v", typ, err),
		}
	}
	b.events = append(b.events, ReplayEvent{
		Type:        typ,
		Seq:         b.seq,
		Value:       env,
		EnvelopeB64: base64.StdEncoding.EncodeToString(bin),
	})
	return nil
}
