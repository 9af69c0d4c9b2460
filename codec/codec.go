package codec

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"yatzy-lite/dice"
	"yatzy-lite/yatzy"
)

// Server → client payload types.
const (
	TypeSnapshot = "snapshot"
	TypeRoll     = "roll"
	TypeHold     = "hold"
	TypeScore    = "score"
	TypePreview  = "preview"
	TypeGameEnd  = "gameEnd"
	TypeError    = "error"
)

var ErrMalformedEnvelope = errors.New("malformed envelope")

// Envelope is the decoded form of a server message.
type Envelope struct {
	GameID     string
	ServerSeq  uint64
	ServerTsMs int64
	Type       string
	Payload    *structpb.Struct
}

// WrapServerEnvelope creates an envelope stamped with the current time.
func WrapServerEnvelope(gameID string, serverSeq uint64, typ string, payload *structpb.Struct) *structpb.Struct {
	return WrapServerEnvelopeAt(gameID, serverSeq, time.Now().UnixMilli(), typ, payload)
}

// WrapServerEnvelopeAt is WrapServerEnvelope with an explicit timestamp, used
// where output must be reproducible.
func WrapServerEnvelopeAt(gameID string, serverSeq uint64, tsMs int64, typ string, payload *structpb.Struct) *structpb.Struct {
	if payload == nil {
		payload = &structpb.Struct{Fields: map[string]*structpb.Value{}}
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"game_id":      structpb.NewStringValue(gameID),
		"server_seq":   structpb.NewNumberValue(float64(serverSeq)),
		"server_ts_ms": structpb.NewNumberValue(float64(tsMs)),
		"type":         structpb.NewStringValue(typ),
		"payload":      structpb.NewStructValue(payload),
	}}
}

// Marshal encodes any message produced by this package to the binary wire form.
func Marshal(msg *structpb.Struct) ([]byte, error) {
	return proto.MarshalOptions{Deterministic: true}.Marshal(msg)
}

func UnmarshalEnvelope(data []byte) (Envelope, error) {
	var msg structpb.Struct
	if err := proto.Unmarshal(data, &msg); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return EnvelopeFromStruct(&msg)
}

func EnvelopeFromStruct(msg *structpb.Struct) (Envelope, error) {
	f := msg.GetFields()
	typ := f["type"].GetStringValue()
	if typ == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", ErrMalformedEnvelope)
	}
	return Envelope{
		GameID:     f["game_id"].GetStringValue(),
		ServerSeq:  uint64(f["server_seq"].GetNumberValue()),
		ServerTsMs: int64(f["server_ts_ms"].GetNumberValue()),
		Type:       typ,
		Payload:    f["payload"].GetStructValue(),
	}, nil
}

// SnapshotToStruct converts a game snapshot to its wire payload.
func SnapshotToStruct(s yatzy.Snapshot) *structpb.Struct {
	history := make([]*structpb.Value, 0, len(s.History))
	for _, h := range s.History {
		history = append(history, structpb.NewStructValue(turnToStruct(h)))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"round":          intValue(s.Round),
		"rounds":         intValue(s.Rounds),
		"rolls_used":     intValue(s.RollsUsed),
		"rolls_left":     intValue(s.RollsLeft),
		"rolls_per_turn": intValue(s.RollsPerTurn),
		"ended":          structpb.NewBoolValue(s.Ended),
		"rolled":         structpb.NewBoolValue(s.Rolled),
		"dice":           rollValue(s.Dice),
		"held":           heldValue(s.Held),
		"table":          structpb.NewListValue(tableList(s.Table)),
		"upper_subtotal": intValue(s.Table.UpperSubtotal()),
		"total":          intValue(s.Total),
		"history":        structpb.NewListValue(&structpb.ListValue{Values: history}),
	}}
}

func RollToStruct(round, rollsUsed, rollsLeft int, r dice.Roll, held [dice.NumDice]bool) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"round":      intValue(round),
		"rolls_used": intValue(rollsUsed),
		"rolls_left": intValue(rollsLeft),
		"dice":       rollValue(r),
		"held":       heldValue(held),
	}}
}

func HoldToStruct(die int, held [dice.NumDice]bool) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"die":  intValue(die),
		"held": heldValue(held),
	}}
}

func ScoreToStruct(turn yatzy.TurnResult, total int) *structpb.Struct {
	s := turnToStruct(turn)
	s.Fields["total"] = intValue(total)
	return s
}

func PreviewToStruct(potentials []yatzy.Potential) *structpb.Struct {
	list := make([]*structpb.Value, 0, len(potentials))
	for _, p := range potentials {
		list = append(list, structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"category": structpb.NewStringValue(p.Category.Key()),
			"name":     structpb.NewStringValue(p.Category.String()),
			"score":    intValue(p.Score),
		}}))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"potentials": structpb.NewListValue(&structpb.ListValue{Values: list}),
	}}
}

func GameEndToStruct(table yatzy.ScoreTable) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"table":          structpb.NewListValue(tableList(table)),
		"upper_subtotal": intValue(table.UpperSubtotal()),
		"total":          intValue(table.Total()),
	}}
}

func ErrorToStruct(code, message string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"code":    structpb.NewStringValue(code),
		"message": structpb.NewStringValue(message),
	}}
}

// ErrorCode maps engine errors to stable client-facing codes.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, yatzy.ErrInvalidCategory):
		return "invalid_category"
	case errors.Is(err, yatzy.ErrInvalidRoll):
		return "invalid_roll"
	case errors.Is(err, yatzy.ErrAlreadyScored):
		return "already_scored"
	case errors.Is(err, yatzy.ErrZeroScore):
		return "zero_score"
	case errors.Is(err, yatzy.ErrNotRolled):
		return "not_rolled"
	case errors.Is(err, yatzy.ErrNoRollsLeft):
		return "no_rolls_left"
	case errors.Is(err, yatzy.ErrGameEnded):
		return "game_ended"
	case errors.Is(err, dice.ErrDieIndex):
		return "invalid_die"
	case errors.Is(err, ErrUnknownCommand), errors.Is(err, ErrMalformedCommand):
		return "bad_request"
	default:
		return "internal"
	}
}

func turnToStruct(h yatzy.TurnResult) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"round":    intValue(h.Round),
		"category": structpb.NewStringValue(h.Category.Key()),
		"name":     structpb.NewStringValue(h.Category.String()),
		"dice":     rollValue(h.Roll),
		"score":    intValue(h.Score),
	}}
}

// tableList encodes all 13 entries; unscored entries carry a null score.
func tableList(t yatzy.ScoreTable) *structpb.ListValue {
	entries := t.Entries()
	list := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(entries))}
	for _, e := range entries {
		score := structpb.NewNullValue()
		if e.Scored {
			score = intValue(e.Score)
		}
		list.Values = append(list.Values, structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"category": structpb.NewStringValue(e.Category.Key()),
			"name":     structpb.NewStringValue(e.Category.String()),
			"scored":   structpb.NewBoolValue(e.Scored),
			"score":    score,
		}}))
	}
	return list
}

func rollValue(r dice.Roll) *structpb.Value {
	list := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(r))}
	for _, d := range r {
		list.Values = append(list.Values, intValue(d.Int()))
	}
	return structpb.NewListValue(list)
}

func heldValue(held [dice.NumDice]bool) *structpb.Value {
	list := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(held))}
	for _, h := range held {
		list.Values = append(list.Values, structpb.NewBoolValue(h))
	}
	return structpb.NewListValue(list)
}

func intValue(v int) *structpb.Value {
	return structpb.NewNumberValue(float64(v))
}

// IntsFromList reads a numeric list field, as written for dice.
func IntsFromList(v *structpb.Value) []int {
	values := v.GetListValue().GetValues()
	out := make([]int, 0, len(values))
	for _, x := range values {
		out = append(out, int(x.GetNumberValue()))
	}
	return out
}
