package codec

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/types/known/structpb"

	"yatzy-lite/yatzy"
)

func TestEnvelopeRoundTripKeepsPayload(t *testing.T) {
	g, err := yatzy.NewGame(yatzy.Config{Rounds: 2, RollsPerTurn: 3, Seed: 4})
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	rolled, err := g.Roll()
	if err != nil {
		t.Fatalf("Roll: %v", err)
	}

	env := WrapServerEnvelopeAt("g-1", 7, 1234, TypeSnapshot, SnapshotToStruct(g.Snapshot()))
	bin, err := Marshal(env)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := UnmarshalEnvelope(bin)
	if err != nil {
		t.Fatalf("UnmarshalEnvelope: %v", err)
	}
	if got.GameID != "g-1" || got.ServerSeq != 7 || got.ServerTsMs != 1234 || got.Type != TypeSnapshot {
		t.Fatalf("unexpected envelope header: %+v", got)
	}
	if diff := cmp.Diff(rolled.Ints(), IntsFromList(got.Payload.Fields["dice"])); diff != "" {
		t.Fatalf("dice mismatch (-want +got):\n%s", diff)
	}
	if n := len(got.Payload.Fields["table"].GetListValue().GetValues()); n != yatzy.NumCategories {
		t.Fatalf("table entries = %d, want %d", n, yatzy.NumCategories)
	}
}

func TestTableDistinguishesUnscoredFromZero(t *testing.T) {
	table, err := yatzy.NewScoreTable().Commit(yatzy.Yatzy, 0)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	entries := tableList(table).GetValues()
	yatzyEntry := entries[yatzy.Yatzy].GetStructValue().Fields
	if !yatzyEntry["scored"].GetBoolValue() || yatzyEntry["score"].GetNumberValue() != 0 {
		t.Fatalf("scored zero encoded wrongly: %v", yatzyEntry)
	}
	acesEntry := entries[yatzy.Aces].GetStructValue().Fields
	if acesEntry["scored"].GetBoolValue() {
		t.Fatalf("unscored entry marked scored")
	}
	if _, isNull := acesEntry["score"].GetKind().(*structpb.Value_NullValue); !isNull {
		t.Fatalf("unscored entry score should be null, got %v", acesEntry["score"])
	}
}

func TestCommandRoundTrip(t *testing.T) {
	cases := []Command{
		{Type: CmdRoll},
		{Type: CmdHold, Die: 3},
		{Type: CmdScore, Category: yatzy.FullHouse},
		{Type: CmdBot, Bot: "rule"},
		{Type: CmdRestart},
	}
	for _, want := range cases {
		bin, err := EncodeCommand(want)
		if err != nil {
			t.Fatalf("EncodeCommand(%v): %v", want, err)
		}
		got, err := DecodeCommand(bin)
		if err != nil {
			t.Fatalf("DecodeCommand(%v): %v", want, err)
		}
		if got != want {
			t.Fatalf("command = %+v, want %+v", got, want)
		}
	}
}

func TestDecodeCommandErrors(t *testing.T) {
	if _, err := DecodeCommand([]byte{0xff, 0x01}); !errors.Is(err, ErrMalformedCommand) {
		t.Fatalf("garbage: err = %v, want ErrMalformedCommand", err)
	}

	bin, _ := EncodeCommand(Command{Type: "dance"})
	if _, err := DecodeCommand(bin); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("unknown type: err = %v", err)
	}

	if _, err := CommandFromStruct(mustStruct(t, map[string]any{"type": "hold"})); !errors.Is(err, ErrMalformedCommand) {
		t.Fatalf("hold without die: err = %v", err)
	}

	_, err := CommandFromStruct(mustStruct(t, map[string]any{"type": "score", "category": "Bowling"}))
	if !errors.Is(err, yatzy.ErrInvalidCategory) {
		t.Fatalf("score Bowling: err = %v, want ErrInvalidCategory", err)
	}
	if ErrorCode(err) != "invalid_category" {
		t.Fatalf("ErrorCode = %q", ErrorCode(err))
	}
}

func TestErrorCodes(t *testing.T) {
	cases := map[error]string{
		yatzy.ErrAlreadyScored: "already_scored",
		yatzy.ErrZeroScore:     "zero_score",
		yatzy.ErrNoRollsLeft:   "no_rolls_left",
		yatzy.ErrGameEnded:     "game_ended",
		errors.New("boom"):     "internal",
	}
	for err, want := range cases {
		if got := ErrorCode(err); got != want {
			t.Fatalf("ErrorCode(%v) = %q, want %q", err, got, want)
		}
	}
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	return s
}
