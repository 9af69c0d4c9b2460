package table

import (
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yatzy-lite/codec"
	"yatzy-lite/yatzy"
)

type recorder struct {
	mu   sync.Mutex
	envs []codec.Envelope
}

func (r *recorder) send(_ uint64, data []byte) {
	env, err := codec.UnmarshalEnvelope(data)
	if err != nil {
		panic(err)
	}
	r.mu.Lock()
	r.envs = append(r.envs, env)
	r.mu.Unlock()
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.envs))
	for _, e := range r.envs {
		out = append(out, e.Type)
	}
	return out
}

func (r *recorder) last() codec.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.envs[len(r.envs)-1]
}

func newTestTable(t *testing.T, cfg Config) (*Table, *recorder) {
	t.Helper()
	rec := &recorder{}
	tbl, err := New(7, "alice", cfg, rec.send)
	require.NoError(t, err)
	t.Cleanup(tbl.Stop)
	return tbl, rec
}

func testConfig(rounds int) Config {
	return Config{Rounds: rounds, RollsPerTurn: 3, Seed: 42, BotDelay: time.Hour}
}

func TestJoinSendsSnapshot(t *testing.T) {
	tbl, rec := newTestTable(t, testConfig(yatzy.DefaultRounds))

	require.NoError(t, tbl.SubmitEvent(Event{Type: EventJoin}))
	assert.Equal(t, []string{codec.TypeSnapshot}, rec.types())
	assert.Equal(t, tbl.GameID(), rec.last().GameID)
}

func TestPlayerTurnBroadcastsRollHoldScore(t *testing.T) {
	tbl, rec := newTestTable(t, testConfig(yatzy.DefaultRounds))

	require.NoError(t, tbl.SubmitCommand(codec.Command{Type: codec.CmdRoll}))
	require.NoError(t, tbl.SubmitCommand(codec.Command{Type: codec.CmdHold, Die: 0}))
	require.NoError(t, tbl.SubmitCommand(codec.Command{Type: codec.CmdPreview}))
	require.NoError(t, tbl.SubmitCommand(codec.Command{Type: codec.CmdScore, Category: yatzy.Chance}))

	assert.Equal(t, []string{codec.TypeRoll, codec.TypeHold, codec.TypePreview, codec.TypeScore}, rec.types())

	snap := tbl.Snapshot()
	assert.Equal(t, 2, snap.Round)
	assert.True(t, snap.Table.IsScored(yatzy.Chance))

	var seqs []uint64
	for _, e := range rec.envs {
		seqs = append(seqs, e.ServerSeq)
	}
	assert.IsIncreasing(t, seqs)
}

func TestEngineErrorsReachClient(t *testing.T) {
	tbl, rec := newTestTable(t, testConfig(yatzy.DefaultRounds))

	err := tbl.SubmitCommand(codec.Command{Type: codec.CmdScore, Category: yatzy.Aces})
	require.ErrorIs(t, err, yatzy.ErrNotRolled)

	env := rec.last()
	assert.Equal(t, codec.TypeError, env.Type)
	assert.Equal(t, "not_rolled", env.Payload.GetFields()["code"].GetStringValue())
}

func TestHumanMovesRejectedWhileBotPlays(t *testing.T) {
	tbl, _ := newTestTable(t, testConfig(yatzy.DefaultRounds))

	require.NoError(t, tbl.SubmitCommand(codec.Command{Type: codec.CmdBot, Bot: "greedy"}))
	require.ErrorIs(t, tbl.SubmitCommand(codec.Command{Type: codec.CmdRoll}), ErrBotActive)

	require.NoError(t, tbl.SubmitCommand(codec.Command{Type: codec.CmdBot, Bot: "off"}))
	require.NoError(t, tbl.SubmitCommand(codec.Command{Type: codec.CmdRoll}))

	err := tbl.SubmitCommand(codec.Command{Type: codec.CmdBot, Bot: "psychic"})
	require.Error(t, err)
	assert.Equal(t, "bad_request", ErrorCode(err))
}

func TestBotFinishesGameAndFiresHooks(t *testing.T) {
	cfg := testConfig(3)
	cfg.BotDelay = 10 * time.Millisecond
	tbl, rec := newTestTable(t, cfg)

	ended := make(chan GameEndInfo, 1)
	tbl.AddGameEndHook(func(info GameEndInfo) { ended <- info })

	require.NoError(t, tbl.SubmitCommand(codec.Command{Type: codec.CmdBot, Bot: "greedy"}))

	var info GameEndInfo
	select {
	case info = <-ended:
	case <-time.After(5 * time.Second):
		t.Fatal("game did not end")
	}

	assert.Equal(t, tbl.GameID(), info.GameID)
	assert.Equal(t, "greedy", info.Bot)
	assert.Equal(t, int64(42), info.Seed)
	assert.Equal(t, 3, info.Table.Filled())
	require.NotEmpty(t, info.Events)
	assert.Equal(t, codec.TypeSnapshot, info.Events[0].EventType)
	assert.Equal(t, codec.TypeGameEnd, info.Events[len(info.Events)-1].EventType)

	bin, err := base64.StdEncoding.DecodeString(info.Events[len(info.Events)-1].EnvelopeB64)
	require.NoError(t, err)
	env, err := codec.UnmarshalEnvelope(bin)
	require.NoError(t, err)
	assert.Equal(t, info.GameID, env.GameID)

	assert.Equal(t, codec.TypeGameEnd, rec.last().Type)
}

func TestRestartStartsNewGame(t *testing.T) {
	tbl, rec := newTestTable(t, testConfig(yatzy.DefaultRounds))
	first := tbl.GameID()

	require.NoError(t, tbl.SubmitCommand(codec.Command{Type: codec.CmdRoll}))
	require.NoError(t, tbl.SubmitCommand(codec.Command{Type: codec.CmdRestart}))

	assert.NotEqual(t, first, tbl.GameID())
	assert.Equal(t, codec.TypeSnapshot, rec.last().Type)
	assert.Equal(t, 1, tbl.Snapshot().Round)
	assert.False(t, tbl.Snapshot().Rolled)
}

func TestIdleAndClose(t *testing.T) {
	tbl, _ := newTestTable(t, testConfig(yatzy.DefaultRounds))

	require.NoError(t, tbl.SubmitEvent(Event{Type: EventJoin}))
	assert.False(t, tbl.IsIdleFor(0))

	require.NoError(t, tbl.SubmitEvent(Event{Type: EventConnLost}))
	assert.True(t, tbl.IsIdleFor(0))
	assert.False(t, tbl.IsIdleFor(time.Hour))

	tbl.Stop()
	assert.True(t, tbl.IsClosed())
	assert.ErrorIs(t, tbl.SubmitEvent(Event{Type: EventRoll}), ErrTableClosed)
}
