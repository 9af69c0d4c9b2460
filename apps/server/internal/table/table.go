package table

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"google.golang.org/protobuf/types/known/structpb"

	"yatzy-lite/apps/server/internal/ledger"
	"yatzy-lite/codec"
	"yatzy-lite/yatzy"
	"yatzy-lite/yatzy/bot"
)

// Table is one user's game session. All state changes run on the actor
// goroutine; public methods only submit events or read under the lock.
type Table struct {
	ID       string
	UserID   uint64
	Username string
	Config   Config

	mu       sync.RWMutex
	game     *yatzy.Game
	gameID   string
	seed     int64
	games    int64 // games started in this session
	closed   bool
	stopOnce sync.Once

	events chan Event
	done   chan struct{}

	serverSeq uint64

	online     bool
	lastActive time.Time
	startedAt  time.Time

	broadcast func(userID uint64, data []byte)
	tape      []ledger.EventItem

	brain     bot.Brain
	botUsed   string // last brain that moved in the current game
	nextBotAt time.Time

	gameEndHooks []GameEndHook

	log *log.Entry
}

type Config struct {
	Rounds          int
	RollsPerTurn    int
	BlockZeroScores bool
	// Seed of the first game; later games use Seed+n. Zero picks a time seed.
	Seed     int64
	BotDelay time.Duration
}

func DefaultConfig() Config {
	return Config{
		Rounds:       yatzy.DefaultRounds,
		RollsPerTurn: yatzy.DefaultRollsPerTurn,
		BotDelay:     300 * time.Millisecond,
	}
}

type EventType int

const (
	EventJoin EventType = iota
	EventRoll
	EventHold
	EventScore
	EventPreview
	EventRestart
	EventBot
	EventConnLost
	EventClose
)

// Event is a message to the table actor.
type Event struct {
	Type      EventType
	Die       int
	Category  yatzy.Category
	Bot       string
	Timestamp time.Time
	Response  chan error
}

// GameEndInfo is emitted once per finished game.
type GameEndInfo struct {
	GameID    string
	UserID    uint64
	Username  string
	Bot       string // empty for games played by the user
	Seed      int64
	Rounds    int
	Table     yatzy.ScoreTable
	StartedAt time.Time
	EndedAt   time.Time
	Events    []ledger.EventItem
}

type GameEndHook func(info GameEndInfo)

var (
	ErrTableClosed = errors.New("table closed")
	ErrBotActive   = errors.New("bot is playing")
)

const (
	heartbeat  = 500 * time.Millisecond
	minBotTick = 10 * time.Millisecond
)

func New(userID uint64, username string, cfg Config, broadcastFn func(userID uint64, data []byte)) (*Table, error) {
	if cfg.BotDelay <= 0 {
		cfg.BotDelay = DefaultConfig().BotDelay
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if broadcastFn == nil {
		broadcastFn = func(uint64, []byte) {}
	}
	t := &Table{
		ID:         uuid.NewString(),
		UserID:     userID,
		Username:   normalizeUsername(username, userID),
		Config:     cfg,
		events:     make(chan Event, 64),
		done:       make(chan struct{}),
		broadcast:  broadcastFn,
		lastActive: time.Now(),
	}
	t.log = log.WithFields(log.Fields{"component": "table", "user_id": userID, "table_id": t.ID})
	if err := t.newGameLocked(); err != nil {
		return nil, err
	}

	go t.run()

	t.log.WithFields(log.Fields{"rounds": cfg.Rounds, "rolls_per_turn": cfg.RollsPerTurn}).Info("session created")
	return t, nil
}

func (t *Table) run() {
	tick := heartbeat
	if t.Config.BotDelay < tick {
		tick = max(t.Config.BotDelay, minBotTick)
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case event := <-t.events:
			err := t.handleEvent(event)
			if event.Response != nil {
				event.Response <- err
			}
		case <-ticker.C:
			t.tick()
		case <-t.done:
			t.log.Debug("actor stopped")
			return
		}
	}
}

func (t *Table) handleEvent(e Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed && e.Type != EventClose {
		return ErrTableClosed
	}
	if e.Type != EventConnLost && e.Type != EventClose {
		t.lastActive = e.Timestamp
	}

	err := t.dispatchLocked(e)
	if err != nil && e.Type != EventClose && e.Type != EventConnLost {
		t.sendErrorLocked(err)
	}
	return err
}

func (t *Table) dispatchLocked(e Event) error {
	switch e.Type {
	case EventJoin:
		t.online = true
		t.sendSnapshotLocked()
		return nil
	case EventRoll, EventHold, EventScore:
		if t.brain != nil {
			return ErrBotActive
		}
		return t.handlePlayLocked(e)
	case EventPreview:
		return t.handlePreviewLocked()
	case EventRestart:
		return t.handleRestartLocked()
	case EventBot:
		return t.handleBotLocked(e.Bot, e.Timestamp)
	case EventConnLost:
		t.online = false
		t.lastActive = e.Timestamp
		return nil
	case EventClose:
		t.stopLocked()
		return nil
	default:
		return fmt.Errorf("unknown event type: %d", e.Type)
	}
}

func (t *Table) handlePlayLocked(e Event) error {
	before := t.game.Snapshot()
	switch e.Type {
	case EventRoll:
		if _, err := t.game.Roll(); err != nil {
			return err
		}
	case EventHold:
		if _, err := t.game.ToggleHold(e.Die); err != nil {
			return err
		}
		after := t.game.Snapshot()
		t.emitLocked(codec.TypeHold, codec.HoldToStruct(e.Die, after.Held))
		return nil
	case EventScore:
		if _, err := t.game.Commit(e.Category); err != nil {
			return err
		}
	}
	t.emitTransitionLocked(before, t.game.Snapshot())
	return nil
}

func (t *Table) handlePreviewLocked() error {
	potentials, err := t.game.Preview()
	if err != nil {
		return err
	}
	// Previews are advisory and stay out of the game tape.
	t.sendLocked(codec.TypePreview, codec.PreviewToStruct(potentials), false)
	return nil
}

func (t *Table) handleRestartLocked() error {
	t.brain = nil
	t.nextBotAt = time.Time{}
	if err := t.newGameLocked(); err != nil {
		return err
	}
	t.sendSnapshotLocked()
	return nil
}

func (t *Table) handleBotLocked(kind string, now time.Time) error {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "off", "none", "stop":
		t.brain = nil
		t.nextBotAt = time.Time{}
		return nil
	}
	if t.game.Ended() {
		return yatzy.ErrGameEnded
	}
	brain, err := bot.New(kind, t.seed)
	if err != nil {
		return err
	}
	t.brain = brain
	t.nextBotAt = now.Add(t.Config.BotDelay)
	t.log.WithFields(log.Fields{"game_id": t.gameID, "bot": brain.Name()}).Info("bot takes over")
	return nil
}

func (t *Table) tick() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed || t.brain == nil {
		return
	}
	now := time.Now()
	if now.Before(t.nextBotAt) {
		return
	}
	if err := t.stepBotLocked(); err != nil {
		t.log.WithField("game_id", t.gameID).WithError(err).Warn("bot step failed, stopping bot")
		t.sendErrorLocked(err)
		t.brain = nil
		return
	}
	t.nextBotAt = now.Add(t.Config.BotDelay)
}

func (t *Table) stepBotLocked() error {
	before := t.game.Snapshot()
	if before.Ended {
		t.brain = nil
		return nil
	}
	if err := bot.Step(t.game, t.brain, before); err != nil {
		return err
	}
	t.botUsed = t.brain.Name()
	after := t.game.Snapshot()
	t.emitTransitionLocked(before, after)
	if after.Ended {
		t.brain = nil
	}
	return nil
}

// emitTransitionLocked broadcasts what changed between two snapshots: a
// commit (score, maybe gameEnd) or a roll.
func (t *Table) emitTransitionLocked(before, after yatzy.Snapshot) {
	if len(after.History) > len(before.History) {
		turn := after.History[len(after.History)-1]
		t.emitLocked(codec.TypeScore, codec.ScoreToStruct(turn, after.Total))
		if after.Ended {
			t.emitLocked(codec.TypeGameEnd, codec.GameEndToStruct(after.Table))
			t.handleGameEndLocked(after)
		}
		return
	}
	if after.RollsUsed != before.RollsUsed {
		t.emitLocked(codec.TypeRoll, codec.RollToStruct(after.Round, after.RollsUsed, after.RollsLeft, after.Dice, after.Held))
	}
}

func (t *Table) handleGameEndLocked(final yatzy.Snapshot) {
	endedAt := time.Now().UTC()
	t.log.WithFields(log.Fields{
		"game_id": t.gameID,
		"total":   final.Total,
		"bot":     t.botUsed,
	}).Info("game ended")

	info := GameEndInfo{
		GameID:    t.gameID,
		UserID:    t.UserID,
		Username:  t.Username,
		Bot:       t.botUsed,
		Seed:      t.seed,
		Rounds:    final.Rounds,
		Table:     final.Table,
		StartedAt: t.startedAt,
		EndedAt:   endedAt,
		Events:    append([]ledger.EventItem(nil), t.tape...),
	}
	hooks := append([]GameEndHook(nil), t.gameEndHooks...)
	for _, hook := range hooks {
		go func(cb GameEndHook) {
			defer func() {
				if r := recover(); r != nil {
					t.log.WithField("game_id", info.GameID).Errorf("game end hook panic: %v", r)
				}
			}()
			cb(info)
		}(hook)
	}
}

// newGameLocked starts a fresh engine with its own id and seed and opens its
// tape with a snapshot.
func (t *Table) newGameLocked() error {
	seed := t.Config.Seed + t.games
	game, err := yatzy.NewGame(yatzy.Config{
		Rounds:          t.Config.Rounds,
		RollsPerTurn:    t.Config.RollsPerTurn,
		BlockZeroScores: t.Config.BlockZeroScores,
		Seed:            seed,
	})
	if err != nil {
		return err
	}
	t.games++
	t.game = game
	t.seed = seed
	t.gameID = uuid.NewString()
	t.botUsed = ""
	t.startedAt = time.Now().UTC()
	t.tape = nil
	t.serverSeq = 0
	t.appendTapeLocked(codec.TypeSnapshot, codec.SnapshotToStruct(game.Snapshot()))
	return nil
}

// emitLocked records payload on the game tape and sends it to the owner.
func (t *Table) emitLocked(typ string, payload *structpb.Struct) {
	t.sendLocked(typ, payload, true)
}

func (t *Table) sendLocked(typ string, payload *structpb.Struct, record bool) {
	if data, ok := t.wrapLocked(typ, payload, record); ok {
		t.broadcast(t.UserID, data)
	}
}

// appendTapeLocked records payload without sending it.
func (t *Table) appendTapeLocked(typ string, payload *structpb.Struct) {
	t.wrapLocked(typ, payload, true)
}

func (t *Table) wrapLocked(typ string, payload *structpb.Struct, record bool) ([]byte, bool) {
	t.serverSeq++
	tsMs := time.Now().UnixMilli()
	data, err := codec.Marshal(codec.WrapServerEnvelopeAt(t.gameID, t.serverSeq, tsMs, typ, payload))
	if err != nil {
		t.log.WithError(err).Errorf("marshal %s envelope", typ)
		return nil, false
	}
	if record {
		t.tape = append(t.tape, ledger.EventItem{
			Seq:         t.serverSeq,
			EventType:   typ,
			EnvelopeB64: base64.StdEncoding.EncodeToString(data),
			ServerTsMs:  tsMs,
		})
	}
	return data, true
}

func (t *Table) sendSnapshotLocked() {
	t.sendLocked(codec.TypeSnapshot, codec.SnapshotToStruct(t.game.Snapshot()), false)
}

func (t *Table) sendErrorLocked(err error) {
	t.sendLocked(codec.TypeError, codec.ErrorToStruct(ErrorCode(err), err.Error()), false)
}

// ErrorCode extends codec.ErrorCode with session-level failures.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrBotActive):
		return "bot_active"
	case errors.Is(err, ErrTableClosed):
		return "closed"
	case errors.Is(err, bot.ErrUnknownKind):
		return "bad_request"
	default:
		return codec.ErrorCode(err)
	}
}

// SubmitEvent sends an event to the actor and waits for its result.
func (t *Table) SubmitEvent(e Event) error {
	e.Timestamp = time.Now()
	if e.Response == nil {
		e.Response = make(chan error, 1)
	}

	t.mu.RLock()
	closed := t.closed
	t.mu.RUnlock()
	if closed {
		return ErrTableClosed
	}

	select {
	case t.events <- e:
	case <-t.done:
		return ErrTableClosed
	}

	select {
	case err := <-e.Response:
		return err
	case <-t.done:
		return ErrTableClosed
	}
}

// SubmitCommand translates a decoded client command into an event.
func (t *Table) SubmitCommand(cmd codec.Command) error {
	switch cmd.Type {
	case codec.CmdJoin:
		return t.SubmitEvent(Event{Type: EventJoin})
	case codec.CmdRoll:
		return t.SubmitEvent(Event{Type: EventRoll})
	case codec.CmdHold:
		return t.SubmitEvent(Event{Type: EventHold, Die: cmd.Die})
	case codec.CmdScore:
		return t.SubmitEvent(Event{Type: EventScore, Category: cmd.Category})
	case codec.CmdPreview:
		return t.SubmitEvent(Event{Type: EventPreview})
	case codec.CmdRestart:
		return t.SubmitEvent(Event{Type: EventRestart})
	case codec.CmdBot:
		return t.SubmitEvent(Event{Type: EventBot, Bot: cmd.Bot})
	default:
		return fmt.Errorf("%w: %q", codec.ErrUnknownCommand, cmd.Type)
	}
}

func (t *Table) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *Table) stopLocked() {
	t.closed = true
	t.brain = nil
	t.stopOnce.Do(func() {
		close(t.done)
	})
}

func normalizeUsername(raw string, userID uint64) string {
	name := strings.TrimSpace(raw)
	if name == "" {
		return fmt.Sprintf("user_%d", userID)
	}
	return name
}

// IsIdleFor reports whether the owner has been offline for at least ttl.
// A running bot keeps the session alive.
func (t *Table) IsIdleFor(ttl time.Duration) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return true
	}
	if t.online || t.brain != nil {
		return false
	}
	return time.Since(t.lastActive) >= ttl
}

func (t *Table) IsClosed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.closed
}

func (t *Table) GameID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.gameID
}

func (t *Table) Snapshot() yatzy.Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.game.Snapshot()
}

func (t *Table) AddGameEndHook(hook GameEndHook) {
	if hook == nil {
		return
	}
	t.mu.Lock()
	t.gameEndHooks = append(t.gameEndHooks, hook)
	t.mu.Unlock()
}
