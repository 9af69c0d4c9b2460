package lobby

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"yatzy-lite/apps/server/internal/leaderboard"
	"yatzy-lite/apps/server/internal/ledger"
	"yatzy-lite/apps/server/internal/table"
)

const (
	persistTimeout  = 5 * time.Second
	minReapInterval = time.Second
)

// Lobby owns one game session per user.
type Lobby struct {
	mu     sync.RWMutex
	tables map[uint64]*table.Table

	cfg     table.Config
	idleTTL time.Duration
	ledger  ledger.Service
	board   leaderboard.Board
	log     *log.Entry
}

// New returns a lobby. ledgerSvc and board may be nil.
func New(cfg table.Config, idleTTL time.Duration, ledgerSvc ledger.Service, board leaderboard.Board) *Lobby {
	return &Lobby{
		tables:  make(map[uint64]*table.Table),
		cfg:     cfg,
		idleTTL: idleTTL,
		ledger:  ledgerSvc,
		board:   board,
		log:     log.WithField("component", "lobby"),
	}
}

// Session returns the user's live session, creating one when there is none.
func (l *Lobby) Session(userID uint64, username string, broadcastFn func(userID uint64, data []byte)) (*table.Table, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if t, ok := l.tables[userID]; ok && !t.IsClosed() {
		return t, nil
	}
	t, err := table.New(userID, username, l.cfg, broadcastFn)
	if err != nil {
		return nil, err
	}
	t.AddGameEndHook(l.onGameEnd)
	l.tables[userID] = t
	l.log.WithFields(log.Fields{"user_id": userID, "table_id": t.ID}).Info("session opened")
	return t, nil
}

func (l *Lobby) Get(userID uint64) *table.Table {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tables[userID]
}

func (l *Lobby) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.tables)
}

// Reap stops and forgets sessions idle for the lobby's TTL. It returns how
// many were removed.
func (l *Lobby) Reap() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for userID, t := range l.tables {
		if !t.IsIdleFor(l.idleTTL) {
			continue
		}
		t.Stop()
		delete(l.tables, userID)
		n++
	}
	if n > 0 {
		l.log.WithField("reaped", n).Info("idle sessions closed")
	}
	return n
}

// Run reaps idle sessions until ctx is done, then closes every session.
func (l *Lobby) Run(ctx context.Context) error {
	interval := max(l.idleTTL/4, minReapInterval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Reap()
		case <-ctx.Done():
			l.Close()
			return nil
		}
	}
}

func (l *Lobby) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for userID, t := range l.tables {
		t.Stop()
		delete(l.tables, userID)
	}
}

func (l *Lobby) onGameEnd(info table.GameEndInfo) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	logger := l.log.WithFields(log.Fields{"game_id": info.GameID, "user_id": info.UserID})
	if l.ledger != nil {
		if err := l.ledger.RecordGame(ctx, recordFromInfo(info)); err != nil {
			logger.WithError(err).Error("record game failed")
		}
	}
	// Bot games do not rank.
	if l.board != nil && info.Bot == "" {
		improved, err := l.board.Submit(ctx, info.UserID, info.Username, info.Table.Total())
		if err != nil {
			logger.WithError(err).Error("leaderboard submit failed")
		} else if improved {
			logger.WithField("total", info.Table.Total()).Info("new personal best")
		}
	}
}

func recordFromInfo(info table.GameEndInfo) ledger.GameRecord {
	source := ledger.SourceLive
	if info.Bot != "" {
		source = ledger.SourceBot
	}
	scores := make(map[string]int)
	for _, e := range info.Table.Entries() {
		if e.Scored {
			scores[e.Category.Key()] = e.Score
		}
	}
	return ledger.GameRecord{
		GameID:        info.GameID,
		UserID:        info.UserID,
		Username:      info.Username,
		Source:        source,
		Bot:           info.Bot,
		Seed:          info.Seed,
		Rounds:        info.Rounds,
		Total:         info.Table.Total(),
		UpperSubtotal: info.Table.UpperSubtotal(),
		Scores:        scores,
		StartedAt:     info.StartedAt,
		EndedAt:       info.EndedAt,
		Events:        info.Events,
	}
}
