package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	ModeMemory   = "memory"
	ModeSQLite   = "sqlite"
	ModePostgres = "postgres"
)

const (
	defaultRecentLimit = 200
	defaultSavedLimit  = 50
	defaultListLimit   = 20
	maxListLimit       = 100
)

type Source string

const (
	SourceLive Source = "live"
	SourceBot  Source = "bot"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrSavedLimitReach = errors.New("saved game limit reached")
	ErrInvalidRecord   = errors.New("invalid game record")
)

// Service stores completed games.
type Service interface {
	RecordGame(ctx context.Context, rec GameRecord) error
	ListRecent(ctx context.Context, userID uint64, limit int) ([]GameRecord, error)
	// GetGame returns the record with its events.
	GetGame(ctx context.Context, userID uint64, gameID string) (GameRecord, error)
	TopScores(ctx context.Context, limit int) ([]GameRecord, error)
	SetSaved(ctx context.Context, userID uint64, gameID string, saved bool) error
	Close() error
}

// GameRecord is one finished game. Scores maps category keys to committed values.
type GameRecord struct {
	GameID        string         `json:"game_id"`
	UserID        uint64         `json:"user_id"`
	Username      string         `json:"username"`
	Source        Source         `json:"source"`
	Bot           string         `json:"bot,omitempty"`
	Seed          int64          `json:"seed"`
	Rounds        int            `json:"rounds"`
	Total         int            `json:"total"`
	UpperSubtotal int            `json:"upper_subtotal"`
	Scores        map[string]int `json:"scores"`
	StartedAt     time.Time      `json:"started_at"`
	EndedAt       time.Time      `json:"ended_at"`
	IsSaved       bool           `json:"is_saved"`
	Events        []EventItem    `json:"events,omitempty"`
}

type EventItem struct {
	Seq         uint64 `json:"seq"`
	EventType   string `json:"event_type"`
	EnvelopeB64 string `json:"envelope_b64"`
	ServerTsMs  int64  `json:"server_ts_ms"`
}

type Options struct {
	Mode        string
	SQLitePath  string
	PostgresDSN string
	// Unsaved games kept per user; older ones are pruned.
	RecentLimit int
	SavedLimit  int
}

func NewService(opts Options) (Service, error) {
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = defaultRecentLimit
	}
	if opts.SavedLimit <= 0 {
		opts.SavedLimit = defaultSavedLimit
	}
	logger := log.WithFields(log.Fields{"component": "ledger", "mode": opts.Mode})

	switch opts.Mode {
	case ModeMemory, "":
		return NewMemoryService(opts.RecentLimit, opts.SavedLimit), nil
	case ModeSQLite:
		s, err := NewSQLiteService(opts.SQLitePath, opts.RecentLimit, opts.SavedLimit)
		if err != nil {
			return nil, err
		}
		logger.WithField("path", opts.SQLitePath).Info("sqlite ledger ready")
		return s, nil
	case ModePostgres:
		s, err := NewPostgresService(opts.PostgresDSN, opts.RecentLimit, opts.SavedLimit)
		if err != nil {
			return nil, err
		}
		logger.Info("postgres ledger ready")
		return s, nil
	default:
		return nil, fmt.Errorf("invalid ledger mode %q (supported: %s, %s, %s)", opts.Mode, ModeMemory, ModeSQLite, ModePostgres)
	}
}

func validateRecord(rec GameRecord) error {
	if rec.GameID == "" || rec.UserID == 0 {
		return fmt.Errorf("%w: game_id and user_id are required", ErrInvalidRecord)
	}
	if rec.Source != SourceLive && rec.Source != SourceBot {
		return fmt.Errorf("%w: source %q", ErrInvalidRecord, rec.Source)
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
