package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"time"

	"yatzy-lite/apps/server/internal/sqlstore"
)

// PostgresSchema creates the ledger tables. Apply it once before starting with
// LEDGER_MODE=postgres.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS ledger_games (
    game_id TEXT PRIMARY KEY,
    user_id BIGINT NOT NULL,
    username TEXT NOT NULL DEFAULT '',
    source TEXT NOT NULL,
    bot TEXT NOT NULL DEFAULT '',
    seed BIGINT NOT NULL DEFAULT 0,
    rounds INTEGER NOT NULL,
    total INTEGER NOT NULL,
    upper_subtotal INTEGER NOT NULL,
    scores_json TEXT NOT NULL,
    started_at_ms BIGINT NOT NULL,
    ended_at_ms BIGINT NOT NULL,
    is_saved BOOLEAN NOT NULL DEFAULT FALSE,
    saved_at_ms BIGINT
);
CREATE INDEX IF NOT EXISTS idx_ledger_games_user ON ledger_games(user_id, ended_at_ms DESC);
CREATE INDEX IF NOT EXISTS idx_ledger_games_total ON ledger_games(total DESC, ended_at_ms);
CREATE TABLE IF NOT EXISTS ledger_events (
    game_id TEXT NOT NULL REFERENCES ledger_games(game_id) ON DELETE CASCADE,
    seq BIGINT NOT NULL,
    event_type TEXT NOT NULL,
    envelope_b64 TEXT NOT NULL,
    server_ts_ms BIGINT NOT NULL,
    PRIMARY KEY (game_id, seq)
);
`

var sqliteLedgerSchema = []string{
	`
CREATE TABLE IF NOT EXISTS ledger_games (
    game_id TEXT PRIMARY KEY,
    user_id INTEGER NOT NULL,
    username TEXT NOT NULL DEFAULT '',
    source TEXT NOT NULL,
    bot TEXT NOT NULL DEFAULT '',
    seed INTEGER NOT NULL DEFAULT 0,
    rounds INTEGER NOT NULL,
    total INTEGER NOT NULL,
    upper_subtotal INTEGER NOT NULL,
    scores_json TEXT NOT NULL,
    started_at_ms INTEGER NOT NULL,
    ended_at_ms INTEGER NOT NULL,
    is_saved INTEGER NOT NULL DEFAULT 0,
    saved_at_ms INTEGER
)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_games_user ON ledger_games(user_id, ended_at_ms DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_games_total ON ledger_games(total DESC, ended_at_ms)`,
	`
CREATE TABLE IF NOT EXISTS ledger_events (
    game_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    event_type TEXT NOT NULL,
    envelope_b64 TEXT NOT NULL,
    server_ts_ms INTEGER NOT NULL,
    PRIMARY KEY (game_id, seq),
    FOREIGN KEY(game_id) REFERENCES ledger_games(game_id) ON DELETE CASCADE
)`,
}

const gameColumns = `game_id, user_id, username, source, bot, seed, rounds, total, upper_subtotal,
    scores_json, started_at_ms, ended_at_ms, is_saved`

// SQLService stores game records in sqlite or postgres.
type SQLService struct {
	db          *sql.DB
	dialect     sqlstore.Dialect
	recentLimit int
	savedLimit  int
}

func NewSQLiteService(dbPath string, recentLimit, savedLimit int) (*SQLService, error) {
	db, err := sqlstore.OpenSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), sqlstore.Timeout)
	defer cancel()
	if err := sqlstore.Exec(ctx, db, sqliteLedgerSchema...); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLService{db: db, dialect: sqlstore.SQLite, recentLimit: recentLimit, savedLimit: savedLimit}, nil
}

func NewPostgresService(dsn string, recentLimit, savedLimit int) (*SQLService, error) {
	db, err := sqlstore.OpenPostgres(dsn, "ledger_games", "ledger_events")
	if err != nil {
		return nil, err
	}
	return &SQLService{db: db, dialect: sqlstore.Postgres, recentLimit: recentLimit, savedLimit: savedLimit}, nil
}

func (s *SQLService) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLService) q(query string) string { return s.dialect.Rebind(query) }

func (s *SQLService) RecordGame(ctx context.Context, rec GameRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	scoresRaw, err := json.Marshal(copyScores(rec.Scores))
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.q(`
INSERT INTO ledger_games (
    game_id, user_id, username, source, bot, seed, rounds, total, upper_subtotal,
    scores_json, started_at_ms, ended_at_ms
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (game_id) DO UPDATE
SET
    username = excluded.username,
    bot = excluded.bot,
    total = excluded.total,
    upper_subtotal = excluded.upper_subtotal,
    scores_json = excluded.scores_json,
    ended_at_ms = excluded.ended_at_ms
`), rec.GameID, rec.UserID, rec.Username, string(rec.Source), rec.Bot, rec.Seed, rec.Rounds,
		rec.Total, rec.UpperSubtotal, string(scoresRaw), rec.StartedAt.UnixMilli(), rec.EndedAt.UnixMilli())
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM ledger_events WHERE game_id = ?`), rec.GameID); err != nil {
		return err
	}
	for _, e := range rec.Events {
		if e.EventType == "" {
			e.EventType = "unknown"
		}
		if _, err := tx.ExecContext(ctx, s.q(`
INSERT INTO ledger_events (game_id, seq, event_type, envelope_b64, server_ts_ms)
VALUES (?, ?, ?, ?, ?)
`), rec.GameID, e.Seq, e.EventType, e.EnvelopeB64, e.ServerTsMs); err != nil {
			return err
		}
	}

	if s.recentLimit > 0 {
		if err := s.pruneTx(ctx, tx, rec.UserID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLService) pruneTx(ctx context.Context, tx *sql.Tx, userID uint64) error {
	_, err := tx.ExecContext(ctx, s.q(`
DELETE FROM ledger_games
WHERE game_id IN (
    SELECT game_id
    FROM ledger_games
    WHERE user_id = ?
      AND is_saved = FALSE
    ORDER BY ended_at_ms DESC, game_id DESC
    LIMIT ? OFFSET ?
)
`), userID, math.MaxInt32, s.recentLimit)
	return err
}

func (s *SQLService) ListRecent(ctx context.Context, userID uint64, limit int) ([]GameRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
SELECT `+gameColumns+`
FROM ledger_games
WHERE user_id = ?
ORDER BY ended_at_ms DESC, game_id DESC
LIMIT ?
`), userID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	return scanGames(rows)
}

func (s *SQLService) TopScores(ctx context.Context, limit int) ([]GameRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
SELECT `+gameColumns+`
FROM ledger_games
ORDER BY total DESC, ended_at_ms ASC
LIMIT ?
`), clampLimit(limit))
	if err != nil {
		return nil, err
	}
	return scanGames(rows)
}

func (s *SQLService) GetGame(ctx context.Context, userID uint64, gameID string) (GameRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
SELECT `+gameColumns+`
FROM ledger_games
WHERE game_id = ?
  AND user_id = ?
`), gameID, userID)
	if err != nil {
		return GameRecord{}, err
	}
	games, err := scanGames(rows)
	if err != nil {
		return GameRecord{}, err
	}
	if len(games) == 0 {
		return GameRecord{}, ErrNotFound
	}
	rec := games[0]

	evRows, err := s.db.QueryContext(ctx, s.q(`
SELECT seq, event_type, envelope_b64, server_ts_ms
FROM ledger_events
WHERE game_id = ?
ORDER BY seq ASC
`), gameID)
	if err != nil {
		return GameRecord{}, err
	}
	defer evRows.Close()
	rec.Events = make([]EventItem, 0, 64)
	for evRows.Next() {
		var e EventItem
		if err := evRows.Scan(&e.Seq, &e.EventType, &e.EnvelopeB64, &e.ServerTsMs); err != nil {
			return GameRecord{}, err
		}
		rec.Events = append(rec.Events, e)
	}
	return rec, evRows.Err()
}

func (s *SQLService) SetSaved(ctx context.Context, userID uint64, gameID string, saved bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current bool
	err = tx.QueryRowContext(ctx, s.q(`
SELECT is_saved FROM ledger_games WHERE game_id = ? AND user_id = ?
`), gameID, userID).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	if saved && !current && s.savedLimit > 0 {
		var count int
		if err := tx.QueryRowContext(ctx, s.q(`
SELECT COUNT(*) FROM ledger_games WHERE user_id = ? AND is_saved = TRUE
`), userID).Scan(&count); err != nil {
			return err
		}
		if count >= s.savedLimit {
			return ErrSavedLimitReach
		}
	}

	var savedAt any
	if saved {
		savedAt = time.Now().UTC().UnixMilli()
	}
	if _, err := tx.ExecContext(ctx, s.q(`
UPDATE ledger_games SET is_saved = ?, saved_at_ms = ? WHERE game_id = ? AND user_id = ?
`), saved, savedAt, gameID, userID); err != nil {
		return err
	}
	if !saved && s.recentLimit > 0 {
		if err := s.pruneTx(ctx, tx, userID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func scanGames(rows *sql.Rows) ([]GameRecord, error) {
	defer rows.Close()
	items := make([]GameRecord, 0)
	for rows.Next() {
		var (
			rec                  GameRecord
			source, scoresRaw    string
			startedAtMs, endedMs int64
		)
		if err := rows.Scan(&rec.GameID, &rec.UserID, &rec.Username, &source, &rec.Bot, &rec.Seed,
			&rec.Rounds, &rec.Total, &rec.UpperSubtotal, &scoresRaw, &startedAtMs, &endedMs, &rec.IsSaved); err != nil {
			return nil, err
		}
		rec.Source = Source(source)
		rec.StartedAt = time.UnixMilli(startedAtMs).UTC()
		rec.EndedAt = time.UnixMilli(endedMs).UTC()
		if err := json.Unmarshal([]byte(scoresRaw), &rec.Scores); err != nil || rec.Scores == nil {
			rec.Scores = map[string]int{}
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}
