package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"yatzy-lite/apps/server/internal/sqlstore"
)

// PostgresSchema creates the auth tables. Apply it once before starting with
// AUTH_MODE=postgres.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS accounts (
    id BIGSERIAL PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at_ms BIGINT NOT NULL,
    last_login_at_ms BIGINT
);
CREATE TABLE IF NOT EXISTS auth_sessions (
    token TEXT PRIMARY KEY,
    account_id BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    issued_at_ms BIGINT NOT NULL,
    expires_at_ms BIGINT NOT NULL,
    revoked_at_ms BIGINT,
    last_seen_at_ms BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_auth_sessions_account ON auth_sessions(account_id, expires_at_ms DESC);
`

var sqliteAuthSchema = []string{
	`
CREATE TABLE IF NOT EXISTS accounts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at_ms INTEGER NOT NULL,
    last_login_at_ms INTEGER
)`,
	`
CREATE TABLE IF NOT EXISTS auth_sessions (
    token TEXT PRIMARY KEY,
    account_id INTEGER NOT NULL,
    issued_at_ms INTEGER NOT NULL,
    expires_at_ms INTEGER NOT NULL,
    revoked_at_ms INTEGER,
    last_seen_at_ms INTEGER NOT NULL,
    FOREIGN KEY(account_id) REFERENCES accounts(id) ON DELETE CASCADE
)`,
	`CREATE INDEX IF NOT EXISTS idx_auth_sessions_account ON auth_sessions(account_id, expires_at_ms DESC)`,
}

// SQLManager stores accounts and sessions in sqlite or postgres.
type SQLManager struct {
	db         *sql.DB
	dialect    sqlstore.Dialect
	sessionTTL time.Duration
	now        func() time.Time
	newToken   func() string
}

// NewSQLiteManager opens (and creates, if needed) a local sqlite auth store.
func NewSQLiteManager(dbPath string, sessionTTL time.Duration) (*SQLManager, error) {
	db, err := sqlstore.OpenSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), sqlstore.Timeout)
	defer cancel()
	if err := sqlstore.Exec(ctx, db, sqliteAuthSchema...); err != nil {
		_ = db.Close()
		return nil, err
	}
	return newSQLManager(db, sqlstore.SQLite, sessionTTL), nil
}

func NewPostgresManager(dsn string, sessionTTL time.Duration) (*SQLManager, error) {
	db, err := sqlstore.OpenPostgres(dsn, "accounts", "auth_sessions")
	if err != nil {
		return nil, err
	}
	return newSQLManager(db, sqlstore.Postgres, sessionTTL), nil
}

func newSQLManager(db *sql.DB, d sqlstore.Dialect, sessionTTL time.Duration) *SQLManager {
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	return &SQLManager{db: db, dialect: d, sessionTTL: sessionTTL, now: time.Now, newToken: mustToken}
}

func (m *SQLManager) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	return m.db.Close()
}

func (m *SQLManager) q(query string) string { return m.dialect.Rebind(query) }

func (m *SQLManager) Register(ctx context.Context, username, password string) (Session, error) {
	passwordHash, err := hashPassword(username, password)
	if err != nil {
		return Session{}, err
	}
	normalized := normalizeUsername(username)

	ctx, cancel := context.WithTimeout(ctx, sqlstore.Timeout)
	defer cancel()
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return Session{}, err
	}
	defer tx.Rollback()

	now := m.now().UTC()
	var accountID uint64
	err = tx.QueryRowContext(ctx, m.q(`
INSERT INTO accounts (username, password_hash, created_at_ms, last_login_at_ms)
VALUES (?, ?, ?, ?)
RETURNING id
`), normalized, string(passwordHash), now.UnixMilli(), now.UnixMilli()).Scan(&accountID)
	if err != nil {
		if m.dialect.IsUniqueViolation(err) {
			return Session{}, ErrUsernameTaken
		}
		return Session{}, err
	}

	s, err := m.issueSessionTx(ctx, tx, Account{ID: accountID, Username: normalized}, now)
	if err != nil {
		return Session{}, err
	}
	if err := tx.Commit(); err != nil {
		return Session{}, err
	}
	return s, nil
}

func (m *SQLManager) Login(ctx context.Context, username, password string) (Session, error) {
	normalized := normalizeUsername(username)
	if normalized == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}

	ctx, cancel := context.WithTimeout(ctx, sqlstore.Timeout)
	defer cancel()

	var (
		accountID    uint64
		passwordHash string
	)
	err := m.db.QueryRowContext(ctx, m.q(`
SELECT id, password_hash
FROM accounts
WHERE username = ?
`), normalized).Scan(&accountID, &passwordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)) != nil {
		return Session{}, ErrInvalidCredentials
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return Session{}, err
	}
	defer tx.Rollback()

	now := m.now().UTC()
	if _, err := tx.ExecContext(ctx, m.q(`UPDATE accounts SET last_login_at_ms = ? WHERE id = ?`), now.UnixMilli(), accountID); err != nil {
		return Session{}, err
	}
	s, err := m.issueSessionTx(ctx, tx, Account{ID: accountID, Username: normalized}, now)
	if err != nil {
		return Session{}, err
	}
	if err := tx.Commit(); err != nil {
		return Session{}, err
	}
	return s, nil
}

func (m *SQLManager) ResolveSession(ctx context.Context, token string) (Account, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Account{}, false
	}
	ctx, cancel := context.WithTimeout(ctx, sqlstore.Timeout)
	defer cancel()

	nowMs := m.now().UTC().UnixMilli()
	expiresAtMs := nowMs + m.sessionTTL.Milliseconds()

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return Account{}, false
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, m.q(`
UPDATE auth_sessions
SET last_seen_at_ms = ?,
    expires_at_ms = ?
WHERE token = ?
  AND revoked_at_ms IS NULL
  AND expires_at_ms > ?
`), nowMs, expiresAtMs, token, nowMs)
	if err != nil {
		return Account{}, false
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return Account{}, false
	}

	var acc Account
	err = tx.QueryRowContext(ctx, m.q(`
SELECT a.id, a.username
FROM auth_sessions AS s
JOIN accounts AS a ON a.id = s.account_id
WHERE s.token = ?
`), token).Scan(&acc.ID, &acc.Username)
	if err != nil {
		return Account{}, false
	}
	if err := tx.Commit(); err != nil {
		return Account{}, false
	}
	return acc, true
}

func (m *SQLManager) Logout(ctx context.Context, token string) {
	token = strings.TrimSpace(token)
	if token == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, sqlstore.Timeout)
	defer cancel()
	_, _ = m.db.ExecContext(ctx, m.q(`
UPDATE auth_sessions
SET revoked_at_ms = ?
WHERE token = ?
  AND revoked_at_ms IS NULL
`), m.now().UTC().UnixMilli(), token)
}

// issueSessionTx inserts a fresh session row. Each attempt runs under a
// savepoint: postgres aborts the whole transaction on a failed statement, so
// a token collision is rolled back to the savepoint before retrying.
func (m *SQLManager) issueSessionTx(ctx context.Context, tx *sql.Tx, acc Account, now time.Time) (Session, error) {
	expiresAt := now.Add(m.sessionTTL)
	for i := 0; i < 5; i++ {
		if _, err := tx.ExecContext(ctx, `SAVEPOINT issue_session`); err != nil {
			return Session{}, err
		}
		token := m.newToken()
		_, err := tx.ExecContext(ctx, m.q(`
INSERT INTO auth_sessions (token, account_id, issued_at_ms, expires_at_ms, last_seen_at_ms)
VALUES (?, ?, ?, ?, ?)
`), token, acc.ID, now.UnixMilli(), expiresAt.UnixMilli(), now.UnixMilli())
		if err != nil {
			if !m.dialect.IsUniqueViolation(err) {
				return Session{}, err
			}
			if _, rbErr := tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT issue_session`); rbErr != nil {
				return Session{}, rbErr
			}
			continue
		}
		if _, err := tx.ExecContext(ctx, `RELEASE SAVEPOINT issue_session`); err != nil {
			return Session{}, err
		}
		return Session{Account: acc, Token: token, ExpiresAt: expiresAt}, nil
	}
	return Session{}, fmt.Errorf("failed to generate unique session token")
}
