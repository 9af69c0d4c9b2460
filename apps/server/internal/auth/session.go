package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	defaultSessionTTL = 30 * 24 * time.Hour
	tokenBytes        = 32
)

var (
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_.-]{2,31}$`)

// Manager keeps accounts and sessions in memory for single-binary deployment.
type Manager struct {
	mu sync.Mutex

	now           func() time.Time
	nextAccountID uint64
	sessionTTL    time.Duration
	sessions      map[string]sessionRecord // token -> account
	accountsByID  map[uint64]accountRecord
	accountsByKey map[string]uint64 // normalized username -> account
}

type sessionRecord struct {
	AccountID uint64
	ExpiresAt time.Time
}

type accountRecord struct {
	AccountID     uint64
	Username      string
	PasswordHash  []byte
	LastLoginTime time.Time
}

func NewManager(sessionTTL time.Duration) *Manager {
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	return &Manager{
		now:           time.Now,
		nextAccountID: 100000, // start from a readable non-trivial range
		sessionTTL:    sessionTTL,
		sessions:      make(map[string]sessionRecord),
		accountsByID:  make(map[uint64]accountRecord),
		accountsByKey: make(map[string]uint64),
	}
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func validateUsername(username string) error {
	if !usernamePattern.MatchString(strings.TrimSpace(username)) {
		return ErrInvalidUsername
	}
	return nil
}

// bcrypt ignores bytes past 72.
func validatePassword(password string) error {
	if len(password) < 6 || len(password) > 72 {
		return ErrInvalidPassword
	}
	return nil
}

func hashPassword(username, password string) ([]byte, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

func (m *Manager) issueSessionLocked(acc accountRecord, now time.Time) Session {
	s := Session{
		Account:   Account{ID: acc.AccountID, Username: acc.Username},
		Token:     mustToken(),
		ExpiresAt: now.Add(m.sessionTTL),
	}
	m.sessions[s.Token] = sessionRecord{AccountID: acc.AccountID, ExpiresAt: s.ExpiresAt}
	return s
}

func (m *Manager) Register(_ context.Context, username, password string) (Session, error) {
	passwordHash, err := hashPassword(username, password)
	if err != nil {
		return Session{}, err
	}
	normalized := normalizeUsername(username)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.accountsByKey[normalized]; exists {
		return Session{}, ErrUsernameTaken
	}

	m.nextAccountID++
	now := m.now()
	acc := accountRecord{
		AccountID:     m.nextAccountID,
		Username:      normalized,
		PasswordHash:  passwordHash,
		LastLoginTime: now,
	}
	m.accountsByID[acc.AccountID] = acc
	m.accountsByKey[normalized] = acc.AccountID
	return m.issueSessionLocked(acc, now), nil
}

func (m *Manager) Login(_ context.Context, username, password string) (Session, error) {
	normalized := normalizeUsername(username)
	if normalized == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	accountID, exists := m.accountsByKey[normalized]
	if !exists {
		return Session{}, ErrInvalidCredentials
	}
	acc := m.accountsByID[accountID]
	if bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(password)) != nil {
		return Session{}, ErrInvalidCredentials
	}

	now := m.now()
	acc.LastLoginTime = now
	m.accountsByID[accountID] = acc
	return m.issueSessionLocked(acc, now), nil
}

func (m *Manager) ResolveSession(_ context.Context, token string) (Account, bool) {
	if token == "" {
		return Account{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, exists := m.sessions[token]
	if !exists {
		return Account{}, false
	}
	now := m.now()
	if !now.Before(rec.ExpiresAt) {
		delete(m.sessions, token)
		return Account{}, false
	}
	rec.ExpiresAt = now.Add(m.sessionTTL)
	m.sessions[token] = rec

	acc := m.accountsByID[rec.AccountID]
	return Account{ID: acc.AccountID, Username: acc.Username}, true
}

func (m *Manager) Logout(_ context.Context, token string) {
	if token == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}

func (m *Manager) Close() error { return nil }

func mustToken() string {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
