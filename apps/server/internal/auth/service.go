package auth

import (
	"context"
	"time"
)

// Service is the auth/session contract consumed by gateway and HTTP handlers.
type Service interface {
	Register(ctx context.Context, username, password string) (Session, error)
	Login(ctx context.Context, username, password string) (Session, error)
	// ResolveSession validates and refreshes a session token.
	ResolveSession(ctx context.Context, token string) (Account, bool)
	Logout(ctx context.Context, token string)
	Close() error
}

type Account struct {
	ID       uint64 `json:"user_id"`
	Username string `json:"username"`
}

// Session is an issued login.
type Session struct {
	Account
	Token     string    `json:"session_token"`
	ExpiresAt time.Time `json:"expires_at"`
}
