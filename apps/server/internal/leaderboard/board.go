package leaderboard

import (
	"context"
	"sort"
	"sync"
)

// Entry is a user's best total.
type Entry struct {
	Rank     int    `json:"rank"` // 1-based
	UserID   uint64 `json:"user_id"`
	Username string `json:"username"`
	Best     int    `json:"best"`
}

// Board ranks users by their best completed game.
type Board interface {
	// Submit records total and reports whether it beat the user's previous best.
	Submit(ctx context.Context, userID uint64, username string, total int) (bool, error)
	Top(ctx context.Context, n int) ([]Entry, error)
	Rank(ctx context.Context, userID uint64) (Entry, bool, error)
	Close() error
}

type MemoryBoard struct {
	mu      sync.Mutex
	entries map[uint64]Entry
}

func NewMemoryBoard() *MemoryBoard {
	return &MemoryBoard{entries: make(map[uint64]Entry)}
}

func (b *MemoryBoard) Close() error { return nil }

func (b *MemoryBoard) Submit(_ context.Context, userID uint64, username string, total int) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	prev, ok := b.entries[userID]
	if ok && prev.Best >= total {
		prev.Username = username
		b.entries[userID] = prev
		return false, nil
	}
	b.entries[userID] = Entry{UserID: userID, Username: username, Best: total}
	return true, nil
}

func (b *MemoryBoard) Top(_ context.Context, n int) ([]Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ranked := b.rankedLocked()
	if n > 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked, nil
}

func (b *MemoryBoard) Rank(_ context.Context, userID uint64) (Entry, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, e := range b.rankedLocked() {
		if e.UserID == userID {
			return e, true, nil
		}
	}
	return Entry{}, false, nil
}

func (b *MemoryBoard) rankedLocked() []Entry {
	out := make([]Entry, 0, len(b.entries))
	for _, e := range b.entries {
		out = append(out, e)
	}
	rank(out)
	return out
}

// rank orders entries by best desc, then user id asc, and numbers them.
// Both backends rank through it.
func rank(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Best != entries[j].Best {
			return entries[i].Best > entries[j].Best
		}
		return entries[i].UserID < entries[j].UserID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
}
