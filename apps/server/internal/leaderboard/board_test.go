package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseBoard(t *testing.T, b Board) {
	ctx := context.Background()

	improved, err := b.Submit(ctx, 1, "alice", 180)
	require.NoError(t, err)
	assert.True(t, improved)

	improved, err = b.Submit(ctx, 1, "alice", 150)
	require.NoError(t, err)
	assert.False(t, improved, "lower total keeps previous best")

	_, err = b.Submit(ctx, 2, "bob", 220)
	require.NoError(t, err)
	_, err = b.Submit(ctx, 3, "carol", 90)
	require.NoError(t, err)

	top, err := b.Top(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, Entry{Rank: 1, UserID: 2, Username: "bob", Best: 220}, top[0])
	assert.Equal(t, Entry{Rank: 2, UserID: 1, Username: "alice", Best: 180}, top[1])

	e, ok, err := b.Rank(ctx, 3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, e.Rank)

	_, ok, err = b.Rank(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)

	// Equal totals rank the lower user id first.
	_, err = b.Submit(ctx, 1, "alicia", 220)
	require.NoError(t, err)
	top, err = b.Top(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Rank: 1, UserID: 1, Username: "alicia", Best: 220}}, top)
	e, ok, err = b.Rank(ctx, 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, e.Rank)

	// A non-improving submit still refreshes the display name.
	improved, err = b.Submit(ctx, 3, "caroline", 10)
	require.NoError(t, err)
	assert.False(t, improved)
	e, ok, err = b.Rank(ctx, 3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Entry{Rank: 3, UserID: 3, Username: "caroline", Best: 90}, e)
}

func TestMemoryBoard(t *testing.T) {
	exerciseBoard(t, NewMemoryBoard())
}

// Runs against a real server when REDIS_TEST_ADDR is set.
func TestRedisBoard(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	key := fmt.Sprintf("yatzy:test:%d", time.Now().UnixNano())
	b, err := NewRedisBoard(ctx, &redis.Options{Addr: addr}, key)
	require.NoError(t, err)
	t.Cleanup(func() {
		b.rdb.Del(ctx, b.key, b.namesKey)
		_ = b.Close()
	})
	exerciseBoard(t, b)
}

func TestHTTP(t *testing.T) {
	b := NewMemoryBoard()
	_, _ = b.Submit(context.Background(), 7, "dora", 123)

	mux := http.NewServeMux()
	RegisterRoutes(mux, b)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/leaderboard?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Items []Entry `json:"items"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, "dora", body.Items[0].Username)
}
