package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yatzy-lite/apps/server/internal/auth"
)

func TestHTTPHandler(t *testing.T) {
	ctx := context.Background()
	authSvc := auth.NewManager(time.Hour)
	session, err := authSvc.Register(ctx, "alice_01", "secret12")
	require.NoError(t, err)

	store := NewMemoryService(10, 5)
	require.NoError(t, store.RecordGame(ctx, record("g1", session.ID, 201, time.Minute)))
	require.NoError(t, store.RecordGame(ctx, record("other", session.ID+1, 99, time.Minute)))

	mux := http.NewServeMux()
	NewHTTPHandler(authSvc, store).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	do := func(method, path string, authed bool) *http.Response {
		req, err := http.NewRequest(method, srv.URL+path, nil)
		require.NoError(t, err)
		if authed {
			req.Header.Set("Authorization", "Bearer "+session.Token)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	assert.Equal(t, http.StatusUnauthorized, do(http.MethodGet, "/api/games/recent", false).StatusCode)

	resp := do(http.MethodGet, "/api/games/recent", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Items []GameRecord `json:"items"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, "g1", list.Items[0].GameID)

	resp = do(http.MethodGet, "/api/games/g1", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rec GameRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rec))
	assert.Len(t, rec.Events, 2)

	assert.Equal(t, http.StatusNotFound, do(http.MethodGet, "/api/games/other", true).StatusCode)
	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/api/games/g1/save", true).StatusCode)
	assert.Equal(t, http.StatusOK, do(http.MethodDelete, "/api/games/g1/save", true).StatusCode)

	resp = do(http.MethodGet, "/api/games/top?limit=1", false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, 201, list.Items[0].Total)
}

func TestParseLimit(t *testing.T) {
	assert.Equal(t, defaultListLimit, parseLimit(""))
	assert.Equal(t, defaultListLimit, parseLimit("abc"))
	assert.Equal(t, defaultListLimit, parseLimit("-3"))
	assert.Equal(t, 7, parseLimit("7"))
	assert.Equal(t, maxListLimit, parseLimit("1000"))
}
