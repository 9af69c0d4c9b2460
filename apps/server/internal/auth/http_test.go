package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	NewHTTPHandler(NewManager(time.Hour)).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHTTPRegisterMeLogout(t *testing.T) {
	srv := newAuthServer(t)

	resp := postJSON(t, srv.URL+"/api/auth/register", `{"username":"alice_01","password":"secret12"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var session Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
	require.NotEmpty(t, session.Token)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	me, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer me.Body.Close()
	require.Equal(t, http.StatusOK, me.StatusCode)
	var acc Account
	require.NoError(t, json.NewDecoder(me.Body).Decode(&acc))
	assert.Equal(t, "alice_01", acc.Username)

	req, _ = http.NewRequest(http.MethodPost, srv.URL+"/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	out, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	out.Body.Close()
	assert.Equal(t, http.StatusNoContent, out.StatusCode)
}

func TestHTTPErrors(t *testing.T) {
	srv := newAuthServer(t)

	assert.Equal(t, http.StatusBadRequest, postJSON(t, srv.URL+"/api/auth/register", `{"username":"x","password":"secret12"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, postJSON(t, srv.URL+"/api/auth/register", `{"nick":"x"}`).StatusCode)
	assert.Equal(t, http.StatusOK, postJSON(t, srv.URL+"/api/auth/register", `{"username":"bob_01","password":"secret12"}`).StatusCode)
	assert.Equal(t, http.StatusConflict, postJSON(t, srv.URL+"/api/auth/register", `{"username":"bob_01","password":"secret12"}`).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, postJSON(t, srv.URL+"/api/auth/login", `{"username":"bob_01","password":"nope-nope"}`).StatusCode)

	resp, err := http.Get(srv.URL + "/api/auth/me")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/auth/login")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Empty(t, BearerToken("Basic abc"))
	assert.Empty(t, BearerToken(""))
}
