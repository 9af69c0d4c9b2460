package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
)

// HTTPHandler serves the account endpoints under /api/auth.
type HTTPHandler struct {
	service Service
	log     *log.Entry
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type issueFunc func(ctx context.Context, username, password string) (Session, error)

func NewHTTPHandler(service Service) *HTTPHandler {
	return &HTTPHandler{service: service, log: log.WithField("component", "auth")}
}

func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/register", h.issue("register", h.service.Register))
	mux.HandleFunc("POST /api/auth/login", h.issue("login", h.service.Login))
	mux.HandleFunc("POST /api/auth/logout", h.withAccount(func(w http.ResponseWriter, r *http.Request, token string, _ Account) {
		h.service.Logout(r.Context(), token)
		w.WriteHeader(http.StatusNoContent)
	}))
	mux.HandleFunc("GET /api/auth/me", h.withAccount(func(w http.ResponseWriter, _ *http.Request, _ string, acc Account) {
		writeJSON(w, http.StatusOK, acc)
	}))
}

// issue handles both register and login: decode credentials, call fn and
// return the new session.
func (h *HTTPHandler) issue(op string, fn issueFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		var req credentials
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		session, err := fn(r.Context(), req.Username, req.Password)
		if err != nil {
			status, msg := statusFor(err)
			if status == http.StatusInternalServerError {
				h.log.WithError(err).Errorf("%s failed", op)
				msg = op + " failed"
			}
			writeError(w, status, msg)
			return
		}
		writeJSON(w, http.StatusOK, session)
	}
}

// withAccount rejects requests without a live bearer session.
func (h *HTTPHandler) withAccount(next func(http.ResponseWriter, *http.Request, string, Account)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing session token")
			return
		}
		acc, ok := h.service.ResolveSession(r.Context(), token)
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid session token")
			return
		}
		next(w, r, token, acc)
	}
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidUsername), errors.Is(err, ErrInvalidPassword):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ErrUsernameTaken):
		return http.StatusConflict, err.Error()
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid username or password"
	default:
		return http.StatusInternalServerError, ""
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
