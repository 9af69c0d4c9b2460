package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"yatzy-lite/apps/server/internal/auth"
)

type HTTPHandler struct {
	auth   auth.Service
	ledger Service
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHTTPHandler(authService auth.Service, ledgerService Service) *HTTPHandler {
	return &HTTPHandler{
		auth:   authService,
		ledger: ledgerService,
	}
}

func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/games/recent", h.handleRecent)
	mux.HandleFunc("GET /api/games/top", h.handleTop)
	mux.HandleFunc("GET /api/games/{id}", h.handleGetGame)
	mux.HandleFunc("POST /api/games/{id}/save", h.handleSetSaved(true))
	mux.HandleFunc("DELETE /api/games/{id}/save", h.handleSetSaved(false))
}

func (h *HTTPHandler) handleRecent(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.resolveUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid session token")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	items, err := h.ledger.ListRecent(ctx, userID, parseLimit(r.URL.Query().Get("limit")))
	if err != nil {
		log.WithFields(log.Fields{"component": "ledger", "user_id": userID}).WithError(err).Error("list recent failed")
		writeError(w, http.StatusInternalServerError, "query recent games failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *HTTPHandler) handleTop(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	items, err := h.ledger.TopScores(ctx, parseLimit(r.URL.Query().Get("limit")))
	if err != nil {
		log.WithField("component", "ledger").WithError(err).Error("top scores failed")
		writeError(w, http.StatusInternalServerError, "query top scores failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *HTTPHandler) handleGetGame(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.resolveUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid session token")
		return
	}
	gameID := strings.TrimSpace(r.PathValue("id"))
	if gameID == "" {
		writeError(w, http.StatusBadRequest, "missing game id")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	rec, err := h.ledger.GetGame(ctx, userID, gameID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "query game failed")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *HTTPHandler) handleSetSaved(saved bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := h.resolveUserID(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid session token")
			return
		}
		gameID := strings.TrimSpace(r.PathValue("id"))
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := h.ledger.SetSaved(ctx, userID, gameID, saved); err != nil {
			switch {
			case errors.Is(err, ErrNotFound):
				writeError(w, http.StatusNotFound, "game not found")
			case errors.Is(err, ErrSavedLimitReach):
				writeError(w, http.StatusConflict, "saved game limit reached")
			default:
				writeError(w, http.StatusInternalServerError, "update save state failed")
			}
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"game_id":  gameID,
			"is_saved": saved,
		})
	}
}

func (h *HTTPHandler) resolveUserID(r *http.Request) (uint64, bool) {
	token := auth.BearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return 0, false
	}
	acc, ok := h.auth.ResolveSession(r.Context(), token)
	if !ok {
		return 0, false
	}
	return acc.ID, true
}

func parseLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return defaultListLimit
	}
	return clampLimit(n)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
