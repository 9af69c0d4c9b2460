package leaderboard

import (
	"encoding/json"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"
)

const defaultTop = 10

func RegisterRoutes(mux *http.ServeMux, board Board) {
	mux.HandleFunc("GET /api/leaderboard", func(w http.ResponseWriter, r *http.Request) {
		n, err := strconv.Atoi(r.URL.Query().Get("limit"))
		if err != nil || n <= 0 || n > 100 {
			n = defaultTop
		}
		entries, err := board.Top(r.Context(), n)
		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			log.WithField("component", "leaderboard").WithError(err).Error("top query failed")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "leaderboard unavailable"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"items": entries})
	})
}
