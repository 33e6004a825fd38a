package server

import (
	"encoding/json"
	"net/http"

	"github.com/matryer/way"
	"github.com/wfunc/minesweeper/logger"
)

const URI_WS = "/ws"

func (s *GameServer) routes() {
	s.router = way.NewRouter()
	s.router.HandleFunc("GET", URI_WS, s.handleWebSocket)
	s.router.HandleFunc("GET", "/api/presets", s.handlePresets)
	s.router.HandleFunc("GET", "/api/players/:player/stats", s.handlePlayerStats)
	s.router.HandleFunc("GET", "/healthz", s.handleHealth)
}

func (s *GameServer) handlePresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"default":  s.cfg.Game.DefaultPreset,
		"max_rows": s.cfg.Game.MaxRows,
		"max_cols": s.cfg.Game.MaxCols,
		"presets":  s.cfg.Game.Presets,
	})
}

func (s *GameServer) handlePlayerStats(w http.ResponseWriter, r *http.Request) {
	player := way.Param(r.Context(), "player")
	summary, err := s.stats.GetPlayerSummary(r.Context(), player, recentGamesLimit)
	if err != nil {
		logger.Log.Errorf("Failed to load stats for %s: %v", player, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *GameServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": s.sessionManager.Count(),
		"rooms":    s.roomManager.Count(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Warnf("Failed to write response: %v", err)
	}
}
