// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/triboard/internal/domain/board"
)

// LeaderboardDependencies defines the interface for leaderboard reads.
type LeaderboardDependencies interface {
	GetTop(ctx context.Context, t board.Type) ([]Row, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps LeaderboardDependencies
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

type leaderboardResponse struct {
	Type string `json:"leaderboard_type"`
	Rows []Row  `json:"rows"`
}

// HandleGetLeaderboard handles GET /api/leaderboard/{type} requests.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/api/leaderboard/")
	if name == "" || strings.Contains(name, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing leaderboard type"))
		return
	}
	t, err := board.Parse(name)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_board", err)
		return
	}
	rows, err := h.deps.GetTop(r.Context(), t)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{Type: t.String(), Rows: rows})
}
