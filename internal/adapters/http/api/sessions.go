// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/triboard/internal/adapters/repository"
	"github.com/okian/triboard/internal/domain/board"
	"github.com/okian/triboard/internal/domain/model"
	"github.com/okian/triboard/internal/domain/scoring"
)

// SessionDependencies defines the interface for session lifecycle operations.
type SessionDependencies interface {
	StartSession(ctx context.Context, sessionID, accountID string) error
	EndSession(ctx context.Context, sessionID string, c model.Counters) ([]board.Type, error)
}

// SessionsHandler handles session lifecycle requests.
type SessionsHandler struct {
	deps SessionDependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps SessionDependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

type startSessionResponse struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
}

// HandleStart handles POST /api/session/start requests.
func (h *SessionsHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	if err := h.deps.StartSession(r.Context(), req.SessionID, req.UserID); err != nil {
		if errors.Is(err, repository.ErrSessionExists) {
			writeError(w, http.StatusConflict, "already_exists", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusCreated, startSessionResponse{Status: "started", SessionID: req.SessionID})
}

type endSessionResponse struct {
	Status        string   `json:"status"`
	SessionID     string   `json:"session_id"`
	BoardsEntered []string `json:"boards_entered"`
}

// HandleEnd handles POST /api/session/end requests.
func (h *SessionsHandler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req endSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	inserted, err := h.deps.EndSession(r.Context(), req.SessionID, model.Counters{
		Score:         req.FinalScore,
		MaxStreak:     req.MaxStreak,
		TotalAnswered: req.TotalAnswered,
		TotalCorrect:  req.TotalCorrect,
	})
	if err != nil {
		switch {
		case errors.Is(err, scoring.ErrInvalidCounters):
			writeError(w, http.StatusBadRequest, "invalid_counters", err)
		case errors.Is(err, repository.ErrSessionNotFound):
			writeError(w, http.StatusNotFound, "not_found", err)
		case errors.Is(err, repository.ErrSessionFinalized):
			writeError(w, http.StatusConflict, "already_finalized", err)
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", err)
		}
		return
	}

	boards := make([]string, 0, len(inserted))
	for _, t := range inserted {
		boards = append(boards, t.String())
	}
	writeJSON(w, http.StatusOK, endSessionResponse{
		Status:        "ended",
		SessionID:     req.SessionID,
		BoardsEntered: boards,
	})
}
