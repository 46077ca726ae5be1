// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	service "github.com/okian/triboard/internal/app"
	"github.com/okian/triboard/internal/domain/model"
	"github.com/okian/triboard/internal/domain/types"
)

// QuestionDependencies defines the interface for question stat operations.
type QuestionDependencies interface {
	SubmitAnswer(ctx context.Context, ev model.StatEvent) error
	QuestionChart(ctx context.Context, questionID int64) (types.QuestionChart, error)
}

// QuestionsHandler handles answer submission and chart requests.
type QuestionsHandler struct {
	deps QuestionDependencies
}

// NewQuestionsHandler creates a new questions handler.
func NewQuestionsHandler(deps QuestionDependencies) *QuestionsHandler {
	return &QuestionsHandler{deps: deps}
}

// HandlePostAnswer handles POST /api/answers requests.
func (h *QuestionsHandler) HandlePostAnswer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	ev := model.StatEvent{
		EventID:    req.EventID,
		QuestionID: req.QuestionID,
		Selected:   req.Selected,
		Correct:    req.Correct,
	}
	if req.TS != "" {
		ev.TS, _ = time.Parse(time.RFC3339, req.TS)
	}

	if err := h.deps.SubmitAnswer(r.Context(), ev); err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateEvent):
			writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		case errors.Is(err, service.ErrBackpressure):
			writeError(w, http.StatusTooManyRequests, "backpressure", err)
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", err)
		}
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}

// HandleGetChart handles GET /api/questions/{id}/chart requests.
func (h *QuestionsHandler) HandleGetChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/questions/")
	idStr, ok := strings.CutSuffix(path, "/chart")
	if !ok || idStr == "" || strings.Contains(idStr, "/") {
		http.NotFound(w, r)
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid question id"))
		return
	}

	chart, err := h.deps.QuestionChart(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, chart)
}
