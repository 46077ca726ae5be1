// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/okian/triboard/internal/domain/board"
	"github.com/okian/triboard/internal/domain/model"
	"github.com/okian/triboard/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Session lifecycle.
	StartSession(ctx context.Context, sessionID, accountID string) error
	EndSession(ctx context.Context, sessionID string, c model.Counters) ([]board.Type, error)

	// Leaderboard reads.
	GetTop(ctx context.Context, t board.Type) ([]types.Row, error)

	// Question stats.
	SubmitAnswer(ctx context.Context, ev model.StatEvent) error
	QuestionChart(ctx context.Context, questionID int64) (types.QuestionChart, error)

	// Administrative maintenance.
	RevalidateAll(ctx context.Context) (map[string]int, error)
	ForcePruneAll(ctx context.Context) (int, error)
	CleanupStats(ctx context.Context) (int, error)
}

// Row mirrors the read shape returned by leaderboard queries.
type Row = types.Row

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	sessionsHandler    *SessionsHandler
	leaderboardHandler *LeaderboardHandler
	questionsHandler   *QuestionsHandler
	adminHandler       *AdminHandler
}

// ServerOption applies a configuration option to the Server.
type ServerOption func(*Server)

// WithAdminToken sets the token admin endpoints require. An empty token
// disables the admin surface entirely.
func WithAdminToken(token string) ServerOption {
	return func(s *Server) {
		s.adminHandler.token = token
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		sessionsHandler:    NewSessionsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps),
		questionsHandler:   NewQuestionsHandler(deps),
		adminHandler:       NewAdminHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/session/start", MetricsMiddleware(s.sessionsHandler.HandleStart, "session_start"))
	mux.HandleFunc("/api/session/end", MetricsMiddleware(s.sessionsHandler.HandleEnd, "session_end"))
	mux.HandleFunc("/api/leaderboard/", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/api/answers", MetricsMiddleware(s.questionsHandler.HandlePostAnswer, "answers"))
	mux.HandleFunc("/api/questions/", MetricsMiddleware(s.questionsHandler.HandleGetChart, "question_chart"))
	mux.HandleFunc("/api/admin/revalidate", MetricsMiddleware(s.adminHandler.HandleRevalidate, "admin_revalidate"))
	mux.HandleFunc("/api/admin/prune", MetricsMiddleware(s.adminHandler.HandlePrune, "admin_prune"))
	mux.HandleFunc("/api/admin/cleanup-stats", MetricsMiddleware(s.adminHandler.HandleCleanupStats, "admin_cleanup_stats"))
}

// startSessionRequest mirrors the wire schema for POST /api/session/start.
type startSessionRequest struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

func (r startSessionRequest) validate() error {
	if strings.TrimSpace(r.SessionID) == "" {
		return errors.New("missing session_id")
	}
	return nil
}

// endSessionRequest mirrors the wire schema for POST /api/session/end.
type endSessionRequest struct {
	SessionID     string `json:"session_id"`
	FinalScore    int    `json:"final_score"`
	MaxStreak     int    `json:"max_streak"`
	TotalAnswered int    `json:"total_answered"`
	TotalCorrect  int    `json:"total_correct"`
}

func (r endSessionRequest) validate() error {
	if strings.TrimSpace(r.SessionID) == "" {
		return errors.New("missing session_id")
	}
	return nil
}

// answerRequest mirrors the wire schema for POST /api/answers.
type answerRequest struct {
	EventID    string `json:"event_id"`
	QuestionID int64  `json:"question_id"`
	Selected   string `json:"selected_option"`
	Correct    bool   `json:"is_correct"`
	TS         string `json:"ts"`
}

func (r answerRequest) validate() error {
	switch {
	case r.QuestionID <= 0:
		return errors.New("missing question_id")
	case strings.TrimSpace(r.Selected) == "":
		return errors.New("missing selected_option")
	}
	if r.TS != "" {
		if _, err := time.Parse(time.RFC3339, r.TS); err != nil {
			return errors.New("invalid ts; must be RFC3339")
		}
	}
	return nil
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
