package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/triboard/internal/adapters/http/api"
	repository "github.com/okian/triboard/internal/adapters/repository"
	service "github.com/okian/triboard/internal/app"
	"github.com/okian/triboard/internal/domain/board"
	"github.com/okian/triboard/internal/domain/model"
	"github.com/okian/triboard/internal/domain/scoring"
	"github.com/okian/triboard/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDeps implements api.Dependencies with programmable behavior.
type mockDeps struct {
	sessions  map[string]bool // id -> ended
	submitted []model.StatEvent
	submitErr error
	rows      []types.Row
	chart     types.QuestionChart
	removed   map[string]int
	pruned    int
	cleaned   int
}

func newMockDeps() *mockDeps {
	return &mockDeps{
		sessions: make(map[string]bool),
		removed:  map[string]int{"score": 0, "streak": 0, "accuracy": 0},
	}
}

func (m *mockDeps) StartSession(ctx context.Context, sessionID, accountID string) error {
	if _, ok := m.sessions[sessionID]; ok {
		return fmt.Errorf("%w: %s", repository.ErrSessionExists, sessionID)
	}
	m.sessions[sessionID] = false
	return nil
}

func (m *mockDeps) EndSession(ctx context.Context, sessionID string, c model.Counters) ([]board.Type, error) {
	if err := scoring.Validate(c); err != nil {
		return nil, err
	}
	ended, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", repository.ErrSessionNotFound, sessionID)
	}
	if ended {
		return nil, fmt.Errorf("%w: %s", repository.ErrSessionFinalized, sessionID)
	}
	m.sessions[sessionID] = true

	c = scoring.Finalize(c)
	var inserted []board.Type
	for _, t := range board.All() {
		if board.Eligible(t, c.Stats()) {
			inserted = append(inserted, t)
		}
	}
	return inserted, nil
}

func (m *mockDeps) GetTop(ctx context.Context, t board.Type) ([]types.Row, error) {
	return m.rows, nil
}

func (m *mockDeps) SubmitAnswer(ctx context.Context, ev model.StatEvent) error {
	if m.submitErr != nil {
		return m.submitErr
	}
	m.submitted = append(m.submitted, ev)
	return nil
}

func (m *mockDeps) QuestionChart(ctx context.Context, questionID int64) (types.QuestionChart, error) {
	return m.chart, nil
}

func (m *mockDeps) RevalidateAll(ctx context.Context) (map[string]int, error) {
	return m.removed, nil
}

func (m *mockDeps) ForcePruneAll(ctx context.Context) (int, error) {
	return m.pruned, nil
}

func (m *mockDeps) CleanupStats(ctx context.Context) (int, error) {
	return m.cleaned, nil
}

func (m *mockDeps) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true}
}

func newTestMux(deps *mockDeps, opts ...api.ServerOption) *http.ServeMux {
	mux := http.NewServeMux()
	srv := api.NewServer(deps, deps, opts...)
	srv.Register(context.Background(), mux)
	return mux
}

func doJSON(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestSessionEndpoints(t *testing.T) {
	Convey("Given the API over a mock service", t, func() {
		deps := newMockDeps()
		mux := newTestMux(deps)

		Convey("POST /api/session/start creates a session", func() {
			rec := doJSON(mux, http.MethodPost, "/api/session/start", `{"session_id":"abc123"}`)
			So(rec.Code, ShouldEqual, http.StatusCreated)

			var resp map[string]any
			So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
			So(resp["status"], ShouldEqual, "started")
			So(resp["session_id"], ShouldEqual, "abc123")

			Convey("And starting it again returns 409", func() {
				rec := doJSON(mux, http.MethodPost, "/api/session/start", `{"session_id":"abc123"}`)
				So(rec.Code, ShouldEqual, http.StatusConflict)
			})
		})

		Convey("POST /api/session/start without an id returns 400", func() {
			rec := doJSON(mux, http.MethodPost, "/api/session/start", `{}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("GET /api/session/start returns 404", func() {
			rec := doJSON(mux, http.MethodGet, "/api/session/start", "")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("POST /api/session/end finalizes a started session", func() {
			doJSON(mux, http.MethodPost, "/api/session/start", `{"session_id":"abc123"}`)

			rec := doJSON(mux, http.MethodPost, "/api/session/end",
				`{"session_id":"abc123","final_score":150,"max_streak":12,"total_answered":40,"total_correct":32}`)
			So(rec.Code, ShouldEqual, http.StatusOK)

			var resp struct {
				Status        string   `json:"status"`
				BoardsEntered []string `json:"boards_entered"`
			}
			So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.Status, ShouldEqual, "ended")
			So(resp.BoardsEntered, ShouldResemble, []string{"score", "streak", "accuracy"})

			Convey("And ending it again returns 409", func() {
				rec := doJSON(mux, http.MethodPost, "/api/session/end",
					`{"session_id":"abc123","final_score":150,"max_streak":12,"total_answered":40,"total_correct":32}`)
				So(rec.Code, ShouldEqual, http.StatusConflict)
			})
		})

		Convey("POST /api/session/end for an unknown session returns 404", func() {
			rec := doJSON(mux, http.MethodPost, "/api/session/end",
				`{"session_id":"nope","final_score":1,"max_streak":0,"total_answered":1,"total_correct":1}`)
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("POST /api/session/end with impossible counters returns 400", func() {
			doJSON(mux, http.MethodPost, "/api/session/start", `{"session_id":"bad"}`)
			rec := doJSON(mux, http.MethodPost, "/api/session/end",
				`{"session_id":"bad","final_score":10,"max_streak":1,"total_answered":5,"total_correct":9}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestLeaderboardEndpoint(t *testing.T) {
	Convey("Given the API over a mock service with board rows", t, func() {
		deps := newMockDeps()
		deps.rows = []types.Row{
			{Rank: 1, Username: "alice", Value: 150, TotalAnswered: 40},
			{Rank: 2, Username: "---", Placeholder: true},
		}
		mux := newTestMux(deps)

		Convey("GET /api/leaderboard/score returns the rendered rows", func() {
			rec := doJSON(mux, http.MethodGet, "/api/leaderboard/score", "")
			So(rec.Code, ShouldEqual, http.StatusOK)

			var resp struct {
				Type string      `json:"leaderboard_type"`
				Rows []types.Row `json:"rows"`
			}
			So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.Type, ShouldEqual, "score")
			So(len(resp.Rows), ShouldEqual, 2)
			So(resp.Rows[0].Username, ShouldEqual, "alice")
			So(resp.Rows[1].Placeholder, ShouldBeTrue)
		})

		Convey("GET /api/leaderboard/ with an unknown type returns 400", func() {
			rec := doJSON(mux, http.MethodGet, "/api/leaderboard/points", "")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("POST /api/leaderboard/score returns 404", func() {
			rec := doJSON(mux, http.MethodPost, "/api/leaderboard/score", "")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestAnswerEndpoints(t *testing.T) {
	Convey("Given the API over a mock service", t, func() {
		deps := newMockDeps()
		mux := newTestMux(deps)

		Convey("POST /api/answers accepts a valid event", func() {
			rec := doJSON(mux, http.MethodPost, "/api/answers",
				`{"event_id":"ev-1","question_id":7,"selected_option":"A","is_correct":true}`)
			So(rec.Code, ShouldEqual, http.StatusAccepted)
			So(len(deps.submitted), ShouldEqual, 1)
			So(deps.submitted[0].QuestionID, ShouldEqual, 7)
		})

		Convey("POST /api/answers without a question id returns 400", func() {
			rec := doJSON(mux, http.MethodPost, "/api/answers",
				`{"event_id":"ev-1","selected_option":"A"}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("A duplicate event returns 200 with the duplicate flag", func() {
			deps.submitErr = service.ErrDuplicateEvent
			rec := doJSON(mux, http.MethodPost, "/api/answers",
				`{"event_id":"dup","question_id":1,"selected_option":"B"}`)
			So(rec.Code, ShouldEqual, http.StatusOK)

			var resp map[string]any
			So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
			So(resp["duplicate"], ShouldEqual, true)
		})

		Convey("A full queue returns 429", func() {
			deps.submitErr = service.ErrBackpressure
			rec := doJSON(mux, http.MethodPost, "/api/answers",
				`{"event_id":"bp","question_id":1,"selected_option":"B"}`)
			So(rec.Code, ShouldEqual, http.StatusTooManyRequests)
		})

		Convey("GET /api/questions/{id}/chart returns the aggregate", func() {
			deps.chart = types.QuestionChart{
				QuestionID: 7, Total: 4, CorrectPct: 75.0,
				Options: []types.OptionCount{{Option: "A", Count: 3, Percentage: 75.0}},
			}
			rec := doJSON(mux, http.MethodGet, "/api/questions/7/chart", "")
			So(rec.Code, ShouldEqual, http.StatusOK)

			var chart types.QuestionChart
			So(json.Unmarshal(rec.Body.Bytes(), &chart), ShouldBeNil)
			So(chart.Total, ShouldEqual, 4)
			So(chart.CorrectPct, ShouldEqual, 75.0)
		})

		Convey("GET /api/questions/abc/chart returns 400", func() {
			rec := doJSON(mux, http.MethodGet, "/api/questions/abc/chart", "")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestAdminEndpoints(t *testing.T) {
	Convey("Given the API with an admin token configured", t, func() {
		deps := newMockDeps()
		deps.removed = map[string]int{"score": 2, "streak": 0, "accuracy": 1}
		deps.pruned = 3
		deps.cleaned = 40
		mux := newTestMux(deps, api.WithAdminToken("secret"))

		call := func(path, token string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, path, nil)
			if token != "" {
				req.Header.Set("X-Admin-Token", token)
			}
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			return rec
		}

		Convey("Requests without the token are rejected", func() {
			So(call("/api/admin/revalidate", "").Code, ShouldEqual, http.StatusForbidden)
			So(call("/api/admin/prune", "wrong").Code, ShouldEqual, http.StatusForbidden)
		})

		Convey("Revalidate reports per-board removals", func() {
			rec := call("/api/admin/revalidate", "secret")
			So(rec.Code, ShouldEqual, http.StatusOK)

			var resp struct {
				Removed map[string]int `json:"removed"`
			}
			So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.Removed["score"], ShouldEqual, 2)
			So(resp.Removed["accuracy"], ShouldEqual, 1)
		})

		Convey("Prune reports the total removed", func() {
			rec := call("/api/admin/prune", "secret")
			So(rec.Code, ShouldEqual, http.StatusOK)

			var resp struct {
				Removed int `json:"removed"`
			}
			So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.Removed, ShouldEqual, 3)
		})

		Convey("Cleanup-stats reports the rows removed", func() {
			rec := call("/api/admin/cleanup-stats", "secret")
			So(rec.Code, ShouldEqual, http.StatusOK)

			var resp struct {
				Removed int `json:"removed"`
			}
			So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.Removed, ShouldEqual, 40)
		})
	})

	Convey("Given the API with no admin token", t, func() {
		deps := newMockDeps()
		mux := newTestMux(deps)

		Convey("The admin surface is disabled", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/admin/prune", nil)
			req.Header.Set("X-Admin-Token", "anything")
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			So(rec.Code, ShouldEqual, http.StatusForbidden)
		})
	})
}

func TestStatsEndpoint(t *testing.T) {
	Convey("Given the API over a mock service", t, func() {
		deps := newMockDeps()
		mux := newTestMux(deps)

		Convey("GET /stats returns the service statistics", func() {
			rec := doJSON(mux, http.MethodGet, "/stats", "")
			So(rec.Code, ShouldEqual, http.StatusOK)

			var stats map[string]any
			So(json.Unmarshal(rec.Body.Bytes(), &stats), ShouldBeNil)
			So(stats["started"], ShouldEqual, true)
		})
	})
}
