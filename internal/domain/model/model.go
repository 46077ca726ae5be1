// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/triboard/internal/domain/board"
)

// Counters holds a session's final aggregate counters. Once a session is
// finalized these values are immutable.
type Counters struct {
	Score         int
	MaxStreak     int
	TotalAnswered int
	TotalCorrect  int
	AccuracyPct   float64 // derived from TotalCorrect/TotalAnswered at finalize time
}

// Stats projects the counters into the shape the eligibility gate and
// ranking value selection consume.
func (c Counters) Stats() board.Stats {
	return board.Stats{
		Score:       c.Score,
		MaxStreak:   c.MaxStreak,
		AccuracyPct: c.AccuracyPct,
		Answered:    c.TotalAnswered,
	}
}

// Session is one play attempt, identified by an opaque client-supplied id.
// It progresses from started to ended exactly once.
type Session struct {
	ID        string
	AccountID string // empty for guest sessions
	StartedAt time.Time
	EndedAt   *time.Time // nil until finalized
	Counters  Counters   // zero until finalized
}

// Ended reports whether the session has been finalized.
func (s Session) Ended() bool {
	return s.EndedAt != nil
}

// Account is the collaborator-provided identity record used to resolve
// display names.
type Account struct {
	ID       string
	Username string
}

// RankEntry is one session's qualifying performance on one board. The
// display name is a point-in-time snapshot, not a live link to the
// account, and all three raw counters are carried regardless of board
// type because the display surfaces read all of them.
type RankEntry struct {
	ID            int64
	Board         board.Type
	SessionID     string
	Username      string
	Score         int
	Streak        int
	AccuracyPct   float64
	TotalAnswered int
	CreatedAt     time.Time
}

// Value returns the entry's ranking value on its own board.
func (e RankEntry) Value() float64 {
	return board.Value(e.Board, board.Stats{
		Score:       e.Score,
		MaxStreak:   e.Streak,
		AccuracyPct: e.AccuracyPct,
	})
}

// StatEvent is one per-question answer outcome submitted by clients.
// EventID exists for idempotency only.
type StatEvent struct {
	EventID    string
	QuestionID int64
	Selected   string
	Correct    bool
	TS         time.Time
}
