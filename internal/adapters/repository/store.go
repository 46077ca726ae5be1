// Package repository defines the durable session and ranking store
// interface and errors.
package repository

import (
	"context"
	"time"

	"github.com/okian/triboard/internal/domain/board"
	"github.com/okian/triboard/internal/domain/model"
	"github.com/okian/triboard/internal/domain/types"
)

// Store provides transactional access to sessions, accounts, the three
// bounded leaderboards and the question answer stats.
//
// Board invariant: a board never holds more than the configured top-N
// rows after any mutating unit completes. The insert+prune pair is the
// atomic unit; FinalizeSession runs it per qualifying board inside the
// same transaction as the counter finalization.
type Store interface {
	// CreateSession records a new session in the started state.
	// Returns ErrSessionExists when the id is already known.
	CreateSession(ctx context.Context, id, accountID string, startedAt time.Time) error

	// Session returns the session by id, or ErrSessionNotFound.
	Session(ctx context.Context, id string) (model.Session, error)

	// FinalizeSession persists the final counters and end timestamp and
	// applies the given candidate rank entries, pruning each touched
	// board back to n. The whole unit commits or rolls back together:
	// no rank entry ever exists for a session whose counters failed to
	// persist. Candidacy is re-checked against current state inside the
	// transaction. Candidates carry at most one entry per board.
	// Returns the boards that gained a row and the number
	// of rows pruned. Fails with ErrSessionNotFound or
	// ErrSessionFinalized; only one of two concurrent finalizations of
	// the same session can succeed.
	FinalizeSession(ctx context.Context, id string, c model.Counters, endedAt time.Time, candidates []model.RankEntry, n int) ([]board.Type, int, error)

	// AccountByID returns the account record, or ErrAccountNotFound.
	AccountByID(ctx context.Context, id string) (model.Account, error)

	// PutAccount inserts or updates an account record. This is a
	// collaborator seam for registration flows living outside this
	// subsystem.
	PutAccount(ctx context.Context, a model.Account) error

	// CandidateForTopN reports whether a ranking value would currently
	// place among the top n of the board: the board holds fewer than n
	// rows, or the value strictly exceeds the current minimum among
	// them. Evaluated against stored state, never a cached view.
	CandidateForTopN(ctx context.Context, t board.Type, value float64, n int) (bool, error)

	// InsertEntry appends an entry unconditionally. Callers must have
	// confirmed candidacy and must prune afterwards as one unit.
	InsertEntry(ctx context.Context, e model.RankEntry) error

	// PruneToTopN deletes every row beyond position n in board order
	// (value desc, creation time asc) and returns the count removed.
	PruneToTopN(ctx context.Context, t board.Type, n int) (int, error)

	// Top returns up to n entries in board order.
	Top(ctx context.Context, t board.Type, n int) ([]model.RankEntry, error)

	// Revalidate deletes rows failing the keep predicate and returns
	// the count removed. Administrative; not part of the write path.
	Revalidate(ctx context.Context, t board.Type, keep func(model.RankEntry) bool) (int, error)

	// CountEntries returns the number of live rows on the board.
	CountEntries(ctx context.Context, t board.Type) (int, error)

	// RecordAnswer persists one per-question answer outcome.
	RecordAnswer(ctx context.Context, ev model.StatEvent) error

	// QuestionChart aggregates the answer distribution for a question.
	QuestionChart(ctx context.Context, questionID int64) (types.QuestionChart, error)

	// CleanupStats deletes answer stats created before the cutoff and
	// returns the count removed.
	CleanupStats(ctx context.Context, olderThan time.Time) (int, error)

	// SessionCount returns the number of known sessions.
	SessionCount(ctx context.Context) (int, error)

	Close() error
}
