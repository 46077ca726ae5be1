package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/okian/triboard/internal/domain/board"
	"github.com/okian/triboard/internal/domain/model"
	"github.com/okian/triboard/internal/domain/types"
	"github.com/okian/triboard/pkg/metrics"

	_ "modernc.org/sqlite" // SQLite driver.
)

// SQLite-backed Store implementation.
//
// Ordering within a board: ranking value DESC, then created_at ASC
// (earlier finalization wins ties), then row id ASC as a final
// deterministic tie-break.
//
// Concurrency: one mutex per board guards the insert+prune unit so two
// writers racing on the same board cannot both observe stale "room
// available" state, while writers on different boards do not block each
// other. The underlying connection is additionally capped at one open
// handle: the store is a single embedded writer by design.

const (
	defaultBusyTimeout = 5 * time.Second
	pctScale           = 100.0

	// Timestamps are stored as TEXT and ordered lexicographically
	// (boardOrder, stats cutoff), so the layout must be fixed-width.
	// RFC3339Nano trims trailing fractional zeros, which makes
	// "…00.12Z" sort before "…00.1Z".
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// SQLiteStore wraps embedded SQLite access for session and ranking data.
type SQLiteStore struct {
	db          *sql.DB
	boardMu     [3]sync.Mutex // indexed by board.Type
	now         func() time.Time
	busyTimeout time.Duration
}

// Open opens or creates the SQLite database at path and applies
// migrations. Use ":memory:" for an ephemeral store.
func Open(path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{
		now:         time.Now,
		busyTimeout: defaultBusyTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Single embedded writer; request concurrency is serialized here and
	// fanned out above the store.
	db.SetMaxOpenConns(1)

	s.db = db
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) init() error {
	stmts := []string{
		fmt.Sprintf(`PRAGMA busy_timeout = %d;`, s.busyTimeout.Milliseconds()),
		`PRAGMA journal_mode = WAL;`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS game_sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT,
			start_time TEXT NOT NULL,
			end_time TEXT,
			final_score INTEGER NOT NULL DEFAULT 0,
			max_streak INTEGER NOT NULL DEFAULT 0,
			accuracy REAL NOT NULL DEFAULT 0,
			total_answered INTEGER NOT NULL DEFAULT 0,
			total_correct INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS leaderboard (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			leaderboard_type TEXT NOT NULL,
			session_id TEXT NOT NULL,
			username TEXT NOT NULL,
			score INTEGER NOT NULL,
			streak INTEGER NOT NULL,
			accuracy REAL NOT NULL,
			total_answered INTEGER NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_leaderboard_type ON leaderboard(leaderboard_type);`,
		`CREATE TABLE IF NOT EXISTS question_stats (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			question_id INTEGER NOT NULL,
			selected_option TEXT NOT NULL,
			is_correct INTEGER NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_question_stats_question ON question_stats(question_id);`,
		`CREATE INDEX IF NOT EXISTS idx_question_stats_created ON question_stats(created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// valueColumn maps a board type to the column it ranks on.
func valueColumn(t board.Type) string {
	switch t {
	case board.Streak:
		return "streak"
	case board.Accuracy:
		return "accuracy"
	default:
		return "score"
	}
}

// boardOrder is the total order within a board.
func boardOrder(t board.Type) string {
	return valueColumn(t) + " DESC, created_at ASC, id ASC"
}

// lockBoards acquires the mutexes for the given boards in canonical
// order and returns the unlock function. Canonical order prevents
// deadlock between finalizations touching overlapping board sets.
func (s *SQLiteStore) lockBoards(boards []board.Type) func() {
	sorted := append([]board.Type(nil), boards...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for _, t := range sorted {
		s.boardMu[t].Lock()
	}
	return func() {
		for i := len(sorted) - 1; i >= 0; i-- {
			s.boardMu[sorted[i]].Unlock()
		}
	}
}

// CreateSession records a new session in the started state.
func (s *SQLiteStore) CreateSession(ctx context.Context, id, accountID string, startedAt time.Time) error {
	start := time.Now()
	defer func() { metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds())) }()

	var account any
	if accountID != "" {
		account = accountID
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO game_sessions (id, user_id, start_time) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		id, account, startedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionExists, id)
	}
	return nil
}

// Session returns the session by id.
func (s *SQLiteStore) Session(ctx context.Context, id string) (model.Session, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds())) }()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, start_time, end_time, final_score, max_streak, accuracy, total_answered, total_correct
		 FROM game_sessions WHERE id = ?`, id)

	var (
		session   model.Session
		accountID sql.NullString
		startedAt string
		endedAt   sql.NullString
	)
	err := row.Scan(&session.ID, &accountID, &startedAt, &endedAt,
		&session.Counters.Score, &session.Counters.MaxStreak, &session.Counters.AccuracyPct,
		&session.Counters.TotalAnswered, &session.Counters.TotalCorrect)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return model.Session{}, fmt.Errorf("get session: %w", err)
	}
	session.AccountID = accountID.String
	if session.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return model.Session{}, fmt.Errorf("parse start_time: %w", err)
	}
	if endedAt.Valid {
		ended, err := time.Parse(timeLayout, endedAt.String)
		if err != nil {
			return model.Session{}, fmt.Errorf("parse end_time: %w", err)
		}
		session.EndedAt = &ended
	}
	return session, nil
}

// FinalizeSession persists counters and applies candidate rank entries
// in one transaction. See Store for the contract.
func (s *SQLiteStore) FinalizeSession(ctx context.Context, id string, c model.Counters, endedAt time.Time, candidates []model.RankEntry, n int) ([]board.Type, int, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds())) }()

	if n < 1 {
		return nil, 0, ErrInvalidLimit
	}

	touched := make([]board.Type, 0, len(candidates))
	for _, e := range candidates {
		touched = append(touched, e.Board)
	}
	unlock := s.lockBoards(touched)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin finalize: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var ended sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT end_time FROM game_sessions WHERE id = ?`, id).Scan(&ended)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		} else {
			err = fmt.Errorf("finalize lookup: %w", err)
		}
		return nil, 0, err
	}
	if ended.Valid {
		err = fmt.Errorf("%w: %s", ErrSessionFinalized, id)
		return nil, 0, err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE game_sessions
		 SET end_time = ?, final_score = ?, max_streak = ?, accuracy = ?, total_answered = ?, total_correct = ?
		 WHERE id = ? AND end_time IS NULL`,
		endedAt.UTC().Format(timeLayout), c.Score, c.MaxStreak, c.AccuracyPct, c.TotalAnswered, c.TotalCorrect, id,
	)
	if err != nil {
		err = fmt.Errorf("finalize update: %w", err)
		return nil, 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		err = fmt.Errorf("finalize update: %w", err)
		return nil, 0, err
	}
	if affected == 0 {
		// Another finalization won the race between the read above and
		// this update.
		err = fmt.Errorf("%w: %s", ErrSessionFinalized, id)
		return nil, 0, err
	}

	inserted := make([]board.Type, 0, len(candidates))
	prunedBy := make([]int, 0, len(candidates))
	pruned := 0
	for _, e := range candidates {
		var ok bool
		ok, err = candidateForTopN(ctx, tx, e.Board, e.Value(), n)
		if err != nil {
			return nil, 0, err
		}
		if !ok {
			continue
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = s.now()
		}
		if err = insertEntry(ctx, tx, e); err != nil {
			return nil, 0, err
		}
		var removed int
		if removed, err = pruneToTopN(ctx, tx, e.Board, n); err != nil {
			return nil, 0, err
		}
		pruned += removed
		prunedBy = append(prunedBy, removed)
		inserted = append(inserted, e.Board)
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("commit finalize: %w", err)
		return nil, 0, err
	}
	for i, t := range inserted {
		metrics.RecordRankInsert(t.String())
		metrics.RecordPruneDeletions(t.String(), prunedBy[i])
	}
	return inserted, pruned, nil
}

// AccountByID returns the account record.
func (s *SQLiteStore) AccountByID(ctx context.Context, id string) (model.Account, error) {
	var a model.Account
	err := s.db.QueryRowContext(ctx, `SELECT id, username FROM users WHERE id = ?`, id).Scan(&a.ID, &a.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
		}
		return model.Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// PutAccount inserts or updates an account record.
func (s *SQLiteStore) PutAccount(ctx context.Context, a model.Account) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET username = excluded.username`,
		a.ID, a.Username,
	)
	if err != nil {
		return fmt.Errorf("put account: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func candidateForTopN(ctx context.Context, q execer, t board.Type, value float64, n int) (bool, error) {
	query := fmt.Sprintf(
		`SELECT COUNT(*), COALESCE(MIN(v), 0) FROM (
			SELECT %s AS v FROM leaderboard WHERE leaderboard_type = ? ORDER BY %s LIMIT ?
		)`, valueColumn(t), boardOrder(t))

	var count int
	var minValue float64
	if err := q.QueryRowContext(ctx, query, t.String(), n).Scan(&count, &minValue); err != nil {
		return false, fmt.Errorf("candidate check: %w", err)
	}
	if count < n {
		return true, nil
	}
	return value > minValue, nil
}

func insertEntry(ctx context.Context, q execer, e model.RankEntry) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO leaderboard (leaderboard_type, session_id, username, score, streak, accuracy, total_answered, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Board.String(), e.SessionID, e.Username, e.Score, e.Streak, e.AccuracyPct, e.TotalAnswered,
		e.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert rank entry: %w", err)
	}
	return nil
}

func pruneToTopN(ctx context.Context, q execer, t board.Type, n int) (int, error) {
	query := fmt.Sprintf(
		`DELETE FROM leaderboard WHERE leaderboard_type = ? AND id NOT IN (
			SELECT id FROM leaderboard WHERE leaderboard_type = ? ORDER BY %s LIMIT ?
		)`, boardOrder(t))

	res, err := q.ExecContext(ctx, query, t.String(), t.String(), n)
	if err != nil {
		return 0, fmt.Errorf("prune board: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune board: %w", err)
	}
	return int(removed), nil
}

// CandidateForTopN implements Store.CandidateForTopN against current
// stored state.
func (s *SQLiteStore) CandidateForTopN(ctx context.Context, t board.Type, value float64, n int) (bool, error) {
	if n < 1 {
		return false, ErrInvalidLimit
	}
	return candidateForTopN(ctx, s.db, t, value, n)
}

// InsertEntry implements Store.InsertEntry.
func (s *SQLiteStore) InsertEntry(ctx context.Context, e model.RankEntry) error {
	start := time.Now()
	defer func() { metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds())) }()

	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	return insertEntry(ctx, s.db, e)
}

// PruneToTopN implements Store.PruneToTopN under the board's mutex.
func (s *SQLiteStore) PruneToTopN(ctx context.Context, t board.Type, n int) (int, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds())) }()

	if n < 1 {
		return 0, ErrInvalidLimit
	}
	unlock := s.lockBoards([]board.Type{t})
	defer unlock()
	return pruneToTopN(ctx, s.db, t, n)
}

// Top returns up to n entries in board order.
func (s *SQLiteStore) Top(ctx context.Context, t board.Type, n int) ([]model.RankEntry, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds())) }()

	if n < 1 {
		return nil, ErrInvalidLimit
	}
	query := fmt.Sprintf(
		`SELECT id, session_id, username, score, streak, accuracy, total_answered, created_at
		 FROM leaderboard WHERE leaderboard_type = ? ORDER BY %s LIMIT ?`, boardOrder(t))

	rows, err := s.db.QueryContext(ctx, query, t.String(), n)
	if err != nil {
		return nil, fmt.Errorf("top query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.RankEntry
	for rows.Next() {
		e := model.RankEntry{Board: t}
		var createdAt string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Username, &e.Score, &e.Streak, &e.AccuracyPct, &e.TotalAnswered, &createdAt); err != nil {
			return nil, fmt.Errorf("top scan: %w", err)
		}
		if e.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("top rows: %w", err)
	}
	return entries, nil
}

// Revalidate deletes rows failing the keep predicate.
func (s *SQLiteStore) Revalidate(ctx context.Context, t board.Type, keep func(model.RankEntry) bool) (int, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds())) }()

	unlock := s.lockBoards([]board.Type{t})
	defer unlock()

	// The board holds at most a handful of rows, so load-then-delete is
	// simpler than pushing the predicate into SQL.
	entries, err := s.topUnlimited(ctx, t)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if keep(e) {
			continue
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM leaderboard WHERE id = ?`, e.ID); err != nil {
			return removed, fmt.Errorf("revalidate delete: %w", err)
		}
		removed++
	}
	return removed, nil
}

func (s *SQLiteStore) topUnlimited(ctx context.Context, t board.Type) ([]model.RankEntry, error) {
	query := fmt.Sprintf(
		`SELECT id, session_id, username, score, streak, accuracy, total_answered, created_at
		 FROM leaderboard WHERE leaderboard_type = ? ORDER BY %s`, boardOrder(t))

	rows, err := s.db.QueryContext(ctx, query, t.String())
	if err != nil {
		return nil, fmt.Errorf("board query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.RankEntry
	for rows.Next() {
		e := model.RankEntry{Board: t}
		var createdAt string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Username, &e.Score, &e.Streak, &e.AccuracyPct, &e.TotalAnswered, &createdAt); err != nil {
			return nil, fmt.Errorf("board scan: %w", err)
		}
		if e.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("board rows: %w", err)
	}
	return entries, nil
}

// CountEntries returns the number of live rows on the board.
func (s *SQLiteStore) CountEntries(ctx context.Context, t board.Type) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM leaderboard WHERE leaderboard_type = ?`, t.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return count, nil
}

// RecordAnswer persists one answer outcome.
func (s *SQLiteStore) RecordAnswer(ctx context.Context, ev model.StatEvent) error {
	start := time.Now()
	defer func() { metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds())) }()

	ts := ev.TS
	if ts.IsZero() {
		ts = s.now()
	}
	correct := 0
	if ev.Correct {
		correct = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO question_stats (question_id, selected_option, is_correct, created_at) VALUES (?, ?, ?, ?)`,
		ev.QuestionID, ev.Selected, correct, ts.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("record answer: %w", err)
	}
	return nil
}

// QuestionChart aggregates the answer distribution for a question.
func (s *SQLiteStore) QuestionChart(ctx context.Context, questionID int64) (types.QuestionChart, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds())) }()

	rows, err := s.db.QueryContext(ctx,
		`SELECT selected_option, COUNT(*), SUM(is_correct)
		 FROM question_stats WHERE question_id = ?
		 GROUP BY selected_option ORDER BY selected_option`, questionID)
	if err != nil {
		return types.QuestionChart{}, fmt.Errorf("chart query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	chart := types.QuestionChart{QuestionID: questionID}
	correct := 0
	for rows.Next() {
		var opt types.OptionCount
		var optCorrect int
		if err := rows.Scan(&opt.Option, &opt.Count, &optCorrect); err != nil {
			return types.QuestionChart{}, fmt.Errorf("chart scan: %w", err)
		}
		chart.Total += opt.Count
		correct += optCorrect
		chart.Options = append(chart.Options, opt)
	}
	if err := rows.Err(); err != nil {
		return types.QuestionChart{}, fmt.Errorf("chart rows: %w", err)
	}
	if chart.Total > 0 {
		for i := range chart.Options {
			chart.Options[i].Percentage = board.Round1(float64(chart.Options[i].Count) / float64(chart.Total) * pctScale)
		}
		chart.CorrectPct = board.Round1(float64(correct) / float64(chart.Total) * pctScale)
	}
	return chart, nil
}

// CleanupStats deletes answer stats created before the cutoff.
func (s *SQLiteStore) CleanupStats(ctx context.Context, olderThan time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM question_stats WHERE created_at < ?`, olderThan.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("cleanup stats: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleanup stats: %w", err)
	}
	return int(removed), nil
}

// SessionCount returns the number of known sessions.
func (s *SQLiteStore) SessionCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM game_sessions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("session count: %w", err)
	}
	return count, nil
}
