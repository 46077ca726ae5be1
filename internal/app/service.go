// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	eventqueue "github.com/okian/triboard/internal/adapters/mq/queue"
	workerpool "github.com/okian/triboard/internal/adapters/mq/worker"
	repository "github.com/okian/triboard/internal/adapters/repository"
	"github.com/okian/triboard/internal/domain/board"
	"github.com/okian/triboard/internal/domain/dedupe"
	"github.com/okian/triboard/internal/domain/identity"
	"github.com/okian/triboard/internal/domain/model"
	"github.com/okian/triboard/internal/domain/scoring"
	"github.com/okian/triboard/internal/domain/types"
	"github.com/okian/triboard/pkg/logger"
	"github.com/okian/triboard/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultBoardSize      = 10
	defaultDBPath         = "data/triboard.db"
	defaultQueueSize      = 10000
	defaultWorkerCount    = 4
	defaultDedupeSize     = 50000
	defaultStatsRetention = 7 * 24 * time.Hour

	placeholderName = "---"
)

// Service implements the API dependencies for the quiz ranking system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	resolver *identity.Resolver
	deduper  dedupe.Deduper
	queue    eventqueue.Queue
	pool     *workerpool.Pool

	// Configuration
	boardSize      int
	dbPath         string
	guestPrefix    string
	queueSize      int
	workerCount    int
	dedupeSize     int
	statsRetention time.Duration
	now            func() time.Time

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithBoardSize sets the bound every leaderboard is pruned back to.
func WithBoardSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.boardSize = n
		}
	}
}

// WithDBPath sets the SQLite database path. Use ":memory:" for an
// ephemeral store.
func WithDBPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dbPath = path
		}
	}
}

// WithStore injects an already-open store instead of opening one at
// Start. The service takes ownership and closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithGuestPrefix sets the display-name prefix for guest sessions.
func WithGuestPrefix(prefix string) Option {
	return func(s *Service) {
		if prefix != "" {
			s.guestPrefix = prefix
		}
	}
}

// WithQueueSize sets the maximum size of the stat event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithWorkerCount sets the number of stat worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithDedupeSize sets the size of the event deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithStatsRetention sets how long question stats are kept before
// CleanupStats removes them.
func WithStatsRetention(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.statsRetention = d
		}
	}
}

// WithNow overrides the service clock.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		boardSize:      defaultBoardSize,
		dbPath:         defaultDBPath,
		guestPrefix:    identity.DefaultGuestPrefix,
		queueSize:      defaultQueueSize,
		workerCount:    defaultWorkerCount,
		dedupeSize:     defaultDedupeSize,
		statsRetention: defaultStatsRetention,
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	if s.store == nil {
		store, err := repository.Open(s.dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = store
	}

	s.resolver = identity.NewResolver(s.store, identity.WithGuestPrefix(s.guestPrefix))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))

	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.store)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "ranking service started",
		logger.Int("board_size", s.boardSize),
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.queueSize),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping ranking service...")

	// Pool shutdown closes the queue and drains it before returning, so
	// recorded stat events are not lost.
	if s.pool != nil {
		_ = s.pool.Shutdown(ctx)
	}
	if s.store != nil {
		_ = s.store.Close()
	}

	s.started = false
	s.logger.Info(ctx, "ranking service stopped")
}

// StartSession records a new play session. The session id is the
// client-supplied opaque id; accountID is empty for guests.
func (s *Service) StartSession(ctx context.Context, sessionID, accountID string) error {
	if err := s.store.CreateSession(ctx, sessionID, accountID, s.now()); err != nil {
		return err
	}
	metrics.RecordSessionStarted()
	s.logger.Debug(ctx, "session started",
		logger.String("session_id", sessionID),
		logger.Bool("guest", accountID == ""),
	)
	return nil
}

// EndSession finalizes a session with its client-reported counters and
// applies the session to every board whose gate it passes. Returns the
// boards that gained a row.
//
// The counters are validated and the accuracy is re-derived server-side
// before any eligibility check. The finalize and the per-board
// insert+prune units commit or roll back together.
func (s *Service) EndSession(ctx context.Context, sessionID string, c model.Counters) ([]board.Type, error) {
	if err := scoring.Validate(c); err != nil {
		metrics.RecordFinalizeFailure("invalid_input")
		return nil, err
	}
	c = scoring.Finalize(c)

	sess, err := s.store.Session(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			metrics.RecordFinalizeFailure("not_found")
		} else {
			metrics.RecordFinalizeFailure("store")
		}
		return nil, err
	}

	username := s.resolver.Resolve(ctx, sess.AccountID, sessionID)
	endedAt := s.now()

	var candidates []model.RankEntry
	for _, t := range board.All() {
		if !board.Eligible(t, c.Stats()) {
			continue
		}
		candidates = append(candidates, model.RankEntry{
			Board:         t,
			SessionID:     sessionID,
			Username:      username,
			Score:         c.Score,
			Streak:        c.MaxStreak,
			AccuracyPct:   c.AccuracyPct,
			TotalAnswered: c.TotalAnswered,
			CreatedAt:     endedAt,
		})
	}

	inserted, pruned, err := s.store.FinalizeSession(ctx, sessionID, c, endedAt, candidates, s.boardSize)
	if err != nil {
		if errors.Is(err, repository.ErrSessionFinalized) {
			metrics.RecordFinalizeFailure("already_finalized")
		} else {
			metrics.RecordFinalizeFailure("store")
		}
		return nil, err
	}
	metrics.RecordSessionFinalized()
	s.updateBoardSizes(ctx, inserted)

	s.logger.Info(ctx, "session finalized",
		logger.String("session_id", sessionID),
		logger.String("username", username),
		logger.Int("boards_entered", len(inserted)),
		logger.Int("pruned", pruned),
	)
	return inserted, nil
}

func (s *Service) updateBoardSizes(ctx context.Context, boards []board.Type) {
	for _, t := range boards {
		n, err := s.store.CountEntries(ctx, t)
		if err != nil {
			continue
		}
		metrics.UpdateBoardSize(t.String(), n)
	}
}

// GetTop returns the current board rendered as exactly boardSize rows,
// padding the tail with placeholder rows when fewer real entries exist.
func (s *Service) GetTop(ctx context.Context, t board.Type) ([]types.Row, error) {
	entries, err := s.store.Top(ctx, t, s.boardSize)
	if err != nil {
		return nil, err
	}

	rows := make([]types.Row, 0, s.boardSize)
	for i, e := range entries {
		value := e.Value()
		if t == board.Accuracy {
			value = board.Round1(value)
		}
		rows = append(rows, types.Row{
			Rank:          i + 1,
			Username:      e.Username,
			Value:         value,
			TotalAnswered: e.TotalAnswered,
			Timestamp:     e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	for rank := len(rows) + 1; rank <= s.boardSize; rank++ {
		rows = append(rows, types.Row{
			Rank:        rank,
			Username:    placeholderName,
			Placeholder: true,
		})
	}
	return rows, nil
}

// SubmitAnswer accepts one per-question answer outcome for asynchronous
// recording. Duplicate event ids are dropped with ErrDuplicateEvent;
// a full queue rejects with ErrBackpressure and the event may be
// retried with the same id.
func (s *Service) SubmitAnswer(ctx context.Context, ev model.StatEvent) error {
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	if ev.TS.IsZero() {
		ev.TS = s.now()
	}

	if s.deduper.SeenAndRecord(ctx, ev.EventID) {
		metrics.RecordStatDuplicate()
		return fmt.Errorf("%w: %s", ErrDuplicateEvent, ev.EventID)
	}

	if !s.queue.Enqueue(ctx, ev) {
		// Allow a retry with the same id once there is room again.
		s.deduper.Unrecord(ctx, ev.EventID)
		return fmt.Errorf("%w: event %s", ErrBackpressure, ev.EventID)
	}
	return nil
}

// QuestionChart returns the aggregate answer distribution for a question.
func (s *Service) QuestionChart(ctx context.Context, questionID int64) (types.QuestionChart, error) {
	return s.store.QuestionChart(ctx, questionID)
}

// RevalidateAll re-applies the admission gate to every stored entry on
// every board and deletes the rows that no longer pass. Returns the
// number removed per board. Administrative; the write path never calls
// this.
func (s *Service) RevalidateAll(ctx context.Context) (map[string]int, error) {
	removed := make(map[string]int, len(board.All()))
	for _, t := range board.All() {
		n, err := s.store.Revalidate(ctx, t, func(e model.RankEntry) bool {
			return board.Eligible(t, board.Stats{
				Score:       e.Score,
				MaxStreak:   e.Streak,
				AccuracyPct: e.AccuracyPct,
				Answered:    e.TotalAnswered,
			})
		})
		if err != nil {
			return removed, fmt.Errorf("revalidate %s: %w", t, err)
		}
		removed[t.String()] = n
	}
	s.updateBoardSizes(ctx, board.All())
	return removed, nil
}

// ForcePruneAll prunes every board back to the configured bound and
// returns the total number of rows removed.
func (s *Service) ForcePruneAll(ctx context.Context) (int, error) {
	total := 0
	for _, t := range board.All() {
		n, err := s.store.PruneToTopN(ctx, t, s.boardSize)
		if err != nil {
			return total, fmt.Errorf("prune %s: %w", t, err)
		}
		total += n
	}
	s.updateBoardSizes(ctx, board.All())
	return total, nil
}

// CleanupStats deletes question stats older than the retention window
// and returns the count removed.
func (s *Service) CleanupStats(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.statsRetention)
	return s.store.CleanupStats(ctx, cutoff)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":    s.started,
		"boardSize":  s.boardSize,
		"workers":    s.workerCount,
		"queueSize":  s.queueSize,
		"dedupeSize": s.dedupeSize,
	}

	if !s.started {
		return stats
	}

	stats["queueLength"] = s.queue.Len(ctx)
	stats["dedupeEntries"] = s.deduper.Size()
	if n, err := s.store.SessionCount(ctx); err == nil {
		stats["sessions"] = n
	}
	boards := make(map[string]int, len(board.All()))
	for _, t := range board.All() {
		if n, err := s.store.CountEntries(ctx, t); err == nil {
			boards[t.String()] = n
		}
	}
	stats["boards"] = boards
	return stats
}
