package loadgen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/triboard/internal/domain/board"
	"github.com/okian/triboard/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete simulation.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting triboard simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("sessions", config.NumSessions),
		logger.Int("answers", config.NumAnswers),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate sessions
	sessions, err := generateSessions(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("session generation failed: %w", err)
	}

	// Step 3: Start and finalize sessions concurrently
	if err := runSessions(ctx, config, sessions, stats); err != nil {
		return fmt.Errorf("session submission failed: %w", err)
	}

	// Step 4: Submit answer events
	if err := submitAnswers(ctx, config, stats); err != nil {
		return fmt.Errorf("answer submission failed: %w", err)
	}

	// Step 5: Let the async stats pipeline drain
	logger.Get().Info(ctx, "waiting for answer events to be processed")
	time.Sleep(SettleDelay)

	// Step 6: Retrieve all boards
	boards, err := retrieveBoards(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("board retrieval failed: %w", err)
	}

	// Step 7: Verify results
	if err := verifyResults(config, sessions, boards); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 8: Spot-check a question chart
	if config.NumAnswers > 0 {
		client := newHTTPClient(config.Timeout)
		if chart, err := getChart(client, config.BaseURL, spotCheckQuestionID); err != nil {
			logger.Get().Warn(ctx, "question chart spot-check failed", logger.Error(err))
		} else {
			logger.Get().Info(ctx, "question chart spot-check",
				logger.Int64("questionID", spotCheckQuestionID),
				logger.String("chart", string(chart)))
		}
	}

	// Step 9: Save sessions to file
	if err := saveSessionsToFile(ctx, config, sessions); err != nil {
		logger.Get().Warn(ctx, "failed to save sessions to file", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "simulation completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Accept any 200 response as healthy (the endpoint serves Prometheus metrics)
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// retrieveBoards fetches the rendered rows of every board.
func retrieveBoards(ctx context.Context, config *Config, stats *Stats) (boardRows, error) {
	client := newHTTPClient(config.Timeout)

	boards := make(boardRows, len(board.All()))
	for _, t := range board.All() {
		name := t.String()
		rows, err := getBoard(client, config.BaseURL, name)
		if err != nil {
			return nil, fmt.Errorf("failed to retrieve board %q: %w", name, err)
		}
		boards[name] = rows
		stats.BoardsRetrieved++
		logger.Get().Info(ctx, "retrieved board", logger.String("board", name), logger.Int("rows", len(rows)))
	}

	return boards, nil
}

// saveSessionsToFile saves the generated sessions to a JSON file.
func saveSessionsToFile(ctx context.Context, config *Config, sessions []Session) error {
	if len(sessions) == 0 {
		return fmt.Errorf("no sessions to save")
	}

	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_sessions_" + timestamp + ".json"
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	if _, err := file.WriteString("[\n"); err != nil {
		return fmt.Errorf("failed to write opening bracket: %w", err)
	}

	for i, session := range sessions {
		jsonData, err := marshalJSON(session)
		if err != nil {
			return fmt.Errorf("failed to marshal session %d: %w", i, err)
		}

		if _, err := file.Write(jsonData); err != nil {
			return fmt.Errorf("failed to write session %d: %w", i, err)
		}

		if i < len(sessions)-1 {
			if _, err := file.WriteString(","); err != nil {
				return fmt.Errorf("failed to write comma: %w", err)
			}
		}
		_, _ = file.WriteString("\n")
	}

	if _, err := file.WriteString("]\n"); err != nil {
		return fmt.Errorf("failed to write closing bracket: %w", err)
	}

	logger.Get().Info(ctx, "sessions saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final simulation statistics.
func displayFinalStats(stats *Stats) {
	var successRate, sessionsPerSecond float64

	submitted := stats.SessionsFinalized + stats.SessionsFailed
	if submitted > 0 {
		successRate = float64(stats.SessionsFinalized) / float64(submitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		sessionsPerSecond = float64(submitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("sessionsGenerated", stats.SessionsGenerated),
		logger.Int("sessionsFinalized", stats.SessionsFinalized),
		logger.Int("sessionsFailed", stats.SessionsFailed),
		logger.Int("answersSubmitted", stats.AnswersSubmitted),
		logger.Int("answersDuplicate", stats.AnswersDuplicate),
		logger.Int("answersFailed", stats.AnswersFailed),
		logger.Int("boardsRetrieved", stats.BoardsRetrieved),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("sessionsPerSecond", sessionsPerSecond))
}
