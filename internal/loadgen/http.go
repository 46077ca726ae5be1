package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(url string) (*http.Response, error) {
	return c.client.Get(url)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(url string, body interface{}) (*http.Response, error) {
	jsonData, err := marshalJSON(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// marshalJSON marshals a struct to JSON
func marshalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// unmarshalJSON unmarshals JSON to a struct
func unmarshalJSON(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// runSessions starts and finalizes sessions concurrently using a worker pool.
func runSessions(ctx context.Context, config *Config, sessions []Session, stats *Stats) error {
	log.Printf("submitting %d sessions with %d workers", len(sessions), config.Workers)

	client := newHTTPClient(config.Timeout)
	startURL := config.BaseURL + "/api/session/start"
	endURL := config.BaseURL + "/api/session/end"

	var (
		started   int64
		finalized int64
		failed    int64
	)

	var lastReport time.Time
	reportInterval := 1 * time.Second

	sessionChan := make(chan Session, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for session := range sessionChan {
				select {
				case <-ctx.Done():
					return
				default:
					if err := runSingleSession(client, startURL, endURL, session); err != nil {
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Printf("session %s failed: %v", session.SessionID, err)
						}
					} else {
						atomic.AddInt64(&started, 1)
						atomic.AddInt64(&finalized, 1)
					}

					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						done := atomic.LoadInt64(&finalized) + atomic.LoadInt64(&failed)
						log.Printf("sessions: %d/%d done (finalized: %d, failed: %d)",
							done, len(sessions), atomic.LoadInt64(&finalized), atomic.LoadInt64(&failed))
					}
				}
			}
		}()
	}

	go func() {
		defer close(sessionChan)
		for _, session := range sessions {
			select {
			case <-ctx.Done():
				return
			case sessionChan <- session:
			}
		}
	}()

	wg.Wait()

	stats.SessionsStarted = int(atomic.LoadInt64(&started))
	stats.SessionsFinalized = int(atomic.LoadInt64(&finalized))
	stats.SessionsFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`session submission completed:
   Finalized: %d
   Failed: %d
`, stats.SessionsFinalized, stats.SessionsFailed)

	return nil
}

// runSingleSession starts one session and immediately finalizes it.
func runSingleSession(client *HTTPClient, startURL, endURL string, session Session) error {
	resp, err := client.Post(startURL, map[string]string{
		"session_id": session.SessionID,
		"user_id":    session.UserID,
	})
	if err != nil {
		return fmt.Errorf("start request failed: %w", err)
	}
	if _, err := readResponseBody(resp); err != nil {
		return fmt.Errorf("failed to read start response: %w", err)
	}
	if resp.StatusCode != StatusCreated {
		return fmt.Errorf("start returned HTTP %d", resp.StatusCode)
	}

	resp, err = client.Post(endURL, session)
	if err != nil {
		return fmt.Errorf("end request failed: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read end response: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("end returned HTTP %d: %s", resp.StatusCode, string(body))
	}

	var end EndResponse
	if err := unmarshalJSON(body, &end); err != nil {
		return fmt.Errorf("failed to parse end response: %w", err)
	}
	if end.Status != "ended" {
		return fmt.Errorf("unexpected end status %q", end.Status)
	}
	return nil
}

// submitAnswers submits answer events concurrently to exercise the
// async stats pipeline.
func submitAnswers(ctx context.Context, config *Config, stats *Stats) error {
	if config.NumAnswers <= 0 {
		return nil
	}

	log.Printf("submitting %d answer events with %d workers", config.NumAnswers, config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/api/answers"

	var (
		submitted int64
		duplicate int64
		failed    int64
	)

	indexChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	options := []string{"A", "B", "C", "D"}

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for idx := range indexChan {
				select {
				case <-ctx.Done():
					return
				default:
					answer := map[string]interface{}{
						"event_id":        uuid.New().String(),
						"question_id":     int64(getRandomInt(1, 200)),
						"selected_option": options[getRandomInt(0, len(options))],
						"is_correct":      getRandomFloat() < 0.6,
						"ts":              time.Now().UTC().Format(time.RFC3339),
					}

					resp, err := client.Post(url, answer)
					if err != nil {
						atomic.AddInt64(&failed, 1)
						continue
					}
					body, err := readResponseBody(resp)
					if err != nil {
						atomic.AddInt64(&failed, 1)
						continue
					}

					switch resp.StatusCode {
					case StatusAccepted:
						atomic.AddInt64(&submitted, 1)
					case StatusOK:
						var ack AckResponse
						if err := unmarshalJSON(body, &ack); err == nil && ack.Duplicate {
							atomic.AddInt64(&duplicate, 1)
						} else {
							atomic.AddInt64(&submitted, 1)
						}
					default:
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Printf("answer %d rejected: HTTP %d", idx, resp.StatusCode)
						}
					}
				}
			}
		}()
	}

	go func() {
		defer close(indexChan)
		for i := 0; i < config.NumAnswers; i++ {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	wg.Wait()

	stats.AnswersSubmitted = int(atomic.LoadInt64(&submitted))
	stats.AnswersDuplicate = int(atomic.LoadInt64(&duplicate))
	stats.AnswersFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`answer submission completed:
   Accepted: %d
   Duplicate: %d
   Failed: %d
`, stats.AnswersSubmitted, stats.AnswersDuplicate, stats.AnswersFailed)

	return nil
}

// getBoard retrieves the rendered rows of one leaderboard.
func getBoard(client *HTTPClient, baseURL, boardType string) ([]Row, error) {
	url := baseURL + "/api/leaderboard/" + boardType

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var board BoardResponse
	if err := unmarshalJSON(body, &board); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return board.Rows, nil
}

// getChart retrieves the answer distribution for one question.
func getChart(client *HTTPClient, baseURL string, questionID int64) ([]byte, error) {
	url := baseURL + "/api/questions/" + strconv.FormatInt(questionID, 10) + "/chart"

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
