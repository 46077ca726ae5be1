package loadgen

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL     string        // Base URL of the service
	NumSessions int           // Number of game sessions to simulate
	NumAnswers  int           // Number of answer events to submit
	Workers     int           // Number of concurrent workers
	Timeout     time.Duration // HTTP request timeout
	OutputFile  string        // Output file for generated sessions
	LogFile     string        // Log file for simulation output
	Verbose     bool          // Enable verbose logging
}

// Session is one simulated game session with its final counters.
type Session struct {
	SessionID     string `json:"session_id"`
	UserID        string `json:"user_id,omitempty"`
	FinalScore    int    `json:"final_score"`
	MaxStreak     int    `json:"max_streak"`
	TotalAnswered int    `json:"total_answered"`
	TotalCorrect  int    `json:"total_correct"`
}

// Row is one leaderboard position as returned by the service.
type Row struct {
	Rank          int     `json:"rank"`
	Username      string  `json:"username"`
	Value         float64 `json:"value"`
	TotalAnswered int     `json:"total_answered,omitempty"`
	Timestamp     string  `json:"timestamp,omitempty"`
	Placeholder   bool    `json:"is_placeholder"`
}

// EndResponse is the response from finalizing a session.
type EndResponse struct {
	Status        string   `json:"status"`
	SessionID     string   `json:"session_id"`
	BoardsEntered []string `json:"boards_entered"`
}

// BoardResponse is the response from a leaderboard read.
type BoardResponse struct {
	Type string `json:"leaderboard_type"`
	Rows []Row  `json:"rows"`
}

// AckResponse is the response from an answer submission.
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds simulation statistics.
type Stats struct {
	SessionsGenerated int
	SessionsStarted   int
	SessionsFinalized int
	SessionsFailed    int
	AnswersSubmitted  int
	AnswersDuplicate  int
	AnswersFailed     int
	BoardsRetrieved   int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
