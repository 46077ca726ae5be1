// Package types contains common read shapes used across the application.
package types

// Row is one rendered leaderboard position. Boards always render exactly
// ten rows; positions without a real entry are placeholder rows
// synthesized at read time.
type Row struct {
	Rank          int     `json:"rank"`
	Username      string  `json:"username"`
	Value         float64 `json:"value"`
	TotalAnswered int     `json:"total_answered,omitempty"`
	Timestamp     string  `json:"timestamp,omitempty"`
	Placeholder   bool    `json:"is_placeholder"`
}

// OptionCount is the per-option aggregate of a question's answer stats.
type OptionCount struct {
	Option     string  `json:"option"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// QuestionChart is the aggregate answer distribution for one question.
type QuestionChart struct {
	QuestionID int64         `json:"question_id"`
	Total      int           `json:"total"`
	CorrectPct float64       `json:"correct_pct"`
	Options    []OptionCount `json:"options"`
}
