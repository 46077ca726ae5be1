package loadgen

import (
	"fmt"
	"log"
	"sort"

	"github.com/okian/triboard/internal/domain/board"
)

// boardRows holds the retrieved rows of one board keyed by its wire name.
type boardRows map[string][]Row

// verifyResults checks the retrieved boards against the sessions that
// were actually finalized.
func verifyResults(config *Config, sessions []Session, boards boardRows) error {
	log.Println("verifying boards...")

	for _, t := range board.All() {
		name := t.String()
		rows, ok := boards[name]
		if !ok {
			return fmt.Errorf("board %q was not retrieved", name)
		}

		if err := verifyBoardShape(name, rows); err != nil {
			return err
		}

		expected := expectedTopValues(t, sessions)
		if err := verifyBoardValues(name, rows, expected); err != nil {
			// Other clients may be writing concurrently, so a value
			// mismatch is a warning rather than a failure.
			log.Printf("board %q value warning: %v", name, err)
		} else {
			log.Printf("board %q values match the generated sessions", name)
		}

		displayBoard(name, rows, config.Verbose)
	}

	log.Println("board verification completed")
	return nil
}

// verifyBoardShape checks the structural invariants every rendered
// board must satisfy regardless of what was submitted.
func verifyBoardShape(name string, rows []Row) error {
	realRows := 0
	for i, row := range rows {
		if row.Rank != i+1 {
			return fmt.Errorf("board %q row %d has rank %d", name, i, row.Rank)
		}
		if row.Placeholder {
			continue
		}
		if realRows != i {
			return fmt.Errorf("board %q has a real row after a placeholder at position %d", name, i)
		}
		realRows++
		if i > 0 && !rows[i-1].Placeholder && row.Value > rows[i-1].Value {
			return fmt.Errorf("board %q not sorted: row %d value %.1f exceeds row %d value %.1f",
				name, i, row.Value, i-1, rows[i-1].Value)
		}
	}
	return nil
}

// expectedTopValues computes the ranking values the board should hold,
// best first, from the sessions that cleared the eligibility gate.
func expectedTopValues(t board.Type, sessions []Session) []float64 {
	values := make([]float64, 0, len(sessions))
	for _, s := range sessions {
		stats := board.Stats{
			Score:     s.FinalScore,
			MaxStreak: s.MaxStreak,
			Answered:  s.TotalAnswered,
		}
		if s.TotalAnswered > 0 {
			stats.AccuracyPct = float64(s.TotalCorrect) / float64(s.TotalAnswered) * PercentageMultiplier
		}
		if !board.Eligible(t, stats) {
			continue
		}
		values = append(values, board.Round1(board.Value(t, stats)))
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(values)))
	return values
}

// verifyBoardValues compares the real rows against the locally computed
// expectation.
func verifyBoardValues(name string, rows []Row, expected []float64) error {
	for i, row := range rows {
		if row.Placeholder {
			if i < len(expected) {
				return fmt.Errorf("row %d is a placeholder but %d eligible sessions were generated", i, len(expected))
			}
			return nil
		}
		if i >= len(expected) {
			return fmt.Errorf("row %d holds %.1f but only %d eligible sessions were generated", i, row.Value, len(expected))
		}
		if board.Round1(row.Value) != expected[i] {
			return fmt.Errorf("row %d holds %.1f, expected %.1f", i, row.Value, expected[i])
		}
	}
	return nil
}

// displayBoard shows the rendered rows of one board.
func displayBoard(name string, rows []Row, verbose bool) {
	log.Printf("board %q:", name)
	for _, row := range rows {
		if row.Placeholder {
			if verbose {
				log.Printf("   %2d. %s", row.Rank, row.Username)
			}
			continue
		}
		log.Printf("   %2d. %s - %.1f (answered: %d)", row.Rank, row.Username, row.Value, row.TotalAnswered)
	}
}
