package loadgen

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/okian/triboard/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	playerTierDivisor  = 8
)

// Constants for counter generation ranges per player tier.
const (
	casualAnsweredMin   = 5
	casualAnsweredRange = 20
	casualScoreMax      = 60

	regularAnsweredMin   = 30
	regularAnsweredRange = 30
	regularScoreMin      = 50
	regularScoreRange    = 120
	regularStreakMax     = 9

	skilledAnsweredMin   = 35
	skilledAnsweredRange = 50
	skilledScoreMin      = 150
	skilledScoreRange    = 250
	skilledStreakMin     = 8
	skilledStreakRange   = 12

	eliteAnsweredMin   = 50
	eliteAnsweredRange = 80
	eliteScoreMin      = 400
	eliteScoreRange    = 500
	eliteStreakMin     = 15
	eliteStreakRange   = 25

	casualAccuracyMin  = 0.30
	regularAccuracyMin = 0.50
	skilledAccuracyMin = 0.65
	eliteAccuracyMin   = 0.80
	accuracySpread     = 0.20
)

// Player tier cases. Casual players dominate the distribution the same
// way drop-in players dominate a real quiz game.
const (
	caseCasualA  = 0
	caseCasualB  = 1
	caseCasualC  = 2
	caseRegularA = 3
	caseRegularB = 4
	caseRegularC = 5
	caseSkilled  = 6
	caseElite    = 7
)

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// getRandomInt returns a random int in [min, min+span).
func getRandomInt(min, span int) int {
	if span <= 0 {
		return min
	}
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(span)))
	return min + int(n.Int64())
}

// generateSessions creates the specified number of sessions with unique IDs.
func generateSessions(ctx context.Context, config *Config, stats *Stats) ([]Session, error) {
	logger.Get().Info(ctx, "generating sessions", logger.Int("numSessions", config.NumSessions))

	sessions := make([]Session, config.NumSessions)

	type sessionResult struct {
		index   int
		session Session
		err     error
	}

	resultChan := make(chan sessionResult, config.NumSessions)

	workerCount := minInt(config.Workers, config.NumSessions)
	sessionsPerWorker := config.NumSessions / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * sessionsPerWorker
		end := start + sessionsPerWorker
		if worker == workerCount-1 {
			end = config.NumSessions
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- sessionResult{index: i, err: ctx.Err()}
					return
				default:
					resultChan <- sessionResult{index: i, session: generateSingleSession()}
				}
			}
		}(start, end)
	}

	for i := 0; i < config.NumSessions; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during session generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate session %d: %w", result.index, result.err)
			}
			sessions[result.index] = result.session
		}
	}

	stats.SessionsGenerated = len(sessions)
	logger.Get().Info(ctx, "generated sessions successfully", logger.Int("count", len(sessions)))

	return sessions, nil
}

// generateSingleSession creates one session with tiered counters. All
// simulated players are guests; the service labels them from the
// session ID.
func generateSingleSession() Session {
	var answered, score, streak int
	var accuracy float64

	tier, _ := rand.Int(rand.Reader, big.NewInt(playerTierDivisor))
	switch tier.Int64() {
	case caseCasualA, caseCasualB, caseCasualC:
		// Casual players quit early and never clear the eligibility gate.
		answered = getRandomInt(casualAnsweredMin, casualAnsweredRange)
		score = getRandomInt(0, casualScoreMax)
		streak = getRandomInt(0, 5)
		accuracy = casualAccuracyMin + getRandomFloat()*accuracySpread
	case caseRegularA, caseRegularB, caseRegularC:
		answered = getRandomInt(regularAnsweredMin, regularAnsweredRange)
		score = getRandomInt(regularScoreMin, regularScoreRange)
		streak = getRandomInt(0, regularStreakMax)
		accuracy = regularAccuracyMin + getRandomFloat()*accuracySpread
	case caseSkilled:
		answered = getRandomInt(skilledAnsweredMin, skilledAnsweredRange)
		score = getRandomInt(skilledScoreMin, skilledScoreRange)
		streak = getRandomInt(skilledStreakMin, skilledStreakRange)
		accuracy = skilledAccuracyMin + getRandomFloat()*accuracySpread
	default:
		answered = getRandomInt(eliteAnsweredMin, eliteAnsweredRange)
		score = getRandomInt(eliteScoreMin, eliteScoreRange)
		streak = getRandomInt(eliteStreakMin, eliteStreakRange)
		accuracy = eliteAccuracyMin + getRandomFloat()*accuracySpread
	}

	correct := int(float64(answered) * accuracy)
	if correct > answered {
		correct = answered
	}
	if streak > answered {
		streak = answered
	}

	return Session{
		SessionID:     uuid.New().String(),
		FinalScore:    score,
		MaxStreak:     streak,
		TotalAnswered: answered,
		TotalCorrect:  correct,
	}
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
