package brackets

import (
	"fmt"

	"github.com/Dosada05/tournament-fixtures/models"
)

// ApplyScore reports the result of a scheduled match and returns the updated
// schedule. The input schedule is never modified. Scores are report-once:
// a completed match fails with ErrMatchAlreadyCompleted.
func ApplyScore(schedule *models.Schedule, matchID string, score1, score2 int) (*models.Schedule, error) {
	match, err := lookupScoredMatch(schedule, matchID, score1, score2)
	if err != nil {
		return nil, err
	}
	if match.Status() == models.MatchStatusCompleted {
		return nil, fmt.Errorf("%w: %s", ErrMatchAlreadyCompleted, matchID)
	}
	return schedule.WithMatch(match.Complete(score1, score2))
}

// OverrideScore replaces the result of an already completed match. It is the
// privileged correction path; callers must gate it behind an explicit admin
// confirmation.
func OverrideScore(schedule *models.Schedule, matchID string, score1, score2 int) (*models.Schedule, error) {
	match, err := lookupScoredMatch(schedule, matchID, score1, score2)
	if err != nil {
		return nil, err
	}
	if match.Status() != models.MatchStatusCompleted {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotCompleted, matchID)
	}
	return schedule.WithMatch(match.Complete(score1, score2))
}

func lookupScoredMatch(schedule *models.Schedule, matchID string, score1, score2 int) (models.Match, error) {
	if schedule == nil {
		return models.Match{}, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	match, ok := schedule.Match(matchID)
	if !ok {
		return models.Match{}, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	if score1 < 0 || score2 < 0 {
		return models.Match{}, fmt.Errorf("%w: got %d-%d", ErrInvalidScore, score1, score2)
	}
	return match, nil
}
