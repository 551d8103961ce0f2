package brackets

import (
	"github.com/Dosada05/tournament-fixtures/models"
)

type GenerateScheduleParams struct {
	TournamentID string
	Round        int
	// Teams must already be filtered to approved registrations. Their order
	// decides the order of the generated matches.
	Teams []models.TeamRef
}

type BracketGenerator interface {
	GenerateSchedule(params GenerateScheduleParams) (*models.Schedule, error)

	GetName() string
}

// Generate builds a single round-robin schedule with random match ids.
func Generate(tournamentID string, round int, teams []models.TeamRef) (*models.Schedule, error) {
	return NewRoundRobinGenerator(nil).GenerateSchedule(GenerateScheduleParams{
		TournamentID: tournamentID,
		Round:        round,
		Teams:        teams,
	})
}
