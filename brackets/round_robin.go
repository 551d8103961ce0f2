package brackets

import (
	"fmt"

	"github.com/Dosada05/tournament-fixtures/models"
	"github.com/google/uuid"
)

// MatchIDFunc returns a fresh match id on every call.
type MatchIDFunc func() string

type RoundRobinGenerator struct {
	newMatchID MatchIDFunc
}

func NewRoundRobinGenerator(newMatchID MatchIDFunc) BracketGenerator {
	if newMatchID == nil {
		newMatchID = uuid.NewString
	}
	return &RoundRobinGenerator{newMatchID: newMatchID}
}

func (g *RoundRobinGenerator) GetName() string {
	return "RoundRobin"
}

// GenerateSchedule pairs every team with every other team exactly once.
// Team i meets every team j > i in input order, so the same roster always
// yields the same match order (n*(n-1)/2 matches).
func (g *RoundRobinGenerator) GenerateSchedule(params GenerateScheduleParams) (*models.Schedule, error) {
	if params.TournamentID == "" {
		return nil, ErrInvalidTournament
	}
	if params.Round < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRound, params.Round)
	}

	teams := params.Teams
	if len(teams) < 2 {
		return nil, fmt.Errorf("%w (found %d)", ErrInsufficientParticipants, len(teams))
	}

	seen := make(map[string]struct{}, len(teams))
	for _, t := range teams {
		if t.ID == "" {
			return nil, fmt.Errorf("%w: empty team id", ErrInvalidTeam)
		}
		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("%w: team %s listed twice", ErrInvalidTeam, t.ID)
		}
		seen[t.ID] = struct{}{}
	}

	matches := make([]models.Match, 0, len(teams)*(len(teams)-1)/2)
	for i := 0; i < len(teams); i++ {
		for j := i + 1; j < len(teams); j++ {
			matches = append(matches, models.NewMatch(g.newMatchID(), teams[i], teams[j]))
		}
	}

	schedule, err := models.NewSchedule(params.TournamentID, params.Round, matches)
	if err != nil {
		return nil, fmt.Errorf("RoundRobinGenerator: match id generator produced a collision: %w", err)
	}
	return schedule, nil
}
