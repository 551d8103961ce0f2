package brackets

import "errors"

// Engine failures. All of them are local validation errors: nothing is
// mutated when one is returned.
var (
	ErrInsufficientParticipants = errors.New("at least two approved teams are required")
	ErrMatchNotFound            = errors.New("match not found in schedule")
	ErrInvalidScore             = errors.New("scores must be non-negative integers")
	ErrMatchAlreadyCompleted    = errors.New("match is already completed")
	ErrMatchNotCompleted        = errors.New("match has no reported score to override")
	ErrInvalidRound             = errors.New("round number must be positive")
	ErrInvalidTournament        = errors.New("tournament id is required")
	ErrInvalidTeam              = errors.New("roster contains an invalid or duplicated team")
)
