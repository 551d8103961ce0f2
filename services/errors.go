package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrValidationFailed = errors.New("validation failed")

	ErrTournamentNotFound        = errors.New("tournament not found")
	ErrTournamentNameRequired    = errors.New("tournament name is required")
	ErrTournamentGameRequired    = errors.New("tournament game is required")
	ErrTournamentDateRequired    = errors.New("tournament date is required")
	ErrTournamentInvalidCapacity = errors.New("tournament team limit must be at least 2")
	ErrTournamentInvalidFee      = errors.New("tournament entry fee must not be negative")
	ErrTournamentInvalidCurrency = errors.New("tournament currency must be USD or INR")
	ErrTournamentNameConflict    = errors.New("tournament name already exists")
	ErrTournamentFull            = errors.New("tournament has reached its maximum team limit")

	ErrTournamentLimitBelowApproved = errors.New("tournament team limit is below the number of approved teams")

	ErrTeamNotFound            = errors.New("team not found")
	ErrTeamNameRequired        = errors.New("team name is required")
	ErrPlayersRequired         = errors.New("at least one player username is required")
	ErrTeamLeaderRequired      = errors.New("team leader is required")
	ErrPaymentProofRequired    = errors.New("payment screenshot url is required")
	ErrRegistrationConflict    = errors.New("team leader already registered a team for this tournament")
	ErrTeamNameConflict        = errors.New("a team with this name is already registered for this tournament")
	ErrInvalidTeamDecision     = errors.New("decision must be 'approved' or 'rejected'")
	ErrRejectionReasonRequired = errors.New("a reason is required to reject a team")
	ErrTeamAlreadyDecided      = errors.New("team registration was already decided")

	ErrFixtureNotFound  = errors.New("fixture not found")
	ErrFixtureExists    = errors.New("fixture already exists for this round; regenerate with replace to discard it")
	ErrConcurrentUpdate = errors.New("fixture kept changing concurrently, try again")
	ErrArchiveFailed    = errors.New("failed to archive the fixture being replaced")
)
