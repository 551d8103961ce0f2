package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/tournament-fixtures/models"
	"github.com/Dosada05/tournament-fixtures/repositories"
	"github.com/google/uuid"
)

type RegisterTeamInput struct {
	TournamentID         string   `json:"-"`
	TeamName             string   `json:"teamName"`
	PlayerUsernames      []string `json:"playerUsernames"`
	TeamLeaderID         string   `json:"-"`
	PaymentScreenshotURL string   `json:"paymentScreenshotUrl"`
}

type RegistrationService interface {
	RegisterTeam(ctx context.Context, input RegisterTeamInput) (*models.Team, error)
	// DecideTeam approves or rejects a pending registration. A team is
	// decided once; later calls fail with ErrTeamAlreadyDecided.
	DecideTeam(ctx context.Context, teamID string, decision models.TeamStatus, reason string) (*models.Team, error)
	ListTeams(ctx context.Context, tournamentID string, status *models.TeamStatus) ([]*models.Team, error)
	// ListLeaderTeams returns the registrations of one team leader across
	// all tournaments.
	ListLeaderTeams(ctx context.Context, leaderID string) ([]*models.Team, error)
	// ListTeamsByStatus is the admin queue across all tournaments.
	ListTeamsByStatus(ctx context.Context, status models.TeamStatus) ([]*models.Team, error)
}

type registrationService struct {
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	logger         *slog.Logger
	newID          func() string
}

func NewRegistrationService(
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	logger *slog.Logger,
) RegistrationService {
	return &registrationService{
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		logger:         logger,
		newID:          uuid.NewString,
	}
}

func (s *registrationService) RegisterTeam(ctx context.Context, input RegisterTeamInput) (*models.Team, error) {
	name := strings.TrimSpace(input.TeamName)
	if name == "" {
		return nil, ErrTeamNameRequired
	}
	players := make([]string, 0, len(input.PlayerUsernames))
	for _, p := range input.PlayerUsernames {
		if p = strings.TrimSpace(p); p != "" {
			players = append(players, p)
		}
	}
	if len(players) == 0 {
		return nil, ErrPlayersRequired
	}
	if input.TeamLeaderID == "" {
		return nil, ErrTeamLeaderRequired
	}
	if strings.TrimSpace(input.PaymentScreenshotURL) == "" {
		return nil, ErrPaymentProofRequired
	}

	tournament, err := getTournament(ctx, s.tournamentRepo, input.TournamentID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureCapacity(ctx, tournament); err != nil {
		return nil, err
	}

	team := &models.Team{
		ID:                   s.newID(),
		TournamentID:         tournament.ID,
		TeamName:             name,
		PlayerUsernames:      players,
		TeamLeaderID:         input.TeamLeaderID,
		PaymentScreenshotURL: strings.TrimSpace(input.PaymentScreenshotURL),
		Status:               models.TeamStatusPending,
	}
	if err := s.teamRepo.Create(ctx, team); err != nil {
		switch {
		case errors.Is(err, repositories.ErrTeamRegistrationConflict):
			return nil, ErrRegistrationConflict
		case errors.Is(err, repositories.ErrTeamNameConflict):
			return nil, ErrTeamNameConflict
		case errors.Is(err, repositories.ErrTeamTournamentInvalid):
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to register team: %w", err)
	}

	s.logger.Info("team registered",
		slog.String("tournament_id", team.TournamentID),
		slog.String("team_id", team.ID),
		slog.String("team_name", team.TeamName))
	return team, nil
}

func (s *registrationService) DecideTeam(ctx context.Context, teamID string, decision models.TeamStatus, reason string) (*models.Team, error) {
	var rejectionReason *string
	switch decision {
	case models.TeamStatusApproved:
	case models.TeamStatusRejected:
		reason = strings.TrimSpace(reason)
		if reason == "" {
			return nil, ErrRejectionReasonRequired
		}
		rejectionReason = &reason
	default:
		return nil, ErrInvalidTeamDecision
	}

	team, err := s.getTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team.Status != models.TeamStatusPending {
		return nil, ErrTeamAlreadyDecided
	}

	// Лимит проверяется в той же транзакции, что и смена статуса
	if decision == models.TeamStatusApproved {
		err = s.teamRepo.Approve(ctx, team.ID)
	} else {
		err = s.teamRepo.UpdateStatus(ctx, team.ID, models.TeamStatusPending, decision, rejectionReason)
	}
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrTeamStatusConflict):
			return nil, ErrTeamAlreadyDecided
		case errors.Is(err, repositories.ErrTeamNotFound):
			return nil, ErrTeamNotFound
		case errors.Is(err, repositories.ErrTeamTournamentFull):
			return nil, ErrTournamentFull
		}
		return nil, fmt.Errorf("failed to update status of team %s: %w", team.ID, err)
	}

	team.Status = decision
	team.RejectionReason = rejectionReason

	s.logger.Info("team registration decided",
		slog.String("tournament_id", team.TournamentID),
		slog.String("team_id", team.ID),
		slog.String("status", string(decision)))
	return team, nil
}

func (s *registrationService) ListTeams(ctx context.Context, tournamentID string, status *models.TeamStatus) ([]*models.Team, error) {
	if status != nil && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown team status %q", ErrValidationFailed, *status)
	}
	if _, err := getTournament(ctx, s.tournamentRepo, tournamentID); err != nil {
		return nil, err
	}

	teams, err := s.teamRepo.ListByTournament(ctx, tournamentID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams for tournament %s: %w", tournamentID, err)
	}
	if teams == nil {
		return []*models.Team{}, nil
	}
	return teams, nil
}

func (s *registrationService) ListLeaderTeams(ctx context.Context, leaderID string) ([]*models.Team, error) {
	if leaderID == "" {
		return nil, ErrTeamLeaderRequired
	}
	teams, err := s.teamRepo.ListByLeader(ctx, leaderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams of leader %s: %w", leaderID, err)
	}
	if teams == nil {
		return []*models.Team{}, nil
	}
	return teams, nil
}

func (s *registrationService) ListTeamsByStatus(ctx context.Context, status models.TeamStatus) ([]*models.Team, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown team status %q", ErrValidationFailed, status)
	}
	teams, err := s.teamRepo.ListByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s teams: %w", status, err)
	}
	if teams == nil {
		return []*models.Team{}, nil
	}
	return teams, nil
}

func (s *registrationService) getTeam(ctx context.Context, id string) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %s: %w", id, err)
	}
	return team, nil
}

func (s *registrationService) ensureCapacity(ctx context.Context, tournament *models.Tournament) error {
	approved, err := s.teamRepo.CountByStatus(ctx, tournament.ID, models.TeamStatusApproved)
	if err != nil {
		return fmt.Errorf("failed to count approved teams for tournament %s: %w", tournament.ID, err)
	}
	if approved >= tournament.MaxTeamLimit {
		return ErrTournamentFull
	}
	return nil
}
