package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/tournament-fixtures/models"
	"github.com/Dosada05/tournament-fixtures/repositories"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type CreateTournamentInput struct {
	Name         string          `json:"name"`
	Game         string          `json:"game"`
	Description  *string         `json:"description,omitempty"`
	Date         time.Time       `json:"date"`
	EntryFee     float64         `json:"entryFee"`
	Currency     models.Currency `json:"currency"`
	QRCodeURL    string          `json:"qrCodeUrl"`
	BannerURL    string          `json:"bannerUrl"`
	MaxTeamLimit int             `json:"maxTeamLimit"`
}

type TournamentService interface {
	Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	GetByID(ctx context.Context, id string) (*models.Tournament, error)
	List(ctx context.Context) ([]*models.Tournament, error)
	GetOverview(ctx context.Context, id string) (*models.TournamentOverview, error)
	// Update rewrites the tournament details; the team limit cannot drop below
	// the number of already approved teams.
	Update(ctx context.Context, id string, input CreateTournamentInput) (*models.Tournament, error)
	// Delete removes the tournament together with its teams and fixtures.
	Delete(ctx context.Context, id string) error
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	fixtureRepo    repositories.FixtureRepository
	logger         *slog.Logger
	newID          func() string
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	fixtureRepo repositories.FixtureRepository,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		fixtureRepo:    fixtureRepo,
		logger:         logger,
		newID:          uuid.NewString,
	}
}

func (s *tournamentService) Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	tournament, err := tournamentFromInput(input)
	if err != nil {
		return nil, err
	}
	tournament.ID = s.newID()

	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, ErrTournamentNameConflict
		}
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	s.logger.Info("tournament created", slog.String("tournament_id", tournament.ID), slog.String("name", tournament.Name))
	return tournament, nil
}

func (s *tournamentService) Update(ctx context.Context, id string, input CreateTournamentInput) (*models.Tournament, error) {
	tournament, err := tournamentFromInput(input)
	if err != nil {
		return nil, err
	}
	tournament.ID = id

	if _, err := getTournament(ctx, s.tournamentRepo, id); err != nil {
		return nil, err
	}
	approved, err := s.teamRepo.CountByStatus(ctx, id, models.TeamStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("failed to count approved teams for tournament %s: %w", id, err)
	}
	if tournament.MaxTeamLimit < approved {
		return nil, fmt.Errorf("%w: %d teams already approved", ErrTournamentLimitBelowApproved, approved)
	}

	if err := s.tournamentRepo.Update(ctx, tournament); err != nil {
		switch {
		case errors.Is(err, repositories.ErrTournamentNotFound):
			return nil, ErrTournamentNotFound
		case errors.Is(err, repositories.ErrTournamentNameConflict):
			return nil, ErrTournamentNameConflict
		}
		return nil, fmt.Errorf("failed to update tournament %s: %w", id, err)
	}

	s.logger.Info("tournament updated", slog.String("tournament_id", id), slog.String("name", tournament.Name))
	return tournament, nil
}

func (s *tournamentService) Delete(ctx context.Context, id string) error {
	if _, err := getTournament(ctx, s.tournamentRepo, id); err != nil {
		return err
	}

	// Postgres удалит раунды каскадом, DynamoDB нет
	removed, err := s.fixtureRepo.DeleteByTournament(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete fixtures of tournament %s: %w", id, err)
	}
	if err := s.tournamentRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to delete tournament %s: %w", id, err)
	}

	s.logger.Info("tournament deleted", slog.String("tournament_id", id), slog.Int("fixtures_removed", removed))
	return nil
}

func tournamentFromInput(input CreateTournamentInput) (*models.Tournament, error) {
	name := strings.TrimSpace(input.Name)
	game := strings.TrimSpace(input.Game)

	switch {
	case name == "":
		return nil, ErrTournamentNameRequired
	case game == "":
		return nil, ErrTournamentGameRequired
	case input.Date.IsZero():
		return nil, ErrTournamentDateRequired
	case input.MaxTeamLimit < 2:
		return nil, ErrTournamentInvalidCapacity
	case input.EntryFee < 0:
		return nil, ErrTournamentInvalidFee
	}

	currency := input.Currency
	if currency == "" {
		currency = models.CurrencyUSD
	}
	if currency != models.CurrencyUSD && currency != models.CurrencyINR {
		return nil, ErrTournamentInvalidCurrency
	}

	return &models.Tournament{
		Name:         name,
		Game:         game,
		Description:  input.Description,
		Date:         input.Date,
		EntryFee:     input.EntryFee,
		Currency:     currency,
		QRCodeURL:    input.QRCodeURL,
		BannerURL:    input.BannerURL,
		MaxTeamLimit: input.MaxTeamLimit,
	}, nil
}

func (s *tournamentService) GetByID(ctx context.Context, id string) (*models.Tournament, error) {
	return getTournament(ctx, s.tournamentRepo, id)
}

func (s *tournamentService) List(ctx context.Context) ([]*models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	if tournaments == nil {
		return []*models.Tournament{}, nil
	}
	return tournaments, nil
}

// GetOverview loads the tournament, its approved-team count and its fixtures
// in parallel.
func (s *tournamentService) GetOverview(ctx context.Context, id string) (*models.TournamentOverview, error) {
	var (
		tournament *models.Tournament
		approved   int
		fixtures   []*models.Schedule
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tournament, err = getTournament(gctx, s.tournamentRepo, id)
		return err
	})
	g.Go(func() error {
		var err error
		approved, err = s.teamRepo.CountByStatus(gctx, id, models.TeamStatusApproved)
		if err != nil {
			return fmt.Errorf("failed to count approved teams for tournament %s: %w", id, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		fixtures, err = s.fixtureRepo.ListByTournament(gctx, id)
		if err != nil {
			return fmt.Errorf("failed to list fixtures for tournament %s: %w", id, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if fixtures == nil {
		fixtures = []*models.Schedule{}
	}
	return &models.TournamentOverview{
		Tournament:    tournament,
		ApprovedTeams: approved,
		IsFull:        approved >= tournament.MaxTeamLimit,
		Fixtures:      fixtures,
	}, nil
}

func getTournament(ctx context.Context, repo repositories.TournamentRepository, id string) (*models.Tournament, error) {
	tournament, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %s: %w", id, err)
	}
	return tournament, nil
}
