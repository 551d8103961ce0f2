package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/tournament-fixtures/brackets"
	"github.com/Dosada05/tournament-fixtures/models"
	"github.com/Dosada05/tournament-fixtures/realtime"
	"github.com/Dosada05/tournament-fixtures/repositories"
	"github.com/Dosada05/tournament-fixtures/storage"
	"golang.org/x/sync/errgroup"
)

const defaultScoreReportAttempts = 5

// Notifier доставляет события подписчикам комнаты турнира.
type Notifier interface {
	BroadcastToRoom(room string, messageType string, payload interface{})
}

// Archiver keeps a copy of a schedule before it is overwritten. Discard drops
// a copy whose schedule ended up not being overwritten.
type Archiver interface {
	Archive(ctx context.Context, schedule *models.Schedule) (*storage.UploadResult, error)
	Discard(ctx context.Context, key string) error
}

type ReportScoreInput struct {
	TournamentID string
	Round        int
	MatchID      string
	Score1       int
	Score2       int
}

type FixtureService interface {
	// GenerateFixture pairs every approved team once for the given round.
	// An existing round is only discarded when replace is set.
	GenerateFixture(ctx context.Context, tournamentID string, round int, replace bool) (*models.Schedule, error)
	GetFixture(ctx context.Context, tournamentID string, round int) (*models.Schedule, error)
	ListFixtures(ctx context.Context, tournamentID string) ([]*models.Schedule, error)
	ReportScore(ctx context.Context, input ReportScoreInput) (*models.Schedule, error)
	OverrideScore(ctx context.Context, input ReportScoreInput) (*models.Schedule, error)
	GetStandings(ctx context.Context, tournamentID string, round int) ([]models.Standing, error)
}

type fixtureService struct {
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	fixtureRepo    repositories.FixtureRepository
	generator      brackets.BracketGenerator
	archive        Archiver
	notifier       Notifier
	logger         *slog.Logger
	maxAttempts    int
	points         models.PointsTable
}

// NewFixtureService wires the fixture workflow. archive and notifier may be
// nil: replacing a round then skips the archive copy and updates are not
// pushed to websocket clients.
func NewFixtureService(
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	fixtureRepo repositories.FixtureRepository,
	generator brackets.BracketGenerator,
	archive Archiver,
	notifier Notifier,
	logger *slog.Logger,
	maxAttempts int,
) FixtureService {
	if generator == nil {
		generator = brackets.NewRoundRobinGenerator(nil)
	}
	if maxAttempts < 1 {
		maxAttempts = defaultScoreReportAttempts
	}
	return &fixtureService{
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		fixtureRepo:    fixtureRepo,
		generator:      generator,
		archive:        archive,
		notifier:       notifier,
		logger:         logger,
		maxAttempts:    maxAttempts,
		points:         models.DefaultPoints,
	}
}

func (s *fixtureService) GenerateFixture(ctx context.Context, tournamentID string, round int, replace bool) (*models.Schedule, error) {
	if round < 1 {
		return nil, fmt.Errorf("%w: %d", brackets.ErrInvalidRound, round)
	}

	var (
		tournament *models.Tournament
		teams      []*models.Team
	)
	approved := models.TeamStatusApproved

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tournament, err = getTournament(gctx, s.tournamentRepo, tournamentID)
		return err
	})
	g.Go(func() error {
		var err error
		teams, err = s.teamRepo.ListByTournament(gctx, tournamentID, &approved)
		if err != nil {
			return fmt.Errorf("failed to list approved teams for tournament %s: %w", tournamentID, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	schedule, err := s.generator.GenerateSchedule(brackets.GenerateScheduleParams{
		TournamentID: tournament.ID,
		Round:        round,
		Teams:        models.ApprovedRefs(teams),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate fixture: %w", err)
	}

	if replace {
		schedule.Version, err = s.replaceFixture(ctx, schedule)
	} else {
		schedule.Version, err = s.fixtureRepo.Create(ctx, schedule)
	}
	if err != nil {
		return nil, s.mapFixtureError(err)
	}

	s.logger.Info("fixture generated",
		slog.String("tournament_id", schedule.TournamentID),
		slog.String("fixture_id", schedule.ID),
		slog.Int("matches", schedule.Len()),
		slog.Bool("replace", replace),
		slog.String("generator", s.generator.GetName()))
	s.notify(schedule)
	return schedule, nil
}

// replaceFixture overwrites the stored round only at the version that was
// archived. A write that lands in between forces a fresh read and archive.
func (s *fixtureService) replaceFixture(ctx context.Context, schedule *models.Schedule) (int64, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		existing, err := s.fixtureRepo.Get(ctx, schedule.ID)
		if errors.Is(err, repositories.ErrFixtureNotFound) {
			version, createErr := s.fixtureRepo.Create(ctx, schedule)
			if errors.Is(createErr, repositories.ErrFixtureAlreadyExists) {
				continue
			}
			return version, createErr
		}
		if err != nil {
			return 0, err
		}

		archived, err := s.archiveFixture(ctx, existing)
		if err != nil {
			return 0, err
		}

		version, err := s.fixtureRepo.Replace(ctx, schedule, existing.Version)
		if err == nil {
			return version, nil
		}
		s.discardArchive(ctx, archived)
		if errors.Is(err, repositories.ErrFixtureVersionConflict) || errors.Is(err, repositories.ErrFixtureNotFound) {
			s.logger.Debug("fixture changed while replacing, retrying",
				slog.String("fixture_id", schedule.ID),
				slog.Int64("archived_version", existing.Version),
				slog.Int("attempt", attempt))
			continue
		}
		return 0, err
	}

	s.logger.Warn("giving up on fixture replace",
		slog.String("fixture_id", schedule.ID),
		slog.Int("attempts", s.maxAttempts))
	return 0, ErrConcurrentUpdate
}

func (s *fixtureService) archiveFixture(ctx context.Context, existing *models.Schedule) (*storage.UploadResult, error) {
	if s.archive == nil {
		s.logger.Warn("replacing fixture without archive", slog.String("fixture_id", existing.ID))
		return nil, nil
	}
	res, err := s.archive.Archive(ctx, existing)
	if err != nil {
		s.logger.Error("failed to archive fixture before replace",
			slog.String("fixture_id", existing.ID),
			slog.Int64("version", existing.Version),
			slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", ErrArchiveFailed, err)
	}
	s.logger.Info("fixture archived",
		slog.String("fixture_id", existing.ID),
		slog.Int64("version", existing.Version),
		slog.String("key", res.Key))
	return res, nil
}

// discardArchive убирает копию версии, которая так и не была перезаписана.
func (s *fixtureService) discardArchive(ctx context.Context, archived *storage.UploadResult) {
	if archived == nil {
		return
	}
	if err := s.archive.Discard(ctx, archived.Key); err != nil {
		s.logger.Warn("failed to discard stale fixture archive",
			slog.String("key", archived.Key),
			slog.Any("error", err))
	}
}

func (s *fixtureService) GetFixture(ctx context.Context, tournamentID string, round int) (*models.Schedule, error) {
	if round < 1 {
		return nil, fmt.Errorf("%w: %d", brackets.ErrInvalidRound, round)
	}
	schedule, err := s.fixtureRepo.Get(ctx, models.ScheduleID(tournamentID, round))
	if err != nil {
		return nil, s.mapFixtureError(err)
	}
	return schedule, nil
}

func (s *fixtureService) ListFixtures(ctx context.Context, tournamentID string) ([]*models.Schedule, error) {
	if _, err := getTournament(ctx, s.tournamentRepo, tournamentID); err != nil {
		return nil, err
	}
	schedules, err := s.fixtureRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fixtures for tournament %s: %w", tournamentID, err)
	}
	if schedules == nil {
		return []*models.Schedule{}, nil
	}
	return schedules, nil
}

func (s *fixtureService) ReportScore(ctx context.Context, input ReportScoreInput) (*models.Schedule, error) {
	return s.updateScore(ctx, input, brackets.ApplyScore, "match score reported")
}

func (s *fixtureService) OverrideScore(ctx context.Context, input ReportScoreInput) (*models.Schedule, error) {
	return s.updateScore(ctx, input, brackets.OverrideScore, "match score overridden")
}

type scoreFunc func(schedule *models.Schedule, matchID string, score1, score2 int) (*models.Schedule, error)

// updateScore applies fn to the latest stored schedule and writes it back only
// if nobody else wrote in between. Conflicting writers reload and retry.
func (s *fixtureService) updateScore(ctx context.Context, input ReportScoreInput, fn scoreFunc, event string) (*models.Schedule, error) {
	if input.Round < 1 {
		return nil, fmt.Errorf("%w: %d", brackets.ErrInvalidRound, input.Round)
	}
	id := models.ScheduleID(input.TournamentID, input.Round)

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		current, err := s.fixtureRepo.Get(ctx, id)
		if err != nil {
			return nil, s.mapFixtureError(err)
		}

		updated, err := fn(current, input.MatchID, input.Score1, input.Score2)
		if err != nil {
			return nil, err
		}

		version, err := s.fixtureRepo.Replace(ctx, updated, current.Version)
		if errors.Is(err, repositories.ErrFixtureVersionConflict) {
			s.logger.Debug("fixture version conflict, retrying",
				slog.String("fixture_id", id),
				slog.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, s.mapFixtureError(err)
		}

		updated.Version = version
		s.logger.Info(event,
			slog.String("fixture_id", id),
			slog.String("match_id", input.MatchID),
			slog.Int("score1", input.Score1),
			slog.Int("score2", input.Score2),
			slog.Int64("version", version))
		s.notify(updated)
		return updated, nil
	}

	s.logger.Warn("giving up on fixture update",
		slog.String("fixture_id", id),
		slog.Int("attempts", s.maxAttempts))
	return nil, ErrConcurrentUpdate
}

func (s *fixtureService) GetStandings(ctx context.Context, tournamentID string, round int) ([]models.Standing, error) {
	schedule, err := s.GetFixture(ctx, tournamentID, round)
	if err != nil {
		return nil, err
	}
	return brackets.ComputeStandings(schedule, s.points), nil
}

func (s *fixtureService) notify(schedule *models.Schedule) {
	if s.notifier == nil {
		return
	}
	s.notifier.BroadcastToRoom(schedule.TournamentID, realtime.MessageFixtureUpdated, schedule)
}

func (s *fixtureService) mapFixtureError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrFixtureNotFound):
		return ErrFixtureNotFound
	case errors.Is(err, repositories.ErrFixtureAlreadyExists):
		return ErrFixtureExists
	case errors.Is(err, repositories.ErrFixtureTournamentInvalid):
		return ErrTournamentNotFound
	case errors.Is(err, ErrArchiveFailed), errors.Is(err, ErrConcurrentUpdate):
		return err
	}
	return fmt.Errorf("fixture store: %w", err)
}
