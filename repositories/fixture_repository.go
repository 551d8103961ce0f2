package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-fixtures/models"
	"github.com/lib/pq"
)

var (
	ErrFixtureNotFound          = errors.New("fixture not found")
	ErrFixtureAlreadyExists     = errors.New("fixture already exists for this round")
	ErrFixtureVersionConflict   = errors.New("fixture was modified concurrently")
	ErrFixtureTournamentInvalid = errors.New("fixture tournament conflict or invalid")
)

// FixtureRepository persists whole schedules. A schedule is always written as
// one document; single matches are never patched in place.
type FixtureRepository interface {
	Get(ctx context.Context, id string) (*models.Schedule, error)
	ListByTournament(ctx context.Context, tournamentID string) ([]*models.Schedule, error)
	// Create stores a schedule only if none exists under its id.
	Create(ctx context.Context, schedule *models.Schedule) (int64, error)
	// Replace writes the schedule only if the stored version still equals
	// expectedVersion, returning the new version.
	Replace(ctx context.Context, schedule *models.Schedule, expectedVersion int64) (int64, error)
	// DeleteByTournament removes every round of a tournament and reports how
	// many were removed.
	DeleteByTournament(ctx context.Context, tournamentID string) (int, error)
}

type postgresFixtureRepository struct {
	db SQLExecutor
}

func NewPostgresFixtureRepository(db *sql.DB) FixtureRepository {
	return &postgresFixtureRepository{db: db}
}

func (r *postgresFixtureRepository) Get(ctx context.Context, id string) (*models.Schedule, error) {
	query := `SELECT id, tournament_id, round, matches, version FROM fixtures WHERE id = $1`

	schedule, err := scanFixture(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFixtureNotFound
		}
		return nil, err
	}
	return schedule, nil
}

func (r *postgresFixtureRepository) ListByTournament(ctx context.Context, tournamentID string) ([]*models.Schedule, error) {
	query := `
		SELECT id, tournament_id, round, matches, version
		FROM fixtures
		WHERE tournament_id = $1
		ORDER BY round ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schedules := make([]*models.Schedule, 0)
	for rows.Next() {
		s, scanErr := scanFixture(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		schedules = append(schedules, s)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *postgresFixtureRepository) Create(ctx context.Context, schedule *models.Schedule) (int64, error) {
	matches, err := encodeMatches(schedule)
	if err != nil {
		return 0, err
	}

	query := `
		INSERT INTO fixtures (id, tournament_id, round, matches, version)
		VALUES ($1, $2, $3, $4, 1)
		ON CONFLICT (id) DO NOTHING
		RETURNING version`

	var version int64
	err = r.db.QueryRowContext(ctx, query, schedule.ID, schedule.TournamentID, schedule.Round, matches).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrFixtureAlreadyExists
		}
		return 0, r.handleFixtureError(err)
	}
	return version, nil
}

func (r *postgresFixtureRepository) Replace(ctx context.Context, schedule *models.Schedule, expectedVersion int64) (int64, error) {
	matches, err := encodeMatches(schedule)
	if err != nil {
		return 0, err
	}

	query := `
		UPDATE fixtures
		SET matches = $1, version = version + 1, updated_at = now()
		WHERE id = $2 AND version = $3
		RETURNING version`

	var version int64
	err = r.db.QueryRowContext(ctx, query, matches, schedule.ID, expectedVersion).Scan(&version)
	if err == nil {
		return version, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM fixtures WHERE id = $1)`, schedule.ID).Scan(&exists); err != nil {
		return 0, err
	}
	if !exists {
		return 0, ErrFixtureNotFound
	}
	return 0, ErrFixtureVersionConflict
}

func (r *postgresFixtureRepository) DeleteByTournament(ctx context.Context, tournamentID string) (int, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM fixtures WHERE tournament_id = $1`, tournamentID)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check deleted fixtures: %w", err)
	}
	return int(n), nil
}

func encodeMatches(schedule *models.Schedule) ([]byte, error) {
	matches, err := json.Marshal(schedule.Record().Matches)
	if err != nil {
		return nil, fmt.Errorf("failed to encode matches of fixture %s: %w", schedule.ID, err)
	}
	return matches, nil
}

func scanFixture(row rowScanner) (*models.Schedule, error) {
	var (
		rec     models.ScheduleRecord
		matches []byte
	)
	if err := row.Scan(&rec.ID, &rec.TournamentID, &rec.Round, &matches, &rec.Version); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(matches, &rec.Matches); err != nil {
		return nil, fmt.Errorf("failed to decode matches of fixture %s: %w", rec.ID, err)
	}
	return rec.Schedule()
}

func (r *postgresFixtureRepository) handleFixtureError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23503" && pqErr.Constraint == "fixtures_tournament_id_fkey" {
		return ErrFixtureTournamentInvalid
	}
	return err
}
