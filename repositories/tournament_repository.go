package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/tournament-fixtures/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentNameConflict = errors.New("tournament name already exists")
)

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, id string) (*models.Tournament, error)
	List(ctx context.Context) ([]*models.Tournament, error)
	Update(ctx context.Context, tournament *models.Tournament) error
	// Delete removes the tournament; its teams and fixtures go with it.
	Delete(ctx context.Context, id string) error
}

type postgresTournamentRepository struct {
	db SQLExecutor
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

const tournamentColumns = `id, name, game, description, date, entry_fee, currency,
	qr_code_url, banner_url, max_team_limit, created_at`

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (id, name, game, description, date, entry_fee, currency,
			qr_code_url, banner_url, max_team_limit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		t.ID, t.Name, t.Game, t.Description, t.Date, t.EntryFee, t.Currency,
		t.QRCodeURL, t.BannerURL, t.MaxTeamLimit,
	).Scan(&t.CreatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id string) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`

	t, err := scanTournament(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context) ([]*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments ORDER BY date ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		t, scanErr := scanTournament(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) Update(ctx context.Context, t *models.Tournament) error {
	query := `
		UPDATE tournaments SET
			name = $1,
			game = $2,
			description = $3,
			date = $4,
			entry_fee = $5,
			currency = $6,
			qr_code_url = $7,
			banner_url = $8,
			max_team_limit = $9
		WHERE id = $10
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		t.Name, t.Game, t.Description, t.Date, t.EntryFee, t.Currency,
		t.QRCodeURL, t.BannerURL, t.MaxTeamLimit,
		t.ID,
	).Scan(&t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrTournamentNotFound
	}
	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tournaments WHERE id = $1`, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTournament(row rowScanner) (*models.Tournament, error) {
	var t models.Tournament
	err := row.Scan(
		&t.ID, &t.Name, &t.Game, &t.Description, &t.Date, &t.EntryFee, &t.Currency,
		&t.QRCodeURL, &t.BannerURL, &t.MaxTeamLimit, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == "tournaments_name_key" {
		return ErrTournamentNameConflict
	}
	return err
}
