package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Dosada05/tournament-fixtures/models"
	"github.com/lib/pq"
)

var (
	ErrTeamNotFound             = errors.New("team not found")
	ErrTeamRegistrationConflict = errors.New("team leader already registered a team for this tournament")
	ErrTeamTournamentInvalid    = errors.New("team tournament conflict or invalid")
	ErrTeamNameConflict         = errors.New("team name already registered for this tournament")
	ErrTeamStatusConflict       = errors.New("team status changed concurrently")
	ErrTeamTournamentFull       = errors.New("tournament approved team limit reached")
)

type TeamRepository interface {
	Create(ctx context.Context, team *models.Team) error
	GetByID(ctx context.Context, id string) (*models.Team, error)
	// ListByTournament returns teams in registration order.
	ListByTournament(ctx context.Context, tournamentID string, status *models.TeamStatus) ([]*models.Team, error)
	// ListByLeader returns every registration of one leader, newest first.
	ListByLeader(ctx context.Context, leaderID string) ([]*models.Team, error)
	// ListByStatus returns teams of all tournaments in registration order.
	ListByStatus(ctx context.Context, status models.TeamStatus) ([]*models.Team, error)
	CountByStatus(ctx context.Context, tournamentID string, status models.TeamStatus) (int, error)
	// UpdateStatus moves a team from one status to another; it fails with
	// ErrTeamStatusConflict when the stored status is no longer `from`.
	UpdateStatus(ctx context.Context, id string, from, to models.TeamStatus, rejectionReason *string) error
	// Approve moves a pending team to approved unless the tournament already
	// holds max_team_limit approved teams (ErrTeamTournamentFull).
	Approve(ctx context.Context, id string) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

const teamColumns = `id, tournament_id, team_name, player_usernames, team_leader_id,
	payment_screenshot_url, status, rejection_reason, created_at`

func (r *postgresTeamRepository) Create(ctx context.Context, team *models.Team) error {
	query := `
		INSERT INTO teams (id, tournament_id, team_name, player_usernames, team_leader_id,
			payment_screenshot_url, status, rejection_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		team.ID,
		team.TournamentID,
		team.TeamName,
		pq.Array(team.PlayerUsernames),
		team.TeamLeaderID,
		team.PaymentScreenshotURL,
		team.Status,
		team.RejectionReason,
	).Scan(&team.CreatedAt)

	return r.handleTeamError(err)
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id string) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`

	team, err := scanTeam(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return team, nil
}

func (r *postgresTeamRepository) ListByTournament(ctx context.Context, tournamentID string, statusFilter *models.TeamStatus) ([]*models.Team, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + teamColumns + ` FROM teams WHERE tournament_id = $1`)

	args := []interface{}{tournamentID}
	if statusFilter != nil {
		queryBuilder.WriteString(" AND status = $")
		queryBuilder.WriteString(strconv.Itoa(len(args) + 1))
		args = append(args, *statusFilter)
	}
	queryBuilder.WriteString(" ORDER BY created_at ASC, id ASC")

	return r.queryTeams(ctx, queryBuilder.String(), args...)
}

func (r *postgresTeamRepository) ListByLeader(ctx context.Context, leaderID string) ([]*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE team_leader_id = $1 ORDER BY created_at DESC, id ASC`
	return r.queryTeams(ctx, query, leaderID)
}

func (r *postgresTeamRepository) ListByStatus(ctx context.Context, status models.TeamStatus) ([]*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE status = $1 ORDER BY created_at ASC, id ASC`
	return r.queryTeams(ctx, query, status)
}

func (r *postgresTeamRepository) queryTeams(ctx context.Context, query string, args ...interface{}) ([]*models.Team, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		team, scanErr := scanTeam(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		teams = append(teams, team)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *postgresTeamRepository) CountByStatus(ctx context.Context, tournamentID string, status models.TeamStatus) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM teams WHERE tournament_id = $1 AND status = $2`
	if err := r.db.QueryRowContext(ctx, query, tournamentID, status).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *postgresTeamRepository) UpdateStatus(ctx context.Context, id string, from, to models.TeamStatus, rejectionReason *string) error {
	query := `
		UPDATE teams
		SET status = $1, rejection_reason = $2
		WHERE id = $3 AND status = $4`

	result, err := r.db.ExecContext(ctx, query, to, rejectionReason, id, from)
	if err != nil {
		return err
	}

	if err := checkAffectedRows(result, ErrTeamStatusConflict); err != nil {
		if !errors.Is(err, ErrTeamStatusConflict) {
			return err
		}
		// Отличаем "нет такой команды" от "статус уже изменён"
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return err
	}
	return nil
}

func (r *postgresTeamRepository) Approve(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("approve failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	// Блокируем строку турнира: одобрения одного турнира идут по очереди
	var (
		tournamentID string
		limit        int
	)
	err = tx.QueryRowContext(ctx, `
		SELECT t.id, t.max_team_limit
		FROM teams tm
		JOIN tournaments t ON t.id = tm.tournament_id
		WHERE tm.id = $1
		FOR UPDATE OF t`, id).Scan(&tournamentID, &limit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTeamNotFound
		}
		return err
	}

	var approved int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM teams WHERE tournament_id = $1 AND status = $2`,
		tournamentID, models.TeamStatusApproved).Scan(&approved)
	if err != nil {
		return err
	}
	if approved >= limit {
		return ErrTeamTournamentFull
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE teams
		SET status = $1, rejection_reason = NULL
		WHERE id = $2 AND status = $3`,
		models.TeamStatusApproved, id, models.TeamStatusPending)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamStatusConflict)
}

func scanTeam(row rowScanner) (*models.Team, error) {
	var team models.Team
	err := row.Scan(
		&team.ID,
		&team.TournamentID,
		&team.TeamName,
		pq.Array(&team.PlayerUsernames),
		&team.TeamLeaderID,
		&team.PaymentScreenshotURL,
		&team.Status,
		&team.RejectionReason,
		&team.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *postgresTeamRepository) handleTeamError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			switch pqErr.Constraint {
			case "teams_tournament_id_team_leader_id_key":
				return ErrTeamRegistrationConflict
			case "teams_tournament_id_team_name_key":
				return ErrTeamNameConflict
			}
		case "23503": // foreign_key_violation
			if pqErr.Constraint == "teams_tournament_id_fkey" {
				return ErrTeamTournamentInvalid
			}
		}
	}
	return err
}
