package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Dosada05/tournament-fixtures/models"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var teamRowColumns = []string{"id", "tournament_id", "team_name", "player_usernames", "team_leader_id",
	"payment_screenshot_url", "status", "rejection_reason", "created_at"}

func newMockTeamRepo(t *testing.T) (TeamRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresTeamRepository(db), mock
}

func TestPostgresTeam_UpdateStatus(t *testing.T) {
	t.Run("pending team", func(t *testing.T) {
		repo, mock := newMockTeamRepo(t)
		mock.ExpectExec(`UPDATE teams`).
			WithArgs("approved", sqlmock.AnyArg(), "team-1", "pending").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateStatus(context.Background(), "team-1", models.TeamStatusPending, models.TeamStatusApproved, nil)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already decided", func(t *testing.T) {
		repo, mock := newMockTeamRepo(t)
		mock.ExpectExec(`UPDATE teams`).
			WithArgs("approved", sqlmock.AnyArg(), "team-1", "pending").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`FROM teams WHERE id`).
			WithArgs("team-1").
			WillReturnRows(sqlmock.NewRows(teamRowColumns).
				AddRow("team-1", "t1", "Alpha", []byte("{a1,a2}"), "u1", "https://x/p.png", "rejected", "late", time.Now()))

		err := repo.UpdateStatus(context.Background(), "team-1", models.TeamStatusPending, models.TeamStatusApproved, nil)
		assert.ErrorIs(t, err, ErrTeamStatusConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing team", func(t *testing.T) {
		repo, mock := newMockTeamRepo(t)
		mock.ExpectExec(`UPDATE teams`).
			WithArgs("approved", sqlmock.AnyArg(), "ghost", "pending").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`FROM teams WHERE id`).
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows(teamRowColumns))

		err := repo.UpdateStatus(context.Background(), "ghost", models.TeamStatusPending, models.TeamStatusApproved, nil)
		assert.ErrorIs(t, err, ErrTeamNotFound)
	})
}

func TestPostgresTeam_CreateConflict(t *testing.T) {
	repo, mock := newMockTeamRepo(t)
	mock.ExpectQuery(`INSERT INTO teams`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "teams_tournament_id_team_leader_id_key"})

	err := repo.Create(context.Background(), &models.Team{
		ID: "team-2", TournamentID: "t1", TeamName: "Beta", PlayerUsernames: []string{"b1"},
		TeamLeaderID: "u1", Status: models.TeamStatusPending,
	})
	assert.ErrorIs(t, err, ErrTeamRegistrationConflict)
}

func TestPostgresTeam_CreateNameTaken(t *testing.T) {
	repo, mock := newMockTeamRepo(t)
	mock.ExpectQuery(`INSERT INTO teams`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "teams_tournament_id_team_name_key"})

	err := repo.Create(context.Background(), &models.Team{
		ID: "team-3", TournamentID: "t1", TeamName: "Alpha", PlayerUsernames: []string{"c1"},
		TeamLeaderID: "u3", Status: models.TeamStatusPending,
	})
	assert.ErrorIs(t, err, ErrTeamNameConflict)
}

func TestPostgresTeam_Approve(t *testing.T) {
	lockQuery := `SELECT t.id, t.max_team_limit\s+FROM teams tm\s+JOIN tournaments t ON t.id = tm.tournament_id\s+WHERE tm.id = \$1\s+FOR UPDATE OF t`
	countQuery := `SELECT COUNT\(\*\) FROM teams WHERE tournament_id = \$1 AND status = \$2`

	t.Run("below limit", func(t *testing.T) {
		repo, mock := newMockTeamRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs("team-1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "max_team_limit"}).AddRow("t1", 4))
		mock.ExpectQuery(countQuery).WithArgs("t1", "approved").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
		mock.ExpectExec(`UPDATE teams`).WithArgs("approved", "team-1", "pending").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, repo.Approve(context.Background(), "team-1"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("limit reached", func(t *testing.T) {
		repo, mock := newMockTeamRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs("team-1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "max_team_limit"}).AddRow("t1", 4))
		mock.ExpectQuery(countQuery).WithArgs("t1", "approved").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
		mock.ExpectRollback()

		assert.ErrorIs(t, repo.Approve(context.Background(), "team-1"), ErrTeamTournamentFull)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already decided", func(t *testing.T) {
		repo, mock := newMockTeamRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs("team-1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "max_team_limit"}).AddRow("t1", 4))
		mock.ExpectQuery(countQuery).WithArgs("t1", "approved").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectExec(`UPDATE teams`).WithArgs("approved", "team-1", "pending").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		assert.ErrorIs(t, repo.Approve(context.Background(), "team-1"), ErrTeamStatusConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing team", func(t *testing.T) {
		repo, mock := newMockTeamRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows([]string{"id", "max_team_limit"}))
		mock.ExpectRollback()

		assert.ErrorIs(t, repo.Approve(context.Background(), "ghost"), ErrTeamNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresTeam_ListByLeaderAndStatus(t *testing.T) {
	repo, mock := newMockTeamRepo(t)
	now := time.Now()
	mock.ExpectQuery(`FROM teams WHERE team_leader_id = \$1 ORDER BY created_at DESC, id ASC`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(teamRowColumns).
			AddRow("team-9", "t2", "Alpha", []byte("{a1}"), "u1", "u", "pending", nil, now).
			AddRow("team-1", "t1", "Alpha", []byte("{a1}"), "u1", "u", "approved", nil, now.Add(-time.Hour)))
	mock.ExpectQuery(`FROM teams WHERE status = \$1 ORDER BY created_at ASC, id ASC`).
		WithArgs("pending").
		WillReturnRows(sqlmock.NewRows(teamRowColumns).
			AddRow("team-9", "t2", "Alpha", []byte("{a1}"), "u1", "u", "pending", nil, now))

	mine, err := repo.ListByLeader(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "team-9", mine[0].ID)
	assert.Equal(t, "t1", mine[1].TournamentID)

	pending, err := repo.ListByStatus(context.Background(), models.TeamStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, models.TeamStatusPending, pending[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTeam_ListByTournamentKeepsOrder(t *testing.T) {
	repo, mock := newMockTeamRepo(t)
	now := time.Now()
	mock.ExpectQuery(`FROM teams WHERE tournament_id = \$1 AND status = \$2 ORDER BY created_at ASC, id ASC`).
		WithArgs("t1", "approved").
		WillReturnRows(sqlmock.NewRows(teamRowColumns).
			AddRow("team-1", "t1", "Alpha", []byte("{a1}"), "u1", "u", "approved", nil, now).
			AddRow("team-2", "t1", "Beta", []byte("{b1}"), "u2", "u", "approved", nil, now.Add(time.Second)))

	status := models.TeamStatusApproved
	teams, err := repo.ListByTournament(context.Background(), "t1", &status)
	require.NoError(t, err)
	require.Len(t, teams, 2)
	assert.Equal(t, "team-1", teams[0].ID)
	assert.Equal(t, []string{"a1"}, teams[0].PlayerUsernames)
	assert.Equal(t, []models.TeamRef{{ID: "team-1", Name: "Alpha"}, {ID: "team-2", Name: "Beta"}}, models.ApprovedRefs(teams))
}
