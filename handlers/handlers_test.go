package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dosada05/tournament-fixtures/brackets"
	"github.com/Dosada05/tournament-fixtures/middleware"
	"github.com/Dosada05/tournament-fixtures/models"
	"github.com/Dosada05/tournament-fixtures/services"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFixtureService struct {
	generate  func(tournamentID string, round int, replace bool) (*models.Schedule, error)
	get       func(tournamentID string, round int) (*models.Schedule, error)
	report    func(in services.ReportScoreInput) (*models.Schedule, error)
	override  func(in services.ReportScoreInput) (*models.Schedule, error)
	standings func(tournamentID string, round int) ([]models.Standing, error)
}

func (f *fakeFixtureService) GenerateFixture(_ context.Context, tid string, round int, replace bool) (*models.Schedule, error) {
	return f.generate(tid, round, replace)
}

func (f *fakeFixtureService) GetFixture(_ context.Context, tid string, round int) (*models.Schedule, error) {
	return f.get(tid, round)
}

func (f *fakeFixtureService) ListFixtures(context.Context, string) ([]*models.Schedule, error) {
	return []*models.Schedule{}, nil
}

func (f *fakeFixtureService) ReportScore(_ context.Context, in services.ReportScoreInput) (*models.Schedule, error) {
	return f.report(in)
}

func (f *fakeFixtureService) OverrideScore(_ context.Context, in services.ReportScoreInput) (*models.Schedule, error) {
	return f.override(in)
}

func (f *fakeFixtureService) GetStandings(_ context.Context, tid string, round int) ([]models.Standing, error) {
	return f.standings(tid, round)
}

type fakeRegistrationService struct {
	register    func(in services.RegisterTeamInput) (*models.Team, error)
	decide      func(teamID string, status models.TeamStatus, reason string) (*models.Team, error)
	list        func(tournamentID string, status *models.TeamStatus) ([]*models.Team, error)
	leaderTeams func(leaderID string) ([]*models.Team, error)
	byStatus    func(status models.TeamStatus) ([]*models.Team, error)
}

func (f *fakeRegistrationService) RegisterTeam(_ context.Context, in services.RegisterTeamInput) (*models.Team, error) {
	return f.register(in)
}

func (f *fakeRegistrationService) DecideTeam(_ context.Context, id string, status models.TeamStatus, reason string) (*models.Team, error) {
	return f.decide(id, status, reason)
}

func (f *fakeRegistrationService) ListTeams(_ context.Context, tid string, status *models.TeamStatus) ([]*models.Team, error) {
	return f.list(tid, status)
}

func (f *fakeRegistrationService) ListLeaderTeams(_ context.Context, leaderID string) ([]*models.Team, error) {
	return f.leaderTeams(leaderID)
}

func (f *fakeRegistrationService) ListTeamsByStatus(_ context.Context, status models.TeamStatus) ([]*models.Team, error) {
	return f.byStatus(status)
}

type fakeTournamentService struct {
	services.TournamentService
	update func(id string, in services.CreateTournamentInput) (*models.Tournament, error)
	remove func(id string) error
}

func (f *fakeTournamentService) Update(_ context.Context, id string, in services.CreateTournamentInput) (*models.Tournament, error) {
	return f.update(id, in)
}

func (f *fakeTournamentService) Delete(_ context.Context, id string) error {
	return f.remove(id)
}

var handlerTestSecret = []byte("handler-secret")

func bearer(t *testing.T, userID, role string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString(handlerTestSecret)
	require.NoError(t, err)
	return "Bearer " + token
}

func fixtureRouter(svc services.FixtureService) http.Handler {
	h := NewFixtureHandler(svc)
	r := chi.NewRouter()
	r.Route("/tournaments/{tournamentID}/fixtures", func(r chi.Router) {
		r.Get("/", h.ListFixtures)
		r.Post("/", h.GenerateFixture)
		r.Get("/{round}", h.GetFixture)
		r.Get("/{round}/standings", h.GetStandings)
		r.Put("/{round}/matches/{matchID}/score", h.ReportScore)
		r.Put("/{round}/matches/{matchID}/override", h.OverrideScore)
	})
	return r
}

func do(h http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if len(header) == 1 {
		req.Header.Set("Authorization", header[0])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sampleSchedule(t *testing.T) *models.Schedule {
	t.Helper()
	a := models.TeamRef{ID: "a", Name: "Alpha"}
	b := models.TeamRef{ID: "b", Name: "Beta"}
	s, err := models.NewSchedule("t1", 1, []models.Match{models.NewMatch("m1", a, b)})
	require.NoError(t, err)
	s.Version = 1
	return s
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	msg, _ := body["error"].(string)
	return msg
}

func TestGenerateFixtureHandler(t *testing.T) {
	var gotReplace bool
	svc := &fakeFixtureService{
		generate: func(tid string, round int, replace bool) (*models.Schedule, error) {
			gotReplace = replace
			if tid == "t1" && round == 1 {
				return sampleSchedule(t), nil
			}
			return nil, fmt.Errorf("failed to generate fixture: %w", brackets.ErrInsufficientParticipants)
		},
	}
	router := fixtureRouter(svc)

	rec := do(router, http.MethodPost, "/tournaments/t1/fixtures", `{"round":1,"replace":true}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, gotReplace)

	var body struct {
		ID      string `json:"id"`
		Version int64  `json:"version"`
		Matches []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"matches"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "t1_round_1", body.ID)
	assert.Equal(t, int64(1), body.Version)
	require.Len(t, body.Matches, 1)
	assert.Equal(t, "scheduled", body.Matches[0].Status)

	rec = do(router, http.MethodPost, "/tournaments/t2/fixtures", `{"round":1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(router, http.MethodPost, "/tournaments/t1/fixtures", `{"round":1,"merge":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "unknown key")
}

func TestFixtureHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrFixtureExists, http.StatusConflict},
		{services.ErrTournamentNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: boom", services.ErrArchiveFailed), http.StatusBadGateway},
		{fmt.Errorf("%w: 0", brackets.ErrInvalidRound), http.StatusBadRequest},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			router := fixtureRouter(&fakeFixtureService{
				generate: func(string, int, bool) (*models.Schedule, error) { return nil, tt.err },
			})
			rec := do(router, http.MethodPost, "/tournaments/t1/fixtures", `{"round":1}`)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestGetFixtureHandler(t *testing.T) {
	router := fixtureRouter(&fakeFixtureService{
		get: func(tid string, round int) (*models.Schedule, error) {
			if round == 1 {
				return sampleSchedule(t), nil
			}
			return nil, services.ErrFixtureNotFound
		},
	})

	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/tournaments/t1/fixtures/1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, "/tournaments/t1/fixtures/2", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodGet, "/tournaments/t1/fixtures/abc", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodGet, "/tournaments/t1/fixtures/0", "").Code)
}

func TestReportScoreHandler(t *testing.T) {
	var got services.ReportScoreInput
	calls := 0
	router := fixtureRouter(&fakeFixtureService{
		report: func(in services.ReportScoreInput) (*models.Schedule, error) {
			calls++
			got = in
			if in.MatchID == "done" {
				return nil, fmt.Errorf("%w: done", brackets.ErrMatchAlreadyCompleted)
			}
			s := sampleSchedule(t)
			return s.WithMatch(models.NewMatch("m1", models.TeamRef{ID: "a", Name: "Alpha"}, models.TeamRef{ID: "b", Name: "Beta"}).Complete(in.Score1, in.Score2))
		},
	})

	rec := do(router, http.MethodPut, "/tournaments/t1/fixtures/1/matches/m1/score", `{"score1":0,"score2":3}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, services.ReportScoreInput{TournamentID: "t1", Round: 1, MatchID: "m1", Score1: 0, Score2: 3}, got)
	assert.Contains(t, rec.Body.String(), `"winnerId": "b"`)

	rec = do(router, http.MethodPut, "/tournaments/t1/fixtures/1/matches/done/score", `{"score1":1,"score2":1}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	calls = 0
	rec = do(router, http.MethodPut, "/tournaments/t1/fixtures/1/matches/m1/score", `{"score1":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, calls)
}

func TestOverrideScoreHandler_RequiresConfirm(t *testing.T) {
	called := false
	router := fixtureRouter(&fakeFixtureService{
		override: func(in services.ReportScoreInput) (*models.Schedule, error) {
			called = true
			return sampleSchedule(t), nil
		},
	})

	rec := do(router, http.MethodPut, "/tournaments/t1/fixtures/1/matches/m1/override", `{"score1":2,"score2":2}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "confirm")
	assert.False(t, called)

	rec = do(router, http.MethodPut, "/tournaments/t1/fixtures/1/matches/m1/override", `{"score1":2,"score2":2,"confirm":true}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}

func TestStandingsHandler(t *testing.T) {
	router := fixtureRouter(&fakeFixtureService{
		standings: func(string, int) ([]models.Standing, error) {
			return []models.Standing{{Team: models.TeamRef{ID: "a", Name: "Alpha"}, Rank: 1, Points: 3}}, nil
		},
	})

	rec := do(router, http.MethodGet, "/tournaments/t1/fixtures/1/standings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"standings"`)
	assert.Contains(t, rec.Body.String(), `"Alpha"`)
}

func TestTeamHandler(t *testing.T) {
	var registered services.RegisterTeamInput
	svc := &fakeRegistrationService{
		register: func(in services.RegisterTeamInput) (*models.Team, error) {
			registered = in
			return &models.Team{ID: "team-1", TournamentID: in.TournamentID, TeamName: in.TeamName, Status: models.TeamStatusPending}, nil
		},
		decide: func(id string, status models.TeamStatus, reason string) (*models.Team, error) {
			if id == "decided" {
				return nil, services.ErrTeamAlreadyDecided
			}
			return &models.Team{ID: id, Status: status}, nil
		},
		list: func(tid string, status *models.TeamStatus) ([]*models.Team, error) {
			if status != nil && *status != models.TeamStatusApproved {
				return nil, services.ErrValidationFailed
			}
			return []*models.Team{}, nil
		},
	}
	h := NewTeamHandler(svc)
	r := chi.NewRouter()
	r.Get("/tournaments/{tournamentID}/teams", h.ListTeams)
	r.With(middleware.Authenticate(handlerTestSecret)).Post("/tournaments/{tournamentID}/teams", h.RegisterTeam)
	r.Patch("/teams/{teamID}/status", h.DecideTeam)

	body := `{"teamName":"Alpha","playerUsernames":["a1"],"paymentScreenshotUrl":"https://x/p.png"}`
	rec := do(r, http.MethodPost, "/tournaments/t1/teams", body, bearer(t, "leader-7", middleware.RolePlayer))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "t1", registered.TournamentID)
	assert.Equal(t, "leader-7", registered.TeamLeaderID)

	rec = do(r, http.MethodPost, "/tournaments/t1/teams", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(r, http.MethodPatch, "/teams/decided/status", `{"status":"approved"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(r, http.MethodPatch, "/teams/x/status", `{"status":"rejected","reason":"late"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/tournaments/t1/teams?status=approved", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/tournaments/t1/teams?status=maybe", "").Code)
}

func TestTeamHandler_Listings(t *testing.T) {
	var gotLeader string
	var gotStatus models.TeamStatus
	svc := &fakeRegistrationService{
		leaderTeams: func(leaderID string) ([]*models.Team, error) {
			gotLeader = leaderID
			return []*models.Team{{ID: "team-1", TeamLeaderID: leaderID}}, nil
		},
		byStatus: func(status models.TeamStatus) ([]*models.Team, error) {
			gotStatus = status
			if !status.Valid() {
				return nil, fmt.Errorf("%w: unknown team status", services.ErrValidationFailed)
			}
			return []*models.Team{}, nil
		},
		register: func(services.RegisterTeamInput) (*models.Team, error) {
			return nil, services.ErrTeamNameConflict
		},
	}
	h := NewTeamHandler(svc)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(handlerTestSecret))
	r.Get("/me/teams", h.ListMyTeams)
	r.Get("/teams", h.ListTeamsByStatus)
	r.Post("/tournaments/{tournamentID}/teams", h.RegisterTeam)

	rec := do(r, http.MethodGet, "/me/teams", "", bearer(t, "leader-7", middleware.RolePlayer))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "leader-7", gotLeader)
	assert.Contains(t, rec.Body.String(), `"team-1"`)

	rec = do(r, http.MethodGet, "/teams", "", bearer(t, "admin-1", middleware.RoleAdmin))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.TeamStatusPending, gotStatus)

	rec = do(r, http.MethodGet, "/teams?status=approved", "", bearer(t, "admin-1", middleware.RoleAdmin))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.TeamStatusApproved, gotStatus)

	rec = do(r, http.MethodGet, "/teams?status=maybe", "", bearer(t, "admin-1", middleware.RoleAdmin))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := `{"teamName":"Alpha","playerUsernames":["a1"],"paymentScreenshotUrl":"https://x/p.png"}`
	rec = do(r, http.MethodPost, "/tournaments/t1/teams", body, bearer(t, "leader-8", middleware.RolePlayer))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, services.ErrTeamNameConflict.Error(), errorMessage(t, rec))
}

func TestTournamentHandler_UpdateDelete(t *testing.T) {
	var updated services.CreateTournamentInput
	svc := &fakeTournamentService{
		update: func(id string, in services.CreateTournamentInput) (*models.Tournament, error) {
			switch id {
			case "missing":
				return nil, services.ErrTournamentNotFound
			case "crowded":
				return nil, services.ErrTournamentLimitBelowApproved
			}
			updated = in
			return &models.Tournament{ID: id, Name: in.Name, MaxTeamLimit: in.MaxTeamLimit}, nil
		},
		remove: func(id string) error {
			if id == "missing" {
				return services.ErrTournamentNotFound
			}
			return nil
		},
	}
	h := NewTournamentHandler(svc)
	r := chi.NewRouter()
	r.Put("/tournaments/{tournamentID}", h.UpdateHandler)
	r.Delete("/tournaments/{tournamentID}", h.DeleteHandler)

	body := `{"name":"Cup","game":"CS2","date":"2026-07-01T18:00:00Z","maxTeamLimit":8}`
	rec := do(r, http.MethodPut, "/tournaments/t1", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Cup", updated.Name)
	assert.Equal(t, 8, updated.MaxTeamLimit)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPut, "/tournaments/missing", body).Code)
	assert.Equal(t, http.StatusConflict, do(r, http.MethodPut, "/tournaments/crowded", body).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPut, "/tournaments/t1", `{"bogus":1}`).Code)

	rec = do(r, http.MethodDelete, "/tournaments/t1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/tournaments/missing", "").Code)
}
