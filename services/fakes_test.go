package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/Dosada05/tournament-fixtures/models"
	"github.com/Dosada05/tournament-fixtures/repositories"
	"github.com/Dosada05/tournament-fixtures/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memTournamentRepo struct {
	mu          sync.Mutex
	tournaments map[string]*models.Tournament
}

func newMemTournamentRepo(ts ...*models.Tournament) *memTournamentRepo {
	r := &memTournamentRepo{tournaments: map[string]*models.Tournament{}}
	for _, t := range ts {
		r.tournaments[t.ID] = t
	}
	return r
}

func (r *memTournamentRepo) Create(_ context.Context, t *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.tournaments {
		if existing.Name == t.Name {
			return repositories.ErrTournamentNameConflict
		}
	}
	cp := *t
	r.tournaments[t.ID] = &cp
	return nil
}

func (r *memTournamentRepo) GetByID(_ context.Context, id string) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *memTournamentRepo) List(_ context.Context) ([]*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Tournament, 0, len(r.tournaments))
	for _, t := range r.tournaments {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memTournamentRepo) Update(_ context.Context, t *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tournaments[t.ID]; !ok {
		return repositories.ErrTournamentNotFound
	}
	for id, existing := range r.tournaments {
		if id != t.ID && existing.Name == t.Name {
			return repositories.ErrTournamentNameConflict
		}
	}
	cp := *t
	r.tournaments[t.ID] = &cp
	return nil
}

func (r *memTournamentRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.tournaments, id)
	return nil
}

type memTeamRepo struct {
	mu    sync.Mutex
	teams []*models.Team
	// tournaments supplies max_team_limit for Approve; nil means no limit.
	tournaments *memTournamentRepo
}

func (r *memTeamRepo) Create(_ context.Context, team *models.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.teams {
		if t.TournamentID != team.TournamentID {
			continue
		}
		if t.TeamLeaderID == team.TeamLeaderID {
			return repositories.ErrTeamRegistrationConflict
		}
		if t.TeamName == team.TeamName {
			return repositories.ErrTeamNameConflict
		}
	}
	cp := *team
	r.teams = append(r.teams, &cp)
	return nil
}

func (r *memTeamRepo) GetByID(_ context.Context, id string) (*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.teams {
		if t.ID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repositories.ErrTeamNotFound
}

func (r *memTeamRepo) ListByTournament(_ context.Context, tournamentID string, status *models.TeamStatus) ([]*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Team, 0)
	for _, t := range r.teams {
		if t.TournamentID != tournamentID || (status != nil && t.Status != *status) {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memTeamRepo) ListByLeader(_ context.Context, leaderID string) ([]*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Team, 0)
	for i := len(r.teams) - 1; i >= 0; i-- {
		if r.teams[i].TeamLeaderID == leaderID {
			cp := *r.teams[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memTeamRepo) ListByStatus(_ context.Context, status models.TeamStatus) ([]*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Team, 0)
	for _, t := range r.teams {
		if t.Status == status {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memTeamRepo) Approve(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var team *models.Team
	for _, t := range r.teams {
		if t.ID == id {
			team = t
		}
	}
	if team == nil {
		return repositories.ErrTeamNotFound
	}
	if r.tournaments != nil {
		tournament, err := r.tournaments.GetByID(ctx, team.TournamentID)
		if err != nil {
			return repositories.ErrTeamNotFound
		}
		approved := 0
		for _, t := range r.teams {
			if t.TournamentID == team.TournamentID && t.Status == models.TeamStatusApproved {
				approved++
			}
		}
		if approved >= tournament.MaxTeamLimit {
			return repositories.ErrTeamTournamentFull
		}
	}
	if team.Status != models.TeamStatusPending {
		return repositories.ErrTeamStatusConflict
	}
	team.Status = models.TeamStatusApproved
	team.RejectionReason = nil
	return nil
}

func (r *memTeamRepo) CountByStatus(ctx context.Context, tournamentID string, status models.TeamStatus) (int, error) {
	teams, err := r.ListByTournament(ctx, tournamentID, &status)
	return len(teams), err
}

func (r *memTeamRepo) UpdateStatus(_ context.Context, id string, from, to models.TeamStatus, reason *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.teams {
		if t.ID != id {
			continue
		}
		if t.Status != from {
			return repositories.ErrTeamStatusConflict
		}
		t.Status = to
		t.RejectionReason = reason
		return nil
	}
	return repositories.ErrTeamNotFound
}

// memFixtureRepo stores schedule records so that every read returns a fresh
// copy, like a real store would.
type memFixtureRepo struct {
	mu      sync.Mutex
	records map[string]models.ScheduleRecord
	// beforeReplace runs before the version check of Replace.
	beforeReplace func()
	replaces      int
}

func newMemFixtureRepo() *memFixtureRepo {
	return &memFixtureRepo{records: map[string]models.ScheduleRecord{}}
}

func (r *memFixtureRepo) Get(_ context.Context, id string) (*models.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, repositories.ErrFixtureNotFound
	}
	return rec.Schedule()
}

func (r *memFixtureRepo) ListByTournament(_ context.Context, tournamentID string) ([]*models.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Schedule, 0)
	for _, rec := range r.records {
		if rec.TournamentID != tournamentID {
			continue
		}
		s, err := rec.Schedule()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Round < out[j].Round })
	return out, nil
}

func (r *memFixtureRepo) Create(_ context.Context, s *models.Schedule) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[s.ID]; ok {
		return 0, repositories.ErrFixtureAlreadyExists
	}
	return r.store(s, 1), nil
}

func (r *memFixtureRepo) Replace(_ context.Context, s *models.Schedule, expected int64) (int64, error) {
	if r.beforeReplace != nil {
		r.beforeReplace()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replaces++
	rec, ok := r.records[s.ID]
	if !ok {
		return 0, repositories.ErrFixtureNotFound
	}
	if rec.Version != expected {
		return 0, repositories.ErrFixtureVersionConflict
	}
	return r.store(s, expected+1), nil
}

func (r *memFixtureRepo) DeleteByTournament(_ context.Context, tournamentID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, rec := range r.records {
		if rec.TournamentID == tournamentID {
			delete(r.records, id)
			n++
		}
	}
	return n, nil
}

func (r *memFixtureRepo) store(s *models.Schedule, version int64) int64 {
	rec := s.Record()
	rec.Version = version
	r.records[s.ID] = rec
	return version
}

// bump simulates a concurrent writer touching the stored schedule.
func (r *memFixtureRepo) bump(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.records[id]
	rec.Version++
	r.records[id] = rec
}

type recordingArchive struct {
	archived  []*models.Schedule
	discarded []string
	err       error
	// onArchive runs after a copy is taken, before Archive returns.
	onArchive func(*models.Schedule)
}

func archiveKey(s *models.Schedule) string {
	return fmt.Sprintf("%s/v%d", s.ID, s.Version)
}

func (a *recordingArchive) Archive(_ context.Context, s *models.Schedule) (*storage.UploadResult, error) {
	if a.err != nil {
		return nil, a.err
	}
	a.archived = append(a.archived, s)
	if a.onArchive != nil {
		a.onArchive(s)
	}
	return &storage.UploadResult{Key: archiveKey(s)}, nil
}

func (a *recordingArchive) Discard(_ context.Context, key string) error {
	a.discarded = append(a.discarded, key)
	return nil
}

// kept returns the archived copies that were not discarded.
func (a *recordingArchive) kept() []*models.Schedule {
	out := make([]*models.Schedule, 0, len(a.archived))
	for _, s := range a.archived {
		discarded := false
		for _, key := range a.discarded {
			if key == archiveKey(s) {
				discarded = true
			}
		}
		if !discarded {
			out = append(out, s)
		}
	}
	return out
}

type broadcast struct {
	room        string
	messageType string
	payload     interface{}
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []broadcast
}

func (n *recordingNotifier) BroadcastToRoom(room, messageType string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, broadcast{room: room, messageType: messageType, payload: payload})
}

var errStoreDown = errors.New("store down")
