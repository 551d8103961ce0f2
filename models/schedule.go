package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrDuplicateMatchID = errors.New("duplicate match id in schedule")
	ErrUnknownMatchID   = errors.New("match id is not part of the schedule")
	ErrInvalidSchedule  = errors.New("invalid schedule record")
)

// ScheduleID is the storage key of one round of one tournament.
func ScheduleID(tournamentID string, round int) string {
	return fmt.Sprintf("%s_round_%d", tournamentID, round)
}

// Schedule (fixture) is one generated round. Matches are kept in a map keyed by
// id with a separate order slice, so replacing a match is a single keyed write
// and the list can never lose or duplicate an entry.
type Schedule struct {
	ID           string
	TournamentID string
	Round        int
	// Version is the storage revision the schedule was read at. Zero means
	// the schedule has never been persisted.
	Version int64

	order   []string
	matches map[string]Match
}

func NewSchedule(tournamentID string, round int, matches []Match) (*Schedule, error) {
	s := &Schedule{
		ID:           ScheduleID(tournamentID, round),
		TournamentID: tournamentID,
		Round:        round,
		order:        make([]string, 0, len(matches)),
		matches:      make(map[string]Match, len(matches)),
	}
	for _, m := range matches {
		if _, dup := s.matches[m.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMatchID, m.ID)
		}
		s.order = append(s.order, m.ID)
		s.matches[m.ID] = m
	}
	return s, nil
}

func (s *Schedule) Len() int {
	return len(s.order)
}

// Matches returns the matches in generation order.
func (s *Schedule) Matches() []Match {
	out := make([]Match, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.matches[id])
	}
	return out
}

func (s *Schedule) Match(id string) (Match, bool) {
	m, ok := s.matches[id]
	return m, ok
}

// WithMatch returns a copy of s where the match with m.ID is replaced by m.
// Order and every other match are untouched; s itself is not modified.
func (s *Schedule) WithMatch(m Match) (*Schedule, error) {
	if _, ok := s.matches[m.ID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMatchID, m.ID)
	}
	next := s.Clone()
	next.matches[m.ID] = m
	return next, nil
}

func (s *Schedule) Clone() *Schedule {
	next := &Schedule{
		ID:           s.ID,
		TournamentID: s.TournamentID,
		Round:        s.Round,
		Version:      s.Version,
		order:        make([]string, len(s.order)),
		matches:      make(map[string]Match, len(s.matches)),
	}
	copy(next.order, s.order)
	for id, m := range s.matches {
		next.matches[id] = m
	}
	return next
}

// ScheduleRecord is the ordered-list form used at the storage and API boundary.
type ScheduleRecord struct {
	ID           string        `json:"id" dynamodbav:"PK"`
	TournamentID string        `json:"tournamentId" dynamodbav:"TournamentID"`
	Round        int           `json:"round" dynamodbav:"Round"`
	Matches      []MatchRecord `json:"matches" dynamodbav:"Matches"`
	Version      int64         `json:"version" dynamodbav:"Version"`
}

func (s *Schedule) Record() ScheduleRecord {
	rec := ScheduleRecord{
		ID:           s.ID,
		TournamentID: s.TournamentID,
		Round:        s.Round,
		Matches:      make([]MatchRecord, 0, len(s.order)),
		Version:      s.Version,
	}
	for _, id := range s.order {
		rec.Matches = append(rec.Matches, s.matches[id].Record())
	}
	return rec
}

// Schedule validates the record. Duplicated match ids are rejected rather than
// collapsed, so a corrupted list is noticed instead of silently repaired.
func (r ScheduleRecord) Schedule() (*Schedule, error) {
	if r.TournamentID == "" {
		return nil, fmt.Errorf("%w: empty tournament id", ErrInvalidSchedule)
	}
	if r.Round < 1 {
		return nil, fmt.Errorf("%w: round %d", ErrInvalidSchedule, r.Round)
	}
	if want := ScheduleID(r.TournamentID, r.Round); r.ID != want {
		return nil, fmt.Errorf("%w: id %q, expected %q", ErrInvalidSchedule, r.ID, want)
	}

	matches := make([]Match, 0, len(r.Matches))
	for _, mr := range r.Matches {
		m, err := mr.Match()
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}

	s, err := NewSchedule(r.TournamentID, r.Round, matches)
	if err != nil {
		return nil, err
	}
	s.Version = r.Version
	return s, nil
}

func (s Schedule) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Record())
}

func (s *Schedule) UnmarshalJSON(data []byte) error {
	var rec ScheduleRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	parsed, err := rec.Schedule()
	if err != nil {
		return err
	}
	*s = *parsed
	return nil
}
