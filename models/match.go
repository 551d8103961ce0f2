package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

type MatchStatus string

const (
	MatchStatusScheduled MatchStatus = "scheduled"
	MatchStatusCompleted MatchStatus = "completed"
)

var ErrInvalidMatchRecord = errors.New("invalid match record")

// TeamRef is the id + display name captured when a schedule is generated.
type TeamRef struct {
	ID   string `json:"id" dynamodbav:"ID"`
	Name string `json:"name" dynamodbav:"Name"`
}

// Result is attached to a match once it is completed. Fields are read-only so
// a result can only come from Match.Complete or a validated record.
type Result struct {
	team1Score int
	team2Score int
	winner     *TeamRef
}

func (r Result) Team1Score() int { return r.team1Score }
func (r Result) Team2Score() int { return r.team2Score }

// Winner is unset on a draw.
func (r Result) Winner() (TeamRef, bool) {
	if r.winner == nil {
		return TeamRef{}, false
	}
	return *r.winner, true
}

func (r Result) IsDraw() bool {
	return r.winner == nil
}

// Match is either scheduled (no result) or completed (result present).
type Match struct {
	ID     string
	Team1  TeamRef
	Team2  TeamRef
	result *Result
}

func NewMatch(id string, team1, team2 TeamRef) Match {
	return Match{ID: id, Team1: team1, Team2: team2}
}

func (m Match) Status() MatchStatus {
	if m.result != nil {
		return MatchStatusCompleted
	}
	return MatchStatusScheduled
}

func (m Match) Result() (Result, bool) {
	if m.result == nil {
		return Result{}, false
	}
	return *m.result, true
}

// WinnerID returns "" for scheduled matches and draws.
func (m Match) WinnerID() string {
	if m.result == nil || m.result.winner == nil {
		return ""
	}
	return m.result.winner.ID
}

// Complete returns a copy of m carrying the given scores. The winner is the
// side with the strictly higher score. Score validation is the caller's job.
func (m Match) Complete(score1, score2 int) Match {
	res := &Result{team1Score: score1, team2Score: score2}
	switch {
	case score1 > score2:
		w := m.Team1
		res.winner = &w
	case score2 > score1:
		w := m.Team2
		res.winner = &w
	}
	m.result = res
	return m
}

// MatchRecord is the serializable shape of a match, shared by the JSON API
// and the document stores.
type MatchRecord struct {
	ID         string      `json:"id" dynamodbav:"ID"`
	Team1      TeamRef     `json:"team1" dynamodbav:"Team1"`
	Team2      TeamRef     `json:"team2" dynamodbav:"Team2"`
	Team1Score *int        `json:"team1Score,omitempty" dynamodbav:"Team1Score,omitempty"`
	Team2Score *int        `json:"team2Score,omitempty" dynamodbav:"Team2Score,omitempty"`
	WinnerID   *string     `json:"winnerId,omitempty" dynamodbav:"WinnerID,omitempty"`
	Status     MatchStatus `json:"status" dynamodbav:"Status"`
}

func (m Match) Record() MatchRecord {
	rec := MatchRecord{
		ID:     m.ID,
		Team1:  m.Team1,
		Team2:  m.Team2,
		Status: m.Status(),
	}
	if m.result != nil {
		s1, s2 := m.result.team1Score, m.result.team2Score
		rec.Team1Score = &s1
		rec.Team2Score = &s2
		if m.result.winner != nil {
			id := m.result.winner.ID
			rec.WinnerID = &id
		}
	}
	return rec
}

// Match validates the record and converts it back. A completed record must
// carry both scores and the winner they imply; a scheduled one must carry none.
func (r MatchRecord) Match() (Match, error) {
	if r.ID == "" {
		return Match{}, fmt.Errorf("%w: empty id", ErrInvalidMatchRecord)
	}
	if r.Team1.ID == "" || r.Team2.ID == "" {
		return Match{}, fmt.Errorf("%w: match %s has an empty team id", ErrInvalidMatchRecord, r.ID)
	}
	if r.Team1.ID == r.Team2.ID {
		return Match{}, fmt.Errorf("%w: match %s pairs team %s with itself", ErrInvalidMatchRecord, r.ID, r.Team1.ID)
	}

	m := NewMatch(r.ID, r.Team1, r.Team2)

	switch r.Status {
	case MatchStatusScheduled:
		if r.Team1Score != nil || r.Team2Score != nil || r.WinnerID != nil {
			return Match{}, fmt.Errorf("%w: scheduled match %s carries a result", ErrInvalidMatchRecord, r.ID)
		}
		return m, nil
	case MatchStatusCompleted:
		if r.Team1Score == nil || r.Team2Score == nil {
			return Match{}, fmt.Errorf("%w: completed match %s is missing scores", ErrInvalidMatchRecord, r.ID)
		}
		if *r.Team1Score < 0 || *r.Team2Score < 0 {
			return Match{}, fmt.Errorf("%w: match %s has a negative score", ErrInvalidMatchRecord, r.ID)
		}
		m = m.Complete(*r.Team1Score, *r.Team2Score)
		got := ""
		if r.WinnerID != nil {
			got = *r.WinnerID
		}
		if got != m.WinnerID() {
			return Match{}, fmt.Errorf("%w: match %s winner %q does not follow from score %d-%d",
				ErrInvalidMatchRecord, r.ID, got, *r.Team1Score, *r.Team2Score)
		}
		return m, nil
	default:
		return Match{}, fmt.Errorf("%w: match %s has unknown status %q", ErrInvalidMatchRecord, r.ID, r.Status)
	}
}

func (m Match) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Record())
}

func (m *Match) UnmarshalJSON(data []byte) error {
	var rec MatchRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	parsed, err := rec.Match()
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
