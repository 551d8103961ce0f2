package models

import "time"

type TeamStatus string

const (
	TeamStatusPending  TeamStatus = "pending"
	TeamStatusApproved TeamStatus = "approved"
	TeamStatusRejected TeamStatus = "rejected"
)

func (s TeamStatus) Valid() bool {
	switch s {
	case TeamStatusPending, TeamStatusApproved, TeamStatusRejected:
		return true
	}
	return false
}

// Team is a registration submitted for one tournament. Status leaves pending
// exactly once, by an admin decision.
type Team struct {
	ID                   string     `json:"id" db:"id"`
	TournamentID         string     `json:"tournamentId" db:"tournament_id"`
	TeamName             string     `json:"teamName" db:"team_name"`
	PlayerUsernames      []string   `json:"playerUsernames" db:"player_usernames"`
	TeamLeaderID         string     `json:"teamLeaderId" db:"team_leader_id"`
	PaymentScreenshotURL string     `json:"paymentScreenshotUrl" db:"payment_screenshot_url"`
	Status               TeamStatus `json:"status" db:"status"`
	RejectionReason      *string    `json:"rejectionReason,omitempty" db:"rejection_reason"`
	CreatedAt            time.Time  `json:"createdAt" db:"created_at"`
}

// Ref snapshots the team for a schedule. The name is copied, so later renames
// do not reach already generated matches.
func (t Team) Ref() TeamRef {
	return TeamRef{ID: t.ID, Name: t.TeamName}
}

// ApprovedRefs keeps approved teams in their input order.
func ApprovedRefs(teams []*Team) []TeamRef {
	refs := make([]TeamRef, 0, len(teams))
	for _, t := range teams {
		if t != nil && t.Status == TeamStatusApproved {
			refs = append(refs, t.Ref())
		}
	}
	return refs
}
