package brackets

import (
	"sort"

	"github.com/Dosada05/tournament-fixtures/models"
)

// ComputeStandings tallies completed matches of the schedule. Every team that
// appears in the schedule gets a row, even with no games played yet.
// Rows are ordered by points, score difference and scores for (all
// descending), then by team name; rows equal on the three numbers share a rank.
func ComputeStandings(schedule *models.Schedule, points models.PointsTable) []models.Standing {
	if schedule == nil {
		return []models.Standing{}
	}

	rows := make(map[string]*models.Standing)
	order := make([]string, 0)
	row := func(ref models.TeamRef) *models.Standing {
		if r, ok := rows[ref.ID]; ok {
			return r
		}
		r := &models.Standing{Team: ref}
		rows[ref.ID] = r
		order = append(order, ref.ID)
		return r
	}

	for _, m := range schedule.Matches() {
		home, away := row(m.Team1), row(m.Team2)

		res, ok := m.Result()
		if !ok {
			continue
		}
		tally(home, res.Team1Score(), res.Team2Score(), points)
		tally(away, res.Team2Score(), res.Team1Score(), points)
	}

	table := make([]models.Standing, 0, len(order))
	for _, id := range order {
		table = append(table, *rows[id])
	}

	sort.SliceStable(table, func(i, j int) bool {
		a, b := table[i], table[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.ScoreDifference != b.ScoreDifference {
			return a.ScoreDifference > b.ScoreDifference
		}
		if a.ScoreFor != b.ScoreFor {
			return a.ScoreFor > b.ScoreFor
		}
		return a.Team.Name < b.Team.Name
	})

	for i := range table {
		if i > 0 && sameRankKey(table[i-1], table[i]) {
			table[i].Rank = table[i-1].Rank
			continue
		}
		table[i].Rank = i + 1
	}

	return table
}

func tally(r *models.Standing, scored, conceded int, points models.PointsTable) {
	r.GamesPlayed++
	r.ScoreFor += scored
	r.ScoreAgainst += conceded
	r.ScoreDifference = r.ScoreFor - r.ScoreAgainst

	switch {
	case scored > conceded:
		r.Wins++
		r.Points += points.Win
	case scored < conceded:
		r.Losses++
		r.Points += points.Loss
	default:
		r.Draws++
		r.Points += points.Draw
	}
}

func sameRankKey(a, b models.Standing) bool {
	return a.Points == b.Points && a.ScoreDifference == b.ScoreDifference && a.ScoreFor == b.ScoreFor
}
