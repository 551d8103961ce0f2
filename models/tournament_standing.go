package models

// Standing is one row of a round's table, derived from completed matches.
type Standing struct {
	Team            TeamRef `json:"team"`
	Rank            int     `json:"rank"`
	Points          int     `json:"points"`
	GamesPlayed     int     `json:"gamesPlayed"`
	Wins            int     `json:"wins"`
	Draws           int     `json:"draws"`
	Losses          int     `json:"losses"`
	ScoreFor        int     `json:"scoreFor"`
	ScoreAgainst    int     `json:"scoreAgainst"`
	ScoreDifference int     `json:"scoreDifference"`
}

// PointsTable holds points_for_win / points_for_draw / points_for_loss.
type PointsTable struct {
	Win  int `json:"win"`
	Draw int `json:"draw"`
	Loss int `json:"loss"`
}

var DefaultPoints = PointsTable{Win: 3, Draw: 1, Loss: 0}
