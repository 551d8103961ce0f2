package models

import "time"

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyINR Currency = "INR"
)

// Tournament представляет турнир.
type Tournament struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Game         string    `json:"game" db:"game"`
	Description  *string   `json:"description,omitempty" db:"description"`
	Date         time.Time `json:"date" db:"date"`
	EntryFee     float64   `json:"entryFee" db:"entry_fee"`
	Currency     Currency  `json:"currency" db:"currency"`
	QRCodeURL    string    `json:"qrCodeUrl" db:"qr_code_url"`
	BannerURL    string    `json:"bannerUrl" db:"banner_url"`
	MaxTeamLimit int       `json:"maxTeamLimit" db:"max_team_limit"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// TournamentOverview is what the public tournament page renders.
type TournamentOverview struct {
	Tournament    *Tournament `json:"tournament"`
	ApprovedTeams int         `json:"approvedTeams"`
	IsFull        bool        `json:"isFull"`
	Fixtures      []*Schedule `json:"fixtures"`
}
