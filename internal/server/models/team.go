package models

import "time"

// Team groups users. Its score is never stored; it is the sum of the
// points_awarded of its solves.
type Team struct {
	ID         string
	Name       string
	CaptainID  *string
	InviteCode string
	CreatedAt  time.Time
}

// TeamSummary is one row of the team listing.
type TeamSummary struct {
	ID      string
	Name    string
	Members int
	Score   int
}
