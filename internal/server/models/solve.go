package models

import "time"

// Solve is one ledger row: team TeamID solved ChallengeID and was awarded
// PointsAwarded, frozen at insert time. At most one row exists per
// (TeamID, ChallengeID).
type Solve struct {
	ID            int64
	TeamID        string
	ChallengeID   string
	UserID        *string
	PointsAwarded int
	CreatedAt     time.Time
}

// TeamStanding is the per-team aggregate the scoreboard is ranked from.
// LastSolveAt and LastSolveBy are nil for teams without solves.
type TeamStanding struct {
	TeamID      string
	TeamName    string
	Score       int
	LastSolveAt *time.Time
	LastSolveBy *string
}
