package solves

import (
	"context"

	"github.com/dmitrijs2005/flagkeeper/internal/server/models"
)

// Repository is the solve ledger. Rows are only ever appended.
type Repository interface {
	// LockChallenge serializes writers on one challenge until the
	// surrounding transaction ends. Outside a transaction it is a no-op.
	LockChallenge(ctx context.Context, challengeID string) error
	Find(ctx context.Context, teamID, challengeID string) (*models.Solve, error)
	CountByChallenge(ctx context.Context, challengeID string) (int, error)
	CountsByChallenge(ctx context.Context) (map[string]int, error)
	// Create appends solve. It reports false when a row for the same
	// (team, challenge) pair already exists.
	Create(ctx context.Context, solve *models.Solve) (bool, error)
	ListByTeam(ctx context.Context, teamID string) ([]*models.Solve, error)
	TeamScore(ctx context.Context, teamID string) (int, error)
	Standings(ctx context.Context) ([]models.TeamStanding, error)
}
