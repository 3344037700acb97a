package teams

import (
	"context"

	"github.com/dmitrijs2005/flagkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, team *models.Team) (*models.Team, error)
	GetByID(ctx context.Context, id string) (*models.Team, error)
	GetByInviteCode(ctx context.Context, code string) (*models.Team, error)
	SetCaptain(ctx context.Context, teamID string, captainID *string) error
	List(ctx context.Context) ([]models.TeamSummary, error)
}
