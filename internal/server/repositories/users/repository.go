package users

import (
	"context"

	"github.com/dmitrijs2005/flagkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByIDForUpdate locks the user row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	SetTeam(ctx context.Context, userID string, teamID *string) error
	ListByTeam(ctx context.Context, teamID string) ([]*models.User, error)
}
