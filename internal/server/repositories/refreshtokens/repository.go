// Package refreshtokens stores the opaque refresh tokens that back
// access-token renewal.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/flagkeeper/internal/server/models"
)

type Repository interface {
	// Create stores token for userID, expiring at now+validity.
	Create(ctx context.Context, userID string, token string, validity time.Duration) error

	// Consume deletes token and returns the deleted row, so a token can be
	// exchanged at most once. Unknown tokens yield common.ErrorNotFound.
	Consume(ctx context.Context, token string) (*models.RefreshToken, error)

	// DeleteByUser revokes every token of userID.
	DeleteByUser(ctx context.Context, userID string) error
}
