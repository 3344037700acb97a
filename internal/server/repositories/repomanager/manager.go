package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/flagkeeper/internal/dbx"
	"github.com/dmitrijs2005/flagkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/flagkeeper/internal/server/repositories/solves"
	"github.com/dmitrijs2005/flagkeeper/internal/server/repositories/teams"
	"github.com/dmitrijs2005/flagkeeper/internal/server/repositories/users"
)

// RepositoryManager binds repositories to a handle, so services can use
// the same repository over the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Teams(db dbx.DBTX) teams.Repository
	Solves(db dbx.DBTX) solves.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
