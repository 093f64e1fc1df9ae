package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/cliquefs/internal/dbx"
	"github.com/dmitrijs2005/cliquefs/internal/server/repositories/cliques"
	"github.com/dmitrijs2005/cliquefs/internal/server/repositories/metadatas"
	"github.com/dmitrijs2005/cliquefs/internal/server/repositories/relations"
	"github.com/dmitrijs2005/cliquefs/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to either the pool or an open
// transaction, so services can run several of them under one dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Relations(db dbx.DBTX) relations.Repository
	Metadatas(db dbx.DBTX) metadatas.Repository
	Cliques(db dbx.DBTX) cliques.Repository
}
