// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/cliquefs/internal/dbx"
	"github.com/dmitrijs2005/cliquefs/internal/server/migrations"
	"github.com/dmitrijs2005/cliquefs/internal/server/repositories/cliques"
	"github.com/dmitrijs2005/cliquefs/internal/server/repositories/metadatas"
	"github.com/dmitrijs2005/cliquefs/internal/server/repositories/relations"
	"github.com/dmitrijs2005/cliquefs/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
)

type PostgresRepositoryManager struct{}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Relations(db dbx.DBTX) relations.Repository {
	return relations.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Metadatas(db dbx.DBTX) metadatas.Repository {
	return metadatas.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Cliques(db dbx.DBTX) cliques.Repository {
	return cliques.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded goose migrations.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}
