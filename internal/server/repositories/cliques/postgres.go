// Package cliques stores clique rows. Membership is written by the relation
// ledger; this package owns creation and the clique's shared file set.
package cliques

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/cliquefs/internal/common"
	"github.com/dmitrijs2005/cliquefs/internal/dbx"
	"github.com/dmitrijs2005/cliquefs/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.Clique) (*models.Clique, error) {
	query := `INSERT INTO cliques (name) VALUES ($1) RETURNING id, created_at`

	if err := r.db.QueryRowContext(ctx, query, c.Name).Scan(&c.ID, &c.CreatedAt); err != nil {
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	c.UserIDs = []int64{}
	c.MetadataIDs = []int64{}
	return c, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Clique, error) {
	query :=
		`SELECT id, name, user_ids::text, metadata_ids::text, created_at
		 FROM cliques
		 WHERE id = $1`

	c := &models.Clique{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&c.ID, &c.Name, dbx.NewIDArray(&c.UserIDs), dbx.NewIDArray(&c.MetadataIDs), &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrRecordNotFound
		}
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	return c, nil
}

// AppendMetadata adds metadataID to the clique's file set with the same
// single-statement set-append the relation ledger uses.
func (r *PostgresRepository) AppendMetadata(ctx context.Context, cliqueID, metadataID int64) ([]int64, error) {
	query :=
		`UPDATE cliques
		 SET metadata_ids = CASE WHEN $1::bigint = ANY(metadata_ids) THEN metadata_ids ELSE array_append(metadata_ids, $1::bigint) END,
		     version = version + 1
		 WHERE id = $2
		 RETURNING metadata_ids::text`

	var ids []int64
	err := r.db.QueryRowContext(ctx, query, metadataID, cliqueID).Scan(dbx.NewIDArray(&ids))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrRecordNotFound
		}
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	return ids, nil
}
