// Package metadatas stores file metadata rows. Files are content addressed:
// one row per distinct content hash.
package metadatas

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/cliquefs/internal/common"
	"github.com/dmitrijs2005/cliquefs/internal/dbx"
	"github.com/dmitrijs2005/cliquefs/internal/server/models"
)

const selectColumns = `id, content_hash, sender_id, possessor_ids::text, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts m unless a row with the same content hash exists. The bool
// result reports whether a new row was written; otherwise the stored row is
// returned unchanged.
func (r *PostgresRepository) Create(ctx context.Context, m *models.Metadata) (*models.Metadata, bool, error) {
	query :=
		`INSERT INTO metadatas (content_hash, sender_id)
		 VALUES ($1, $2)
		 ON CONFLICT (content_hash) DO NOTHING
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, m.ContentHash[:], m.SenderID).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			existing, err := r.GetByHash(ctx, m.ContentHash)
			if err != nil {
				return nil, false, err
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("db error: %w", dbx.Classify(err))
	}

	m.PossessorIDs = []int64{}
	return m, true, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Metadata, error) {
	return r.getOne(ctx, `SELECT `+selectColumns+` FROM metadatas WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByHash(ctx context.Context, hash [models.ContentHashSize]byte) (*models.Metadata, error) {
	return r.getOne(ctx, `SELECT `+selectColumns+` FROM metadatas WHERE content_hash = $1`, hash[:])
}

// LockForShare holds a shared lock on the metadata row for the rest of the
// caller's transaction so it cannot vanish while being referenced.
func (r *PostgresRepository) LockForShare(ctx context.Context, id int64) error {
	var got int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM metadatas WHERE id = $1 FOR SHARE`, id).Scan(&got)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrForeignKeyViolation
		}
		return fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	return nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.Metadata, error) {
	m := &models.Metadata{}
	var hash []byte
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&m.ID, &hash, &m.SenderID, dbx.NewIDArray(&m.PossessorIDs), &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrRecordNotFound
		}
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	if len(hash) != models.ContentHashSize {
		return nil, fmt.Errorf("metadata %d: content hash has %d bytes", m.ID, len(hash))
	}
	copy(m.ContentHash[:], hash)
	return m, nil
}
