// Package users stores identity rows: name, credential and the user side of
// both relations.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/cliquefs/internal/common"
	"github.com/dmitrijs2005/cliquefs/internal/cryptox"
	"github.com/dmitrijs2005/cliquefs/internal/dbx"
	"github.com/dmitrijs2005/cliquefs/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new identity with empty relation sets and fills in the
// generated id, version and creation time.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (name, salt, hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, version, created_at`

	err := r.db.QueryRowContext(ctx, query, user.Name, user.Credential.Salt, user.Credential.Hash).
		Scan(&user.ID, &user.Version, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}

	user.CliqueIDs = []int64{}
	user.PossessedFileIDs = []int64{}
	return user, nil
}

// GetByID is the single point query behind Load. NULL relation columns
// come back as empty sets; a missing row is ErrIdentityNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query :=
		`SELECT id, name, salt, hash, clique_ids::text, possessed_file_ids::text, version, created_at
		 FROM users
		 WHERE id = $1`

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Name, &user.Credential.Salt, &user.Credential.Hash,
		dbx.NewIDArray(&user.CliqueIDs), dbx.NewIDArray(&user.PossessedFileIDs),
		&user.Version, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	return user, nil
}

// GetCredential fetches only what verification needs.
func (r *PostgresRepository) GetCredential(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT id, salt, hash, version FROM users WHERE id = $1`

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&user.ID, &user.Credential.Salt, &user.Credential.Hash, &user.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	return user, nil
}

// UpdateName renames the user if the row is still at expectedVersion and
// returns the new version.
func (r *PostgresRepository) UpdateName(ctx context.Context, id int64, name string, expectedVersion int64) (int64, error) {
	query :=
		`UPDATE users SET name = $1, version = version + 1
		 WHERE id = $2 AND version = $3
		 RETURNING version`

	var version int64
	err := r.db.QueryRowContext(ctx, query, name, id, expectedVersion).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, r.missOrConflict(ctx, id)
		}
		return 0, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	return version, nil
}

// UpdateCredential stores a rotated credential under the same optimistic
// version check as UpdateName.
func (r *PostgresRepository) UpdateCredential(ctx context.Context, id int64, cred cryptox.Credential, expectedVersion int64) (int64, error) {
	query :=
		`UPDATE users SET salt = $1, hash = $2, version = version + 1
		 WHERE id = $3 AND version = $4
		 RETURNING version`

	var version int64
	err := r.db.QueryRowContext(ctx, query, cred.Salt, cred.Hash, id, expectedVersion).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, r.missOrConflict(ctx, id)
		}
		return 0, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	return version, nil
}

// LockForUpdate takes the row lock on a user inside the caller's
// transaction. Callers that touch a user and a foreign row lock the user
// first.
func (r *PostgresRepository) LockForUpdate(ctx context.Context, id int64) error {
	var got int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&got)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrIdentityNotFound
		}
		return fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	return nil
}

// missOrConflict tells a stale version apart from a missing row after a
// guarded update matched nothing.
func (r *PostgresRepository) missOrConflict(ctx context.Context, id int64) error {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	if !exists {
		return common.ErrIdentityNotFound
	}
	return common.ErrConflict
}
