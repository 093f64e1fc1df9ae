// Package relations implements the storage half of the relation ledger:
// atomic set-append on a relation column and its mirror column.
package relations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/cliquefs/internal/common"
	"github.com/dmitrijs2005/cliquefs/internal/dbx"
	"github.com/dmitrijs2005/cliquefs/internal/server/models"
)

const usersTable = "users"

// appendQuery builds a single-statement set-append. The UPDATE holds the
// row lock and Postgres re-evaluates the CASE on the latest row version,
// so concurrent appends to the same row serialize instead of overwriting
// each other. Appending an id that is already present leaves the set as is.
//
// The owner side leaves users.version alone: that counter guards identity
// fields (name, credential) only. Foreign rows bump their version.
//
// table and column always come from models.RelationSchema constants.
func appendQuery(table, column string, bumpVersion bool) string {
	version := ""
	if bumpVersion {
		version = ",\n\t\t     version = version + 1"
	}
	return fmt.Sprintf(
		`UPDATE %[1]s
		 SET %[2]s = CASE WHEN $1::bigint = ANY(%[2]s) THEN %[2]s ELSE array_append(%[2]s, $1::bigint) END%[3]s
		 WHERE id = $2
		 RETURNING %[2]s::text`, table, column, version)
}

func readQuery(table, column string) string {
	return fmt.Sprintf(`SELECT %[2]s::text FROM %[1]s WHERE id = $1`, table, column)
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Read returns the user's side of rel in insertion order.
func (r *PostgresRepository) Read(ctx context.Context, userID int64, rel models.Relation) ([]int64, error) {
	schema, err := rel.Schema()
	if err != nil {
		return nil, err
	}
	return r.scanIDs(ctx, readQuery(usersTable, schema.OwnerColumn), common.ErrIdentityNotFound, userID)
}

// ReadMirror returns the foreign side of rel: a clique's members or a
// file's possessors.
func (r *PostgresRepository) ReadMirror(ctx context.Context, rel models.Relation, foreignID int64) ([]int64, error) {
	schema, err := rel.Schema()
	if err != nil {
		return nil, err
	}
	return r.scanIDs(ctx, readQuery(schema.ForeignTable, schema.MirrorColumn), common.ErrForeignKeyViolation, foreignID)
}

// AppendOwner adds foreignID to the user's side of rel and returns the
// resulting set. A missing user is ErrIdentityNotFound.
func (r *PostgresRepository) AppendOwner(ctx context.Context, userID int64, rel models.Relation, foreignID int64) ([]int64, error) {
	schema, err := rel.Schema()
	if err != nil {
		return nil, err
	}
	return r.scanIDs(ctx, appendQuery(usersTable, schema.OwnerColumn, false), common.ErrIdentityNotFound, foreignID, userID)
}

// AppendMirror adds userID to the foreign row's side of rel. A missing
// foreign row is ErrForeignKeyViolation.
func (r *PostgresRepository) AppendMirror(ctx context.Context, rel models.Relation, foreignID int64, userID int64) ([]int64, error) {
	schema, err := rel.Schema()
	if err != nil {
		return nil, err
	}
	return r.scanIDs(ctx, appendQuery(schema.ForeignTable, schema.MirrorColumn, true), common.ErrForeignKeyViolation, userID, foreignID)
}

func (r *PostgresRepository) scanIDs(ctx context.Context, query string, missing error, args ...any) ([]int64, error) {
	var ids []int64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(dbx.NewIDArray(&ids))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, missing
		}
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	return ids, nil
}
