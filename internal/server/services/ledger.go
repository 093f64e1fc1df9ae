package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/cliquefs/internal/dbx"
	"github.com/dmitrijs2005/cliquefs/internal/logging"
	"github.com/dmitrijs2005/cliquefs/internal/server/config"
	"github.com/dmitrijs2005/cliquefs/internal/server/events"
	"github.com/dmitrijs2005/cliquefs/internal/server/models"
	"github.com/dmitrijs2005/cliquefs/internal/server/repositories/repomanager"
)

// RelationLedger reads and appends to the membership and possession
// relations. Every append writes the user side and the mirrored foreign
// side in one transaction.
type RelationLedger struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	publisher   events.Publisher
	logger      logging.Logger
	retrier     retrier
	timeout     time.Duration
}

// NewRelationLedger builds a RelationLedger. A nil publisher drops events.
func NewRelationLedger(db *sql.DB, m repomanager.RepositoryManager, publisher events.Publisher, cfg *config.Config, logger logging.Logger) *RelationLedger {
	if publisher == nil {
		publisher = events.Nop{}
	}
	logger = logger.With("module", "ledger")
	return &RelationLedger{
		db:          db,
		repomanager: m,
		publisher:   publisher,
		logger:      logger,
		retrier:     newRetrier(cfg, logger),
		timeout:     cfg.OperationTimeout,
	}
}

// Read returns the user's side of rel in insertion order.
func (l *RelationLedger) Read(ctx context.Context, userID int64, rel models.Relation) ([]int64, error) {
	if _, err := rel.Schema(); err != nil {
		return nil, err
	}
	ctx, cancel := withTimeout(ctx, l.timeout)
	defer cancel()

	return withRetry(ctx, l.retrier, "read", func(ctx context.Context) ([]int64, error) {
		return l.repomanager.Relations(l.db).Read(ctx, userID, rel)
	})
}

// ReadMirror returns the foreign side of rel for foreignID: the members of
// a clique or the possessors of a file.
func (l *RelationLedger) ReadMirror(ctx context.Context, rel models.Relation, foreignID int64) ([]int64, error) {
	if _, err := rel.Schema(); err != nil {
		return nil, err
	}
	ctx, cancel := withTimeout(ctx, l.timeout)
	defer cancel()

	return withRetry(ctx, l.retrier, "read mirror", func(ctx context.Context) ([]int64, error) {
		return l.repomanager.Relations(l.db).ReadMirror(ctx, rel, foreignID)
	})
}

// Append adds foreignID to the user's side of rel and userID to the foreign
// row's mirror, atomically, and returns the user's resulting set. Appending
// an id already present changes nothing and returns the current set.
//
// Conflicts and transport failures are retried with exponential backoff.
// A missing user is ErrIdentityNotFound, a missing foreign row
// ErrForeignKeyViolation; neither side is written in that case.
func (l *RelationLedger) Append(ctx context.Context, userID int64, rel models.Relation, foreignID int64) ([]int64, error) {
	if _, err := rel.Schema(); err != nil {
		return nil, err
	}
	ctx, cancel := withTimeout(ctx, l.timeout)
	defer cancel()

	ids, err := withRetry(ctx, l.retrier, "append", func(ctx context.Context) ([]int64, error) {
		return l.appendOnce(ctx, userID, rel, foreignID)
	})
	if err != nil {
		return nil, err
	}

	l.logger.Debug(ctx, "relation appended", "user_id", userID, "relation", rel.String(), "foreign_id", foreignID)
	if err := l.publisher.PublishRelationAppended(ctx, events.NewRelationAppended(userID, rel.String(), foreignID, ids)); err != nil {
		l.logger.Warn(ctx, "relation event not published", "user_id", userID, "relation", rel.String(), "error", err)
	}
	return ids, nil
}

// appendOnce runs one transaction. The user row is always locked before the
// foreign row.
func (l *RelationLedger) appendOnce(ctx context.Context, userID int64, rel models.Relation, foreignID int64) ([]int64, error) {
	var ids []int64
	err := dbx.WithTx(ctx, l.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := l.repomanager.Relations(tx)

		owner, err := repo.AppendOwner(ctx, userID, rel, foreignID)
		if err != nil {
			return err
		}
		if _, err := repo.AppendMirror(ctx, rel, foreignID, userID); err != nil {
			return err
		}
		ids = owner
		return nil
	})
	return ids, err
}
