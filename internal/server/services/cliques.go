package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/cliquefs/internal/dbx"
	"github.com/dmitrijs2005/cliquefs/internal/logging"
	"github.com/dmitrijs2005/cliquefs/internal/server/config"
	"github.com/dmitrijs2005/cliquefs/internal/server/models"
	"github.com/dmitrijs2005/cliquefs/internal/server/repositories/repomanager"
)

// CliqueRegistry creates cliques and manages the files shared in them.
// Joining a clique is a ledger append with models.Membership.
type CliqueRegistry struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	retrier     retrier
	timeout     time.Duration
	logger      logging.Logger
}

func NewCliqueRegistry(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *CliqueRegistry {
	logger = logger.With("module", "cliques")
	return &CliqueRegistry{
		db:          db,
		repomanager: m,
		retrier:     newRetrier(cfg, logger),
		timeout:     cfg.OperationTimeout,
		logger:      logger,
	}
}

func (c *CliqueRegistry) Create(ctx context.Context, name string) (*models.Clique, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	clique, err := c.repomanager.Cliques(c.db).Create(ctx, &models.Clique{Name: name})
	if err != nil {
		return nil, fmt.Errorf("error creating clique: %w", err)
	}
	c.logger.Info(ctx, "clique created", "clique_id", clique.ID)
	return clique, nil
}

func (c *CliqueRegistry) Get(ctx context.Context, cliqueID int64) (*models.Clique, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	return c.repomanager.Cliques(c.db).GetByID(ctx, cliqueID)
}

// ShareFile adds metadataID to the clique's shared files and returns the
// resulting set. A missing metadata row is ErrForeignKeyViolation, a
// missing clique ErrRecordNotFound.
func (c *CliqueRegistry) ShareFile(ctx context.Context, cliqueID, metadataID int64) ([]int64, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	return withRetry(ctx, c.retrier, "share file", func(ctx context.Context) ([]int64, error) {
		var ids []int64
		err := dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			if err := c.repomanager.Metadatas(tx).LockForShare(ctx, metadataID); err != nil {
				return err
			}
			var err error
			ids, err = c.repomanager.Cliques(tx).AppendMetadata(ctx, cliqueID, metadataID)
			return err
		})
		return ids, err
	})
}
