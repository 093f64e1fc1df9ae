package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/cliquefs/internal/logging"
	"github.com/dmitrijs2005/cliquefs/internal/server/config"
	"github.com/dmitrijs2005/cliquefs/internal/server/models"
	"github.com/dmitrijs2005/cliquefs/internal/server/repositories/repomanager"
)

// FetchGateway loads whole user records and writes back identity fields.
// Relation sets are never written here; the ledger commits them per append.
type FetchGateway struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	timeout     time.Duration
	logger      logging.Logger
}

func NewFetchGateway(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *FetchGateway {
	return &FetchGateway{
		db:          db,
		repomanager: m,
		timeout:     cfg.OperationTimeout,
		logger:      logger.With("module", "gateway"),
	}
}

// Load fetches the user with both relation sets in one query. A NULL
// relation column reads as an empty set.
func (g *FetchGateway) Load(ctx context.Context, userID int64) (*models.User, error) {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	return g.repomanager.Users(g.db).GetByID(ctx, userID)
}

// Persist writes back the record's name if the stored row is still at
// record.Version, then advances record.Version. A stale record is
// ErrConflict; reload it and reapply the change.
func (g *FetchGateway) Persist(ctx context.Context, record *models.User) error {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	version, err := g.repomanager.Users(g.db).UpdateName(ctx, record.ID, record.Name, record.Version)
	if err != nil {
		return fmt.Errorf("error persisting user %d: %w", record.ID, err)
	}
	record.Version = version
	return nil
}
