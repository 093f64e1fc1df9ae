package services

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/cliquefs/internal/dbx"
	"github.com/dmitrijs2005/cliquefs/internal/logging"
	"github.com/dmitrijs2005/cliquefs/internal/server/config"
	"github.com/dmitrijs2005/cliquefs/internal/server/models"
	"github.com/dmitrijs2005/cliquefs/internal/server/repositories/repomanager"
)

// FileRegistry records file metadata. Content never passes through it;
// callers hand in the content hash.
type FileRegistry struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	retrier     retrier
	timeout     time.Duration
	logger      logging.Logger
}

func NewFileRegistry(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *FileRegistry {
	logger = logger.With("module", "files")
	return &FileRegistry{
		db:          db,
		repomanager: m,
		retrier:     newRetrier(cfg, logger),
		timeout:     cfg.OperationTimeout,
		logger:      logger,
	}
}

// HashContent returns the SHA-256 digest identifying r's content.
func HashContent(r io.Reader) ([models.ContentHashSize]byte, error) {
	var sum [models.ContentHashSize]byte
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return sum, fmt.Errorf("hash content: %w", err)
	}
	copy(sum[:], h.Sum(nil))
	return sum, nil
}

// Register records that senderID holds the file with contentHash. The first
// registration of a hash creates its metadata with senderID as sender;
// later ones reuse the existing record. Either way senderID ends up on both
// sides of the possession relation, in the same transaction.
func (f *FileRegistry) Register(ctx context.Context, senderID int64, contentHash [models.ContentHashSize]byte) (*models.Metadata, error) {
	ctx, cancel := withTimeout(ctx, f.timeout)
	defer cancel()

	return withRetry(ctx, f.retrier, "register file", func(ctx context.Context) (*models.Metadata, error) {
		var meta *models.Metadata
		err := dbx.WithTx(ctx, f.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			if err := f.repomanager.Users(tx).LockForUpdate(ctx, senderID); err != nil {
				return err
			}

			m, created, err := f.repomanager.Metadatas(tx).Create(ctx, &models.Metadata{ContentHash: contentHash, SenderID: senderID})
			if err != nil {
				return err
			}

			rel := f.repomanager.Relations(tx)
			if _, err := rel.AppendOwner(ctx, senderID, models.Possession, m.ID); err != nil {
				return err
			}
			possessors, err := rel.AppendMirror(ctx, models.Possession, m.ID, senderID)
			if err != nil {
				return err
			}
			m.PossessorIDs = possessors

			if created {
				f.logger.Info(ctx, "file registered", "metadata_id", m.ID, "sender_id", senderID)
			}
			meta = m
			return nil
		})
		return meta, err
	})
}

func (f *FileRegistry) Get(ctx context.Context, metadataID int64) (*models.Metadata, error) {
	ctx, cancel := withTimeout(ctx, f.timeout)
	defer cancel()

	return f.repomanager.Metadatas(f.db).GetByID(ctx, metadataID)
}
