package metadatas

import (
	"context"

	"github.com/dmitrijs2005/cliquefs/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, m *models.Metadata) (*models.Metadata, bool, error)
	GetByID(ctx context.Context, id int64) (*models.Metadata, error)
	GetByHash(ctx context.Context, hash [models.ContentHashSize]byte) (*models.Metadata, error)
	LockForShare(ctx context.Context, id int64) error
}
