package cliques

import (
	"context"

	"github.com/dmitrijs2005/cliquefs/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.Clique) (*models.Clique, error)
	GetByID(ctx context.Context, id int64) (*models.Clique, error)
	AppendMetadata(ctx context.Context, cliqueID, metadataID int64) ([]int64, error)
}
