package relations

import (
	"context"

	"github.com/dmitrijs2005/cliquefs/internal/server/models"
)

// Repository reads and appends to both sides of a relation. Appends on the
// two sides are separate statements; callers run them in one transaction.
type Repository interface {
	Read(ctx context.Context, userID int64, rel models.Relation) ([]int64, error)
	ReadMirror(ctx context.Context, rel models.Relation, foreignID int64) ([]int64, error)
	AppendOwner(ctx context.Context, userID int64, rel models.Relation, foreignID int64) ([]int64, error)
	AppendMirror(ctx context.Context, rel models.Relation, foreignID int64, userID int64) ([]int64, error)
}
