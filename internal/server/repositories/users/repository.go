package users

import (
	"context"

	"github.com/dmitrijs2005/cliquefs/internal/cryptox"
	"github.com/dmitrijs2005/cliquefs/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetCredential(ctx context.Context, id int64) (*models.User, error)
	UpdateName(ctx context.Context, id int64, name string, expectedVersion int64) (int64, error)
	UpdateCredential(ctx context.Context, id int64, cred cryptox.Credential, expectedVersion int64) (int64, error)
	LockForUpdate(ctx context.Context, id int64) error
}
