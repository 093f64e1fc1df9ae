package admin

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/cliquefs/internal/server"
	"github.com/dmitrijs2005/cliquefs/internal/server/models"
)

// Backend is the service surface the commands drive. RuntimeBackend is the
// production implementation; tests use a stub.
type Backend interface {
	Issue(ctx context.Context, username, password string) (*models.User, error)
	Verify(ctx context.Context, userID int64, password string) (bool, error)
	Rotate(ctx context.Context, userID int64, current, next string) error
	Login(ctx context.Context, userID int64, password string) (string, error)

	Read(ctx context.Context, userID int64, rel models.Relation) ([]int64, error)
	ReadMirror(ctx context.Context, rel models.Relation, foreignID int64) ([]int64, error)
	Append(ctx context.Context, userID int64, rel models.Relation, foreignID int64) ([]int64, error)

	Load(ctx context.Context, userID int64) (*models.User, error)
	Rename(ctx context.Context, userID int64, name string) (*models.User, error)

	RegisterFile(ctx context.Context, senderID int64, hash [models.ContentHashSize]byte) (*models.Metadata, error)
	CreateClique(ctx context.Context, name string) (*models.Clique, error)
	ShareFile(ctx context.Context, cliqueID, metadataID int64) ([]int64, error)
}

// RuntimeBackend adapts a server Runtime to Backend.
type RuntimeBackend struct {
	rt *server.Runtime
}

func NewRuntimeBackend(rt *server.Runtime) *RuntimeBackend {
	return &RuntimeBackend{rt: rt}
}

func (b *RuntimeBackend) Issue(ctx context.Context, username, password string) (*models.User, error) {
	return b.rt.Credentials.Issue(ctx, username, password)
}

func (b *RuntimeBackend) Verify(ctx context.Context, userID int64, password string) (bool, error) {
	return b.rt.Credentials.Verify(ctx, userID, password)
}

func (b *RuntimeBackend) Rotate(ctx context.Context, userID int64, current, next string) error {
	return b.rt.Credentials.Rotate(ctx, userID, current, next)
}

func (b *RuntimeBackend) Login(ctx context.Context, userID int64, password string) (string, error) {
	return b.rt.Auth.Login(ctx, userID, password)
}

func (b *RuntimeBackend) Read(ctx context.Context, userID int64, rel models.Relation) ([]int64, error) {
	return b.rt.Ledger.Read(ctx, userID, rel)
}

func (b *RuntimeBackend) ReadMirror(ctx context.Context, rel models.Relation, foreignID int64) ([]int64, error) {
	return b.rt.Ledger.ReadMirror(ctx, rel, foreignID)
}

func (b *RuntimeBackend) Append(ctx context.Context, userID int64, rel models.Relation, foreignID int64) ([]int64, error) {
	return b.rt.Ledger.Append(ctx, userID, rel, foreignID)
}

func (b *RuntimeBackend) Load(ctx context.Context, userID int64) (*models.User, error) {
	return b.rt.Gateway.Load(ctx, userID)
}

// Rename loads the user, changes the name and persists it under the
// version read.
func (b *RuntimeBackend) Rename(ctx context.Context, userID int64, name string) (*models.User, error) {
	u, err := b.rt.Gateway.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.Name = name
	if err := b.rt.Gateway.Persist(ctx, u); err != nil {
		return nil, fmt.Errorf("rename: %w", err)
	}
	return u, nil
}

func (b *RuntimeBackend) RegisterFile(ctx context.Context, senderID int64, hash [models.ContentHashSize]byte) (*models.Metadata, error) {
	return b.rt.Files.Register(ctx, senderID, hash)
}

func (b *RuntimeBackend) CreateClique(ctx context.Context, name string) (*models.Clique, error) {
	return b.rt.Cliques.Create(ctx, name)
}

func (b *RuntimeBackend) ShareFile(ctx context.Context, cliqueID, metadataID int64) ([]int64, error) {
	return b.rt.Cliques.ShareFile(ctx, cliqueID, metadataID)
}
