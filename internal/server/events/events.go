// Package events publishes relation changes after they commit. Delivery is
// best effort: the ledger logs a failed publish and carries on.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RelationAppended records one committed Append.
type RelationAppended struct {
	ID         string    `json:"id"`
	UserID     int64     `json:"user_id"`
	Relation   string    `json:"relation"`
	ForeignID  int64     `json:"foreign_id"`
	IDs        []int64   `json:"ids"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewRelationAppended(userID int64, relation string, foreignID int64, ids []int64) RelationAppended {
	return RelationAppended{
		ID:         uuid.NewString(),
		UserID:     userID,
		Relation:   relation,
		ForeignID:  foreignID,
		IDs:        ids,
		OccurredAt: time.Now().UTC(),
	}
}

type Publisher interface {
	PublishRelationAppended(ctx context.Context, e RelationAppended) error
	Close() error
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) PublishRelationAppended(context.Context, RelationAppended) error { return nil }
func (Nop) Close() error                                                   { return nil }
