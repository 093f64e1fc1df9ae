// Package models defines the server-side entities persisted in Postgres.
package models

import (
	"slices"
	"time"

	"github.com/dmitrijs2005/cliquefs/internal/cryptox"
)

// User is an account as fetched from the store. Relation sets are mutated
// only through the relation ledger; Persist writes back identity fields.
type User struct {
	ID               int64
	Name             string
	Credential       cryptox.Credential
	CliqueIDs        []int64
	PossessedFileIDs []int64
	// Version guards the identity fields (name, credential). Relation
	// appends do not change it.
	Version   int64
	CreatedAt time.Time
}

// IDs returns the user's side of rel. The zero Relation yields nil.
func (u *User) IDs(rel Relation) []int64 {
	switch rel.kind {
	case membership:
		return u.CliqueIDs
	case possession:
		return u.PossessedFileIDs
	}
	return nil
}

// SetIDs replaces the user's side of rel with a copy of ids, typically the
// authoritative set returned by an append.
func (u *User) SetIDs(rel Relation, ids []int64) {
	switch rel.kind {
	case membership:
		u.CliqueIDs = slices.Clone(ids)
	case possession:
		u.PossessedFileIDs = slices.Clone(ids)
	}
}
