package models

import "github.com/dmitrijs2005/cliquefs/internal/common"

type relationKind uint8

const (
	membership relationKind = iota + 1
	possession
)

// Relation names one of the two user-centred many-to-many relations.
// Membership and Possession are the only non-zero values; other packages
// cannot construct any other, and the zero value is rejected by Schema.
type Relation struct {
	kind relationKind
}

var (
	// Membership is user ∈ clique.
	Membership = Relation{kind: membership}
	// Possession is "user holds a copy of file".
	Possession = Relation{kind: possession}
)

// RelationSchema is the storage layout of a relation: the users column that
// holds foreign ids and the foreign table column that mirrors user ids.
type RelationSchema struct {
	OwnerColumn  string
	ForeignTable string
	MirrorColumn string
}

// Schema is the only place a relation is mapped to column names.
func (r Relation) Schema() (RelationSchema, error) {
	switch r.kind {
	case membership:
		return RelationSchema{OwnerColumn: "clique_ids", ForeignTable: "cliques", MirrorColumn: "user_ids"}, nil
	case possession:
		return RelationSchema{OwnerColumn: "possessed_file_ids", ForeignTable: "metadatas", MirrorColumn: "possessor_ids"}, nil
	}
	return RelationSchema{}, common.ErrUnknownRelationKind
}

func (r Relation) String() string {
	switch r.kind {
	case membership:
		return "membership"
	case possession:
		return "possession"
	}
	return "unknown"
}

// ParseRelation maps a user-facing name onto a Relation. It is meant for
// CLI input; storage code never sees the string.
func ParseRelation(s string) (Relation, error) {
	switch s {
	case "membership", "clique":
		return Membership, nil
	case "possession", "file":
		return Possession, nil
	}
	return Relation{}, common.ErrUnknownRelationKind
}
