package models

import "time"

// ContentHashSize is the length of a file content digest (SHA-256).
const ContentHashSize = 32

// Metadata describes one file: its content identity, who first sent it and
// who holds a copy now.
type Metadata struct {
	ID           int64
	ContentHash  [ContentHashSize]byte
	SenderID     int64
	PossessorIDs []int64
	CreatedAt    time.Time
}
