package models

import "time"

// Clique is a named group of users that share files.
type Clique struct {
	ID          int64
	Name        string
	UserIDs     []int64
	MetadataIDs []int64
	CreatedAt   time.Time
}
