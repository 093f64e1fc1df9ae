// Package common defines the sentinel errors and small helpers shared by
// every layer of cliquefs. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Identity errors.
	ErrIdentityNotFound  = errors.New("identity not found")
	ErrDuplicateIdentity = errors.New("duplicate identity")

	// ErrRecordNotFound is a missing clique or file metadata row looked up
	// directly by id.
	ErrRecordNotFound = errors.New("record not found")

	// Relation ledger errors.
	ErrUnknownRelationKind = errors.New("unknown relation kind")
	ErrForeignKeyViolation = errors.New("foreign key violation")

	// Retryable conditions. ErrConflict is concurrent-write contention,
	// ErrStorageUnavailable is a transport or connection failure.
	ErrConflict           = errors.New("conflict")
	ErrStorageUnavailable = errors.New("storage unavailable")

	// Credential errors. ErrAuthenticationFailed is the only one that may
	// leave the service boundary on a login path.
	ErrCredentialMismatch   = errors.New("credential mismatch")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrAttemptsExceeded     = errors.New("too many verification attempts")

	// Token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
