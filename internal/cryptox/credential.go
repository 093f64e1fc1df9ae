// Package cryptox derives and checks password credentials. Every credential
// in cliquefs is Argon2id over a per-identity random salt; there is no
// fallback to a fast digest.
package cryptox

import (
	"crypto/subtle"
	"errors"

	"github.com/dmitrijs2005/cliquefs/internal/common"
	"golang.org/x/crypto/argon2"
)

// Argon2id parameters. Changing any of them invalidates every stored hash.
const (
	SaltLength = 16
	KeyLength  = 32

	argonTime    = 1
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 4
)

var ErrEmptySalt = errors.New("empty salt")

// Credential is the stored form of a password.
type Credential struct {
	Salt []byte
	Hash []byte
}

// NewSalt returns SaltLength fresh random bytes.
func NewSalt() []byte {
	return common.GenerateRandByteArray(SaltLength)
}

// DeriveHash runs Argon2id over password and salt.
func DeriveHash(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, KeyLength)
}

// NewCredential derives a credential for password under a newly drawn salt.
func NewCredential(password []byte) Credential {
	salt := NewSalt()
	return Credential{Salt: salt, Hash: DeriveHash(password, salt)}
}

// Matches re-derives the hash for attempt under the stored salt and compares
// it with the stored hash in constant time.
func (c Credential) Matches(attempt []byte) (bool, error) {
	if len(c.Salt) == 0 {
		return false, ErrEmptySalt
	}
	candidate := DeriveHash(attempt, c.Salt)
	defer common.WipeByteArray(candidate)
	return subtle.ConstantTimeCompare(candidate, c.Hash) == 1, nil
}
