package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/cliquefs/internal/common"
	"github.com/dmitrijs2005/cliquefs/internal/cryptox"
	"github.com/dmitrijs2005/cliquefs/internal/logging"
	"github.com/dmitrijs2005/cliquefs/internal/server/config"
	"github.com/dmitrijs2005/cliquefs/internal/server/models"
	"github.com/dmitrijs2005/cliquefs/internal/server/ratelimit"
	"github.com/dmitrijs2005/cliquefs/internal/server/repositories/repomanager"
)

// CredentialStore issues and verifies salted Argon2id password credentials.
// Plaintext passwords are never stored or logged.
type CredentialStore struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	limiter     *ratelimit.Limiter
	timeout     time.Duration
	logger      logging.Logger
}

// NewCredentialStore builds a CredentialStore. limiter may be nil, which
// disables verification throttling.
func NewCredentialStore(db *sql.DB, m repomanager.RepositoryManager, limiter *ratelimit.Limiter, cfg *config.Config, logger logging.Logger) *CredentialStore {
	return &CredentialStore{
		db:          db,
		repomanager: m,
		limiter:     limiter,
		timeout:     cfg.OperationTimeout,
		logger:      logger.With("module", "credentials"),
	}
}

// Issue creates a new identity for username under a fresh salt and returns
// it with empty relation sets.
func (s *CredentialStore) Issue(ctx context.Context, username string, password string) (*models.User, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	plain := []byte(password)
	cred := cryptox.NewCredential(plain)
	common.WipeByteArray(plain)

	user, err := s.repomanager.Users(s.db).Create(ctx, &models.User{Name: username, Credential: cred})
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "identity issued", "user_id", user.ID)
	return user, nil
}

// Verify reports whether password matches the stored credential of userID.
// A wrong password is (false, nil); an unknown id is ErrIdentityNotFound.
// With a limiter configured, too many attempts yield ErrAttemptsExceeded.
func (s *CredentialStore) Verify(ctx context.Context, userID int64, password string) (bool, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	allowed, err := s.limiter.Allow(ctx, userID)
	if err != nil {
		// Fail open: a broken Redis must not block logins.
		s.logger.Warn(ctx, "verify limiter unavailable", "user_id", userID, "error", err)
		allowed = true
	}
	if !allowed {
		return false, common.ErrAttemptsExceeded
	}

	ok, _, err := s.match(ctx, userID, password)
	if err != nil {
		return false, err
	}
	if !ok {
		s.logger.Info(ctx, "credential mismatch", "user_id", userID)
		return false, nil
	}

	if err := s.limiter.Reset(ctx, userID); err != nil {
		s.logger.Warn(ctx, "verify limiter reset failed", "user_id", userID, "error", err)
	}
	return true, nil
}

// Rotate replaces the credential of userID after checking current. The
// write is guarded by the row version read during the check, so a
// concurrent rotation makes this one fail with ErrConflict.
func (s *CredentialStore) Rotate(ctx context.Context, userID int64, current, next string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	ok, user, err := s.match(ctx, userID, current)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrCredentialMismatch
	}

	plain := []byte(next)
	cred := cryptox.NewCredential(plain)
	common.WipeByteArray(plain)

	if _, err := s.repomanager.Users(s.db).UpdateCredential(ctx, userID, cred, user.Version); err != nil {
		return fmt.Errorf("error rotating credential: %w", err)
	}

	s.logger.Info(ctx, "credential rotated", "user_id", userID)
	return nil
}

func (s *CredentialStore) match(ctx context.Context, userID int64, password string) (bool, *models.User, error) {
	user, err := s.repomanager.Users(s.db).GetCredential(ctx, userID)
	if err != nil {
		return false, nil, err
	}

	plain := []byte(password)
	defer common.WipeByteArray(plain)

	ok, err := user.Credential.Matches(plain)
	if err != nil {
		return false, nil, fmt.Errorf("user %d: %w", userID, err)
	}
	return ok, user, nil
}
