package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/cliquefs/internal/common"
	"github.com/dmitrijs2005/cliquefs/internal/logging"
	"github.com/dmitrijs2005/cliquefs/internal/server/auth"
	"github.com/dmitrijs2005/cliquefs/internal/server/config"
)

// AuthService turns a successful verification into a signed session token.
type AuthService struct {
	credentials                 *CredentialStore
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	logger                      logging.Logger
}

func NewAuthService(credentials *CredentialStore, cfg *config.Config, logger logging.Logger) *AuthService {
	return &AuthService{
		credentials:                 credentials,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		logger:                      logger.With("module", "auth"),
	}
}

// Login verifies password for userID and returns an access token. Every
// failure, whatever its cause, is reported as ErrAuthenticationFailed so a
// caller cannot tell a missing account from a wrong password.
func (s *AuthService) Login(ctx context.Context, userID int64, password string) (string, error) {
	ok, err := s.credentials.Verify(ctx, userID, password)
	if err != nil {
		if !errors.Is(err, common.ErrIdentityNotFound) && !errors.Is(err, common.ErrAttemptsExceeded) {
			s.logger.Error(ctx, "login failed", "user_id", userID, "error", err)
		}
		return "", common.ErrAuthenticationFailed
	}
	if !ok {
		return "", common.ErrAuthenticationFailed
	}

	token, err := auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		s.logger.Error(ctx, "token signing failed", "user_id", userID, "error", err)
		return "", common.ErrAuthenticationFailed
	}
	return token, nil
}

// Authenticate returns the user id carried by a token issued by Login.
func (s *AuthService) Authenticate(token string) (int64, error) {
	return auth.GetUserIDFromToken(token, s.jwtSecret)
}
