package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// APIKeyPrincipalID identifies callers authenticated with the shared clinic key.
const APIKeyPrincipalID = "clinic-api-key"

// KeyAuthenticator validates bearer tokens against a bcrypt hash of the clinic API key.
type KeyAuthenticator struct {
	hash   []byte
	logger *slog.Logger
}

// NewKeyAuthenticator returns an authenticator for the given bcrypt hash.
func NewKeyAuthenticator(hash string, logger *slog.Logger) (*KeyAuthenticator, error) {
	trimmed := strings.TrimSpace(hash)
	if _, err := bcrypt.Cost([]byte(trimmed)); err != nil {
		return nil, fmt.Errorf("application: invalid api key hash: %w", err)
	}
	return &KeyAuthenticator{hash: []byte(trimmed), logger: defaultLogger(logger)}, nil
}

// ValidateSession checks token and yields a principal carrying it.
func (a *KeyAuthenticator) ValidateSession(ctx context.Context, token string) (principal Principal, err error) {
	if a == nil {
		err = fmt.Errorf("KeyAuthenticator is nil")
		return
	}

	trimmed := strings.TrimSpace(token)
	logger := serviceLogger(ctx, a.logger, "KeyAuthenticator", "ValidateSession", "token_provided", trimmed != "")
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "session validation failed", "error_kind", ErrorKind(err))
		}
	}()

	if trimmed == "" {
		err = ErrUnauthorized
		return
	}
	if cmpErr := bcrypt.CompareHashAndPassword(a.hash, []byte(trimmed)); cmpErr != nil {
		if !errors.Is(cmpErr, bcrypt.ErrMismatchedHashAndPassword) {
			logger.ErrorContext(ctx, "api key comparison failed", "error", cmpErr)
		}
		err = ErrUnauthorized
		return
	}

	principal = Principal{UserID: APIKeyPrincipalID, Token: trimmed}
	return
}

// HashKey produces the bcrypt hash stored in CLINIC_API_KEY_HASH.
func HashKey(key string, cost int) (string, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return "", errors.New("application: api key must not be empty")
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(trimmed), cost)
	if err != nil {
		return "", fmt.Errorf("application: hash api key: %w", err)
	}
	return string(hash), nil
}
