package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/taskmanager/taskmanager-go/internal/crypto"
	"github.com/taskmanager/taskmanager-go/internal/model"
	"github.com/taskmanager/taskmanager-go/internal/repository"
)

// TokenIssuer mints and verifies access tokens. Each user's tokens are signed
// with a key derived from the server secret and the user's token secret.
type TokenIssuer struct {
	users  *repository.UserRepository
	secret string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates a TokenIssuer whose tokens live for ttl.
func NewTokenIssuer(users *repository.UserRepository, serverSecret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		users:  users,
		secret: serverSecret,
		ttl:    ttl,
		now:    time.Now,
	}
}

// SignAccessToken returns a signed access token whose subject is user.ID.
func (t *TokenIssuer) SignAccessToken(user *model.User) (string, error) {
	return crypto.GenerateAccessToken(user.ID, crypto.SigningKey(t.secret, user.TokenSecret), t.ttl, t.now())
}

// VerifyAccessToken checks token and returns the subject user id. It fails
// with crypto.ErrTokenExpired or crypto.ErrInvalidToken for bad tokens; any
// other error means the signing key could not be loaded.
func (t *TokenIssuer) VerifyAccessToken(ctx context.Context, token string) (string, error) {
	var lookupErr error

	subject, err := crypto.ValidateAccessToken(token, func(subject string) ([]byte, error) {
		user, err := t.users.GetByID(ctx, subject)
		if err != nil {
			if !errors.Is(err, repository.ErrUserNotFound) {
				lookupErr = err
			}
			return nil, err
		}
		return crypto.SigningKey(t.secret, user.TokenSecret), nil
	}, t.now())

	if lookupErr != nil {
		return "", fmt.Errorf("loading signing key: %w", lookupErr)
	}
	return subject, err
}
