package service

import (
	"context"
	"errors"
	"net/mail"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/taskmanager/taskmanager-go/internal/crypto"
	"github.com/taskmanager/taskmanager-go/internal/model"
	"github.com/taskmanager/taskmanager-go/internal/repository"
)

// MinPasswordLength is the shortest accepted password, in characters.
const MinPasswordLength = 8

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailRequired      = errors.New("email is required")
	ErrInvalidEmail       = errors.New("email is not a valid address")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrEmailTaken         = errors.New("email already taken")
)

// CredentialStore creates users and resolves them from credentials or from
// an id plus refresh token.
type CredentialStore struct {
	users      *repository.UserRepository
	hashParams crypto.HashParams
	now        func() time.Time
}

// NewCredentialStore creates a CredentialStore hashing passwords with params.
func NewCredentialStore(users *repository.UserRepository, params crypto.HashParams) *CredentialStore {
	return &CredentialStore{
		users:      users,
		hashParams: params,
		now:        time.Now,
	}
}

// Create validates and persists a new user with a fresh token secret and no
// sessions.
func (c *CredentialStore) Create(ctx context.Context, email, password string) (*model.User, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	hash, err := crypto.HashPasswordWith(password, c.hashParams)
	if err != nil {
		return nil, err
	}

	secret, err := crypto.NewTokenSecret()
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		TokenSecret:  secret,
		Sessions:     []model.Session{},
		CreatedAt:    c.now().UTC(),
	}

	if err := c.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return user, nil
}

// FindByCredentials returns the user with email if password matches. An
// unknown email and a wrong password both yield ErrInvalidCredentials.
func (c *CredentialStore) FindByCredentials(ctx context.Context, email, password string) (*model.User, error) {
	user, err := c.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	match, err := crypto.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !match {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// FindByIDAndSessionToken returns the user with id if one of its sessions
// carries exactly token, and nil otherwise. Expiry is not checked here.
func (c *CredentialStore) FindByIDAndSessionToken(ctx context.Context, id, token string) (*model.User, error) {
	if id == "" || token == "" {
		return nil, nil
	}

	user, err := c.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}

	for _, s := range user.Sessions {
		if tokensEqual(s.Token, token) {
			return user, nil
		}
	}
	return nil, nil
}

func validateEmail(email string) error {
	if email == "" {
		return ErrEmailRequired
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}
