package service

import (
	"context"
	"log/slog"

	"github.com/taskmanager/taskmanager-go/internal/model"
)

// AuthResult is returned by sign-up and login. The tokens travel in response
// headers; only User goes in the body.
type AuthResult struct {
	User         model.UserResponse
	AccessToken  string
	RefreshToken string
}

// AuthService ties credentials, sessions and access tokens together.
type AuthService struct {
	credentials *CredentialStore
	sessions    *SessionManager
	tokens      *TokenIssuer
}

// NewAuthService creates a new AuthService.
func NewAuthService(credentials *CredentialStore, sessions *SessionManager, tokens *TokenIssuer) *AuthService {
	return &AuthService{
		credentials: credentials,
		sessions:    sessions,
		tokens:      tokens,
	}
}

// SignUp creates the user and opens its first session.
func (s *AuthService) SignUp(ctx context.Context, req model.CreateUserRequest) (AuthResult, error) {
	user, err := s.credentials.Create(ctx, req.Email, req.Password)
	if err != nil {
		return AuthResult{}, err
	}

	slog.Info("user created", "user_id", user.ID)
	return s.openSession(ctx, user)
}

// Login checks the credentials and opens a new session.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (AuthResult, error) {
	user, err := s.credentials.FindByCredentials(ctx, req.Email, req.Password)
	if err != nil {
		return AuthResult{}, err
	}
	return s.openSession(ctx, user)
}

// RefreshAccessToken mints an access token for a user whose session has
// already been validated.
func (s *AuthService) RefreshAccessToken(user *model.User) (string, error) {
	return s.tokens.SignAccessToken(user)
}

func (s *AuthService) openSession(ctx context.Context, user *model.User) (AuthResult, error) {
	refresh, err := s.sessions.CreateSession(ctx, user)
	if err != nil {
		return AuthResult{}, err
	}

	access, err := s.tokens.SignAccessToken(user)
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{
		User:         model.NewUserResponse(user),
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}
