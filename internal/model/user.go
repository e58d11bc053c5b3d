package model

import "time"

// User is the stored account document. PasswordHash and TokenSecret never
// leave the server; responses use UserResponse.
type User struct {
	ID           string    `json:"_id" bson:"_id"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"passwordHash" bson:"passwordHash"`
	TokenSecret  string    `json:"tokenSecret" bson:"tokenSecret"`
	Sessions     []Session `json:"sessions" bson:"sessions"`
	// Rev is bumped on every session list write and guards concurrent writers.
	Rev       int64     `json:"rev" bson:"rev"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Session is one logged-in device. ExpiresAt is in Unix seconds.
type Session struct {
	Token     string `json:"token" bson:"token"`
	ExpiresAt int64  `json:"expiresAt" bson:"expiresAt"`
}

// CreateUserRequest represents a sign-up request.
type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse represents user data safe for API responses (no sensitive fields).
type UserResponse struct {
	ID        string    `json:"_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// AccessTokenResponse is the body of a successful access token refresh.
type AccessTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

// NewUserResponse strips the secret fields from u.
func NewUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}
