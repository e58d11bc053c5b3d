package crypto

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer   = "taskmanager"
	tokenAudience = "taskmanager-api"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// KeyFunc returns the HMAC key for the user named in a token's subject.
// It is called before the signature is checked, so subject is untrusted.
type KeyFunc func(subject string) ([]byte, error)

// GenerateAccessToken creates a signed HS256 JWT whose subject is userID.
func GenerateAccessToken(userID string, key []byte, expiry time.Duration, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    tokenIssuer,
		Audience:  jwt.ClaimStrings{tokenAudience},
		ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}

// ValidateAccessToken verifies tokenString and returns its subject.
//
// Verification is two-step: the subject is read from the parsed claims, keyFor
// resolves that user's key, and only then is the signature checked against it.
// A token whose subject names a different user than the one whose key signed
// it therefore fails. Expired tokens yield ErrTokenExpired, everything else
// ErrInvalidToken.
func ValidateAccessToken(tokenString string, keyFor KeyFunc, now time.Time) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		if claims.Subject == "" {
			return nil, ErrInvalidToken
		}
		return keyFor(claims.Subject)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrInvalidToken
	}

	if !token.Valid {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}
