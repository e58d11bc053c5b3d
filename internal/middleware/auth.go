package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/taskmanager/taskmanager-go/internal/crypto"
	"github.com/taskmanager/taskmanager-go/internal/metrics"
	"github.com/taskmanager/taskmanager-go/internal/model"
)

// Request headers carrying credentials.
const (
	HeaderAccessToken  = "x-access-token"
	HeaderRefreshToken = "x-refresh-token"
	HeaderUserID       = "_id"
)

const (
	msgUserNotFound   = "User not found. Make sure refresh token and user id are correct."
	msgSessionInvalid = "Refresh token has expired or session is invalid."
)

type contextKey string

const (
	subjectIDKey    contextKey = "subjectID"
	userKey         contextKey = "user"
	refreshTokenKey contextKey = "refreshToken"
)

// AccessTokenVerifier resolves an access token to its subject user id.
type AccessTokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (string, error)
}

// SessionChecker resolves and validates refresh-token sessions.
type SessionChecker interface {
	FindByIDAndSessionToken(ctx context.Context, id, token string) (*model.User, error)
	IsSessionValid(user *model.User, token string) bool
}

// AccessGuard returns middleware that requires a valid access token in the
// x-access-token header and puts its subject on the request context.
func AccessGuard(verifier AccessTokenVerifier, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(HeaderAccessToken)
			if token == "" {
				m.AuthFailure("access", "missing")
				writeJSONError(w, http.StatusUnauthorized, crypto.ErrInvalidToken.Error())
				return
			}

			subject, err := verifier.VerifyAccessToken(r.Context(), token)
			switch {
			case err == nil:
			case errors.Is(err, crypto.ErrTokenExpired):
				m.AuthFailure("access", "expired")
				writeJSONError(w, http.StatusUnauthorized, err.Error())
				return
			case errors.Is(err, crypto.ErrInvalidToken):
				m.AuthFailure("access", "invalid")
				writeJSONError(w, http.StatusUnauthorized, err.Error())
				return
			default:
				slog.Error("verifying access token", "error", err)
				writeJSONError(w, http.StatusInternalServerError, "internal server error")
				return
			}

			ctx := context.WithValue(r.Context(), subjectIDKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionGuard returns middleware that requires the x-refresh-token and _id
// headers to name a live session. The session's user is put on the request
// context. Sessions are neither rotated nor pruned here.
func SessionGuard(sessions SessionChecker, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(HeaderRefreshToken)
			id := r.Header.Get(HeaderUserID)

			user, err := sessions.FindByIDAndSessionToken(r.Context(), id, token)
			if err != nil {
				slog.Error("looking up session", "error", err)
				writeJSONError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			if user == nil {
				m.AuthFailure("session", "not_found")
				writeJSONError(w, http.StatusUnauthorized, msgUserNotFound)
				return
			}

			if !sessions.IsSessionValid(user, token) {
				m.AuthFailure("session", "expired")
				writeJSONError(w, http.StatusUnauthorized, msgSessionInvalid)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			ctx = context.WithValue(ctx, refreshTokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SubjectIDFromContext returns the user id established by AccessGuard.
func SubjectIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(subjectIDKey).(string)
	return id, ok && id != ""
}

// UserFromContext returns the user established by SessionGuard.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userKey).(*model.User)
	return user, ok && user != nil
}

// RefreshTokenFromContext returns the refresh token accepted by SessionGuard.
func RefreshTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(refreshTokenKey).(string)
	return token, ok
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
