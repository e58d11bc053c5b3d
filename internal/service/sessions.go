package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/taskmanager/taskmanager-go/internal/crypto"
	"github.com/taskmanager/taskmanager-go/internal/metrics"
	"github.com/taskmanager/taskmanager-go/internal/model"
	"github.com/taskmanager/taskmanager-go/internal/repository"
)

// maxSessionWrites bounds how often CreateSession reloads the user after
// losing a revision race.
const maxSessionWrites = 5

var ErrSessionConflict = errors.New("session list kept changing, giving up")

// SessionManager creates refresh-token sessions and checks their validity.
type SessionManager struct {
	users   *repository.UserRepository
	ttl     time.Duration
	now     func() time.Time
	metrics *metrics.Metrics
}

// NewSessionManager creates a SessionManager whose sessions live for ttl.
// m may be nil.
func NewSessionManager(users *repository.UserRepository, ttl time.Duration, m *metrics.Metrics) *SessionManager {
	return &SessionManager{
		users:   users,
		ttl:     ttl,
		now:     time.Now,
		metrics: m,
	}
}

// CreateSession appends a new session to user and returns its refresh token.
//
// Sessions that have already expired are dropped in the same write. The write
// is conditional on the user's revision; if another writer got there first the
// user is reloaded and the append is replayed on top of its sessions, so
// concurrent logins all keep their sessions. On success user reflects the
// stored state.
func (s *SessionManager) CreateSession(ctx context.Context, user *model.User) (string, error) {
	token, err := crypto.NewRefreshToken()
	if err != nil {
		return "", err
	}

	current := user
	for range maxSessionWrites {
		now := s.now()
		live := liveSessions(current.Sessions, now)
		sessions := append(live, model.Session{
			Token:     token,
			ExpiresAt: now.Add(s.ttl).Unix(),
		})

		pruned := len(current.Sessions) - len(live)

		err := s.users.ReplaceSessions(ctx, current.ID, current.Rev, sessions)
		if err == nil {
			user.Sessions = sessions
			user.Rev = current.Rev + 1
			s.metrics.SessionCreated(pruned)
			return token, nil
		}
		if !errors.Is(err, repository.ErrStaleRevision) {
			return "", err
		}

		current, err = s.users.GetByID(ctx, user.ID)
		if err != nil {
			return "", err
		}
	}

	return "", ErrSessionConflict
}

// IsSessionValid reports whether user has an unexpired session with token.
func (s *SessionManager) IsSessionValid(user *model.User, token string) bool {
	return IsSessionValidAt(user, token, s.now())
}

// IsSessionValidAt reports whether user has a session with token that is
// still live at now. Every session is checked.
func IsSessionValidAt(user *model.User, token string, now time.Time) bool {
	if user == nil || token == "" {
		return false
	}
	for _, s := range user.Sessions {
		if tokensEqual(s.Token, token) && sessionLive(s, now) {
			return true
		}
	}
	return false
}

func sessionLive(s model.Session, now time.Time) bool {
	return now.Unix() < s.ExpiresAt
}

// liveSessions returns a new slice holding the sessions still live at now.
func liveSessions(sessions []model.Session, now time.Time) []model.Session {
	live := make([]model.Session, 0, len(sessions)+1)
	for _, s := range sessions {
		if sessionLive(s, now) {
			live = append(live, s)
		}
	}
	return live
}

func tokensEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
