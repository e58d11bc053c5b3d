package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/taskmanager/taskmanager-go/internal/crypto"
	"github.com/taskmanager/taskmanager-go/internal/docstore"
	"github.com/taskmanager/taskmanager-go/internal/docstore/memory"
	"github.com/taskmanager/taskmanager-go/internal/metrics"
	"github.com/taskmanager/taskmanager-go/internal/model"
	"github.com/taskmanager/taskmanager-go/internal/repository"
)

const (
	testServerSecret = "test-server-secret"
	testSessionTTL   = 240 * time.Hour
	testAccessTTL    = 15 * time.Minute
)

var cheapParams = crypto.HashParams{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

type fixture struct {
	store    docstore.Store
	users    *repository.UserRepository
	creds    *CredentialStore
	sessions *SessionManager
	tokens   *TokenIssuer
	auth     *AuthService
	metrics  *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.New()
	f := &fixture{
		store:   store,
		users:   repository.NewUserRepository(store),
		metrics: metrics.New(),
	}
	if err := f.users.EnsureIndexes(context.Background()); err != nil {
		t.Fatalf("EnsureIndexes() unexpected error: %v", err)
	}
	f.creds = NewCredentialStore(f.users, cheapParams)
	f.sessions = NewSessionManager(f.users, testSessionTTL, f.metrics)
	f.tokens = NewTokenIssuer(f.users, testServerSecret, testAccessTTL)
	f.auth = NewAuthService(f.creds, f.sessions, f.tokens)
	return f
}

func (f *fixture) createUser(t *testing.T, email string) *model.User {
	t.Helper()
	user, err := f.creds.Create(context.Background(), email, "password1")
	if err != nil {
		t.Fatalf("Create(%q) unexpected error: %v", email, err)
	}
	return user
}

func (f *fixture) reload(t *testing.T, id string) *model.User {
	t.Helper()
	user, err := f.users.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID(%q) unexpected error: %v", id, err)
	}
	return user
}

// brokenStore fails every read, as an unreachable database would.
type brokenStore struct{}

var errStoreDown = errors.New("connection refused")

func (brokenStore) Collection(string) docstore.Collection { return brokenCollection{} }
func (brokenStore) EnsureUnique(context.Context, string, string) error { return errStoreDown }
func (brokenStore) Ping(context.Context) error { return errStoreDown }
func (brokenStore) Close(context.Context) error { return nil }

type brokenCollection struct{}

func (brokenCollection) Find(context.Context, docstore.Filter, any) error { return errStoreDown }
func (brokenCollection) FindOne(context.Context, docstore.Filter, any) error { return errStoreDown }
func (brokenCollection) Insert(context.Context, any) error { return errStoreDown }
func (brokenCollection) UpdateOne(context.Context, docstore.Filter, docstore.Patch) error {
	return errStoreDown
}
func (brokenCollection) DeleteOne(context.Context, docstore.Filter, any) error { return errStoreDown }
func (brokenCollection) DeleteMany(context.Context, docstore.Filter) (int64, error) {
	return 0, errStoreDown
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
