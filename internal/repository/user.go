package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/taskmanager/taskmanager-go/internal/docstore"
	"github.com/taskmanager/taskmanager-go/internal/model"
)

const usersCollection = "users"

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
	ErrStaleRevision  = errors.New("user was modified concurrently")
)

// UserRepository handles user persistence operations.
type UserRepository struct {
	store docstore.Store
	users docstore.Collection

	indexMu sync.Mutex
	indexed atomic.Bool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(store docstore.Store) *UserRepository {
	return &UserRepository{
		store: store,
		users: store.Collection(usersCollection),
	}
}

// EnsureIndexes declares the unique email constraint. Until a call succeeds
// Create keeps retrying it and refuses to insert.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	if r.indexed.Load() {
		return nil
	}

	r.indexMu.Lock()
	defer r.indexMu.Unlock()
	if r.indexed.Load() {
		return nil
	}

	if err := r.store.EnsureUnique(ctx, usersCollection, "email"); err != nil {
		return fmt.Errorf("ensuring user indexes: %w", err)
	}
	r.indexed.Store(true)
	return nil
}

// Create inserts a new user. The caller assigns the ID.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.EnsureIndexes(ctx); err != nil {
		return err
	}

	if user.Sessions == nil {
		user.Sessions = []model.Session{}
	}

	if err := r.users.Insert(ctx, user); err != nil {
		if errors.Is(err, docstore.ErrDuplicate) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// GetByEmail retrieves a user by their email address. The match is exact.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, docstore.Filter{"email": email})
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, docstore.Filter{docstore.IDField: id})
}

// ReplaceSessions overwrites the session list of the user, provided the stored
// revision still equals rev. On success the revision becomes rev+1.
func (r *UserRepository) ReplaceSessions(ctx context.Context, id string, rev int64, sessions []model.Session) error {
	err := r.users.UpdateOne(ctx,
		docstore.Filter{docstore.IDField: id, "rev": rev},
		docstore.Patch{"sessions": sessions, "rev": rev + 1},
	)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrStaleRevision
	}
	return err
}

func (r *UserRepository) findOne(ctx context.Context, filter docstore.Filter) (*model.User, error) {
	user := &model.User{}
	if err := r.users.FindOne(ctx, filter, user); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
