package repository

import (
	"context"
	"errors"

	"github.com/taskmanager/taskmanager-go/internal/docstore"
	"github.com/taskmanager/taskmanager-go/internal/model"
)

const listsCollection = "lists"

var ErrListNotFound = errors.New("list not found")

// ListRepository handles list persistence operations. Every lookup is scoped
// to the owning user.
type ListRepository struct {
	lists docstore.Collection
}

// NewListRepository creates a new ListRepository.
func NewListRepository(store docstore.Store) *ListRepository {
	return &ListRepository{lists: store.Collection(listsCollection)}
}

// ListByUser returns every list owned by userID, oldest first.
func (r *ListRepository) ListByUser(ctx context.Context, userID string) ([]model.List, error) {
	var lists []model.List
	if err := r.lists.Find(ctx, docstore.Filter{"_userId": userID}, &lists); err != nil {
		return nil, err
	}
	if lists == nil {
		lists = []model.List{}
	}
	return lists, nil
}

// Get returns the list with id if userID owns it.
func (r *ListRepository) Get(ctx context.Context, userID, id string) (*model.List, error) {
	list := &model.List{}
	err := r.lists.FindOne(ctx, ownedList(userID, id), list)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrListNotFound
		}
		return nil, err
	}
	return list, nil
}

// Create inserts a new list.
func (r *ListRepository) Create(ctx context.Context, list *model.List) error {
	return r.lists.Insert(ctx, list)
}

// Update applies patch to the list if userID owns it.
func (r *ListRepository) Update(ctx context.Context, userID, id string, patch docstore.Patch) error {
	err := r.lists.UpdateOne(ctx, ownedList(userID, id), patch)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrListNotFound
	}
	return err
}

// Delete removes the list if userID owns it and returns the removed list.
func (r *ListRepository) Delete(ctx context.Context, userID, id string) (*model.List, error) {
	list := &model.List{}
	err := r.lists.DeleteOne(ctx, ownedList(userID, id), list)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrListNotFound
		}
		return nil, err
	}
	return list, nil
}

func ownedList(userID, id string) docstore.Filter {
	return docstore.Filter{docstore.IDField: id, "_userId": userID}
}
