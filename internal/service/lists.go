package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/taskmanager/taskmanager-go/internal/docstore"
	"github.com/taskmanager/taskmanager-go/internal/model"
	"github.com/taskmanager/taskmanager-go/internal/repository"
)

var (
	ErrTitleRequired = errors.New("title is required")
	ErrNothingToSet  = errors.New("no updatable fields in request")
	ErrListNotFound  = errors.New("list not found")
)

// ListService handles list business logic. Every operation is scoped to the
// authenticated user.
type ListService struct {
	lists *repository.ListRepository
	tasks *repository.TaskRepository
}

// NewListService creates a new ListService.
func NewListService(lists *repository.ListRepository, tasks *repository.TaskRepository) *ListService {
	return &ListService{lists: lists, tasks: tasks}
}

// ListLists returns every list owned by userID.
func (s *ListService) ListLists(ctx context.Context, userID string) ([]model.List, error) {
	return s.lists.ListByUser(ctx, userID)
}

// CreateList creates a list owned by userID.
func (s *ListService) CreateList(ctx context.Context, userID string, req model.ListRequest) (model.List, error) {
	title, err := requireTitle(req.Title)
	if err != nil {
		return model.List{}, err
	}

	list := model.List{
		ID:     uuid.NewString(),
		Title:  title,
		UserID: userID,
	}
	if err := s.lists.Create(ctx, &list); err != nil {
		return model.List{}, err
	}
	return list, nil
}

// UpdateList renames a list owned by userID.
func (s *ListService) UpdateList(ctx context.Context, userID, listID string, req model.ListRequest) error {
	if req.Title == nil {
		return ErrNothingToSet
	}
	title, err := requireTitle(req.Title)
	if err != nil {
		return err
	}

	err = s.lists.Update(ctx, userID, listID, docstore.Patch{"title": title})
	if errors.Is(err, repository.ErrListNotFound) {
		return ErrListNotFound
	}
	return err
}

// DeleteList removes a list owned by userID together with its tasks and
// returns the removed list.
func (s *ListService) DeleteList(ctx context.Context, userID, listID string) (model.List, error) {
	list, err := s.lists.Delete(ctx, userID, listID)
	if err != nil {
		if errors.Is(err, repository.ErrListNotFound) {
			return model.List{}, ErrListNotFound
		}
		return model.List{}, err
	}

	n, err := s.tasks.DeleteByList(ctx, list.ID)
	if err != nil {
		// The list is already gone; orphaned tasks are unreachable.
		slog.Warn("deleting tasks of removed list failed", "list_id", list.ID, "error", err)
	} else if n > 0 {
		slog.Debug("deleted tasks of removed list", "list_id", list.ID, "count", n)
	}

	return *list, nil
}

// ownedList returns the list if userID owns it, ErrListNotFound otherwise.
func (s *ListService) ownedList(ctx context.Context, userID, listID string) (*model.List, error) {
	list, err := s.lists.Get(ctx, userID, listID)
	if errors.Is(err, repository.ErrListNotFound) {
		return nil, ErrListNotFound
	}
	return list, err
}

func requireTitle(title *string) (string, error) {
	if title == nil {
		return "", ErrTitleRequired
	}
	t := strings.TrimSpace(*title)
	if t == "" {
		return "", ErrTitleRequired
	}
	return t, nil
}
