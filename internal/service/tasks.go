package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/taskmanager/taskmanager-go/internal/docstore"
	"github.com/taskmanager/taskmanager-go/internal/model"
	"github.com/taskmanager/taskmanager-go/internal/repository"
)

var ErrTaskNotFound = errors.New("task not found")

// TaskService handles task business logic. Each operation first confirms
// that the user owns the parent list.
type TaskService struct {
	lists *ListService
	tasks *repository.TaskRepository
}

// NewTaskService creates a new TaskService.
func NewTaskService(lists *ListService, tasks *repository.TaskRepository) *TaskService {
	return &TaskService{lists: lists, tasks: tasks}
}

// ListTasks returns the tasks of a list owned by userID.
func (s *TaskService) ListTasks(ctx context.Context, userID, listID string) ([]model.Task, error) {
	if _, err := s.lists.ownedList(ctx, userID, listID); err != nil {
		return nil, err
	}
	return s.tasks.ListByList(ctx, listID)
}

// CreateTask adds an incomplete task to a list owned by userID.
func (s *TaskService) CreateTask(ctx context.Context, userID, listID string, req model.TaskRequest) (model.Task, error) {
	if _, err := s.lists.ownedList(ctx, userID, listID); err != nil {
		return model.Task{}, err
	}

	title, err := requireTitle(req.Title)
	if err != nil {
		return model.Task{}, err
	}

	task := model.Task{
		ID:     uuid.NewString(),
		Title:  title,
		ListID: listID,
	}
	if err := s.tasks.Create(ctx, &task); err != nil {
		return model.Task{}, err
	}
	return task, nil
}

// UpdateTask sets the title and/or completion of a task.
func (s *TaskService) UpdateTask(ctx context.Context, userID, listID, taskID string, req model.TaskRequest) error {
	if _, err := s.lists.ownedList(ctx, userID, listID); err != nil {
		return err
	}

	patch := docstore.Patch{}
	if req.Title != nil {
		title, err := requireTitle(req.Title)
		if err != nil {
			return err
		}
		patch["title"] = title
	}
	if req.Completed != nil {
		patch["completed"] = *req.Completed
	}
	if len(patch) == 0 {
		return ErrNothingToSet
	}

	err := s.tasks.Update(ctx, listID, taskID, patch)
	if errors.Is(err, repository.ErrTaskNotFound) {
		return ErrTaskNotFound
	}
	return err
}

// DeleteTask removes a task and returns it.
func (s *TaskService) DeleteTask(ctx context.Context, userID, listID, taskID string) (model.Task, error) {
	if _, err := s.lists.ownedList(ctx, userID, listID); err != nil {
		return model.Task{}, err
	}

	task, err := s.tasks.Delete(ctx, listID, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return model.Task{}, ErrTaskNotFound
		}
		return model.Task{}, err
	}
	return *task, nil
}
