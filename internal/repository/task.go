package repository

import (
	"context"
	"errors"

	"github.com/taskmanager/taskmanager-go/internal/docstore"
	"github.com/taskmanager/taskmanager-go/internal/model"
)

const tasksCollection = "tasks"

var ErrTaskNotFound = errors.New("task not found")

// TaskRepository handles task persistence operations. It does not check list
// ownership; callers do that through ListRepository first.
type TaskRepository struct {
	tasks docstore.Collection
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(store docstore.Store) *TaskRepository {
	return &TaskRepository{tasks: store.Collection(tasksCollection)}
}

// ListByList returns the tasks of a list, oldest first.
func (r *TaskRepository) ListByList(ctx context.Context, listID string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.tasks.Find(ctx, docstore.Filter{"_listId": listID}, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, nil
}

// Create inserts a new task.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	return r.tasks.Insert(ctx, task)
}

// Update applies patch to the task with id inside listID.
func (r *TaskRepository) Update(ctx context.Context, listID, id string, patch docstore.Patch) error {
	err := r.tasks.UpdateOne(ctx, taskInList(listID, id), patch)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrTaskNotFound
	}
	return err
}

// Delete removes the task with id inside listID and returns it.
func (r *TaskRepository) Delete(ctx context.Context, listID, id string) (*model.Task, error) {
	task := &model.Task{}
	err := r.tasks.DeleteOne(ctx, taskInList(listID, id), task)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

// DeleteByList removes every task of a list and reports how many were removed.
func (r *TaskRepository) DeleteByList(ctx context.Context, listID string) (int64, error) {
	return r.tasks.DeleteMany(ctx, docstore.Filter{"_listId": listID})
}

func taskInList(listID, id string) docstore.Filter {
	return docstore.Filter{docstore.IDField: id, "_listId": listID}
}
