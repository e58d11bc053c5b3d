package service

import (
	"context"
	"errors"
	"testing"

	"github.com/taskmanager/taskmanager-go/internal/docstore/memory"
	"github.com/taskmanager/taskmanager-go/internal/model"
	"github.com/taskmanager/taskmanager-go/internal/repository"
)

func newTestListServices() (*ListService, *TaskService) {
	store := memory.New()
	tasks := repository.NewTaskRepository(store)
	lists := NewListService(repository.NewListRepository(store), tasks)
	return lists, NewTaskService(lists, tasks)
}

func ptr[T any](v T) *T { return &v }

func TestCreateList_TitleRequired(t *testing.T) {
	lists, _ := newTestListServices()

	for _, title := range []*string{nil, ptr(""), ptr("   ")} {
		if _, err := lists.CreateList(context.Background(), "u1", model.ListRequest{Title: title}); !errors.Is(err, ErrTitleRequired) {
			t.Errorf("CreateList() error = %v, want ErrTitleRequired", err)
		}
	}
}

func TestListLifecycle(t *testing.T) {
	lists, tasks := newTestListServices()
	ctx := context.Background()

	empty, err := lists.ListLists(ctx, "u1")
	if err != nil {
		t.Fatalf("ListLists() unexpected error: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("ListLists() = %v, want empty non-nil slice", empty)
	}

	list, err := lists.CreateList(ctx, "u1", model.ListRequest{Title: ptr("Groceries")})
	if err != nil {
		t.Fatalf("CreateList() unexpected error: %v", err)
	}
	if list.ID == "" || list.UserID != "u1" {
		t.Errorf("CreateList() = %+v", list)
	}

	if err := lists.UpdateList(ctx, "u1", list.ID, model.ListRequest{}); !errors.Is(err, ErrNothingToSet) {
		t.Errorf("UpdateList() error = %v, want ErrNothingToSet", err)
	}
	if err := lists.UpdateList(ctx, "u1", list.ID, model.ListRequest{Title: ptr("Shopping")}); err != nil {
		t.Fatalf("UpdateList() unexpected error: %v", err)
	}

	for _, title := range []string{"milk", "eggs"} {
		if _, err := tasks.CreateTask(ctx, "u1", list.ID, model.TaskRequest{Title: ptr(title)}); err != nil {
			t.Fatalf("CreateTask() unexpected error: %v", err)
		}
	}

	removed, err := lists.DeleteList(ctx, "u1", list.ID)
	if err != nil {
		t.Fatalf("DeleteList() unexpected error: %v", err)
	}
	if removed.Title != "Shopping" {
		t.Errorf("DeleteList() title = %q, want %q", removed.Title, "Shopping")
	}

	left, err := lists.tasks.ListByList(ctx, list.ID)
	if err != nil {
		t.Fatalf("ListByList() unexpected error: %v", err)
	}
	if len(left) != 0 {
		t.Errorf("tasks after list delete = %v, want none", left)
	}
}

func TestListOwnership(t *testing.T) {
	lists, tasks := newTestListServices()
	ctx := context.Background()

	list, err := lists.CreateList(ctx, "owner", model.ListRequest{Title: ptr("private")})
	if err != nil {
		t.Fatalf("CreateList() unexpected error: %v", err)
	}

	if err := lists.UpdateList(ctx, "intruder", list.ID, model.ListRequest{Title: ptr("mine")}); !errors.Is(err, ErrListNotFound) {
		t.Errorf("UpdateList() error = %v, want ErrListNotFound", err)
	}
	if _, err := lists.DeleteList(ctx, "intruder", list.ID); !errors.Is(err, ErrListNotFound) {
		t.Errorf("DeleteList() error = %v, want ErrListNotFound", err)
	}
	if _, err := tasks.ListTasks(ctx, "intruder", list.ID); !errors.Is(err, ErrListNotFound) {
		t.Errorf("ListTasks() error = %v, want ErrListNotFound", err)
	}
	if _, err := tasks.CreateTask(ctx, "intruder", list.ID, model.TaskRequest{Title: ptr("x")}); !errors.Is(err, ErrListNotFound) {
		t.Errorf("CreateTask() error = %v, want ErrListNotFound", err)
	}
}

func TestTaskLifecycle(t *testing.T) {
	lists, tasks := newTestListServices()
	ctx := context.Background()

	a, _ := lists.CreateList(ctx, "u1", model.ListRequest{Title: ptr("a")})
	b, _ := lists.CreateList(ctx, "u1", model.ListRequest{Title: ptr("b")})

	task, err := tasks.CreateTask(ctx, "u1", a.ID, model.TaskRequest{Title: ptr("write tests")})
	if err != nil {
		t.Fatalf("CreateTask() unexpected error: %v", err)
	}
	if task.Completed || task.ListID != a.ID {
		t.Errorf("CreateTask() = %+v", task)
	}

	if err := tasks.UpdateTask(ctx, "u1", a.ID, task.ID, model.TaskRequest{}); !errors.Is(err, ErrNothingToSet) {
		t.Errorf("UpdateTask() error = %v, want ErrNothingToSet", err)
	}
	if err := tasks.UpdateTask(ctx, "u1", a.ID, task.ID, model.TaskRequest{Completed: ptr(true)}); err != nil {
		t.Fatalf("UpdateTask() unexpected error: %v", err)
	}

	// Right owner, wrong list.
	if err := tasks.UpdateTask(ctx, "u1", b.ID, task.ID, model.TaskRequest{Completed: ptr(false)}); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("UpdateTask() error = %v, want ErrTaskNotFound", err)
	}

	got, err := tasks.ListTasks(ctx, "u1", a.ID)
	if err != nil {
		t.Fatalf("ListTasks() unexpected error: %v", err)
	}
	if len(got) != 1 || !got[0].Completed || got[0].Title != "write tests" {
		t.Errorf("ListTasks() = %+v", got)
	}

	removed, err := tasks.DeleteTask(ctx, "u1", a.ID, task.ID)
	if err != nil {
		t.Fatalf("DeleteTask() unexpected error: %v", err)
	}
	if removed.ID != task.ID {
		t.Errorf("DeleteTask() = %+v", removed)
	}
	if _, err := tasks.DeleteTask(ctx, "u1", a.ID, task.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("DeleteTask() error = %v, want ErrTaskNotFound", err)
	}
}
