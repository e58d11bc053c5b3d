package mysqlstore

import (
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"

	"github.com/taskmanager/taskmanager-go/internal/docstore"
)

func TestWhere(t *testing.T) {
	cond, args, err := where("tasks", docstore.Filter{
		docstore.IDField: "t1",
		"_listId":        "l1",
	})
	if err != nil {
		t.Fatalf("where() unexpected error: %v", err)
	}

	want := `collection = ? AND id = ? AND JSON_EXTRACT(body, ?) = CAST(? AS JSON)`
	if cond != want {
		t.Errorf("where() cond = %q, want %q", cond, want)
	}
	if len(args) != 4 {
		t.Fatalf("where() args = %v, want 4 values", args)
	}
	if args[0] != "tasks" || args[1] != "t1" || args[2] != `$."_listId"` || args[3] != `"l1"` {
		t.Errorf("where() args = %v", args)
	}
}

func TestWhereEmptyFilter(t *testing.T) {
	cond, args, err := where("lists", nil)
	if err != nil {
		t.Fatalf("where() unexpected error: %v", err)
	}
	if cond != "collection = ?" || len(args) != 1 {
		t.Errorf("where() = %q %v", cond, args)
	}
}

func TestWhereRejectsBadField(t *testing.T) {
	_, _, err := where("lists", docstore.Filter{`x") OR 1=1 -- `: 1})
	if !errors.Is(err, docstore.ErrInvalidFilter) {
		t.Errorf("where() error = %v, want ErrInvalidFilter", err)
	}
}

func TestJSONSet(t *testing.T) {
	expr, args, err := jsonSet(docstore.Patch{"title": "x", "completed": true})
	if err != nil {
		t.Fatalf("jsonSet() unexpected error: %v", err)
	}

	want := `JSON_SET(body, ?, CAST(? AS JSON), ?, CAST(? AS JSON))`
	if expr != want {
		t.Errorf("jsonSet() = %q, want %q", expr, want)
	}
	if args[0] != `$."completed"` || args[1] != "true" || args[2] != `$."title"` || args[3] != `"x"` {
		t.Errorf("jsonSet() args = %v", args)
	}
}

func TestMapError(t *testing.T) {
	dup := &mysql.MySQLError{Number: errDuplicateEntry, Message: "Duplicate entry"}
	if !errors.Is(mapError(dup), docstore.ErrDuplicate) {
		t.Error("mapError() should map 1062 to ErrDuplicate")
	}

	other := &mysql.MySQLError{Number: 1146, Message: "Table doesn't exist"}
	if errors.Is(mapError(other), docstore.ErrDuplicate) {
		t.Error("mapError() should not map 1146 to ErrDuplicate")
	}

	if mapError(nil) != nil {
		t.Error("mapError(nil) should be nil")
	}
}
