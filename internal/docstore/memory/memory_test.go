package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmanager/taskmanager-go/internal/docstore"
	"github.com/taskmanager/taskmanager-go/internal/docstore/docstoretest"
)

type item struct {
	ID    string `json:"_id"`
	Owner string `json:"owner"`
	Title string `json:"title"`
	Rev   int64  `json:"rev"`
}

func seed(t *testing.T, c docstore.Collection, items ...item) {
	t.Helper()
	for _, it := range items {
		require.NoError(t, c.Insert(context.Background(), it))
	}
}

func TestFindPreservesInsertionOrder(t *testing.T) {
	ctx := context.Background()
	c := New().Collection("items")
	seed(t, c,
		item{ID: "b", Owner: "u1", Title: "second"},
		item{ID: "a", Owner: "u1", Title: "first"},
		item{ID: "c", Owner: "u2", Title: "other"},
	)

	var got []item
	require.NoError(t, c.Find(ctx, docstore.Filter{"owner": "u1"}, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
}

func TestFindNoMatchReturnsEmptySlice(t *testing.T) {
	c := New().Collection("items")

	var got []item
	require.NoError(t, c.Find(context.Background(), docstore.Filter{"owner": "nobody"}, &got))
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFindOneNotFound(t *testing.T) {
	c := New().Collection("items")

	var got item
	err := c.FindOne(context.Background(), docstore.Filter{docstore.IDField: "missing"}, &got)
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestInsertRejectsDuplicateID(t *testing.T) {
	c := New().Collection("items")
	seed(t, c, item{ID: "a"})

	err := c.Insert(context.Background(), item{ID: "a"})
	assert.ErrorIs(t, err, docstore.ErrDuplicate)
}

func TestInsertRequiresID(t *testing.T) {
	c := New().Collection("items")

	err := c.Insert(context.Background(), item{Title: "no id"})
	assert.ErrorIs(t, err, docstore.ErrMissingID)
}

func TestEnsureUnique(t *testing.T) {
	ctx := context.Background()
	s := New()
	c := s.Collection("users")
	require.NoError(t, s.EnsureUnique(ctx, "users", "owner"))

	seed(t, c, item{ID: "1", Owner: "a@x.com"})
	err := c.Insert(ctx, item{ID: "2", Owner: "a@x.com"})
	assert.ErrorIs(t, err, docstore.ErrDuplicate)

	seed(t, c, item{ID: "3", Owner: "b@x.com"})
	err = c.UpdateOne(ctx, docstore.Filter{docstore.IDField: "3"}, docstore.Patch{"owner": "a@x.com"})
	assert.ErrorIs(t, err, docstore.ErrDuplicate)
}

func TestEnsureUniqueRejectsExistingDuplicates(t *testing.T) {
	s := New()
	seed(t, s.Collection("users"), item{ID: "1", Owner: "dup"}, item{ID: "2", Owner: "dup"})

	err := s.EnsureUnique(context.Background(), "users", "owner")
	assert.ErrorIs(t, err, docstore.ErrDuplicate)
}

func TestUpdateOne(t *testing.T) {
	ctx := context.Background()
	c := New().Collection("items")
	seed(t, c, item{ID: "a", Title: "old", Rev: 1})

	require.NoError(t, c.UpdateOne(ctx,
		docstore.Filter{docstore.IDField: "a", "rev": int64(1)},
		docstore.Patch{"title": "new", "rev": int64(2)},
	))

	var got item
	require.NoError(t, c.FindOne(ctx, docstore.Filter{docstore.IDField: "a"}, &got))
	assert.Equal(t, "new", got.Title)
	assert.Equal(t, int64(2), got.Rev)

	// stale revision no longer matches
	err := c.UpdateOne(ctx, docstore.Filter{docstore.IDField: "a", "rev": int64(1)}, docstore.Patch{"title": "lost"})
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestUpdateOneRejectsIDChange(t *testing.T) {
	c := New().Collection("items")
	seed(t, c, item{ID: "a"})

	err := c.UpdateOne(context.Background(), docstore.Filter{docstore.IDField: "a"}, docstore.Patch{docstore.IDField: "b"})
	assert.ErrorIs(t, err, docstore.ErrInvalidFilter)
}

func TestDeleteOneReturnsRemovedDocument(t *testing.T) {
	ctx := context.Background()
	c := New().Collection("items")
	seed(t, c, item{ID: "a", Title: "gone"}, item{ID: "b"})

	var removed item
	require.NoError(t, c.DeleteOne(ctx, docstore.Filter{docstore.IDField: "a"}, &removed))
	assert.Equal(t, "gone", removed.Title)

	err := c.DeleteOne(ctx, docstore.Filter{docstore.IDField: "a"}, nil)
	assert.ErrorIs(t, err, docstore.ErrNotFound)

	var rest []item
	require.NoError(t, c.Find(ctx, docstore.Filter{}, &rest))
	assert.Len(t, rest, 1)
}

func TestDeleteMany(t *testing.T) {
	ctx := context.Background()
	c := New().Collection("items")
	seed(t, c,
		item{ID: "1", Owner: "l1"},
		item{ID: "2", Owner: "l1"},
		item{ID: "3", Owner: "l2"},
	)

	n, err := c.DeleteMany(ctx, docstore.Filter{"owner": "l1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var rest []item
	require.NoError(t, c.Find(ctx, docstore.Filter{}, &rest))
	require.Len(t, rest, 1)
	assert.Equal(t, "3", rest[0].ID)
}

func TestInvalidFilterKey(t *testing.T) {
	c := New().Collection("items")

	var got []item
	err := c.Find(context.Background(), docstore.Filter{"a.b": 1}, &got)
	assert.ErrorIs(t, err, docstore.ErrInvalidFilter)
}

func TestConcurrentInserts(t *testing.T) {
	ctx := context.Background()
	c := New().Collection("items")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, c.Insert(ctx, item{ID: string(rune('A' + i)), Owner: "u"}))
		}(i)
	}
	wg.Wait()

	var got []item
	require.NoError(t, c.Find(ctx, docstore.Filter{"owner": "u"}, &got))
	assert.Len(t, got, 50)
}

func TestStoreContract(t *testing.T) {
	docstoretest.Run(t, New())
}
