// Package docstoretest is a behavioral test suite every docstore backend has
// to pass. The memory backend always runs it; the database backends run it
// when a connection string for a live server is provided.
package docstoretest

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmanager/taskmanager-go/internal/docstore"
)

type note struct {
	ID    string   `json:"_id" bson:"_id"`
	Owner string   `json:"owner" bson:"owner"`
	Title string   `json:"title" bson:"title"`
	Done  bool     `json:"done" bson:"done"`
	Rev   int64    `json:"rev" bson:"rev"`
	Tags  []string `json:"tags" bson:"tags"`
}

// collectionName returns a name no earlier run has used, so suites can share
// a database.
func collectionName(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Run exercises store against the docstore contract.
func Run(t *testing.T, store docstore.Store) {
	t.Helper()

	t.Run("FindKeepsInsertionOrder", func(t *testing.T) {
		ctx := context.Background()
		c := store.Collection(collectionName("notes"))
		require.NoError(t, c.Insert(ctx, note{ID: "b", Owner: "u1", Tags: []string{}}))
		require.NoError(t, c.Insert(ctx, note{ID: "a", Owner: "u1", Tags: []string{}}))
		require.NoError(t, c.Insert(ctx, note{ID: "c", Owner: "u2", Tags: []string{}}))

		var got []note
		require.NoError(t, c.Find(ctx, docstore.Filter{"owner": "u1"}, &got))
		require.Len(t, got, 2)
		assert.Equal(t, "b", got[0].ID)
		assert.Equal(t, "a", got[1].ID)

		var none []note
		require.NoError(t, c.Find(ctx, docstore.Filter{"owner": "nobody"}, &none))
		assert.Empty(t, none)
	})

	t.Run("FilterMatchesTypedValues", func(t *testing.T) {
		ctx := context.Background()
		c := store.Collection(collectionName("notes"))
		require.NoError(t, c.Insert(ctx, note{ID: "n1", Done: true, Rev: 3, Tags: []string{}}))
		require.NoError(t, c.Insert(ctx, note{ID: "n2", Done: false, Rev: 3, Tags: []string{}}))

		var done []note
		require.NoError(t, c.Find(ctx, docstore.Filter{"done": true, "rev": int64(3)}, &done))
		require.Len(t, done, 1)
		assert.Equal(t, "n1", done[0].ID)

		var got note
		err := c.FindOne(ctx, docstore.Filter{docstore.IDField: "n1", "rev": int64(4)}, &got)
		assert.ErrorIs(t, err, docstore.ErrNotFound)
	})

	t.Run("UpdateOneComparesAndSwaps", func(t *testing.T) {
		ctx := context.Background()
		c := store.Collection(collectionName("notes"))
		require.NoError(t, c.Insert(ctx, note{ID: "n1", Owner: "u1", Title: "old", Tags: []string{}}))

		err := c.UpdateOne(ctx,
			docstore.Filter{docstore.IDField: "n1", "rev": int64(0)},
			docstore.Patch{"tags": []string{"x", "y"}, "rev": int64(1)},
		)
		require.NoError(t, err)

		err = c.UpdateOne(ctx,
			docstore.Filter{docstore.IDField: "n1", "rev": int64(0)},
			docstore.Patch{"tags": []string{"lost"}, "rev": int64(1)},
		)
		assert.ErrorIs(t, err, docstore.ErrNotFound)

		var got note
		require.NoError(t, c.FindOne(ctx, docstore.Filter{docstore.IDField: "n1"}, &got))
		assert.Equal(t, int64(1), got.Rev)
		assert.Equal(t, []string{"x", "y"}, got.Tags)
		assert.Equal(t, "old", got.Title)
		assert.Equal(t, "u1", got.Owner)
	})

	t.Run("DeleteOneReturnsDocument", func(t *testing.T) {
		ctx := context.Background()
		c := store.Collection(collectionName("notes"))
		require.NoError(t, c.Insert(ctx, note{ID: "n1", Title: "gone", Tags: []string{}}))

		var removed note
		require.NoError(t, c.DeleteOne(ctx, docstore.Filter{docstore.IDField: "n1"}, &removed))
		assert.Equal(t, "gone", removed.Title)

		err := c.DeleteOne(ctx, docstore.Filter{docstore.IDField: "n1"}, nil)
		assert.ErrorIs(t, err, docstore.ErrNotFound)
	})

	t.Run("DeleteManyCountsMatches", func(t *testing.T) {
		ctx := context.Background()
		c := store.Collection(collectionName("notes"))
		for _, id := range []string{"n1", "n2", "n3"} {
			owner := "u1"
			if id == "n3" {
				owner = "u2"
			}
			require.NoError(t, c.Insert(ctx, note{ID: id, Owner: owner, Tags: []string{}}))
		}

		n, err := c.DeleteMany(ctx, docstore.Filter{"owner": "u1"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		var rest []note
		require.NoError(t, c.Find(ctx, docstore.Filter{}, &rest))
		require.Len(t, rest, 1)
		assert.Equal(t, "n3", rest[0].ID)
	})

	t.Run("EnsureUniqueRejectsDuplicates", func(t *testing.T) {
		ctx := context.Background()
		name := collectionName("people")
		require.NoError(t, store.EnsureUnique(ctx, name, "title"))
		require.NoError(t, store.EnsureUnique(ctx, name, "title"))

		c := store.Collection(name)
		require.NoError(t, c.Insert(ctx, note{ID: "p1", Title: "a@x.com", Tags: []string{}}))
		err := c.Insert(ctx, note{ID: "p2", Title: "a@x.com", Tags: []string{}})
		assert.ErrorIs(t, err, docstore.ErrDuplicate)

		require.NoError(t, c.Insert(ctx, note{ID: "p3", Title: "A@x.com", Tags: []string{}}))

		other := store.Collection(collectionName("people"))
		require.NoError(t, other.Insert(ctx, note{ID: "p1", Title: "a@x.com", Tags: []string{}}))
	})
}
