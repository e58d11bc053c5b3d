// Package mongostore implements docstore.Store on MongoDB. Documents are
// stored natively, so models need bson tags matching their json tags.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/taskmanager/taskmanager-go/internal/docstore"
)

// Store is a docstore.Store over one MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to uri and selects database. The driver connects lazily, so a
// failed ping is only logged; operations fail until the server is reachable.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		slog.Warn("mongodb ping failed", "error", err)
	} else {
		slog.Info("connected to mongodb", "database", database)
	}

	return &Store{client: client, db: client.Database(database)}, nil
}

func (s *Store) Collection(name string) docstore.Collection {
	return &collection{coll: s.db.Collection(name)}
}

func (s *Store) EnsureUnique(ctx context.Context, collection, field string) error {
	if err := docstore.ValidateField(field); err != nil {
		return err
	}

	_, err := s.db.Collection(collection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}},
		Options: options.Index().SetUnique(true).SetName(docstore.IndexName(collection, field)),
	})
	return mapError(err)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type collection struct {
	coll *mongo.Collection
}

func (c *collection) Find(ctx context.Context, filter docstore.Filter, out any) error {
	f, err := toBSON(filter)
	if err != nil {
		return err
	}

	cur, err := c.coll.Find(ctx, f)
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}

func (c *collection) FindOne(ctx context.Context, filter docstore.Filter, out any) error {
	f, err := toBSON(filter)
	if err != nil {
		return err
	}
	return mapError(c.coll.FindOne(ctx, f).Decode(out))
}

func (c *collection) Insert(ctx context.Context, doc any) error {
	_, err := c.coll.InsertOne(ctx, doc)
	return mapError(err)
}

func (c *collection) UpdateOne(ctx context.Context, filter docstore.Filter, patch docstore.Patch) error {
	if err := docstore.ValidatePatch(patch); err != nil {
		return err
	}
	f, err := toBSON(filter)
	if err != nil {
		return err
	}

	res, err := c.coll.UpdateOne(ctx, f, bson.M{"$set": bson.M(patch)})
	if err != nil {
		return mapError(err)
	}
	if res.MatchedCount == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (c *collection) DeleteOne(ctx context.Context, filter docstore.Filter, out any) error {
	f, err := toBSON(filter)
	if err != nil {
		return err
	}

	if out != nil {
		return mapError(c.coll.FindOneAndDelete(ctx, f).Decode(out))
	}

	res, err := c.coll.DeleteOne(ctx, f)
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (c *collection) DeleteMany(ctx context.Context, filter docstore.Filter) (int64, error) {
	f, err := toBSON(filter)
	if err != nil {
		return 0, err
	}

	res, err := c.coll.DeleteMany(ctx, f)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// toBSON validates filter and converts it into a query document. Field names
// are validated so that operators like $where can never be smuggled in.
func toBSON(filter docstore.Filter) (bson.M, error) {
	if err := docstore.ValidateFilter(filter); err != nil {
		return nil, err
	}
	if filter == nil {
		return bson.M{}, nil
	}
	return bson.M(filter), nil
}

func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return docstore.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", docstore.ErrDuplicate, err)
	default:
		return err
	}
}
