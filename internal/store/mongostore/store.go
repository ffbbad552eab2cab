// Package mongostore implements store.Store over MongoDB. Projects embed
// their member entries and task ids, users embed their project sets and
// tasks embed their comments.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/existflow/projectmate/internal/store"
)

const (
	usersCollection       = "users"
	projectsCollection    = "projects"
	tasksCollection       = "tasks"
	invitationsCollection = "invitations"
)

// Options configures the store.
type Options struct {
	URI      string
	Database string
	// Transactions must be set: every unit of work runs as a
	// multi-document transaction, which needs a replica set.
	Transactions bool
	Timeout      time.Duration
}

// Store is a MongoDB-backed store.Store.
type Store struct {
	client  *mongo.Client
	db      *mongo.Database
	session mongo.Session
}

var _ store.Store = (*Store)(nil)

// ErrTransactionsRequired is returned by Open when transactions are off.
var ErrTransactionsRequired = errors.New("mongo store requires transactions (run MongoDB as a replica set)")

// Open connects to MongoDB and ensures the indexes exist.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Database == "" {
		return nil, errors.New("mongo database name is required")
	}
	if !opts.Transactions {
		return nil, ErrTransactionsRequired
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := &Store{client: client, db: client.Database(opts.Database)}
	if err := s.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		projectsCollection: {
			{Keys: bson.D{{Key: "members.user", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
		tasksCollection: {
			{Keys: bson.D{{Key: "project", Value: 1}, {Key: "position", Value: 1}}},
			{Keys: bson.D{{Key: "assignedTo", Value: 1}}},
		},
		invitationsCollection: {
			{
				Keys: bson.D{{Key: "project", Value: 1}, {Key: "invitedUser", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetName("one_pending_per_user").
					SetPartialFilterExpression(bson.M{"status": "pending"}),
			},
			{Keys: bson.D{{Key: "invitedUser", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "expiresAt", Value: 1}}},
		},
	}
	for name, models := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", name, err)
		}
	}
	return nil
}

// Close disconnects the client. Closing a transactional view is a no-op.
func (s *Store) Close() error {
	if s.session != nil {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

// WithinTx runs fn inside a multi-document transaction. Nested calls join
// the outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(store.Repository) error) error {
	if s.session != nil {
		return fn(s)
	}
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	txStore := &Store{client: s.client, db: s.db, session: session}
	_, err = session.WithTransaction(ctx, func(mongo.SessionContext) (any, error) {
		return nil, fn(txStore)
	})
	return err
}

// opCtx binds ctx to the transaction session, if any.
func (s *Store) opCtx(ctx context.Context) context.Context {
	if s.session == nil {
		return ctx
	}
	return mongo.NewSessionContext(ctx, s.session)
}

func (s *Store) coll(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	default:
		return err
	}
}

func findOptions(sort bson.D, skip, limit int) *options.FindOptions {
	opts := options.Find().SetSort(sort)
	if limit > 0 {
		opts.SetSkip(int64(max(skip, 0))).SetLimit(int64(limit))
	}
	return opts
}

func decodeAll[T any](ctx context.Context, cur *mongo.Cursor) ([]T, error) {
	defer cur.Close(ctx)
	out := []T{}
	for cur.Next(ctx) {
		var v T
		if err := cur.Decode(&v); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		out = append(out, v)
	}
	return out, cur.Err()
}

func matchedOne(res *mongo.UpdateResult, err error) error {
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func deletedOne(res *mongo.DeleteResult, err error) error {
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
