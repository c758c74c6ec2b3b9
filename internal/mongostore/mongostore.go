// Package mongostore stores history records in a MongoDB collection.
//
// Documents carry the record id in _id and created_at as a BSON datetime.
// A compound index on {created_at: -1, _id: -1} serves the recent-window
// query in the same order as the SQLite store.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/roach88/histories/internal/history"
)

// DefaultCollection is used when no collection name is configured.
const DefaultCollection = "histories"

const recentIndexName = "created_at_-1__id_-1"

type recordDocument struct {
	ID        string    `bson:"_id"`
	Host      string    `bson:"host"`
	Topic     string    `bson:"topic"`
	Message   string    `bson:"message"`
	CreatedAt time.Time `bson:"created_at"`
}

func toDocument(r history.Record) recordDocument {
	return recordDocument{
		ID:        r.ID,
		Host:      r.Host,
		Topic:     r.Topic,
		Message:   r.Message,
		CreatedAt: r.CreatedAt,
	}
}

func (d recordDocument) record() history.Record {
	return history.Record{
		ID:        d.ID,
		Host:      d.Host,
		Topic:     d.Topic,
		Message:   d.Message,
		CreatedAt: d.CreatedAt.UTC(),
	}
}

// Config names the deployment and collection to use.
type Config struct {
	URI        string
	Database   string
	Collection string
}

// Store implements history.Backend on a MongoDB collection.
type Store struct {
	collection *mongo.Collection
	ids        history.IDGenerator

	// client is set when the Store opened the connection itself and must
	// disconnect it on Close.
	client *mongo.Client
}

var _ history.Backend = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides the UUIDv7 id generator.
func WithIDGenerator(g history.IDGenerator) Option {
	return func(s *Store) {
		s.ids = g
	}
}

// New wraps a collection of an existing database handle.
// collectionName defaults to "histories" if empty. The caller keeps
// ownership of the client; Close is a no-op.
func New(db *mongo.Database, collectionName string, opts ...Option) *Store {
	if collectionName == "" {
		collectionName = DefaultCollection
	}
	s := &Store{
		collection: db.Collection(collectionName),
		ids:        history.UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects to cfg.URI, verifies the server is reachable and ensures
// the recent-window index exists. Writes are acknowledged by a majority
// and journaled.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongostore: uri is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("mongostore: database is required")
	}

	wc := writeconcern.Majority()
	journal := true
	wc.Journal = &journal

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI).SetWriteConcern(wc))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongostore: ping: %w", err)
	}

	s := New(client.Database(cfg.Database), cfg.Collection, opts...)
	s.client = client

	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// EnsureIndexes creates the compound index used by ListRecent.
// Creating an index that already exists is a no-op on the server.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
		Options: options.Index().SetName(recentIndexName),
	})
	if err != nil {
		return fmt.Errorf("mongostore: create index: %w", err)
	}
	return nil
}

// Close disconnects the client if the Store opened it.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	err := s.client.Disconnect(context.Background())
	s.client = nil
	return err
}

// Ping checks that the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.collection.Database().Client().Ping(ctx, readpref.Primary()); err != nil {
		return history.NewStorageError("ping", err)
	}
	return nil
}

// Insert parses the draft, assigns a fresh id and stores the document.
func (s *Store) Insert(ctx context.Context, d history.Draft) (history.Record, error) {
	rec, err := history.NewRecord(s.ids.Generate(), d)
	if err != nil {
		return history.Record{}, err
	}

	if _, err := s.collection.InsertOne(ctx, toDocument(rec)); err != nil {
		return history.Record{}, history.NewStorageError("insert", err)
	}
	return rec, nil
}

// Delete removes the document with the given id.
// Returns 0 without error if no such document exists.
func (s *Store) Delete(ctx context.Context, id string) (int64, error) {
	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, history.NewStorageError("delete", err)
	}
	return res.DeletedCount, nil
}

// ListRecent returns up to history.RecentLimit records, newest first.
func (s *Store) ListRecent(ctx context.Context) ([]history.Record, error) {
	return s.find(ctx, "list recent", history.RecentLimit)
}

// All returns every record in ListRecent order.
func (s *Store) All(ctx context.Context) ([]history.Record, error) {
	return s.find(ctx, "list all", 0)
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	n, err := s.collection.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, history.NewStorageError("count", err)
	}
	return n, nil
}

// Span returns the count and created_at range. The bounds come from
// single-document reads on the recent-window index; the three reads are not
// a snapshot, so a concurrent write may skew them.
func (s *Store) Span(ctx context.Context) (history.Span, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return history.Span{}, err
	}
	span := history.Span{Count: n}
	if n == 0 {
		return span, nil
	}

	if span.Newest, err = s.bound(ctx, -1); err != nil {
		return history.Span{}, err
	}
	if span.Oldest, err = s.bound(ctx, 1); err != nil {
		return history.Span{}, err
	}
	return span, nil
}

// bound reads the created_at of the first document in the given direction.
func (s *Store) bound(ctx context.Context, direction int) (time.Time, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "created_at", Value: direction}, {Key: "_id", Value: direction}}).
		SetProjection(bson.D{{Key: "created_at", Value: 1}})

	var doc recordDocument
	err := s.collection.FindOne(ctx, bson.D{}, opts).Decode(&doc)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return time.Time{}, nil
	case err != nil:
		return time.Time{}, history.NewStorageError("span", err)
	}
	return doc.CreatedAt.UTC(), nil
}

func (s *Store) find(ctx context.Context, op string, limit int64) ([]history.Record, error) {
	opts := options.Find().SetSort(recentSort())
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := s.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, history.NewStorageError(op, err)
	}

	var docs []recordDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, history.NewStorageError(op, err)
	}

	records := make([]history.Record, 0, len(docs))
	for _, d := range docs {
		records = append(records, d.record())
	}
	return records, nil
}

func recentSort() bson.D {
	return bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
}
