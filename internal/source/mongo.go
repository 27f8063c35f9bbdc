package source

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/mesa4core/lmlmigrate/internal/document"
)

// ErrNotConnected is returned when a read is attempted before Connect.
var ErrNotConnected = errors.New("source not connected")

// MongoReader implements Reader using the MongoDB driver.
type MongoReader struct {
	uri      string
	database string
	client   *mongo.Client
}

// NewMongoReader creates a reader for database at uri. Nothing is dialed
// until Connect.
func NewMongoReader(uri, database string) *MongoReader {
	return &MongoReader{uri: uri, database: database}
}

func (r *MongoReader) Connect(ctx context.Context) error {
	client, err := mongo.Connect(options.Client().ApplyURI(r.uri))
	if err != nil {
		return fmt.Errorf("connecting to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return fmt.Errorf("pinging MongoDB: %w", err)
	}
	r.client = client
	return nil
}

func (r *MongoReader) collection(name string) (*mongo.Collection, error) {
	if r.client == nil {
		return nil, ErrNotConnected
	}
	return r.client.Database(r.database).Collection(name), nil
}

// Count returns the exact number of documents in collection.
func (r *MongoReader) Count(ctx context.Context, collection string) (int64, error) {
	coll, err := r.collection(collection)
	if err != nil {
		return 0, err
	}
	n, err := coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", collection, err)
	}
	return n, nil
}

// Iterate scans every document of collection in natural order. The cursor
// is opened without the server idle timeout because a full scan can outlive
// it; it is always closed before returning.
func (r *MongoReader) Iterate(ctx context.Context, collection string, visit VisitFunc) error {
	coll, err := r.collection(collection)
	if err != nil {
		return err
	}
	cur, err := coll.Find(ctx, bson.D{}, options.Find().SetNoCursorTimeout(true))
	if err != nil {
		return fmt.Errorf("opening cursor on %s: %w", collection, err)
	}
	defer cur.Close(context.WithoutCancel(ctx))

	for cur.Next(ctx) {
		var raw bson.D
		if err := cur.Decode(&raw); err != nil {
			return fmt.Errorf("decoding %s document: %w", collection, err)
		}
		doc, _ := document.FromBSON(raw).(document.Doc)
		if err := visit(doc); err != nil {
			return err
		}
	}
	if err := cur.Err(); err != nil {
		return fmt.Errorf("scanning %s: %w", collection, err)
	}
	return nil
}

func (r *MongoReader) Close(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	err := r.client.Disconnect(ctx)
	r.client = nil
	return err
}
