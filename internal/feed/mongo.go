package feed

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoRecord mirrors the on-disk shape of a versioned record. Versions are
// ascending epoch-millisecond stamps; DataHistory maps the string form of
// each version (BSON document keys must be strings) to that revision's
// payload. Versionless records carry Data instead and leave Versions empty.
type mongoRecord struct {
	RecordID    int64   `bson:"id"`
	Versions    []int64 `bson:"versions"`
	DataHistory bson.M  `bson:"data_history"`
	Data        bson.M  `bson:"data"`
}

// MongoConfig holds the subset of config.Config the MongoDB feeder needs.
type MongoConfig struct {
	URI         string
	Collection  string
	MaxPoolSize int
	BatchSize   int
}

// MongoFeeder streams SourceDocuments from a MongoDB collection. Grounded
// on the teacher's internal/mongodb/client.go cursor-to-channel idiom,
// generalized from a fixed research-document schema to the versions/
// data_history shape spec.md §3 describes.
type MongoFeeder struct {
	client     *mongo.Client
	collection *mongo.Collection
	cfg        MongoConfig
}

// NewMongoFeeder connects to MongoDB and returns a feeder bound to the
// configured collection.
func NewMongoFeeder(ctx context.Context, cfg MongoConfig) (*MongoFeeder, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(uint64(cfg.MaxPoolSize)).
		SetMinPoolSize(1).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	dbName := databaseNameFromURI(cfg.URI)
	collection := client.Database(dbName).Collection(cfg.Collection)

	return &MongoFeeder{client: client, collection: collection, cfg: cfg}, nil
}

// Close disconnects the underlying MongoDB client.
func (f *MongoFeeder) Close(ctx context.Context) error {
	return f.client.Disconnect(ctx)
}

// Collection implements Feeder.
func (f *MongoFeeder) Collection() string {
	return f.cfg.Collection
}

// Total implements Feeder.
func (f *MongoFeeder) Total(ctx context.Context) (int64, error) {
	return f.collection.CountDocuments(ctx, bson.M{})
}

// Documents implements Feeder. It streams the full collection in id order
// via a server-side cursor, decoding each record and pushing it onto a
// buffered channel; the coordinator applies backpressure naturally by
// reading at its own pace.
func (f *MongoFeeder) Documents(ctx context.Context) (<-chan SourceDocument, <-chan error) {
	out := make(chan SourceDocument, f.cfg.BatchSize*2)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		opts := options.Find().
			SetBatchSize(int32(f.cfg.BatchSize)).
			SetSort(bson.D{{Key: "id", Value: 1}})

		cursor, err := f.collection.Find(ctx, bson.M{}, opts)
		if err != nil {
			errs <- fmt.Errorf("find: %w", err)
			return
		}
		defer cursor.Close(ctx)

		for cursor.Next(ctx) {
			var rec mongoRecord
			if err := cursor.Decode(&rec); err != nil {
				errs <- fmt.Errorf("decode: %w", err)
				return
			}
			doc := toSourceDocument(rec)
			select {
			case out <- doc:
			case <-ctx.Done():
				return
			}
		}
		if err := cursor.Err(); err != nil {
			errs <- fmt.Errorf("cursor: %w", err)
		}
	}()

	return out, errs
}

func toSourceDocument(rec mongoRecord) SourceDocument {
	doc := SourceDocument{
		ID:       rec.RecordID,
		Versions: rec.Versions,
	}
	if len(rec.Versions) == 0 {
		doc.Data = bsonMToMap(rec.Data)
		return doc
	}
	doc.History = make(map[int64]map[string]any, len(rec.Versions))
	for _, v := range rec.Versions {
		if raw, ok := rec.DataHistory[strconv.FormatInt(v, 10)]; ok {
			if m, ok := raw.(bson.M); ok {
				doc.History[v] = bsonMToMap(m)
				continue
			}
		}
		doc.History[v] = map[string]any{}
	}
	return doc
}

func bsonMToMap(m bson.M) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func databaseNameFromURI(uri string) string {
	for i := len(uri) - 1; i >= 0; i-- {
		if uri[i] == '/' {
			if i > 0 && uri[i-1] == '/' {
				// Reached the scheme's "//": the URI names no database.
				break
			}
			result := uri[i+1:]
			for j, c := range result {
				if c == '?' {
					return result[:j]
				}
			}
			if result != "" {
				return result
			}
			break
		}
	}
	return "verindex"
}
