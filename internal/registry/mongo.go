package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/ddlconv/ddlconv/internal/diag"
)

const collectionName = "configs"

// MongoStore keeps documents in a MongoDB collection keyed by table name.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// The document is stored as text so field order survives the round trip.
type mongoRecord struct {
	Table     string    `bson:"_id"`
	Document  string    `bson:"document"`
	Hash      string    `bson:"hash"`
	Source    string    `bson:"source,omitempty"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// NewMongoStore connects to uri and pings the deployment.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}
	if database == "" {
		database = "ddlconv"
	}
	return &MongoStore{client: client, coll: client.Database(database).Collection(collectionName)}, nil
}

func (m *MongoStore) Put(ctx context.Context, rec Record) error {
	doc := mongoRecord{
		Table:     Key(rec.Table),
		Document:  string(rec.Document),
		Hash:      rec.Hash,
		Source:    rec.Source,
		UpdatedAt: rec.UpdatedAt,
	}
	_, err := m.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: doc.Table}}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("storing %s: %w", rec.Table, err)
	}
	return nil
}

func (m *MongoStore) Get(ctx context.Context, table string) (*Record, error) {
	var doc mongoRecord
	err := m.coll.FindOne(ctx, bson.D{{Key: "_id", Value: Key(table)}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, diag.NotFoundf(table, "no published configuration")
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", table, err)
	}
	rec := doc.record()
	return &rec, nil
}

func (m *MongoStore) List(ctx context.Context) ([]Record, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetProjection(bson.D{{Key: "document", Value: 0}})
	cur, err := m.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("listing configurations: %w", err)
	}
	var docs []mongoRecord
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("reading configurations: %w", err)
	}
	out := make([]Record, len(docs))
	for i, d := range docs {
		out[i] = d.record()
	}
	return out, nil
}

func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (d mongoRecord) record() Record {
	var doc []byte
	if d.Document != "" {
		doc = []byte(d.Document)
	}
	return Record{Table: d.Table, Document: doc, Hash: d.Hash, Source: d.Source, UpdatedAt: d.UpdatedAt}
}
