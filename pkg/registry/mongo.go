package registry

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/gioppoluca/foundry-graph-sub000/pkg/document"
	apperrors "github.com/gioppoluca/foundry-graph-sub000/pkg/errors"
)

// MongoStore persists graphs in MongoDB: one collection for index entries,
// one for full documents.
type MongoStore struct {
	client *mongo.Client
	index  *mongo.Collection
	graphs *mongo.Collection
}

// NewMongoStore connects to MongoDB and pings it before returning.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStorage, err, "connect mongodb")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, apperrors.Wrap(apperrors.ErrCodeStorage, err, "ping mongodb")
	}

	db := client.Database(database)
	return &MongoStore{
		client: client,
		index:  db.Collection("graph_index"),
		graphs: db.Collection("graphs"),
	}, nil
}

// List returns every index entry.
func (s *MongoStore) List(ctx context.Context) ([]document.Summary, error) {
	cur, err := s.index.Find(ctx, bson.D{})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStorage, err, "list index")
	}
	defer cur.Close(ctx)

	var entries []document.Summary
	if err := cur.All(ctx, &entries); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStorage, err, "decode index")
	}
	return entries, nil
}

// Load fetches the full document for an indexed graph. Unindexed documents
// read as deleted even when the blob still exists.
func (s *MongoStore) Load(ctx context.Context, id string) (*document.GraphDocument, error) {
	if err := s.index.FindOne(ctx, bson.M{"id": id}).Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound(id)
		}
		return nil, apperrors.Wrap(apperrors.ErrCodeStorage, err, "find index entry %s", id)
	}

	var d document.GraphDocument
	if err := s.graphs.FindOne(ctx, bson.M{"id": id}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound(id)
		}
		return nil, apperrors.Wrap(apperrors.ErrCodeStorage, err, "load graph %s", id)
	}
	return &d, nil
}

// Save upserts the document and its index entry.
func (s *MongoStore) Save(ctx context.Context, d *document.GraphDocument, entry document.Summary) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := s.graphs.ReplaceOne(ctx, bson.M{"id": d.ID}, d, opts); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeStorage, err, "save graph %s", d.ID)
	}
	if _, err := s.index.ReplaceOne(ctx, bson.M{"id": entry.ID}, entry, opts); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeStorage, err, "save index entry %s", entry.ID)
	}
	return nil
}

// Delete removes the index entry, keeping the document blob.
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.index.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeStorage, err, "delete index entry %s", id)
	}
	if res.DeletedCount == 0 {
		return notFound(id)
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

var _ Store = (*MongoStore)(nil)
