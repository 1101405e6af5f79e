package repository

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/tenantly/authweb/internal/activity"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo stores events in a MongoDB collection.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	return &MongoRepo{col: col}
}

// EnsureIndexes creates the (kind, at) index used by the dashboard counters
// and an index on at for the recent list.
func (m *MongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := m.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "at", Value: -1}}},
		{Keys: bson.D{{Key: "at", Value: -1}}},
	})
	return err
}

func (m *MongoRepo) Insert(ctx context.Context, e *activity.Event) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	if e.ID == "" {
		e.ID = ulid.MustNew(ulid.Timestamp(e.At), ulid.DefaultEntropy()).String()
	}
	_, err := m.col.InsertOne(ctx, e)
	return err
}

func (m *MongoRepo) Recent(ctx context.Context, limit int) ([]*activity.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := m.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*activity.Event{}
	for cur.Next(ctx) {
		var e activity.Event
		if err := cur.Decode(&e); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, cur.Err()
}

func (m *MongoRepo) CountSince(ctx context.Context, kind activity.Kind, since time.Time) (int64, error) {
	return m.col.CountDocuments(ctx, bson.M{"kind": kind, "at": bson.M{"$gte": since.UTC()}})
}
