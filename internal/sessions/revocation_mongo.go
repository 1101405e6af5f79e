package sessions

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRevoker implements Revoker on a collection with a TTL index on "until".
type MongoRevoker struct {
	col *mongo.Collection
}

func NewMongoRevoker(col *mongo.Collection) *MongoRevoker {
	return &MongoRevoker{col: col}
}

// EnsureIndexes creates the TTL index that lets Mongo drop stale revocations.
func (r *MongoRevoker) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "until", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0).SetName("until_ttl"),
	})
	return err
}

func (r *MongoRevoker) Revoke(ctx context.Context, id string, until time.Time) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"until": until.UTC()}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *MongoRevoker) IsRevoked(ctx context.Context, id string) (bool, error) {
	// the TTL monitor runs about once a minute, so filter on until as well
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": id, "until": bson.M{"$gt": time.Now().UTC()}})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
