package repo

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo stores each document under _id = key. Subscriptions need a replica
// set because they ride on change streams.
type Mongo struct {
	DB *mongo.Database
}

var (
	_ Store           = (*Mongo)(nil)
	_ VersionedPutter = (*Mongo)(nil)
)

// IndexSpec lists the compound equality indexes created per collection.
type IndexSpec map[string][][]string

func NewMongoRepo(db *mongo.Database, indexes IndexSpec) *Mongo {
	ctx := context.Background()

	for collection, sets := range indexes {
		for _, fields := range sets {
			keys := bson.D{}
			for _, f := range fields {
				keys = append(keys, bson.E{Key: f, Value: 1})
			}
			_, _ = db.Collection(collection).Indexes().CreateOne(ctx, mongo.IndexModel{
				Keys:    keys,
				Options: options.Index().SetBackground(true),
			})
		}
	}

	return &Mongo{DB: db}
}

func (r *Mongo) Put(ctx context.Context, collection, key string, fields Fields) error {
	_, err := r.DB.Collection(collection).ReplaceOne(ctx, bson.M{"_id": key}, toBSON(key, fields), options.Replace().SetUpsert(true))
	return errors.Wrapf(err, "mongo put %s/%s", collection, key)
}

func (r *Mongo) PutIfVersion(ctx context.Context, collection, key string, fields Fields, expected int64) error {
	coll := r.DB.Collection(collection)
	if expected == 0 {
		_, err := coll.InsertOne(ctx, toBSON(key, fields))
		if mongo.IsDuplicateKeyError(err) {
			return ErrVersionMismatch
		}
		return errors.Wrapf(err, "mongo insert %s/%s", collection, key)
	}
	res, err := coll.ReplaceOne(ctx, bson.M{"_id": key, VersionField: expected}, toBSON(key, fields))
	if err != nil {
		return errors.Wrapf(err, "mongo replace %s/%s", collection, key)
	}
	if res.MatchedCount == 0 {
		return ErrVersionMismatch
	}
	return nil
}

func (r *Mongo) Get(ctx context.Context, collection, key string) (Document, error) {
	var raw bson.M
	if err := r.DB.Collection(collection).FindOne(ctx, bson.M{"_id": key}).Decode(&raw); err != nil {
		if err == mongo.ErrNoDocuments {
			return Document{}, ErrNotFound
		}
		return Document{}, errors.Wrapf(err, "mongo get %s/%s", collection, key)
	}
	return fromBSON(raw), nil
}

func (r *Mongo) Delete(ctx context.Context, collection, key string) error {
	_, err := r.DB.Collection(collection).DeleteOne(ctx, bson.M{"_id": key})
	return errors.Wrapf(err, "mongo delete %s/%s", collection, key)
}

func (r *Mongo) Query(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	match := bson.M{}
	for k, v := range filter {
		match[k] = v
	}
	cur, err := r.DB.Collection(collection).Find(ctx, match, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, errors.Wrapf(err, "mongo find %s", collection)
	}
	defer cur.Close(ctx)

	var rows []bson.M
	if err := cur.All(ctx, &rows); err != nil {
		return nil, errors.Wrapf(err, "mongo decode %s", collection)
	}
	out := make([]Document, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromBSON(row))
	}
	return out, nil
}

// Subscribe opens the change stream before the initial read so no write
// between the two is missed. Every event triggers a fresh filtered query.
func (r *Mongo) Subscribe(ctx context.Context, collection string, filter Filter, onSnapshot func([]Document), onError func(error)) (Unsubscribe, error) {
	sctx, cancel := context.WithCancel(ctx)
	stream, err := r.DB.Collection(collection).Watch(sctx, mongo.Pipeline{})
	if err != nil {
		cancel()
		return nil, errors.Wrapf(err, "mongo watch %s", collection)
	}

	go func() {
		defer stream.Close(context.Background())

		deliver := func() bool {
			docs, err := r.Query(sctx, collection, filter)
			if err != nil {
				if sctx.Err() == nil {
					onError(err)
				}
				return false
			}
			if sctx.Err() != nil {
				return false
			}
			onSnapshot(docs)
			return true
		}

		if !deliver() {
			return
		}
		for stream.Next(sctx) {
			if !deliver() {
				return
			}
		}
		if sctx.Err() != nil {
			return
		}
		if err := stream.Err(); err != nil {
			onError(errors.Wrapf(err, "mongo change stream %s", collection))
			return
		}
		onError(errors.Errorf("mongo change stream %s closed", collection))
	}()

	return Unsubscribe(cancel), nil
}

func toBSON(key string, fields Fields) bson.M {
	doc := bson.M{"_id": key}
	for k, v := range fields.Clone() {
		doc[k] = v
	}
	return doc
}

func fromBSON(raw bson.M) Document {
	key, _ := raw["_id"].(string)
	fields := make(Fields, len(raw))
	for k, v := range raw {
		if k == "_id" {
			continue
		}
		fields[k] = normalizeBSON(v)
	}
	return Document{Key: key, Fields: fields}
}

func normalizeBSON(v interface{}) interface{} {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.A:
		out := make([]interface{}, len(t))
		for i := range t {
			out[i] = normalizeBSON(t[i])
		}
		return out
	case primitive.D:
		out := make(map[string]interface{}, len(t))
		for _, e := range t {
			out[e.Key] = normalizeBSON(e.Value)
		}
		return out
	case bson.M:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = normalizeBSON(e)
		}
		return out
	default:
		return normalize(t)
	}
}
