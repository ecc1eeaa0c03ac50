package repository

import (
	"context"
	"errors"

	"github.com/gogotex/gogotex/backend/go-resource/internal/resource"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCollection implements Collection on a MongoDB collection. Documents are
// keyed by "_id" holding the service generated string id.
type MongoCollection struct {
	col *mongo.Collection
}

func NewMongoCollection(col *mongo.Collection) *MongoCollection {
	return &MongoCollection{col: col}
}

func (m *MongoCollection) Name() string { return m.col.Name() }

func (m *MongoCollection) List(ctx context.Context, filter resource.Filter, order resource.Sort) ([]resource.Document, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	opts := options.Find()
	if len(order) > 0 {
		opts.SetSort(sortSpec(order))
	}
	cur, err := m.col.Find(ctx, filterSpec(filter), opts)
	if err != nil {
		return nil, resource.WrapStoreError("list", m.Name(), err)
	}
	defer cur.Close(ctx)
	out := []resource.Document{}
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, resource.WrapStoreError("list", m.Name(), err)
		}
		out = append(out, fromBSON(raw))
	}
	if err := cur.Err(); err != nil {
		return nil, resource.WrapStoreError("list", m.Name(), err)
	}
	return out, nil
}

func (m *MongoCollection) Insert(ctx context.Context, doc resource.Document) (string, error) {
	if _, err := m.col.InsertOne(ctx, bson.M(doc)); err != nil {
		return "", resource.WrapStoreError("insert", m.Name(), err)
	}
	return doc.ID(), nil
}

func (m *MongoCollection) GetByID(ctx context.Context, id string) (resource.Document, error) {
	var raw bson.M
	err := m.col.FindOne(ctx, bson.M{resource.IDField: id}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, resource.WrapStoreError("get", m.Name(), err)
	}
	return fromBSON(raw), nil
}

func (m *MongoCollection) UpdateByID(ctx context.Context, id string, doc resource.Document) error {
	res, err := m.col.ReplaceOne(ctx, bson.M{resource.IDField: id}, bson.M(doc))
	if err != nil {
		return resource.WrapStoreError("update", m.Name(), err)
	}
	if res.MatchedCount == 0 {
		return resource.ErrNotFound
	}
	return nil
}

func (m *MongoCollection) RemoveByID(ctx context.Context, id string) error {
	res, err := m.col.DeleteOne(ctx, bson.M{resource.IDField: id})
	if err != nil {
		return resource.WrapStoreError("remove", m.Name(), err)
	}
	if res.DeletedCount == 0 {
		return resource.ErrNotFound
	}
	return nil
}

// EnsureHistoryIndexes creates the index backing per-document history queries.
func EnsureHistoryIndexes(ctx context.Context, col *mongo.Collection) error {
	idx := mongo.IndexModel{Keys: bson.D{{Key: "documentId", Value: 1}, {Key: "date", Value: -1}}}
	if _, err := col.Indexes().CreateOne(ctx, idx); err != nil {
		return resource.WrapStoreError("index", col.Name(), err)
	}
	return nil
}

// filterSpec builds an equality query. Values are wrapped in $eq so a
// map value cannot act as an operator; numeric strings also match the number.
func filterSpec(filter resource.Filter) bson.M {
	f := bson.M{}
	for k, v := range filter {
		if s, ok := v.(string); ok {
			if n, ok := NumericString(s); ok {
				f[k] = bson.M{"$in": bson.A{s, n}}
				continue
			}
		}
		f[k] = bson.M{"$eq": v}
	}
	return f
}

func sortSpec(order resource.Sort) bson.D {
	d := make(bson.D, 0, len(order))
	for _, f := range order {
		d = append(d, bson.E{Key: f.Field, Value: int(f.Direction)})
	}
	return d
}

func fromBSON(raw bson.M) resource.Document {
	out := make(resource.Document, len(raw))
	for k, v := range raw {
		out[k] = normalize(v)
	}
	return out
}

// normalize turns driver specific container types into plain maps and slices
// so documents compare and diff the same regardless of backend.
func normalize(v any) any {
	switch t := v.(type) {
	case primitive.M:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = normalize(vv)
		}
		return out
	case primitive.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case primitive.A:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = normalize(vv)
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.ObjectID:
		return t.Hex()
	case int32:
		return int64(t)
	}
	return v
}
