package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gogotex/gogotex/backend/go-resource/internal/resource"
)

func TestFilterSpec(t *testing.T) {
	cases := []struct {
		name   string
		filter resource.Filter
		want   bson.M
	}{
		{"empty", nil, bson.M{}},
		{"string", resource.Filter{"name": "a"}, bson.M{"name": bson.M{"$eq": "a"}}},
		{"numeric string", resource.Filter{"n": "5"}, bson.M{"n": bson.M{"$in": bson.A{"5", 5.0}}}},
		{"operator text is a value", resource.Filter{"name": "$gt"}, bson.M{"name": bson.M{"$eq": "$gt"}}},
		{"map value is literal", resource.Filter{"meta": map[string]any{"$ne": 1}}, bson.M{"meta": bson.M{"$eq": map[string]any{"$ne": 1}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, filterSpec(tc.filter))
		})
	}
}

func TestSortSpec(t *testing.T) {
	got := sortSpec(resource.Sort{
		{Field: "name", Direction: resource.Ascending},
		{Field: "date", Direction: resource.Descending},
	})
	assert.Equal(t, bson.D{{Key: "name", Value: 1}, {Key: "date", Value: -1}}, got)
	assert.Empty(t, sortSpec(nil))
}

func TestNormalize(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 123000000, time.UTC)
	oid := primitive.NewObjectID()

	cases := []struct {
		name string
		in   any
		want any
	}{
		{"datetime", primitive.NewDateTimeFromTime(t0), t0},
		{"int32", int32(7), int64(7)},
		{"int64 kept", int64(7), int64(7)},
		{"object id", oid, oid.Hex()},
		{"string kept", "x", "x"},
		{"nil kept", nil, nil},
		{"M", primitive.M{"a": int32(1)}, map[string]any{"a": int64(1)}},
		{"D", primitive.D{{Key: "a", Value: "b"}, {Key: "c", Value: primitive.A{int32(2)}}}, map[string]any{"a": "b", "c": []any{int64(2)}}},
		{"A nested", primitive.A{primitive.M{"d": primitive.NewDateTimeFromTime(t0)}}, []any{map[string]any{"d": t0}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, normalize(tc.in))
		})
	}
}

func TestFromBSON(t *testing.T) {
	doc := fromBSON(bson.M{"_id": "x", "n": int32(1), "tags": primitive.A{"a"}})
	assert.Equal(t, resource.Document{"_id": "x", "n": int64(1), "tags": []any{"a"}}, doc)
}
