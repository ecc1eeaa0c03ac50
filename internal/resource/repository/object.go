package repository

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/gogotex/gogotex/backend/go-resource/internal/resource"
	"github.com/gogotex/gogotex/backend/go-resource/internal/storage"
)

// ObjectStore is the subset of object storage the ObjectCollection needs.
// *storage.MinIOStorage satisfies it.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, data []byte) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	RemoveObject(ctx context.Context, key string) error
}

// ObjectCollection keeps one JSON object per document under "<name>/<id>.json".
// It suits append-mostly data such as the history log; List reads every
// object under the prefix.
type ObjectCollection struct {
	name  string
	store ObjectStore
}

func NewObjectCollection(name string, store ObjectStore) *ObjectCollection {
	return &ObjectCollection{name: name, store: store}
}

func (o *ObjectCollection) Name() string { return o.name }

func (o *ObjectCollection) key(id string) string {
	return path.Join(o.name, id+".json")
}

func (o *ObjectCollection) List(ctx context.Context, filter resource.Filter, order resource.Sort) ([]resource.Document, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	keys, err := o.store.ListKeys(ctx, o.name+"/")
	if err != nil {
		return nil, resource.WrapStoreError("list", o.name, err)
	}
	out := []resource.Document{}
	for _, k := range keys {
		if !strings.HasSuffix(k, ".json") {
			continue
		}
		doc, err := o.read(ctx, k)
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				// removed between list and read
				continue
			}
			return nil, resource.WrapStoreError("list", o.name, err)
		}
		if Matches(doc, filter) {
			out = append(out, doc)
		}
	}
	SortDocuments(out, order)
	return out, nil
}

func (o *ObjectCollection) Insert(ctx context.Context, doc resource.Document) (string, error) {
	id := doc.ID()
	if id == "" {
		return "", resource.WrapStoreError("insert", o.name, fmt.Errorf("missing %s", resource.IDField))
	}
	if err := o.write(ctx, id, doc); err != nil {
		return "", resource.WrapStoreError("insert", o.name, err)
	}
	return id, nil
}

func (o *ObjectCollection) GetByID(ctx context.Context, id string) (resource.Document, error) {
	doc, err := o.read(ctx, o.key(id))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, nil
		}
		return nil, resource.WrapStoreError("get", o.name, err)
	}
	return doc, nil
}

func (o *ObjectCollection) UpdateByID(ctx context.Context, id string, doc resource.Document) error {
	cur, err := o.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if cur == nil {
		return resource.ErrNotFound
	}
	next := make(resource.Document, len(doc)+1)
	for k, v := range doc {
		next[k] = v
	}
	next[resource.IDField] = id
	return resource.WrapStoreError("update", o.name, o.write(ctx, id, next))
}

func (o *ObjectCollection) RemoveByID(ctx context.Context, id string) error {
	cur, err := o.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if cur == nil {
		return resource.ErrNotFound
	}
	return resource.WrapStoreError("remove", o.name, o.store.RemoveObject(ctx, o.key(id)))
}

func (o *ObjectCollection) write(ctx context.Context, id string, doc resource.Document) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return o.store.PutObject(ctx, o.key(id), b)
}

func (o *ObjectCollection) read(ctx context.Context, key string) (resource.Document, error) {
	b, err := o.store.GetObject(ctx, key)
	if err != nil {
		return nil, err
	}
	var doc resource.Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	if doc == nil {
		doc = resource.Document{}
	}
	return doc, nil
}
