package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gogotex/gogotex/backend/go-resource/internal/resource"
)

var errDuplicateID = errors.New("duplicate id")

type memoryEntry struct {
	seq uint64
	doc resource.Document
}

// MemoryCollection is an in-process Collection used when no database is
// configured and by unit tests. Each call is atomic; documents are deep-copied
// on the way in and out so callers never alias stored state.
type MemoryCollection struct {
	name string
	mu   sync.RWMutex
	seq  uint64
	docs map[string]memoryEntry
}

func NewMemoryCollection(name string) *MemoryCollection {
	return &MemoryCollection{name: name, docs: make(map[string]memoryEntry)}
}

func (m *MemoryCollection) Name() string { return m.name }

func (m *MemoryCollection) List(ctx context.Context, filter resource.Filter, order resource.Sort) ([]resource.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, resource.WrapStoreError("list", m.name, err)
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	entries := make([]memoryEntry, 0, len(m.docs))
	for _, e := range m.docs {
		if Matches(e.doc, filter) {
			entries = append(entries, e)
		}
	}
	m.mu.RUnlock()

	// natural order is insertion order
	sortEntries(entries)
	out := make([]resource.Document, 0, len(entries))
	for _, e := range entries {
		out = append(out, clone(e.doc))
	}
	SortDocuments(out, order)
	return out, nil
}

func (m *MemoryCollection) Insert(ctx context.Context, doc resource.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", resource.WrapStoreError("insert", m.name, err)
	}
	id := doc.ID()
	if id == "" {
		return "", resource.WrapStoreError("insert", m.name, fmt.Errorf("missing %s", resource.IDField))
	}
	cp := clone(doc)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; ok {
		return "", resource.WrapStoreError("insert", m.name, fmt.Errorf("%w: %s", errDuplicateID, id))
	}
	m.seq++
	m.docs[id] = memoryEntry{seq: m.seq, doc: cp}
	return id, nil
}

func (m *MemoryCollection) GetByID(ctx context.Context, id string) (resource.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, resource.WrapStoreError("get", m.name, err)
	}
	m.mu.RLock()
	e, ok := m.docs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return clone(e.doc), nil
}

func (m *MemoryCollection) UpdateByID(ctx context.Context, id string, doc resource.Document) error {
	if err := ctx.Err(); err != nil {
		return resource.WrapStoreError("update", m.name, err)
	}
	cp := clone(doc)
	if cp == nil {
		cp = resource.Document{}
	}
	cp[resource.IDField] = id
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.docs[id]
	if !ok {
		return resource.ErrNotFound
	}
	m.docs[id] = memoryEntry{seq: e.seq, doc: cp}
	return nil
}

func (m *MemoryCollection) RemoveByID(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return resource.WrapStoreError("remove", m.name, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return resource.ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

// Len returns the number of stored documents.
func (m *MemoryCollection) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func clone(doc resource.Document) resource.Document {
	if doc == nil {
		return nil
	}
	out := make(resource.Document, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue copies the containers a decoded document can hold; everything
// else is a value type or treated as immutable.
func cloneValue(v any) any {
	switch t := v.(type) {
	case resource.Document:
		return clone(t)
	case map[string]any:
		cp := make(map[string]any, len(t))
		for k, vv := range t {
			cp[k] = cloneValue(vv)
		}
		return cp
	case []any:
		cp := make([]any, len(t))
		for i, vv := range t {
			cp[i] = cloneValue(vv)
		}
		return cp
	}
	return v
}

func sortEntries(entries []memoryEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
}
