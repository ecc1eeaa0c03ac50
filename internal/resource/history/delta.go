package history

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	jsonpatch "github.com/evanphx/json-patch"
	json "github.com/goccy/go-json"

	"github.com/gogotex/gogotex/backend/go-resource/internal/resource"
)

// A delta is a JSON Patch (RFC 6902) operation list on top-level fields
// taking the previous state to the next one:
//
//	{"op":"add",     "path":"/f", "value":v}
//	{"op":"replace", "path":"/f", "value":v, "old":prev}
//	{"op":"remove",  "path":"/f",            "old":prev}
//
// "old" is ignored when the patch is applied and keeps the last known value
// readable in the log. An absent previous state yields only adds; an absent
// next state yields a remove for every field, including the id.

// Operation names.
const (
	OpAdd     = "add"
	OpReplace = "replace"
	OpRemove  = "remove"
)

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// FieldPath is the JSON pointer of a top-level field.
func FieldPath(field string) string {
	return "/" + pointerEscaper.Replace(field)
}

// Diff returns the delta from prev to next; either side may be nil.
func Diff(prev, next resource.Document) (any, error) {
	from, err := plain(prev)
	if err != nil {
		return nil, err
	}
	to, err := plain(next)
	if err != nil {
		return nil, err
	}

	ops := []any{}
	for _, k := range sortedKeys(from) {
		old := from[k]
		v, ok := to[k]
		switch {
		case !ok:
			ops = append(ops, map[string]any{"op": OpRemove, "path": FieldPath(k), "old": old})
		case !reflect.DeepEqual(old, v):
			ops = append(ops, map[string]any{"op": OpReplace, "path": FieldPath(k), "value": v, "old": old})
		}
	}
	for _, k := range sortedKeys(to) {
		if _, ok := from[k]; !ok {
			ops = append(ops, map[string]any{"op": OpAdd, "path": FieldPath(k), "value": to[k]})
		}
	}
	return ops, nil
}

// Patch applies delta to doc and returns the resulting state, nil when the
// delta removes the document id. A nil delta leaves doc unchanged.
func Patch(doc resource.Document, delta any) (resource.Document, error) {
	if delta == nil {
		return doc, nil
	}
	raw, err := json.Marshal(delta)
	if err != nil {
		return nil, fmt.Errorf("encode delta: %w", err)
	}
	patch, err := jsonpatch.DecodePatch(raw)
	if err != nil {
		return nil, fmt.Errorf("decode delta: %w", err)
	}
	var heads []struct {
		Op   string `json:"op"`
		Path string `json:"path"`
	}
	if err := json.Unmarshal(raw, &heads); err != nil {
		return nil, fmt.Errorf("decode delta: %w", err)
	}

	base, err := marshalDoc(doc)
	if err != nil {
		return nil, err
	}
	out, err := patch.Apply(base)
	if err != nil {
		return nil, fmt.Errorf("apply delta: %w", err)
	}
	for _, h := range heads {
		if h.Op == OpRemove && h.Path == FieldPath(resource.IDField) {
			return nil, nil
		}
	}
	var next resource.Document
	if err := json.Unmarshal(out, &next); err != nil {
		return nil, fmt.Errorf("decode patched document: %w", err)
	}
	return next, nil
}

// Replay folds deltas, oldest first, onto an absent document.
func Replay(deltas []any) (resource.Document, error) {
	var doc resource.Document
	for i, d := range deltas {
		next, err := Patch(doc, d)
		if err != nil {
			return nil, fmt.Errorf("delta %d: %w", i, err)
		}
		doc = next
	}
	return doc, nil
}

// plain round-trips doc through JSON so values compare the way they are stored.
func plain(doc resource.Document) (map[string]any, error) {
	if doc == nil {
		return nil, nil
	}
	b, err := marshalDoc(doc)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return out, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func marshalDoc(doc resource.Document) ([]byte, error) {
	if doc == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return b, nil
}
