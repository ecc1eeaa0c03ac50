package repository

import (
	"context"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gogotex/gogotex/backend/go-resource/internal/resource"
)

// Collection is the store adapter the orchestrator and the history recorder
// work against. GetByID returns (nil, nil) when the document is absent.
// UpdateByID replaces the whole stored document.
type Collection interface {
	Name() string
	List(ctx context.Context, filter resource.Filter, order resource.Sort) ([]resource.Document, error)
	Insert(ctx context.Context, doc resource.Document) (string, error)
	GetByID(ctx context.Context, id string) (resource.Document, error)
	UpdateByID(ctx context.Context, id string, doc resource.Document) error
	RemoveByID(ctx context.Context, id string) error
}

// Matches reports whether doc satisfies every key of filter.
func Matches(doc resource.Document, filter resource.Filter) bool {
	for k, want := range filter {
		got, ok := doc[k]
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

// SortDocuments orders docs in place; the sort is stable so ties keep their
// incoming order.
func SortDocuments(docs []resource.Document, order resource.Sort) {
	if len(order) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, f := range order {
			c := compareValues(docs[i][f.Field], docs[j][f.Field])
			if c == 0 {
				continue
			}
			if f.Direction == resource.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// valuesEqual compares numbers by value; a numeric string such as a query
// parameter also equals the number it spells.
func valuesEqual(a, b any) bool {
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	switch {
	case aNum && bNum:
		return fa == fb
	case aNum:
		if s, ok := b.(string); ok {
			n, ok := NumericString(s)
			return ok && n == fa
		}
	case bNum:
		if s, ok := a.(string); ok {
			n, ok := NumericString(s)
			return ok && n == fb
		}
	}
	return reflect.DeepEqual(a, b)
}

// NumericString parses s as a finite decimal number.
func NumericString(s string) (float64, bool) {
	if s == "" || strings.ContainsAny(s, "xXpP_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// type ranks loosely follow the BSON comparison order
func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case int, int32, int64, float32, float64, uint, uint32, uint64:
		return 1
	case string:
		return 2
	case map[string]any, resource.Document:
		return 3
	case []any:
		return 4
	case bool:
		return 5
	case time.Time:
		return 6
	}
	return 7
}

func compareValues(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch av := a.(type) {
	case string:
		return strings.Compare(av, b.(string))
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		}
		return 1
	case time.Time:
		return av.Compare(b.(time.Time))
	}
	if fa, ok := toFloat(a); ok {
		fb, _ := toFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
