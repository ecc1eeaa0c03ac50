package resource

import (
	"fmt"
	"strings"
	"time"
)

// IDField is the identifier field carried by every stored document.
const IDField = "_id"

// Document is an opaque field map stored in the primary collection. The only
// field the service interprets is IDField.
type Document map[string]any

// ID returns the document identifier or "" when unset.
func (d Document) ID() string {
	if d == nil {
		return ""
	}
	id, _ := d[IDField].(string)
	return id
}

// HistoryRecord is one append-only entry of a document's change log.
type HistoryRecord struct {
	ID         string    `json:"_id" bson:"_id"`
	Date       time.Time `json:"date" bson:"date"`
	DocumentID string    `json:"documentId" bson:"documentId"`
	Delta      any       `json:"delta" bson:"delta"`
}

// Filter is a structural equality match on top-level fields.
type Filter map[string]any

// Validate rejects field names that are not plain top-level fields: empty
// names, names starting with "$" (query operators) and dotted paths.
func (f Filter) Validate() error {
	for k := range f {
		if k == "" || strings.HasPrefix(k, "$") || strings.ContainsAny(k, ".\x00") {
			return fmt.Errorf("%w: field %q", ErrInvalidFilter, k)
		}
	}
	return nil
}

// Direction of a sort key.
type Direction int

const (
	Ascending  Direction = 1
	Descending Direction = -1
)

// SortField is one key of a sort specification.
type SortField struct {
	Field     string
	Direction Direction
}

// Sort is an ordered list of sort keys; earlier keys take precedence.
type Sort []SortField

// Config describes one addressable resource.
type Config struct {
	// Name of the primary collection.
	Name string
	// Path the resource is mounted at; defaults to "/" + Name.
	Path string
	// Sort is the default ordering for list.
	Sort Sort
	// History names the change-log collection. Empty disables history tracking.
	History string
}

// MountPath returns the configured path or the one derived from the name.
func (c Config) MountPath() string {
	if c.Path != "" {
		if c.Path[0] != '/' {
			return "/" + c.Path
		}
		return c.Path
	}
	return "/" + c.Name
}
