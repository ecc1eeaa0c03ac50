package history

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/gogotex/gogotex/backend/go-resource/internal/resource"
	"github.com/gogotex/gogotex/backend/go-resource/internal/resource/repository"
	"github.com/gogotex/gogotex/backend/go-resource/pkg/logger"
	"github.com/gogotex/gogotex/backend/go-resource/pkg/metrics"
)

// Recorder appends change records to a history collection and reads them back
// newest first.
type Recorder struct {
	col   repository.Collection
	now   func() time.Time
	newID func() string
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

func NewRecorder(col repository.Collection, opts ...Option) *Recorder {
	r := &Recorder{
		col: col,
		now: time.Now,
		// v7 ids sort by creation time and break ties between equal dates
		newID: func() string { return uuid.Must(uuid.NewV7()).String() },
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Collection returns the backing history collection.
func (r *Recorder) Collection() repository.Collection { return r.col }

// RecordChange stores the transition prev -> next of documentID. Either side
// may be nil for creation and deletion.
func (r *Recorder) RecordChange(ctx context.Context, documentID string, prev, next resource.Document) (*resource.HistoryRecord, error) {
	delta, err := Diff(prev, next)
	if err != nil {
		return nil, fmt.Errorf("diff %s: %w", documentID, err)
	}
	rec := &resource.HistoryRecord{
		ID: r.newID(),
		// millisecond precision matches what the database keeps
		Date:       r.now().UTC().Truncate(time.Millisecond),
		DocumentID: documentID,
		Delta:      delta,
	}
	if _, err := r.col.Insert(ctx, toDocument(rec)); err != nil {
		return nil, err
	}
	metrics.HistoryRecords.WithLabelValues(r.col.Name()).Inc()
	logger.Debugf("history: recorded change %s for %s in %s", rec.ID, documentID, r.col.Name())
	return rec, nil
}

// ListChanges returns the records of documentID, most recent first. It is
// valid for documents that no longer exist.
func (r *Recorder) ListChanges(ctx context.Context, documentID string) ([]resource.HistoryRecord, error) {
	docs, err := r.col.List(ctx, resource.Filter{"documentId": documentID}, resource.Sort{
		{Field: "date", Direction: resource.Descending},
		{Field: resource.IDField, Direction: resource.Descending},
	})
	if err != nil {
		return nil, err
	}
	out := make([]resource.HistoryRecord, 0, len(docs))
	for _, d := range docs {
		rec, err := fromDocument(d)
		if err != nil {
			return nil, fmt.Errorf("history %s: %w", r.col.Name(), err)
		}
		out = append(out, rec)
	}
	// backends that keep dates as text do not sort them reliably
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func toDocument(rec *resource.HistoryRecord) resource.Document {
	return resource.Document{
		resource.IDField: rec.ID,
		"date":           rec.Date,
		"documentId":     rec.DocumentID,
		"delta":          rec.Delta,
	}
}

func fromDocument(d resource.Document) (resource.HistoryRecord, error) {
	rec := resource.HistoryRecord{ID: d.ID(), Delta: d["delta"]}
	rec.DocumentID, _ = d["documentId"].(string)
	switch v := d["date"].(type) {
	case time.Time:
		rec.Date = v.UTC()
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return rec, fmt.Errorf("record %s: bad date %q: %w", rec.ID, v, err)
		}
		rec.Date = t.UTC()
	default:
		return rec, fmt.Errorf("record %s: missing date", rec.ID)
	}
	return rec, nil
}
