package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gogotex/gogotex/backend/go-resource/internal/resource"
	"github.com/gogotex/gogotex/backend/go-resource/internal/resource/repository"
	"github.com/gogotex/gogotex/backend/go-resource/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// stepClock returns t0, t0+1s, t0+2s, ...
func stepClock(t0 time.Time) func() time.Time {
	n := 0
	return func() time.Time {
		t := t0.Add(time.Duration(n) * time.Second)
		n++
		return t
	}
}

func TestRecordAndListChanges(t *testing.T) {
	ctx := context.Background()
	col := repository.NewMemoryCollection("docs_history")
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := NewRecorder(col, WithClock(stepClock(t0)))
	before := testutil.ToFloat64(metrics.HistoryRecords.WithLabelValues("docs_history"))

	v1 := resource.Document{"_id": "d1", "name": "a"}
	v2 := resource.Document{"_id": "d1", "name": "b"}

	rec, err := r.RecordChange(ctx, "d1", nil, v1)
	require.NoError(t, err)
	require.Equal(t, "d1", rec.DocumentID)
	require.Equal(t, t0, rec.Date)
	require.NotEmpty(t, rec.ID)

	_, err = r.RecordChange(ctx, "d1", v1, v2)
	require.NoError(t, err)
	_, err = r.RecordChange(ctx, "other", nil, resource.Document{"_id": "other"})
	require.NoError(t, err)
	_, err = r.RecordChange(ctx, "d1", v2, nil)
	require.NoError(t, err)

	recs, err := r.ListChanges(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	// newest first
	require.Equal(t, t0.Add(3*time.Second), recs[0].Date)
	require.Equal(t, []any{remove("_id", "d1"), remove("name", "b")}, recs[0].Delta)
	require.Equal(t, []any{replace("name", "a", "b")}, recs[1].Delta)
	require.Equal(t, []any{add("_id", "d1"), add("name", "a")}, recs[2].Delta)

	require.Equal(t, before+4, testutil.ToFloat64(metrics.HistoryRecords.WithLabelValues("docs_history")))
}

func TestListChangesEmpty(t *testing.T) {
	r := NewRecorder(repository.NewMemoryCollection("h"))
	recs, err := r.ListChanges(context.Background(), "nothing")
	require.NoError(t, err)
	require.NotNil(t, recs)
	require.Empty(t, recs)
}

func TestListChangesBreaksDateTiesByRecordID(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := NewRecorder(repository.NewMemoryCollection("h"), WithClock(func() time.Time { return t0 }))

	first, err := r.RecordChange(ctx, "d", nil, resource.Document{"_id": "d", "v": 1})
	require.NoError(t, err)
	second, err := r.RecordChange(ctx, "d", resource.Document{"_id": "d", "v": 1}, resource.Document{"_id": "d", "v": 2})
	require.NoError(t, err)

	recs, err := r.ListChanges(ctx, "d")
	require.NoError(t, err)
	require.Equal(t, []string{second.ID, first.ID}, []string{recs[0].ID, recs[1].ID})
}

func TestReplayHistoryReproducesState(t *testing.T) {
	ctx := context.Background()
	r := NewRecorder(repository.NewMemoryCollection("h"), WithClock(stepClock(time.Now())))
	states := []resource.Document{
		{"_id": "d", "title": "one"},
		{"_id": "d", "title": "two", "body": "x"},
		{"_id": "d", "title": "three", "body": nil},
	}
	var prev resource.Document
	for _, s := range states {
		_, err := r.RecordChange(ctx, "d", prev, s)
		require.NoError(t, err)
		prev = s
	}
	recs, err := r.ListChanges(ctx, "d")
	require.NoError(t, err)
	deltas := make([]any, 0, len(recs))
	for i := len(recs) - 1; i >= 0; i-- {
		deltas = append(deltas, recs[i].Delta)
	}
	doc, err := Replay(deltas)
	require.NoError(t, err)
	require.Equal(t, states[len(states)-1], doc)
}

type failingCollection struct {
	*repository.MemoryCollection
	err error
}

func (f failingCollection) Insert(ctx context.Context, doc resource.Document) (string, error) {
	return "", resource.WrapStoreError("insert", f.Name(), f.err)
}

func TestRecordChangePropagatesStoreErrors(t *testing.T) {
	cause := errors.New("history store down")
	r := NewRecorder(failingCollection{repository.NewMemoryCollection("h"), cause})
	_, err := r.RecordChange(context.Background(), "d", nil, resource.Document{"_id": "d"})
	require.ErrorIs(t, err, cause)
	require.True(t, resource.IsStoreError(err))
}

func TestFromDocumentParsesTextDates(t *testing.T) {
	rec, err := fromDocument(resource.Document{"_id": "r", "documentId": "d", "date": "2024-05-01T12:00:00.123Z", "delta": nil})
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 123000000, time.UTC), rec.Date)

	_, err = fromDocument(resource.Document{"_id": "r"})
	require.Error(t, err)
}
