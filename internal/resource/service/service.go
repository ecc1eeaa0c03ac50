package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/gogotex/gogotex/backend/go-resource/internal/resource"
	"github.com/gogotex/gogotex/backend/go-resource/internal/resource/history"
	"github.com/gogotex/gogotex/backend/go-resource/internal/resource/repository"
	"github.com/gogotex/gogotex/backend/go-resource/pkg/logger"
)

// HistoryMode selects whether mutations are recorded. It is either
// HistoryDisabled or HistoryEnabled.
type HistoryMode interface {
	historyMode()
}

// HistoryDisabled skips all change recording.
type HistoryDisabled struct{}

// HistoryEnabled records every mutation through Recorder.
type HistoryEnabled struct {
	Recorder *history.Recorder
}

func (HistoryDisabled) historyMode() {}
func (HistoryEnabled) historyMode()  {}

// Service sequences existence checks, change recording and store mutations
// for one resource. Each pipeline runs its steps strictly in order and stops
// at the first failure; there is no rollback of steps already applied.
//
// History is recorded before the store mutation it describes, so a failed
// history append leaves the document untouched, while a store failure after
// a successful append leaves a record for a change that never committed.
type Service struct {
	name    string
	store   repository.Collection
	history HistoryMode
	order   resource.Sort
	newID   func() string
}

// Option configures a Service.
type Option func(*Service)

// WithIDGenerator overrides document id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// New builds a Service for cfg over store. A nil history mode means disabled.
func New(cfg resource.Config, store repository.Collection, mode HistoryMode, opts ...Option) *Service {
	if mode == nil {
		mode = HistoryDisabled{}
	}
	s := &Service{
		name:    cfg.Name,
		store:   store,
		history: mode,
		order:   cfg.Sort,
		newID:   uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Name of the resource.
func (s *Service) Name() string { return s.name }

// HistoryEnabled reports whether changes are recorded.
func (s *Service) HistoryEnabled() bool {
	_, ok := s.history.(HistoryEnabled)
	return ok
}

// List returns every document matching filter in the default order.
func (s *Service) List(ctx context.Context, filter resource.Filter) ([]resource.Document, error) {
	return s.store.List(ctx, filter, s.order)
}

// Get returns the document or resource.ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (resource.Document, error) {
	doc, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return resource.Ensure(doc)
}

// Create stores payload under a freshly generated id and returns the stored
// document. Any id in payload is ignored.
func (s *Service) Create(ctx context.Context, payload resource.Document) (resource.Document, error) {
	doc := copyDoc(payload)
	id := s.newID()
	doc[resource.IDField] = id

	if err := s.record(ctx, id, nil, doc); err != nil {
		return nil, err
	}
	if _, err := s.store.Insert(ctx, doc); err != nil {
		return nil, err
	}
	logger.Debugf("%s: created %s", s.name, id)
	return s.Get(ctx, id)
}

// Replace overwrites the document with payload. The stored id always equals
// id, whatever payload carries.
func (s *Service) Replace(ctx context.Context, id string, payload resource.Document) (resource.Document, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.replace(ctx, id, existing, payload)
}

// Merge overlays the fields of payload onto the stored document; fields not
// in payload are kept.
func (s *Service) Merge(ctx context.Context, id string, payload resource.Document) (resource.Document, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	merged := copyDoc(existing)
	for k, v := range payload {
		merged[k] = v
	}
	return s.replace(ctx, id, existing, merged)
}

// Delete removes the document.
func (s *Service) Delete(ctx context.Context, id string) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.record(ctx, id, existing, nil); err != nil {
		return err
	}
	if err := s.store.RemoveByID(ctx, id); err != nil {
		return err
	}
	logger.Debugf("%s: deleted %s", s.name, id)
	return nil
}

// Changes returns the history of id, newest first. It works for deleted
// documents and fails with resource.ErrHistoryDisabled when history is off.
func (s *Service) Changes(ctx context.Context, id string) ([]resource.HistoryRecord, error) {
	switch m := s.history.(type) {
	case HistoryEnabled:
		return m.Recorder.ListChanges(ctx, id)
	default:
		return nil, fmt.Errorf("%s: %w", s.name, resource.ErrHistoryDisabled)
	}
}

// replace runs the tail shared by Replace and Merge: pin the id, record the
// change against existing, write, then read back.
func (s *Service) replace(ctx context.Context, id string, existing, payload resource.Document) (resource.Document, error) {
	doc := copyDoc(payload)
	doc[resource.IDField] = id

	if err := s.record(ctx, id, existing, doc); err != nil {
		return nil, err
	}
	if err := s.store.UpdateByID(ctx, id, doc); err != nil {
		return nil, err
	}
	logger.Debugf("%s: replaced %s", s.name, id)
	return s.Get(ctx, id)
}

func (s *Service) record(ctx context.Context, id string, prev, next resource.Document) error {
	switch m := s.history.(type) {
	case HistoryEnabled:
		if _, err := m.Recorder.RecordChange(ctx, id, prev, next); err != nil {
			return fmt.Errorf("record change: %w", err)
		}
	}
	return nil
}

func copyDoc(d resource.Document) resource.Document {
	out := make(resource.Document, len(d)+1)
	for k, v := range d {
		out[k] = v
	}
	return out
}
