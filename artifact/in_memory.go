package artifact

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/commonpool/core"
)

// InMemoryStore is a trivial in‑process record store useful for tests,
// examples and runs without an output directory. Documents are encoded
// exactly as FileStore would write them and copied on save / retrieval to
// avoid accidental external mutation of internal buffers.
type InMemoryStore struct {
	mu        sync.RWMutex
	docs      map[string][]byte // filename -> JSON document
	summaries map[string]core.RecordSummary
}

var (
	_ core.RecordStore  = (*InMemoryStore)(nil)
	_ core.RecordReader = (*InMemoryStore)(nil)
)

// NewInMemoryStore returns an empty in‑memory record store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		docs:      make(map[string][]byte),
		summaries: make(map[string]core.RecordSummary),
	}
}

// Save stores the record document. A record is stored once; saving the
// same filename again fails with ErrExists.
func (a *InMemoryStore) Save(_ context.Context, rec *core.SimulationRecord) (string, error) {
	if err := core.ValidateSimulationID(rec.SimulationID); err != nil {
		return "", &core.PersistenceError{Err: err}
	}
	doc, name, err := Encode(rec, false)
	if err != nil {
		return "", &core.PersistenceError{Path: name, Err: err}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.docs[name]; exists {
		return "", &core.PersistenceError{Path: name, Err: ErrExists}
	}
	a.docs[name] = doc
	a.summaries[name] = core.Summarize(rec, name)
	return name, nil
}

// Get returns a copy of the stored document or ErrNotFound.
func (a *InMemoryStore) Get(_ context.Context, filename string) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	doc, ok := a.docs[filename]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, filename)
	}
	cp := make([]byte, len(doc))
	copy(cp, doc)
	return cp, nil
}

// List returns the stored summaries, newest first.
func (a *InMemoryStore) List(_ context.Context) ([]core.RecordSummary, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]core.RecordSummary, 0, len(a.summaries))
	for _, s := range a.summaries {
		s.Participants = append([]string{}, s.Participants...)
		out = append(out, s)
	}
	core.SortSummaries(out)
	return out, nil
}
