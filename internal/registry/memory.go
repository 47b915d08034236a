package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/ddlconv/ddlconv/internal/diag"
)

// MemoryStore keeps records in process. Used by tests and by `serve`
// when no persistent backend is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record

	// Set to force errors from the corresponding call.
	PutErr error
	GetErr error

	Puts int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (m *MemoryStore) Put(_ context.Context, rec Record) error {
	if m.PutErr != nil {
		return m.PutErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.Table = Key(rec.Table)
	rec.Document = append([]byte(nil), rec.Document...)
	m.records[rec.Table] = rec
	m.Puts++
	return nil
}

func (m *MemoryStore) Get(_ context.Context, table string) (*Record, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[Key(table)]
	if !ok {
		return nil, diag.NotFoundf(table, "no published configuration")
	}
	rec.Document = append([]byte(nil), rec.Document...)
	return &rec, nil
}

func (m *MemoryStore) List(_ context.Context) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		rec.Document = nil
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Table < out[j].Table })
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
