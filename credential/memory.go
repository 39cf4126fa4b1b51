package credential

import (
	"context"
	"sync"
)

// Memory is an in-process Store. List returns records in insertion order.
type Memory struct {
	mu      sync.RWMutex
	records map[string]Record
	order   []string
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]Record)}
}

// Lookup implements Store.
func (m *Memory) Lookup(_ context.Context, username string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.records[username]
	if !ok {
		return nil, ErrNotFound
	}
	return &record, nil
}

// Insert implements Store.
func (m *Memory) Insert(_ context.Context, record Record) error {
	if err := record.validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[record.Username]; ok {
		return ErrDuplicate
	}
	m.records[record.Username] = record
	m.order = append(m.order, record.Username)
	return nil
}

// Exists implements Store.
func (m *Memory) Exists(_ context.Context, username string) (bool, error) {
	m.mu.RLock()
	_, ok := m.records[username]
	m.mu.RUnlock()
	return ok, nil
}

// List implements Store.
func (m *Memory) List(_ context.Context) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Record, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.records[name])
	}
	return out, nil
}
