package testutil

import (
	"errors"
	"sync"

	"github.com/datalog-viewer/backend/internal/storage"
)

// MemoryKV is an in-memory storage.KV. Set FailWrites to make Set fail.
type MemoryKV struct {
	mu         sync.RWMutex
	values     map[string]string
	FailWrites bool
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

func (m *MemoryKV) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return errors.New("write failed")
	}
	m.values[key] = value
	return nil
}

var _ storage.KV = (*MemoryKV)(nil)
