package store

import (
	"context"
	"sync"
)

// MemoryStore keeps blobs in-process. State is lost on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Load returns a copy of the stored blob.
func (m *MemoryStore) Load(_ context.Context, workspace, name string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[blobKey(workspace, name)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

// Save replaces the blob.
func (m *MemoryStore) Save(_ context.Context, workspace, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[blobKey(workspace, name)] = append([]byte(nil), data...)
	return nil
}

func blobKey(workspace, name string) string {
	return workspace + "/" + name
}
