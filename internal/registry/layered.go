package registry

import "time"

// LayeredStore fronts the disk store with memory. Reads promote disk
// hits into memory; writes land in both so a restart cannot forget a
// request that was already marked.
type LayeredStore struct {
	memory Store
	disk   Store
}

// NewLayeredStore creates a memory+disk store
func NewLayeredStore(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredStore {
	return &LayeredStore{
		memory: NewMemoryStore(memoryTTL, 10*time.Minute),
		disk:   NewDiskStore(diskDir, diskTTL),
	}
}

// Get checks memory first, then disk
func (s *LayeredStore) Get(key string) ([]byte, bool) {
	if val, found := s.memory.Get(key); found {
		return val, true
	}

	if val, found := s.disk.Get(key); found {
		_ = s.memory.Set(key, val, 0)
		return val, true
	}

	return nil, false
}

// Set stores in both layers. The disk write happens first: losing the
// memory copy is harmless, losing the disk copy weakens run-once
// across restarts.
func (s *LayeredStore) Set(key string, value []byte, ttl time.Duration) error {
	if err := s.disk.Set(key, value, ttl); err != nil {
		return err
	}
	return s.memory.Set(key, value, ttl)
}

// Delete removes from both layers
func (s *LayeredStore) Delete(key string) error {
	_ = s.memory.Delete(key)
	return s.disk.Delete(key)
}

// Clear removes all records from both layers
func (s *LayeredStore) Clear() error {
	_ = s.memory.Clear()
	return s.disk.Clear()
}
