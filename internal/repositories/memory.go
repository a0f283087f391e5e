package repositories

import (
	"context"
	"sync"
	"time"
)

// MemoryKV is an in-process KVStore for tests and the memory backend.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	m.mu.RLock()
	raw, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := DecodeBlob(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value interface{}) error {
	raw, err := EncodeBlob(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = raw
	m.mu.Unlock()
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

// MemoryConsumedTokens is the in-process ConsumedTokenRegistry.
type MemoryConsumedTokens struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

func NewMemoryConsumedTokens(now func() time.Time) *MemoryConsumedTokens {
	if now == nil {
		now = time.Now
	}
	return &MemoryConsumedTokens{expires: make(map[string]time.Time), now: now}
}

func (m *MemoryConsumedTokens) Consume(_ context.Context, digest string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if exp, ok := m.expires[digest]; ok && now.Before(exp) {
		return false, nil
	}
	m.expires[digest] = now.Add(ttl)
	// sweep
	for k, exp := range m.expires {
		if !now.Before(exp) {
			delete(m.expires, k)
		}
	}
	return true, nil
}

func (m *MemoryConsumedTokens) Release(_ context.Context, digest string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.expires, digest)
	return nil
}
