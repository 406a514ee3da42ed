package storage

import (
	"context"
	"sync"
)

// Memory is a process-local KV. It is transactional.
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

type memBucket map[string][]byte

func (b memBucket) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}
	v, ok := b[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (b memBucket) Set(_ context.Context, key string, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	b[key] = append([]byte(nil), value...)
	return nil
}

func (b memBucket) Remove(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	delete(b, key)
	return nil
}

// Get implements Bucket.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memBucket(m.data).Get(ctx, key)
}

// Set implements Bucket.
func (m *Memory) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memBucket(m.data).Set(ctx, key, value)
}

// Remove implements Bucket.
func (m *Memory) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memBucket(m.data).Remove(ctx, key)
}

// Update runs fn against a copy and swaps it in only if fn succeeds.
func (m *Memory) Update(ctx context.Context, fn func(tx Bucket) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	staged := make(memBucket, len(m.data))
	for k, v := range m.data {
		staged[k] = v
	}
	if err := fn(staged); err != nil {
		return err
	}
	m.data = staged
	return nil
}

// Close implements KV.
func (m *Memory) Close() error { return nil }
