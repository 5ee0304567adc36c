// Package memblob keeps blobs in process memory.
package memblob

import (
	"context"
	"sync"
)

// Bucket is an in-memory blob store safe for concurrent use.
type Bucket struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// New returns an empty bucket.
func New() *Bucket {
	return &Bucket{blobs: make(map[string][]byte)}
}

// Get implements store.Blob.
func (b *Bucket) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.blobs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

// Set implements store.Blob.
func (b *Bucket) Set(_ context.Context, key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[key] = append([]byte(nil), data...)
	return nil
}

// Close is a no-op.
func (b *Bucket) Close() error {
	return nil
}
