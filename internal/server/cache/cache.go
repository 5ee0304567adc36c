// Package cache keeps pending import previews in memory until they are
// committed or expire.
package cache

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/agentstation/concilia/pkg/importer"
)

// Previews is a TTL store of import previews keyed by batch ID.
type Previews struct {
	// mu makes Take atomic; go-cache only locks single operations.
	mu    sync.Mutex
	store *gocache.Cache
}

// NewPreviews creates a store whose entries expire after ttl.
func NewPreviews(ttl time.Duration) *Previews {
	return &Previews{store: gocache.New(ttl, ttl/2)}
}

// Put stores p under its batch ID.
func (c *Previews) Put(p *importer.Preview) {
	c.store.SetDefault(p.BatchID, p)
}

// Get returns the preview for id if it has not expired.
func (c *Previews) Get(id string) (*importer.Preview, bool) {
	v, ok := c.store.Get(id)
	if !ok {
		return nil, false
	}
	p, ok := v.(*importer.Preview)
	return p, ok
}

// Take removes and returns the preview for id, so that only one caller
// commits it.
func (c *Previews) Take(id string) (*importer.Preview, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.Get(id)
	if ok {
		c.store.Delete(id)
	}
	return p, ok
}

// Count returns the number of pending previews.
func (c *Previews) Count() int {
	return c.store.ItemCount()
}
