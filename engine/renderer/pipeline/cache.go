package pipeline

import (
	"fmt"
	"sync"
)

// Cache holds pipelines by key so each is compiled once per backend.
type Cache struct {
	mu        sync.RWMutex
	pipelines map[string]Pipeline
}

// NewCache creates an empty pipeline cache.
func NewCache() *Cache {
	return &Cache{pipelines: make(map[string]Pipeline)}
}

// Register adds a pipeline, replacing any pipeline with the same key.
//
// Returns:
//   - error: the pipeline's validation error, in which case nothing is stored
func (c *Cache) Register(p Pipeline) error {
	if err := p.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pipelines[p.PipelineKey()] = p
	return nil
}

// Get returns the pipeline registered under key, or nil.
func (c *Cache) Get(key string) Pipeline {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pipelines[key]
}

// MustGet returns the pipeline registered under key and panics when it is missing.
func (c *Cache) MustGet(key string) Pipeline {
	p := c.Get(key)
	if p == nil {
		panic(fmt.Sprintf("pipeline: %s is not registered", key))
	}
	return p
}

// Len returns the number of registered pipelines.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pipelines)
}
