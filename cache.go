package silo

import (
	"sync"

	"github.com/pkg/errors"
)

var _ Cache[any] = &SimpleCache[any]{}

// Cache is a bounded append-only registry mapping string keys to indexed items
type Cache[T any] interface {
	GetIndex(string) (int, bool)
	GetItem(int) *T
	GetItem32(uint32) *T
	Register(string, T) (int, error)
	GetOrRegister(string, T) (int, error)
	Count() int
}

// SimpleCache is the default Cache implementation. It is safe for concurrent
// readers; registration takes the write lock.
type SimpleCache[T any] struct {
	mu          sync.RWMutex
	items       []T
	itemIndices map[string]int
	maxCapacity int
}

func (c *SimpleCache[T]) GetIndex(key string) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	index, ok := c.itemIndices[key]
	return index, ok
}

func (c *SimpleCache[T]) GetItem(index int) *T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return &c.items[index]
}

func (c *SimpleCache[T]) GetItem32(index uint32) *T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return &c.items[index]
}

func (c *SimpleCache[T]) Register(key string, item T) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.register(key, item)
}

// GetOrRegister returns the index for key, registering item under it first if
// the key is absent. The lookup and registration are one atomic step.
func (c *SimpleCache[T]) GetOrRegister(key string, item T) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx, ok := c.itemIndices[key]; ok {
		return idx, nil
	}
	return c.register(key, item)
}

func (c *SimpleCache[T]) register(key string, item T) (int, error) {
	if len(c.itemIndices) >= c.maxCapacity {
		return -1, errors.Errorf("cache at maximum capacity (%d)", c.maxCapacity)
	}
	idx := len(c.items)
	c.itemIndices[key] = idx
	c.items = append(c.items, item)
	return idx, nil
}

func (c *SimpleCache[T]) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *SimpleCache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = c.items[:0]
	c.itemIndices = make(map[string]int)
}
