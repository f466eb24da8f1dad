package silo

import "iter"

// Cursor provides iteration over entities of the archetypes matching a query,
// in ascending (archetype, slot) order. While a cursor is initialized it
// holds a lock on the store: direct insertions and removals fail, and the
// enqueue variants are deferred until the lock is released.
type Cursor struct {
	query   QueryNode
	store   *EntityStore
	current EntityID

	// Current iteration state
	archPos  int
	nextSlot uint

	// Initialization state
	initialized     bool
	matchedStorages []*ArchetypeStorage
}

// newCursor creates a new cursor for the given query and store
func newCursor(query QueryNode, store *EntityStore) *Cursor {
	return &Cursor{
		query:   query,
		store:   store,
		current: NullEntityID,
	}
}

// Next advances to the next entity and returns whether one exists. After the
// last entity the cursor resets and releases its lock.
func (c *Cursor) Next() bool {
	if !c.initialized {
		c.Initialize()
	}
	for c.archPos < len(c.matchedStorages) {
		arch := c.matchedStorages[c.archPos]
		if idx, ok := arch.slots.occupied.NextSet(c.nextSlot); ok {
			c.current = EntityID{Archetype: arch.index, Slot: Slot(idx)}
			c.nextSlot = idx + 1
			return true
		}
		c.archPos++
		c.nextSlot = 0
	}
	c.Reset()
	return false
}

// Entity returns the entity at the current cursor position
func (c *Cursor) Entity() EntityID {
	return c.current
}

// Entities returns an iterator sequence over entities matching the query
func (c *Cursor) Entities() iter.Seq[EntityID] {
	return func(yield func(EntityID) bool) {
		c.Initialize()
		for _, arch := range c.matchedStorages {
			for slot := range arch.Slots() {
				if !yield(EntityID{Archetype: arch.index, Slot: slot}) {
					c.Reset()
					return
				}
			}
		}
		c.Reset()
	}
}

// Initialize sets up the cursor by finding matching archetypes
func (c *Cursor) Initialize() {
	if c.initialized {
		return
	}

	c.store.addLock()
	c.matchedStorages = make([]*ArchetypeStorage, 0)

	// Find all matching archetypes
	for _, arch := range c.store.Archetypes() {
		if c.query.Evaluate(arch.Layout()) {
			c.matchedStorages = append(c.matchedStorages, arch)
		}
	}

	c.initialized = true
}

// Reset clears cursor state and releases the store lock
func (c *Cursor) Reset() {
	c.archPos = 0
	c.nextSlot = 0
	c.current = NullEntityID
	c.matchedStorages = nil
	c.initialized = false
	c.store.popLock()
}

// TotalMatched returns the total number of entities matching the query
func (c *Cursor) TotalMatched() int {
	if !c.initialized {
		c.Initialize()
	}

	total := 0
	for _, arch := range c.matchedStorages {
		total += arch.Count()
	}

	c.Reset()
	return total
}
