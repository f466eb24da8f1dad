package silo

// factory implements the factory pattern for silo components.
type factory struct{}

// Factory is the global factory instance for creating silo components.
var Factory factory

// NewStore creates an empty EntityStore.
func (f factory) NewStore() *EntityStore {
	return newEntityStore()
}

// NewScheduler creates a Scheduler bound to the given store.
func (f factory) NewScheduler(store *EntityStore) *Scheduler {
	return newScheduler(store)
}

// NewQuery creates a new Query instance.
func (f factory) NewQuery() Query {
	return newQuery()
}

// NewCursor creates a new Cursor with the specified query and store.
func (f factory) NewCursor(query QueryNode, store *EntityStore) *Cursor {
	return newCursor(query, store)
}

// NewComponentSet creates an empty component set descriptor.
func (f factory) NewComponentSet() *ComponentSetDescriptor {
	return NewComponentSetDescriptor()
}

// FactoryNewCache creates a new Cache with the specified capacity.
func FactoryNewCache[T any](cap int) Cache[T] {
	return &SimpleCache[T]{
		itemIndices: make(map[string]int),
		maxCapacity: cap,
	}
}
