package silo

// Entry is a read handle to one entity, bound to its already-resolved
// archetype so repeated component lookups skip the registry.
type Entry struct {
	arch *ArchetypeStorage
	id   EntityID
}

// EntryMut is a write handle to one entity
type EntryMut struct {
	Entry
}

// Entity returns the underlying entity id
func (e Entry) Entity() EntityID {
	return e.id
}

// Archetype returns the archetype the entity lives in
func (e Entry) Archetype() *ArchetypeStorage {
	return e.arch
}

// EntryGet returns the component C of the entry's entity
func EntryGet[C any](e Entry) (*C, error) {
	col, err := ColumnOf[C](e.arch)
	if err != nil {
		return nil, NotFoundError{Entity: e.id, Component: ComponentTypeFor[C]()}
	}
	c, err := col.Get(e.id.Slot)
	if err != nil {
		return nil, NotFoundError{Entity: e.id, Component: ComponentTypeFor[C]()}
	}
	return c, nil
}

// EntryGetMut returns the component C of the entry's entity for writing
func EntryGetMut[C any](e EntryMut) (*C, error) {
	return EntryGet[C](e.Entry)
}
