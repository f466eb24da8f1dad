package silo

import (
	"iter"
	"unsafe"
)

// ColumnRef is a read view over one component column of one archetype.
// Pointers are resolved against the archetype on every access, so the view
// stays valid across column growth; it must not outlive the store.
type ColumnRef[C any] struct {
	arch   *ArchetypeStorage
	ctype  ComponentType
	offset uintptr
}

// ColumnMut is a write view over one component column of one archetype
type ColumnMut[C any] struct {
	ColumnRef[C]
}

// ColumnOf returns a read view over the archetype's column for C, or
// NotFound when the layout lacks the component
func ColumnOf[C any](a *ArchetypeStorage) (ColumnRef[C], error) {
	ct := ComponentTypeFor[C]()
	idx, ok := a.columns[ct]
	if !ok {
		return ColumnRef[C]{}, NotFoundError{Entity: NullEntityID, Component: ct}
	}
	return ColumnRef[C]{arch: a, ctype: ct, offset: a.meta.components[idx].Offset}, nil
}

// MutColumnOf returns a write view over the archetype's column for C
func MutColumnOf[C any](a *ArchetypeStorage) (ColumnMut[C], error) {
	ref, err := ColumnOf[C](a)
	if err != nil {
		return ColumnMut[C]{}, err
	}
	return ColumnMut[C]{ColumnRef: ref}, nil
}

// GetUnchecked returns the cell pointer without an occupancy check
func (c ColumnRef[C]) GetUnchecked(slot Slot) *C {
	return (*C)(unsafe.Add(c.arch.recordAt(slot), c.offset))
}

// Get returns the cell for the slot, or NotFound if the slot is unoccupied
func (c ColumnRef[C]) Get(slot Slot) (*C, error) {
	if !c.arch.Contains(slot) {
		return nil, NotFoundError{Entity: NullEntityID, Component: c.ctype}
	}
	return c.GetUnchecked(slot), nil
}

// All returns the occupied cells in ascending slot order
func (c ColumnRef[C]) All() iter.Seq2[Slot, *C] {
	return func(yield func(Slot, *C) bool) {
		for slot := range c.arch.Slots() {
			if !yield(slot, c.GetUnchecked(slot)) {
				return
			}
		}
	}
}

// GetMut returns the cell for the slot for writing
func (c ColumnMut[C]) GetMut(slot Slot) (*C, error) {
	return c.Get(slot)
}

// AllMut returns the occupied cells for writing in ascending slot order
func (c ColumnMut[C]) AllMut() iter.Seq2[Slot, *C] {
	return c.All()
}

// GetComponent returns the component C of the given entity
func GetComponent[C any](s *EntityStore, id EntityID) (*C, error) {
	arch, ok := s.archetypeAt(id.Archetype)
	if !ok {
		return nil, NotFoundError{Entity: id}
	}
	col, err := ColumnOf[C](arch)
	if err != nil {
		return nil, NotFoundError{Entity: id, Component: ComponentTypeFor[C]()}
	}
	c, err := col.Get(id.Slot)
	if err != nil {
		return nil, NotFoundError{Entity: id, Component: ComponentTypeFor[C]()}
	}
	return c, nil
}

// GetComponentMut returns the component C of the given entity for writing
func GetComponentMut[C any](s *EntityStore, id EntityID) (*C, error) {
	return GetComponent[C](s, id)
}

// GetState returns the whole stored record of the entity as *S. Fails with
// WrongStateType when the entity's archetype was not created from S, even if
// the layouts agree.
func GetState[S any](s *EntityStore, id EntityID) (*S, error) {
	arch, ok := s.archetypeAt(id.Archetype)
	if !ok {
		return nil, NotFoundError{Entity: id}
	}
	meta, err := MetadataFor[S]()
	if err != nil {
		return nil, err
	}
	if arch.meta.stateType != meta.stateType {
		return nil, wrongStateType(meta.stateType, arch.meta.stateType)
	}
	if !arch.Contains(id.Slot) {
		return nil, NotFoundError{Entity: id}
	}
	return (*S)(arch.recordAt(id.Slot)), nil
}

// GetStateMut returns the whole stored record of the entity for writing
func GetStateMut[S any](s *EntityStore, id EntityID) (*S, error) {
	return GetState[S](s, id)
}
