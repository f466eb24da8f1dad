package silo

import (
	"iter"

	"github.com/pkg/errors"
)

// ComponentView is a view over every entity holding a given component,
// across all archetypes that contain it. Read views may coexist; a write
// view excludes every other view on the same component within one handler.
// Release must be called when the view is no longer needed.
type ComponentView[C any] struct {
	acc      *Access
	ctype    ComponentType
	archIDs  []ArchetypeIndex
	mutable  bool
	released bool
}

// View acquires a read view over component C. Fails with
// ComponentNotDeclared when C is not in the system's access set, and with
// AlreadyBorrowed while a write view on C is outstanding.
func View[C any](acc *Access) (*ComponentView[C], error) {
	ct := ComponentTypeFor[C]()
	if err := acc.checkDeclared(ct, false); err != nil {
		return nil, err
	}
	if err := acc.borrowShared(ct); err != nil {
		return nil, err
	}
	return &ComponentView[C]{
		acc:     acc,
		ctype:   ct,
		archIDs: acc.store.ArchetypesWith(ct),
	}, nil
}

// MutView acquires a write view over component C. Fails with
// ImmutableDeclared when C is declared read-only, and with AlreadyBorrowed
// while any other view on C is outstanding.
func MutView[C any](acc *Access) (*ComponentView[C], error) {
	ct := ComponentTypeFor[C]()
	if err := acc.checkDeclared(ct, true); err != nil {
		return nil, err
	}
	if err := acc.borrowExclusive(ct); err != nil {
		return nil, err
	}
	return &ComponentView[C]{
		acc:     acc,
		ctype:   ct,
		archIDs: acc.store.ArchetypesWith(ct),
		mutable: true,
	}, nil
}

// Release returns the borrow so the component can be viewed again within the
// same handler. Idempotent.
func (v *ComponentView[C]) Release() {
	if v.released {
		return
	}
	v.released = true
	if v.mutable {
		v.acc.unborrowExclusive(v.ctype)
	} else {
		v.acc.unborrowShared(v.ctype)
	}
}

// Contains reports whether the entity is live and holds the component
func (v *ComponentView[C]) Contains(id EntityID) bool {
	arch, ok := v.acc.store.archetypeAt(id.Archetype)
	return ok && arch.Layout().Contains(v.ctype) && arch.Contains(id.Slot)
}

// Get returns the entity's component, or NotFound when the entity is absent
// or its archetype lacks the component
func (v *ComponentView[C]) Get(id EntityID) (*C, error) {
	arch, ok := v.acc.store.archetypeAt(id.Archetype)
	if !ok {
		return nil, NotFoundError{Entity: id, Component: v.ctype}
	}
	col, err := ColumnOf[C](arch)
	if err != nil {
		return nil, NotFoundError{Entity: id, Component: v.ctype}
	}
	c, err := col.Get(id.Slot)
	if err != nil {
		return nil, NotFoundError{Entity: id, Component: v.ctype}
	}
	return c, nil
}

// GetMut returns the entity's component for writing; only available on a
// write view
func (v *ComponentView[C]) GetMut(id EntityID) (*C, error) {
	if !v.mutable {
		return nil, errors.WithStack(ImmutableDeclaredError{Component: v.ctype})
	}
	return v.Get(id)
}

// CountEntities returns the number of entities holding the component
func (v *ComponentView[C]) CountEntities() int {
	total := 0
	for _, idx := range v.archIDs {
		total += v.acc.store.archetypes[idx].Count()
	}
	return total
}

// All returns the component cells in ascending (archetype, slot) order
func (v *ComponentView[C]) All() iter.Seq2[EntityID, *C] {
	return func(yield func(EntityID, *C) bool) {
		for _, idx := range v.archIDs {
			arch := v.acc.store.archetypes[idx]
			col, err := ColumnOf[C](arch)
			if err != nil {
				continue
			}
			for slot := range arch.Slots() {
				if !yield(EntityID{Archetype: idx, Slot: slot}, col.GetUnchecked(slot)) {
					return
				}
			}
		}
	}
}

// AllMut returns the component cells for writing; only available on a write
// view
func (v *ComponentView[C]) AllMut() iter.Seq2[EntityID, *C] {
	if !v.mutable {
		panic(errors.WithStack(ImmutableDeclaredError{Component: v.ctype}))
	}
	return v.All()
}
