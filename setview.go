package silo

import (
	"iter"

	"github.com/pkg/errors"
)

// ComponentSetEntry pairs one component type with its requested access mode
type ComponentSetEntry struct {
	Type ComponentType
	Mode AccessMode
}

// ComponentSetDescriptor names the component types a set view intersects,
// with per-type mutability
type ComponentSetDescriptor struct {
	entries []ComponentSetEntry
}

// NewComponentSetDescriptor creates an empty descriptor
func NewComponentSetDescriptor() *ComponentSetDescriptor {
	return &ComponentSetDescriptor{}
}

// With adds read entries for the given component types
func (d *ComponentSetDescriptor) With(types ...ComponentType) *ComponentSetDescriptor {
	for _, ct := range types {
		d.entries = append(d.entries, ComponentSetEntry{Type: ct, Mode: Read})
	}
	return d
}

// WithMut adds write entries for the given component types
func (d *ComponentSetDescriptor) WithMut(types ...ComponentType) *ComponentSetDescriptor {
	for _, ct := range types {
		d.entries = append(d.entries, ComponentSetEntry{Type: ct, Mode: Write})
	}
	return d
}

// Entries returns the descriptor's entries in declaration order
func (d *ComponentSetDescriptor) Entries() []ComponentSetEntry {
	return d.entries
}

// ComponentSetView is the intersection view: entities whose archetypes
// contain every component in the descriptor, with per-type mutability as
// declared. It holds a borrow on each component until released.
type ComponentSetView struct {
	acc      *Access
	entries  []ComponentSetEntry
	matched  []*ArchetypeStorage
	released bool
}

// ComponentSet acquires a view over the intersection of the descriptor's
// components. Every entry is checked against the system's declaration and
// borrowed; on any failure nothing stays borrowed.
func (a *Access) ComponentSet(desc *ComponentSetDescriptor) (*ComponentSetView, error) {
	entries := desc.Entries()
	for i, entry := range entries {
		err := a.checkDeclared(entry.Type, entry.Mode == Write)
		if err == nil {
			if entry.Mode == Write {
				err = a.borrowExclusive(entry.Type)
			} else {
				err = a.borrowShared(entry.Type)
			}
		}
		if err != nil {
			releaseEntries(a, entries[:i])
			return nil, err
		}
	}

	types := make([]ComponentType, len(entries))
	for i, entry := range entries {
		types[i] = entry.Type
	}
	node := newLeafNode(types)

	matched := make([]*ArchetypeStorage, 0)
	for _, arch := range a.store.Archetypes() {
		if node.Evaluate(arch.Layout()) {
			matched = append(matched, arch)
		}
	}

	return &ComponentSetView{acc: a, entries: entries, matched: matched}, nil
}

func releaseEntries(a *Access, entries []ComponentSetEntry) {
	for _, entry := range entries {
		if entry.Mode == Write {
			a.unborrowExclusive(entry.Type)
		} else {
			a.unborrowShared(entry.Type)
		}
	}
}

// Release returns every borrow held by the view. Idempotent.
func (v *ComponentSetView) Release() {
	if v.released {
		return
	}
	v.released = true
	releaseEntries(v.acc, v.entries)
}

func (v *ComponentSetView) entryFor(ct ComponentType) (ComponentSetEntry, bool) {
	for _, entry := range v.entries {
		if entry.Type == ct {
			return entry, true
		}
	}
	return ComponentSetEntry{}, false
}

// Entities visits each entity present in all requested component columns
// exactly once, in ascending (archetype, slot) order
func (v *ComponentSetView) Entities() iter.Seq[EntityID] {
	return func(yield func(EntityID) bool) {
		for _, arch := range v.matched {
			for slot := range arch.Slots() {
				if !yield(EntityID{Archetype: arch.index, Slot: slot}) {
					return
				}
			}
		}
	}
}

// Count returns the number of entities in the intersection
func (v *ComponentSetView) Count() int {
	total := 0
	for _, arch := range v.matched {
		total += arch.Count()
	}
	return total
}

// SetIter returns the C cells of the intersection in entity order. C must be
// one of the descriptor's components.
func SetIter[C any](v *ComponentSetView) (iter.Seq2[EntityID, *C], error) {
	ct := ComponentTypeFor[C]()
	if _, ok := v.entryFor(ct); !ok {
		return nil, errors.WithStack(ComponentNotDeclaredError{Component: ct})
	}
	return func(yield func(EntityID, *C) bool) {
		for _, arch := range v.matched {
			col, err := ColumnOf[C](arch)
			if err != nil {
				continue
			}
			for slot := range arch.Slots() {
				if !yield(EntityID{Archetype: arch.index, Slot: slot}, col.GetUnchecked(slot)) {
					return
				}
			}
		}
	}, nil
}

// SetIterMut returns the C cells of the intersection for writing. C must be
// declared Write in the descriptor.
func SetIterMut[C any](v *ComponentSetView) (iter.Seq2[EntityID, *C], error) {
	ct := ComponentTypeFor[C]()
	entry, ok := v.entryFor(ct)
	if !ok {
		return nil, errors.WithStack(ComponentNotDeclaredError{Component: ct})
	}
	if entry.Mode != Write {
		return nil, errors.WithStack(ImmutableDeclaredError{Component: ct})
	}
	return SetIter[C](v)
}
