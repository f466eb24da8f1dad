package silo

import (
	"iter"
	"reflect"
	"unsafe"

	"github.com/pkg/errors"
)

// EntityStore is the archetype registry and entity container. Archetypes are
// created lazily on first insertion of a new layout and live until the store
// is released; the registry holds at most one archetype per distinct layout.
type EntityStore struct {
	archetypes     []*ArchetypeStorage
	layoutIndex    map[string]ArchetypeIndex
	stateIndex     map[reflect.Type]ArchetypeIndex
	componentIndex map[ComponentType][]ArchetypeIndex
	locks          int
	operationQueue EntityOperationsQueue
	released       bool
}

func newEntityStore() *EntityStore {
	return &EntityStore{
		layoutIndex:    make(map[string]ArchetypeIndex),
		stateIndex:     make(map[reflect.Type]ArchetypeIndex),
		componentIndex: make(map[ComponentType][]ArchetypeIndex),
		operationQueue: &entityOperationsQueue{},
	}
}

// archetypeForMeta resolves the archetype for a state type, creating it on
// first use. The fast path is the state-type map; on miss the layout map is
// consulted so two state types with equal layouts share one archetype.
func (s *EntityStore) archetypeForMeta(meta *ArchetypeMetadata) ArchetypeIndex {
	if idx, ok := s.stateIndex[meta.stateType]; ok {
		return idx
	}
	idx, ok := s.layoutIndex[meta.layout.Key()]
	if !ok {
		idx = ArchetypeIndex(len(s.archetypes))
		created := newArchetypeStorage(meta, idx)
		s.archetypes = append(s.archetypes, created)
		s.layoutIndex[meta.layout.Key()] = idx
		for _, ct := range meta.layout.Types() {
			s.componentIndex[ct] = append(s.componentIndex[ct], idx)
		}
	}
	s.stateIndex[meta.stateType] = idx
	return idx
}

// Insert moves the state value into the store and returns the new entity's
// id. The same state type always resolves to the same archetype.
func Insert[S any](s *EntityStore, state S) (EntityID, error) {
	if s.Locked() {
		return NullEntityID, errors.WithStack(LockedStoreError{})
	}
	meta, err := MetadataFor[S]()
	if err != nil {
		return NullEntityID, err
	}
	idx := s.archetypeForMeta(meta)
	slot, err := s.archetypes[idx].AddEntityFromState(unsafe.Pointer(&state), meta)
	if err != nil {
		return NullEntityID, err
	}
	return EntityID{Archetype: idx, Slot: slot}, nil
}

func (s *EntityStore) archetypeAt(idx ArchetypeIndex) (*ArchetypeStorage, bool) {
	if int(idx) >= len(s.archetypes) {
		return nil, false
	}
	return s.archetypes[idx], true
}

// Contains reports whether the entity is alive
func (s *EntityStore) Contains(id EntityID) bool {
	arch, ok := s.archetypeAt(id.Archetype)
	return ok && arch.Contains(id.Slot)
}

// Get returns the bytes of one component of the entity
func (s *EntityStore) Get(id EntityID, ct ComponentType) ([]byte, error) {
	arch, ok := s.archetypeAt(id.Archetype)
	if !ok {
		return nil, NotFoundError{Entity: id, Component: ct}
	}
	b, err := arch.Get(ct, id.Slot)
	if err != nil {
		return nil, NotFoundError{Entity: id, Component: ct}
	}
	return b, nil
}

// GetMut returns the bytes of one component of the entity for writing
func (s *EntityStore) GetMut(id EntityID, ct ComponentType) ([]byte, error) {
	return s.Get(id, ct)
}

// GetStateBytes returns the entity's whole record iff its archetype was
// created from the given state type
func (s *EntityStore) GetStateBytes(id EntityID, stateType reflect.Type) ([]byte, error) {
	arch, ok := s.archetypeAt(id.Archetype)
	if !ok {
		return nil, NotFoundError{Entity: id}
	}
	if arch.meta.stateType != stateType {
		return nil, wrongStateType(stateType, arch.meta.stateType)
	}
	b, err := arch.StateBytes(id.Slot)
	if err != nil {
		return nil, NotFoundError{Entity: id}
	}
	return b, nil
}

// Remove destroys the entity, dropping its components. Returns whether the
// entity was alive; removing twice reports false the second time.
func (s *EntityStore) Remove(id EntityID) (bool, error) {
	if s.Locked() {
		return false, errors.WithStack(LockedStoreError{})
	}
	arch, ok := s.archetypeAt(id.Archetype)
	if !ok {
		return false, nil
	}
	return arch.Remove(id.Slot), nil
}

// ArchetypeByIndex returns the archetype at the given index
func (s *EntityStore) ArchetypeByIndex(idx ArchetypeIndex) (*ArchetypeStorage, bool) {
	return s.archetypeAt(idx)
}

// ArchetypeByStateType returns the archetype created for the given state type
func (s *EntityStore) ArchetypeByStateType(stateType reflect.Type) (*ArchetypeStorage, bool) {
	idx, ok := s.stateIndex[stateType]
	if !ok {
		return nil, false
	}
	return s.archetypes[idx], true
}

// ArchetypeFor returns the archetype that states of type S resolve to, if any
// have been inserted
func ArchetypeFor[S any](s *EntityStore) (*ArchetypeStorage, bool) {
	return s.ArchetypeByStateType(reflect.TypeFor[S]())
}

// Archetypes returns all archetypes in first-seen order
func (s *EntityStore) Archetypes() []*ArchetypeStorage {
	return s.archetypes
}

// ArchetypesWith returns the indices of archetypes whose layout includes the
// component, in ascending order
func (s *EntityStore) ArchetypesWith(ct ComponentType) []ArchetypeIndex {
	return s.componentIndex[ct]
}

// AllEntities returns every live entity, ordered by ascending archetype
// index, then ascending slot
func (s *EntityStore) AllEntities() iter.Seq[EntityID] {
	return func(yield func(EntityID) bool) {
		for _, arch := range s.archetypes {
			for slot := range arch.Slots() {
				if !yield(EntityID{Archetype: arch.index, Slot: slot}) {
					return
				}
			}
		}
	}
}

// CountEntities returns the number of live entities across all archetypes
func (s *EntityStore) CountEntities() int {
	total := 0
	for _, arch := range s.archetypes {
		total += arch.Count()
	}
	return total
}

// Locked reports whether the store is held by running systems or cursors
func (s *EntityStore) Locked() bool {
	return s.locks > 0
}

func (s *EntityStore) addLock() {
	s.locks++
}

// popLock releases one lock hold and drains queued operations once the store
// is fully unlocked
func (s *EntityStore) popLock() {
	if s.locks > 0 {
		s.locks--
	}
	if s.locks == 0 {
		if err := s.operationQueue.ProcessAll(s); err != nil {
			panic(errors.Wrap(err, "processing queued operations"))
		}
	}
}

// Enqueue adds an operation to be applied once the store unlocks
func (s *EntityStore) Enqueue(op EntityOperation) {
	s.operationQueue.Enqueue(op)
}

// EnqueueRemove destroys the entity immediately, or defers the destruction
// until the store unlocks
func (s *EntityStore) EnqueueRemove(id EntityID) error {
	if !s.Locked() {
		_, err := s.Remove(id)
		return err
	}
	s.Enqueue(removeEntityOperation{id: id})
	return nil
}

// Entry returns a read entry bound to the entity's already-resolved archetype
func (s *EntityStore) Entry(id EntityID) (Entry, error) {
	arch, ok := s.archetypeAt(id.Archetype)
	if !ok || !arch.Contains(id.Slot) {
		return Entry{}, NotFoundError{Entity: id}
	}
	return Entry{arch: arch, id: id}, nil
}

// EntryMut returns a write entry bound to the entity's archetype
func (s *EntityStore) EntryMut(id EntityID) (EntryMut, error) {
	entry, err := s.Entry(id)
	if err != nil {
		return EntryMut{}, err
	}
	return EntryMut{Entry: entry}, nil
}

// Release drops every component of every still-occupied slot exactly once
// and detaches all column buffers. The store must not be used afterwards.
func (s *EntityStore) Release() {
	if s.released {
		return
	}
	s.released = true
	for _, arch := range s.archetypes {
		arch.release()
	}
}
