package silo

import (
	"iter"
	"reflect"
	"unsafe"
)

// ArchetypeStorage is the columnar storage for a single layout. All entities
// of the archetype live in one growable record buffer with stride equal to
// the state size; each component column is the strided view at that
// component's offset. The buffer is typed with the state type so the garbage
// collector traces reference fields inside live records.
type ArchetypeStorage struct {
	meta     *ArchetypeMetadata
	index    ArchetypeIndex
	slots    *EntitySlots
	buffer   reflect.Value
	base     unsafe.Pointer
	capacity uint32
	stride   uintptr
	columns  map[ComponentType]int
	anyDrop  bool
	released bool
}

func newArchetypeStorage(meta *ArchetypeMetadata, index ArchetypeIndex) *ArchetypeStorage {
	capacity := uint32(Config.InitialColumnCapacity())
	buffer := reflect.New(reflect.ArrayOf(int(capacity), meta.stateType)).Elem()

	columns := make(map[ComponentType]int, len(meta.components))
	anyDrop := false
	for i, info := range meta.components {
		columns[info.Type] = i
		anyDrop = anyDrop || info.NeedsDrop
	}
	return &ArchetypeStorage{
		meta:     meta,
		index:    index,
		slots:    newEntitySlots(),
		buffer:   buffer,
		base:     buffer.Addr().UnsafePointer(),
		capacity: capacity,
		stride:   meta.stateSize,
		columns:  columns,
		anyDrop:  anyDrop,
	}
}

// Index returns the archetype's position in its store
func (a *ArchetypeStorage) Index() ArchetypeIndex {
	return a.index
}

// Metadata returns the archetype's canonical state metadata
func (a *ArchetypeStorage) Metadata() *ArchetypeMetadata {
	return a.meta
}

// Layout returns the archetype's component set
func (a *ArchetypeStorage) Layout() ArchetypeLayout {
	return a.meta.layout
}

func (a *ArchetypeStorage) recordAt(slot Slot) unsafe.Pointer {
	return unsafe.Add(a.base, uintptr(slot)*a.stride)
}

func (a *ArchetypeStorage) grow(needed uint32) {
	newCap := max(needed, 2*a.capacity)
	grown := reflect.New(reflect.ArrayOf(int(newCap), a.meta.stateType)).Elem()
	reflect.Copy(grown, a.buffer)
	a.buffer = grown
	a.base = grown.Addr().UnsafePointer()
	a.capacity = newCap
}

// AddEntityFromState allocates a slot and copies the record at src into it.
// The bytes at src must be a valid instance of srcMeta's state type, and
// srcMeta's layout must equal the archetype's layout; the registry upholds
// both before any bytes are copied. The state value is logically moved in.
func (a *ArchetypeStorage) AddEntityFromState(src unsafe.Pointer, srcMeta *ArchetypeMetadata) (Slot, error) {
	slot, err := a.slots.Allocate()
	if err != nil {
		return 0, err
	}
	if uint32(slot) >= a.capacity {
		a.grow(uint32(slot) + 1)
	}

	dst := a.recordAt(slot)
	if srcMeta.stateType == a.meta.stateType {
		if a.stride > 0 {
			copy(unsafe.Slice((*byte)(dst), a.stride), unsafe.Slice((*byte)(src), a.stride))
		}
		return slot, nil
	}

	// Same layout, different state type: components land at the canonical
	// record's offsets, not the source's.
	for _, srcInfo := range srcMeta.components {
		idx, ok := a.columns[srcInfo.Type]
		if !ok || srcInfo.Size == 0 {
			continue
		}
		dstInfo := a.meta.components[idx]
		copy(
			unsafe.Slice((*byte)(unsafe.Add(dst, dstInfo.Offset)), dstInfo.Size),
			unsafe.Slice((*byte)(unsafe.Add(src, srcInfo.Offset)), srcInfo.Size),
		)
	}
	return slot, nil
}

func (a *ArchetypeStorage) componentPtr(ct ComponentType, slot Slot) (unsafe.Pointer, uintptr, error) {
	idx, ok := a.columns[ct]
	if !ok || !a.slots.Contains(slot) {
		return nil, 0, NotFoundError{Entity: NullEntityID, Component: ct}
	}
	info := a.meta.components[idx]
	return unsafe.Add(a.recordAt(slot), info.Offset), info.Size, nil
}

// Get returns the bytes of the component in the given slot
func (a *ArchetypeStorage) Get(ct ComponentType, slot Slot) ([]byte, error) {
	p, size, err := a.componentPtr(ct, slot)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(p), size), nil
}

// GetMut returns the bytes of the component in the given slot for writing
func (a *ArchetypeStorage) GetMut(ct ComponentType, slot Slot) ([]byte, error) {
	return a.Get(ct, slot)
}

// StateBytes returns the whole record of the given slot as one byte range
func (a *ArchetypeStorage) StateBytes(slot Slot) ([]byte, error) {
	if !a.slots.Contains(slot) {
		return nil, NotFoundError{Entity: NullEntityID}
	}
	return unsafe.Slice((*byte)(a.recordAt(slot)), a.stride), nil
}

// Remove frees the slot, running drop functions on every component that
// requires one. Returns false if the slot was already unoccupied. Drop
// functions zero the cells they finalize; the rest of the record bytes are
// left in place and never read again until the slot is reused.
func (a *ArchetypeStorage) Remove(slot Slot) bool {
	if !a.slots.Contains(slot) {
		return false
	}
	if a.anyDrop {
		rec := a.recordAt(slot)
		for _, info := range a.meta.components {
			if info.NeedsDrop {
				info.Drop(unsafe.Add(rec, info.Offset))
			}
		}
	}
	return a.slots.Free(slot)
}

// Contains reports whether the slot is occupied
func (a *ArchetypeStorage) Contains(slot Slot) bool {
	return a.slots.Contains(slot)
}

// Count returns the number of occupied slots
func (a *ArchetypeStorage) Count() int {
	return a.slots.Count()
}

// Slots returns the occupied slots in ascending order
func (a *ArchetypeStorage) Slots() iter.Seq[Slot] {
	return a.slots.All()
}

// release drops each component of each still-occupied slot exactly once and
// detaches the record buffer. Idempotent.
func (a *ArchetypeStorage) release() {
	if a.released {
		return
	}
	a.released = true
	if a.anyDrop {
		for slot := range a.slots.All() {
			rec := a.recordAt(slot)
			for _, info := range a.meta.components {
				if info.NeedsDrop {
					info.Drop(unsafe.Add(rec, info.Offset))
				}
			}
		}
	}
	a.buffer = reflect.Value{}
	a.base = nil
	a.capacity = 0
}
