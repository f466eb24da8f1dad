package silo

import (
	"encoding/binary"
	"sort"
	"strings"

	"github.com/bits-and-blooms/bitset"
)

// ArchetypeLayout is the canonicalized component set of an archetype: the
// component types sorted ascending by id, plus a bitmask over type ids for
// fast superset tests and a precomputed interning key. Two layouts are equal
// iff their sorted type vectors are equal.
type ArchetypeLayout struct {
	types []ComponentType
	mask  *bitset.BitSet
	key   string
}

func newArchetypeLayout(types []ComponentType) ArchetypeLayout {
	sorted := make([]ComponentType, len(types))
	copy(sorted, types)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	mask := bitset.New(uint(len(sorted)))
	var sb strings.Builder
	var buf [4]byte
	for _, ct := range sorted {
		mask.Set(uint(ct.id))
		binary.BigEndian.PutUint32(buf[:], ct.id)
		sb.Write(buf[:])
	}
	return ArchetypeLayout{types: sorted, mask: mask, key: sb.String()}
}

// Types returns the component types sorted ascending by id
func (l ArchetypeLayout) Types() []ComponentType {
	return l.types
}

// Contains reports whether the layout includes the component type
func (l ArchetypeLayout) Contains(ct ComponentType) bool {
	return l.mask != nil && l.mask.Test(uint(ct.id))
}

// ContainsAll reports whether every bit of the component mask is in the layout
func (l ArchetypeLayout) ContainsAll(mask *bitset.BitSet) bool {
	if l.mask == nil {
		return mask.None()
	}
	return l.mask.IsSuperSet(mask)
}

// ContainsAny reports whether any bit of the component mask is in the layout
func (l ArchetypeLayout) ContainsAny(mask *bitset.BitSet) bool {
	return l.mask != nil && l.mask.IntersectionCardinality(mask) > 0
}

// ContainsNone reports whether no bit of the component mask is in the layout
func (l ArchetypeLayout) ContainsNone(mask *bitset.BitSet) bool {
	return !l.ContainsAny(mask)
}

// Equal reports whether two layouts hold the same component set
func (l ArchetypeLayout) Equal(other ArchetypeLayout) bool {
	return l.key == other.key
}

// Key returns the interning key used by the archetype registry
func (l ArchetypeLayout) Key() string {
	return l.key
}

// maskOf builds a component-id bitmask from the given types
func maskOf(types []ComponentType) *bitset.BitSet {
	mask := bitset.New(uint(len(types)))
	for _, ct := range types {
		mask.Set(uint(ct.id))
	}
	return mask
}
