package silo

import (
	"fmt"
	"math"
)

// ArchetypeIndex identifies an archetype within a store, assigned in
// first-seen order and never reused
type ArchetypeIndex uint32

// Slot is the position of an entity within its archetype's columns, recycled
// after removal
type Slot uint32

// EntityID identifies one entity: the archetype it lives in plus its slot
type EntityID struct {
	Archetype ArchetypeIndex
	Slot      Slot
}

// NullEntityID is the reserved "no entity" value
var NullEntityID = EntityID{
	Archetype: ArchetypeIndex(math.MaxUint32),
	Slot:      Slot(math.MaxUint32),
}

// Valid reports whether the id is not the reserved null value
func (e EntityID) Valid() bool {
	return e != NullEntityID
}

func (e EntityID) String() string {
	if !e.Valid() {
		return "entity(null)"
	}
	return fmt.Sprintf("entity(%d:%d)", e.Archetype, e.Slot)
}
