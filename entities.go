package silo

import (
	"iter"
	"math"

	"github.com/bits-and-blooms/bitset"
	"github.com/pkg/errors"
)

// MaxSlots is the maximum number of simultaneously live slots per archetype
const MaxSlots = math.MaxUint32 - 1

// EntitySlots is a per-archetype slot allocator with recycling. Bit i of the
// occupancy bitset is set iff slot i is live; allocation always picks the
// lowest free slot.
type EntitySlots struct {
	occupied *bitset.BitSet
	live     uint32
	high     uint32
}

func newEntitySlots() *EntitySlots {
	return &EntitySlots{occupied: bitset.New(uint(Config.InitialColumnCapacity()))}
}

// Allocate returns the lowest free slot, recycling freed slots before
// appending past the high-water mark
func (s *EntitySlots) Allocate() (Slot, error) {
	if s.live >= MaxSlots {
		return 0, errors.WithStack(CapacityExceededError{Max: MaxSlots})
	}
	idx, ok := s.occupied.NextClear(0)
	if !ok || idx >= uint(s.high) {
		idx = uint(s.high)
		s.high++
	}
	s.occupied.Set(idx)
	s.live++
	return Slot(idx), nil
}

// Free marks the slot unoccupied. Returns true if the slot was live; repeated
// frees of the same slot return false.
func (s *EntitySlots) Free(slot Slot) bool {
	if !s.occupied.Test(uint(slot)) {
		return false
	}
	s.occupied.Clear(uint(slot))
	s.live--
	return true
}

// Contains reports whether the slot is live
func (s *EntitySlots) Contains(slot Slot) bool {
	return s.occupied.Test(uint(slot))
}

// Count returns the number of live slots
func (s *EntitySlots) Count() int {
	return int(s.live)
}

// HighWater returns one past the highest slot ever allocated
func (s *EntitySlots) HighWater() uint32 {
	return s.high
}

// All returns the live slots in ascending order. The sequence is restartable
// as long as the allocator is not mutated in between.
func (s *EntitySlots) All() iter.Seq[Slot] {
	return func(yield func(Slot) bool) {
		for idx, ok := s.occupied.NextSet(0); ok; idx, ok = s.occupied.NextSet(idx + 1) {
			if !yield(Slot(idx)) {
				return
			}
		}
	}
}
