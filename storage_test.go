package silo

import (
	"testing"

	"github.com/pkg/errors"
)

// Test component types
type Position struct {
	X, Y float64
}

type Velocity struct {
	X, Y float64
}

type Health struct {
	Current, Max int
}

// Test state types
type PositionVelocityState struct {
	Position Position
	Velocity Velocity
}

type PositionState struct {
	Position Position
}

type FullState struct {
	Position Position
	Velocity Velocity
	Health   Health
}

// Animal-themed states for the two-archetype scenarios
type Animal struct {
	Age int
}

type Barks struct {
	Sound string
}

type Eats struct {
	Food string
}

type Dog struct {
	Animal Animal
	Barks  Barks
	Eats   Eats
}

type Bird struct {
	Animal Animal
	Eats   Eats
}

type Comp1 struct {
	A int
}

type Comp1State struct {
	Comp1 Comp1
}

func TestArchetypeInterning(t *testing.T) {
	tests := []struct {
		name                string
		insertFirst         func(*EntityStore) (EntityID, error)
		insertSecond        func(*EntityStore) (EntityID, error)
		expectSameArchetype bool
	}{
		{
			name:                "Identical state types",
			insertFirst:         func(s *EntityStore) (EntityID, error) { return Insert(s, PositionVelocityState{}) },
			insertSecond:        func(s *EntityStore) (EntityID, error) { return Insert(s, PositionVelocityState{}) },
			expectSameArchetype: true,
		},
		{
			name:                "Different layouts",
			insertFirst:         func(s *EntityStore) (EntityID, error) { return Insert(s, PositionState{}) },
			insertSecond:        func(s *EntityStore) (EntityID, error) { return Insert(s, PositionVelocityState{}) },
			expectSameArchetype: false,
		},
		{
			name:                "Subset layout",
			insertFirst:         func(s *EntityStore) (EntityID, error) { return Insert(s, FullState{}) },
			insertSecond:        func(s *EntityStore) (EntityID, error) { return Insert(s, PositionState{}) },
			expectSameArchetype: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := Factory.NewStore()
			first, err := tt.insertFirst(store)
			if err != nil {
				t.Fatalf("first insert error = %v", err)
			}
			second, err := tt.insertSecond(store)
			if err != nil {
				t.Fatalf("second insert error = %v", err)
			}

			same := first.Archetype == second.Archetype
			if same != tt.expectSameArchetype {
				t.Errorf("same archetype: %v, expected: %v", same, tt.expectSameArchetype)
			}
		})
	}
}

func TestSharedLayoutSharesArchetype(t *testing.T) {
	// Two distinct state types with the same component set resolve to one
	// archetype
	type DogFood struct {
		Eats   Eats
		Animal Animal
	}
	store := Factory.NewStore()

	bird, err := Insert(store, Bird{Animal: Animal{Age: 1}, Eats: Eats{Food: "seeds"}})
	if err != nil {
		t.Fatalf("Insert(Bird) error = %v", err)
	}
	other, err := Insert(store, DogFood{Eats: Eats{Food: "meat"}, Animal: Animal{Age: 2}})
	if err != nil {
		t.Fatalf("Insert(DogFood) error = %v", err)
	}

	if bird.Archetype != other.Archetype {
		t.Errorf("archetypes differ: %d vs %d", bird.Archetype, other.Archetype)
	}

	// Components land at the canonical record's offsets
	eats, err := GetComponent[Eats](store, other)
	if err != nil {
		t.Fatalf("GetComponent(Eats) error = %v", err)
	}
	if eats.Food != "meat" {
		t.Errorf("Eats.Food = %q, want %q", eats.Food, "meat")
	}
	age, err := GetComponent[Animal](store, other)
	if err != nil {
		t.Fatalf("GetComponent(Animal) error = %v", err)
	}
	if age.Age != 2 {
		t.Errorf("Animal.Age = %d, want 2", age.Age)
	}

	// GetState is gated on the creating state type, not the layout
	if _, err := GetState[DogFood](store, bird); err == nil {
		t.Errorf("GetState[DogFood](bird) error = nil, want WrongStateType")
	}
}

func TestTwoArchetypesDisjointLookups(t *testing.T) {
	store := Factory.NewStore()

	dog, err := Insert(store, Dog{Barks: Barks{Sound: "woof"}, Eats: Eats{Food: "meat"}})
	if err != nil {
		t.Fatalf("Insert(Dog) error = %v", err)
	}
	bird, err := Insert(store, Bird{Eats: Eats{Food: "seeds"}})
	if err != nil {
		t.Fatalf("Insert(Bird) error = %v", err)
	}

	if store.CountEntities() != 2 {
		t.Errorf("CountEntities() = %d, want 2", store.CountEntities())
	}

	barks, err := GetComponent[Barks](store, dog)
	if err != nil {
		t.Fatalf("GetComponent[Barks](dog) error = %v", err)
	}
	if barks.Sound != "woof" {
		t.Errorf("Barks.Sound = %q, want %q", barks.Sound, "woof")
	}

	_, err = GetComponent[Barks](store, bird)
	var notFound NotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("GetComponent[Barks](bird) error = %v, want NotFoundError", err)
	}

	animals := store.ArchetypesWith(ComponentTypeFor[Animal]())
	if len(animals) != 2 {
		t.Errorf("archetypes with Animal = %d, want 2", len(animals))
	}
	barkers := store.ArchetypesWith(ComponentTypeFor[Barks]())
	if len(barkers) != 1 {
		t.Errorf("archetypes with Barks = %d, want 1", len(barkers))
	}
}

func TestSlotReuseLowestFirst(t *testing.T) {
	store := Factory.NewStore()

	e1, _ := Insert(store, Comp1State{Comp1: Comp1{A: 1}})
	e2, _ := Insert(store, Comp1State{Comp1: Comp1{A: 2}})
	e3, _ := Insert(store, Comp1State{Comp1: Comp1{A: 3}})

	removed, err := store.Remove(e2)
	if err != nil || !removed {
		t.Fatalf("Remove(e2) = (%v, %v), want (true, nil)", removed, err)
	}

	e4, _ := Insert(store, Comp1State{Comp1: Comp1{A: 4}})
	if e4.Slot != e2.Slot {
		t.Errorf("reused slot = %d, want %d", e4.Slot, e2.Slot)
	}

	arch, ok := ArchetypeFor[Comp1State](store)
	if !ok {
		t.Fatalf("ArchetypeFor() not found")
	}
	col, _ := ColumnOf[Comp1](arch)
	var got []int
	for _, c := range col.All() {
		got = append(got, c.A)
	}
	want := []int{1, 4, 3}
	if len(got) != len(want) {
		t.Fatalf("iterated %d values, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("value[%d] = %d, want %d", i, got[i], want[i])
		}
	}

	if e1 == e3 {
		t.Errorf("distinct entities share an id")
	}
}

func TestRemoveIdempotent(t *testing.T) {
	store := Factory.NewStore()
	e, _ := Insert(store, Comp1State{Comp1: Comp1{A: 1}})

	first, err := store.Remove(e)
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	second, err := store.Remove(e)
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if !first || second {
		t.Errorf("Remove() twice = (%v, %v), want (true, false)", first, second)
	}
	if store.Contains(e) {
		t.Errorf("Contains() = true after remove")
	}
	if _, err := store.Get(e, ComponentTypeFor[Comp1]()); err == nil {
		t.Errorf("Get() after remove error = nil, want NotFound")
	}
	if store.CountEntities() != 0 {
		t.Errorf("CountEntities() = %d, want 0", store.CountEntities())
	}
}

func TestInsertRemoveCountInvariant(t *testing.T) {
	store := Factory.NewStore()

	var ids []EntityID
	for i := 0; i < 50; i++ {
		id, err := Insert(store, Comp1State{Comp1: Comp1{A: i}})
		if err != nil {
			t.Fatalf("Insert(%d) error = %v", i, err)
		}
		ids = append(ids, id)
	}
	removed := 0
	for i := 0; i < 50; i += 3 {
		ok, _ := store.Remove(ids[i])
		if ok {
			removed++
		}
	}
	if store.CountEntities() != 50-removed {
		t.Errorf("CountEntities() = %d, want %d", store.CountEntities(), 50-removed)
	}
}

func TestGetStateRoundTrip(t *testing.T) {
	store := Factory.NewStore()

	in := PositionVelocityState{
		Position: Position{X: 1.5, Y: 2.5},
		Velocity: Velocity{X: -1, Y: -2},
	}
	id, err := Insert(store, in)
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	out, err := GetState[PositionVelocityState](store, id)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if *out != in {
		t.Errorf("GetState() = %+v, want %+v", *out, in)
	}

	// Mutation through the state pointer is visible through component views
	out.Position.X = 42
	pos, _ := GetComponent[Position](store, id)
	if pos.X != 42 {
		t.Errorf("Position.X = %v after state mutation, want 42", pos.X)
	}
}

func TestGetStateWrongType(t *testing.T) {
	store := Factory.NewStore()
	dog, _ := Insert(store, Dog{})

	_, err := GetState[Bird](store, dog)
	var wrong WrongStateTypeError
	if !errors.As(err, &wrong) {
		t.Fatalf("GetState[Bird](dog) error = %v, want WrongStateTypeError", err)
	}
}

func TestAllEntitiesOrdering(t *testing.T) {
	store := Factory.NewStore()

	Insert(store, Dog{})
	Insert(store, Bird{})
	Insert(store, Dog{})
	Insert(store, Bird{})

	var got []EntityID
	for id := range store.AllEntities() {
		got = append(got, id)
	}
	if len(got) != 4 {
		t.Fatalf("iterated %d entities, want 4", len(got))
	}
	for i := 1; i < len(got); i++ {
		prev, cur := got[i-1], got[i]
		if cur.Archetype < prev.Archetype ||
			(cur.Archetype == prev.Archetype && cur.Slot <= prev.Slot) {
			t.Errorf("entities out of order: %v before %v", prev, cur)
		}
	}
}

func TestStoreLockingDefersOperations(t *testing.T) {
	store := Factory.NewStore()
	Insert(store, Comp1State{Comp1: Comp1{A: 1}})

	store.addLock()

	if _, err := Insert(store, Comp1State{}); err == nil {
		t.Errorf("Insert() while locked error = nil, want LockedStoreError")
	}
	if err := EnqueueInsert(store, Comp1State{Comp1: Comp1{A: 2}}); err != nil {
		t.Fatalf("EnqueueInsert() error = %v", err)
	}
	if store.CountEntities() != 1 {
		t.Errorf("CountEntities() = %d while locked, want 1", store.CountEntities())
	}

	store.popLock()

	if store.CountEntities() != 2 {
		t.Errorf("CountEntities() = %d after unlock, want 2", store.CountEntities())
	}
}

func TestStoreReleaseDropsRemaining(t *testing.T) {
	trackedDrops = 0
	store := Factory.NewStore()

	var ids []EntityID
	for i := 0; i < 100; i++ {
		id, err := Insert(store, TrackedState{Tracked: Tracked{ID: i}})
		if err != nil {
			t.Fatalf("Insert(%d) error = %v", i, err)
		}
		ids = append(ids, id)
	}
	for i := 0; i < 40; i++ {
		if ok, _ := store.Remove(ids[i]); !ok {
			t.Fatalf("Remove(%d) = false", i)
		}
	}

	store.Release()

	if trackedDrops != 100 {
		t.Errorf("drops = %d, want 100", trackedDrops)
	}
}

func TestEntryAccess(t *testing.T) {
	store := Factory.NewStore()
	id, _ := Insert(store, Dog{Barks: Barks{Sound: "yip"}})

	entry, err := store.Entry(id)
	if err != nil {
		t.Fatalf("Entry() error = %v", err)
	}
	barks, err := EntryGet[Barks](entry)
	if err != nil {
		t.Fatalf("EntryGet() error = %v", err)
	}
	if barks.Sound != "yip" {
		t.Errorf("Barks.Sound = %q, want %q", barks.Sound, "yip")
	}

	mut, err := store.EntryMut(id)
	if err != nil {
		t.Fatalf("EntryMut() error = %v", err)
	}
	b, _ := EntryGetMut[Barks](mut)
	b.Sound = "woof"
	barks, _ = EntryGet[Barks](entry)
	if barks.Sound != "woof" {
		t.Errorf("Barks.Sound = %q after mutation, want %q", barks.Sound, "woof")
	}

	store.Remove(id)
	if _, err := store.Entry(id); err == nil {
		t.Errorf("Entry() after remove error = nil, want NotFound")
	}
}

func TestDuplicateComponentRejected(t *testing.T) {
	type TwoPositions struct {
		A Position
		B Position
	}
	store := Factory.NewStore()

	_, err := Insert(store, TwoPositions{})
	var dup DuplicateComponentError
	if !errors.As(err, &dup) {
		t.Fatalf("Insert() error = %v, want DuplicateComponentError", err)
	}
	if store.CountEntities() != 0 {
		t.Errorf("CountEntities() = %d after failed insert, want 0", store.CountEntities())
	}
}
