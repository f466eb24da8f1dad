/*
Package silo provides an archetype-based container for heterogeneous entity data.

Silo groups entities that share the same component layout ("archetype") into
contiguous columnar storage, and schedules user systems over filtered component
views, running them in parallel when their declared accesses are disjoint.

Core Concepts:

  - Entity: an identifier for a record of components stored in the container.
  - Component: a typed field of an entity state struct.
  - Archetype: a collection of entities sharing the same component types.
  - State: a user struct whose fields are the components of one entity.
  - System: a callback plus a declaration of which components it reads/writes.

Basic Usage:

	// Define a state type; each field is a component
	type Dog struct {
		Animal Animal
		Barks  Barks
		Eats   Eats
	}

	// Create a store and insert entities
	store := silo.Factory.NewStore()
	dog, _ := silo.Insert(store, Dog{Barks: Barks{Sound: "woof"}})

	// Access a single component
	barks, _ := silo.GetComponent[Barks](store, dog)
	fmt.Println(barks.Sound)

	// Run systems over component views
	animal := silo.ComponentTypeFor[Animal]()
	sys := silo.NewSystem("age", func(acc *silo.Access) error {
		view, err := silo.MutView[Animal](acc)
		if err != nil {
			return err
		}
		defer view.Release()
		for _, a := range view.AllMut() {
			a.Age++
		}
		return nil
	}).WithMut(animal)

	scheduler := silo.Factory.NewScheduler(store)
	scheduler.Dispatch(sys)

Entities of the same state type always land in the same archetype; two distinct
state types with the same component set share one archetype. Component columns
are never shrunk and slots are recycled lowest-first, so iteration is always in
ascending (archetype, slot) order.
*/
package silo
