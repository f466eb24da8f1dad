package silo

import "iter"

// Ref3 is one row of a three-component iteration
type Ref3[A, B, C any] struct {
	A *A
	B *B
	C *C
}

// Each2 iterates entities holding both A and B, yielding per-entity
// references in ascending (archetype, slot) order. Sugar over
// Access.ComponentSet; the borrows are released when the sequence finishes.
func Each2[A, B any](acc *Access, modeA, modeB AccessMode) (iter.Seq2[*A, *B], error) {
	desc := setDescriptor(
		ComponentSetEntry{Type: ComponentTypeFor[A](), Mode: modeA},
		ComponentSetEntry{Type: ComponentTypeFor[B](), Mode: modeB},
	)
	view, err := acc.ComponentSet(desc)
	if err != nil {
		return nil, err
	}
	return func(yield func(*A, *B) bool) {
		defer view.Release()
		for _, arch := range view.matched {
			colA, errA := ColumnOf[A](arch)
			colB, errB := ColumnOf[B](arch)
			if errA != nil || errB != nil {
				continue
			}
			for slot := range arch.Slots() {
				if !yield(colA.GetUnchecked(slot), colB.GetUnchecked(slot)) {
					return
				}
			}
		}
	}, nil
}

// Each3 iterates entities holding A, B, and C
func Each3[A, B, C any](acc *Access, modeA, modeB, modeC AccessMode) (iter.Seq[Ref3[A, B, C]], error) {
	desc := setDescriptor(
		ComponentSetEntry{Type: ComponentTypeFor[A](), Mode: modeA},
		ComponentSetEntry{Type: ComponentTypeFor[B](), Mode: modeB},
		ComponentSetEntry{Type: ComponentTypeFor[C](), Mode: modeC},
	)
	view, err := acc.ComponentSet(desc)
	if err != nil {
		return nil, err
	}
	return func(yield func(Ref3[A, B, C]) bool) {
		defer view.Release()
		for _, arch := range view.matched {
			colA, errA := ColumnOf[A](arch)
			colB, errB := ColumnOf[B](arch)
			colC, errC := ColumnOf[C](arch)
			if errA != nil || errB != nil || errC != nil {
				continue
			}
			for slot := range arch.Slots() {
				row := Ref3[A, B, C]{
					A: colA.GetUnchecked(slot),
					B: colB.GetUnchecked(slot),
					C: colC.GetUnchecked(slot),
				}
				if !yield(row) {
					return
				}
			}
		}
	}, nil
}

func setDescriptor(entries ...ComponentSetEntry) *ComponentSetDescriptor {
	desc := NewComponentSetDescriptor()
	for _, entry := range entries {
		if entry.Mode == Write {
			desc.WithMut(entry.Type)
		} else {
			desc.With(entry.Type)
		}
	}
	return desc
}
