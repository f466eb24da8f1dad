package silo

import (
	"testing"
)

func TestEntitySlotsAllocateLowestFirst(t *testing.T) {
	tests := []struct {
		name      string
		allocate  int
		free      []Slot
		wantNext  Slot
		wantCount int
	}{
		{
			name:      "Append when nothing freed",
			allocate:  3,
			free:      nil,
			wantNext:  3,
			wantCount: 4,
		},
		{
			name:      "Recycle single hole",
			allocate:  3,
			free:      []Slot{1},
			wantNext:  1,
			wantCount: 3,
		},
		{
			name:      "Recycle lowest of several holes",
			allocate:  5,
			free:      []Slot{3, 0, 2},
			wantNext:  0,
			wantCount: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots := newEntitySlots()
			for i := 0; i < tt.allocate; i++ {
				slot, err := slots.Allocate()
				if err != nil {
					t.Fatalf("Allocate() error = %v", err)
				}
				if slot != Slot(i) {
					t.Fatalf("Allocate() = %d, want %d", slot, i)
				}
			}
			for _, slot := range tt.free {
				if !slots.Free(slot) {
					t.Fatalf("Free(%d) = false, want true", slot)
				}
			}

			next, err := slots.Allocate()
			if err != nil {
				t.Fatalf("Allocate() error = %v", err)
			}
			if next != tt.wantNext {
				t.Errorf("Allocate() = %d, want %d", next, tt.wantNext)
			}
			if slots.Count() != tt.wantCount {
				t.Errorf("Count() = %d, want %d", slots.Count(), tt.wantCount)
			}
		})
	}
}

func TestEntitySlotsFreeIdempotent(t *testing.T) {
	slots := newEntitySlots()
	slot, _ := slots.Allocate()

	if !slots.Free(slot) {
		t.Errorf("First Free() = false, want true")
	}
	if slots.Free(slot) {
		t.Errorf("Second Free() = true, want false")
	}
	if slots.Count() != 0 {
		t.Errorf("Count() = %d, want 0", slots.Count())
	}
}

func TestEntitySlotsContains(t *testing.T) {
	slots := newEntitySlots()
	a, _ := slots.Allocate()
	b, _ := slots.Allocate()
	slots.Free(a)

	if slots.Contains(a) {
		t.Errorf("Contains(%d) = true after free", a)
	}
	if !slots.Contains(b) {
		t.Errorf("Contains(%d) = false for live slot", b)
	}
	if slots.Contains(99) {
		t.Errorf("Contains(99) = true for never-allocated slot")
	}
}

func TestEntitySlotsIterationAscendingAndRestartable(t *testing.T) {
	slots := newEntitySlots()
	for i := 0; i < 6; i++ {
		slots.Allocate()
	}
	slots.Free(1)
	slots.Free(4)

	want := []Slot{0, 2, 3, 5}
	for round := 0; round < 2; round++ {
		var got []Slot
		for slot := range slots.All() {
			got = append(got, slot)
		}
		if len(got) != len(want) {
			t.Fatalf("round %d: iterated %d slots, want %d", round, len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("round %d: slot[%d] = %d, want %d", round, i, got[i], want[i])
			}
		}
	}
}

func TestEntitySlotsHighWaterNeverShrinks(t *testing.T) {
	slots := newEntitySlots()
	for i := 0; i < 4; i++ {
		slots.Allocate()
	}
	slots.Free(0)
	slots.Free(1)
	slots.Free(2)
	slots.Free(3)

	if slots.HighWater() != 4 {
		t.Errorf("HighWater() = %d, want 4", slots.HighWater())
	}

	// Recycled allocations stay below the water mark
	slot, _ := slots.Allocate()
	if slot != 0 {
		t.Errorf("Allocate() = %d, want 0", slot)
	}
	if slots.HighWater() != 4 {
		t.Errorf("HighWater() = %d after recycle, want 4", slots.HighWater())
	}
}
