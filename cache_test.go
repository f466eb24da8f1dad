package silo

import (
	"testing"
)

func TestSimpleCacheRegisterAndLookup(t *testing.T) {
	cache := FactoryNewCache[string](4)

	idx, err := cache.Register("alpha", "a")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if idx != 0 {
		t.Errorf("Register() index = %d, want 0", idx)
	}

	got, ok := cache.GetIndex("alpha")
	if !ok || got != 0 {
		t.Errorf("GetIndex() = (%d, %v), want (0, true)", got, ok)
	}
	if item := cache.GetItem(0); *item != "a" {
		t.Errorf("GetItem() = %q, want %q", *item, "a")
	}
	if item := cache.GetItem32(0); *item != "a" {
		t.Errorf("GetItem32() = %q, want %q", *item, "a")
	}

	if _, ok := cache.GetIndex("missing"); ok {
		t.Errorf("GetIndex() = true for unregistered key")
	}
}

func TestSimpleCacheGetOrRegister(t *testing.T) {
	cache := FactoryNewCache[int](4)

	first, err := cache.GetOrRegister("k", 10)
	if err != nil {
		t.Fatalf("GetOrRegister() error = %v", err)
	}
	second, err := cache.GetOrRegister("k", 20)
	if err != nil {
		t.Fatalf("GetOrRegister() error = %v", err)
	}
	if first != second {
		t.Errorf("indices differ: %d vs %d", first, second)
	}
	if got := *cache.GetItem(first); got != 10 {
		t.Errorf("GetItem() = %d, want the first registration (10)", got)
	}
	if cache.Count() != 1 {
		t.Errorf("Count() = %d, want 1", cache.Count())
	}
}

func TestSimpleCacheCapacity(t *testing.T) {
	cache := FactoryNewCache[int](2)

	cache.Register("a", 1)
	cache.Register("b", 2)
	if _, err := cache.Register("c", 3); err == nil {
		t.Errorf("Register() beyond capacity error = nil, want error")
	}
}
