package silo

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/pkg/errors"
)

// ComponentType is a process-stable tag identifying one component value type.
// Identity is derived from the Go type on first use; two ComponentTypes are
// equal iff they tag the same type. Ordering follows first-seen registration.
type ComponentType struct {
	id uint32
	rt reflect.Type
}

// ID returns the registration index of the component type
func (c ComponentType) ID() uint32 {
	return c.id
}

// Type returns the underlying Go type of the component
func (c ComponentType) Type() reflect.Type {
	return c.rt
}

// Less orders component types by registration index
func (c ComponentType) Less(other ComponentType) bool {
	return c.id < other.id
}

func (c ComponentType) String() string {
	if c.rt == nil {
		return "<unregistered>"
	}
	return c.rt.String()
}

// Dropper is implemented by component or state types that want a callback
// when their slot is removed or the store is released. OnDrop runs on a
// pointer into the column, before the backing bytes are zeroed.
type Dropper interface {
	OnDrop()
}

var dropperType = reflect.TypeFor[Dropper]()

var (
	componentTypesOnce sync.Once
	componentTypes     Cache[reflect.Type]
)

func componentTypeCache() Cache[reflect.Type] {
	componentTypesOnce.Do(func() {
		componentTypes = FactoryNewCache[reflect.Type](Config.MaxComponentTypes())
	})
	return componentTypes
}

// ComponentTypeFor returns the ComponentType tagging C, registering it on
// first use
func ComponentTypeFor[C any]() ComponentType {
	return componentTypeOf(reflect.TypeFor[C]())
}

func componentTypeOf(rt reflect.Type) ComponentType {
	cache := componentTypeCache()
	idx, err := cache.GetOrRegister(typeKey(rt), rt)
	if err != nil {
		panic(errors.WithStack(err))
	}
	return ComponentType{id: uint32(idx), rt: rt}
}

// typeKey produces a registry key unique to a Go type. The type's runtime
// identity is part of the key, so distinct types that print the same (such as
// two function-local types of one name) never share a key.
func typeKey(rt reflect.Type) string {
	return fmt.Sprintf("%s@%p", rt.String(), rt)
}
