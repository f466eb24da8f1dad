package silo

import (
	"reflect"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
)

// DropFunc finalizes one component cell. It receives a pointer to the cell
// inside the column and must leave the bytes safe to overwrite.
type DropFunc func(unsafe.Pointer)

// ComponentInfo describes one component within one state type: its tag, its
// byte placement inside the state record, and its drop behavior.
type ComponentInfo struct {
	Type      ComponentType
	Offset    uintptr
	Size      uintptr
	NeedsDrop bool
	Drop      DropFunc
}

// ArchetypeMetadata is the reflected description of a state type: the record
// size, drop behavior, and the ordered list of its components. It is produced
// once per distinct state type and cached for the process lifetime.
type ArchetypeMetadata struct {
	stateType      reflect.Type
	stateSize      uintptr
	stateNeedsDrop bool
	stateDrop      DropFunc
	components     []ComponentInfo
	layout         ArchetypeLayout
}

// StateType returns the Go type of the state record
func (m *ArchetypeMetadata) StateType() reflect.Type {
	return m.stateType
}

// StateSize returns the record size in bytes
func (m *ArchetypeMetadata) StateSize() uintptr {
	return m.stateSize
}

// Components returns the component descriptors in declaration order
func (m *ArchetypeMetadata) Components() []ComponentInfo {
	return m.components
}

// Layout returns the canonicalized component set of the state type
func (m *ArchetypeMetadata) Layout() ArchetypeLayout {
	return m.layout
}

var (
	metadataMu    sync.RWMutex
	metadataCache = make(map[reflect.Type]*ArchetypeMetadata)
)

// MetadataFor reflects the state type S into archetype metadata. Every field
// of S is one component; duplicate field types are rejected.
func MetadataFor[S any]() (*ArchetypeMetadata, error) {
	return metadataOf(reflect.TypeFor[S]())
}

func metadataOf(rt reflect.Type) (*ArchetypeMetadata, error) {
	metadataMu.RLock()
	meta, ok := metadataCache[rt]
	metadataMu.RUnlock()
	if ok {
		return meta, nil
	}

	meta, err := buildMetadata(rt)
	if err != nil {
		return nil, err
	}

	metadataMu.Lock()
	if cached, ok := metadataCache[rt]; ok {
		meta = cached
	} else {
		metadataCache[rt] = meta
	}
	metadataMu.Unlock()
	return meta, nil
}

func buildMetadata(rt reflect.Type) (*ArchetypeMetadata, error) {
	if rt.Kind() != reflect.Struct {
		return nil, errors.Errorf("state type %s is not a struct", rt)
	}

	n := rt.NumField()
	infos := make([]ComponentInfo, 0, n)
	seen := make(map[ComponentType]struct{}, n)
	for i := 0; i < n; i++ {
		field := rt.Field(i)
		ct := componentTypeOf(field.Type)
		if _, dup := seen[ct]; dup {
			return nil, errors.WithStack(DuplicateComponentError{State: rt, Component: ct})
		}
		seen[ct] = struct{}{}

		needsDrop := typeNeedsDrop(field.Type)
		var drop DropFunc
		if needsDrop {
			drop = dropFuncFor(field.Type)
		}
		infos = append(infos, ComponentInfo{
			Type:      ct,
			Offset:    field.Offset,
			Size:      field.Type.Size(),
			NeedsDrop: needsDrop,
			Drop:      drop,
		})
	}

	types := make([]ComponentType, len(infos))
	for i, info := range infos {
		types[i] = info.Type
	}

	meta := &ArchetypeMetadata{
		stateType:      rt,
		stateSize:      rt.Size(),
		stateNeedsDrop: typeNeedsDrop(rt),
		components:     infos,
		layout:         newArchetypeLayout(types),
	}
	if meta.stateNeedsDrop {
		meta.stateDrop = dropFuncFor(rt)
	}
	return meta, nil
}

// typeNeedsDrop reports whether a cell of this type must be finalized on
// removal: either it opts into an OnDrop callback, or it holds references the
// garbage collector traces (which must be zeroed so removal releases them).
func typeNeedsDrop(rt reflect.Type) bool {
	if reflect.PointerTo(rt).Implements(dropperType) {
		return true
	}
	return typeHoldsReferences(rt)
}

func typeHoldsReferences(rt reflect.Type) bool {
	switch rt.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Chan,
		reflect.Slice, reflect.String, reflect.Interface, reflect.Func:
		return true
	case reflect.Array:
		return typeHoldsReferences(rt.Elem())
	case reflect.Struct:
		for i := 0; i < rt.NumField(); i++ {
			if typeHoldsReferences(rt.Field(i).Type) {
				return true
			}
		}
	}
	return false
}

// dropFuncFor builds the finalizer for one cell type: run the user OnDrop
// callback if the type registers one, then zero the backing bytes so no stale
// reference survives past removal.
func dropFuncFor(rt reflect.Type) DropFunc {
	size := rt.Size()
	callsOnDrop := reflect.PointerTo(rt).Implements(dropperType)
	return func(p unsafe.Pointer) {
		if callsOnDrop {
			reflect.NewAt(rt, p).Interface().(Dropper).OnDrop()
		}
		if size > 0 {
			clear(unsafe.Slice((*byte)(p), size))
		}
	}
}
