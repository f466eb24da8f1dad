package silo

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

type NotFoundError struct {
	Entity    EntityID
	Component ComponentType
}

func (e NotFoundError) Error() string {
	switch {
	case e.Component.rt != nil && e.Entity.Valid():
		return fmt.Sprintf("component %s not found for entity %v", e.Component, e.Entity)
	case e.Component.rt != nil:
		return fmt.Sprintf("component %s not found", e.Component)
	default:
		return fmt.Sprintf("entity %v not found", e.Entity)
	}
}

type CapacityExceededError struct {
	Max uint32
}

func (e CapacityExceededError) Error() string {
	return fmt.Sprintf("out of slots: a maximum number of entities (%d) is reached", e.Max)
}

type WrongStateTypeError struct {
	Want reflect.Type
	Got  reflect.Type
}

func (e WrongStateTypeError) Error() string {
	return fmt.Sprintf("archetype holds state type %s, not %s", e.Got, e.Want)
}

type DuplicateComponentError struct {
	State     reflect.Type
	Component ComponentType
}

func (e DuplicateComponentError) Error() string {
	return fmt.Sprintf("state type %s declares component %s more than once", e.State, e.Component)
}

type ComponentNotDeclaredError struct {
	Component ComponentType
}

func (e ComponentNotDeclaredError) Error() string {
	return fmt.Sprintf("component %s is not declared in the system access set", e.Component)
}

type ImmutableDeclaredError struct {
	Component ComponentType
}

func (e ImmutableDeclaredError) Error() string {
	return fmt.Sprintf("component %s is declared read-only", e.Component)
}

type AlreadyBorrowedError struct {
	Component ComponentType
}

func (e AlreadyBorrowedError) Error() string {
	return fmt.Sprintf("component %s is already borrowed", e.Component)
}

type LockedStoreError struct{}

func (e LockedStoreError) Error() string {
	return "store is currently locked"
}

// wrongStateType builds a stack-carrying WrongStateType error; the mismatch
// is a programming error, so the call site matters.
func wrongStateType(want, got reflect.Type) error {
	return errors.WithStack(WrongStateTypeError{Want: want, Got: got})
}
