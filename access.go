package silo

import (
	"github.com/pkg/errors"
)

// AccessMode declares how a system touches one component type
type AccessMode int

const (
	Read AccessMode = iota
	Write
)

func (m AccessMode) String() string {
	if m == Write {
		return "write"
	}
	return "read"
}

// Access is the handle passed to a running system. Views over components are
// acquired through it; every acquisition is checked against the system's
// declared access set and against views still outstanding in this handler.
type Access struct {
	store    *EntityStore
	declared map[ComponentType]AccessMode
	borrows  map[ComponentType]*borrowState
	released bool
}

type borrowState struct {
	readers int
	writer  bool
}

func newAccess(store *EntityStore, declared map[ComponentType]AccessMode) *Access {
	return &Access{
		store:    store,
		declared: declared,
		borrows:  make(map[ComponentType]*borrowState),
	}
}

// Store returns the store the access is bound to
func (a *Access) Store() *EntityStore {
	return a.store
}

// Declared returns the declared mode for the component type, if any
func (a *Access) Declared(ct ComponentType) (AccessMode, bool) {
	mode, ok := a.declared[ct]
	return mode, ok
}

func (a *Access) borrowStateFor(ct ComponentType) *borrowState {
	b, ok := a.borrows[ct]
	if !ok {
		b = &borrowState{}
		a.borrows[ct] = b
	}
	return b
}

// checkDeclared verifies the component is in the access set and, when
// mutable access is requested, that it is declared Write
func (a *Access) checkDeclared(ct ComponentType, mutable bool) error {
	mode, ok := a.declared[ct]
	if !ok {
		return errors.WithStack(ComponentNotDeclaredError{Component: ct})
	}
	if mutable && mode != Write {
		return errors.WithStack(ImmutableDeclaredError{Component: ct})
	}
	return nil
}

// borrowShared records a read borrow; fails while a write view is live
func (a *Access) borrowShared(ct ComponentType) error {
	b := a.borrowStateFor(ct)
	if b.writer {
		return errors.WithStack(AlreadyBorrowedError{Component: ct})
	}
	b.readers++
	return nil
}

// borrowExclusive records a write borrow; fails while any view is live
func (a *Access) borrowExclusive(ct ComponentType) error {
	b := a.borrowStateFor(ct)
	if b.writer || b.readers > 0 {
		return errors.WithStack(AlreadyBorrowedError{Component: ct})
	}
	b.writer = true
	return nil
}

func (a *Access) unborrowShared(ct ComponentType) {
	if b, ok := a.borrows[ct]; ok && b.readers > 0 {
		b.readers--
	}
}

func (a *Access) unborrowExclusive(ct ComponentType) {
	if b, ok := a.borrows[ct]; ok {
		b.writer = false
	}
}

// release marks the access released once its handler returns. View
// acquisition does not consult the flag.
func (a *Access) release() {
	a.released = true
}
