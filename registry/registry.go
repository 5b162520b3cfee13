// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package registry provides the in-memory entity registry at the core
// of the control plane.  A Registry maps names of one entity kind to
// values and lifecycle status.
//
// The registry is protected by a single mutex, but it is only held
// for bookkeeping; slow work (loading a model, opening a device)
// happens between calls while the entry sits in a transitional
// status.  That status is what serializes writers on a name: a
// second Reserve on a name that is Creating, Active or Deleting
// fails, and a Delete on a name that is Creating or Deleting fails.
// Operations on different names never wait for each other.
//
// Entities are used through leases.  Acquire hands out a lease on an
// Active entry; BeginDelete moves the entry to Deleting so no new
// lease can be taken, cancels the context of every outstanding lease,
// and waits for them all to be released before returning.
package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/diffeo/go-modelserve/serving"
)

// Snapshot is a copy of a registry entry.
type Snapshot[T any] struct {
	Name        string
	Status      serving.EntityStatus
	CreatedAt   time.Time
	LastTouched time.Time

	// Value is the entry's value.  It is the zero value while the
	// entry is still Creating.
	Value T
}

type entry[T any] struct {
	name      string
	status    serving.EntityStatus
	createdAt time.Time
	touched   time.Time
	value     T

	// ctx is cancelled when the entry starts being deleted.
	ctx    context.Context
	cancel context.CancelFunc

	// users counts outstanding leases.
	users sync.WaitGroup
}

func (e *entry[T]) snapshot() Snapshot[T] {
	return Snapshot[T]{
		Name:        e.name,
		Status:      e.status,
		CreatedAt:   e.createdAt,
		LastTouched: e.touched,
		Value:       e.value,
	}
}

// Registry holds all of the entities of one kind.
type Registry[T any] struct {
	kind    serving.EntityKind
	clock   clock.Clock
	lock    sync.Mutex
	entries map[string]*entry[T]
}

// New creates an empty registry for one entity kind.  If clk is nil,
// uses wall-clock time.
func New[T any](kind serving.EntityKind, clk clock.Clock) *Registry[T] {
	if clk == nil {
		clk = clock.New()
	}
	return &Registry[T]{
		kind:    kind,
		clock:   clk,
		entries: make(map[string]*entry[T]),
	}
}

// Kind returns the kind of entity this registry holds.
func (r *Registry[T]) Kind() serving.EntityKind {
	return r.kind
}

// do runs f holding the registry lock.
func (r *Registry[T]) do(f func() error) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	return f()
}

// Reserve claims a name for a new entity, in Creating status.  If the
// name is held by an entity that has not failed, returns
// ErrAlreadyExists.  A failed entity is replaced.  The returned
// context is cancelled when the new entity begins deletion.
//
// The caller must follow up with either Activate or Abandon.
func (r *Registry[T]) Reserve(name string) (ctx context.Context, err error) {
	err = r.do(func() error {
		if e, present := r.entries[name]; present && e.status != serving.StatusFailed {
			return serving.ErrAlreadyExists{Kind: r.kind, Name: name}
		}
		now := r.clock.Now()
		e := &entry[T]{
			name:      name,
			status:    serving.StatusCreating,
			createdAt: now,
			touched:   now,
		}
		e.ctx, e.cancel = context.WithCancel(context.Background())
		r.entries[name] = e
		ctx = e.ctx
		return nil
	})
	return
}

// Activate completes the creation of an entity reserved by Reserve.
func (r *Registry[T]) Activate(name string, value T) error {
	return r.do(func() error {
		e, present := r.entries[name]
		if !present || e.status != serving.StatusCreating {
			return serving.NoSuch(r.kind, name)
		}
		e.value = value
		e.status = serving.StatusActive
		e.touched = r.clock.Now()
		return nil
	})
}

// Abandon removes an entity reserved by Reserve whose creation failed.
func (r *Registry[T]) Abandon(name string) {
	_ = r.do(func() error {
		if e, present := r.entries[name]; present && e.status == serving.StatusCreating {
			e.cancel()
			delete(r.entries, name)
		}
		return nil
	})
}

// Fail marks an Active entity as Failed.  The entity stays visible
// until it is deleted or its name is reused.  ctx is the context
// Reserve returned for the entity; if the name now belongs to a
// different entity, nothing happens.
func (r *Registry[T]) Fail(name string, ctx context.Context) {
	_ = r.do(func() error {
		if e, present := r.entries[name]; present && e.ctx == ctx && e.status == serving.StatusActive {
			e.status = serving.StatusFailed
			e.touched = r.clock.Now()
		}
		return nil
	})
}

// Get returns a snapshot of an entity, in any status.
func (r *Registry[T]) Get(name string) (snap Snapshot[T], err error) {
	err = r.do(func() error {
		e, present := r.entries[name]
		if !present {
			return serving.NoSuch(r.kind, name)
		}
		snap = e.snapshot()
		return nil
	})
	return
}

// List returns snapshots of all entities, sorted by name.
func (r *Registry[T]) List() []Snapshot[T] {
	var result []Snapshot[T]
	_ = r.do(func() error {
		result = make([]Snapshot[T], 0, len(r.entries))
		for _, e := range r.entries {
			result = append(result, e.snapshot())
		}
		return nil
	})
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Counts returns the number of entities in each status.
func (r *Registry[T]) Counts() map[serving.EntityStatus]int {
	result := make(map[serving.EntityStatus]int)
	_ = r.do(func() error {
		for _, e := range r.entries {
			result[e.status]++
		}
		return nil
	})
	return result
}

// Acquire takes a lease on an Active entity.  If the entity does not
// exist, returns the kind's not-found error; if it is being created
// or deleted, returns ErrBusy.  The lease must be released.
func (r *Registry[T]) Acquire(name string) (lease *Lease[T], err error) {
	err = r.do(func() error {
		e, present := r.entries[name]
		if !present {
			return serving.NoSuch(r.kind, name)
		}
		if e.status != serving.StatusActive {
			return serving.ErrBusy{Kind: r.kind, Name: name, Status: e.status}
		}
		e.users.Add(1)
		e.touched = r.clock.Now()
		lease = &Lease[T]{
			kind:  r.kind,
			name:  name,
			Value: e.value,
			ctx:   e.ctx,
			done:  e.users.Done,
		}
		return nil
	})
	return
}

// BeginDelete starts deleting an entity.  It moves the entity to
// Deleting, cancels every outstanding lease and waits for them to be
// released, then returns the entity's value.  The caller tears the
// value down and then calls Remove.
//
// Deleting an entity that does not exist returns the kind's not-found
// error; deleting one that is being created or is already being
// deleted returns ErrBusy.
func (r *Registry[T]) BeginDelete(name string) (value T, err error) {
	var e *entry[T]
	err = r.do(func() error {
		var present bool
		e, present = r.entries[name]
		if !present {
			return serving.NoSuch(r.kind, name)
		}
		if e.status == serving.StatusCreating || e.status == serving.StatusDeleting {
			return serving.ErrBusy{Kind: r.kind, Name: name, Status: e.status}
		}
		e.status = serving.StatusDeleting
		e.touched = r.clock.Now()
		e.cancel()
		return nil
	})
	if err != nil {
		return
	}
	// No lease can be added once the status is Deleting, so this
	// wait is final.
	e.users.Wait()
	value = e.value
	return
}

// Remove finishes deleting an entity started by BeginDelete.
func (r *Registry[T]) Remove(name string) {
	_ = r.do(func() error {
		if e, present := r.entries[name]; present && e.status == serving.StatusDeleting {
			delete(r.entries, name)
		}
		return nil
	})
}
