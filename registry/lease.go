// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package registry

import (
	"context"
	"sync"

	"github.com/diffeo/go-modelserve/serving"
)

// Lease is a claim on an Active registry entry.  While a lease is
// outstanding the entry cannot finish being deleted.
type Lease[T any] struct {
	kind serving.EntityKind
	name string
	ctx  context.Context
	done func()
	once sync.Once

	// Value is the entry's value at the time the lease was taken.
	Value T
}

// Kind returns the kind of the leased entity.
func (l *Lease[T]) Kind() serving.EntityKind {
	return l.kind
}

// Name returns the name of the leased entity.
func (l *Lease[T]) Name() string {
	return l.name
}

// Done returns a channel that is closed when the leased entity
// begins deletion.  Holders of long-lived leases should release them
// promptly once this happens.
func (l *Lease[T]) Done() <-chan struct{} {
	return l.ctx.Done()
}

// Revoked reports whether the leased entity has begun deletion.
func (l *Lease[T]) Revoked() bool {
	return l.ctx.Err() != nil
}

// Err returns ErrGone if the leased entity has begun deletion, or
// nil otherwise.
func (l *Lease[T]) Err() error {
	if l.Revoked() {
		return serving.ErrGone{Kind: l.kind, Name: l.name}
	}
	return nil
}

// Release gives up the lease.  It is safe to call more than once.
func (l *Lease[T]) Release() {
	l.once.Do(l.done)
}

// Revocable is the part of a lease that Bind watches.
type Revocable interface {
	Done() <-chan struct{}
	Err() error
}

// Bind returns a context that is cancelled when parent is done or
// when any of the leases is revoked.  The returned function reports
// which lease, if any, caused the cancellation; it returns nil if
// the context was cancelled through parent or cancel.  cancel must
// be called to release the goroutine that watches the leases.
func Bind(parent context.Context, leases ...Revocable) (ctx context.Context, cancel context.CancelFunc, cause func() error) {
	ctx, cancelCtx := context.WithCancel(parent)
	var (
		lock    sync.Mutex
		revoked error
	)
	stop := make(chan struct{})
	var stopOnce sync.Once
	cancel = func() {
		stopOnce.Do(func() { close(stop) })
		cancelCtx()
	}
	cause = func() error {
		lock.Lock()
		defer lock.Unlock()
		return revoked
	}
	for _, lease := range leases {
		go func(lease Revocable) {
			select {
			case <-lease.Done():
				lock.Lock()
				if revoked == nil {
					revoked = lease.Err()
				}
				lock.Unlock()
				cancelCtx()
			case <-stop:
			case <-ctx.Done():
			}
		}(lease)
	}
	return
}
