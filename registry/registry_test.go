// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package registry_test

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diffeo/go-modelserve/registry"
	"github.com/diffeo/go-modelserve/serving"
)

func newRegistry() (*registry.Registry[string], *clock.Mock) {
	clk := clock.NewMock()
	clk.Add(time.Hour)
	return registry.New[string](serving.ResourceKind, clk), clk
}

func create(t *testing.T, r *registry.Registry[string], name, value string) context.Context {
	ctx, err := r.Reserve(name)
	require.NoError(t, err)
	require.NoError(t, r.Activate(name, value))
	return ctx
}

func TestReserveActivate(t *testing.T) {
	r, clk := newRegistry()
	start := clk.Now()

	_, err := r.Reserve("cam")
	require.NoError(t, err)

	snap, err := r.Get("cam")
	if assert.NoError(t, err) {
		assert.Equal(t, serving.StatusCreating, snap.Status)
		assert.Equal(t, start, snap.CreatedAt)
		assert.Equal(t, "", snap.Value)
	}

	clk.Add(time.Second)
	require.NoError(t, r.Activate("cam", "/dev/video0"))

	snap, err = r.Get("cam")
	if assert.NoError(t, err) {
		assert.Equal(t, serving.StatusActive, snap.Status)
		assert.Equal(t, start, snap.CreatedAt)
		assert.Equal(t, start.Add(time.Second), snap.LastTouched)
		assert.Equal(t, "/dev/video0", snap.Value)
	}
}

func TestReserveConflict(t *testing.T) {
	r, _ := newRegistry()

	_, err := r.Reserve("cam")
	require.NoError(t, err)

	// Creating
	_, err = r.Reserve("cam")
	assert.Equal(t, serving.ErrAlreadyExists{Kind: serving.ResourceKind, Name: "cam"}, err)

	// Active
	require.NoError(t, r.Activate("cam", "x"))
	_, err = r.Reserve("cam")
	assert.Equal(t, serving.Conflict, serving.OutcomeOf(err))
}

func TestReserveReplacesFailed(t *testing.T) {
	r, _ := newRegistry()
	old := create(t, r, "cam", "old")
	r.Fail("cam", old)

	snap, err := r.Get("cam")
	require.NoError(t, err)
	assert.Equal(t, serving.StatusFailed, snap.Status)

	_, err = r.Reserve("cam")
	require.NoError(t, err)
	require.NoError(t, r.Activate("cam", "new"))

	snap, err = r.Get("cam")
	if assert.NoError(t, err) {
		assert.Equal(t, serving.StatusActive, snap.Status)
		assert.Equal(t, "new", snap.Value)
	}
}

func TestFailOnlyOwnEntry(t *testing.T) {
	r, _ := newRegistry()
	old := create(t, r, "cam", "old")
	_, err := r.BeginDelete("cam")
	require.NoError(t, err)
	r.Remove("cam")
	create(t, r, "cam", "new")

	// The deleted entity's owner cannot fail its successor
	r.Fail("cam", old)
	snap, err := r.Get("cam")
	if assert.NoError(t, err) {
		assert.Equal(t, serving.StatusActive, snap.Status)
		assert.Equal(t, "new", snap.Value)
	}
}

func TestAbandon(t *testing.T) {
	r, _ := newRegistry()
	ctx, err := r.Reserve("cam")
	require.NoError(t, err)

	r.Abandon("cam")
	assert.Error(t, ctx.Err())

	_, err = r.Get("cam")
	assert.Equal(t, serving.ErrNoSuchResource{Name: "cam"}, err)

	_, err = r.Reserve("cam")
	assert.NoError(t, err)
}

func TestAcquireMissing(t *testing.T) {
	r, _ := newRegistry()
	_, err := r.Acquire("cam")
	assert.Equal(t, serving.ErrNoSuchResource{Name: "cam"}, err)
}

func TestAcquireCreating(t *testing.T) {
	r, _ := newRegistry()
	_, err := r.Reserve("cam")
	require.NoError(t, err)

	_, err = r.Acquire("cam")
	assert.Equal(t, serving.ErrBusy{
		Kind:   serving.ResourceKind,
		Name:   "cam",
		Status: serving.StatusCreating,
	}, err)
}

func TestAcquireTouches(t *testing.T) {
	r, clk := newRegistry()
	create(t, r, "cam", "x")

	clk.Add(time.Minute)
	lease, err := r.Acquire("cam")
	require.NoError(t, err)
	defer lease.Release()

	assert.Equal(t, "cam", lease.Name())
	assert.Equal(t, serving.ResourceKind, lease.Kind())
	assert.Equal(t, "x", lease.Value)
	assert.False(t, lease.Revoked())
	assert.NoError(t, lease.Err())

	snap, err := r.Get("cam")
	if assert.NoError(t, err) {
		assert.Equal(t, clk.Now(), snap.LastTouched)
	}
}

func TestListSorted(t *testing.T) {
	r, _ := newRegistry()
	create(t, r, "b", "2")
	c := create(t, r, "c", "3")
	create(t, r, "a", "1")
	r.Fail("c", c)

	snaps := r.List()
	if assert.Len(t, snaps, 3) {
		assert.Equal(t, "a", snaps[0].Name)
		assert.Equal(t, "b", snaps[1].Name)
		assert.Equal(t, "c", snaps[2].Name)
	}

	assert.Equal(t, map[serving.EntityStatus]int{
		serving.StatusActive: 2,
		serving.StatusFailed: 1,
	}, r.Counts())
}

func TestDeleteMissing(t *testing.T) {
	r, _ := newRegistry()
	_, err := r.BeginDelete("cam")
	assert.Equal(t, serving.ErrNoSuchResource{Name: "cam"}, err)
}

func TestDeleteCreating(t *testing.T) {
	r, _ := newRegistry()
	_, err := r.Reserve("cam")
	require.NoError(t, err)

	_, err = r.BeginDelete("cam")
	assert.Equal(t, serving.Conflict, serving.OutcomeOf(err))
}

func TestDeleteIdle(t *testing.T) {
	r, _ := newRegistry()
	create(t, r, "cam", "x")

	value, err := r.BeginDelete("cam")
	require.NoError(t, err)
	assert.Equal(t, "x", value)

	// Still visible, but not usable, until removed
	snap, err := r.Get("cam")
	if assert.NoError(t, err) {
		assert.Equal(t, serving.StatusDeleting, snap.Status)
	}
	_, err = r.Acquire("cam")
	assert.Equal(t, serving.Conflict, serving.OutcomeOf(err))
	_, err = r.BeginDelete("cam")
	assert.Equal(t, serving.Conflict, serving.OutcomeOf(err))

	r.Remove("cam")
	_, err = r.Get("cam")
	assert.Equal(t, serving.NotFound, serving.OutcomeOf(err))
}

func TestDeleteFailed(t *testing.T) {
	r, _ := newRegistry()
	ctx := create(t, r, "cam", "x")
	r.Fail("cam", ctx)

	_, err := r.BeginDelete("cam")
	require.NoError(t, err)
	r.Remove("cam")
	assert.Empty(t, r.List())
}

func TestDeleteWaitsForLeases(t *testing.T) {
	r, _ := newRegistry()
	create(t, r, "cam", "x")

	lease, err := r.Acquire("cam")
	require.NoError(t, err)

	deleted := make(chan struct{})
	go func() {
		_, err := r.BeginDelete("cam")
		assert.NoError(t, err)
		close(deleted)
	}()

	// The lease holder sees the revocation...
	select {
	case <-lease.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("lease was not revoked")
	}
	assert.Equal(t, serving.ErrGone{Kind: serving.ResourceKind, Name: "cam"}, lease.Err())

	// ...and the delete does not finish until it lets go
	select {
	case <-deleted:
		t.Fatal("delete finished with a lease outstanding")
	case <-time.After(10 * time.Millisecond):
	}

	lease.Release()
	lease.Release()
	select {
	case <-deleted:
	case <-time.After(5 * time.Second):
		t.Fatal("delete did not finish")
	}
}

func TestDifferentNamesIndependent(t *testing.T) {
	r, _ := newRegistry()
	create(t, r, "a", "1")
	create(t, r, "b", "2")

	lease, err := r.Acquire("a")
	require.NoError(t, err)
	defer lease.Release()

	// A held lease on "a" does not hold up deleting "b"
	_, err = r.BeginDelete("b")
	require.NoError(t, err)
	r.Remove("b")
	assert.False(t, lease.Revoked())
}

func TestBind(t *testing.T) {
	r, _ := newRegistry()
	create(t, r, "a", "1")
	create(t, r, "b", "2")

	la, err := r.Acquire("a")
	require.NoError(t, err)
	lb, err := r.Acquire("b")
	require.NoError(t, err)

	ctx, cancel, cause := registry.Bind(context.Background(), la, lb)
	defer cancel()
	assert.NoError(t, ctx.Err())
	assert.NoError(t, cause())

	go func() {
		_, _ = r.BeginDelete("b")
	}()

	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("bound context was not cancelled")
	}
	assert.Equal(t, serving.ErrGone{Kind: serving.ResourceKind, Name: "b"}, cause())

	la.Release()
	lb.Release()
}

func TestBindParent(t *testing.T) {
	r, _ := newRegistry()
	create(t, r, "a", "1")
	la, err := r.Acquire("a")
	require.NoError(t, err)
	defer la.Release()

	parent, cancelParent := context.WithCancel(context.Background())
	ctx, cancel, cause := registry.Bind(parent, la)
	defer cancel()

	cancelParent()
	<-ctx.Done()
	assert.NoError(t, cause())
	assert.False(t, la.Revoked())
}
