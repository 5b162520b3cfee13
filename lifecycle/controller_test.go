// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package lifecycle_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/diffeo/go-modelserve/lifecycle"
	"github.com/diffeo/go-modelserve/memory"
	"github.com/diffeo/go-modelserve/serving"
	"github.com/diffeo/go-modelserve/serving/servingtest"
)

// Suite runs the generic platform tests against the controller.
type Suite struct {
	servingtest.Suite
	Controller *lifecycle.Controller
}

// SetupTest creates a new controller for each test.
func (s *Suite) SetupTest() {
	s.Suite.SetupTest()
	logger, _ := test.NewNullLogger()
	s.Controller = lifecycle.New(lifecycle.Config{
		Engine: s.Engine,
		Clock:  s.Clock,
		Logger: logger,
	})
	s.Platform = s.Controller
}

// TearDownTest stops anything the test left running.
func (s *Suite) TearDownTest() {
	s.Controller.Shutdown(context.Background())
}

// TestPlatform runs the generic platform tests.
func TestPlatform(t *testing.T) {
	suite.Run(t, &Suite{})
}

func newController(store serving.Store) (*lifecycle.Controller, *servingtest.Engine, *test.Hook) {
	engine := servingtest.NewEngine()
	logger, hook := test.NewNullLogger()
	c := lifecycle.New(lifecycle.Config{
		Engine:  engine,
		Store:   store,
		Logger:  logger,
		Version: "test",
	})
	return c, engine, hook
}

func TestServicesPersisted(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	c, _, _ := newController(store)

	_, err := c.CreateService(ctx, "a", serving.Payload{"mllib": "fake", "n": "1"})
	require.NoError(t, err)
	_, err = c.CreateService(ctx, "b", serving.Payload{"mllib": "fake", "n": "2"})
	require.NoError(t, err)
	_, err = c.CreateService(ctx, "c", serving.Payload{"fail": "nope"})
	require.Error(t, err)

	defs, err := store.Services(ctx)
	require.NoError(t, err)
	names := []string{}
	for _, def := range defs {
		names = append(names, def.Name)
	}
	assert.ElementsMatch(t, []string{"a", "b"}, names)

	require.NoError(t, c.DeleteService(ctx, "a", serving.DeleteOptions{}))
	defs, err = store.Services(ctx)
	require.NoError(t, err)
	if assert.Len(t, defs, 1) {
		assert.Equal(t, "b", defs[0].Name)
		assert.Equal(t, "2", defs[0].Payload["n"])
	}
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.PutService(ctx, serving.ServiceDefinition{
		Name:    "good",
		Payload: serving.Payload{"mllib": "fake", "labels": []interface{}{"x"}},
	}))
	require.NoError(t, store.PutService(ctx, serving.ServiceDefinition{
		Name:    "broken",
		Payload: serving.Payload{"fail": "model file missing"},
	}))

	c, _, hook := newController(store)
	count, err := c.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	info, err := c.Service(ctx, "good", serving.StatusOptions{Labels: true})
	if assert.NoError(t, err) && assert.NotNil(t, info) {
		assert.Equal(t, []string{"x"}, info.Model.Labels)
	}
	info, err = c.Service(ctx, "broken", serving.StatusOptions{})
	assert.NoError(t, err)
	assert.Nil(t, info)

	found := false
	for _, entry := range hook.AllEntries() {
		if entry.Data["service"] == "broken" && entry.Message == "could not restore service" {
			found = true
		}
	}
	assert.True(t, found, "no log entry for the broken service")
}

// failingStore is a store whose writes fail.
type failingStore struct {
	serving.Store
}

func (failingStore) PutService(ctx context.Context, def serving.ServiceDefinition) error {
	return errors.New("disk full")
}

func (failingStore) DeleteService(ctx context.Context, name string) error {
	return errors.New("disk gone")
}

func TestCreateServiceStoreFailure(t *testing.T) {
	ctx := context.Background()
	c, engine, hook := newController(failingStore{memory.New()})

	_, err := c.CreateService(ctx, "a", serving.Payload{"mllib": "fake"})
	assert.EqualError(t, err, "disk full")
	assert.Equal(t, []string{"a"}, engine.Released())

	info, err := c.Service(ctx, "a", serving.StatusOptions{})
	assert.NoError(t, err)
	assert.Nil(t, info)

	var rollback *logrus.Entry
	for _, entry := range hook.AllEntries() {
		if _, present := entry.Data["rollback_err"]; present {
			rollback = entry
		}
	}
	if assert.NotNil(t, rollback) {
		assert.Equal(t, logrus.ErrorLevel, rollback.Level)
		assert.EqualError(t, rollback.Data["err"].(error), "disk full")
		assert.EqualError(t, rollback.Data["rollback_err"].(error), "disk gone")
		assert.Equal(t, "a", rollback.Data["service"])
	}
}

func TestInfoVersion(t *testing.T) {
	c, _, _ := newController(nil)
	info, err := c.Info(context.Background(), serving.InfoOptions{})
	if assert.NoError(t, err) {
		assert.Equal(t, "test", info.Version)
		assert.NotEmpty(t, info.Instance)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	c, engine, _ := newController(nil)

	_, err := c.CreateService(ctx, "a", serving.Payload{})
	require.NoError(t, err)
	_, err = c.CreateResource(ctx, "cam", serving.Payload{})
	require.NoError(t, err)
	_, err = c.Train(ctx, serving.Payload{"service": "a", "async": false})
	require.NoError(t, err)
	_, err = c.Train(ctx, serving.Payload{"service": "a", "block": true})
	require.NoError(t, err)

	stats := c.Stats()
	assert.Equal(t, 1, stats.Entities[serving.ServiceKind][serving.StatusActive])
	assert.Equal(t, 1, stats.Entities[serving.ResourceKind][serving.StatusActive])
	assert.Empty(t, stats.Entities[serving.StreamKind])
	assert.Equal(t, 1, stats.Jobs[serving.JobRunning])
	assert.Empty(t, stats.Chains)

	engine.Finish("a")
	c.Shutdown(ctx)
}

func TestBlockingTrainFollowsRequest(t *testing.T) {
	c, _, _ := newController(nil)
	_, err := c.CreateService(context.Background(), "a", serving.Payload{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = c.Train(ctx, serving.Payload{
		"service": "a",
		"async":   false,
		"block":   true,
	})
	assert.Error(t, err)

	info, err := c.TrainStatus(context.Background(), serving.JobQuery{Service: "a"})
	if assert.NoError(t, err) && assert.NotNil(t, info) {
		assert.Equal(t, serving.JobCancelled, info.State)
	}
}

func TestShutdownStopsStreams(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newController(nil)
	_, err := c.CreateService(ctx, "a", serving.Payload{})
	require.NoError(t, err)
	_, err = c.CreateResource(ctx, "cam", serving.Payload{})
	require.NoError(t, err)
	_, err = c.CreateStream(ctx, "out", serving.Payload{
		"resource": "cam",
		"predict":  map[string]interface{}{"service": "a"},
	})
	require.NoError(t, err)

	c.Shutdown(ctx)
	_, err = c.Stream(ctx, "out")
	assert.Equal(t, serving.ErrNoSuchStream{Name: "out"}, err)

	// With the stream gone the resource closes immediately
	assert.NoError(t, c.DeleteResource(ctx, "cam"))
}

// slowStopEngine is an engine whose streams take until stop is
// closed to finish stopping.
type slowStopEngine struct {
	*servingtest.Engine
	stop chan struct{}
}

func (e slowStopEngine) RunStream(ctx context.Context, run serving.StreamRun) error {
	err := e.Engine.RunStream(ctx, run)
	<-e.stop
	return err
}

func TestDeleteStreamGivesUp(t *testing.T) {
	ctx := context.Background()
	engine := slowStopEngine{Engine: servingtest.NewEngine(), stop: make(chan struct{})}
	logger, _ := test.NewNullLogger()
	c := lifecycle.New(lifecycle.Config{Engine: engine, Logger: logger})
	defer c.Shutdown(ctx)

	_, err := c.CreateService(ctx, "a", serving.Payload{})
	require.NoError(t, err)
	_, err = c.CreateResource(ctx, "cam", serving.Payload{})
	require.NoError(t, err)
	payload := serving.Payload{
		"resource": "cam",
		"predict":  map[string]interface{}{"service": "a"},
	}
	_, err = c.CreateStream(ctx, "out", payload)
	require.NoError(t, err)

	// The caller stops waiting before the stream stops
	shortCtx, cancel := context.WithCancel(ctx)
	cancel()
	assert.Equal(t, context.Canceled, c.DeleteStream(shortCtx, "out"))

	// The name stays taken until the stream has stopped
	info, err := c.Stream(ctx, "out")
	if assert.NoError(t, err) {
		assert.Equal(t, serving.StatusDeleting, info.Status)
	}
	_, err = c.CreateStream(ctx, "out", payload)
	assert.Equal(t, serving.Conflict, serving.OutcomeOf(err))

	close(engine.stop)
	deadline := time.After(5 * time.Second)
	for {
		_, err = c.Stream(ctx, "out")
		if serving.OutcomeOf(err) == serving.NotFound {
			break
		}
		select {
		case <-deadline:
			t.Fatal("stream was never removed")
		case <-time.After(time.Millisecond):
		}
	}

	// A new stream with the same name is left alone
	_, err = c.CreateStream(ctx, "out", payload)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	info, err = c.Stream(ctx, "out")
	if assert.NoError(t, err) {
		assert.Equal(t, serving.StatusActive, info.Status)
		assert.True(t, info.Running)
		assert.Empty(t, info.Error)
	}
	assert.NoError(t, c.DeleteStream(ctx, "out"))
}

func TestEmptyNames(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newController(nil)

	_, err := c.CreateService(ctx, "", serving.Payload{})
	assert.Equal(t, serving.InvalidParameter, serving.OutcomeOf(err))
	_, err = c.Resource(ctx, "")
	assert.Equal(t, serving.InvalidParameter, serving.OutcomeOf(err))
	_, err = c.Chain(ctx, "", serving.Payload{})
	assert.Equal(t, serving.InvalidParameter, serving.OutcomeOf(err))
}
