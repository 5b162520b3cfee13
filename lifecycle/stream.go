// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package lifecycle

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/diffeo/go-modelserve/registry"
	"github.com/diffeo/go-modelserve/serving"
)

// streamEnvelope holds the parts of a stream request the controller
// routes on.
type streamEnvelope struct {
	Resource string                 `mapstructure:"resource"`
	Predict  map[string]interface{} `mapstructure:"predict"`
}

// stream is the registry value for a stream.
type stream struct {
	resource string
	service  string
	done     chan struct{}

	lock    sync.Mutex
	running bool
	frames  int
	last    serving.Payload
	err     error

	// orphaned is set when a delete gave up waiting for the stream
	// to stop; the runner then removes the entry itself.
	orphaned bool
}

func (s *stream) progress(p serving.Payload) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.frames++
	s.last = p
}

func streamInfo(snap registry.Snapshot[*stream]) *serving.StreamInfo {
	info := &serving.StreamInfo{
		Name:      snap.Name,
		Status:    snap.Status,
		CreatedAt: snap.CreatedAt,
	}
	if s := snap.Value; s != nil {
		s.lock.Lock()
		defer s.lock.Unlock()
		info.Resource = s.resource
		info.Service = s.service
		info.Running = s.running
		info.Frames = s.frames
		info.Last = s.last
		if s.err != nil {
			info.Error = s.err.Error()
		}
	}
	return info
}

// CreateStream starts a streaming prediction.  The payload must name
// a resource and carry a "predict" object naming a service:
//
//     {"resource": "cam0", "predict": {"service": "detect", ...}}
//
// The stream holds both the service and the resource for as long as
// it runs; deleting either one stops the stream.
func (c *Controller) CreateStream(ctx context.Context, name string, payload serving.Payload) (*serving.StreamInfo, error) {
	if err := requireName(name); err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, serving.ErrMissingBody
	}
	var env streamEnvelope
	if err := payload.Decode(&env); err != nil {
		return nil, err
	}
	if env.Resource == "" {
		return nil, serving.ErrBadParameter{Param: "resource", Reason: "resource is required"}
	}
	service, _ := env.Predict["service"].(string)
	if service == "" {
		return nil, serving.ErrBadParameter{Param: "predict", Reason: "predict.service is required"}
	}

	entryCtx, err := c.streams.Reserve(name)
	if err != nil {
		return nil, err
	}
	svc, err := c.services.Acquire(service)
	if err != nil {
		c.streams.Abandon(name)
		return nil, err
	}
	res, err := c.resources.Acquire(env.Resource)
	if err != nil {
		svc.Release()
		c.streams.Abandon(name)
		return nil, err
	}

	s := &stream{
		resource: env.Resource,
		service:  service,
		done:     make(chan struct{}),
		running:  true,
	}
	err = c.streams.Activate(name, s)
	if err != nil {
		res.Release()
		svc.Release()
		return nil, err
	}

	runCtx, cancel, cause := registry.Bind(entryCtx, svc, res)
	go c.runStream(runCtx, entryCtx, name, s, serving.StreamRun{
		Name:     name,
		Model:    svc.Value.model,
		Resource: res.Value,
		Payload:  payload,
		Progress: s.progress,
	}, cause, func() {
		cancel()
		res.Release()
		svc.Release()
	})

	c.logger.WithFields(logrus.Fields{
		"stream":   name,
		"resource": env.Resource,
		"service":  service,
	}).Info("stream started")
	return c.Stream(ctx, name)
}

// runStream runs a stream to completion.  entryCtx is the registry
// context of this stream's entry and identifies it; cause reports the
// revocation that stopped the stream, if any; release gives up
// everything the stream holds.  The stream's final state is recorded
// before release, so whoever revoked the stream sees it stopped.
func (c *Controller) runStream(ctx, entryCtx context.Context, name string, s *stream, run serving.StreamRun, cause func() error, release func()) {
	defer close(s.done)
	defer release()

	err := c.engine.RunStream(ctx, run)
	deleting := entryCtx.Err() != nil
	if revoked := cause(); revoked != nil {
		err = revoked
	} else if deleting && serving.IsCancellation(err) {
		err = nil
	}

	s.lock.Lock()
	s.running = false
	s.err = err
	orphaned := s.orphaned
	s.lock.Unlock()

	log := c.logger.WithField("stream", name)
	if err != nil {
		c.streams.Fail(name, entryCtx)
		log.WithField("err", err).Warn("stream failed")
	} else {
		log.Info("stream stopped")
	}
	if orphaned {
		c.streams.Remove(name)
		log.Info("stream removed after delete")
	}
}

// Stream returns information about a stream.
func (c *Controller) Stream(ctx context.Context, name string) (*serving.StreamInfo, error) {
	if err := requireName(name); err != nil {
		return nil, err
	}
	snap, err := c.streams.Get(name)
	if err != nil {
		return nil, err
	}
	return streamInfo(snap), nil
}

// DeleteStream stops a stream and removes it.  If the stream had
// already died with an error, it is still removed, and this returns
// ErrStreamFailed.  If ctx ends before the stream stops, this returns
// ctx's error; the name stays taken, in Deleting status, until the
// stream has actually stopped.
func (c *Controller) DeleteStream(ctx context.Context, name string) error {
	if err := requireName(name); err != nil {
		return err
	}
	s, err := c.streams.BeginDelete(name)
	if err != nil {
		return err
	}

	select {
	case <-s.done:
	case <-ctx.Done():
		s.lock.Lock()
		if s.running {
			s.orphaned = true
			s.lock.Unlock()
			return ctx.Err()
		}
		s.lock.Unlock()
	}
	c.streams.Remove(name)

	s.lock.Lock()
	defer s.lock.Unlock()
	if s.err != nil {
		return serving.ErrStreamFailed{Name: name, Message: s.err.Error()}
	}
	return nil
}
