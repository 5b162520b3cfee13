// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package lifecycle

import (
	"context"

	"github.com/diffeo/go-modelserve/jobs"
	"github.com/diffeo/go-modelserve/registry"
	"github.com/diffeo/go-modelserve/serving"
)

// trainEnvelope holds the parts of a training request the controller
// routes on.
type trainEnvelope struct {
	Service string `mapstructure:"service"`
	Async   *bool  `mapstructure:"async"`
}

// Train starts a training job.  An asynchronous job (the default)
// keeps running after this returns, and is cancelled if its service
// is deleted.  A blocking job runs within ctx.
func (c *Controller) Train(ctx context.Context, payload serving.Payload) (*serving.JobInfo, error) {
	if payload == nil {
		return nil, serving.ErrMissingBody
	}
	var env trainEnvelope
	if err := payload.Decode(&env); err != nil {
		return nil, err
	}
	if env.Service == "" {
		return nil, serving.ErrBadParameter{Param: "service", Reason: "service is required"}
	}
	mode := serving.Async
	parent := context.Background()
	if env.Async != nil && !*env.Async {
		mode = serving.Blocking
		parent = ctx
	}

	svc, err := c.services.Acquire(env.Service)
	if err != nil {
		return nil, err
	}
	jobCtx, cancel, cause := registry.Bind(parent, svc)
	model := svc.Value.model

	info, err := c.jobs.Start(jobCtx, jobs.Spec{
		Service: env.Service,
		Mode:    mode,
		Run: func(ctx context.Context, progress func(serving.Payload)) (serving.Payload, error) {
			return c.engine.Train(ctx, model, payload, progress)
		},
		Done: func() {
			cancel()
			svc.Release()
		},
	})
	if err != nil {
		if gone := cause(); gone != nil {
			return info, gone
		}
		return info, err
	}
	return info, nil
}

func requireService(q serving.JobQuery) error {
	if q.Service == "" {
		return serving.ErrBadParameter{Param: "service", Reason: "service is required"}
	}
	return nil
}

// TrainStatus returns the running or last finished training job for
// a service, or nil if there is none.
func (c *Controller) TrainStatus(ctx context.Context, q serving.JobQuery) (*serving.JobInfo, error) {
	if err := requireService(q); err != nil {
		return nil, err
	}
	return c.jobs.Status(q), nil
}

// DeleteTrain cancels the training job for a service and forgets it.
// Returns the job's final state, or nil if there was no job.
func (c *Controller) DeleteTrain(ctx context.Context, q serving.JobQuery) (*serving.JobInfo, error) {
	if err := requireService(q); err != nil {
		return nil, err
	}
	return c.jobs.Cancel(ctx, q)
}
