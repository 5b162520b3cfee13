// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package lifecycle

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/diffeo/go-modelserve/registry"
	"github.com/diffeo/go-modelserve/serving"
)

// serviceInfo builds the public description of a service.
func (c *Controller) serviceInfo(snap registry.Snapshot[*service], opts serving.StatusOptions) *serving.ServiceInfo {
	info := &serving.ServiceInfo{
		Name:        snap.Name,
		Status:      snap.Status,
		CreatedAt:   snap.CreatedAt,
		LastTouched: snap.LastTouched,
	}
	if snap.Value != nil {
		info.Model = snap.Value.model.Describe(opts.Labels)
		if opts.Status {
			info.Details = snap.Value.model.Status()
		}
	}
	if opts.Status {
		info.Job = c.jobs.Status(serving.JobQuery{Service: snap.Name})
	}
	return info
}

// Service returns information about a single service, or nil if
// there is no such service.
func (c *Controller) Service(ctx context.Context, name string, opts serving.StatusOptions) (*serving.ServiceInfo, error) {
	if err := requireName(name); err != nil {
		return nil, err
	}
	snap, err := c.services.Get(name)
	if serving.OutcomeOf(err) == serving.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c.serviceInfo(snap, opts), nil
}

// CreateService creates a new service and records it in the store.
func (c *Controller) CreateService(ctx context.Context, name string, payload serving.Payload) (*serving.ServiceInfo, error) {
	if err := requireName(name); err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, serving.ErrMissingBody
	}
	return c.createService(ctx, name, payload, true)
}

func (c *Controller) createService(ctx context.Context, name string, payload serving.Payload, persist bool) (*serving.ServiceInfo, error) {
	log := c.logger.WithField("service", name)

	_, err := c.services.Reserve(name)
	if err != nil {
		return nil, err
	}
	model, err := c.engine.CreateService(ctx, name, payload)
	if err != nil {
		c.services.Abandon(name)
		log.WithField("err", err).Warn("service creation failed")
		return nil, err
	}
	err = c.services.Activate(name, &service{model: model, payload: payload})
	if err != nil {
		return nil, err
	}

	snap, err := c.services.Get(name)
	if err != nil {
		return nil, err
	}
	if persist {
		err = c.store.PutService(ctx, serving.ServiceDefinition{
			Name:      name,
			Payload:   payload,
			CreatedAt: snap.CreatedAt,
		})
		if err != nil {
			log.WithField("err", err).Error("could not record service, removing it")
			if rbErr := c.deleteService(ctx, name, serving.ClearMem); rbErr != nil {
				log.WithFields(logrus.Fields{
					"err":          err,
					"rollback_err": rbErr,
				}).Error("could not remove unrecorded service")
			}
			return nil, err
		}
	}
	log.Info("service created")
	return c.serviceInfo(snap, serving.StatusOptions{}), nil
}

// DeleteService tears down a service.  Any training job running
// against the service is cancelled, and in-flight predictions and
// streams using it are stopped.  Deleting a service that does not
// exist does nothing.
func (c *Controller) DeleteService(ctx context.Context, name string, opts serving.DeleteOptions) error {
	if err := requireName(name); err != nil {
		return err
	}
	mode, err := serving.ParseClearMode(string(opts.Clear))
	if err != nil {
		return err
	}
	err = c.deleteService(ctx, name, mode)
	if serving.OutcomeOf(err) == serving.NotFound {
		return nil
	}
	return err
}

func (c *Controller) deleteService(ctx context.Context, name string, mode serving.ClearMode) error {
	log := c.logger.WithFields(logrus.Fields{
		"service": name,
		"clear":   mode,
	})

	svc, err := c.services.BeginDelete(name)
	if err != nil {
		return err
	}
	defer c.services.Remove(name)

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if svc != nil {
		keep(c.engine.ReleaseService(ctx, name, svc.model))
	}
	if mode != serving.ClearMem {
		keep(c.engine.ClearService(ctx, name, mode))
	}
	keep(c.store.DeleteService(ctx, name))
	c.jobs.Forget(name)

	if firstErr != nil {
		log.WithField("err", firstErr).Warn("service deleted with errors")
	} else {
		log.Info("service deleted")
	}
	return firstErr
}
