// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package lifecycle

import (
	"context"

	"github.com/diffeo/go-modelserve/registry"
	"github.com/diffeo/go-modelserve/serving"
)

func resourceInfo(snap registry.Snapshot[serving.Resource]) *serving.ResourceInfo {
	info := &serving.ResourceInfo{
		Name:        snap.Name,
		Status:      snap.Status,
		Open:        snap.Status == serving.StatusActive,
		CreatedAt:   snap.CreatedAt,
		LastTouched: snap.LastTouched,
	}
	if snap.Value != nil {
		info.Details = snap.Value.Describe()
	}
	return info
}

// CreateResource opens a new resource.  An existing resource is never
// replaced.
func (c *Controller) CreateResource(ctx context.Context, name string, payload serving.Payload) (*serving.ResourceInfo, error) {
	if err := requireName(name); err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, serving.ErrMissingBody
	}
	log := c.logger.WithField("resource", name)

	_, err := c.resources.Reserve(name)
	if err != nil {
		return nil, err
	}
	res, err := c.engine.OpenResource(ctx, name, payload)
	if err != nil {
		c.resources.Abandon(name)
		log.WithField("err", err).Warn("resource creation failed")
		return nil, err
	}
	err = c.resources.Activate(name, res)
	if err != nil {
		return nil, err
	}
	log.Info("resource opened")
	return c.Resource(ctx, name)
}

// Resource returns information about a resource.
func (c *Controller) Resource(ctx context.Context, name string) (*serving.ResourceInfo, error) {
	if err := requireName(name); err != nil {
		return nil, err
	}
	snap, err := c.resources.Get(name)
	if err != nil {
		return nil, err
	}
	return resourceInfo(snap), nil
}

// DeleteResource closes a resource.  New use of the resource is
// refused at once; streams running over it are stopped, and the
// engine closes it once every in-flight use has finished.
func (c *Controller) DeleteResource(ctx context.Context, name string) error {
	if err := requireName(name); err != nil {
		return err
	}
	log := c.logger.WithField("resource", name)

	res, err := c.resources.BeginDelete(name)
	if err != nil {
		return err
	}
	defer c.resources.Remove(name)
	if res == nil {
		return nil
	}
	err = c.engine.CloseResource(ctx, res)
	if err != nil {
		log.WithField("err", err).Warn("error closing resource")
		return err
	}
	log.Info("resource closed")
	return nil
}
