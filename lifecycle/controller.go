// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package lifecycle provides the in-process implementation of
// serving.Platform.  A Controller owns the registries of services,
// resources and streams and the training job tracker, and is the only
// thing that changes them; the actual machine learning is delegated
// to a serving.Engine.
//
// Every operation re-resolves the names it is given through the
// registries.  Creation reserves a name before calling into the
// engine, so concurrent creates of the same name produce exactly one
// winner and Conflict for the rest, while operations on different
// names proceed in parallel.
package lifecycle

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"

	"github.com/diffeo/go-modelserve/jobs"
	"github.com/diffeo/go-modelserve/memory"
	"github.com/diffeo/go-modelserve/registry"
	"github.com/diffeo/go-modelserve/serving"
)

// Version is reported by Info when no other version is configured.
const Version = "0.1.0"

// Config holds the settings for a new Controller.
type Config struct {
	// Engine performs the actual machine learning.  Required.
	Engine serving.Engine

	// Store persists service definitions.  If nil, uses an
	// in-memory store.
	Store serving.Store

	// Clock provides entity timestamps.  If nil, uses wall-clock
	// time.
	Clock clock.Clock

	// Logger receives lifecycle messages.  If nil, uses the
	// logrus standard logger.
	Logger logrus.FieldLogger

	// MaxAsyncJobs limits the number of concurrently running
	// asynchronous training jobs.  Zero means no limit.
	MaxAsyncJobs int

	// JobHistory is the number of services whose last finished
	// training job is remembered.
	JobHistory int

	// Version is the server version reported by Info.
	Version string
}

// service is the registry value for a service.
type service struct {
	model   serving.Model
	payload serving.Payload
}

// Controller is the in-process serving.Platform.
type Controller struct {
	engine   serving.Engine
	store    serving.Store
	clock    clock.Clock
	logger   logrus.FieldLogger
	version  string
	instance string

	services  *registry.Registry[*service]
	resources *registry.Registry[serving.Resource]
	streams   *registry.Registry[*stream]
	jobs      *jobs.Tracker
}

// New creates a new controller.
func New(config Config) *Controller {
	if config.Store == nil {
		config.Store = memory.New()
	}
	if config.Clock == nil {
		config.Clock = clock.New()
	}
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}
	if config.Version == "" {
		config.Version = Version
	}
	return &Controller{
		engine:    config.Engine,
		store:     config.Store,
		clock:     config.Clock,
		logger:    config.Logger,
		version:   config.Version,
		instance:  uuid.NewV4().String(),
		services:  registry.New[*service](serving.ServiceKind, config.Clock),
		resources: registry.New[serving.Resource](serving.ResourceKind, config.Clock),
		streams:   registry.New[*stream](serving.StreamKind, config.Clock),
		jobs: jobs.New(jobs.Config{
			Clock:    config.Clock,
			Logger:   config.Logger,
			MaxAsync: config.MaxAsyncJobs,
			History:  config.JobHistory,
		}),
	}
}

// Info returns the server version and the list of services.
func (c *Controller) Info(ctx context.Context, opts serving.InfoOptions) (*serving.Info, error) {
	info := &serving.Info{
		Version:  c.version,
		Instance: c.instance,
		Services: []serving.ServiceInfo{},
	}
	for _, snap := range c.services.List() {
		info.Services = append(info.Services, *c.serviceInfo(snap, serving.StatusOptions{
			Status: opts.Status,
		}))
	}
	return info, nil
}

// Restore recreates every service recorded in the store.  A service
// that cannot be recreated is logged and skipped.  Returns the number
// of services restored.
func (c *Controller) Restore(ctx context.Context) (int, error) {
	defs, err := c.store.Services(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, def := range defs {
		_, err := c.createService(ctx, def.Name, def.Payload, false)
		if err != nil {
			c.logger.WithFields(logrus.Fields{
				"service": def.Name,
				"err":     err,
			}).Error("could not restore service")
			continue
		}
		count++
	}
	return count, nil
}

// Stats is a point-in-time count of the controller's entities.
type Stats struct {
	Entities map[serving.EntityKind]map[serving.EntityStatus]int
	Jobs     map[serving.JobState]int
	Chains   map[string]int
}

// Stats counts the controller's entities and jobs.
func (c *Controller) Stats() Stats {
	return Stats{
		Entities: map[serving.EntityKind]map[serving.EntityStatus]int{
			serving.ServiceKind:  c.services.Counts(),
			serving.ResourceKind: c.resources.Counts(),
			serving.StreamKind:   c.streams.Counts(),
		},
		Jobs:   c.jobs.Counts(),
		Chains: c.jobs.Chains(),
	}
}

// Shutdown stops every stream and cancels every training job.
// Services and resources are left registered.
func (c *Controller) Shutdown(ctx context.Context) {
	for _, snap := range c.streams.List() {
		err := c.DeleteStream(ctx, snap.Name)
		if err != nil && serving.OutcomeOf(err) != serving.NotFound {
			c.logger.WithFields(logrus.Fields{
				"stream": snap.Name,
				"err":    err,
			}).Warn("error stopping stream")
		}
	}
	c.jobs.Close()
}

// requireName validates an entity name from a request path.
func requireName(name string) error {
	if name == "" {
		return serving.ErrBadParameter{Param: "name", Reason: "name is required"}
	}
	return nil
}
