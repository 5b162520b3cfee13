// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Command modelserved runs the model server: a REST control plane
// for machine-learning services, training jobs, resources and
// streams, backed by the in-memory engine.
//
// Settings may be given in a YAML file with -config; command-line
// flags override the file.  Service definitions are kept in the store
// selected by -backend and recreated at startup.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"

	"github.com/diffeo/go-modelserve/engine/memengine"
	"github.com/diffeo/go-modelserve/lifecycle"
)

// shutdownTimeout bounds how long in-flight requests may take to
// finish once a signal arrives.
const shutdownTimeout = 10 * time.Second

func main() {
	config, err := LoadConfig(os.Args[0], os.Args[1:])
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"err": err,
		}).Fatal("Could not load configuration")
		return
	}
	logger := logrus.StandardLogger()
	if err = config.ConfigureLogging(logger); err != nil {
		logrus.WithFields(logrus.Fields{
			"err": err,
		}).Fatal("Could not configure logging")
		return
	}

	store, err := config.Backend.Store()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"err":     err,
			"backend": config.Backend.String(),
		}).Fatal("Could not create service store")
		return
	}

	clk := clock.New()
	engine := memengine.New(memengine.Config{
		Repository:    config.Repository,
		Clock:         clk,
		TrainInterval: config.TrainInterval,
		FrameInterval: config.FrameInterval,
		Logger:        logger,
	})
	controller := lifecycle.New(lifecycle.Config{
		Engine:       engine,
		Store:        store,
		Clock:        clk,
		Logger:       logger,
		MaxAsyncJobs: config.MaxAsyncJobs,
		JobHistory:   config.JobHistory,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	restored, err := controller.Restore(ctx)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"err": err,
		}).Fatal("Could not read stored services")
		return
	}
	logger.WithField("services", restored).Info("restored services")

	if config.MetricsInterval > 0 {
		go observe(ctx, controller, clk, config.MetricsInterval)
	}

	server := &http.Server{
		Addr:    config.Listen,
		Handler: newHandler(controller, config, logger),
	}
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithField("err", err).Warn("HTTP shutdown incomplete")
		}
	}()

	logger.WithField("listen", config.Listen).Info("serving")
	err = server.ListenAndServe()
	if err != http.ErrServerClosed {
		logrus.WithFields(logrus.Fields{
			"err": err,
		}).Fatal("HTTP server failed")
		return
	}
	<-drained

	controller.Shutdown(context.Background())
	logger.Info("stopped")
}
