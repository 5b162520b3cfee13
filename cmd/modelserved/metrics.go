// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"context"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/diffeo/go-modelserve/lifecycle"
)

var entityCount = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "diffeo",
		Subsystem: "modelserve",
		Name:      "entities",
		Help:      "Number of services, resources and streams by status",
	},
	[]string{
		"kind",
		"status",
	},
)

var jobCount = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "diffeo",
		Subsystem: "modelserve",
		Name:      "training_jobs",
		Help:      "Number of tracked training jobs by state",
	},
	[]string{
		"state",
	},
)

var chainCount = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "diffeo",
		Subsystem: "modelserve",
		Name:      "chains_running",
		Help:      "Number of in-flight executions of each chain",
	},
	[]string{
		"chain",
	},
)

var responseCount = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "diffeo",
		Subsystem: "modelserve",
		Name:      "http_responses_total",
		Help:      "Number of REST API responses by route and status code",
	},
	[]string{
		"route",
		"code",
	},
)

func init() {
	prometheus.MustRegister(entityCount, jobCount, chainCount, responseCount)
}

// countResponse is the REST server's response observer.
func countResponse(route string, status int) {
	responseCount.With(prometheus.Labels{
		"route": route,
		"code":  strconv.Itoa(status),
	}).Inc()
}

// recordStats replaces the gauge values with a new set of counts.
func recordStats(stats lifecycle.Stats) {
	entityCount.Reset()
	for kind, counts := range stats.Entities {
		for status, count := range counts {
			entityCount.With(prometheus.Labels{
				"kind":   kind.String(),
				"status": status.String(),
			}).Set(float64(count))
		}
	}
	jobCount.Reset()
	for state, count := range stats.Jobs {
		jobCount.With(prometheus.Labels{
			"state": state.String(),
		}).Set(float64(count))
	}
	chainCount.Reset()
	for chain, count := range stats.Chains {
		chainCount.With(prometheus.Labels{
			"chain": chain,
		}).Set(float64(count))
	}
}

// observe refreshes the gauges every interval until ctx is done.
func observe(ctx context.Context, controller *lifecycle.Controller, clk clock.Clock, interval time.Duration) {
	ticker := clk.Ticker(interval)
	defer ticker.Stop()
	for {
		recordStats(controller.Stats())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
