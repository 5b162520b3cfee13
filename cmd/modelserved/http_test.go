// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diffeo/go-modelserve/engine/memengine"
	"github.com/diffeo/go-modelserve/lifecycle"
	"github.com/diffeo/go-modelserve/serving"
)

func newTestController(t *testing.T) *lifecycle.Controller {
	logger, _ := test.NewNullLogger()
	controller := lifecycle.New(lifecycle.Config{
		Engine: memengine.New(memengine.Config{Logger: logger}),
		Logger: logger,
	})
	t.Cleanup(func() { controller.Shutdown(context.Background()) })
	return controller
}

func TestHandler(t *testing.T) {
	controller := newTestController(t)
	logger, hook := test.NewNullLogger()
	config := DefaultConfig()
	config.LogRequests = true
	handler := newHandler(controller, config, logger)

	before := testutil.ToFloat64(responseCount.With(prometheus.Labels{
		"route": "service",
		"code":  "201",
	}))
	req := httptest.NewRequest("PUT", "/services/digits",
		strings.NewReader(`{"mllib":"memory","parameters":{"mllib":{"nclasses":10}}}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	after := testutil.ToFloat64(responseCount.With(prometheus.Labels{
		"route": "service",
		"code":  "201",
	}))
	assert.Equal(t, before+1, after)

	entry := hook.LastEntry()
	if assert.NotNil(t, entry) {
		assert.Equal(t, "request", entry.Message)
		assert.Equal(t, "/services/digits", entry.Data["path"])
		assert.Equal(t, http.StatusCreated, entry.Data["status"])
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "diffeo_modelserve_http_responses_total")
}

func TestHandlerQuiet(t *testing.T) {
	controller := newTestController(t)
	logger, hook := test.NewNullLogger()
	handler := newHandler(controller, DefaultConfig(), logger)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/info", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, hook.AllEntries())
}

func TestRecordStats(t *testing.T) {
	controller := newTestController(t)
	ctx := context.Background()
	_, err := controller.CreateService(ctx, "a", serving.Payload{"mllib": "memory"})
	require.NoError(t, err)
	_, err = controller.CreateResource(ctx, "cam", serving.Payload{"frames": 1})
	require.NoError(t, err)

	recordStats(controller.Stats())
	assert.Equal(t, 1.0, testutil.ToFloat64(entityCount.With(prometheus.Labels{
		"kind":   "service",
		"status": "active",
	})))
	assert.Equal(t, 1.0, testutil.ToFloat64(entityCount.With(prometheus.Labels{
		"kind":   "resource",
		"status": "active",
	})))

	// Counts that drop to zero disappear
	require.NoError(t, controller.DeleteResource(ctx, "cam"))
	recordStats(controller.Stats())
	assert.Equal(t, 1, testutil.CollectAndCount(entityCount))
}
