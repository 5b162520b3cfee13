// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/urfave/negroni"

	"github.com/diffeo/go-modelserve/restserver"
	"github.com/diffeo/go-modelserve/serving"
)

// requestLogger is a negroni middleware that logs one entry per
// request.
type requestLogger struct {
	logger logrus.FieldLogger
}

func (l requestLogger) ServeHTTP(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	start := time.Now()
	next(rw, r)
	fields := logrus.Fields{
		"remote":   r.RemoteAddr,
		"method":   r.Method,
		"path":     r.URL.Path,
		"duration": time.Since(start),
	}
	if res, ok := rw.(negroni.ResponseWriter); ok {
		fields["status"] = res.Status()
		fields["size"] = res.Size()
	}
	l.logger.WithFields(fields).Info("request")
}

// newHandler builds the complete HTTP handler: the REST API, the
// metrics endpoint, and optional request logging.
func newHandler(p serving.Platform, config Config, logger logrus.FieldLogger) http.Handler {
	r := mux.NewRouter()
	restserver.PopulateRouter(r, p, restserver.Config{
		Logger:  logger,
		Observe: countResponse,
	})
	r.Handle("/metrics", promhttp.Handler())

	n := negroni.New()
	if config.LogRequests {
		n.Use(requestLogger{logger: logger})
	}
	n.UseHandler(r)
	return n
}
