// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/diffeo/go-modelserve/serving"
)

// Config holds optional settings for the REST API.
type Config struct {
	// Logger receives handler failures and recovered panics.  If
	// nil, uses the logrus standard logger.
	Logger logrus.FieldLogger

	// Observe, if not nil, is called once per response with the
	// name of the route and the HTTP status code sent.
	Observe func(route string, status int)
}

// NewRouter creates a new HTTP handler that processes all API
// requests.  All resources are under the URL path root, e.g.
// /services/mnist.  For more control over this setup, create a
// mux.Router and call PopulateRouter instead.
func NewRouter(p serving.Platform, config Config) http.Handler {
	r := mux.NewRouter()
	PopulateRouter(r, p, config)
	return r
}

// PopulateRouter adds the API routes to an existing
// github.com/gorilla/mux router object.  This can be used, for
// instance, to place the API under a subpath:
//
//     r := mux.NewRouter()
//     s := r.PathPrefix("/api").Subrouter()
//     PopulateRouter(s, controller, restserver.Config{})
func PopulateRouter(r *mux.Router, p serving.Platform, config Config) {
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}
	api := &restAPI{
		Platform: p,
		Router:   r,
		Logger:   config.Logger,
		Observe:  config.Observe,
	}
	api.PopulateRouter(r)
}

// restAPI holds the persistent state for the REST API.
type restAPI struct {
	Platform serving.Platform
	Router   *mux.Router
	Logger   logrus.FieldLogger
	Observe  func(route string, status int)
}

func (api *restAPI) observe(route string, status int) {
	if api.Observe != nil {
		api.Observe(route, status)
	}
}

// PopulateRouter adds all URL paths to a router.
func (api *restAPI) PopulateRouter(r *mux.Router) {
	api.PopulateService(r)
	api.PopulatePredict(r)
	api.PopulateTrain(r)
	api.PopulateResource(r)
	api.PopulateStream(r)
}
