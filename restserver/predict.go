// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"github.com/gorilla/mux"

	"github.com/diffeo/go-modelserve/serving"
)

// payloadService returns the service a request body names, if any.
func payloadService(payload serving.Payload) string {
	service, _ := payload["service"].(string)
	return service
}

// Predict runs a single prediction.
func (api *restAPI) Predict(r *request, payload serving.Payload) (interface{}, error) {
	r.Service = payloadService(payload)
	return api.Platform.Predict(r.Context, payload)
}

// Chain runs a chain of predictions.  This handles both POST and
// PUT.  A failing step is reported in the result body.
func (api *restAPI) Chain(r *request, payload serving.Payload) (interface{}, error) {
	return api.Platform.Chain(r.Context, r.Name, payload)
}

// PopulatePredict adds the predict and chain routes to a router.
func (api *restAPI) PopulatePredict(r *mux.Router) {
	r.Path("/predict").Name("predict").Handler(&resourceHandler{
		api:    api,
		Route:  "predict",
		Method: "/predict",
		Post:   api.Predict,
	})
	r.Path("/chain/{name}").Name("chain").Handler(&resourceHandler{
		api:    api,
		Route:  "chain",
		Method: "/chain",
		Put:    api.Chain,
		Post:   api.Chain,
	})
}
