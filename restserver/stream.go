// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"github.com/gorilla/mux"

	"github.com/diffeo/go-modelserve/serving"
)

// StreamGet describes a stream.
func (api *restAPI) StreamGet(r *request) (interface{}, error) {
	return api.Platform.Stream(r.Context, r.Name)
}

// StreamPut starts a stream.
func (api *restAPI) StreamPut(r *request, payload serving.Payload) (interface{}, error) {
	info, err := api.Platform.CreateStream(r.Context, r.Name, payload)
	if err != nil {
		return nil, err
	}
	r.Service = info.Service
	created := responseCreated{Body: info}
	err = buildURLs(api.Router, "name", r.Name).
		URL(&created.Location, "stream").
		Error
	return created, err
}

// StreamDelete stops a stream.  The response reports how the stream
// stopped: a stream that had already failed produces an error even
// though it is removed.
func (api *restAPI) StreamDelete(r *request) (interface{}, error) {
	return nil, api.Platform.DeleteStream(r.Context, r.Name)
}

// PopulateStream adds the stream route to a router.
func (api *restAPI) PopulateStream(r *mux.Router) {
	r.Path("/stream/{name}").Name("stream").Handler(&resourceHandler{
		api:    api,
		Route:  "stream",
		Method: "/stream",
		Get:    api.StreamGet,
		Put:    api.StreamPut,
		Delete: api.StreamDelete,
	})
}
