// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"github.com/gorilla/mux"

	"github.com/diffeo/go-modelserve/serving"
)

// ResourceGet describes a resource.
func (api *restAPI) ResourceGet(r *request) (interface{}, error) {
	return api.Platform.Resource(r.Context, r.Name)
}

// ResourcePut opens a new resource.  An existing resource is never
// replaced.
func (api *restAPI) ResourcePut(r *request, payload serving.Payload) (interface{}, error) {
	info, err := api.Platform.CreateResource(r.Context, r.Name, payload)
	if err != nil {
		return nil, err
	}
	created := responseCreated{Body: info}
	err = buildURLs(api.Router, "name", r.Name).
		URL(&created.Location, "resource").
		Error
	return created, err
}

// ResourceDelete closes a resource.
func (api *restAPI) ResourceDelete(r *request) (interface{}, error) {
	return nil, api.Platform.DeleteResource(r.Context, r.Name)
}

// PopulateResource adds the resource route to a router.
func (api *restAPI) PopulateResource(r *mux.Router) {
	r.Path("/resources/{name}").Name("resource").Handler(&resourceHandler{
		api:    api,
		Route:  "resource",
		Method: "/resources",
		Get:    api.ResourceGet,
		Put:    api.ResourcePut,
		Delete: api.ResourceDelete,
	})
}
