// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"github.com/gorilla/mux"

	"github.com/diffeo/go-modelserve/serving"
)

// Info lists the known services.  Per-service model status is only
// included if the status flag is set.
func (api *restAPI) Info(r *request) (interface{}, error) {
	status, err := r.BoolParam("status", false)
	if err != nil {
		return nil, err
	}
	return api.Platform.Info(r.Context, serving.InfoOptions{Status: status})
}

// ServiceGet describes a service.  Model status is included unless
// status=false.  An unknown service produces an empty body.
func (api *restAPI) ServiceGet(r *request) (interface{}, error) {
	r.Service = r.Name
	var opts serving.StatusOptions
	var err error
	opts.Status, err = r.BoolParam("status", true)
	if err == nil {
		opts.Labels, err = r.BoolParam("labels", false)
	}
	if err != nil {
		return nil, err
	}
	info, err := api.Platform.Service(r.Context, r.Name, opts)
	if err != nil || info == nil {
		return nil, err
	}
	return info, nil
}

// ServiceCreate creates a service.  This handles both POST and PUT.
func (api *restAPI) ServiceCreate(r *request, payload serving.Payload) (interface{}, error) {
	r.Service = r.Name
	info, err := api.Platform.CreateService(r.Context, r.Name, payload)
	if err != nil {
		return nil, err
	}
	created := responseCreated{Body: info}
	err = buildURLs(api.Router, "name", r.Name).
		URL(&created.Location, "service").
		Error
	return created, err
}

// ServiceDelete deletes a service.  The clear query parameter
// selects what is removed; other parameters are passed through.
func (api *restAPI) ServiceDelete(r *request) (interface{}, error) {
	r.Service = r.Name
	opts := serving.DeleteOptions{
		Clear: serving.ClearMode(r.Query.Get("clear")),
		Extra: r.Extra("clear"),
	}
	return nil, api.Platform.DeleteService(r.Context, r.Name, opts)
}

// PopulateService adds the info and service routes to a router.
func (api *restAPI) PopulateService(r *mux.Router) {
	r.Path("/info").Name("info").Handler(&resourceHandler{
		api:    api,
		Route:  "info",
		Method: "/info",
		Get:    api.Info,
	})
	r.Path("/services/{name}").Name("service").Handler(&resourceHandler{
		api:    api,
		Route:  "service",
		Method: "/services",
		Get:    api.ServiceGet,
		Put:    api.ServiceCreate,
		Post:   api.ServiceCreate,
		Delete: api.ServiceDelete,
	})
}
