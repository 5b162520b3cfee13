// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/diffeo/go-modelserve/serving"
)

// request holds all of the information that can be extracted from
// the URL of a request.
type request struct {
	// Context is the request's context; it is cancelled if the
	// client goes away.
	Context context.Context

	// Name is the entity name from the URL path, if any.
	Name string

	// Service is the service the request targets, if known.
	// Handlers may fill this in from the request body.
	Service string

	Query url.Values
}

func (api *restAPI) request(req *http.Request) (*request, error) {
	return &request{
		Context: req.Context(),
		Name:    mux.Vars(req)["name"],
		Query:   req.URL.Query(),
	}, nil
}

// BoolParam looks at the query parameters for a parameter named
// name.  If it is absent, returns def.  If it has a normally-truthy
// or falsy value (1, on, false, no, ...) then returns that value.
// Anything else is an ErrBadParameter naming the parameter.
func (r *request) BoolParam(name string, def bool) (bool, error) {
	values, present := r.Query[name]
	if !present || len(values) == 0 {
		return def, nil
	}
	switch strings.ToLower(values[0]) {
	case "0", "f", "n", "false", "off", "no":
		return false, nil
	case "1", "t", "y", "true", "on", "yes":
		return true, nil
	default:
		return def, serving.ErrBadParameter{
			Param:  name,
			Reason: fmt.Sprintf("%v must be true or false, not %q", name, values[0]),
		}
	}
}

// IntParam looks at the query parameters for an integer parameter
// named name.  If it is absent, returns 0.
func (r *request) IntParam(name string) (int, error) {
	s := r.Query.Get(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, serving.ErrBadParameter{
			Param:  name,
			Reason: fmt.Sprintf("%v must be an integer, not %q", name, s),
		}
	}
	return n, nil
}

// Extra returns the first value of every query parameter not named
// in known, or nil if there are none.
func (r *request) Extra(known ...string) map[string]string {
	var extra map[string]string
	for name, values := range r.Query {
		skip := len(values) == 0
		for _, k := range known {
			if name == k {
				skip = true
			}
		}
		if skip {
			continue
		}
		if extra == nil {
			extra = make(map[string]string)
		}
		extra[name] = values[0]
	}
	return extra
}

// JobQuery builds a training job query from the query parameters.
func (r *request) JobQuery() (q serving.JobQuery, err error) {
	q.Service = r.Query.Get("service")
	q.Job, err = r.IntParam("job")
	if err == nil {
		q.Extra = r.Extra("service", "job")
	}
	return
}
