// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

// This file contains a REST skeleton framework.
//
// The bulk of this is dealing with HTTP content type negotiation, and
// providing a standard way to deal with input and output values.
// Every response, including every error, is wrapped in the
// restdata.Response envelope.

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"mime"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/diffeo/go-modelserve/restdata"
	"github.com/diffeo/go-modelserve/serving"
)

// maxBodySize is the largest request body that will be read.
const maxBodySize = 64 << 20

var typeMap = map[string]string{
	"text/json":             restdata.JSONMediaType,
	restdata.JSONMediaType: restdata.JSONMediaType,
	restdata.CBORMediaType: restdata.CBORMediaType,
}

// errBadAccept is returned from negotiateResponse() if the Accept:
// header is malformed (and no more specific error applies).
var errBadAccept = restdata.ErrBadRequest{Err: errors.New("Invalid Accept: header")}

// errNotAcceptable is returned from negotiateResponse() if the Accept:
// header does not mention any media types we can actually return.
type errNotAcceptable struct{}

func (e errNotAcceptable) Error() string {
	return "No acceptable representation for response"
}

func (e errNotAcceptable) HTTPStatus() int {
	return http.StatusNotAcceptable
}

// errMethodNotAllowed is used within the resourceHandler implementation
// to flag an error if a particular HTTP method is not allowed.  This
// corresponds exactly to the 405 Method Not Allowed HTTP status code.
type errMethodNotAllowed struct {
	Method string
}

func (e errMethodNotAllowed) Error() string {
	return fmt.Sprintf("Method %v not allowed", e.Method)
}

func (e errMethodNotAllowed) HTTPStatus() int {
	return http.StatusMethodNotAllowed
}

// responseCreated is returned as a value response from handler
// functions that want to indicate that a new resource was created.
type responseCreated struct {
	// Location holds the canonical URL to the newly created resource.
	Location string

	// Body contains the object sent in the body of the response.
	Body interface{}
}

type resourceHandler struct {
	api *restAPI

	// Route is the name of the route, as reported to the
	// observer.
	Route string

	// Method is the API method reported in the response head.
	Method string

	// Get, if non-nil, returns a representation of the object.
	Get func(*request) (interface{}, error)

	// Put, if non-nil, creates or replaces the object.  The
	// payload is the decoded request body, or nil if there was
	// none.  The return can be any useful return value, including
	// responseCreated.
	Put func(*request, serving.Payload) (interface{}, error)

	// Post, if non-nil, takes some arbitrary action.  Routes
	// where POST and PUT are synonyms set both to the same
	// function.
	Post func(*request, serving.Payload) (interface{}, error)

	// Delete, if non-nil, deletes the object.  The return can be
	// any useful return value.
	Delete func(*request) (interface{}, error)
}

func (h *resourceHandler) ServeHTTP(resp http.ResponseWriter, req *http.Request) {
	var (
		r            *request
		in           serving.Payload
		out          interface{}
		err          error
		status       int
		responseType string
	)
	response := restdata.Response[interface{}]{
		Head: restdata.Head{Method: h.Method},
	}

	// Recover from panics by sending an HTTP error.
	defer func() {
		if recovered := recover(); recovered != nil {
			h.api.Logger.WithFields(logrus.Fields{
				"route": h.Route,
				"panic": recovered,
				"stack": string(debug.Stack()),
			}).Error("panic in request handler")
			response.Status.FromPanic(recovered)
			response.Body = nil
			resp.Header().Set("Content-Type", restdata.JSONMediaType)
			resp.WriteHeader(http.StatusInternalServerError)
			_ = restdata.Encode(restdata.JSONMediaType, resp, response)
			h.api.observe(h.Route, http.StatusInternalServerError)
		}
	}()

	// Start by trying to come up with a response type, even before
	// trying to parse the input.  This determines what format an
	// error message could be sent back as.
	responseType, err = negotiateResponse(req)
	if err != nil {
		// Gotta pick something
		responseType = restdata.JSONMediaType
	}

	// Get bits from URL parameters
	if err == nil {
		r, err = h.api.request(req)
	}

	// Read the body, if it's there
	if err == nil && (req.Method == "PUT" || req.Method == "POST") {
		in, err = readPayload(req)
	}

	// Actually call the handler method
	if err == nil {
		// We will return this if the method is unexpected or
		// we don't have a handler for it
		err = errMethodNotAllowed{Method: req.Method}
		switch req.Method {
		case "GET", "HEAD":
			if h.Get != nil {
				out, err = h.Get(r)
			}
		case "PUT":
			if h.Put != nil {
				out, err = h.Put(r, in)
			}
		case "POST":
			if h.Post != nil {
				out, err = h.Post(r, in)
			}
		case "DELETE":
			if h.Delete != nil {
				out, err = h.Delete(r)
			}
		}
	}
	if r != nil {
		response.Head.Service = r.Service
	}

	// Fix up the final result based on what we know.
	if err != nil {
		response.Status.FromError(err)
		status = response.Status.Code
		if status >= http.StatusInternalServerError {
			h.api.Logger.WithFields(logrus.Fields{
				"route": h.Route,
				"err":   err,
			}).Warn("request failed")
		}
	} else if created, isCreated := out.(responseCreated); isCreated {
		status = http.StatusCreated
		response.Status = restdata.OK(status)
		response.Body = created.Body
		if created.Location != "" {
			resp.Header().Set("Location", created.Location)
		}
	} else {
		status = http.StatusOK
		response.Status = restdata.OK(status)
		response.Body = out
	}

	// Actually send the response.  It is possible for the writer
	// to fail, but by the point this happens we've already
	// written an HTTP status line, so all we can do is note it.
	resp.Header().Set("Content-Type", responseType)
	resp.WriteHeader(status)
	if req.Method != "HEAD" {
		err = restdata.Encode(typeMap[responseType], resp, response)
		if err != nil {
			h.api.Logger.WithFields(logrus.Fields{
				"route": h.Route,
				"err":   err,
			}).Debug("could not write response")
		}
	}
	h.api.observe(h.Route, status)
}

// readPayload decodes the request body as a payload.  An empty body
// produces a nil payload.
func readPayload(req *http.Request) (serving.Payload, error) {
	body, err := ioutil.ReadAll(io.LimitReader(req.Body, maxBodySize))
	if err != nil {
		return nil, restdata.ErrBadRequest{Err: err}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var payload serving.Payload
	err = restdata.Decode(req.Header.Get("Content-Type"), bytes.NewReader(body), &payload)
	if err != nil {
		var withStatus restdata.ErrorStatus
		if !errors.As(err, &withStatus) {
			err = restdata.ErrBadRequest{Err: err}
		}
		return nil, err
	}
	return payload, nil
}

// negotiateResponse returns a supported MIME type for the response
// body, following the path laid out in RFC 7231 section 5.3.
func negotiateResponse(req *http.Request) (string, error) {
	accept := req.Header.Get("Accept")
	if accept == "" {
		accept = "*/*"
	}
	bestType := ""
	bestQ := 0.0
	mediaRanges := strings.Split(accept, ",")
	for _, mediaRange := range mediaRanges {
		mediaRange = strings.TrimSpace(mediaRange)
		mediaType, params, err := mime.ParseMediaType(mediaRange)
		if err != nil {
			return "", errBadAccept
		}

		// What is the "q" ("quality") parameter for this type?
		// If it is less than the best known so far, skip it
		q := 1.0
		if qStr, haveQ := params["q"]; haveQ {
			q, err = strconv.ParseFloat(qStr, 64)
			if err != nil {
				return "", errBadAccept
			}
			if q < 0.0 || q > 1.0 {
				return "", errBadAccept
			}
		}
		if q < bestQ {
			continue
		}

		// This is acceptable if it's listed in the type
		// map; or it's one of a couple of specific wildcards.
		// Also need to handle wildcard precedence.  So:
		if mediaType == "*/*" {
			// Doesn't override anything.
			if q > bestQ {
				bestType = mediaType
				bestQ = q
			}
		} else if mediaType == "text/*" || mediaType == "application/*" {
			// Only overrides "*/*".
			if q > bestQ || bestType == "*/*" {
				bestType = mediaType
				bestQ = q
			}
		} else if _, knownType := typeMap[mediaType]; knownType {
			// Overrides any wildcard.  We want the first one
			// at a given q to win.
			if q > bestQ || bestType == "*/*" || bestType == "text/*" || bestType == "application/*" {
				bestType = mediaType
				bestQ = q
			}
		}
		// Otherwise we don't recognize this type at all, so
		// just drop it.
	}
	// If this failed to win, return an error
	if bestQ == 0.0 {
		return "", errNotAcceptable{}
	}
	switch bestType {
	case "*/*", "application/*":
		return restdata.JSONMediaType, nil
	case "text/*":
		return "text/json", nil
	default:
		return bestType, nil
	}
}
