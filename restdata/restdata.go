// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package restdata defines common data structures shared between the
// restserver and restclient packages.
//
// API Usage
//
// The API follows the DeepDetect server layout.  Entities are
// addressed by name directly under a per-kind path:
//
//     GET          /info
//     GET          /services/{name}?status=&labels=
//     POST, PUT    /services/{name}
//     DELETE       /services/{name}?clear=
//     POST         /predict
//     GET          /train?service=&job=
//     POST, PUT    /train
//     DELETE       /train?service=&job=
//     POST, PUT    /chain/{name}
//     PUT, GET     /resources/{name}
//     DELETE       /resources/{name}
//     PUT, GET     /stream/{name}
//     DELETE       /stream/{name}
//
// The exported *Template constants are RFC 6570 URI templates for
// these paths, relative to the server root.
//
// Envelope
//
// Every response body, successful or not, is a Response:
//
//     {
//         "status": {"code": 404, "msg": "NotFound",
//                    "dd_code": 1002, "dd_msg": "Service Not Found"},
//         "head": {"method": "/services", "service": "mnist"},
//         "body": null
//     }
//
// The status code always matches the HTTP status.  dd_code refines it:
// 1002 for a missing service and 1015 for a name that is already in
// use.  Internal faults carry a message only if the underlying error
// had one; they never carry stack traces.  The additional "error",
// "kind", "value", "detail" and "job" fields let Go clients rebuild
// the original typed error; see Status.ToError.
//
// Encoding Considerations
//
// Requests and responses may be JSON (application/json or text/json)
// or CBOR (application/cbor).  A request with no Content-Type, or
// with the application/x-www-form-urlencoded type that curl sends by
// default, is read as JSON.  Timestamps are RFC 3339 strings in JSON,
// and tag 0 date/time strings in CBOR.
package restdata

// URI templates for the API, relative to the server root.
const (
	InfoTemplate     = "info{?status}"
	ServiceTemplate  = "services/{name}{?status,labels,clear,params*}"
	PredictTemplate  = "predict"
	TrainTemplate    = "train{?service,job,params*}"
	ChainTemplate    = "chain/{name}"
	ResourceTemplate = "resources/{name}"
	StreamTemplate   = "stream/{name}"
)

// Response is the uniform envelope around every response body.
type Response[T any] struct {
	Status Status `json:"status"`
	Head   Head   `json:"head"`
	Body   T      `json:"body"`
}

// Head describes the request a response answers.
type Head struct {
	// Method names the API route, e.g. "/services".
	Method string `json:"method"`

	// Service names the service the request targeted, if any.
	Service string `json:"service,omitempty"`
}

// Status is the outcome part of a response.
type Status struct {
	// Code is the HTTP status code.
	Code int `json:"code"`

	// Msg is a short name for Code, e.g. "NotFound".
	Msg string `json:"msg"`

	// DDCode is the DeepDetect-compatible refined status code.
	DDCode int `json:"dd_code,omitempty"`

	// DDMsg is a human-readable description of the failure.
	DDMsg string `json:"dd_msg,omitempty"`

	// Error names the typed error behind a failure, e.g.
	// "ErrNoSuchResource".
	Error string `json:"error,omitempty"`

	// Kind is the entity kind an error refers to.
	Kind string `json:"kind,omitempty"`

	// Value is the entity or parameter name an error refers to.
	Value string `json:"value,omitempty"`

	// Detail carries any other text the typed error holds.
	Detail string `json:"detail,omitempty"`

	// Job is the training job an error refers to.
	Job int `json:"job,omitempty"`
}

// OK returns the status of a successful response with some HTTP
// status code.
func OK(code int) Status {
	return Status{Code: code, Msg: statusMsg(code)}
}

// statusMsg returns the short DeepDetect name for an HTTP status.
func statusMsg(code int) string {
	switch code {
	case 200:
		return "OK"
	case 201:
		return "Created"
	case 400:
		return "BadRequest"
	case 404:
		return "NotFound"
	case 405:
		return "MethodNotAllowed"
	case 406:
		return "NotAcceptable"
	case 409:
		return "Conflict"
	case 415:
		return "UnsupportedMediaType"
	default:
		return "InternalError"
	}
}
