// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package restserver publishes a serving.Platform as a REST service.
// The restclient package is a matching client.
//
// The complete REST API is defined in the restdata package.
//
// HTTP Considerations
//
// Clients should use the standard HTTP Accept: header to select a
// response format; without one, responses are JSON.  See "MIME
// Types" below.  This interface does not support HTTP caching or
// authentication headers.
//
// Every response carries the restdata.Response envelope, whose status
// code matches the HTTP status.  Successful creation of a service,
// training job, resource or stream returns 201 Created with a
// Location: header.  Reading or deleting a service or training job
// that does not exist succeeds with an empty body; reading or
// deleting a resource or stream that does not exist is 404 Not Found.
//
// Boolean query parameters (status, labels) accept 1, t, true, on,
// yes and their negations; anything else is 400 Bad Request naming
// the parameter.  A panic in a handler is reported as a 500 Internal
// Server Error with no message, and logged.
//
// MIME Types
//
// This interface understands MIME types as follows:
//
//     application/json
//     text/json
//
// JSON representation of this interface.
//
//     application/cbor
//
// CBOR representation of this interface.
//
// URL Scheme
//
// The following URLs are defined:
//
//     /info
//     /services/{name}
//     /predict
//     /train
//     /chain/{name}
//     /resources/{name}
//     /stream/{name}
package restserver
