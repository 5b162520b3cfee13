// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restclient

// This file provides generic REST client code.

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"

	"github.com/jtacoma/uritemplates"

	"github.com/diffeo/go-modelserve/restdata"
	"github.com/diffeo/go-modelserve/serving"
)

// resource is the root of the REST API: a base URL and the settings
// used to talk to it.
type resource struct {
	URL       *url.URL
	Client    *http.Client
	MediaType string
}

// Template expands a URI template with vars, and returns the result
// taken relative to the resource's URL.
func (r *resource) Template(template string, vars map[string]interface{}) (*url.URL, error) {
	tmpl, err := uritemplates.Parse(template)
	if err != nil {
		return nil, err
	}
	expanded, err := tmpl.Expand(vars)
	if err != nil {
		return nil, err
	}
	return r.URL.Parse(expanded)
}

// body converts a payload to a request body, or nil if there is
// none.  A nil payload sends no body at all, which the server reports
// as a missing body.
func body(payload serving.Payload) interface{} {
	if payload == nil {
		return nil
	}
	return payload
}

// do performs some HTTP action against a URI template.  If in is
// non-nil, it is serialized and sent as the request body.  The body of
// the response envelope is returned.
func do[T any](ctx context.Context, r *resource, method, template string, vars map[string]interface{}, in interface{}) (out T, err error) {
	url, err := r.Template(template, vars)
	if err != nil {
		return
	}

	// Set up the body, if there is one
	var reqBody io.Reader
	if in != nil {
		buf := &bytes.Buffer{}
		err = restdata.Encode(r.MediaType, buf, in)
		if err != nil {
			return
		}
		reqBody = buf
	}

	// Create the request and set headers
	req, err := http.NewRequestWithContext(ctx, method, url.String(), reqBody)
	if err != nil {
		return
	}
	if in != nil {
		req.Header.Set("Content-Type", r.MediaType)
	}
	req.Header.Set("Accept", r.MediaType)

	// Actually do the request
	resp, err := r.Client.Do(req)
	if err != nil {
		return
	}

	// If the response included a body, clean up afterwards
	if resp.Body != nil {
		defer func() {
			err = firstError(err, resp.Body.Close())
		}()
	}

	// Check the response code
	if err = checkHTTPStatus(resp); err != nil {
		return
	}

	// Unwrap the envelope
	if resp.Body != nil {
		var envelope restdata.Response[T]
		contentType := resp.Header.Get("Content-Type")
		err = restdata.Decode(contentType, resp.Body, &envelope)
		if err == io.EOF {
			err = nil
		}
		out = envelope.Body
	}
	return
}

// ErrorHTTP is a catch-all error for non-successes returned from the
// REST endpoint.
type ErrorHTTP struct {
	// Response holds a pointer to the failing HTTP response.
	Response *http.Response

	// Body holds the contents of the message body, presumed to
	// be text.
	Body string
}

func (e ErrorHTTP) Error() string {
	return e.Response.Status
}

// checkHTTPStatus examines an HTTP response and returns an error if
// it is not successful.
func checkHTTPStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	// Always collect the entire body; we will need it as a fallback
	// and can only parse it once.
	var body []byte
	var err error
	if resp.Body != nil {
		body, err = ioutil.ReadAll(resp.Body)
		if err != nil {
			return err
		}
	}

	// Take a shot at decoding it as a better error
	var envelope restdata.Response[interface{}]
	contentType := resp.Header.Get("Content-Type")
	err2 := restdata.Decode(contentType, bytes.NewReader(body), &envelope)
	if err2 == nil && envelope.Status.Code != 0 {
		// Given that we decoded that successfully, return the
		// server-provided error
		return envelope.Status.ToError()
	}

	return ErrorHTTP{Response: resp, Body: string(body)}
}

func firstError(e1, e2 error) error {
	if e1 != nil {
		return e1
	}
	return e2
}
