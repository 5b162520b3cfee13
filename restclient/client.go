// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package restclient provides a serving.Platform HTTP REST client
// that talks to the matching server in the "restserver" package.
//
// The server in github.com/diffeo/go-modelserve/cmd/modelserved runs
// a compatible REST server.  Call New() with the base URL of that
// service; for instance,
//
//     c, err := restclient.New("http://localhost:8080/")
package restclient

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/diffeo/go-modelserve/restdata"
	"github.com/diffeo/go-modelserve/serving"
)

// Config holds optional client settings.
type Config struct {
	// MediaType selects the wire encoding, restdata.JSONMediaType
	// or restdata.CBORMediaType.  Defaults to JSON.
	MediaType string

	// HTTPClient is used to make requests.  Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client
}

// Client is a serving.Platform that speaks to an external REST
// server.
type Client struct {
	resource
}

var _ serving.Platform = (*Client)(nil)

// New creates a new client that speaks JSON to an external REST
// server.
func New(baseURL string) (*Client, error) {
	return NewWithConfig(baseURL, Config{})
}

// NewWithConfig creates a new client with explicit settings.  It
// checks that the server is reachable before returning.
func NewWithConfig(baseURL string, config Config) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("restclient: empty base URL")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	// Templates are relative, so the base must be a directory
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if config.MediaType == "" {
		config.MediaType = restdata.JSONMediaType
	}
	if restdata.CanonicalMediaType(config.MediaType) == "" {
		return nil, restdata.ErrUnsupportedMediaType{Type: config.MediaType}
	}
	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}
	c := &Client{resource{
		URL:       u,
		Client:    config.HTTPClient,
		MediaType: config.MediaType,
	}}
	if _, err := c.Info(context.Background(), serving.InfoOptions{}); err != nil {
		return nil, err
	}
	return c, nil
}

// requireName rejects empty entity names before they produce a URL
// the server has no route for.
func requireName(name string) error {
	if name == "" {
		return serving.ErrBadParameter{Param: "name", Reason: "name is required"}
	}
	return nil
}

// extraVars converts pass-through query parameters to template
// variables.
func extraVars(vars map[string]interface{}, extra map[string]string) map[string]interface{} {
	if len(extra) > 0 {
		params := make(map[string]interface{}, len(extra))
		for k, v := range extra {
			params[k] = v
		}
		vars["params"] = params
	}
	return vars
}

// jobVars builds template variables for a training job query.
func jobVars(q serving.JobQuery) map[string]interface{} {
	vars := map[string]interface{}{}
	if q.Service != "" {
		vars["service"] = q.Service
	}
	if q.Job != 0 {
		vars["job"] = strconv.Itoa(q.Job)
	}
	return extraVars(vars, q.Extra)
}

// Info implements serving.Platform.
func (c *Client) Info(ctx context.Context, opts serving.InfoOptions) (*serving.Info, error) {
	vars := map[string]interface{}{
		"status": strconv.FormatBool(opts.Status),
	}
	return do[*serving.Info](ctx, &c.resource, "GET", restdata.InfoTemplate, vars, nil)
}

// Service implements serving.Platform.
func (c *Client) Service(ctx context.Context, name string, opts serving.StatusOptions) (*serving.ServiceInfo, error) {
	if err := requireName(name); err != nil {
		return nil, err
	}
	vars := map[string]interface{}{
		"name":   name,
		"status": strconv.FormatBool(opts.Status),
		"labels": strconv.FormatBool(opts.Labels),
	}
	return do[*serving.ServiceInfo](ctx, &c.resource, "GET", restdata.ServiceTemplate, vars, nil)
}

// CreateService implements serving.Platform.
func (c *Client) CreateService(ctx context.Context, name string, payload serving.Payload) (*serving.ServiceInfo, error) {
	if err := requireName(name); err != nil {
		return nil, err
	}
	vars := map[string]interface{}{"name": name}
	return do[*serving.ServiceInfo](ctx, &c.resource, "PUT", restdata.ServiceTemplate, vars, body(payload))
}

// DeleteService implements serving.Platform.
func (c *Client) DeleteService(ctx context.Context, name string, opts serving.DeleteOptions) error {
	if err := requireName(name); err != nil {
		return err
	}
	vars := map[string]interface{}{"name": name}
	if opts.Clear != "" {
		vars["clear"] = string(opts.Clear)
	}
	_, err := do[interface{}](ctx, &c.resource, "DELETE", restdata.ServiceTemplate, extraVars(vars, opts.Extra), nil)
	return err
}

// Predict implements serving.Platform.
func (c *Client) Predict(ctx context.Context, payload serving.Payload) (*serving.PredictResult, error) {
	return do[*serving.PredictResult](ctx, &c.resource, "POST", restdata.PredictTemplate, map[string]interface{}{}, body(payload))
}

// Train implements serving.Platform.
func (c *Client) Train(ctx context.Context, payload serving.Payload) (*serving.JobInfo, error) {
	return do[*serving.JobInfo](ctx, &c.resource, "POST", restdata.TrainTemplate, map[string]interface{}{}, body(payload))
}

// TrainStatus implements serving.Platform.
func (c *Client) TrainStatus(ctx context.Context, q serving.JobQuery) (*serving.JobInfo, error) {
	return do[*serving.JobInfo](ctx, &c.resource, "GET", restdata.TrainTemplate, jobVars(q), nil)
}

// DeleteTrain implements serving.Platform.
func (c *Client) DeleteTrain(ctx context.Context, q serving.JobQuery) (*serving.JobInfo, error) {
	return do[*serving.JobInfo](ctx, &c.resource, "DELETE", restdata.TrainTemplate, jobVars(q), nil)
}

// Chain implements serving.Platform.
func (c *Client) Chain(ctx context.Context, name string, payload serving.Payload) (*serving.ChainResult, error) {
	if err := requireName(name); err != nil {
		return nil, err
	}
	vars := map[string]interface{}{"name": name}
	return do[*serving.ChainResult](ctx, &c.resource, "POST", restdata.ChainTemplate, vars, body(payload))
}

// CreateResource implements serving.Platform.
func (c *Client) CreateResource(ctx context.Context, name string, payload serving.Payload) (*serving.ResourceInfo, error) {
	if err := requireName(name); err != nil {
		return nil, err
	}
	vars := map[string]interface{}{"name": name}
	return do[*serving.ResourceInfo](ctx, &c.resource, "PUT", restdata.ResourceTemplate, vars, body(payload))
}

// Resource implements serving.Platform.
func (c *Client) Resource(ctx context.Context, name string) (*serving.ResourceInfo, error) {
	if err := requireName(name); err != nil {
		return nil, err
	}
	vars := map[string]interface{}{"name": name}
	return do[*serving.ResourceInfo](ctx, &c.resource, "GET", restdata.ResourceTemplate, vars, nil)
}

// DeleteResource implements serving.Platform.
func (c *Client) DeleteResource(ctx context.Context, name string) error {
	if err := requireName(name); err != nil {
		return err
	}
	vars := map[string]interface{}{"name": name}
	_, err := do[interface{}](ctx, &c.resource, "DELETE", restdata.ResourceTemplate, vars, nil)
	return err
}

// CreateStream implements serving.Platform.
func (c *Client) CreateStream(ctx context.Context, name string, payload serving.Payload) (*serving.StreamInfo, error) {
	if err := requireName(name); err != nil {
		return nil, err
	}
	vars := map[string]interface{}{"name": name}
	return do[*serving.StreamInfo](ctx, &c.resource, "PUT", restdata.StreamTemplate, vars, body(payload))
}

// Stream implements serving.Platform.
func (c *Client) Stream(ctx context.Context, name string) (*serving.StreamInfo, error) {
	if err := requireName(name); err != nil {
		return nil, err
	}
	vars := map[string]interface{}{"name": name}
	return do[*serving.StreamInfo](ctx, &c.resource, "GET", restdata.StreamTemplate, vars, nil)
}

// DeleteStream implements serving.Platform.
func (c *Client) DeleteStream(ctx context.Context, name string) error {
	if err := requireName(name); err != nil {
		return err
	}
	vars := map[string]interface{}{"name": name}
	_, err := do[interface{}](ctx, &c.resource, "DELETE", restdata.StreamTemplate, vars, nil)
	return err
}
