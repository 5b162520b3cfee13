// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package serving defines the abstract API of the model-serving control
// plane.
//
// The control plane manages three kinds of named entities: services
// (loaded machine-learning models), resources (reusable execution
// contexts such as an opened video source) and streams (continuous
// predictions over a resource).  It also launches training jobs against
// services and runs single and chained predictions.
//
// Platform is the top-level interface.  The lifecycle package provides
// the in-process implementation; the restclient package provides an
// implementation that talks to a remote restserver.  Both delegate the
// actual machine learning to an Engine, which this package only
// describes.
//
// Request bodies for service creation, prediction, training, chains,
// resources and streams are opaque Payload dictionaries.  The control
// plane only reads the few keys it needs to route a request (typically
// "service" or "resource"); everything else is passed through to the
// Engine untouched.
package serving

import (
	"context"
	"time"
)

// Payload is an arbitrary JSON-compatible dictionary supplied by a
// client or produced by an Engine.
type Payload map[string]interface{}

// Platform is the complete control-plane API.
type Platform interface {
	// Info returns general information about the server, including
	// the list of known services.
	Info(ctx context.Context, opts InfoOptions) (*Info, error)

	// Service returns information about a single service.  If no
	// service with this name exists, returns nil with no error.
	Service(ctx context.Context, name string, opts StatusOptions) (*ServiceInfo, error)

	// CreateService creates a new service.  If a live service
	// already has this name, returns ErrAlreadyExists.
	CreateService(ctx context.Context, name string, payload Payload) (*ServiceInfo, error)

	// DeleteService tears down a service, cancelling any training
	// job running against it.  Deleting a service that does not
	// exist succeeds without doing anything.
	DeleteService(ctx context.Context, name string, opts DeleteOptions) error

	// Predict runs a single prediction.  The target service is
	// named by the "service" key of the payload.
	Predict(ctx context.Context, payload Payload) (*PredictResult, error)

	// Train starts a training job.  The target service is named by
	// the "service" key of the payload; the "async" key (default
	// true) selects whether the call waits for the job to finish.
	Train(ctx context.Context, payload Payload) (*JobInfo, error)

	// TrainStatus returns the current or most recent training job
	// for a service, or nil if there is none.
	TrainStatus(ctx context.Context, q JobQuery) (*JobInfo, error)

	// DeleteTrain cancels and forgets a training job.  It returns
	// the final state of the job, or nil if there was none.
	DeleteTrain(ctx context.Context, q JobQuery) (*JobInfo, error)

	// Chain runs a sequence of predictions.  A failing step is
	// reported in the result, not as an error.
	Chain(ctx context.Context, name string, payload Payload) (*ChainResult, error)

	// CreateResource opens a new named resource.  Resource names
	// are never silently reused: if one already exists this
	// returns ErrAlreadyExists.
	CreateResource(ctx context.Context, name string, payload Payload) (*ResourceInfo, error)

	// Resource returns information about a resource, or
	// ErrNoSuchResource.
	Resource(ctx context.Context, name string) (*ResourceInfo, error)

	// DeleteResource closes and forgets a resource, or returns
	// ErrNoSuchResource.
	DeleteResource(ctx context.Context, name string) error

	// CreateStream starts a streaming prediction over a resource.
	CreateStream(ctx context.Context, name string, payload Payload) (*StreamInfo, error)

	// Stream returns information about a stream, or
	// ErrNoSuchStream.
	Stream(ctx context.Context, name string) (*StreamInfo, error)

	// DeleteStream stops and forgets a stream.  The returned error
	// reflects the outcome of stopping it: ErrNoSuchStream if it
	// never existed, ErrStreamFailed if it had already died with
	// an error, nil otherwise.
	DeleteStream(ctx context.Context, name string) error
}

// InfoOptions control the verbosity of Platform.Info.
type InfoOptions struct {
	// Status includes per-service model status.
	Status bool
}

// StatusOptions control the verbosity of Platform.Service.
type StatusOptions struct {
	// Status includes model status and the current training job.
	Status bool

	// Labels includes the model's output labels.
	Labels bool
}

// DeleteOptions are passed to Platform.DeleteService.
type DeleteOptions struct {
	// Clear selects what is removed along with the service.  The
	// zero value means ClearMem.
	Clear ClearMode

	// Extra holds any other query parameters, forwarded verbatim.
	Extra map[string]string
}

// JobQuery identifies a training job.
type JobQuery struct {
	// Service names the service the job runs against.  Required.
	Service string

	// Job is the job identifier.  Zero matches any job.
	Job int

	// Extra holds any other query parameters, forwarded verbatim.
	Extra map[string]string
}

// Info is the server-wide summary returned by Platform.Info.
type Info struct {
	Version  string        `json:"version"`
	Instance string        `json:"instance"`
	Services []ServiceInfo `json:"services"`
}

// ModelDescription is the static description of a loaded model.
type ModelDescription struct {
	MLLib       string   `json:"mllib"`
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Labels      []string `json:"labels,omitempty"`
}

// ServiceInfo describes a service.
type ServiceInfo struct {
	Name        string           `json:"name"`
	Status      EntityStatus     `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	LastTouched time.Time        `json:"last_touched"`
	Model       ModelDescription `json:"model"`

	// Details holds live model status, if requested.
	Details Payload `json:"details,omitempty"`

	// Job is the current or most recent training job, if status
	// was requested.
	Job *JobInfo `json:"job,omitempty"`
}

// PredictResult is the outcome of a single prediction.
type PredictResult struct {
	Service string `json:"service"`

	// Time is the wall-clock prediction time in milliseconds.
	Time float64 `json:"time"`

	Result Payload `json:"result"`
}

// JobInfo is a snapshot of a training job.
type JobInfo struct {
	ID         int       `json:"job"`
	Service    string    `json:"service"`
	Mode       JobMode   `json:"mode"`
	State      JobState  `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`

	// Progress holds the most recent progress report (for
	// instance, measures at the current iteration).
	Progress Payload `json:"measure,omitempty"`

	// Result holds the final engine output of a completed job.
	Result Payload `json:"result,omitempty"`

	// Error holds the failure message of a failed job.
	Error string `json:"error,omitempty"`
}

// Step outcomes within a ChainResult.
const (
	StepOK      = "ok"
	StepFailed  = "failed"
	StepSkipped = "skipped"
)

// ChainStep is the outcome of one call within a chain.
type ChainStep struct {
	ID      string  `json:"id"`
	Service string  `json:"service"`
	Status  string  `json:"status"`
	Code    int     `json:"code,omitempty"`
	Error   string  `json:"error,omitempty"`
	Result  Payload `json:"result,omitempty"`
}

// ChainResult is the outcome of a chain call.
type ChainResult struct {
	Name string `json:"name"`

	// Run is a unique identifier for this execution of the chain.
	Run string `json:"run"`

	Steps []ChainStep `json:"steps"`

	// FailedStep is the index of the first failing step, or -1.
	FailedStep int `json:"failed_step"`
}

// ResourceInfo describes a resource.
type ResourceInfo struct {
	Name        string       `json:"name"`
	Status      EntityStatus `json:"status"`
	Open        bool         `json:"open"`
	CreatedAt   time.Time    `json:"created_at"`
	LastTouched time.Time    `json:"last_touched"`
	Details     Payload      `json:"details,omitempty"`
}

// StreamInfo describes a stream.
type StreamInfo struct {
	Name      string       `json:"name"`
	Status    EntityStatus `json:"status"`
	Resource  string       `json:"resource"`
	Service   string       `json:"service"`
	Running   bool         `json:"running"`
	Frames    int          `json:"frames"`
	CreatedAt time.Time    `json:"created_at"`
	Last      Payload      `json:"last,omitempty"`
	Error     string       `json:"error,omitempty"`
}
