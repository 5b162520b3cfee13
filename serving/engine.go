// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package serving

import (
	"context"
	"time"
)

// Engine is the machine-learning collaborator behind the control
// plane.  The control plane guarantees that it calls Engine methods
// for a given service, resource or stream only while that entity is
// registered and live; implementations do not need to do their own
// name bookkeeping.
//
// Engine methods may return ErrBadParameter for invalid payloads and
// ErrForbidden when the engine refuses an otherwise valid request.
// Any other error is reported to clients as an internal fault.
type Engine interface {
	// CreateService loads a model for a new service.
	CreateService(ctx context.Context, name string, payload Payload) (Model, error)

	// ReleaseService unloads a model from memory.  It is called
	// for every deleted service regardless of clear mode.
	ReleaseService(ctx context.Context, name string, model Model) error

	// ClearService removes on-disk state for a service according
	// to mode.  It is called exactly once per delete, and never
	// for ClearMem.
	ClearService(ctx context.Context, name string, mode ClearMode) error

	// Predict runs a prediction.  The payload is the complete
	// client request.
	Predict(ctx context.Context, model Model, payload Payload) (Payload, error)

	// Train runs a training job to completion.  It must return
	// promptly once ctx is cancelled.  progress may be called any
	// number of times with intermediate measures.
	Train(ctx context.Context, model Model, payload Payload, progress func(Payload)) (Payload, error)

	// OpenResource opens a new resource.
	OpenResource(ctx context.Context, name string, payload Payload) (Resource, error)

	// CloseResource releases a resource.  No other calls on the
	// resource are in flight when this is called.
	CloseResource(ctx context.Context, resource Resource) error

	// RunStream runs a streaming prediction until the resource is
	// exhausted (returning nil) or ctx is cancelled.  progress is
	// called once per processed frame.
	RunStream(ctx context.Context, run StreamRun) error
}

// Model is a service's loaded model.  Each engine-specific variant
// implements it.
type Model interface {
	// Describe returns the static description of the model.  If
	// labels is false the Labels field is left empty.
	Describe(labels bool) ModelDescription

	// Status returns live model status.
	Status() Payload
}

// Resource is an opened resource.
type Resource interface {
	// Describe returns engine-specific details of the resource.
	Describe() Payload

	// Next reads the next input frame from the resource.  It
	// returns io.EOF when the resource is exhausted.
	Next(ctx context.Context) (Payload, error)
}

// StreamRun carries everything an Engine needs to run a stream.
type StreamRun struct {
	Name     string
	Model    Model
	Resource Resource

	// Payload is the complete stream creation request.
	Payload Payload

	// Progress is called with the prediction output of each frame.
	Progress func(Payload)
}

// ServiceDefinition is the persistent record of a created service.
type ServiceDefinition struct {
	Name      string
	Payload   Payload
	CreatedAt time.Time
}

// Store persists service definitions so that services can be
// recreated when the server restarts.
type Store interface {
	// PutService records a service definition, replacing any
	// existing record with the same name.
	PutService(ctx context.Context, def ServiceDefinition) error

	// DeleteService removes a service definition.  Removing an
	// absent record is not an error.
	DeleteService(ctx context.Context, name string) error

	// Services returns all recorded definitions, ordered by
	// creation time.
	Services(ctx context.Context) ([]ServiceDefinition, error)
}
