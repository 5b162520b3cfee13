// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package serving

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Outcome classifies the result of a control-plane operation.
type Outcome int

// Outcome kinds.  Every error maps to exactly one of the non-success
// outcomes; see OutcomeOf.
const (
	Success Outcome = iota
	Created
	InvalidParameter
	NotFound
	Conflict
	InternalFault
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Created:
		return "created"
	case InvalidParameter:
		return "invalid parameter"
	case NotFound:
		return "not found"
	case Conflict:
		return "conflict"
	case InternalFault:
		return "internal fault"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// HTTPStatus returns the HTTP status code reported for an outcome.
func (o Outcome) HTTPStatus() int {
	switch o {
	case Success:
		return http.StatusOK
	case Created:
		return http.StatusCreated
	case InvalidParameter:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ErrMissingBody is returned when a request that requires a payload
// has none.
var ErrMissingBody = errors.New("Request body is missing")

// ErrNoSuchService is returned when a request names a service that
// does not exist.
type ErrNoSuchService struct {
	Name string
}

func (err ErrNoSuchService) Error() string {
	return fmt.Sprintf("No such service %v", err.Name)
}

// ErrNoSuchResource is returned when a request names a resource that
// does not exist.
type ErrNoSuchResource struct {
	Name string
}

func (err ErrNoSuchResource) Error() string {
	return fmt.Sprintf("No such resource %v", err.Name)
}

// ErrNoSuchStream is returned when a request names a stream that does
// not exist.
type ErrNoSuchStream struct {
	Name string
}

func (err ErrNoSuchStream) Error() string {
	return fmt.Sprintf("No such stream %v", err.Name)
}

// NoSuch returns the not-found error for an entity kind.
func NoSuch(kind EntityKind, name string) error {
	switch kind {
	case ServiceKind:
		return ErrNoSuchService{Name: name}
	case ResourceKind:
		return ErrNoSuchResource{Name: name}
	case StreamKind:
		return ErrNoSuchStream{Name: name}
	default:
		return fmt.Errorf("No such %v %v", kind, name)
	}
}

// ErrAlreadyExists is returned when creating an entity whose name is
// already in use.
type ErrAlreadyExists struct {
	Kind EntityKind
	Name string
}

func (err ErrAlreadyExists) Error() string {
	return fmt.Sprintf("%v %v already exists", err.Kind, err.Name)
}

// ErrBusy is returned when an entity cannot be changed because it is
// still being created or is already being deleted.
type ErrBusy struct {
	Kind   EntityKind
	Name   string
	Status EntityStatus
}

func (err ErrBusy) Error() string {
	return fmt.Sprintf("%v %v is %v", err.Kind, err.Name, err.Status)
}

// ErrGone is returned to operations whose entity was deleted while
// they were using it.
type ErrGone struct {
	Kind EntityKind
	Name string
}

func (err ErrGone) Error() string {
	return fmt.Sprintf("%v %v was deleted", err.Kind, err.Name)
}

// ErrJobRunning is returned when starting a training job against a
// service that already has one running.
type ErrJobRunning struct {
	Service string
	Job     int
}

func (err ErrJobRunning) Error() string {
	return fmt.Sprintf("Training job %d is already running on service %v", err.Job, err.Service)
}

// ErrBadParameter is returned when a request parameter or payload
// field is malformed.  Engines return it for invalid payloads.
type ErrBadParameter struct {
	Param  string
	Reason string
}

func (err ErrBadParameter) Error() string {
	if err.Reason != "" {
		return err.Reason
	}
	return fmt.Sprintf("Invalid parameter %v", err.Param)
}

// ErrForbidden is returned by engines that refuse an otherwise valid
// request, for instance because an underlying device is already
// claimed.
type ErrForbidden struct {
	Reason string
}

func (err ErrForbidden) Error() string {
	return err.Reason
}

// ErrStreamFailed is returned from DeleteStream when the stream had
// already stopped with an error.
type ErrStreamFailed struct {
	Name    string
	Message string
}

func (err ErrStreamFailed) Error() string {
	return fmt.Sprintf("Stream %v failed: %v", err.Name, err.Message)
}

// OutcomeOf classifies an error.  nil is Success; errors that are
// not one of this package's domain errors are InternalFault.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return Success
	}
	var (
		badParam   ErrBadParameter
		noService  ErrNoSuchService
		noResource ErrNoSuchResource
		noStream   ErrNoSuchStream
		gone       ErrGone
		exists     ErrAlreadyExists
		busy       ErrBusy
		running    ErrJobRunning
		forbidden  ErrForbidden
	)
	switch {
	case errors.Is(err, ErrMissingBody), errors.As(err, &badParam):
		return InvalidParameter
	case errors.As(err, &noService), errors.As(err, &noResource),
		errors.As(err, &noStream), errors.As(err, &gone):
		return NotFound
	case errors.As(err, &exists), errors.As(err, &busy),
		errors.As(err, &running), errors.As(err, &forbidden):
		return Conflict
	default:
		return InternalFault
	}
}

// IsCancellation returns true if err only reports that a context was
// cancelled.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}
