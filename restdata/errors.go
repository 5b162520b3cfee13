// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/diffeo/go-modelserve/serving"
)

// DeepDetect refined status codes.
const (
	DDServiceNotFound = 1002
	DDAlreadyExists   = 1015
)

// ErrorStatus describes errors that correspond to specific HTTP status
// codes.
type ErrorStatus interface {
	// HTTPStatus returns the HTTP status code for this error.
	HTTPStatus() int
}

// ErrUnsupportedMediaType is returned from Decode() if the provided
// Content-Type: is unrecognized.  This translates directly into the
// equivalent HTTP 415 error.
type ErrUnsupportedMediaType struct {
	Type string
}

func (e ErrUnsupportedMediaType) Error() string {
	return fmt.Sprintf("Unsupported media type %q", e.Type)
}

// HTTPStatus returns a fixed 415 Unsupported Media Type error code.
func (e ErrUnsupportedMediaType) HTTPStatus() int {
	return http.StatusUnsupportedMediaType
}

// ErrNotFound is a wrapper error that indicates that, due to the
// embedded error, a REST service should return a 404 Not Found error.
type ErrNotFound struct {
	Err error
}

func (e ErrNotFound) Error() string {
	return e.Err.Error()
}

// Unwrap returns the embedded error.
func (e ErrNotFound) Unwrap() error {
	return e.Err
}

// HTTPStatus returns a fixed 404 Not Found error code.
func (e ErrNotFound) HTTPStatus() int {
	return http.StatusNotFound
}

// ErrBadRequest is returned as an error when there is an error decoding
// HTTP headers or the request body.
type ErrBadRequest struct {
	Err error
}

func (e ErrBadRequest) Error() string {
	return e.Err.Error()
}

// Unwrap returns the embedded error.
func (e ErrBadRequest) Unwrap() error {
	return e.Err
}

// HTTPStatus returns a fixed 400 Bad Request HTTP status code.
func (e ErrBadRequest) HTTPStatus() int {
	return http.StatusBadRequest
}

// ErrRemote is returned from ToError for failures that do not name a
// known typed error.
type ErrRemote struct {
	Code    int
	Message string
}

func (e ErrRemote) Error() string {
	return e.Message
}

// HTTPStatus returns the status code the server sent.
func (e ErrRemote) HTTPStatus() int {
	return e.Code
}

// StatusOf returns the HTTP status code that reports err.  Errors
// implementing ErrorStatus choose their own code; anything else is
// classified with serving.OutcomeOf.
func StatusOf(err error) int {
	var withStatus ErrorStatus
	if errors.As(err, &withStatus) {
		return withStatus.HTTPStatus()
	}
	return serving.OutcomeOf(err).HTTPStatus()
}

// FromError populates a Status to describe err.  This remaps the
// well-known serving errors to specific Error codes, and fills in
// the DeepDetect dd_code.
func (s *Status) FromError(err error) {
	*s = OK(StatusOf(err))
	s.DDCode = s.Code
	s.DDMsg = err.Error()

	var (
		badParam     serving.ErrBadParameter
		noService    serving.ErrNoSuchService
		noResource   serving.ErrNoSuchResource
		noStream     serving.ErrNoSuchStream
		gone         serving.ErrGone
		exists       serving.ErrAlreadyExists
		busy         serving.ErrBusy
		running      serving.ErrJobRunning
		forbidden    serving.ErrForbidden
		streamFailed serving.ErrStreamFailed
		unsupported  ErrUnsupportedMediaType
	)
	switch {
	case errors.Is(err, serving.ErrMissingBody):
		s.Error = "ErrMissingBody"
	case errors.As(err, &badParam):
		s.Error = "ErrBadParameter"
		s.Value = badParam.Param
		s.Detail = badParam.Reason
	case errors.As(err, &noService):
		s.Error = "ErrNoSuchService"
		s.Value = noService.Name
		s.DDCode = DDServiceNotFound
		s.DDMsg = "Service Not Found"
	case errors.As(err, &noResource):
		s.Error = "ErrNoSuchResource"
		s.Value = noResource.Name
	case errors.As(err, &noStream):
		s.Error = "ErrNoSuchStream"
		s.Value = noStream.Name
	case errors.As(err, &gone):
		s.Error = "ErrGone"
		s.Kind = gone.Kind.String()
		s.Value = gone.Name
	case errors.As(err, &exists):
		s.Error = "ErrAlreadyExists"
		s.Kind = exists.Kind.String()
		s.Value = exists.Name
		s.DDCode = DDAlreadyExists
		s.DDMsg = "Resource already exists"
	case errors.As(err, &busy):
		s.Error = "ErrBusy"
		s.Kind = busy.Kind.String()
		s.Value = busy.Name
		s.Detail = busy.Status.String()
	case errors.As(err, &running):
		s.Error = "ErrJobRunning"
		s.Value = running.Service
		s.Job = running.Job
	case errors.As(err, &forbidden):
		s.Error = "ErrForbidden"
		s.Detail = forbidden.Reason
	case errors.As(err, &streamFailed):
		s.Error = "ErrStreamFailed"
		s.Value = streamFailed.Name
		s.Detail = streamFailed.Message
	case errors.As(err, &unsupported):
		s.Error = "ErrUnsupportedMediaType"
		s.Value = unsupported.Type
	}

	// Every conflict, not only a duplicate name, is reported with
	// the same refined code
	if serving.OutcomeOf(err) == serving.Conflict {
		s.DDCode = DDAlreadyExists
		s.DDMsg = "Resource already exists"
	}
}

// ToError converts s back to a serving error, if that is possible.
// If not, returns an ErrRemote with the server's message.
func (s Status) ToError() error {
	var kind serving.EntityKind
	_ = kind.UnmarshalText([]byte(s.Kind))

	switch s.Error {
	case "ErrMissingBody":
		return serving.ErrMissingBody
	case "ErrBadParameter":
		return serving.ErrBadParameter{Param: s.Value, Reason: s.Detail}
	case "ErrNoSuchService":
		return serving.ErrNoSuchService{Name: s.Value}
	case "ErrNoSuchResource":
		return serving.ErrNoSuchResource{Name: s.Value}
	case "ErrNoSuchStream":
		return serving.ErrNoSuchStream{Name: s.Value}
	case "ErrGone":
		return serving.ErrGone{Kind: kind, Name: s.Value}
	case "ErrAlreadyExists":
		return serving.ErrAlreadyExists{Kind: kind, Name: s.Value}
	case "ErrBusy":
		var status serving.EntityStatus
		_ = status.UnmarshalText([]byte(s.Detail))
		return serving.ErrBusy{Kind: kind, Name: s.Value, Status: status}
	case "ErrJobRunning":
		return serving.ErrJobRunning{Service: s.Value, Job: s.Job}
	case "ErrForbidden":
		return serving.ErrForbidden{Reason: s.Detail}
	case "ErrStreamFailed":
		return serving.ErrStreamFailed{Name: s.Value, Message: s.Detail}
	case "ErrUnsupportedMediaType":
		return ErrUnsupportedMediaType{Type: s.Value}
	}
	msg := s.DDMsg
	if msg == "" {
		msg = s.Msg
	}
	return ErrRemote{Code: s.Code, Message: msg}
}

// FromPanic populates a Status to report a recovered panic.  This is
// an internal fault with no message; the panic value itself is not
// sent to the client.
func (s *Status) FromPanic(obj interface{}) {
	*s = OK(http.StatusInternalServerError)
	s.DDCode = s.Code
	s.Error = "panic"
}
