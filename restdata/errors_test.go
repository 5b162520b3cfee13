// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/diffeo/go-modelserve/serving"
)

func TestErrorRoundTrip(t *testing.T) {
	errs := []error{
		serving.ErrMissingBody,
		serving.ErrBadParameter{Param: "status", Reason: "status must be a boolean"},
		serving.ErrNoSuchService{Name: "mnist"},
		serving.ErrNoSuchResource{Name: "cam"},
		serving.ErrNoSuchStream{Name: "out"},
		serving.ErrGone{Kind: serving.ResourceKind, Name: "cam"},
		serving.ErrAlreadyExists{Kind: serving.StreamKind, Name: "out"},
		serving.ErrBusy{Kind: serving.ServiceKind, Name: "mnist", Status: serving.StatusDeleting},
		serving.ErrJobRunning{Service: "mnist", Job: 3},
		serving.ErrForbidden{Reason: "gpu is busy"},
		serving.ErrStreamFailed{Name: "out", Message: "decoder crashed"},
		ErrUnsupportedMediaType{Type: "application/xml"},
	}
	for _, err := range errs {
		var status Status
		status.FromError(err)
		assert.Equal(t, StatusOf(err), status.Code, "%v", err)
		assert.Equal(t, err, status.ToError())
	}
}

type CodeMatrix struct {
	Err    error
	Code   int
	Msg    string
	DDCode int
	DDMsg  string
}

var codes = []CodeMatrix{
	{serving.ErrBadParameter{Param: "labels", Reason: "labels must be a boolean"},
		400, "BadRequest", 400, "labels must be a boolean"},
	{serving.ErrNoSuchService{Name: "mnist"},
		404, "NotFound", DDServiceNotFound, "Service Not Found"},
	{serving.ErrNoSuchResource{Name: "cam"},
		404, "NotFound", 404, "No such resource cam"},
	{serving.ErrAlreadyExists{Kind: serving.ResourceKind, Name: "cam"},
		409, "Conflict", DDAlreadyExists, "Resource already exists"},
	{serving.ErrJobRunning{Service: "mnist", Job: 1},
		409, "Conflict", DDAlreadyExists, "Resource already exists"},
	{serving.ErrForbidden{Reason: "device claimed"},
		409, "Conflict", DDAlreadyExists, "Resource already exists"},
	{serving.ErrBusy{Kind: serving.StreamKind, Name: "out", Status: serving.StatusDeleting},
		409, "Conflict", DDAlreadyExists, "Resource already exists"},
	{errors.New("segfault"),
		500, "InternalError", 500, "segfault"},
	{ErrBadRequest{Err: errors.New("bad json")},
		400, "BadRequest", 400, "bad json"},
	{ErrNotFound{Err: serving.ErrNoSuchService{Name: "x"}},
		404, "NotFound", DDServiceNotFound, "Service Not Found"},
}

func TestFromErrorCodes(t *testing.T) {
	for _, c := range codes {
		var status Status
		status.FromError(c.Err)
		assert.Equal(t, c.Code, status.Code, "%v", c.Err)
		assert.Equal(t, c.Msg, status.Msg, "%v", c.Err)
		assert.Equal(t, c.DDCode, status.DDCode, "%v", c.Err)
		assert.Equal(t, c.DDMsg, status.DDMsg, "%v", c.Err)
	}
}

func TestUnknownErrorToError(t *testing.T) {
	var status Status
	status.FromError(errors.New("out of memory"))
	err := status.ToError()
	assert.EqualError(t, err, "out of memory")
	assert.Equal(t, serving.InternalFault, serving.OutcomeOf(err))
	assert.Equal(t, 500, StatusOf(err))
}

func TestFromPanic(t *testing.T) {
	var status Status
	status.FromPanic(errors.New("nil pointer dereference"))
	assert.Equal(t, 500, status.Code)
	assert.Equal(t, 500, status.DDCode)
	assert.Empty(t, status.DDMsg)

	err := status.ToError()
	assert.Equal(t, serving.InternalFault, serving.OutcomeOf(err))
	assert.Equal(t, 500, StatusOf(err))
}
