// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package serving_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/diffeo/go-modelserve/serving"
)

func TestOutcomeOf(t *testing.T) {
	cases := []struct {
		Err     error
		Outcome serving.Outcome
	}{
		{nil, serving.Success},
		{serving.ErrMissingBody, serving.InvalidParameter},
		{serving.ErrBadParameter{Param: "status"}, serving.InvalidParameter},
		{serving.ErrNoSuchService{Name: "s"}, serving.NotFound},
		{serving.ErrNoSuchResource{Name: "r"}, serving.NotFound},
		{serving.ErrNoSuchStream{Name: "s"}, serving.NotFound},
		{serving.ErrGone{Kind: serving.ResourceKind, Name: "r"}, serving.NotFound},
		{serving.ErrAlreadyExists{Kind: serving.ResourceKind, Name: "r"}, serving.Conflict},
		{serving.ErrBusy{Kind: serving.ServiceKind, Name: "s"}, serving.Conflict},
		{serving.ErrJobRunning{Service: "s", Job: 1}, serving.Conflict},
		{serving.ErrForbidden{Reason: "no"}, serving.Conflict},
		{serving.ErrStreamFailed{Name: "s", Message: "boom"}, serving.InternalFault},
		{errors.New("anything else"), serving.InternalFault},
		{context.Canceled, serving.InternalFault},
	}
	for _, c := range cases {
		assert.Equal(t, c.Outcome, serving.OutcomeOf(c.Err), "%v", c.Err)
	}
}

func TestOutcomeOfWrapped(t *testing.T) {
	err := fmt.Errorf("opening camera: %w", serving.ErrBadParameter{Reason: "bad source"})
	assert.Equal(t, serving.InvalidParameter, serving.OutcomeOf(err))

	err = fmt.Errorf("engine: %w", serving.ErrForbidden{Reason: "claimed"})
	assert.Equal(t, serving.Conflict, serving.OutcomeOf(err))
}

func TestNoSuch(t *testing.T) {
	assert.Equal(t, serving.ErrNoSuchService{Name: "a"}, serving.NoSuch(serving.ServiceKind, "a"))
	assert.Equal(t, serving.ErrNoSuchResource{Name: "a"}, serving.NoSuch(serving.ResourceKind, "a"))
	assert.Equal(t, serving.ErrNoSuchStream{Name: "a"}, serving.NoSuch(serving.StreamKind, "a"))
}

func TestErrBadParameterMessage(t *testing.T) {
	assert.EqualError(t, serving.ErrBadParameter{Param: "labels"}, "Invalid parameter labels")
	assert.EqualError(t, serving.ErrBadParameter{
		Param:  "labels",
		Reason: "labels must be a boolean value",
	}, "labels must be a boolean value")
}

func TestIsCancellation(t *testing.T) {
	assert.True(t, serving.IsCancellation(context.Canceled))
	assert.True(t, serving.IsCancellation(fmt.Errorf("train: %w", context.Canceled)))
	assert.False(t, serving.IsCancellation(errors.New("boom")))
}

func TestOutcomeHTTPStatus(t *testing.T) {
	assert.Equal(t, 200, serving.Success.HTTPStatus())
	assert.Equal(t, 201, serving.Created.HTTPStatus())
	assert.Equal(t, 400, serving.InvalidParameter.HTTPStatus())
	assert.Equal(t, 404, serving.NotFound.HTTPStatus())
	assert.Equal(t, 409, serving.Conflict.HTTPStatus())
	assert.Equal(t, 500, serving.InternalFault.HTTPStatus())
}
