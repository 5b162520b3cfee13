// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package servingtest

import (
	"github.com/diffeo/go-modelserve/serving"
)

// TestPredict runs a simple prediction.
func (s *Suite) TestPredict() {
	s.CreateService("mnist")

	result, err := s.Platform.Predict(s.ctx(), serving.Payload{
		"service": "mnist",
		"data":    "image.png",
	})
	if s.NoError(err) && s.NotNil(result) {
		s.Equal("mnist", result.Service)
		s.Equal("mnist", result.Result["model"])
		s.Equal("image.png", result.Result["data"])
	}
}

// TestPredictErrors checks how prediction failures are classified.
func (s *Suite) TestPredictErrors() {
	_, err := s.Platform.Predict(s.ctx(), nil)
	s.Outcome(serving.InvalidParameter, err)

	_, err = s.Platform.Predict(s.ctx(), serving.Payload{"data": "x"})
	s.Outcome(serving.InvalidParameter, err)

	_, err = s.Platform.Predict(s.ctx(), serving.Payload{"service": "missing"})
	s.Outcome(serving.NotFound, err)

	s.CreateService("mnist")
	_, err = s.Platform.Predict(s.ctx(), serving.Payload{
		"service": "mnist",
		"bad":     "image is corrupt",
	})
	s.Outcome(serving.InvalidParameter, err)

	_, err = s.Platform.Predict(s.ctx(), serving.Payload{
		"service": "mnist",
		"forbid":  "gpu is busy",
	})
	s.Outcome(serving.Conflict, err)

	_, err = s.Platform.Predict(s.ctx(), serving.Payload{
		"service": "mnist",
		"fail":    "segfault",
	})
	s.Outcome(serving.InternalFault, err)

	_, err = s.Platform.Predict(s.ctx(), serving.Payload{
		"service":  "mnist",
		"resource": "missing",
	})
	s.Outcome(serving.NotFound, err)
}

// TestPredictResource runs predictions reading from a resource.
func (s *Suite) TestPredictResource() {
	s.CreateService("mnist")
	s.CreateResource("cam", 1)

	result, err := s.Platform.Predict(s.ctx(), serving.Payload{
		"service":  "mnist",
		"resource": "cam",
	})
	if s.NoError(err) && s.NotNil(result) {
		frame, ok := serving.Object(result.Result["frame"])
		if s.True(ok) {
			s.EqualValues(0, frame["index"])
		}
	}

	// The resource only had one frame
	_, err = s.Platform.Predict(s.ctx(), serving.Payload{
		"service":  "mnist",
		"resource": "cam",
	})
	s.Outcome(serving.InternalFault, err)
}

// TestChain runs a chain of predictions.
func (s *Suite) TestChain() {
	s.CreateService("detect")
	s.CreateService("classify")

	result, err := s.Platform.Chain(s.ctx(), "pipeline", serving.Payload{
		"chain": map[string]interface{}{
			"calls": []interface{}{
				map[string]interface{}{"service": "detect", "data": "a"},
				map[string]interface{}{"service": "classify", "id": "labels"},
			},
		},
	})
	if s.NoError(err) && s.NotNil(result) {
		s.Equal("pipeline", result.Name)
		s.NotEmpty(result.Run)
		s.Equal(-1, result.FailedStep)
		if s.Len(result.Steps, 2) {
			s.Equal("0", result.Steps[0].ID)
			s.Equal("detect", result.Steps[0].Service)
			s.Equal(serving.StepOK, result.Steps[0].Status)
			s.Equal("a", result.Steps[0].Result["data"])
			s.Equal("labels", result.Steps[1].ID)
			s.Equal(serving.StepOK, result.Steps[1].Status)
		}
	}
}

// TestChainStepFailure checks that a failing step is reported in the
// result, and later steps are skipped.
func (s *Suite) TestChainStepFailure() {
	s.CreateService("detect")

	result, err := s.Platform.Chain(s.ctx(), "pipeline", serving.Payload{
		"chain": map[string]interface{}{
			"calls": []interface{}{
				map[string]interface{}{"service": "detect"},
				map[string]interface{}{"service": "missing"},
				map[string]interface{}{"service": "detect"},
			},
		},
	})
	if s.NoError(err) && s.NotNil(result) {
		s.Equal(1, result.FailedStep)
		if s.Len(result.Steps, 3) {
			s.Equal(serving.StepOK, result.Steps[0].Status)
			s.Equal(serving.StepFailed, result.Steps[1].Status)
			s.Equal(404, result.Steps[1].Code)
			s.NotEmpty(result.Steps[1].Error)
			s.Equal(serving.StepSkipped, result.Steps[2].Status)
		}
	}
}

// TestChainMalformed checks that a malformed chain is a bad request.
func (s *Suite) TestChainMalformed() {
	_, err := s.Platform.Chain(s.ctx(), "pipeline", serving.Payload{"calls": []interface{}{}})
	s.Outcome(serving.InvalidParameter, err)

	_, err = s.Platform.Chain(s.ctx(), "pipeline", serving.Payload{
		"chain": map[string]interface{}{"calls": "detect"},
	})
	s.Outcome(serving.InvalidParameter, err)

	_, err = s.Platform.Chain(s.ctx(), "pipeline", serving.Payload{
		"chain": map[string]interface{}{"calls": []interface{}{"detect"}},
	})
	s.Outcome(serving.InvalidParameter, err)

	_, err = s.Platform.Chain(s.ctx(), "pipeline", nil)
	s.Outcome(serving.InvalidParameter, err)
}
