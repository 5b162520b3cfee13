// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package servingtest

import (
	"github.com/diffeo/go-modelserve/serving"
)

// trainStatus fetches the current training job for a service.
func (s *Suite) trainStatus(service string) *serving.JobInfo {
	info, err := s.Platform.TrainStatus(s.ctx(), serving.JobQuery{Service: service})
	s.Require().NoError(err)
	return info
}

// waitJobState waits for the training job on service to reach state.
func (s *Suite) waitJobState(service string, state serving.JobState) *serving.JobInfo {
	var info *serving.JobInfo
	s.WaitFor(func() bool {
		info = s.trainStatus(service)
		return info != nil && info.State == state
	}, "job on %v never became %v", service, state)
	return info
}

// TestTrainBlocking runs a blocking training job.
func (s *Suite) TestTrainBlocking() {
	s.CreateService("mnist")

	info, err := s.Platform.Train(s.ctx(), serving.Payload{
		"service": "mnist",
		"async":   false,
	})
	if s.NoError(err) && s.NotNil(info) {
		s.Equal("mnist", info.Service)
		s.Equal(serving.Blocking, info.Mode)
		s.Equal(serving.JobCompleted, info.State)
		s.Equal("mnist", info.Result["trained"])
	}

	status := s.trainStatus("mnist")
	if s.NotNil(status) {
		s.Equal(serving.JobCompleted, status.State)
	}
}

// TestTrainBlockingFailure checks that a failing blocking job is an
// error, and is still recorded.
func (s *Suite) TestTrainBlockingFailure() {
	s.CreateService("mnist")

	_, err := s.Platform.Train(s.ctx(), serving.Payload{
		"service": "mnist",
		"async":   false,
		"fail":    "diverged",
	})
	s.Outcome(serving.InternalFault, err)

	status := s.trainStatus("mnist")
	if s.NotNil(status) {
		s.Equal(serving.JobFailed, status.State)
		s.Equal("diverged", status.Error)
	}
}

// TestTrainAsync runs an asynchronous training job to completion.
func (s *Suite) TestTrainAsync() {
	s.CreateService("mnist")

	info, err := s.Platform.Train(s.ctx(), serving.Payload{
		"service": "mnist",
		"block":   true,
	})
	if s.NoError(err) && s.NotNil(info) {
		s.Equal(serving.Async, info.Mode)
		s.Equal(serving.JobRunning, info.State)
	}

	running := s.trainStatus("mnist")
	if s.NotNil(running) {
		s.Equal(serving.JobRunning, running.State)
	}

	// Only one job at a time
	_, err = s.Platform.Train(s.ctx(), serving.Payload{"service": "mnist"})
	s.Outcome(serving.Conflict, err)

	// Progress reports show up while running
	s.WaitFor(func() bool {
		status := s.trainStatus("mnist")
		return status != nil && status.Progress != nil
	})

	s.Engine.Finish("mnist")
	done := s.waitJobState("mnist", serving.JobCompleted)
	if s.NotNil(done) && s.NotNil(info) {
		s.Equal(info.ID, done.ID)
	}

	// A finished job does not block a new one
	_, err = s.Platform.Train(s.ctx(), serving.Payload{
		"service": "mnist",
		"async":   false,
	})
	s.NoError(err)
}

// TestTrainCancel cancels a running job.
func (s *Suite) TestTrainCancel() {
	s.CreateService("mnist")

	info, err := s.Platform.Train(s.ctx(), serving.Payload{
		"service": "mnist",
		"block":   true,
	})
	s.Require().NoError(err)
	s.waitJobState("mnist", serving.JobRunning)

	final, err := s.Platform.DeleteTrain(s.ctx(), serving.JobQuery{Service: "mnist", Job: info.ID})
	if s.NoError(err) && s.NotNil(final) {
		s.Equal(info.ID, final.ID)
		s.Equal(serving.JobCancelled, final.State)
	}
	s.Nil(s.trainStatus("mnist"))

	// The service is unaffected, and a new job can start
	_, err = s.Platform.Train(s.ctx(), serving.Payload{
		"service": "mnist",
		"async":   false,
	})
	s.NoError(err)
}

// TestTrainUnknown checks the training calls against services and
// jobs that do not exist.
func (s *Suite) TestTrainUnknown() {
	_, err := s.Platform.Train(s.ctx(), serving.Payload{"service": "missing"})
	s.Outcome(serving.NotFound, err)

	// Status and delete of absent jobs do nothing
	info, err := s.Platform.TrainStatus(s.ctx(), serving.JobQuery{Service: "missing"})
	s.NoError(err)
	s.Nil(info)
	info, err = s.Platform.DeleteTrain(s.ctx(), serving.JobQuery{Service: "missing"})
	s.NoError(err)
	s.Nil(info)

	s.CreateService("mnist")
	_, err = s.Platform.Train(s.ctx(), serving.Payload{"service": "mnist", "async": false})
	s.Require().NoError(err)
	info, err = s.Platform.TrainStatus(s.ctx(), serving.JobQuery{Service: "mnist", Job: 1000})
	s.NoError(err)
	s.Nil(info)
}

// TestTrainBadRequests checks malformed training requests.
func (s *Suite) TestTrainBadRequests() {
	_, err := s.Platform.Train(s.ctx(), nil)
	s.Outcome(serving.InvalidParameter, err)

	_, err = s.Platform.Train(s.ctx(), serving.Payload{"data": "no service"})
	s.Outcome(serving.InvalidParameter, err)

	_, err = s.Platform.TrainStatus(s.ctx(), serving.JobQuery{})
	s.Outcome(serving.InvalidParameter, err)
}

// TestDeleteServiceCancelsTraining checks that deleting a service
// stops its training job.
func (s *Suite) TestDeleteServiceCancelsTraining() {
	s.CreateService("mnist")
	_, err := s.Platform.Train(s.ctx(), serving.Payload{
		"service": "mnist",
		"block":   true,
	})
	s.Require().NoError(err)
	s.waitJobState("mnist", serving.JobRunning)

	err = s.Platform.DeleteService(s.ctx(), "mnist", serving.DeleteOptions{})
	s.NoError(err)
	s.Nil(s.trainStatus("mnist"))

	info, err := s.Platform.Service(s.ctx(), "mnist", serving.StatusOptions{})
	s.NoError(err)
	s.Nil(info)
}
