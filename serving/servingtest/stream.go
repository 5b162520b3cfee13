// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package servingtest

import (
	"github.com/diffeo/go-modelserve/serving"
)

func streamPayload(resource, service string) serving.Payload {
	return serving.Payload{
		"resource": resource,
		"predict": map[string]interface{}{
			"service": service,
		},
	}
}

// streamInfo fetches a stream, failing the test if it does not exist.
func (s *Suite) streamInfo(name string) *serving.StreamInfo {
	info, err := s.Platform.Stream(s.ctx(), name)
	s.Require().NoError(err)
	return info
}

// TestStreamToCompletion runs a stream over a finite resource.
func (s *Suite) TestStreamToCompletion() {
	s.CreateService("detect")
	s.CreateResource("video", 3)

	created, err := s.Platform.CreateStream(s.ctx(), "out", streamPayload("video", "detect"))
	if s.NoError(err) && s.NotNil(created) {
		s.Equal("out", created.Name)
		s.Equal("video", created.Resource)
		s.Equal("detect", created.Service)
	}

	s.WaitFor(func() bool {
		return !s.streamInfo("out").Running
	})
	info := s.streamInfo("out")
	s.Equal(serving.StatusActive, info.Status)
	s.Equal(3, info.Frames)
	s.Empty(info.Error)
	if s.NotNil(info.Last) {
		s.Equal("detect", info.Last["model"])
	}

	s.NoError(s.Platform.DeleteStream(s.ctx(), "out"))
	_, err = s.Platform.Stream(s.ctx(), "out")
	s.Outcome(serving.NotFound, err)

	// The resource and service outlive the stream
	_, err = s.Platform.Resource(s.ctx(), "video")
	s.NoError(err)
}

// TestStreamStop stops a running stream.
func (s *Suite) TestStreamStop() {
	s.CreateService("detect")
	s.CreateResource("cam", 0)

	_, err := s.Platform.CreateStream(s.ctx(), "out", streamPayload("cam", "detect"))
	s.Require().NoError(err)
	s.WaitFor(func() bool {
		return s.streamInfo("out").Frames > 0
	})
	s.True(s.streamInfo("out").Running)

	// A second stream with the same name conflicts
	_, err = s.Platform.CreateStream(s.ctx(), "out", streamPayload("cam", "detect"))
	s.Outcome(serving.Conflict, err)

	s.NoError(s.Platform.DeleteStream(s.ctx(), "out"))
	_, err = s.Platform.Stream(s.ctx(), "out")
	s.Outcome(serving.NotFound, err)

	// Now the resource can be closed without waiting
	s.NoError(s.Platform.DeleteResource(s.ctx(), "cam"))
}

// TestStreamUnknown checks that unknown streams are not found.
func (s *Suite) TestStreamUnknown() {
	_, err := s.Platform.Stream(s.ctx(), "missing")
	s.Outcome(serving.NotFound, err)
	err = s.Platform.DeleteStream(s.ctx(), "missing")
	s.Outcome(serving.NotFound, err)
}

// TestStreamBadRequests checks malformed stream requests.
func (s *Suite) TestStreamBadRequests() {
	s.CreateService("detect")
	s.CreateResource("cam", 0)

	_, err := s.Platform.CreateStream(s.ctx(), "out", serving.Payload{"predict": map[string]interface{}{"service": "detect"}})
	s.Outcome(serving.InvalidParameter, err)

	_, err = s.Platform.CreateStream(s.ctx(), "out", serving.Payload{"resource": "cam"})
	s.Outcome(serving.InvalidParameter, err)

	_, err = s.Platform.CreateStream(s.ctx(), "out", streamPayload("missing", "detect"))
	s.Outcome(serving.NotFound, err)

	_, err = s.Platform.CreateStream(s.ctx(), "out", streamPayload("cam", "missing"))
	s.Outcome(serving.NotFound, err)

	// None of those left anything behind
	_, err = s.Platform.Stream(s.ctx(), "out")
	s.Outcome(serving.NotFound, err)
}

// TestStreamEngineFailure checks that a stream that dies reports its
// failure, both in its status and when it is deleted.
func (s *Suite) TestStreamEngineFailure() {
	s.CreateService("detect")
	s.CreateResource("cam", 0)

	payload := streamPayload("cam", "detect")
	payload["fail"] = "decoder crashed"
	_, err := s.Platform.CreateStream(s.ctx(), "out", payload)
	s.Require().NoError(err)

	s.WaitFor(func() bool {
		return s.streamInfo("out").Status == serving.StatusFailed
	})
	info := s.streamInfo("out")
	s.False(info.Running)
	s.Contains(info.Error, "decoder crashed")

	err = s.Platform.DeleteStream(s.ctx(), "out")
	if s.Error(err) {
		s.Contains(err.Error(), "decoder crashed")
	}
	_, err = s.Platform.Stream(s.ctx(), "out")
	s.Outcome(serving.NotFound, err)
}

// TestDeleteResourceStopsStream checks that deleting a resource stops
// the streams reading from it.
func (s *Suite) TestDeleteResourceStopsStream() {
	s.CreateService("detect")
	s.CreateResource("cam", 0)

	_, err := s.Platform.CreateStream(s.ctx(), "out", streamPayload("cam", "detect"))
	s.Require().NoError(err)
	s.WaitFor(func() bool {
		return s.streamInfo("out").Frames > 0
	})

	s.NoError(s.Platform.DeleteResource(s.ctx(), "cam"))
	info := s.streamInfo("out")
	s.Equal(serving.StatusFailed, info.Status)
	s.False(info.Running)
	s.Contains(info.Error, "cam")

	s.Error(s.Platform.DeleteStream(s.ctx(), "out"))
}

// TestDeleteServiceStopsStream checks that deleting a service stops
// the streams predicting with it.
func (s *Suite) TestDeleteServiceStopsStream() {
	s.CreateService("detect")
	s.CreateResource("cam", 0)

	_, err := s.Platform.CreateStream(s.ctx(), "out", streamPayload("cam", "detect"))
	s.Require().NoError(err)

	s.NoError(s.Platform.DeleteService(s.ctx(), "detect", serving.DeleteOptions{}))
	info := s.streamInfo("out")
	s.Equal(serving.StatusFailed, info.Status)
	s.Contains(info.Error, "detect")
}
