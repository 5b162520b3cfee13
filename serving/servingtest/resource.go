// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package servingtest

import (
	"github.com/diffeo/go-modelserve/serving"
)

// TestResourceLifecycle creates, reads and deletes a resource.
func (s *Suite) TestResourceLifecycle() {
	created := s.CreateResource("cam", 0)
	s.Equal("cam", created.Name)
	s.Equal(serving.StatusActive, created.Status)
	s.True(created.Open)

	info, err := s.Platform.Resource(s.ctx(), "cam")
	if s.NoError(err) && s.NotNil(info) {
		s.Equal("cam", info.Name)
		s.True(info.Open)
		s.Contains(info.Details, "frames_read")
	}

	err = s.Platform.DeleteResource(s.ctx(), "cam")
	s.NoError(err)
	s.Equal([]string{"cam"}, s.Engine.Closed())

	_, err = s.Platform.Resource(s.ctx(), "cam")
	s.Outcome(serving.NotFound, err)
}

// TestResourceConflict checks that a resource is never replaced.
func (s *Suite) TestResourceConflict() {
	s.CreateResource("cam", 0)
	_, err := s.Platform.CreateResource(s.ctx(), "cam", serving.Payload{"type": "fake"})
	s.Outcome(serving.Conflict, err)
}

// TestResourceUnknown checks that unknown resources are not found.
func (s *Suite) TestResourceUnknown() {
	_, err := s.Platform.Resource(s.ctx(), "missing")
	s.Outcome(serving.NotFound, err)

	err = s.Platform.DeleteResource(s.ctx(), "missing")
	s.Outcome(serving.NotFound, err)
	s.Empty(s.Engine.Closed())
}

// TestResourceEngineErrors checks that a resource the engine refuses
// is not created.
func (s *Suite) TestResourceEngineErrors() {
	_, err := s.Platform.CreateResource(s.ctx(), "cam", serving.Payload{"forbid": "device busy"})
	s.Outcome(serving.Conflict, err)

	_, err = s.Platform.CreateResource(s.ctx(), "cam", serving.Payload{"bad": "no source"})
	s.Outcome(serving.InvalidParameter, err)

	_, err = s.Platform.CreateResource(s.ctx(), "cam", nil)
	s.Outcome(serving.InvalidParameter, err)

	_, err = s.Platform.Resource(s.ctx(), "cam")
	s.Outcome(serving.NotFound, err)
}
