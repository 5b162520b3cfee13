// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package servingtest provides generic functional tests for the
// serving.Platform interface, and a scriptable fake Engine to run
// them against.  A typical implementation test wraps Suite to create
// its platform around the suite's engine and clock:
//
//     package myplatform
//
//     import (
//             "testing"
//             "github.com/diffeo/go-modelserve/serving/servingtest"
//             "github.com/stretchr/testify/suite"
//     )
//
//     // Suite is the per-implementation generic test suite.
//     type Suite struct{
//             servingtest.Suite
//     }
//
//     // SetupTest creates a fresh platform for each test.
//     func (s *Suite) SetupTest() {
//             s.Suite.SetupTest()
//             s.Platform = New(s.Engine, s.Clock)
//     }
//
//     // TestPlatform runs the Platform generic tests.
//     func TestPlatform(t *testing.T) {
//             suite.Run(t, &Suite{})
//     }
package servingtest

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/suite"

	"github.com/diffeo/go-modelserve/serving"
)

// Suite is the generic Platform test suite.
type Suite struct {
	suite.Suite

	// Clock contains the alternate time source to be used in
	// tests.  It is reset to a new mock clock before each test.
	Clock *clock.Mock

	// Engine is the fake engine the platform should delegate to.
	// It is reset before each test.
	Engine *Engine

	// Platform contains the top-level interface to the
	// implementation under test.  It is set by embedding suites.
	Platform serving.Platform
}

// SetupTest creates a new clock and engine for each test.
func (s *Suite) SetupTest() {
	s.Clock = clock.NewMock()
	s.Engine = NewEngine()
}

// ctx returns the context used for platform calls.
func (s *Suite) ctx() context.Context {
	return context.Background()
}

// Outcome asserts that err has a specific outcome.
func (s *Suite) Outcome(expected serving.Outcome, err error) bool {
	return s.Equal(expected, serving.OutcomeOf(err), "%+v", err)
}

// CreateService creates a service with a trivial payload, and fails
// the test if it cannot.
func (s *Suite) CreateService(name string) *serving.ServiceInfo {
	info, err := s.Platform.CreateService(s.ctx(), name, serving.Payload{
		"mllib": "fake",
	})
	s.Require().NoError(err)
	return info
}

// CreateResource opens a resource producing a fixed number of
// frames (or unlimited frames if zero), and fails the test if it
// cannot.
func (s *Suite) CreateResource(name string, frames int) *serving.ResourceInfo {
	payload := serving.Payload{"type": "fake"}
	if frames > 0 {
		payload["frames"] = frames
	}
	info, err := s.Platform.CreateResource(s.ctx(), name, payload)
	s.Require().NoError(err)
	return info
}

// WaitFor polls cond until it returns true, failing the test if
// that does not happen within a few seconds.
func (s *Suite) WaitFor(cond func() bool, msgAndArgs ...interface{}) bool {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return s.Fail("condition never became true", msgAndArgs...)
}
