// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package servingtest

import (
	"sync"

	"github.com/diffeo/go-modelserve/serving"
)

// TestInfoEmpty checks the info call on a fresh platform.
func (s *Suite) TestInfoEmpty() {
	info, err := s.Platform.Info(s.ctx(), serving.InfoOptions{})
	if s.NoError(err) {
		s.NotEmpty(info.Version)
		s.NotEmpty(info.Instance)
		s.Empty(info.Services)
	}
}

// TestServiceLifecycle creates, reads and deletes a service.
func (s *Suite) TestServiceLifecycle() {
	created, err := s.Platform.CreateService(s.ctx(), "mnist", serving.Payload{
		"mllib":  "fake",
		"labels": []interface{}{"cat", "dog"},
	})
	if s.NoError(err) {
		s.Equal("mnist", created.Name)
		s.Equal(serving.StatusActive, created.Status)
		s.Equal("fake", created.Model.MLLib)
	}

	info, err := s.Platform.Service(s.ctx(), "mnist", serving.StatusOptions{})
	if s.NoError(err) && s.NotNil(info) {
		s.Equal("mnist", info.Name)
		s.Equal(serving.StatusActive, info.Status)
		s.Empty(info.Model.Labels)
		s.Empty(info.Details)
		s.Nil(info.Job)
	}

	info, err = s.Platform.Service(s.ctx(), "mnist", serving.StatusOptions{
		Status: true,
		Labels: true,
	})
	if s.NoError(err) && s.NotNil(info) {
		s.Equal([]string{"cat", "dog"}, info.Model.Labels)
		s.Contains(info.Details, "predictions")
	}

	all, err := s.Platform.Info(s.ctx(), serving.InfoOptions{})
	if s.NoError(err) && s.Len(all.Services, 1) {
		s.Equal("mnist", all.Services[0].Name)
	}

	err = s.Platform.DeleteService(s.ctx(), "mnist", serving.DeleteOptions{})
	s.NoError(err)
	s.Equal([]string{"mnist"}, s.Engine.Released())
	s.Empty(s.Engine.Cleared())

	info, err = s.Platform.Service(s.ctx(), "mnist", serving.StatusOptions{})
	s.NoError(err)
	s.Nil(info)
}

// TestInfoSorted checks that info lists every service, by name.
func (s *Suite) TestInfoSorted() {
	s.CreateService("b")
	s.CreateService("c")
	s.CreateService("a")

	info, err := s.Platform.Info(s.ctx(), serving.InfoOptions{Status: true})
	if s.NoError(err) && s.Len(info.Services, 3) {
		s.Equal("a", info.Services[0].Name)
		s.Equal("b", info.Services[1].Name)
		s.Equal("c", info.Services[2].Name)
		s.Contains(info.Services[0].Details, "predictions")
	}
}

// TestServiceUnknown checks that reading or deleting a service that
// does not exist does nothing.
func (s *Suite) TestServiceUnknown() {
	info, err := s.Platform.Service(s.ctx(), "missing", serving.StatusOptions{Status: true})
	s.NoError(err)
	s.Nil(info)

	err = s.Platform.DeleteService(s.ctx(), "missing", serving.DeleteOptions{Clear: serving.ClearFull})
	s.NoError(err)
	s.Empty(s.Engine.Released())
	s.Empty(s.Engine.Cleared())
}

// TestCreateServiceConflict checks that a live service is never
// replaced.
func (s *Suite) TestCreateServiceConflict() {
	s.CreateService("mnist")
	_, err := s.Platform.CreateService(s.ctx(), "mnist", serving.Payload{"mllib": "fake"})
	s.Outcome(serving.Conflict, err)
}

// TestCreateServiceConcurrent checks that exactly one of many
// concurrent creates of the same name wins.
func (s *Suite) TestCreateServiceConcurrent() {
	const n = 8
	var (
		wg      sync.WaitGroup
		lock    sync.Mutex
		results = make(map[serving.Outcome]int)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Platform.CreateService(s.ctx(), "race", serving.Payload{"mllib": "fake"})
			lock.Lock()
			defer lock.Unlock()
			results[serving.OutcomeOf(err)]++
		}()
	}
	wg.Wait()
	s.Equal(map[serving.Outcome]int{
		serving.Success:  1,
		serving.Conflict: n - 1,
	}, results)
}

// TestCreateServiceEngineErrors checks that engine failures are
// classified and leave the name free.
func (s *Suite) TestCreateServiceEngineErrors() {
	_, err := s.Platform.CreateService(s.ctx(), "mnist", serving.Payload{"bad": "no such mllib"})
	s.Outcome(serving.InvalidParameter, err)
	if s.Error(err) {
		s.Contains(err.Error(), "no such mllib")
	}

	_, err = s.Platform.CreateService(s.ctx(), "mnist", serving.Payload{"fail": "out of memory"})
	s.Outcome(serving.InternalFault, err)

	info, err := s.Platform.Service(s.ctx(), "mnist", serving.StatusOptions{})
	s.NoError(err)
	s.Nil(info)

	s.CreateService("mnist")
}

// TestCreateServiceMissingBody checks that creating a service with
// no payload is a bad request.
func (s *Suite) TestCreateServiceMissingBody() {
	_, err := s.Platform.CreateService(s.ctx(), "mnist", nil)
	s.Outcome(serving.InvalidParameter, err)
}

// TestDeleteServiceClear checks that each clear mode is passed to the
// engine exactly once, and that the default mode does not clear.
func (s *Suite) TestDeleteServiceClear() {
	s.CreateService("a")
	s.CreateService("b")
	s.CreateService("c")

	s.NoError(s.Platform.DeleteService(s.ctx(), "a", serving.DeleteOptions{Clear: serving.ClearDir}))
	s.NoError(s.Platform.DeleteService(s.ctx(), "b", serving.DeleteOptions{Clear: serving.ClearMem}))
	s.NoError(s.Platform.DeleteService(s.ctx(), "c", serving.DeleteOptions{}))

	s.Equal([]ClearCall{{Name: "a", Mode: serving.ClearDir}}, s.Engine.Cleared())
	s.ElementsMatch([]string{"a", "b", "c"}, s.Engine.Released())

	info, err := s.Platform.Info(s.ctx(), serving.InfoOptions{})
	if s.NoError(err) {
		s.Empty(info.Services)
	}
}

// TestDeleteServiceBadClear checks that an unknown clear mode is
// rejected before anything is deleted.
func (s *Suite) TestDeleteServiceBadClear() {
	s.CreateService("mnist")
	err := s.Platform.DeleteService(s.ctx(), "mnist", serving.DeleteOptions{Clear: "everything"})
	s.Outcome(serving.InvalidParameter, err)

	info, err := s.Platform.Service(s.ctx(), "mnist", serving.StatusOptions{})
	s.NoError(err)
	s.NotNil(info)
}
