// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package servingtest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/diffeo/go-modelserve/serving"
)

// StoreSuite runs generic tests against a serving.Store.  Embedders
// set Store before the suite runs.  The store is emptied before each
// test, so it must not hold anything of value.
type StoreSuite struct {
	suite.Suite
	Store serving.Store
}

// SetupTest removes every stored definition.
func (s *StoreSuite) SetupTest() {
	ctx := context.Background()
	defs, err := s.Store.Services(ctx)
	s.Require().NoError(err)
	for _, def := range defs {
		s.Require().NoError(s.Store.DeleteService(ctx, def.Name))
	}
}

// created returns a creation time that survives a database round
// trip.
func created(offset time.Duration) time.Time {
	return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC).Add(offset)
}

// TestEmpty checks that a fresh store lists nothing.
func (s *StoreSuite) TestEmpty() {
	defs, err := s.Store.Services(context.Background())
	if s.NoError(err) {
		s.Empty(defs)
	}
}

// TestPutAndList checks that definitions come back in creation order
// with their payloads intact.
func (s *StoreSuite) TestPutAndList() {
	ctx := context.Background()
	s.Require().NoError(s.Store.PutService(ctx, serving.ServiceDefinition{
		Name:      "second",
		Payload:   serving.Payload{"mllib": "memory", "type": "unsupervised"},
		CreatedAt: created(time.Minute),
	}))
	s.Require().NoError(s.Store.PutService(ctx, serving.ServiceDefinition{
		Name: "first",
		Payload: serving.Payload{
			"mllib":      "memory",
			"parameters": map[string]interface{}{"input": map[string]interface{}{"connector": "csv"}},
		},
		CreatedAt: created(0),
	}))

	defs, err := s.Store.Services(ctx)
	s.Require().NoError(err)
	if s.Len(defs, 2) {
		s.Equal("first", defs[0].Name)
		s.Equal("second", defs[1].Name)
		s.True(created(0).Equal(defs[0].CreatedAt))
		s.Equal(map[string]interface{}{"input": map[string]interface{}{"connector": "csv"}},
			defs[0].Payload["parameters"])
		s.Equal("unsupervised", defs[1].Payload["type"])
	}
}

// TestReplace checks that putting an existing name overwrites it.
func (s *StoreSuite) TestReplace() {
	ctx := context.Background()
	s.Require().NoError(s.Store.PutService(ctx, serving.ServiceDefinition{
		Name:      "a",
		Payload:   serving.Payload{"description": "old"},
		CreatedAt: created(0),
	}))
	s.Require().NoError(s.Store.PutService(ctx, serving.ServiceDefinition{
		Name:      "a",
		Payload:   serving.Payload{"description": "new"},
		CreatedAt: created(time.Hour),
	}))

	defs, err := s.Store.Services(ctx)
	s.Require().NoError(err)
	if s.Len(defs, 1) {
		s.Equal("new", defs[0].Payload["description"])
		s.True(created(time.Hour).Equal(defs[0].CreatedAt))
	}
}

// TestDelete checks deletion, including of absent names.
func (s *StoreSuite) TestDelete() {
	ctx := context.Background()
	for i, name := range []string{"a", "b"} {
		s.Require().NoError(s.Store.PutService(ctx, serving.ServiceDefinition{
			Name:      name,
			Payload:   serving.Payload{"mllib": "memory"},
			CreatedAt: created(time.Duration(i) * time.Second),
		}))
	}
	s.NoError(s.Store.DeleteService(ctx, "a"))
	s.NoError(s.Store.DeleteService(ctx, "a"))
	s.NoError(s.Store.DeleteService(ctx, "nonexistent"))

	defs, err := s.Store.Services(ctx)
	s.Require().NoError(err)
	if s.Len(defs, 1) {
		s.Equal("b", defs[0].Name)
	}
}

// TestIsolation checks that changing a payload after storing it, or
// after reading it back, does not change the stored record.
func (s *StoreSuite) TestIsolation() {
	ctx := context.Background()
	payload := serving.Payload{"mllib": "memory"}
	s.Require().NoError(s.Store.PutService(ctx, serving.ServiceDefinition{
		Name:      "a",
		Payload:   payload,
		CreatedAt: created(0),
	}))
	payload["mllib"] = "changed"

	defs, err := s.Store.Services(ctx)
	s.Require().NoError(err)
	s.Require().Len(defs, 1)
	s.Equal("memory", defs[0].Payload["mllib"])
	defs[0].Payload["mllib"] = "changed again"

	defs, err = s.Store.Services(ctx)
	s.Require().NoError(err)
	s.Require().Len(defs, 1)
	s.Equal("memory", defs[0].Payload["mllib"])
}
