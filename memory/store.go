// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package memory provides an in-process, in-memory implementation of
// the service definition store.  There is no persistence: a server
// using it forgets its services when it exits.  The entire store is
// behind a single global lock.
//
// This is mostly intended as a simple reference implementation that
// can be used for testing, including in-process testing of
// higher-level components.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/diffeo/go-modelserve/serving"
)

// New creates a new service definition store that operates purely in
// memory.
func New() serving.Store {
	return &memStore{
		services: make(map[string]serving.ServiceDefinition),
	}
}

type memStore struct {
	lock     sync.Mutex
	services map[string]serving.ServiceDefinition
}

// do runs f holding the global lock.
func (s *memStore) do(f func() error) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return f()
}

func (s *memStore) PutService(ctx context.Context, def serving.ServiceDefinition) error {
	return s.do(func() error {
		def.Payload = copyPayload(def.Payload)
		s.services[def.Name] = def
		return nil
	})
}

func (s *memStore) DeleteService(ctx context.Context, name string) error {
	return s.do(func() error {
		delete(s.services, name)
		return nil
	})
}

func (s *memStore) Services(ctx context.Context) ([]serving.ServiceDefinition, error) {
	var result []serving.ServiceDefinition
	err := s.do(func() error {
		result = make([]serving.ServiceDefinition, 0, len(s.services))
		for _, def := range s.services {
			def.Payload = copyPayload(def.Payload)
			result = append(result, def)
		}
		return nil
	})
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].Name < result[j].Name
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, err
}

// copyPayload makes a shallow copy of a payload, so that callers
// cannot change stored definitions by changing their maps.
func copyPayload(p serving.Payload) serving.Payload {
	if p == nil {
		return nil
	}
	result := make(serving.Payload, len(p))
	for k, v := range p {
		result[k] = v
	}
	return result
}
