// Copyright 2016-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package backend provides a standard way to construct a service
// definition store based on command-line flags.
package backend

import (
	"errors"
	"fmt"
	"strings"

	"github.com/diffeo/go-modelserve/memory"
	"github.com/diffeo/go-modelserve/postgres"
	"github.com/diffeo/go-modelserve/serving"
)

// Backend describes user-visible parameters to store service
// definitions.  This implements the flag.Value interface, and so a
// typical use is
//
//     func main() {
//         backend := backend.Backend{Implementation: "memory"}
//         flag.Var(&backend, "backend", "impl:address of service storage")
//         flag.Parse()
//         store, err := backend.Store()
//     }
type Backend struct {
	// Implementation holds the name of the implementation; for
	// instance, "memory".
	Implementation string

	// Address holds some backend-specific address, such as a
	// database connect string.
	Address string
}

// Store creates a new service definition store.  This generally
// should be only called once.  If the backend has in-process state,
// such as a database connection pool or an in-memory store, calling
// this multiple times will create multiple copies of that state.
func (b *Backend) Store() (serving.Store, error) {
	switch b.Implementation {
	case "memory":
		return memory.New(), nil
	case "postgres":
		return postgres.New(b.Address)
	default:
		return nil, fmt.Errorf("unknown store backend %q", b.Implementation)
	}
}

// String renders a backend description as a string.
func (b *Backend) String() string {
	if b.Address == "" {
		return b.Implementation
	}
	return b.Implementation + ":" + b.Address
}

// Set parses a string into an existing backend description.  The
// string should be of the form "implementation:address", where
// address can be any string.  Set checks to see if the provided
// implementation is any of the known implementations, and returns an
// appropriate error if not.
//
// This is part of the flag.Value interface.  Note that neither Set
// nor Store attempts to validate the b.Address part of the string.
func (b *Backend) Set(param string) error {
	if param == "" {
		return errors.New("must specify a backend type")
	}
	parts := strings.SplitN(param, ":", 2)
	impl, addr := parts[0], ""
	if len(parts) == 2 {
		addr = parts[1]
	}
	switch impl {
	case "memory", "postgres":
	default:
		return fmt.Errorf("unknown store backend %q", impl)
	}
	b.Implementation = impl
	b.Address = addr
	return nil
}

// UnmarshalYAML allows a backend to be given as a single string in a
// YAML configuration file.
func (b *Backend) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var param string
	if err := unmarshal(&param); err != nil {
		return err
	}
	return b.Set(param)
}
