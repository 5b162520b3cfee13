// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package serving

import (
	"fmt"
)

// MarshalText returns a string representing an entity kind.
func (kind EntityKind) MarshalText() ([]byte, error) {
	switch kind {
	case ServiceKind, ResourceKind, StreamKind:
		return []byte(kind.String()), nil
	default:
		return nil, fmt.Errorf("invalid kind (marshal, %+v)", int(kind))
	}
}

// UnmarshalText populates an entity kind from a string.
func (kind *EntityKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "service":
		*kind = ServiceKind
	case "resource":
		*kind = ResourceKind
	case "stream":
		*kind = StreamKind
	default:
		return fmt.Errorf("invalid kind (unmarshal, %+v)", string(text))
	}
	return nil
}

// MarshalText returns a string representing an entity status.
func (status EntityStatus) MarshalText() ([]byte, error) {
	switch status {
	case StatusCreating:
		return []byte("creating"), nil
	case StatusActive:
		return []byte("active"), nil
	case StatusDeleting:
		return []byte("deleting"), nil
	case StatusFailed:
		return []byte("failed"), nil
	default:
		return nil, fmt.Errorf("invalid status (marshal, %+v)", int(status))
	}
}

// UnmarshalText populates an entity status from a string.
func (status *EntityStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "creating":
		*status = StatusCreating
	case "active":
		*status = StatusActive
	case "deleting":
		*status = StatusDeleting
	case "failed":
		*status = StatusFailed
	default:
		return fmt.Errorf("invalid status (unmarshal, %+v)", string(text))
	}
	return nil
}

func (status EntityStatus) String() string {
	text, err := status.MarshalText()
	if err != nil {
		return fmt.Sprintf("EntityStatus(%d)", int(status))
	}
	return string(text)
}

// MarshalText returns a string representing a job state.
func (state JobState) MarshalText() ([]byte, error) {
	switch state {
	case JobRunning:
		return []byte("running"), nil
	case JobCompleted:
		return []byte("finished"), nil
	case JobFailed:
		return []byte("error"), nil
	case JobCancelled:
		return []byte("cancelled"), nil
	default:
		return nil, fmt.Errorf("invalid job state (marshal, %+v)", int(state))
	}
}

// UnmarshalText populates a job state from a string.
func (state *JobState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "running":
		*state = JobRunning
	case "finished":
		*state = JobCompleted
	case "error":
		*state = JobFailed
	case "cancelled":
		*state = JobCancelled
	default:
		return fmt.Errorf("invalid job state (unmarshal, %+v)", string(text))
	}
	return nil
}

func (state JobState) String() string {
	text, err := state.MarshalText()
	if err != nil {
		return fmt.Sprintf("JobState(%d)", int(state))
	}
	return string(text)
}

// MarshalText returns a string representing a job mode.
func (mode JobMode) MarshalText() ([]byte, error) {
	switch mode {
	case Async:
		return []byte("async"), nil
	case Blocking:
		return []byte("blocking"), nil
	default:
		return nil, fmt.Errorf("invalid job mode (marshal, %+v)", int(mode))
	}
}

// UnmarshalText populates a job mode from a string.
func (mode *JobMode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "async":
		*mode = Async
	case "blocking":
		*mode = Blocking
	default:
		return fmt.Errorf("invalid job mode (unmarshal, %+v)", string(text))
	}
	return nil
}
