// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package serving

// EntityKind names one of the kinds of registered entity.
type EntityKind int

// Entity kinds.
const (
	ServiceKind EntityKind = iota
	ResourceKind
	StreamKind
)

func (kind EntityKind) String() string {
	switch kind {
	case ServiceKind:
		return "service"
	case ResourceKind:
		return "resource"
	case StreamKind:
		return "stream"
	default:
		return "unknown"
	}
}

// EntityStatus is the lifecycle state of a registered entity.
type EntityStatus int

const (
	// StatusCreating entities have a reserved name but the engine
	// has not finished constructing them.
	StatusCreating EntityStatus = iota

	// StatusActive entities are usable.
	StatusActive

	// StatusDeleting entities refuse new usage and are waiting
	// for in-flight usage to drain before being removed.
	StatusDeleting

	// StatusFailed entities died after creation.  Their name may
	// be reused.
	StatusFailed
)

// JobState is the state of a training job.
type JobState int

// Training job states.
const (
	JobRunning JobState = iota
	JobCompleted
	JobFailed
	JobCancelled
)

// Finished returns true if the job has stopped running.
func (state JobState) Finished() bool {
	return state != JobRunning
}

// JobMode says whether a training request waits for its job.
type JobMode int

// Training job modes.
const (
	Async JobMode = iota
	Blocking
)

// ClearMode selects what is removed when a service is deleted.
type ClearMode string

const (
	// ClearMem removes the service from memory only.
	ClearMem ClearMode = "mem"

	// ClearFull removes the model and the service repository.
	ClearFull ClearMode = "full"

	// ClearLib removes model files as the service's library
	// defines.
	ClearLib ClearMode = "lib"

	// ClearDir removes the whole service directory.
	ClearDir ClearMode = "dir"

	// ClearIndex removes only the similarity-search index.
	ClearIndex ClearMode = "index"
)

// ParseClearMode parses a clear query parameter.  The empty string
// means ClearMem.
func ParseClearMode(s string) (ClearMode, error) {
	switch mode := ClearMode(s); mode {
	case "":
		return ClearMem, nil
	case ClearMem, ClearFull, ClearLib, ClearDir, ClearIndex:
		return mode, nil
	default:
		return "", ErrBadParameter{
			Param:  "clear",
			Reason: "clear must be one of full, lib, mem, dir or index",
		}
	}
}
