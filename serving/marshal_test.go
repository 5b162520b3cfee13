// Unit tests for marshal.go.
//
// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package serving_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/diffeo/go-modelserve/serving"
)

type EntityStatusMatrix struct {
	Status      serving.EntityStatus
	JSON        string
	EncodeError string
	DecodeError string
}

var entityStatuses = []EntityStatusMatrix{
	{serving.StatusCreating, "creating", "", ""},
	{serving.StatusActive, "active", "", ""},
	{serving.StatusDeleting, "deleting", "", ""},
	{serving.StatusFailed, "failed", "", ""},
	{serving.EntityStatus(17), "seventeen",
		"invalid status (marshal, 17)",
		"invalid status (unmarshal, seventeen)"},
}

func TestEntityStatusToJSON(t *testing.T) {
	for _, w := range entityStatuses {
		t.Run(w.JSON, func(tt *testing.T) {
			actual, err := json.Marshal(w.Status)
			if w.EncodeError == "" {
				if assert.NoError(tt, err) {
					assert.Equal(tt, "\""+w.JSON+"\"",
						string(actual))
				}
			} else {
				assert.EqualError(tt, err,
					"json: error calling MarshalText for type serving.EntityStatus: "+w.EncodeError)
			}
		})
	}
}

func TestEntityStatusFromJSON(t *testing.T) {
	for _, w := range entityStatuses {
		t.Run(w.JSON, func(tt *testing.T) {
			var actual serving.EntityStatus
			input := []byte("\"" + w.JSON + "\"")
			err := json.Unmarshal(input, &actual)
			if w.DecodeError == "" {
				if assert.NoError(tt, err) {
					assert.Equal(tt, w.Status, actual)
				}
			} else {
				assert.EqualError(tt, err, w.DecodeError)
			}
		})
	}
}

type JobStateMatrix struct {
	State serving.JobState
	Text  string
}

var jobStates = []JobStateMatrix{
	{serving.JobRunning, "running"},
	{serving.JobCompleted, "finished"},
	{serving.JobFailed, "error"},
	{serving.JobCancelled, "cancelled"},
}

func TestJobStateText(t *testing.T) {
	for _, w := range jobStates {
		t.Run(w.Text, func(tt *testing.T) {
			text, err := w.State.MarshalText()
			if assert.NoError(tt, err) {
				assert.Equal(tt, w.Text, string(text))
			}

			var actual serving.JobState
			if assert.NoError(tt, actual.UnmarshalText([]byte(w.Text))) {
				assert.Equal(tt, w.State, actual)
			}
		})
	}
}

func TestJobStateFinished(t *testing.T) {
	assert.False(t, serving.JobRunning.Finished())
	assert.True(t, serving.JobCompleted.Finished())
	assert.True(t, serving.JobFailed.Finished())
	assert.True(t, serving.JobCancelled.Finished())
}

func TestJobModeText(t *testing.T) {
	var mode serving.JobMode
	assert.NoError(t, mode.UnmarshalText([]byte("blocking")))
	assert.Equal(t, serving.Blocking, mode)
	assert.EqualError(t, mode.UnmarshalText([]byte("later")),
		"invalid job mode (unmarshal, later)")
}

func TestParseClearMode(t *testing.T) {
	for _, s := range []string{"full", "lib", "mem", "dir", "index"} {
		mode, err := serving.ParseClearMode(s)
		if assert.NoError(t, err, s) {
			assert.Equal(t, serving.ClearMode(s), mode)
		}
	}

	mode, err := serving.ParseClearMode("")
	if assert.NoError(t, err) {
		assert.Equal(t, serving.ClearMem, mode)
	}

	_, err = serving.ParseClearMode("everything")
	if assert.Error(t, err) {
		assert.Equal(t, serving.InvalidParameter, serving.OutcomeOf(err))
		assert.Contains(t, err.Error(), "clear")
	}
}

func TestEntityKindText(t *testing.T) {
	for _, kind := range []serving.EntityKind{serving.ServiceKind, serving.ResourceKind, serving.StreamKind} {
		text, err := kind.MarshalText()
		if assert.NoError(t, err) {
			assert.Equal(t, kind.String(), string(text))
		}
		var actual serving.EntityKind
		if assert.NoError(t, actual.UnmarshalText(text)) {
			assert.Equal(t, kind, actual)
		}
	}

	_, err := serving.EntityKind(9).MarshalText()
	assert.EqualError(t, err, "invalid kind (marshal, 9)")
	var kind serving.EntityKind
	assert.EqualError(t, kind.UnmarshalText([]byte("widget")),
		"invalid kind (unmarshal, widget)")
}
