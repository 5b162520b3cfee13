// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package memengine

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"sync"

	"github.com/diffeo/go-modelserve/serving"
)

// MLLib is the library name this engine answers to.
const MLLib = "memory"

// Service types.
const (
	Supervised   = "supervised"
	Unsupervised = "unsupervised"
)

// serviceRequest is the part of a service creation payload the
// engine reads.
type serviceRequest struct {
	MLLib       string `mapstructure:"mllib"`
	Type        string `mapstructure:"type"`
	Description string `mapstructure:"description"`
	Parameters  struct {
		MLLib struct {
			NClasses   int      `mapstructure:"nclasses"`
			Labels     []string `mapstructure:"labels"`
			Dimensions int      `mapstructure:"dims"`
		} `mapstructure:"mllib"`
	} `mapstructure:"parameters"`
}

// modelState is the persisted, trainable part of a model.
type modelState struct {
	Type       string   `codec:"type"`
	Labels     []string `codec:"labels,omitempty"`
	Dimensions int      `codec:"dims,omitempty"`
	Iterations int      `codec:"iterations"`
}

// model is the state shared by both model variants.
type model struct {
	name        string
	description string

	lock        sync.Mutex
	state       modelState
	predictions int
	training    bool
}

func (m *model) snapshot() modelState {
	m.lock.Lock()
	defer m.lock.Unlock()
	state := m.state
	state.Labels = append([]string(nil), m.state.Labels...)
	return state
}

func (m *model) Status() serving.Payload {
	m.lock.Lock()
	defer m.lock.Unlock()
	return serving.Payload{
		"iterations":  m.state.Iterations,
		"predictions": m.predictions,
		"training":    m.training,
	}
}

// predicted counts a prediction and returns the iteration count it
// was made with.
func (m *model) predicted() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.predictions++
	return m.state.Iterations
}

// memModel is implemented by both model variants.
type memModel interface {
	serving.Model
	base() *model
	predictOne(input interface{}, iterations int, best int) serving.Payload
}

// SupervisedModel classifies inputs into a fixed set of labels.
type SupervisedModel struct {
	model
}

func (m *SupervisedModel) base() *model { return &m.model }

// Describe implements serving.Model.
func (m *SupervisedModel) Describe(labels bool) serving.ModelDescription {
	desc := serving.ModelDescription{
		MLLib:       MLLib,
		Type:        Supervised,
		Description: m.description,
	}
	if labels {
		desc.Labels = m.snapshot().Labels
	}
	return desc
}

// predictOne scores every label for an input and returns the best
// ones, most probable first.
func (m *SupervisedModel) predictOne(input interface{}, iterations int, best int) serving.Payload {
	labels := m.snapshot().Labels
	type class struct {
		label string
		score float64
	}
	classes := make([]class, len(labels))
	total := 0.0
	for i, label := range labels {
		classes[i] = class{label, 1 + unit(input, label, iterations)*float64(iterations+1)}
		total += classes[i].score
	}
	sort.SliceStable(classes, func(i, j int) bool {
		return classes[i].score > classes[j].score
	})
	if best <= 0 || best > len(classes) {
		best = 1
	}
	out := make([]interface{}, best)
	for i := range out {
		out[i] = map[string]interface{}{
			"cat":  classes[i].label,
			"prob": classes[i].score / total,
		}
	}
	return serving.Payload{
		"uri":     fmt.Sprint(input),
		"classes": out,
	}
}

// UnsupervisedModel maps inputs to fixed-length feature vectors.
type UnsupervisedModel struct {
	model
}

func (m *UnsupervisedModel) base() *model { return &m.model }

// Describe implements serving.Model.
func (m *UnsupervisedModel) Describe(labels bool) serving.ModelDescription {
	return serving.ModelDescription{
		MLLib:       MLLib,
		Type:        Unsupervised,
		Description: m.description,
	}
}

func (m *UnsupervisedModel) predictOne(input interface{}, iterations int, best int) serving.Payload {
	dims := m.snapshot().Dimensions
	vals := make([]interface{}, dims)
	for i := range vals {
		vals[i] = unit(input, strconv.Itoa(i), iterations)
	}
	return serving.Payload{
		"uri":  fmt.Sprint(input),
		"vals": vals,
	}
}

// newModel builds a fresh model from a creation request.
func newModel(name string, req serviceRequest) (memModel, error) {
	base := model{name: name, description: req.Description}
	switch req.Type {
	case "", Supervised:
		labels := req.Parameters.MLLib.Labels
		if len(labels) == 0 {
			n := req.Parameters.MLLib.NClasses
			if n == 0 {
				n = 2
			}
			if n < 0 {
				return nil, serving.ErrBadParameter{
					Param:  "nclasses",
					Reason: "nclasses must be positive",
				}
			}
			for i := 0; i < n; i++ {
				labels = append(labels, "class_"+strconv.Itoa(i))
			}
		}
		base.state = modelState{Type: Supervised, Labels: labels}
		return &SupervisedModel{model: base}, nil
	case Unsupervised:
		dims := req.Parameters.MLLib.Dimensions
		if dims == 0 {
			dims = 4
		}
		if dims < 0 {
			return nil, serving.ErrBadParameter{
				Param:  "dims",
				Reason: "dims must be positive",
			}
		}
		base.state = modelState{Type: Unsupervised, Dimensions: dims}
		return &UnsupervisedModel{model: base}, nil
	default:
		return nil, serving.ErrBadParameter{
			Param:  "type",
			Reason: fmt.Sprintf("unknown service type %q", req.Type),
		}
	}
}

// restoreModel builds a model from persisted state.
func restoreModel(name, description string, state modelState) (memModel, error) {
	base := model{name: name, description: description, state: state}
	switch state.Type {
	case Supervised:
		return &SupervisedModel{model: base}, nil
	case Unsupervised:
		return &UnsupervisedModel{model: base}, nil
	default:
		return nil, fmt.Errorf("stored model %v has unknown type %q", name, state.Type)
	}
}

// unit deterministically maps an input, a key and a training
// iteration count to [0, 1).
func unit(input interface{}, key string, iterations int) float64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%v\x00%v\x00%v", input, key, iterations)
	return float64(h.Sum64()>>11) / float64(1<<53)
}
