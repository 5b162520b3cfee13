// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package memengine provides a self-contained serving.Engine, so that
// the model server can run without an external machine-learning
// library.  Its models do no real learning: predictions are
// deterministic functions of the input and of how much the model has
// been trained, which is enough to exercise every control-plane path.
//
// A service is created with a payload like
//
//     {"mllib": "memory", "type": "supervised",
//      "parameters": {"mllib": {"nclasses": 3}}}
//
// Supervised models classify their inputs into labels ("labels" or
// "nclasses" parameters); unsupervised models produce feature vectors
// ("dims" parameter).  Training runs "iterations" steps, one per train
// interval, and can be cancelled between steps.  Resources replay a
// fixed list of frames, one per frame interval.
//
// If a repository root is configured, trained model state is kept in
// a directory per service and reloaded when a service of the same
// name is created again.
package memengine

import (
	"context"
	"io"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"

	"github.com/diffeo/go-modelserve/serving"
)

// Config holds the settings for a new Engine.
type Config struct {
	// Repository is the root directory for model state.  If
	// empty, models are kept in memory only.
	Repository string

	// Clock paces training steps and resource frames.  If nil,
	// uses wall-clock time.
	Clock clock.Clock

	// TrainInterval is the time taken by one training step.
	TrainInterval time.Duration

	// FrameInterval is the time between frames of a resource.
	FrameInterval time.Duration

	// Logger receives engine messages.  If nil, uses the logrus
	// standard logger.
	Logger logrus.FieldLogger
}

// Engine is the in-memory serving.Engine.
type Engine struct {
	repo          repository
	clock         clock.Clock
	trainInterval time.Duration
	frameInterval time.Duration
	logger        logrus.FieldLogger
}

var _ serving.Engine = (*Engine)(nil)

// New creates a new engine.
func New(config Config) *Engine {
	if config.Clock == nil {
		config.Clock = clock.New()
	}
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}
	return &Engine{
		repo:          repository{root: config.Repository},
		clock:         config.Clock,
		trainInterval: config.TrainInterval,
		frameInterval: config.FrameInterval,
		logger:        config.Logger.WithField("mllib", MLLib),
	}
}

func asModel(m serving.Model) (memModel, error) {
	mm, ok := m.(memModel)
	if !ok {
		return nil, serving.ErrForbidden{Reason: "model does not belong to the memory library"}
	}
	return mm, nil
}

// CreateService implements serving.Engine.
func (e *Engine) CreateService(ctx context.Context, name string, payload serving.Payload) (serving.Model, error) {
	var req serviceRequest
	if err := payload.Decode(&req); err != nil {
		return nil, err
	}
	if req.MLLib != MLLib {
		return nil, serving.ErrBadParameter{
			Param:  "mllib",
			Reason: "unknown mllib " + req.MLLib,
		}
	}

	state, found, err := e.repo.Load(name)
	if err != nil {
		return nil, err
	}
	if found {
		if req.Type != "" && req.Type != state.Type {
			return nil, serving.ErrBadParameter{
				Param:  "type",
				Reason: "repository holds a " + state.Type + " model",
			}
		}
		e.logger.WithFields(logrus.Fields{
			"service":    name,
			"iterations": state.Iterations,
		}).Debug("loaded stored model")
		return restoreModel(name, req.Description, state)
	}
	return newModel(name, req)
}

// ReleaseService implements serving.Engine.
func (e *Engine) ReleaseService(ctx context.Context, name string, model serving.Model) error {
	e.logger.WithField("service", name).Debug("released model")
	return nil
}

// ClearService implements serving.Engine.
func (e *Engine) ClearService(ctx context.Context, name string, mode serving.ClearMode) error {
	e.logger.WithFields(logrus.Fields{
		"service": name,
		"clear":   mode,
	}).Debug("clearing model files")
	return e.repo.Clear(name, mode)
}

// predictRequest is the part of a prediction payload the engine
// reads.
type predictRequest struct {
	Data       interface{} `mapstructure:"data"`
	Frame      interface{} `mapstructure:"frame"`
	Parameters struct {
		Output struct {
			Best int `mapstructure:"best"`
		} `mapstructure:"output"`
	} `mapstructure:"parameters"`
}

// inputs returns the list of values to predict on.  A frame injected
// from a resource contributes its data.
func (req predictRequest) inputs() ([]interface{}, error) {
	data := req.Data
	if data == nil && req.Frame != nil {
		if frame, ok := serving.Object(req.Frame); ok {
			data = frame["data"]
		} else {
			data = req.Frame
		}
	}
	switch d := data.(type) {
	case nil:
		return nil, serving.ErrBadParameter{Param: "data", Reason: "data is required"}
	case []interface{}:
		if len(d) == 0 {
			return nil, serving.ErrBadParameter{Param: "data", Reason: "data must not be empty"}
		}
		return d, nil
	default:
		return []interface{}{d}, nil
	}
}

// Predict implements serving.Engine.
func (e *Engine) Predict(ctx context.Context, model serving.Model, payload serving.Payload) (serving.Payload, error) {
	m, err := asModel(model)
	if err != nil {
		return nil, err
	}
	var req predictRequest
	if err = payload.Decode(&req); err != nil {
		return nil, err
	}
	inputs, err := req.inputs()
	if err != nil {
		return nil, err
	}
	iterations := m.base().predicted()
	predictions := make([]interface{}, len(inputs))
	for i, input := range inputs {
		predictions[i] = map[string]interface{}(m.predictOne(input, iterations, req.Parameters.Output.Best))
	}
	return serving.Payload{"predictions": predictions}, nil
}

// trainRequest is the part of a training payload the engine reads.
type trainRequest struct {
	Data       []interface{} `mapstructure:"data"`
	Parameters struct {
		MLLib struct {
			Iterations int `mapstructure:"iterations"`
		} `mapstructure:"mllib"`
	} `mapstructure:"parameters"`
}

// Train implements serving.Engine.  The model only changes if every
// step completes.
func (e *Engine) Train(ctx context.Context, model serving.Model, payload serving.Payload, progress func(serving.Payload)) (serving.Payload, error) {
	m, err := asModel(model)
	if err != nil {
		return nil, err
	}
	var req trainRequest
	if err = payload.Decode(&req); err != nil {
		return nil, err
	}
	steps := req.Parameters.MLLib.Iterations
	if steps == 0 {
		steps = 10
	}
	if steps < 0 {
		return nil, serving.ErrBadParameter{
			Param:  "iterations",
			Reason: "iterations must be positive",
		}
	}

	base := m.base()
	base.lock.Lock()
	if base.training {
		base.lock.Unlock()
		return nil, serving.ErrForbidden{Reason: "model is already training"}
	}
	base.training = true
	start := base.state.Iterations
	base.lock.Unlock()
	defer func() {
		base.lock.Lock()
		base.training = false
		base.lock.Unlock()
	}()

	var loss float64
	for i := 1; i <= steps; i++ {
		if e.trainInterval > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-e.clock.After(e.trainInterval):
			}
		} else if err := ctx.Err(); err != nil {
			return nil, err
		}
		loss = 1 / float64(start+i+1)
		progress(serving.Payload{
			"iteration":  i,
			"iterations": steps,
			"train_loss": loss,
		})
	}

	base.lock.Lock()
	base.state.Iterations = start + steps
	base.lock.Unlock()
	state := base.snapshot()
	if err = e.repo.Save(base.name, state); err != nil {
		return nil, err
	}
	if len(req.Data) > 0 && state.Type == Unsupervised {
		vectors := make([]serving.Payload, len(req.Data))
		for i, input := range req.Data {
			vectors[i] = m.predictOne(input, state.Iterations, 0)
		}
		if err = e.repo.SaveIndex(base.name, state.Iterations, vectors); err != nil {
			return nil, err
		}
	}
	e.logger.WithFields(logrus.Fields{
		"service":    base.name,
		"iterations": state.Iterations,
	}).Debug("training finished")
	return serving.Payload{
		"iterations": state.Iterations,
		"train_loss": loss,
	}, nil
}

// OpenResource implements serving.Engine.
func (e *Engine) OpenResource(ctx context.Context, name string, payload serving.Payload) (serving.Resource, error) {
	var req resourceRequest
	if err := payload.Decode(&req); err != nil {
		return nil, err
	}
	return newResource(name, req, e.frameInterval, e.clock)
}

// CloseResource implements serving.Engine.
func (e *Engine) CloseResource(ctx context.Context, resource serving.Resource) error {
	if r, ok := resource.(*FrameResource); ok {
		e.logger.WithField("resource", r.name).Debug("closed resource")
	}
	return nil
}

// RunStream implements serving.Engine.  Each frame's data is
// predicted with the stream's own parameters.
func (e *Engine) RunStream(ctx context.Context, run serving.StreamRun) error {
	for {
		frame, err := run.Resource.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		request := run.Payload.With("data", []interface{}{frame["data"]})
		result, err := e.Predict(ctx, run.Model, request)
		if err != nil {
			return err
		}
		run.Progress(result.With("index", frame["index"]))
	}
}
