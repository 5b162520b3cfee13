// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package servingtest

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/diffeo/go-modelserve/serving"
)

// Engine is a scriptable serving.Engine for tests.  Its behavior is
// driven by well-known payload keys, so it behaves the same whether
// the payload was built in-process or sent over the wire:
//
//     "fail": "message"     the call returns an internal error
//     "bad": "message"      the call returns ErrBadParameter
//     "forbid": "message"   the call returns ErrForbidden
//     "block": true         Train runs until cancelled or Finish is called
//     "frames": n           OpenResource produces n frames, then EOF
//     "labels": [...]       CreateService gives the model these labels
//
// It also records which services were released and cleared and which
// resources were closed.
type Engine struct {
	lock     sync.Mutex
	released []string
	cleared  []ClearCall
	closed   []string
	finish   map[string]chan struct{}
}

// ClearCall records one call to Engine.ClearService.
type ClearCall struct {
	Name string
	Mode serving.ClearMode
}

// NewEngine creates a new fake engine.
func NewEngine() *Engine {
	return &Engine{
		finish: make(map[string]chan struct{}),
	}
}

// scripted returns the error a payload asks for, if any.
func scripted(p serving.Payload) error {
	if msg, ok := p["fail"].(string); ok {
		return errors.New(msg)
	}
	if msg, ok := p["bad"].(string); ok {
		return serving.ErrBadParameter{Param: "bad", Reason: msg}
	}
	if msg, ok := p["forbid"].(string); ok {
		return serving.ErrForbidden{Reason: msg}
	}
	return nil
}

// toInt converts a decoded JSON or CBOR number to int.
func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// Released returns the names of services released so far.
func (e *Engine) Released() []string {
	e.lock.Lock()
	defer e.lock.Unlock()
	return append([]string(nil), e.released...)
}

// Cleared returns the ClearService calls made so far.
func (e *Engine) Cleared() []ClearCall {
	e.lock.Lock()
	defer e.lock.Unlock()
	return append([]ClearCall(nil), e.cleared...)
}

// Closed returns the names of resources closed so far.
func (e *Engine) Closed() []string {
	e.lock.Lock()
	defer e.lock.Unlock()
	return append([]string(nil), e.closed...)
}

// finishChan returns the channel that releases blocked training on
// a service.
func (e *Engine) finishChan(service string) chan struct{} {
	e.lock.Lock()
	defer e.lock.Unlock()
	ch, present := e.finish[service]
	if !present {
		ch = make(chan struct{})
		e.finish[service] = ch
	}
	return ch
}

// Finish lets a blocked training job on service complete.
func (e *Engine) Finish(service string) {
	ch := e.finishChan(service)
	e.lock.Lock()
	defer e.lock.Unlock()
	delete(e.finish, service)
	close(ch)
}

// Model is the fake engine's model.
type Model struct {
	Name   string
	Labels []string

	lock        sync.Mutex
	predictions int
}

// Describe implements serving.Model.
func (m *Model) Describe(labels bool) serving.ModelDescription {
	desc := serving.ModelDescription{
		MLLib:       "fake",
		Type:        "supervised",
		Description: m.Name,
	}
	if labels {
		desc.Labels = m.Labels
	}
	return desc
}

// Status implements serving.Model.
func (m *Model) Status() serving.Payload {
	m.lock.Lock()
	defer m.lock.Unlock()
	return serving.Payload{"predictions": m.predictions}
}

// CreateService implements serving.Engine.
func (e *Engine) CreateService(ctx context.Context, name string, payload serving.Payload) (serving.Model, error) {
	if err := scripted(payload); err != nil {
		return nil, err
	}
	model := &Model{Name: name}
	if labels, ok := payload["labels"].([]interface{}); ok {
		for _, label := range labels {
			if s, ok := label.(string); ok {
				model.Labels = append(model.Labels, s)
			}
		}
	}
	return model, nil
}

// ReleaseService implements serving.Engine.
func (e *Engine) ReleaseService(ctx context.Context, name string, model serving.Model) error {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.released = append(e.released, name)
	return nil
}

// ClearService implements serving.Engine.
func (e *Engine) ClearService(ctx context.Context, name string, mode serving.ClearMode) error {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.cleared = append(e.cleared, ClearCall{Name: name, Mode: mode})
	return nil
}

// Predict implements serving.Engine.  It echoes the "data" and
// "frame" keys of the payload.
func (e *Engine) Predict(ctx context.Context, model serving.Model, payload serving.Payload) (serving.Payload, error) {
	if err := scripted(payload); err != nil {
		return nil, err
	}
	m := model.(*Model)
	m.lock.Lock()
	m.predictions++
	m.lock.Unlock()
	result := serving.Payload{"model": m.Name}
	if data, present := payload["data"]; present {
		result["data"] = data
	}
	if frame, present := payload["frame"]; present {
		result["frame"] = frame
	}
	return result, nil
}

// Train implements serving.Engine.
func (e *Engine) Train(ctx context.Context, model serving.Model, payload serving.Payload, progress func(serving.Payload)) (serving.Payload, error) {
	m := model.(*Model)
	block, _ := payload["block"].(bool)
	var finished chan struct{}
	if block {
		finished = e.finishChan(m.Name)
	}
	progress(serving.Payload{"iteration": 1})
	if block {
		select {
		case <-finished:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := scripted(payload); err != nil {
		return nil, err
	}
	return serving.Payload{"trained": m.Name}, nil
}

// Resource is the fake engine's resource.  It produces frames
// {"index": i}.
type Resource struct {
	Name string

	// Limit is the number of frames produced, or 0 for no limit.
	Limit int

	lock sync.Mutex
	next int
}

// Describe implements serving.Resource.
func (r *Resource) Describe() serving.Payload {
	r.lock.Lock()
	defer r.lock.Unlock()
	return serving.Payload{"frames_read": r.next}
}

// Next implements serving.Resource.  An unlimited resource produces
// a frame every millisecond.
func (r *Resource) Next(ctx context.Context) (serving.Payload, error) {
	if r.Limit == 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.Limit > 0 && r.next >= r.Limit {
		return nil, io.EOF
	}
	frame := serving.Payload{"index": r.next}
	r.next++
	return frame, nil
}

// OpenResource implements serving.Engine.
func (e *Engine) OpenResource(ctx context.Context, name string, payload serving.Payload) (serving.Resource, error) {
	if err := scripted(payload); err != nil {
		return nil, err
	}
	res := &Resource{Name: name}
	if n, ok := toInt(payload["frames"]); ok {
		res.Limit = n
	}
	return res, nil
}

// CloseResource implements serving.Engine.
func (e *Engine) CloseResource(ctx context.Context, resource serving.Resource) error {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.closed = append(e.closed, resource.(*Resource).Name)
	return nil
}

// RunStream implements serving.Engine.  It predicts on every frame of
// the resource until it is exhausted.
func (e *Engine) RunStream(ctx context.Context, run serving.StreamRun) error {
	for {
		frame, err := run.Resource.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		result, err := e.Predict(ctx, run.Model, serving.Payload{"frame": frame})
		if err != nil {
			return err
		}
		run.Progress(result)
		if err := scripted(run.Payload); err != nil {
			return err
		}
	}
}
