// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package lifecycle

import (
	"context"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/diffeo/go-modelserve/registry"
	"github.com/diffeo/go-modelserve/serving"
)

// predictEnvelope holds the parts of a prediction request the
// controller routes on.
type predictEnvelope struct {
	Service  string `mapstructure:"service"`
	Resource string `mapstructure:"resource"`
}

// Predict runs a single prediction.  If the request names a resource,
// the next frame is read from it and passed to the engine under the
// "frame" key.
func (c *Controller) Predict(ctx context.Context, payload serving.Payload) (*serving.PredictResult, error) {
	if payload == nil {
		return nil, serving.ErrMissingBody
	}
	var env predictEnvelope
	if err := payload.Decode(&env); err != nil {
		return nil, err
	}
	if env.Service == "" {
		return nil, serving.ErrBadParameter{Param: "service", Reason: "service is required"}
	}

	svc, err := c.services.Acquire(env.Service)
	if err != nil {
		return nil, err
	}
	defer svc.Release()
	leases := []registry.Revocable{svc}

	var res *registry.Lease[serving.Resource]
	if env.Resource != "" {
		res, err = c.resources.Acquire(env.Resource)
		if err != nil {
			return nil, err
		}
		defer res.Release()
		leases = append(leases, res)
	}

	ctx, cancel, cause := registry.Bind(ctx, leases...)
	defer cancel()

	if res != nil {
		frame, err := res.Value.Next(ctx)
		if err != nil {
			if gone := cause(); gone != nil {
				return nil, gone
			}
			return nil, err
		}
		payload = payload.With("frame", frame)
	}

	start := c.clock.Now()
	result, err := c.engine.Predict(ctx, svc.Value.model, payload)
	if err != nil {
		if gone := cause(); gone != nil {
			return nil, gone
		}
		return nil, err
	}
	elapsed := c.clock.Now().Sub(start)
	return &serving.PredictResult{
		Service: env.Service,
		Time:    float64(elapsed) / float64(time.Millisecond),
		Result:  result,
	}, nil
}

// Chain runs a sequence of predictions, in order.  The payload must
// look like
//
//     {"chain": {"calls": [{"service": "detect", ...}, ...]}}
//
// where each call is a prediction request.  A call may carry an "id"
// that names its step in the result; it defaults to its position.
// Once a step fails the remaining steps are skipped.  Step failures
// are reported in the result; only a malformed chain is an error.
func (c *Controller) Chain(ctx context.Context, name string, payload serving.Payload) (*serving.ChainResult, error) {
	if err := requireName(name); err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, serving.ErrMissingBody
	}
	calls, err := chainCalls(payload)
	if err != nil {
		return nil, err
	}

	run, end := c.jobs.BeginChain(name)
	defer end()
	log := c.logger.WithFields(logrus.Fields{
		"chain": name,
		"run":   run,
	})

	result := &serving.ChainResult{
		Name:       name,
		Run:        run,
		Steps:      make([]serving.ChainStep, len(calls)),
		FailedStep: -1,
	}
	for i, call := range calls {
		step := &result.Steps[i]
		step.ID = strconv.Itoa(i)
		if id, ok := call["id"].(string); ok && id != "" {
			step.ID = id
		}
		step.Service, _ = call["service"].(string)

		if result.FailedStep >= 0 {
			step.Status = serving.StepSkipped
			continue
		}
		out, err := c.Predict(ctx, call)
		if err != nil {
			outcome := serving.OutcomeOf(err)
			step.Status = serving.StepFailed
			step.Code = outcome.HTTPStatus()
			if outcome != serving.InternalFault {
				step.Error = err.Error()
			}
			result.FailedStep = i
			log.WithFields(logrus.Fields{
				"step": step.ID,
				"err":  err,
			}).Info("chain step failed")
			continue
		}
		step.Status = serving.StepOK
		step.Result = out.Result
	}
	return result, nil
}

// chainCalls extracts the list of calls from a chain payload.
func chainCalls(payload serving.Payload) ([]serving.Payload, error) {
	malformed := serving.ErrBadParameter{
		Param:  "chain",
		Reason: "chain must contain a list of calls",
	}
	chain, ok := serving.Object(payload["chain"])
	if !ok {
		return nil, malformed
	}
	list, ok := chain["calls"].([]interface{})
	if !ok || len(list) == 0 {
		return nil, malformed
	}
	calls := make([]serving.Payload, len(list))
	for i, item := range list {
		call, ok := serving.Object(item)
		if !ok {
			return nil, serving.ErrBadParameter{
				Param:  "chain",
				Reason: "chain call " + strconv.Itoa(i) + " is not an object",
			}
		}
		calls[i] = call
	}
	return calls, nil
}
