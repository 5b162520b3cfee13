// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package memengine

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/diffeo/go-modelserve/serving"
)

// resourceRequest is the part of a resource creation payload the
// engine reads.
type resourceRequest struct {
	Type string `mapstructure:"type"`

	// Data lists the frame contents, played in order.
	Data []interface{} `mapstructure:"data"`

	// Frames limits the number of frames produced.  Zero means
	// len(Data), or no limit if Loop is set.
	Frames int `mapstructure:"frames"`

	// Loop replays Data from the start once it is exhausted.
	Loop bool `mapstructure:"loop"`
}

// FrameResource produces frames {"index": i, "data": d} from a fixed
// list of data values, one every frame interval.
type FrameResource struct {
	name     string
	data     []interface{}
	limit    int
	loop     bool
	interval time.Duration
	clock    clock.Clock

	lock sync.Mutex
	next int
}

func newResource(name string, req resourceRequest, interval time.Duration, clk clock.Clock) (*FrameResource, error) {
	switch req.Type {
	case "", "frames":
	default:
		return nil, serving.ErrBadParameter{
			Param:  "type",
			Reason: "resource type must be frames",
		}
	}
	if req.Frames < 0 {
		return nil, serving.ErrBadParameter{
			Param:  "frames",
			Reason: "frames must not be negative",
		}
	}
	if len(req.Data) == 0 && req.Frames == 0 && !req.Loop {
		return nil, serving.ErrBadParameter{
			Param:  "data",
			Reason: "a resource needs data, a frame count or loop",
		}
	}
	limit := req.Frames
	if limit == 0 && !req.Loop {
		limit = len(req.Data)
	}
	return &FrameResource{
		name:     name,
		data:     req.Data,
		limit:    limit,
		loop:     req.Loop,
		interval: interval,
		clock:    clk,
	}, nil
}

// Describe implements serving.Resource.
func (r *FrameResource) Describe() serving.Payload {
	r.lock.Lock()
	defer r.lock.Unlock()
	return serving.Payload{
		"type":        "frames",
		"frames_read": r.next,
		"frames":      r.limit,
	}
}

// Next implements serving.Resource.
func (r *FrameResource) Next(ctx context.Context) (serving.Payload, error) {
	if r.interval > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-r.clock.After(r.interval):
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	if r.limit > 0 && r.next >= r.limit {
		return nil, io.EOF
	}
	frame := serving.Payload{"index": r.next}
	if len(r.data) > 0 {
		frame["data"] = r.data[r.next%len(r.data)]
	} else {
		frame["data"] = r.next
	}
	r.next++
	return frame, nil
}
