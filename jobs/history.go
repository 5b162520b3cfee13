// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package jobs

import (
	"container/list"

	"github.com/diffeo/go-modelserve/serving"
)

// history is a least-recently-used record of the last finished job
// for each service, with a fixed capacity.  It is not safe for
// concurrent use; the tracker guards it with its own lock.
type history struct {
	size      int
	evictList *list.List
	index     map[string]*list.Element
}

func newHistory(size int) *history {
	return &history{
		size:      size,
		evictList: list.New(),
		index:     make(map[string]*list.Element),
	}
}

// Get retrieves the finished job for a service, or nil.  This counts
// as a use for eviction purposes.
func (h *history) Get(service string) *serving.JobInfo {
	if element, present := h.index[service]; present {
		h.evictList.MoveToBack(element)
		return element.Value.(*serving.JobInfo)
	}
	return nil
}

// Put records a finished job, replacing any older job for the same
// service and possibly evicting some other service's job.
func (h *history) Put(info *serving.JobInfo) {
	if element, present := h.index[info.Service]; present {
		element.Value = info
		h.evictList.MoveToBack(element)
		return
	}

	element := h.evictList.PushBack(info)
	h.index[info.Service] = element
	for len(h.index) > h.size {
		head := h.evictList.Front()
		old := head.Value.(*serving.JobInfo)
		delete(h.index, old.Service)
		h.evictList.Remove(head)
	}
}

// Remove forgets the finished job for a service.  It does nothing if
// there is none.
func (h *history) Remove(service string) {
	if element, present := h.index[service]; present {
		delete(h.index, service)
		h.evictList.Remove(element)
	}
}

// Each calls f on every recorded job, oldest first.
func (h *history) Each(f func(*serving.JobInfo)) {
	for element := h.evictList.Front(); element != nil; element = element.Next() {
		f(element.Value.(*serving.JobInfo))
	}
}
