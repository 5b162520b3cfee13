// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package jobs tracks training jobs and chain executions.
//
// At most one training job runs against a service at a time.  Once a
// job finishes its final state is kept, one per service, in a bounded
// history so that clients polling for the job can see how it ended.
// Asynchronous jobs run on background goroutines, optionally limited
// by a semaphore; blocking jobs run on the caller's goroutine.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/diffeo/go-modelserve/serving"
)

// Func is the body of a training job.  It must return promptly once
// ctx is cancelled.  progress may be called any number of times.
type Func func(ctx context.Context, progress func(serving.Payload)) (serving.Payload, error)

// Spec describes a job to start.
type Spec struct {
	// Service names the service the job trains.  Required.
	Service string

	// Mode selects whether Start waits for the job.
	Mode serving.JobMode

	// Run is the job body.  Required.
	Run Func

	// Done, if not nil, is called exactly once: when the job has
	// finished, or immediately if Start refuses to run the job.
	Done func()
}

// Config holds the tracker settings.
type Config struct {
	// Clock provides job timestamps.  If nil, uses wall-clock
	// time.
	Clock clock.Clock

	// Logger receives job lifecycle messages.  If nil, uses the
	// logrus standard logger.
	Logger logrus.FieldLogger

	// MaxAsync limits the number of asynchronous jobs that run at
	// once.  Jobs beyond the limit wait in Running state.  Zero
	// means no limit.
	MaxAsync int

	// History is the number of services whose last finished job
	// is remembered.  If zero, defaults to 64.
	History int
}

type job struct {
	id      int
	service string
	mode    serving.JobMode
	started time.Time
	cancel  context.CancelFunc
	done    chan struct{}

	// progress is the last progress report; guarded by the
	// tracker lock.
	progress serving.Payload
}

// Tracker keeps track of running and recently finished jobs.
type Tracker struct {
	clock  clock.Clock
	logger logrus.FieldLogger
	sem    *semaphore.Weighted

	lock     sync.Mutex
	lastID   int
	running  map[string]*job
	finished *history
	chains   map[string]map[string]time.Time
}

// New creates a new job tracker.
func New(config Config) *Tracker {
	if config.Clock == nil {
		config.Clock = clock.New()
	}
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}
	if config.History == 0 {
		config.History = 64
	}
	t := &Tracker{
		clock:    config.Clock,
		logger:   config.Logger,
		running:  make(map[string]*job),
		finished: newHistory(config.History),
		chains:   make(map[string]map[string]time.Time),
	}
	if config.MaxAsync > 0 {
		t.sem = semaphore.NewWeighted(int64(config.MaxAsync))
	}
	return t
}

func (t *Tracker) do(f func() error) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return f()
}

// info builds a snapshot of a running job.  Must be called under the
// tracker lock.
func (j *job) info() *serving.JobInfo {
	return &serving.JobInfo{
		ID:        j.id,
		Service:   j.service,
		Mode:      j.mode,
		State:     serving.JobRunning,
		StartedAt: j.started,
		Progress:  j.progress,
	}
}

// Start starts a job.  If a job is already running against the same
// service, returns ErrJobRunning without running anything.
//
// The job's context is derived from ctx.  For an asynchronous job,
// Start returns a snapshot of the running job immediately.  For a
// blocking job, Start waits for the job and returns its final state
// along with the error, if any, the job returned.
func (t *Tracker) Start(ctx context.Context, spec Spec) (*serving.JobInfo, error) {
	var (
		j      *job
		jobCtx context.Context
		info   *serving.JobInfo
	)
	err := t.do(func() error {
		if cur, present := t.running[spec.Service]; present {
			return serving.ErrJobRunning{Service: spec.Service, Job: cur.id}
		}
		t.lastID++
		j = &job{
			id:      t.lastID,
			service: spec.Service,
			mode:    spec.Mode,
			started: t.clock.Now(),
			done:    make(chan struct{}),
		}
		jobCtx, j.cancel = context.WithCancel(ctx)
		t.running[spec.Service] = j
		info = j.info()
		return nil
	})
	if err != nil {
		if spec.Done != nil {
			spec.Done()
		}
		return nil, err
	}

	t.logger.WithFields(logrus.Fields{
		"service": spec.Service,
		"job":     j.id,
		"mode":    spec.Mode,
	}).Info("training job started")

	if spec.Mode == serving.Async {
		go t.run(jobCtx, j, spec)
		return info, nil
	}
	final, err := t.run(jobCtx, j, spec)
	return final, err
}

// run runs a job body and records its outcome.
func (t *Tracker) run(ctx context.Context, j *job, spec Spec) (*serving.JobInfo, error) {
	var (
		result serving.Payload
		err    error
	)
	if spec.Mode == serving.Async && t.sem != nil {
		err = t.sem.Acquire(ctx, 1)
		if err == nil {
			result, err = spec.Run(ctx, t.progressFunc(j))
			t.sem.Release(1)
		}
	} else {
		result, err = spec.Run(ctx, t.progressFunc(j))
	}

	final := t.finish(ctx, j, result, err)
	j.cancel()
	if spec.Done != nil {
		spec.Done()
	}
	close(j.done)
	return final, err
}

func (t *Tracker) progressFunc(j *job) func(serving.Payload) {
	return func(p serving.Payload) {
		_ = t.do(func() error {
			j.progress = p
			return nil
		})
	}
}

// finish moves a job from the running set to the history.
func (t *Tracker) finish(ctx context.Context, j *job, result serving.Payload, err error) *serving.JobInfo {
	var info *serving.JobInfo
	_ = t.do(func() error {
		info = j.info()
		info.FinishedAt = t.clock.Now()
		switch {
		case err == nil:
			info.State = serving.JobCompleted
			info.Result = result
		case serving.IsCancellation(err) || ctx.Err() != nil:
			info.State = serving.JobCancelled
		default:
			info.State = serving.JobFailed
			info.Error = err.Error()
		}
		if t.running[j.service] == j {
			delete(t.running, j.service)
		}
		recorded := *info
		t.finished.Put(&recorded)
		return nil
	})

	fields := logrus.Fields{
		"service": info.Service,
		"job":     info.ID,
		"state":   info.State,
	}
	if info.State == serving.JobFailed {
		fields["err"] = err
		t.logger.WithFields(fields).Warn("training job failed")
	} else {
		t.logger.WithFields(fields).Info("training job finished")
	}
	return info
}

// matches returns true if a job query selects job id.
func matches(q serving.JobQuery, id int) bool {
	return q.Job == 0 || q.Job == id
}

// Status returns the running or last finished job for a service, or
// nil if there is none or it does not match q.Job.
func (t *Tracker) Status(q serving.JobQuery) *serving.JobInfo {
	var info *serving.JobInfo
	_ = t.do(func() error {
		if j, present := t.running[q.Service]; present {
			if matches(q, j.id) {
				info = j.info()
			}
			return nil
		}
		if last := t.finished.Get(q.Service); last != nil && matches(q, last.ID) {
			copied := *last
			info = &copied
		}
		return nil
	})
	return info
}

// Cancel stops the job for a service and forgets it.  If the job is
// running, cancels its context and waits for it to finish.  Returns
// the job's final state, or nil if there is no matching job.  If ctx
// is cancelled while waiting, returns ctx's error; the job still
// stops and is forgotten.
func (t *Tracker) Cancel(ctx context.Context, q serving.JobQuery) (*serving.JobInfo, error) {
	var (
		j    *job
		info *serving.JobInfo
	)
	_ = t.do(func() error {
		if running, present := t.running[q.Service]; present {
			if matches(q, running.id) {
				j = running
				running.cancel()
			}
			return nil
		}
		if last := t.finished.Get(q.Service); last != nil && matches(q, last.ID) {
			info = last
			t.finished.Remove(q.Service)
		}
		return nil
	})
	if j == nil {
		return info, nil
	}

	select {
	case <-j.done:
	case <-ctx.Done():
		go func() {
			<-j.done
			t.forget(j.service, j.id)
		}()
		return nil, ctx.Err()
	}

	_ = t.do(func() error {
		info = t.finished.Get(j.service)
		if info != nil && info.ID == j.id {
			t.finished.Remove(j.service)
		}
		return nil
	})
	t.logger.WithFields(logrus.Fields{
		"service": j.service,
		"job":     j.id,
	}).Info("training job deleted")
	return info, nil
}

// forget removes the history record of a specific job.
func (t *Tracker) forget(service string, id int) {
	_ = t.do(func() error {
		if last := t.finished.Get(service); last != nil && last.ID == id {
			t.finished.Remove(service)
		}
		return nil
	})
}

// Forget removes any finished job record for a service.  A running
// job is unaffected.
func (t *Tracker) Forget(service string) {
	_ = t.do(func() error {
		t.finished.Remove(service)
		return nil
	})
}

// Counts returns the number of known jobs in each state.
func (t *Tracker) Counts() map[serving.JobState]int {
	result := make(map[serving.JobState]int)
	_ = t.do(func() error {
		result[serving.JobRunning] = len(t.running)
		t.finished.Each(func(info *serving.JobInfo) {
			result[info.State]++
		})
		return nil
	})
	return result
}

// Close cancels every running job and waits for them to finish.
func (t *Tracker) Close() {
	var all []*job
	_ = t.do(func() error {
		for _, j := range t.running {
			j.cancel()
			all = append(all, j)
		}
		return nil
	})
	for _, j := range all {
		<-j.done
	}
}

// BeginChain records the start of a chain execution and returns a
// new unique run identifier.  The returned function must be called
// when the chain finishes.
func (t *Tracker) BeginChain(name string) (run string, end func()) {
	run = uuid.NewV4().String()
	_ = t.do(func() error {
		runs, present := t.chains[name]
		if !present {
			runs = make(map[string]time.Time)
			t.chains[name] = runs
		}
		runs[run] = t.clock.Now()
		return nil
	})
	end = func() {
		_ = t.do(func() error {
			delete(t.chains[name], run)
			if len(t.chains[name]) == 0 {
				delete(t.chains, name)
			}
			return nil
		})
	}
	return
}

// Chains returns the number of in-flight executions of each chain.
func (t *Tracker) Chains() map[string]int {
	result := make(map[string]int)
	_ = t.do(func() error {
		for name, runs := range t.chains {
			result[name] = len(runs)
		}
		return nil
	})
	return result
}
