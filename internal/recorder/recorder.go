// Package recorder persists evaluation outcomes off the request path.
//
// Outcomes are queued by Submit and written by a fixed pool of workers.
// Writes for the same key are coalesced so concurrent duplicates reach the
// store once, and store failures are retried with a fixed backoff before
// being logged and dropped. Nothing is ever reported back to the submitter.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/banshee-data/mutant.report/internal/monitoring"
	"github.com/banshee-data/mutant.report/internal/timeutil"
)

var (
	// ErrQueueFull is returned by Submit when no queue slot is free.
	ErrQueueFull = errors.New("recorder queue is full")
	// ErrStopped is returned by Submit after Stop.
	ErrStopped = errors.New("recorder is stopped")
)

// Store is where outcomes end up. InsertOutcome must ignore a key that is
// already stored.
type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	InsertOutcome(ctx context.Context, key string, isMutant bool) (bool, error)
}

// Options tunes a Recorder. Zero values take the defaults below.
type Options struct {
	Workers      int
	QueueSize    int
	MaxAttempts  int
	RetryBackoff time.Duration
	Clock        timeutil.Clock
	Logger       *zap.Logger
}

const (
	defaultWorkers      = 4
	defaultQueueSize    = 1024
	defaultMaxAttempts  = 3
	defaultRetryBackoff = 200 * time.Millisecond
)

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = defaultWorkers
	}
	if o.QueueSize <= 0 {
		o.QueueSize = defaultQueueSize
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultMaxAttempts
	}
	if o.RetryBackoff < 0 {
		o.RetryBackoff = 0
	} else if o.RetryBackoff == 0 {
		o.RetryBackoff = defaultRetryBackoff
	}
	if o.Clock == nil {
		o.Clock = timeutil.RealClock{}
	}
	if o.Logger == nil {
		o.Logger = monitoring.L()
	}
	return o
}

// Counters is a snapshot of what a Recorder has done so far.
type Counters struct {
	Submitted  int64 `json:"submitted"`
	Stored     int64 `json:"stored"`
	Duplicates int64 `json:"duplicates"`
	Failed     int64 `json:"failed"`
	Rejected   int64 `json:"rejected"`
}

type job struct {
	key      string
	isMutant bool
}

// Recorder queues outcomes and writes them to a Store in the background.
type Recorder struct {
	store Store
	opts  Options
	queue chan job
	calls singleflight.Group

	mu      sync.RWMutex
	started bool
	stopped bool
	workers *errgroup.Group
	cancel  context.CancelFunc

	submitted  atomic.Int64
	stored     atomic.Int64
	duplicates atomic.Int64
	failed     atomic.Int64
	rejected   atomic.Int64
}

// New returns a Recorder writing to store. Call Start before submitting.
func New(store Store, opts Options) *Recorder {
	opts = opts.withDefaults()
	return &Recorder{
		store: store,
		opts:  opts,
		queue: make(chan job, opts.QueueSize),
	}
}

// Start launches the worker pool. The workers stop when ctx is cancelled or
// when Stop has drained the queue. Calling Start more than once is a no-op.
func (r *Recorder) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || r.stopped {
		return
	}
	r.started = true

	ctx, r.cancel = context.WithCancel(ctx)
	r.workers = &errgroup.Group{}
	for i := 0; i < r.opts.Workers; i++ {
		r.workers.Go(func() error {
			r.work(ctx)
			return nil
		})
	}
	r.opts.Logger.Info("recorder started",
		zap.Int("workers", r.opts.Workers),
		zap.Int("queue_size", r.opts.QueueSize))
}

// Submit queues an outcome without blocking.
func (r *Recorder) Submit(key string, isMutant bool) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stopped {
		r.rejected.Add(1)
		return ErrStopped
	}
	select {
	case r.queue <- job{key: key, isMutant: isMutant}:
		r.submitted.Add(1)
		return nil
	default:
		r.rejected.Add(1)
		return ErrQueueFull
	}
}

// Stop refuses further submissions and waits for queued outcomes to be
// written. If ctx ends first the workers are cancelled and ctx's error is
// returned once they have exited.
func (r *Recorder) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	close(r.queue)
	started := r.started
	r.mu.Unlock()

	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		_ = r.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		r.opts.Logger.Info("recorder stopped", zap.Any("counters", r.Counters()))
		return nil
	case <-ctx.Done():
		r.cancel()
		<-done
		return fmt.Errorf("recorder stop: %w", ctx.Err())
	}
}

// Counters returns a snapshot of the recorder's activity.
func (r *Recorder) Counters() Counters {
	return Counters{
		Submitted:  r.submitted.Load(),
		Stored:     r.stored.Load(),
		Duplicates: r.duplicates.Load(),
		Failed:     r.failed.Load(),
		Rejected:   r.rejected.Load(),
	}
}

func (r *Recorder) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-r.queue:
			if !ok {
				return
			}
			r.record(ctx, j)
		}
	}
}

func (r *Recorder) record(ctx context.Context, j job) {
	// Shared results go to every caller waiting on the key, so only the
	// call that did the work counts it.
	_, _, _ = r.calls.Do(j.key, func() (interface{}, error) {
		inserted, err := r.write(ctx, j)
		switch {
		case err != nil:
			r.failed.Add(1)
			r.opts.Logger.Error("failed to record outcome",
				zap.String("key", j.key),
				zap.Bool("is_mutant", j.isMutant),
				zap.Int("attempts", r.opts.MaxAttempts),
				zap.Error(err))
		case inserted:
			r.stored.Add(1)
		default:
			r.duplicates.Add(1)
		}
		return nil, nil
	})
}

// write stores j unless its key is already present, retrying store errors.
func (r *Recorder) write(ctx context.Context, j job) (bool, error) {
	var err error
	for attempt := 1; ; attempt++ {
		var inserted bool
		inserted, err = r.writeOnce(ctx, j)
		if err == nil {
			return inserted, nil
		}
		if attempt >= r.opts.MaxAttempts {
			return false, err
		}
		r.opts.Logger.Warn("retrying outcome write",
			zap.String("key", j.key),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if serr := timeutil.SleepContext(ctx, r.opts.Clock, r.opts.RetryBackoff); serr != nil {
			return false, fmt.Errorf("%w (retry abandoned: %v)", err, serr)
		}
	}
}

func (r *Recorder) writeOnce(ctx context.Context, j job) (bool, error) {
	exists, err := r.store.Exists(ctx, j.key)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	return r.store.InsertOutcome(ctx, j.key, j.isMutant)
}
