// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

// Package engine moves batches of files between a local root and the
// object store, with retries, progress events and per-file reporting.
package engine

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/access"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/errs"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/logging"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/metrics"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/storage"
)

// Store is the part of storage.Gateway the engine uses.
type Store interface {
	PutStream(ctx context.Context, bucket, key string, r io.Reader, size int64, extras storage.PutExtras) error
	GetStream(ctx context.Context, bucket, key string, w io.Writer, extras storage.GetExtras) (int64, error)
}

// StoreFactory returns the store for an access context. It is called once
// per distinct context and batch.
type StoreFactory func(ac access.Context) Store

type Options struct {
	// MaxRetries of a file after TransientErrors. Zero means
	// DefaultMaxRetries, negative disables retries.
	MaxRetries  int
	Parallelism int
	Sink        Sink
	Backoff     BackoffFunc
	// FileTimeout bounds each attempt of a file; zero leaves it to the
	// chunk timeout. An expired attempt is a TransientError.
	FileTimeout time.Duration
	// FollowSymlinks lets uploads read files whose symlinks resolve
	// outside the local root.
	FollowSymlinks bool
	// Sleep waits between attempts; it returns early with ctx.
	Sleep   func(ctx context.Context, d time.Duration) error
	Logger  logrus.FieldLogger
	Metrics *metrics.Metrics
	// OnAuthError is called when a transfer under ac was rejected.
	OnAuthError func(ac access.Context)
}

type Engine struct {
	stores      StoreFactory
	maxRetries  int
	parallelism int
	sink        *serialSink
	backoff     BackoffFunc
	sleep       func(ctx context.Context, d time.Duration) error
	log         logrus.FieldLogger
	metrics     *metrics.Metrics
	onAuthError func(ac access.Context)
	now         func() time.Time

	fileTimeout    time.Duration
	followSymlinks bool
}

func New(stores StoreFactory, opts Options) *Engine {
	e := &Engine{
		stores:      stores,
		maxRetries:  opts.MaxRetries,
		parallelism: opts.Parallelism,
		sink:        &serialSink{sink: opts.Sink},
		backoff:     opts.Backoff,
		sleep:       opts.Sleep,
		log:         logging.OrDiscard(opts.Logger),
		metrics:     opts.Metrics,
		onAuthError: opts.OnAuthError,
		now:         time.Now,

		fileTimeout:    opts.FileTimeout,
		followSymlinks: opts.FollowSymlinks,
	}
	switch {
	case e.maxRetries == 0:
		e.maxRetries = DefaultMaxRetries
	case e.maxRetries < 0:
		e.maxRetries = 0
	}
	if e.parallelism <= 0 {
		e.parallelism = DefaultParallelism
	}
	if e.backoff == nil {
		e.backoff = NewBackoff(nil)
	}
	if e.sleep == nil {
		e.sleep = sleepContext
	}
	return e
}

// item pairs a File with its local path for the lifetime of a transfer.
type item struct {
	file  access.File
	local string
	store Store
}

// attemptFunc runs one attempt and returns the bytes moved.
type attemptFunc func(ctx context.Context, it *item, progress func(total int64)) (int64, error)

// run transfers items with at most e.parallelism files in flight. Files
// start in input order; once ctx is done no further file starts.
func (e *Engine) run(ctx context.Context, dir Direction, items []*item, once attemptFunc) (*Report, error) {
	results := make([]Result, len(items))
	var g errgroup.Group
	g.SetLimit(e.parallelism)

	started := 0
	for i, it := range items {
		if ctx.Err() != nil {
			break
		}
		started++
		g.Go(func() error {
			results[i] = e.transfer(ctx, dir, it, once)
			return nil
		})
	}
	_ = g.Wait()

	for i := started; i < len(items); i++ {
		results[i] = e.cancelled(ctx, dir, items[i], 0)
	}

	report := newReport(dir, results)
	e.log.WithFields(logrus.Fields{
		"direction": dir,
		"succeeded": len(report.Succeeded),
		"failed":    len(report.Failed),
		"cancelled": len(report.Cancelled),
	}).Info("batch finished")
	return report, report.Err()
}

// transfer drives one file through its attempts:
// started, then progress and retry events, then one terminal event.
func (e *Engine) transfer(ctx context.Context, dir Direction, it *item, once attemptFunc) Result {
	if ctx.Err() != nil {
		return e.cancelled(ctx, dir, it, 0)
	}
	log := e.log.WithFields(logrus.Fields{
		"project": it.file.Context.ProjectID(),
		"kind":    it.file.Context.Kind(),
		"file":    it.file.RelPath,
		"key":     it.file.Key(),
	})
	e.emit(Event{Kind: EventStarted, Direction: dir, File: it.file.RelPath, Key: it.file.Key(), Total: it.file.Size})

	var high int64
	progress := func(total int64) {
		if total <= high {
			return
		}
		e.metrics.AddBytes(string(dir), total-high)
		high = total
		e.emit(Event{Kind: EventProgress, Direction: dir, File: it.file.RelPath, Key: it.file.Key(), Bytes: total, Total: it.file.Size})
	}

	for attempt := 1; ; attempt++ {
		n, err := e.attempt(ctx, it, once, progress)
		if err == nil {
			e.metrics.FileDone(string(dir), string(OutcomeSucceeded))
			e.emit(Event{Kind: EventCompleted, Direction: dir, File: it.file.RelPath, Key: it.file.Key(), Bytes: n, Total: n})
			log.WithField("bytes", n).Debug("transfer completed")
			return Result{Path: it.file.RelPath, Key: it.file.Key(), Local: it.local, Bytes: n, Attempts: attempt, Outcome: OutcomeSucceeded}
		}

		if ctx.Err() != nil || errs.Is(err, errs.Cancelled) {
			return e.cancelled(ctx, dir, it, attempt)
		}
		if errs.Is(err, errs.Auth) && e.onAuthError != nil {
			e.onAuthError(it.file.Context)
		}
		if errs.Retriable(err) && attempt <= e.maxRetries {
			delay := e.backoff(attempt)
			left := e.maxRetries - attempt
			e.metrics.Retry(string(dir))
			e.emit(Event{
				Kind: EventRetry, Direction: dir, File: it.file.RelPath, Key: it.file.Key(),
				Bytes: high, Total: it.file.Size, Attempt: attempt, Delay: delay, AttemptsLeft: left, Err: err,
			})
			log.WithError(err).WithFields(logrus.Fields{"attempt": attempt, "delay": delay}).Warn("transient failure, retrying")
			if e.sleep(ctx, delay) != nil {
				return e.cancelled(ctx, dir, it, attempt)
			}
			continue
		}

		e.metrics.FileDone(string(dir), string(OutcomeFailed))
		e.emit(Event{Kind: EventFailed, Direction: dir, File: it.file.RelPath, Key: it.file.Key(), Bytes: high, Total: it.file.Size, Attempt: attempt, Err: err})
		log.WithError(err).WithField("attempt", attempt).Error("transfer failed")
		return Result{Path: it.file.RelPath, Key: it.file.Key(), Local: it.local, Attempts: attempt, Outcome: OutcomeFailed, Err: err}
	}
}

// attempt runs once under the per-file deadline, if any. The deadline
// firing while ctx is still live is reported as its TransientError.
func (e *Engine) attempt(ctx context.Context, it *item, once attemptFunc, progress func(int64)) (int64, error) {
	if e.fileTimeout <= 0 {
		return once(ctx, it, progress)
	}
	timeout := errs.New(errs.Transient, "transfer "+it.file.RelPath, "no completion within %s", e.fileTimeout)
	actx, cancel := context.WithTimeoutCause(ctx, e.fileTimeout, timeout)
	defer cancel()
	n, err := once(actx, it, progress)
	if err != nil && ctx.Err() == nil && actx.Err() != nil {
		return n, context.Cause(actx)
	}
	return n, err
}

func (e *Engine) cancelled(ctx context.Context, dir Direction, it *item, attempts int) Result {
	cause := context.Cause(ctx)
	if cause == nil {
		cause = context.Canceled
	}
	err := &errs.Error{Kind: errs.Cancelled, Op: string(dir) + " " + it.file.RelPath, Err: cause}
	e.metrics.FileDone(string(dir), string(OutcomeCancelled))
	e.emit(Event{Kind: EventCancelled, Direction: dir, File: it.file.RelPath, Key: it.file.Key(), Total: it.file.Size, Err: err})
	return Result{Path: it.file.RelPath, Key: it.file.Key(), Local: it.local, Attempts: attempts, Outcome: OutcomeCancelled, Err: err}
}

func (e *Engine) emit(ev Event) {
	ev.Time = e.now()
	e.sink.Emit(ev)
}

// storesFor builds one store per distinct access context of the batch.
func (e *Engine) storesFor(items []*item) {
	stores := map[access.Context]Store{}
	for _, it := range items {
		s, ok := stores[it.file.Context]
		if !ok {
			s = e.stores(it.file.Context)
			stores[it.file.Context] = s
		}
		it.store = s
	}
}
