// Package sweep orchestrates the fetch -> detect -> admit pipeline over
// all tracked identities.
package sweep

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/flipwatch/internal/alert"
	"github.com/abelbrown/flipwatch/internal/deliver"
	"github.com/abelbrown/flipwatch/internal/detect"
	"github.com/abelbrown/flipwatch/internal/logging"
	"github.com/abelbrown/flipwatch/internal/source"
	"github.com/abelbrown/flipwatch/internal/store"
)

// ErrSweepRunning is returned by Run when a sweep is already in flight.
// Overlapping sweeps would race duplicate candidates against the
// cooldown gate, so at most one runs at a time.
var ErrSweepRunning = errors.New("sweep already running")

// defaultFetchTimeout bounds each identity's provider call.
const defaultFetchTimeout = 30 * time.Second

// defaultFetchLimit is the per-identity statement cap per sweep.
const defaultFetchLimit = 20

// defaultWorkers bounds parallel per-identity pipelines to respect the
// provider's rate limits.
const defaultWorkers = 5

// Config tunes a Sweeper. Zero values select the defaults above.
type Config struct {
	Workers      int
	FetchLimit   int
	FetchTimeout time.Duration
}

// Result summarizes one sweep.
// An empty Alerts slice is a valid outcome: no contradictions found.
type Result struct {
	Alerts     []store.Alert    // newly admitted this sweep
	Errors     map[string]error // identity -> failure, for identities that failed
	Identities int              // identities visited
	Started    time.Time
	Finished   time.Time
}

// Sweeper iterates tracked identities and runs the per-identity pipeline,
// isolating failures so one bad identity never aborts the rest.
type Sweeper struct {
	registry *Registry
	src      source.Source
	detector *detect.Detector
	gate     *alert.Gate
	sink     deliver.Sink
	store    *store.Store

	workers      int
	fetchLimit   int
	fetchTimeout time.Duration

	running sync.Mutex // held for the duration of a sweep
}

// New creates a Sweeper. sink may be nil to skip delivery.
func New(reg *Registry, src source.Source, det *detect.Detector, gate *alert.Gate, sink deliver.Sink, st *store.Store, cfg Config) *Sweeper {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = defaultFetchLimit
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	return &Sweeper{
		registry:     reg,
		src:          src,
		detector:     det,
		gate:         gate,
		sink:         sink,
		store:        st,
		workers:      cfg.Workers,
		fetchLimit:   cfg.FetchLimit,
		fetchTimeout: cfg.FetchTimeout,
	}
}

// Run performs one full sweep over all tracked identities.
// Identities are processed in parallel, bounded by the worker limit.
// Returns ErrSweepRunning if another sweep is in flight, and ctx.Err()
// if the sweep was cancelled partway; per-identity failures land in
// Result.Errors, never in the returned error.
func (s *Sweeper) Run(ctx context.Context) (*Result, error) {
	if !s.running.TryLock() {
		return nil, ErrSweepRunning
	}
	defer s.running.Unlock()

	identities := s.registry.List()
	result := &Result{
		Errors:     make(map[string]error),
		Identities: len(identities),
		Started:    time.Now(),
	}

	logging.Info("sweep started", "identities", len(identities))

	var mu sync.Mutex // protects result during parallel pipelines
	var g errgroup.Group
	g.SetLimit(s.workers)

	for _, identity := range identities {
		g.Go(func() error {
			// Cooperative cancellation checkpoint: identities not yet
			// started are skipped once the context is cancelled.
			if ctx.Err() != nil {
				return nil
			}

			alerts, err := s.sweepIdentity(ctx, identity)

			mu.Lock()
			defer mu.Unlock()
			result.Alerts = append(result.Alerts, alerts...)
			if err != nil {
				result.Errors[identity] = err
			}
			return nil // never fail the group - errors are per-identity
		})
	}

	_ = g.Wait()
	result.Finished = time.Now()

	logging.Info("sweep finished",
		"alerts", len(result.Alerts),
		"failed_identities", len(result.Errors),
		"duration", result.Finished.Sub(result.Started))

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// sweepIdentity runs one identity's pipeline: fetch recent statements,
// detect contradictions, admit survivors through the gate, deliver.
// Atomic at store-append granularity: a failure leaves no half-written
// state, only fewer alerts.
func (s *Sweeper) sweepIdentity(ctx context.Context, identity string) ([]store.Alert, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	stmts, err := s.src.RecentStatements(fetchCtx, identity, s.fetchLimit)
	if err != nil {
		logging.Warn("fetch failed", "identity", identity, "error", err)
		return nil, err
	}

	candidates := s.detector.Detect(identity, stmts)
	if len(candidates) == 0 {
		return nil, nil
	}
	logging.Debug("candidates detected", "identity", identity, "count", len(candidates))

	var admitted []store.Alert
	var lastErr error
	for _, cand := range candidates {
		a, err := s.gate.Admit(cand)
		if err != nil {
			// Admission failure is fatal for this candidate only.
			lastErr = err
			continue
		}
		if a == nil {
			continue // suppressed by cooldown
		}
		s.deliverAlert(ctx, a)
		admitted = append(admitted, *a)
	}

	return admitted, lastErr
}

// deliverAlert hands one alert to the sink and marks it delivered on
// success. Delivery failure leaves the alert persisted with alerted=0;
// a later process can retry from the store.
func (s *Sweeper) deliverAlert(ctx context.Context, a *store.Alert) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Deliver(ctx, *a); err != nil {
		logging.Warn("delivery failed", "alert_id", a.ID, "error", err)
		return
	}
	if err := s.store.MarkDelivered(a.ID); err != nil {
		logging.Error("mark delivered failed", "alert_id", a.ID, "error", err)
		return
	}
	a.Delivered = true
}
