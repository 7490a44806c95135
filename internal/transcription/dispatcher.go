/*
 * This file is part of Vox (https://github.com/voxlabs/vox-core).
 * Copyright (C) 2025 Vox Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package transcription

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/voxlabs/vox-core/internal/events"
	"github.com/voxlabs/vox-core/internal/logging"
	"github.com/voxlabs/vox-core/internal/metrics"
	"github.com/voxlabs/vox-core/internal/recorder"
)

// Request is one transcription of one snapshot. The engine is fixed at
// creation time; configuration changes never re-route an in-flight request.
type Request struct {
	ID          string
	Snapshot    *recorder.Snapshot
	EngineID    string
	Language    string
	SubmittedAt time.Time

	engine Engine
	cancel context.CancelFunc
}

// ResultFunc receives the outcome of every request, including cancelled and
// superseded ones. Called from the dispatcher's worker goroutine, one call
// at a time, in completion order.
type ResultFunc func(req *Request, text string, err error)

// Dispatcher routes snapshots to the selected engine, enforcing at most one
// in-flight transcription. While one is in flight the newest waiting snapshot
// occupies a single pending slot; a newer arrival replaces it, and the
// displaced request is reported as cancelled rather than silently dropped.
// The snapshot of the last failed request is retained so the caller can
// retry without re-recording.
type Dispatcher struct {
	mu         sync.Mutex
	engines    map[string]Engine
	selected   string
	language   string
	timeout    time.Duration
	inflight   *Request
	pending    *Request
	lastFailed *Request
	closed     bool

	onResult ResultFunc

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
}

// NewDispatcher creates a dispatcher. timeout bounds each engine call; zero
// means no per-request deadline. onResult must be non-nil.
func NewDispatcher(timeout time.Duration, onResult ResultFunc) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		engines:    make(map[string]Engine),
		timeout:    timeout,
		onResult:   onResult,
		baseCtx:    ctx,
		baseCancel: cancel,
	}
}

// RegisterEngine adds an engine under an identifier.
func (d *Dispatcher) RegisterEngine(id string, engine Engine) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.engines[id] = engine
}

// SelectEngine makes id the target of future submissions after checking its
// health, so ModelUnavailable and credential failures surface at selection
// time rather than on the first utterance.
func (d *Dispatcher) SelectEngine(ctx context.Context, id string) error {
	d.mu.Lock()
	engine, ok := d.engines[id]
	d.mu.Unlock()

	if !ok {
		return newError(events.ErrEngineUnavailable, "unknown engine: "+id, nil)
	}
	if err := engine.Health(ctx); err != nil {
		return newError(events.ErrEngineUnavailable, "engine failed health check: "+id, err)
	}

	d.mu.Lock()
	d.selected = id
	d.mu.Unlock()

	logging.LogTranscription("engine_selected", zap.String("engine", id))
	return nil
}

// SetLanguage sets the language hint attached to future requests.
func (d *Dispatcher) SetLanguage(language string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.language = language
}

// Submit queues a snapshot for transcription. Implements recorder.Sink and
// never blocks the recorder's run loop.
func (d *Dispatcher) Submit(snap *recorder.Snapshot) {
	d.mu.Lock()

	if d.closed {
		d.mu.Unlock()
		d.report(&Request{ID: uuid.NewString(), Snapshot: snap}, "",
			newError(events.ErrCancelled, "dispatcher shut down", nil))
		return
	}

	engine, ok := d.engines[d.selected]
	if !ok {
		id := d.selected
		d.mu.Unlock()
		d.report(&Request{ID: uuid.NewString(), Snapshot: snap, EngineID: id}, "",
			newError(events.ErrEngineUnavailable, "no engine selected", nil))
		return
	}

	req := &Request{
		ID:          uuid.NewString(),
		Snapshot:    snap,
		EngineID:    d.selected,
		Language:    d.language,
		SubmittedAt: time.Now(),
		engine:      engine,
	}

	if d.inflight == nil {
		d.startLocked(req)
		d.mu.Unlock()
		return
	}

	// One transcription in flight: the pending slot holds only the newest
	// utterance, since a rapid toggle storm must not pile up stale work.
	displaced := d.pending
	d.pending = req
	d.mu.Unlock()

	if displaced != nil {
		d.report(displaced, "", newError(events.ErrCancelled, "superseded by newer utterance", nil))
	}
}

// startLocked begins executing req. Caller holds d.mu.
func (d *Dispatcher) startLocked(req *Request) {
	ctx := d.baseCtx
	var cancel context.CancelFunc
	if d.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	req.cancel = cancel
	d.inflight = req

	d.wg.Add(1)
	go d.run(ctx, req)
}

func (d *Dispatcher) run(ctx context.Context, req *Request) {
	defer d.wg.Done()
	defer req.cancel()

	start := time.Now()
	text, err := req.engine.Transcribe(ctx, req.Snapshot, req.Language)
	latency := time.Since(start)

	status := "success"
	if err != nil {
		if KindOf(err) == events.ErrCancelled {
			status = "cancelled"
		} else {
			status = "error"
		}
	}
	metrics.RecordTranscription(req.EngineID, status, latency)

	d.mu.Lock()
	d.inflight = nil
	if err != nil && KindOf(err) != events.ErrCancelled {
		d.lastFailed = req
	}
	next := d.pending
	d.pending = nil
	if next != nil && !d.closed {
		d.startLocked(next)
	}
	d.mu.Unlock()

	d.report(req, text, err)
}

func (d *Dispatcher) report(req *Request, text string, err error) {
	if err != nil {
		logging.LogTranscription("request_finished",
			zap.String("request_id", req.ID),
			zap.String("engine", req.EngineID),
			zap.String("error_kind", string(KindOf(err))),
		)
	} else {
		logging.LogTranscription("request_finished",
			zap.String("request_id", req.ID),
			zap.String("engine", req.EngineID),
			zap.Int("text_length", len(text)),
		)
	}
	d.onResult(req, text, err)
}

// CancelInFlight aborts the running request and clears the pending slot.
// Both are reported as cancelled; no text is emitted for either.
func (d *Dispatcher) CancelInFlight() {
	d.mu.Lock()
	inflight := d.inflight
	displaced := d.pending
	d.pending = nil
	d.mu.Unlock()

	if inflight != nil {
		inflight.cancel()
	}
	if displaced != nil {
		d.report(displaced, "", newError(events.ErrCancelled, "cancelled by caller", nil))
	}
}

// Retry resubmits the snapshot of the last failed request with the currently
// selected engine.
func (d *Dispatcher) Retry() error {
	d.mu.Lock()
	failed := d.lastFailed
	d.lastFailed = nil
	d.mu.Unlock()

	if failed == nil {
		return newError(events.ErrInternal, "no failed request to retry", nil)
	}

	d.Submit(failed.Snapshot)
	return nil
}

// Close cancels all work and waits for the worker to drain, bounded by ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	displaced := d.pending
	d.pending = nil
	d.mu.Unlock()

	if displaced != nil {
		d.report(displaced, "", newError(events.ErrCancelled, "dispatcher shutting down", nil))
	}

	d.baseCancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return newError(events.ErrInternal, "in-flight transcription did not stop within grace period", ctx.Err())
	}
}
