// internal/engine/scheduler.go
//
// Timers for an Engine.
// Responsibilities:
//   - Tick: count the unlimited-mode cooldown down and roll limited-mode
//     boards over at local midnight.
//   - Start/Stop: run Tick from a ticker goroutine and cancel it on teardown.

package engine

import (
	"context"
	"time"

	"github.com/buttonwang/wordly/internal/daily"
)

// Tick advances the timers by one step. It counts the unlimited-mode cooldown
// down by one second and, in limited mode, refreshes the time to midnight and
// rolls the boards over once the local date changes.
func (e *Engine) Tick(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	changed := false
	if e.cooldown > 0 {
		e.cooldown--
		changed = true
	}
	if !e.unlimited {
		now := e.cfg.Now()
		e.untilMidnight = daily.UntilMidnight(now)
		if daily.DateKey(now) != e.lastReset {
			e.rollover(ctx, now)
			changed = true
		}
	}
	if changed {
		e.persist(ctx)
	}
}

// Start launches the ticker goroutine. It is a no-op if the engine is
// already running or was stopped.
func (e *Engine) Start(ctx context.Context) {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.cancel != nil || e.stopped {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	go e.run(ctx, e.done)
}

// Stop cancels the ticker and waits for it to exit. Safe to call repeatedly.
func (e *Engine) Stop() {
	e.runMu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel, e.stopped = nil, true
	e.runMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (e *Engine) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(e.cfg.TickInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			e.Tick(ctx)
		}
	}
}
