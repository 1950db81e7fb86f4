/*
sweeper.go - Automated overdue sweep scheduler

PURPOSE:
  Once a day, transitions pending installments whose due date has passed
  into overdue. The transition itself is the pure compute in
  billing/overdue.go applied per record; this file owns the trigger.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Skips the sweep when a completed run already exists for today
  - Records each run for audit and UI display
  - One record's failure never blocks the rest (best-effort)

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour; the daily guard
    makes frequent checks harmless)
  - Enabled: Whether the sweeper is active (default: true)

USAGE:
  sweeper := NewSweeper(store, handler)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - billing/overdue.go: Pure overdue compute
  - billing/applicator.go: SweepOverdue
*/
package api

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/contract-engine/store/sqlite"
)

// Sweeper handles the automated daily overdue sweep.
type Sweeper struct {
	Store         *sqlite.Store
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker  *time.Ticker
	stop    chan bool
	stopped bool
	wg      sync.WaitGroup
	mu      sync.Mutex
}

// NewSweeper creates a new sweeper.
func NewSweeper(store *sqlite.Store, handler *Handler) *Sweeper {
	s := &Sweeper{
		Store:         store,
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
	handler.Sweeper = s
	return s
}

// Start begins the sweeper.
func (sw *Sweeper) Start() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if !sw.Enabled {
		log.Println("[Sweeper] Disabled, not starting")
		return
	}

	sw.ticker = time.NewTicker(sw.CheckInterval)
	sw.wg.Add(1)

	go sw.run()

	log.Printf("[Sweeper] Started with check interval: %v", sw.CheckInterval)
}

// Stop stops the sweeper. Safe to call more than once.
func (sw *Sweeper) Stop() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.ticker == nil || sw.stopped {
		return
	}
	sw.stopped = true

	sw.ticker.Stop()
	close(sw.stop)
	sw.wg.Wait()
	log.Println("[Sweeper] Stopped")
}

func (sw *Sweeper) run() {
	defer sw.wg.Done()

	// Run immediately on start
	sw.checkAndSweep()

	for {
		select {
		case <-sw.ticker.C:
			sw.checkAndSweep()
		case <-sw.stop:
			return
		}
	}
}

func (sw *Sweeper) checkAndSweep() {
	ctx := context.Background()
	today := time.Now().UTC().Truncate(24 * time.Hour)

	done, err := sw.Store.HasCompletedSweep(ctx, today)
	if err != nil {
		log.Printf("[Sweeper] Error checking sweep status: %v", err)
		return
	}
	if done {
		return
	}

	if run, err := sw.RunOnce(ctx, today); err != nil {
		log.Printf("[Sweeper] Sweep failed: %v", err)
	} else if run.Checked > 0 {
		log.Printf("[Sweeper] Completed: %d checked, %d transitioned, %d failed",
			run.Checked, run.Transitioned, run.Failed)
	}
}

// RunOnce executes one sweep for the given date and records the run.
func (sw *Sweeper) RunOnce(ctx context.Context, today time.Time) (sqlite.SweepRun, error) {
	started := time.Now()
	run := sqlite.SweepRun{
		ID:        uuid.NewString(),
		RunDate:   today,
		Status:    "running",
		StartedAt: &started,
	}

	if err := sw.Store.SaveSweepRun(ctx, run); err != nil {
		return run, err
	}

	stats, err := sw.Handler.Applicator.SweepOverdue(ctx, today)
	completed := time.Now()
	run.Checked = stats.Checked
	run.Transitioned = stats.Transitioned
	run.Failed = stats.Failed
	run.CompletedAt = &completed

	if err != nil {
		run.Status = "failed"
		run.Error = err.Error()
		sw.Store.SaveSweepRun(ctx, run)
		return run, err
	}

	run.Status = "completed"
	if err := sw.Store.SaveSweepRun(ctx, run); err != nil {
		return run, err
	}
	return run, nil
}

// TriggerSweep runs a sweep immediately, bypassing the daily guard.
// POST /api/sweeps/run
func (h *Handler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	if h.Sweeper == nil {
		writeError(w, http.StatusServiceUnavailable, "Sweeper not configured", nil)
		return
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	run, err := h.Sweeper.RunOnce(r.Context(), today)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Sweep failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toSweepRunDTO(run))
}
