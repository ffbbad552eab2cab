package invite

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/existflow/projectmate/internal/logger"
	"github.com/existflow/projectmate/internal/store"
)

// SweepStore is the storage the sweeper needs.
type SweepStore interface {
	ExpireInvitations(ctx context.Context, q store.InvitationQuery, now time.Time) (int64, error)
	PurgeInvitations(ctx context.Context, cutoff time.Time) (int64, error)
}

// SweepResult counts the rows touched by one sweep.
type SweepResult struct {
	Expired int64
	Purged  int64
}

// Sweeper periodically expires stale pending invitations and purges
// resolved invitations older than the retention window. Lists and responses
// expire invitations on their own, so the sweeper only keeps storage tidy.
type Sweeper struct {
	store     SweepStore
	interval  time.Duration
	retention time.Duration
	now       func() time.Time

	mu      sync.Mutex
	onSweep func(SweepResult) // Callback after a sweep that touched rows
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewSweeper creates a sweeper. A zero retention disables purging.
func NewSweeper(st SweepStore, interval, retention time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Sweeper{
		store:     st,
		interval:  interval,
		retention: retention,
		now:       time.Now,
	}
}

// SetOnSweep sets a callback invoked after a sweep that changed rows
func (w *Sweeper) SetOnSweep(callback func(SweepResult)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onSweep = callback
}

// Start launches the background loop. Calling Start twice is a no-op.
func (w *Sweeper) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	go w.pollLoop(w.stopCh, w.doneCh)
}

// Stop stops the background loop and waits for it to exit
func (w *Sweeper) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	close(stopCh)
	<-doneCh
}

// pollLoop sweeps on every tick until stopped
func (w *Sweeper) pollLoop(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stopCh
		cancel()
	}()

	for {
		select {
		case <-ticker.C:
			if _, err := w.SweepNow(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("Invitation sweep failed", logger.Err(err))
			}
		case <-stopCh:
			return
		}
	}
}

// SweepNow runs one sweep immediately
func (w *Sweeper) SweepNow(ctx context.Context) (SweepResult, error) {
	now := w.now().UTC()

	var result SweepResult
	expired, err := w.store.ExpireInvitations(ctx, store.InvitationQuery{}, now)
	if err != nil {
		return result, fmt.Errorf("expire invitations: %w", err)
	}
	result.Expired = expired

	if w.retention > 0 {
		purged, err := w.store.PurgeInvitations(ctx, now.Add(-w.retention))
		if err != nil {
			return result, fmt.Errorf("purge invitations: %w", err)
		}
		result.Purged = purged
	}

	if result.Expired > 0 || result.Purged > 0 {
		logger.Info("Invitation sweep",
			logger.F("expired", result.Expired),
			logger.F("purged", result.Purged))

		w.mu.Lock()
		callback := w.onSweep
		w.mu.Unlock()
		if callback != nil {
			callback(result)
		}
	}
	return result, nil
}
