// Package aggregator runs the periodic fleet status recomputation and the
// best-effort account info refresh.
package aggregator

import (
	"context"
	"log/slog"
	"time"

	"github.com/gaeaops/fleetkeeper/internal/fleet"
	"github.com/gaeaops/fleetkeeper/internal/gaea"
	"github.com/gaeaops/fleetkeeper/internal/telemetry"
)

// DefaultInterval is the default aggregation cycle period
const DefaultInterval = 30 * time.Minute

// Fleet is the view of the fleet manager the aggregator needs.
type Fleet interface {
	// RecomputeStatus recalculates the fleet counters under the registry lock
	RecomputeStatus() fleet.FleetStatus

	// RunningAccounts returns copies of every account in the running set
	RunningAccounts() []*fleet.Account

	// StoreInfo stores a refreshed info payload on an account
	StoreInfo(id string, info []byte) bool
}

// Aggregator periodically recomputes fleet counters and refreshes account
// info for running accounts. It runs independently of any account worker.
type Aggregator struct {
	fleet    Fleet
	client   gaea.Client
	interval time.Duration
	metrics  *telemetry.FleetMetrics

	cancel context.CancelFunc
	done   chan struct{}
}

// Option is a function that configures the aggregator
type Option func(*Aggregator)

// WithInterval overrides the aggregation cycle period
func WithInterval(interval time.Duration) Option {
	return func(a *Aggregator) {
		if interval > 0 {
			a.interval = interval
		}
	}
}

// WithMetrics attaches fleet metrics instruments to the aggregator
func WithMetrics(metrics *telemetry.FleetMetrics) Option {
	return func(a *Aggregator) {
		a.metrics = metrics
	}
}

// New creates an aggregator over the given fleet and remote client.
func New(flt Fleet, client gaea.Client, opts ...Option) *Aggregator {
	a := &Aggregator{
		fleet:    flt,
		client:   client,
		interval: DefaultInterval,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start runs the aggregation loop until the context is cancelled or Stop
// is called. It blocks; callers run it in its own goroutine.
func (a *Aggregator) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	defer close(a.done)

	slog.Info("Starting status aggregator", "interval", a.interval)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.runCycle(ctx)
	for {
		select {
		case <-ticker.C:
			a.runCycle(ctx)
		case <-ctx.Done():
			slog.Info("Status aggregator shutting down")
			return nil
		}
	}
}

// Stop cancels the aggregation loop and waits for it to exit.
func (a *Aggregator) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	<-a.done
}

// runCycle performs one aggregation pass. A panic inside the pass is
// logged and the loop carries on with the next tick.
func (a *Aggregator) runCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Aggregation cycle panicked", "panic", r)
		}
	}()

	st := a.fleet.RecomputeStatus()
	slog.Debug("Recomputed fleet status",
		"total", st.TotalAccounts,
		"running", st.RunningAccounts,
		"stopped", st.StoppedAccounts,
		"error", st.ErrorAccounts)

	a.refreshInfo(ctx)
}

// refreshInfo fetches fresh account info for every running account. A
// failure for one account never aborts the pass for the others, and never
// affects the account's ping status.
func (a *Aggregator) refreshInfo(ctx context.Context) {
	for _, acct := range a.fleet.RunningAccounts() {
		if ctx.Err() != nil {
			return
		}

		info, err := a.client.Info(ctx, gaea.Credentials{
			UID:       acct.UID,
			BrowserID: acct.BrowserID,
			Token:     acct.Token,
			Proxy:     acct.Proxy,
		})
		if err != nil {
			a.metrics.RecordInfoRefresh(ctx, false)
			slog.Warn("Info refresh failed", "account_id", acct.ID, "error", err)
			continue
		}

		a.fleet.StoreInfo(acct.ID, info)
		a.metrics.RecordInfoRefresh(ctx, true)
		slog.Debug("Refreshed account info", "account_id", acct.ID)
	}
}
