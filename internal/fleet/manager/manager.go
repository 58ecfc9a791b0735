// Package manager provides the in-memory implementation of the fleet
// service: the account registry, the running set, and the per-account
// keepalive workers.
package manager

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gaeaops/fleetkeeper/internal/fleet"
	"github.com/gaeaops/fleetkeeper/internal/gaea"
	"github.com/gaeaops/fleetkeeper/internal/telemetry"
)

const (
	// DefaultPingInterval is the keepalive period on the success path
	DefaultPingInterval = 10 * time.Minute

	// DefaultErrorBackoff is the retry delay after a failed ping
	DefaultErrorBackoff = time.Minute

	// DefaultStartJitterWindow is the window over which delayed fleet
	// starts are spread to avoid a thundering herd
	DefaultStartJitterWindow = 10 * time.Minute
)

// Config holds the scheduling intervals for the fleet manager.
type Config struct {
	PingInterval      time.Duration
	ErrorBackoff      time.Duration
	StartJitterWindow time.Duration
}

func (c Config) withDefaults() Config {
	if c.PingInterval <= 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.ErrorBackoff <= 0 {
		c.ErrorBackoff = DefaultErrorBackoff
	}
	if c.StartJitterWindow <= 0 {
		c.StartJitterWindow = DefaultStartJitterWindow
	}
	return c
}

// Manager owns the account map and the running set. All structural
// mutations go through its mutex; workers never touch records directly.
type Manager struct {
	client gaea.Client
	cfg    Config

	mu       sync.Mutex
	accounts map[string]*fleet.Account
	running  map[string]struct{}
	workers  map[string]*worker

	sched   *startScheduler
	metrics *telemetry.FleetMetrics
}

var _ fleet.Service = (*Manager)(nil)

// Option is a functional option for configuring the Manager
type Option func(*Manager)

// WithMetrics attaches fleet metrics instruments to the manager
func WithMetrics(metrics *telemetry.FleetMetrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// New creates a fleet manager using the given remote client.
func New(client gaea.Client, cfg Config, opts ...Option) *Manager {
	m := &Manager{
		client:   client,
		cfg:      cfg.withDefaults(),
		accounts: make(map[string]*fleet.Account),
		running:  make(map[string]struct{}),
		workers:  make(map[string]*worker),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.sched = newStartScheduler(func(id string) {
		if m.StartAccount(id) {
			slog.Debug("Delayed start fired", "account_id", id)
		}
	})
	return m
}

// Close shuts down the delayed-start scheduler. Running workers are not
// interrupted; call StopAllAccounts first for an orderly shutdown.
func (m *Manager) Close() {
	m.sched.close()
}

// AddAccount implements fleet.Service.AddAccount
func (m *Manager) AddAccount(acct *fleet.Account) error {
	if err := acct.Validate(); err != nil {
		return err
	}

	rec := acct.Clone()
	if rec.BrowserID == "" {
		rec.BrowserID = uuid.NewString()
	}
	now := time.Now()
	rec.Status = fleet.StatusStopped
	rec.LastPing = nil
	rec.LastInfo = nil
	rec.ErrCount = 0
	rec.CreatedAt = now
	rec.UpdatedAt = now

	m.mu.Lock()
	defer m.mu.Unlock()

	// Re-adding an existing id replaces the record outright, so any old
	// worker must be retired first.
	if _, ok := m.accounts[rec.ID]; ok {
		delete(m.running, rec.ID)
		delete(m.workers, rec.ID)
	}
	m.accounts[rec.ID] = rec

	slog.Info("Added account", "account_id", rec.ID, "name", rec.Name)
	return nil
}

// SyncAccounts implements fleet.Service.SyncAccounts
func (m *Manager) SyncAccounts(accts []*fleet.Account) (int, error) {
	// Validate every record before touching the registry so a bad batch
	// never leaves the fleet half-replaced.
	for _, acct := range accts {
		if err := acct.Validate(); err != nil {
			return 0, err
		}
	}

	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	wasRunning := m.running
	oldWorkers := m.workers
	m.accounts = make(map[string]*fleet.Account, len(accts))
	m.running = make(map[string]struct{})
	m.workers = make(map[string]*worker)

	for _, acct := range accts {
		rec := acct.Clone()
		if rec.BrowserID == "" {
			rec.BrowserID = uuid.NewString()
		}
		rec.Status = fleet.StatusStopped
		rec.LastPing = nil
		rec.LastInfo = nil
		rec.ErrCount = 0
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		rec.UpdatedAt = now
		m.accounts[rec.ID] = rec

		// Ids running before the swap stay running. An already-alive
		// worker is carried over as-is; spawning a second one would
		// double the ping rate for the account.
		if _, ok := wasRunning[rec.ID]; ok {
			rec.Status = fleet.StatusRunning
			m.running[rec.ID] = struct{}{}
			if w, ok := oldWorkers[rec.ID]; ok {
				m.workers[rec.ID] = w
			} else {
				m.spawnWorkerLocked(rec.ID)
			}
		}
	}

	slog.Info("Synced accounts", "count", len(accts), "running", len(m.running))
	return len(accts), nil
}

// RemoveAccount implements fleet.Service.RemoveAccount
func (m *Manager) RemoveAccount(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[id]; !ok {
		return false
	}
	delete(m.accounts, id)
	delete(m.running, id)
	delete(m.workers, id)

	slog.Info("Removed account", "account_id", id)
	return true
}

// StartAccount implements fleet.Service.StartAccount
func (m *Manager) StartAccount(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startLocked(id)
}

func (m *Manager) startLocked(id string) bool {
	acct, ok := m.accounts[id]
	if !ok {
		return false
	}
	if _, ok := m.running[id]; ok {
		return false
	}

	m.running[id] = struct{}{}
	acct.Status = fleet.StatusRunning
	acct.UpdatedAt = time.Now()
	m.spawnWorkerLocked(id)

	slog.Info("Started account", "account_id", id, "name", acct.Name)
	return true
}

// StopAccount implements fleet.Service.StopAccount
func (m *Manager) StopAccount(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopLocked(id)
}

func (m *Manager) stopLocked(id string) bool {
	if _, ok := m.running[id]; !ok {
		return false
	}
	delete(m.running, id)
	delete(m.workers, id)

	if acct, ok := m.accounts[id]; ok {
		acct.Status = fleet.StatusStopped
		acct.UpdatedAt = time.Now()
	}

	slog.Info("Stopped account", "account_id", id)
	return true
}

// StartAllAccounts implements fleet.Service.StartAllAccounts
func (m *Manager) StartAllAccounts() int {
	m.mu.Lock()
	ids := make([]string, 0, len(m.accounts))
	for id := range m.accounts {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	count := m.sched.scheduleAll(ids, m.cfg.StartJitterWindow)
	slog.Info("Scheduled delayed starts", "count", count, "window", m.cfg.StartJitterWindow)
	return count
}

// StopAllAccounts implements fleet.Service.StopAllAccounts
func (m *Manager) StopAllAccounts() int {
	// Invalidate pending delayed starts before stopping anything, so a
	// jittered start cannot slip in behind the stop pass.
	m.sched.cancelPending()

	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for id := range m.running {
		if m.stopLocked(id) {
			count++
		}
	}

	slog.Info("Stopped all accounts", "count", count)
	return count
}

// GetSnapshot implements fleet.Service.GetSnapshot
func (m *Manager) GetSnapshot() fleet.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	accounts := make(map[string]*fleet.Account, len(m.accounts))
	for id, acct := range m.accounts {
		accounts[id] = acct.Clone()
	}

	runningIDs := make([]string, 0, len(m.running))
	for id := range m.running {
		runningIDs = append(runningIDs, id)
	}
	sort.Strings(runningIDs)

	return fleet.Snapshot{
		Status:     m.computeStatusLocked(),
		Accounts:   accounts,
		RunningIDs: runningIDs,
	}
}

// RecomputeStatus recalculates the fleet counters under the registry lock
// and records them to metrics. Used by the status aggregator.
func (m *Manager) RecomputeStatus() fleet.FleetStatus {
	m.mu.Lock()
	st := m.computeStatusLocked()
	m.mu.Unlock()

	m.metrics.RecordFleetCounts(context.Background(),
		st.TotalAccounts, st.RunningAccounts, st.StoppedAccounts, st.ErrorAccounts)
	return st
}

// computeStatusLocked derives the fleet counters from the account map and
// running set. Caller must hold m.mu.
func (m *Manager) computeStatusLocked() fleet.FleetStatus {
	st := fleet.FleetStatus{
		TotalAccounts: len(m.accounts),
		LastUpdate:    time.Now(),
	}
	// An errored account stays in the running set while its loop retries;
	// it counts as error, not running, so the three buckets always sum to
	// the total.
	for id, acct := range m.accounts {
		if _, run := m.running[id]; !run {
			st.StoppedAccounts++
		} else if acct.Status == fleet.StatusError {
			st.ErrorAccounts++
		} else {
			st.RunningAccounts++
		}
	}
	return st
}

// RunningAccounts returns copies of every account currently in the
// running set. Used by the info refresher.
func (m *Manager) RunningAccounts() []*fleet.Account {
	m.mu.Lock()
	defer m.mu.Unlock()

	accts := make([]*fleet.Account, 0, len(m.running))
	for id := range m.running {
		if acct, ok := m.accounts[id]; ok {
			accts = append(accts, acct.Clone())
		}
	}
	return accts
}

// StoreInfo stores a refreshed info payload on the account. Returns false
// if the account is no longer registered.
func (m *Manager) StoreInfo(id string, info []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, ok := m.accounts[id]
	if !ok {
		return false
	}
	acct.LastInfo = append([]byte(nil), info...)
	acct.UpdatedAt = time.Now()
	return true
}
