package manager

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/gaeaops/fleetkeeper/internal/fleet"
	"github.com/gaeaops/fleetkeeper/internal/gaea"
)

// worker drives the keepalive loop for one account. The loop's only
// continuation condition is membership in the running set, checked at the
// top of each cycle; stopping is cooperative and takes effect at most one
// cycle after the stop call.
type worker struct {
	id   string
	done chan struct{}
}

// spawnWorkerLocked registers and launches a worker for id. Caller must
// hold m.mu.
func (m *Manager) spawnWorkerLocked(id string) {
	w := &worker{id: id, done: make(chan struct{})}
	m.workers[id] = w
	go m.runWorker(w)
}

func (m *Manager) runWorker(w *worker) {
	defer close(w.done)

	policy := backoff.NewConstantBackOff(m.cfg.ErrorBackoff)
	for {
		if !m.isCurrent(w) {
			return
		}
		delay := m.pingOnce(w.id, policy)

		// No cancellation signal interrupts the sleep; the stop is
		// observed at the next loop top.
		time.Sleep(delay)
	}
}

// pingOnce performs one keepalive cycle and returns how long the worker
// should sleep before the next one. A panic inside the cycle is treated as
// a failed ping so the loop never dies silently.
func (m *Manager) pingOnce(id string, policy backoff.BackOff) (delay time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Ping cycle panicked", "account_id", id, "panic", r)
			m.recordPingFailure(id, fmt.Errorf("ping cycle panic: %v", r))
			delay = m.cfg.ErrorBackoff
		}
	}()

	creds, ok := m.credentialsFor(id)
	if !ok {
		// Account disappeared mid-cycle; the loop exits on its next
		// membership check.
		return m.cfg.ErrorBackoff
	}

	if err := m.client.Ping(context.Background(), creds); err != nil {
		m.recordPingFailure(id, err)
		return policy.NextBackOff()
	}
	m.recordPingSuccess(id)
	return m.cfg.PingInterval
}

// isCurrent reports whether w is still the registered worker for its
// account. A stop followed by a quick restart registers a fresh worker;
// the old one sees itself displaced and exits instead of doubling up.
func (m *Manager) isCurrent(w *worker) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.running[w.id]; !ok {
		return false
	}
	return m.workers[w.id] == w
}

// credentialsFor copies the fields needed for a remote call. The registry
// lock is never held across the network call itself.
func (m *Manager) credentialsFor(id string) (gaea.Credentials, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, ok := m.accounts[id]
	if !ok {
		return gaea.Credentials{}, false
	}
	return gaea.Credentials{
		UID:       acct.UID,
		BrowserID: acct.BrowserID,
		Token:     acct.Token,
		Proxy:     acct.Proxy,
	}, true
}

// recordPingSuccess applies a successful ping to the account record. The
// update is skipped if a stop or removal raced the in-flight call, so a
// late result can never resurrect a stopped account.
func (m *Manager) recordPingSuccess(id string) {
	now := time.Now()

	m.mu.Lock()
	if _, run := m.running[id]; run {
		if acct, ok := m.accounts[id]; ok {
			acct.Status = fleet.StatusRunning
			acct.ErrCount = 0
			acct.LastPing = &now
			acct.UpdatedAt = now
		}
	}
	m.mu.Unlock()

	m.metrics.RecordPing(context.Background(), true)
	slog.Debug("Ping succeeded", "account_id", id)
}

// recordPingFailure applies a failed ping to the account record, subject
// to the same stop-race guard as recordPingSuccess.
func (m *Manager) recordPingFailure(id string, err error) {
	m.mu.Lock()
	if _, run := m.running[id]; run {
		if acct, ok := m.accounts[id]; ok {
			acct.Status = fleet.StatusError
			acct.ErrCount++
			acct.UpdatedAt = time.Now()
		}
	}
	m.mu.Unlock()

	m.metrics.RecordPing(context.Background(), false)
	slog.Warn("Ping failed", "account_id", id, "error", err)
}
