// Package fleet defines the account fleet data model and the service
// interface consumed by the control API.
package fleet

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrAccountNotFound is returned when an account id is not registered
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidAccount is returned when an account record is missing required fields
	ErrInvalidAccount = errors.New("invalid account")
)

// Status is the lifecycle status of a single account
type Status string

const (
	// StatusStopped means the account has no active keepalive loop
	StatusStopped Status = "stopped"
	// StatusRunning means the account's keepalive loop is active and healthy
	StatusRunning Status = "running"
	// StatusError means the last ping for the account failed; the loop keeps retrying
	StatusError Status = "error"
)

// Account is one credentialed identity kept alive against the remote service.
// The registry owns all records; callers only ever see copies.
type Account struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	UID       string          `json:"uid"`
	BrowserID string          `json:"browser_id"`
	Token     string          `json:"token"`
	Proxy     string          `json:"proxy,omitempty"`
	Status    Status          `json:"status"`
	LastPing  *time.Time      `json:"last_ping,omitempty"`
	LastInfo  json.RawMessage `json:"last_info,omitempty"`
	ErrCount  int             `json:"error_count"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Validate checks that the mandatory identity and credential fields are set.
func (a *Account) Validate() error {
	switch {
	case a.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidAccount)
	case a.Name == "":
		return fmt.Errorf("%w: missing name (id=%s)", ErrInvalidAccount, a.ID)
	case a.UID == "":
		return fmt.Errorf("%w: missing uid (id=%s)", ErrInvalidAccount, a.ID)
	case a.Token == "":
		return fmt.Errorf("%w: missing token (id=%s)", ErrInvalidAccount, a.ID)
	}
	return nil
}

// Clone returns a deep copy of the account record.
func (a *Account) Clone() *Account {
	c := *a
	if a.LastPing != nil {
		t := *a.LastPing
		c.LastPing = &t
	}
	if a.LastInfo != nil {
		c.LastInfo = append(json.RawMessage(nil), a.LastInfo...)
	}
	return &c
}

// FleetStatus holds derived aggregate counters over all accounts. It is
// never authoritative; it is always recomputed from the registry.
type FleetStatus struct {
	TotalAccounts   int       `json:"total_accounts"`
	RunningAccounts int       `json:"running_accounts"`
	StoppedAccounts int       `json:"stopped_accounts"`
	ErrorAccounts   int       `json:"error_accounts"`
	LastUpdate      time.Time `json:"last_update"`
}

// Snapshot is a consistent view of the whole fleet taken under a single
// lock acquisition: the status counters always match the account map.
type Snapshot struct {
	Status     FleetStatus         `json:"status"`
	Accounts   map[string]*Account `json:"accounts"`
	RunningIDs []string            `json:"running_ids"`
}

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=fleet.go Service

// Service defines the fleet operations consumed by the control API.
type Service interface {
	// GetSnapshot returns a consistent copy of the account map, the running
	// id set, and the fleet status counters.
	GetSnapshot() Snapshot

	// AddAccount registers a new account. The record starts stopped.
	AddAccount(acct *Account) error

	// SyncAccounts atomically replaces the whole account set. Accounts that
	// were running before the sync and are still present afterwards keep
	// running. Returns the number of accounts installed.
	SyncAccounts(accts []*Account) (int, error)

	// RemoveAccount deletes an account and stops its worker. Returns false
	// if the id is unknown.
	RemoveAccount(id string) bool

	// StartAccount begins the keepalive loop for one account. Returns false
	// if the id is unknown or the account is already running.
	StartAccount(id string) bool

	// StopAccount halts the keepalive loop for one account. The worker
	// observes the stop on its next wake; the call itself never blocks on
	// an in-flight ping. Returns false if the account was not running.
	StopAccount(id string) bool

	// StartAllAccounts schedules a jittered start for every known account
	// and returns the number of starts scheduled.
	StartAllAccounts() int

	// StopAllAccounts cancels pending jittered starts and stops every
	// running account. Returns the number of accounts that were running.
	StopAllAccounts() int
}
