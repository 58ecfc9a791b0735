package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/gaeaops/fleetkeeper/internal/fleet"
	"github.com/gaeaops/fleetkeeper/internal/gaea"
	gaeamocks "github.com/gaeaops/fleetkeeper/internal/gaea/mocks"
)

// fakeFleet is a minimal in-memory Fleet for aggregator tests.
type fakeFleet struct {
	mu         sync.Mutex
	running    []*fleet.Account
	info       map[string][]byte
	recomputes int
}

func newFakeFleet(running ...*fleet.Account) *fakeFleet {
	return &fakeFleet{running: running, info: make(map[string][]byte)}
}

func (f *fakeFleet) RecomputeStatus() fleet.FleetStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recomputes++
	return fleet.FleetStatus{
		TotalAccounts:   len(f.running),
		RunningAccounts: len(f.running),
		LastUpdate:      time.Now(),
	}
}

func (f *fakeFleet) RunningAccounts() []*fleet.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*fleet.Account, len(f.running))
	copy(out, f.running)
	return out
}

func (f *fakeFleet) StoreInfo(id string, info []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.info[id] = info
	return true
}

func (f *fakeFleet) recomputeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recomputes
}

func (f *fakeFleet) storedInfo(id string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.info[id]
	return info, ok
}

func runningAccount(id string) *fleet.Account {
	return &fleet.Account{
		ID:        id,
		Name:      "acct-" + id,
		UID:       "uid-" + id,
		BrowserID: "browser-" + id,
		Token:     "tok-" + id,
		Status:    fleet.StatusRunning,
	}
}

func TestRunCycleRefreshesInfoForRunningAccounts(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	flt := newFakeFleet(runningAccount("a1"), runningAccount("a2"))
	client := gaeamocks.NewMockClient(ctrl)
	client.EXPECT().
		Info(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, creds gaea.Credentials) (json.RawMessage, error) {
			return json.RawMessage(`{"uid":"` + creds.UID + `"}`), nil
		}).
		Times(2)

	agg := New(flt, client)
	agg.runCycle(context.Background())

	assert.Equal(t, 1, flt.recomputeCount())
	info, ok := flt.storedInfo("a1")
	require.True(t, ok)
	assert.JSONEq(t, `{"uid":"uid-a1"}`, string(info))
	_, ok = flt.storedInfo("a2")
	assert.True(t, ok)
}

func TestRunCycleContinuesPastFailedAccount(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	flt := newFakeFleet(runningAccount("a1"), runningAccount("a2"))
	client := gaeamocks.NewMockClient(ctrl)
	client.EXPECT().
		Info(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, creds gaea.Credentials) (json.RawMessage, error) {
			if creds.UID == "uid-a1" {
				return nil, errors.New("remote unavailable")
			}
			return json.RawMessage(`{}`), nil
		}).
		Times(2)

	agg := New(flt, client)
	agg.runCycle(context.Background())

	// The failure for a1 must not prevent a2 from being refreshed.
	_, ok := flt.storedInfo("a1")
	assert.False(t, ok)
	_, ok = flt.storedInfo("a2")
	assert.True(t, ok)
}

func TestRunCycleStopsOnCancelledContext(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	flt := newFakeFleet(runningAccount("a1"))
	client := gaeamocks.NewMockClient(ctrl)
	// No Info expectations: a cancelled context skips the refresh pass.

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	agg := New(flt, client)
	agg.runCycle(ctx)

	_, ok := flt.storedInfo("a1")
	assert.False(t, ok)
}

func TestStartRunsPeriodicCycles(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	flt := newFakeFleet()
	client := gaeamocks.NewMockClient(ctrl)

	agg := New(flt, client, WithInterval(5*time.Millisecond))
	go func() {
		_ = agg.Start(context.Background())
	}()

	// The initial immediate cycle plus at least one tick.
	require.Eventually(t, func() bool {
		return flt.recomputeCount() >= 2
	}, 2*time.Second, 2*time.Millisecond)

	agg.Stop()
	after := flt.recomputeCount()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, flt.recomputeCount(), "no cycles may run after Stop")
}

func TestWithIntervalIgnoresNonPositive(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	agg := New(newFakeFleet(), gaeamocks.NewMockClient(ctrl), WithInterval(0))
	assert.Equal(t, DefaultInterval, agg.interval)
}
