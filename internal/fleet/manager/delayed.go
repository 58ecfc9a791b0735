package manager

import (
	"container/heap"
	"math/rand/v2"
	"sync"
	"time"
)

// idleWait bounds the scheduler's sleep when no entries are pending.
const idleWait = time.Hour

// delayedStart is one pending jittered start.
type delayedStart struct {
	id    string
	at    time.Time
	epoch uint64
}

// startHeap orders pending starts by fire time.
type startHeap []*delayedStart

func (h startHeap) Len() int            { return len(h) }
func (h startHeap) Less(i, j int) bool  { return h[i].at.Before(h[j].at) }
func (h startHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *startHeap) Push(x any)         { *h = append(*h, x.(*delayedStart)) }
func (h *startHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return entry
}

// startScheduler owns all pending delayed starts in a single min-heap
// drained by one goroutine, rather than one sleeping goroutine per pending
// start. Cancelling the whole batch bumps an epoch counter, which
// invalidates every entry scheduled under an earlier epoch.
type startScheduler struct {
	fire func(id string)

	mu      sync.Mutex
	entries startHeap
	epoch   uint64

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
}

func newStartScheduler(fire func(id string)) *startScheduler {
	s := &startScheduler{
		fire: fire,
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go s.run()
	return s
}

// scheduleAll queues a start for every id at a uniformly random delay in
// [0, window). Returns the number of starts scheduled; whether each one
// actually fires depends on the epoch and the account still existing.
func (s *startScheduler) scheduleAll(ids []string, window time.Duration) int {
	now := time.Now()

	s.mu.Lock()
	for _, id := range ids {
		var delay time.Duration
		if window > 0 {
			//nolint:gosec // G404: jitter does not need crypto randomness
			delay = time.Duration(rand.Int64N(int64(window)))
		}
		heap.Push(&s.entries, &delayedStart{id: id, at: now.Add(delay), epoch: s.epoch})
	}
	s.mu.Unlock()

	s.kick()
	return len(ids)
}

// cancelPending invalidates every queued start.
func (s *startScheduler) cancelPending() {
	s.mu.Lock()
	s.epoch++
	s.entries = s.entries[:0]
	s.mu.Unlock()

	s.kick()
}

// pending returns the number of queued starts.
func (s *startScheduler) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *startScheduler) kick() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// close stops the scheduler goroutine and waits for it to exit.
func (s *startScheduler) close() {
	close(s.quit)
	<-s.done
}

func (s *startScheduler) run() {
	defer close(s.done)

	timer := time.NewTimer(idleWait)
	defer timer.Stop()

	for {
		due, wait := s.collectDue()
		for _, d := range due {
			// A cancel that landed while draining drops the rest of
			// the batch.
			if s.staleEpoch(d.epoch) {
				continue
			}
			s.fire(d.id)
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-timer.C:
		case <-s.wake:
		case <-s.quit:
			return
		}
	}
}

// collectDue pops every entry whose fire time has passed and returns it
// along with the wait until the next entry (or idleWait when empty).
func (s *startScheduler) collectDue() ([]*delayedStart, time.Duration) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*delayedStart
	for len(s.entries) > 0 {
		next := s.entries[0]
		if next.at.After(now) {
			return due, next.at.Sub(now)
		}
		heap.Pop(&s.entries)
		if next.epoch == s.epoch {
			due = append(due, next)
		}
	}
	return due, idleWait
}

func (s *startScheduler) staleEpoch(epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return epoch != s.epoch
}
