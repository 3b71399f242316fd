package clock

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// Scheduler runs delayed actions off a deadline heap. Every scheduled action
// returns a Handle whose Cancel is observed: a cancelled action never fires,
// and an action never outlives the Run context.
type Scheduler struct {
	clk  Clock
	mu   sync.Mutex
	h    entryHeap
	wake chan struct{}
	seq  uint64
}

// Handle identifies one scheduled action
type Handle struct {
	s *Scheduler
	e *entry
}

type entry struct {
	at       time.Time
	seq      uint64
	fn       func()
	index    int // heap position, -1 once popped or cancelled
	canceled bool
	fired    bool
}

// NewScheduler builds a Scheduler on the given clock
func NewScheduler(clk Clock) *Scheduler {
	return &Scheduler{clk: clk, wake: make(chan struct{}, 1)}
}

// Schedule registers fn to run at or after the given time.
// fn runs on its own goroutine so slow actions never stall the heap.
func (s *Scheduler) Schedule(at time.Time, fn func()) *Handle {
	s.mu.Lock()
	s.seq++
	e := &entry{at: at, seq: s.seq, fn: fn}
	heap.Push(&s.h, e)
	s.mu.Unlock()
	s.kick()
	return &Handle{s: s, e: e}
}

// After is sugar for Schedule(now+d, fn)
func (s *Scheduler) After(d time.Duration, fn func()) *Handle {
	return s.Schedule(s.clk.Now().Add(d), fn)
}

// Cancel prevents the action from firing; reports whether it did
// (false when the action already ran or was already cancelled)
func (h *Handle) Cancel() bool {
	if h == nil || h.s == nil {
		return false
	}
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	if h.e.fired || h.e.canceled {
		return false
	}
	h.e.canceled = true
	if h.e.index >= 0 {
		heap.Remove(&h.s.h, h.e.index)
	}
	return true
}

// kick nudges the run loop after heap changes; used by tests with Manual clocks too
func (s *Scheduler) kick() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Kick re-evaluates deadlines immediately; call after advancing a Manual clock
func (s *Scheduler) Kick() { s.kick() }

// Run processes the heap until ctx is done. Pending actions that have not
// fired when ctx ends are dropped, never run late.
func (s *Scheduler) Run(ctx context.Context) error {
	const idle = time.Hour

	timer := time.NewTimer(idle)
	defer timer.Stop()

	for {
		now := s.clk.Now()
		var due []*entry

		s.mu.Lock()
		for s.h.Len() > 0 && !s.h[0].at.After(now) {
			e := heap.Pop(&s.h).(*entry)
			e.fired = true
			due = append(due, e)
		}
		wait := idle
		if s.h.Len() > 0 {
			if d := s.h[0].at.Sub(now); d < wait {
				wait = d
			}
		}
		s.mu.Unlock()

		for _, e := range due {
			go e.fn()
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.wake:
		case <-timer.C:
		}
	}
}

// entryHeap orders by deadline, then by insertion for stable ties

type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}
func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}
