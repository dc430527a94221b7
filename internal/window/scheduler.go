// README: In-process scheduler for per-order expirable windows. At most one
// active window per order; opening a new one replaces the previous.
package window

import (
	"sync"
	"time"

	"dispatch/internal/types"
)

// Kind tags the window a timer is guarding.
type Kind string

const (
	Acceptance Kind = "acceptance"
	Decision   Kind = "manager_decision"
)

// Callback is invoked when a window expires without being cancelled or replaced.
type Callback func(orderID types.ID, kind Kind)

type entry struct {
	kind      Kind
	expiresAt time.Time
	timer     *time.Timer
}

// Scheduler keeps one live timer per order id. Cancellation wins over expiry
// when it is observed before the callback starts; once a callback is running
// the caller must re-validate the order's state itself.
type Scheduler struct {
	mu     sync.Mutex
	timers map[types.ID]*entry
	cb     Callback
}

func NewScheduler(cb Callback) *Scheduler {
	return &Scheduler{
		timers: make(map[types.ID]*entry),
		cb:     cb,
	}
}

// Open schedules a window of the given kind and returns its expiry time. Any
// window previously open for the order is replaced.
func (s *Scheduler) Open(orderID types.ID, kind Kind, d time.Duration) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.timers[orderID]; ok {
		old.timer.Stop()
	}
	e := &entry{kind: kind, expiresAt: time.Now().Add(d)}
	e.timer = time.AfterFunc(d, func() { s.fire(orderID, e) })
	s.timers[orderID] = e
	return e.expiresAt
}

func (s *Scheduler) fire(orderID types.ID, e *entry) {
	s.mu.Lock()
	cur, ok := s.timers[orderID]
	if !ok || cur != e {
		// Cancelled or replaced after the timer already fired.
		s.mu.Unlock()
		return
	}
	delete(s.timers, orderID)
	s.mu.Unlock()

	s.cb(orderID, e.kind)
}

// Cancel stops the order's window if one is open. Safe to call at any time,
// any number of times.
func (s *Scheduler) Cancel(orderID types.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.timers[orderID]; ok {
		e.timer.Stop()
		delete(s.timers, orderID)
	}
}

// Active reports the kind and expiry of the order's open window, if any.
func (s *Scheduler) Active(orderID types.ID) (Kind, time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.timers[orderID]
	if !ok {
		return "", time.Time{}, false
	}
	return e.kind, e.expiresAt, true
}

// Shutdown stops every open window without firing callbacks.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range s.timers {
		e.timer.Stop()
		delete(s.timers, id)
	}
}
