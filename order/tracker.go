package order

import (
	"errors"
	"sort"
	"sync"
	"time"
)

var ErrUnknownOrder = errors.New("unknown order")

// Tracker owns the strategy's in-flight order state: the set of orders
// this agent has created, the number of units believed to be in flight,
// and the awaiting-response flag that serialises cancel submissions.
//
// All mutation happens from the engine's event handlers and scheduler
// ticks. The mutex only protects concurrent reads from the metrics
// endpoint; the engine itself is single-threaded.
type Tracker struct {
	mu     sync.Mutex
	sm     *StateMachine
	orders map[string]*Order

	inFlight int64

	awaiting      bool
	awaitingSince time.Time

	now func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		sm:     NewStateMachine(),
		orders: make(map[string]*Order),
		now:    time.Now,
	}
}

// Reset drops all local order state. Called at session open.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.orders = make(map[string]*Order)
	t.inFlight = 0
	t.awaiting = false
}

// RegisterLimit records a freshly created limit order and counts its
// units as in flight. The order is counted from creation, not from
// submission, so the phase guards see queued-but-unsent orders too.
func (t *Tracker) RegisterLimit(o Order) error {
	if o.Type != TypeLimit {
		return errors.New("RegisterLimit requires a limit order")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.orders[o.Ref]; ok {
		return errors.New("duplicate order ref " + o.Ref)
	}
	o.Status = StatusCreated
	t.orders[o.Ref] = &o
	t.inFlight += o.Units
	return nil
}

// RegisterCancel marks an accepted order as cancel-pending and raises the
// awaiting-response flag that blocks further cancels until the venue
// answers (or the watchdog gives up).
func (t *Tracker) RegisterCancel(target string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.orders[target]
	if !ok {
		return ErrUnknownOrder
	}
	if !t.sm.CanCancel(o.Status) {
		return errors.New("order " + target + " not cancelable in state " + o.Status.String())
	}
	if err := t.sm.ValidateTransition(o.Status, StatusCancelPending); err != nil {
		return err
	}
	o.Status = StatusCancelPending
	t.awaiting = true
	t.awaitingSince = t.now()
	return nil
}

// transition moves a tracked order to the target status, validating the
// edge against the state machine.
func (t *Tracker) transition(ref string, to Status) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.orders[ref]
	if !ok {
		return ErrUnknownOrder
	}
	if err := t.sm.ValidateTransition(o.Status, to); err != nil {
		return err
	}
	o.Status = to
	return nil
}

// MarkSubmitted transitions a created order to submitted.
func (t *Tracker) MarkSubmitted(ref string) error {
	return t.transition(ref, StatusSubmitted)
}

// Accepted handles the venue accepting a limit order. Per the lifecycle
// contract this also clears the awaiting-response flag.
func (t *Tracker) Accepted(ref string) error {
	if err := t.transition(ref, StatusAccepted); err != nil {
		return err
	}
	t.mu.Lock()
	t.awaiting = false
	t.mu.Unlock()
	return nil
}

// CancelAccepted handles the venue accepting a cancel: the target order
// becomes terminal, exactly one unit of in-flight count is released, and
// the awaiting flag clears. A second cancel ack for the same ref fails
// the transition and releases nothing.
func (t *Tracker) CancelAccepted(target string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.orders[target]
	if !ok {
		return ErrUnknownOrder
	}
	if err := t.sm.ValidateTransition(o.Status, StatusCancelled); err != nil {
		return err
	}
	o.Status = StatusCancelled
	t.inFlight--
	if t.inFlight < 0 {
		t.inFlight = 0
	}
	t.awaiting = false
	return nil
}

// Rejected handles the venue refusing a limit order: the order is dropped
// and its units leave the in-flight count. No retry; the next strategy
// cycle recomputes a fresh order.
func (t *Tracker) Rejected(ref string, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.orders[ref]
	if !ok {
		return ErrUnknownOrder
	}
	if err := t.sm.ValidateTransition(o.Status, StatusRejected); err != nil {
		return err
	}
	o.Status = StatusRejected
	o.LastError = reason
	t.inFlight -= o.Units
	if t.inFlight < 0 {
		t.inFlight = 0
	}
	return nil
}

// CancelRejected handles the venue refusing a cancel: the target keeps
// resting in the book and the awaiting flag clears so the next cycle can
// try again.
func (t *Tracker) CancelRejected(target string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.orders[target]
	if !ok {
		return ErrUnknownOrder
	}
	if err := t.sm.ValidateTransition(o.Status, StatusAccepted); err != nil {
		return err
	}
	o.Status = StatusAccepted
	t.awaiting = false
	return nil
}

// InFlight returns the number of units believed to be in flight.
func (t *Tracker) InFlight() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inFlight
}

// SetInFlight overwrites the in-flight count from an authoritative
// recount (the reactive guard recounts from the book every cycle).
func (t *Tracker) SetInFlight(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inFlight = n
}

// Awaiting reports whether a cancel acknowledgement is outstanding.
func (t *Tracker) Awaiting() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.awaiting
}

// RecoverStuck clears the awaiting flag if it has been set for at least
// minAge and reports whether it did. This is the watchdog's escape hatch
// for a cancel acknowledgement delayed past the next strategy cycle; it
// trades a small duplicate-cancel risk for liveness.
func (t *Tracker) RecoverStuck(minAge time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.awaiting {
		return false
	}
	if t.now().Sub(t.awaitingSince) < minAge {
		return false
	}
	t.awaiting = false
	return true
}

// Cancelable returns the refs of orders a cancel may be submitted for,
// in a stable order.
func (t *Tracker) Cancelable() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	refs := make([]string, 0)
	for ref, o := range t.orders {
		if t.sm.CanCancel(o.Status) {
			refs = append(refs, ref)
		}
	}
	sort.Strings(refs)
	return refs
}

// Get returns a copy of a tracked order.
func (t *Tracker) Get(ref string) (Order, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.orders[ref]
	if !ok {
		return Order{}, false
	}
	return *o, true
}
