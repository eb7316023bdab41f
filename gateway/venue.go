// Package gateway defines the contract between the trading core and the
// venue: the event stream the core consumes and the order submission
// surface it produces into. The websocket feed is the production
// implementation; the sim package provides an in-process one.
package gateway

import (
	"portfolio-trader-go/market"
	"portfolio-trader-go/order"
	"portfolio-trader-go/portfolio"
)

// SessionState is the venue session lifecycle.
type SessionState int

const (
	SessionOpen SessionState = iota
	SessionPaused
	SessionClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionOpen:
		return "open"
	case SessionPaused:
		return "paused"
	case SessionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is a venue notification. Events are timestamped implicitly by
// delivery: the engine consumes them in arrival order on one goroutine.
type Event interface {
	event()
}

// SessionEvent announces a session lifecycle change.
type SessionEvent struct {
	State SessionState
}

// DefinitionsEvent delivers the session's security definitions,
// including payoff scenarios. Immutable after session start.
type DefinitionsEvent struct {
	Securities []market.Security
}

// BookEvent delivers an order-book snapshot: every pending order visible
// to the agent, its own included.
type BookEvent struct {
	Orders []market.BookOrder
}

// HoldingsEvent delivers a holdings snapshot, sent whenever a trade
// affecting the agent executes.
type HoldingsEvent struct {
	Holdings portfolio.Holdings
}

// AckEvent is the venue's answer to a submitted order.
type AckEvent struct {
	Accepted bool
	// Reason is the venue's opaque rejection note, if any; the engine
	// classifies the real cause against the security's limits.
	Reason string
	Order  order.Order
}

func (SessionEvent) event()     {}
func (DefinitionsEvent) event() {}
func (BookEvent) event()        {}
func (HoldingsEvent) event()    {}
func (AckEvent) event()         {}

// Venue is the external collaborator the core trades against.
type Venue interface {
	// Events returns the stream of venue notifications. The channel
	// closes when the connection is gone for good.
	Events() <-chan Event
	// Submit sends a limit or cancel order. Submission is asynchronous:
	// the outcome arrives later as an AckEvent, and the core must not
	// assume the order has taken effect until then.
	Submit(o order.Order) error
	Close() error
}
