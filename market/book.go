package market

import (
	"sync"

	"portfolio-trader-go/order"
)

// BookOrder is one order visible in a venue order-book snapshot.
type BookOrder struct {
	Ref      string
	Security string
	Side     order.Side
	Price    int64
	Units    int64
	Mine     bool
	Pending  bool
}

// Quote is a visible best bid or ask: not owned by this agent, pending.
type Quote struct {
	Security string
	Side     order.Side
	Price    int64
	Units    int64
}

// Book keeps the latest order-book snapshot and answers best-quote and
// depth queries. Best bid is the highest-price visible buy quote, best
// ask the lowest-price visible sell quote; the agent's own orders never
// qualify as quotes.
type Book struct {
	mu     sync.RWMutex
	orders []BookOrder
}

func NewBook() *Book {
	return &Book{}
}

// Apply replaces the snapshot with the latest one from the venue.
func (b *Book) Apply(orders []BookOrder) {
	cp := make([]BookOrder, len(orders))
	copy(cp, orders)
	b.mu.Lock()
	b.orders = cp
	b.mu.Unlock()
}

// BestBid returns the best bid for a security, if any qualifying quote
// exists.
func (b *Book) BestBid(security string) (Quote, bool) {
	return b.best(security, order.SideBuy)
}

// BestAsk returns the best ask for a security, if any qualifying quote
// exists.
func (b *Book) BestAsk(security string) (Quote, bool) {
	return b.best(security, order.SideSell)
}

func (b *Book) best(security string, side order.Side) (Quote, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var best Quote
	found := false
	for _, o := range b.orders {
		if o.Security != security || o.Side != side || o.Mine || !o.Pending {
			continue
		}
		better := false
		switch side {
		case order.SideBuy:
			better = !found || o.Price > best.Price
		case order.SideSell:
			better = !found || o.Price < best.Price
		}
		if better {
			best = Quote{Security: o.Security, Side: o.Side, Price: o.Price, Units: o.Units}
			found = true
		}
	}
	return best, found
}

// BestQuotes collects every present best quote for the given securities:
// all best asks in ascending security order, then all best bids in the
// same order. The optimality search enumerates subsets in exactly this
// collection order, so it must stay deterministic.
func (b *Book) BestQuotes(securities []string) []Quote {
	quotes := make([]Quote, 0, 2*len(securities))
	for _, id := range securities {
		if q, ok := b.BestAsk(id); ok {
			quotes = append(quotes, q)
		}
	}
	for _, id := range securities {
		if q, ok := b.BestBid(id); ok {
			quotes = append(quotes, q)
		}
	}
	return quotes
}

// OwnPending returns the agent's own pending orders in the snapshot.
func (b *Book) OwnPending() []BookOrder {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var mine []BookOrder
	for _, o := range b.orders {
		if o.Mine && o.Pending {
			mine = append(mine, o)
		}
	}
	return mine
}

// DepthAhead returns how many units of other agents' pending orders
// would execute before the given order: for a buy, units quoted at
// higher prices in the same market; for a sell, units quoted at lower
// prices. Used to detect stale resting orders.
func (b *Book) DepthAhead(o BookOrder) int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var depth int64
	for _, other := range b.orders {
		if other.Mine || !other.Pending || other.Security != o.Security || other.Side != o.Side {
			continue
		}
		switch o.Side {
		case order.SideBuy:
			if other.Price > o.Price {
				depth += other.Units
			}
		case order.SideSell:
			if other.Price < o.Price {
				depth += other.Units
			}
		}
	}
	return depth
}
