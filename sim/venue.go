// Package sim provides an in-process venue for dry runs and integration
// tests: a single-account matching venue speaking the same event stream
// as the production websocket feed.
package sim

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"portfolio-trader-go/gateway"
	"portfolio-trader-go/market"
	"portfolio-trader-go/order"
	"portfolio-trader-go/portfolio"
)

// Config sets up the simulated session.
type Config struct {
	Securities []market.Security
	// InitialCash is the agent's starting cash in minor units.
	InitialCash int64
	// InitialUnits is the agent's starting position, per security.
	InitialUnits int64
	// AckLatency delays every acknowledgement. Zero means synchronous
	// processing, which tests rely on for determinism.
	AckLatency time.Duration
}

// Venue is the in-process gateway.Venue implementation.
type Venue struct {
	mu sync.Mutex

	securities []market.Security
	limits     map[string]order.Limits
	latency    time.Duration

	book     []market.BookOrder
	holdings portfolio.Holdings

	events  chan gateway.Event
	nextRef int
	closed  bool
}

// New builds a venue; Open starts the session.
func New(cfg Config) (*Venue, error) {
	if len(cfg.Securities) == 0 {
		return nil, errors.New("at least one security is required")
	}
	v := &Venue{
		securities: cfg.Securities,
		limits:     make(map[string]order.Limits, len(cfg.Securities)),
		latency:    cfg.AckLatency,
		events:     make(chan gateway.Event, 256),
	}
	assets := make(map[string]portfolio.Position, len(cfg.Securities))
	for _, s := range cfg.Securities {
		v.limits[s.ID] = order.Limits{
			MinPrice:  s.MinPrice,
			MaxPrice:  s.MaxPrice,
			PriceTick: s.PriceTick,
			MinUnits:  s.MinUnits,
			MaxUnits:  s.MaxUnits,
			UnitTick:  s.UnitTick,
		}
		assets[s.ID] = portfolio.Position{
			Units:          cfg.InitialUnits,
			UnitsAvailable: cfg.InitialUnits,
		}
	}
	v.holdings = portfolio.Holdings{
		Cash:          cfg.InitialCash,
		CashAvailable: cfg.InitialCash,
		Assets:        assets,
	}
	return v, nil
}

// Events implements gateway.Venue.
func (v *Venue) Events() <-chan gateway.Event { return v.events }

// Open announces the session: definitions, open, holdings, empty book.
func (v *Venue) Open() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.emit(gateway.DefinitionsEvent{Securities: v.securities})
	v.emit(gateway.SessionEvent{State: gateway.SessionOpen})
	v.emitHoldings()
	v.emitBook()
}

// EndSession announces session close.
func (v *Venue) EndSession() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.emit(gateway.SessionEvent{State: gateway.SessionClosed})
}

// Seed rests a background order in the book, as if another participant
// had quoted it.
func (v *Venue) Seed(security string, side order.Side, price, units int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.nextRef++
	v.book = append(v.book, market.BookOrder{
		Ref:      fmt.Sprintf("sim-%d", v.nextRef),
		Security: security,
		Side:     side,
		Price:    price,
		Units:    units,
		Pending:  true,
	})
	v.emitBook()
}

// Submit implements gateway.Venue. Acknowledgement and effects arrive on
// the event stream, delayed by the configured latency.
func (v *Venue) Submit(o order.Order) error {
	v.mu.Lock()
	closed := v.closed
	v.mu.Unlock()
	if closed {
		return errors.New("venue closed")
	}
	if v.latency == 0 {
		v.process(o)
		return nil
	}
	go func() {
		time.Sleep(v.latency)
		v.process(o)
	}()
	return nil
}

// Close implements gateway.Venue.
func (v *Venue) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	v.closed = true
	close(v.events)
	return nil
}

// Holdings returns a snapshot of the agent's account.
func (v *Venue) Holdings() portfolio.Holdings {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.holdings.Clone()
}

// PendingOrders returns the currently resting orders.
func (v *Venue) PendingOrders() []market.BookOrder {
	v.mu.Lock()
	defer v.mu.Unlock()
	var pending []market.BookOrder
	for _, rest := range v.book {
		if rest.Pending {
			pending = append(pending, rest)
		}
	}
	return pending
}

func (v *Venue) process(o order.Order) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	switch o.Type {
	case order.TypeLimit:
		v.processLimit(o)
	case order.TypeCancel:
		v.processCancel(o)
	}
}

func (v *Venue) processLimit(o order.Order) {
	l, ok := v.limits[o.Security]
	if !ok {
		v.emit(gateway.AckEvent{Accepted: false, Reason: "unknown security", Order: o})
		return
	}
	if err := l.Validate(o.Price, o.Units); err != nil {
		v.emit(gateway.AckEvent{Accepted: false, Reason: "order rejected", Order: o})
		return
	}
	if !v.reserve(o) {
		v.emit(gateway.AckEvent{Accepted: false, Reason: "insufficient funds", Order: o})
		return
	}
	v.emit(gateway.AckEvent{Accepted: true, Order: o})

	remaining := v.match(o)
	if remaining > 0 {
		v.book = append(v.book, market.BookOrder{
			Ref:      o.Ref,
			Security: o.Security,
			Side:     o.Side,
			Price:    o.Price,
			Units:    remaining,
			Mine:     true,
			Pending:  true,
		})
	}
	v.emitBook()
	v.emitHoldings()
}

func (v *Venue) processCancel(o order.Order) {
	for i := range v.book {
		rest := &v.book[i]
		if rest.Ref != o.Target || !rest.Mine || !rest.Pending {
			continue
		}
		rest.Pending = false
		v.release(*rest)
		v.emit(gateway.AckEvent{Accepted: true, Order: o})
		v.emitBook()
		v.emitHoldings()
		return
	}
	v.emit(gateway.AckEvent{Accepted: false, Reason: "order not found", Order: o})
}

// reserve checks and earmarks the funds a new order would need.
func (v *Venue) reserve(o order.Order) bool {
	switch o.Side {
	case order.SideBuy:
		cost := o.Price * o.Units
		if v.holdings.CashAvailable < cost {
			return false
		}
		v.holdings.CashAvailable -= cost
	case order.SideSell:
		pos := v.holdings.Assets[o.Security]
		if pos.UnitsAvailable < o.Units {
			return false
		}
		pos.UnitsAvailable -= o.Units
		v.holdings.Assets[o.Security] = pos
	}
	return true
}

// release returns a resting order's earmarked funds.
func (v *Venue) release(rest market.BookOrder) {
	switch rest.Side {
	case order.SideBuy:
		v.holdings.CashAvailable += rest.Price * rest.Units
	case order.SideSell:
		pos := v.holdings.Assets[rest.Security]
		pos.UnitsAvailable += rest.Units
		v.holdings.Assets[rest.Security] = pos
	}
}

// match fills the incoming order against resting background orders on
// the opposite side, best price first, trading at the resting price.
// Returns the unfilled remainder.
func (v *Venue) match(o order.Order) int64 {
	remaining := o.Units
	for remaining > 0 {
		best := -1
		for i := range v.book {
			rest := &v.book[i]
			if rest.Mine || !rest.Pending || rest.Security != o.Security || rest.Side == o.Side {
				continue
			}
			if !crosses(o.Side, o.Price, rest.Price) {
				continue
			}
			if best < 0 || betterPrice(o.Side, rest.Price, v.book[best].Price) {
				best = i
			}
		}
		if best < 0 {
			break
		}
		rest := &v.book[best]
		fill := remaining
		if rest.Units < fill {
			fill = rest.Units
		}
		v.settle(o, rest.Price, fill)
		rest.Units -= fill
		if rest.Units == 0 {
			rest.Pending = false
		}
		remaining -= fill
	}
	return remaining
}

func crosses(side order.Side, limit, resting int64) bool {
	if side == order.SideBuy {
		return resting <= limit
	}
	return resting >= limit
}

func betterPrice(side order.Side, a, b int64) bool {
	if side == order.SideBuy {
		return a < b // buying: lower ask first
	}
	return a > b // selling: higher bid first
}

// settle applies one fill to the agent's holdings. The reservation was
// taken at the limit price; the difference to the execution price is
// returned to the available balance.
func (v *Venue) settle(o order.Order, price, units int64) {
	pos := v.holdings.Assets[o.Security]
	switch o.Side {
	case order.SideBuy:
		v.holdings.Cash -= price * units
		v.holdings.CashAvailable += (o.Price - price) * units
		pos.Units += units
		pos.UnitsAvailable += units
	case order.SideSell:
		v.holdings.Cash += price * units
		v.holdings.CashAvailable += price * units
		pos.Units -= units
	}
	v.holdings.Assets[o.Security] = pos
}

func (v *Venue) emitBook() {
	snapshot := make([]market.BookOrder, 0, len(v.book))
	for _, rest := range v.book {
		if rest.Pending {
			snapshot = append(snapshot, rest)
		}
	}
	v.emit(gateway.BookEvent{Orders: snapshot})
}

func (v *Venue) emitHoldings() {
	v.emit(gateway.HoldingsEvent{Holdings: v.holdings.Clone()})
}

// emit drops events when the consumer has fallen hopelessly behind
// rather than deadlocking the venue. The buffer is generous; a dry run
// never comes close.
func (v *Venue) emit(ev gateway.Event) {
	select {
	case v.events <- ev:
	default:
	}
}
