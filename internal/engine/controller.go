// Package engine hosts the order lifecycle controller: the single
// goroutine that consumes venue events, runs the strategies on their
// cadences and paces order submission.
package engine

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"portfolio-trader-go/gateway"
	"portfolio-trader-go/infrastructure/logger"
	"portfolio-trader-go/market"
	"portfolio-trader-go/monitor"
	"portfolio-trader-go/order"
	"portfolio-trader-go/portfolio"
	"portfolio-trader-go/strategy"
)

// ControllerState is the controller lifecycle.
type ControllerState int

const (
	StateIdle ControllerState = iota
	StateRunning
	StateStopped
)

func (s ControllerState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Config holds the controller's runtime parameters.
type Config struct {
	// RiskPenalty weighs payoff variance against expected payoff.
	RiskPenalty float64
	// Phases carries the session timing the guards decide on.
	Phases strategy.Phases
	// MaxMarginCents is the quoting margin at session open.
	MaxMarginCents float64
	// StaleDepth is the queue depth beyond which a resting reactive
	// order is cancelled.
	StaleDepth int64

	MMInterval       time.Duration
	ReactiveInterval time.Duration
	WatchdogInterval time.Duration
	// SubmitPace is the fixed delay between successive submissions.
	SubmitPace time.Duration

	Replenish ReplenishRule
}

// ReplenishRule drives the cash replenishment supplement: when cash
// drops under the floor with nothing in flight, sell a block of the
// cash-proxy security (the one with the highest identifier), accepting
// the performance haircut for liquidity.
type ReplenishRule struct {
	Enabled        bool
	CashFloorCents int64
	MinUnitsHeld   int64
	PriceCents     int64
	Units          int64
}

// Components are the controller's collaborators.
type Components struct {
	Venue   gateway.Venue
	Logger  *logger.Logger
	Metrics *monitor.Metrics
}

// Controller is the trading core. All state below is owned by the run
// goroutine; external goroutines interact only through Start/Stop and
// the Reconfigure channel.
type Controller struct {
	config Config

	venue   gateway.Venue
	logger  *logger.Logger
	metrics *monitor.Metrics

	// Session state, rebuilt at every session open.
	securities map[string]market.Security
	limits     map[string]order.Limits
	evaluator  *portfolio.Evaluator
	margin     strategy.MarginCurve

	book         *market.Book
	holdings     portfolio.Holdings
	haveHoldings bool
	fair         map[string]portfolio.Fair

	tracker *order.Tracker
	// queue holds created-but-unsent orders; one leaves per pace tick.
	queue []order.Order

	sessionStart time.Time
	sessionOpen  bool
	paused       bool

	state    ControllerState
	stopChan chan struct{}
	doneChan chan struct{}
	reconfig chan Config

	now func() time.Time
}

// New validates the wiring and builds an idle controller.
func New(cfg Config, comp Components) (*Controller, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if comp.Venue == nil {
		return nil, errors.New("venue is required")
	}
	if comp.Logger == nil {
		comp.Logger = logger.Nop()
	}
	if comp.Metrics == nil {
		comp.Metrics = monitor.New()
	}
	return &Controller{
		config:     cfg,
		venue:      comp.Venue,
		logger:     comp.Logger.Named("engine"),
		metrics:    comp.Metrics,
		securities: make(map[string]market.Security),
		limits:     make(map[string]order.Limits),
		book:       market.NewBook(),
		tracker:    order.NewTracker(),
		state:      StateIdle,
		stopChan:   make(chan struct{}),
		doneChan:   make(chan struct{}),
		reconfig:   make(chan Config, 1),
		now:        time.Now,
	}, nil
}

func validateConfig(cfg Config) error {
	if cfg.RiskPenalty < 0 {
		return errors.New("risk penalty must be >= 0")
	}
	if cfg.Phases.SessionMinutes <= 0 {
		return errors.New("session minutes must be > 0")
	}
	if cfg.Phases.PhaseFraction <= 0 || cfg.Phases.PhaseFraction >= 1 {
		return errors.New("phase fraction must be in (0, 1)")
	}
	if cfg.MaxMarginCents <= 0 {
		return errors.New("max margin must be > 0")
	}
	if cfg.MMInterval <= 0 || cfg.ReactiveInterval <= 0 || cfg.WatchdogInterval <= 0 {
		return errors.New("strategy intervals must be > 0")
	}
	if cfg.SubmitPace < 0 {
		return errors.New("submit pace must be >= 0")
	}
	return nil
}

// Start launches the run loop.
func (c *Controller) Start() error {
	if c.state != StateIdle {
		return fmt.Errorf("controller not idle: %s", c.state)
	}
	c.state = StateRunning
	c.logger.Info("controller starting",
		zap.Float64("riskPenalty", c.config.RiskPenalty),
		zap.Float64("sessionMinutes", c.config.Phases.SessionMinutes),
		zap.Float64("phaseFraction", c.config.Phases.PhaseFraction))
	go c.run()
	return nil
}

// Stop signals the run loop and waits for it to drain.
func (c *Controller) Stop() {
	if c.state != StateRunning {
		return
	}
	close(c.stopChan)
	<-c.doneChan
	c.state = StateStopped
	c.logger.Info("controller stopped")
}

// Done is closed when the run loop exits, whether stopped, ended by
// session close, or abandoned by the venue.
func (c *Controller) Done() <-chan struct{} {
	return c.doneChan
}

// Reconfigure hands new strategy parameters to the run loop. Only the
// strategy-shaped fields apply; cadence changes require a restart.
func (c *Controller) Reconfigure(cfg Config) {
	select {
	case c.reconfig <- cfg:
	default:
		// An unapplied update is still queued; the newest one wins on
		// the next loop iteration either way.
	}
}

func (c *Controller) run() {
	defer close(c.doneChan)

	submitPace := c.config.SubmitPace
	if submitPace <= 0 {
		submitPace = time.Millisecond
	}
	mmTicker := time.NewTicker(c.config.MMInterval)
	reactiveTicker := time.NewTicker(c.config.ReactiveInterval)
	watchdogTicker := time.NewTicker(c.config.WatchdogInterval)
	paceTicker := time.NewTicker(submitPace)
	defer mmTicker.Stop()
	defer reactiveTicker.Stop()
	defer watchdogTicker.Stop()
	defer paceTicker.Stop()

	events := c.venue.Events()
	for {
		select {
		case <-c.stopChan:
			return
		case cfg := <-c.reconfig:
			c.applyReconfig(cfg)
		case ev, ok := <-events:
			if !ok {
				c.logger.Warn("venue event stream closed")
				return
			}
			if done := c.handleEvent(ev); done {
				return
			}
		case <-mmTicker.C:
			c.marketMakingTick()
		case <-reactiveTicker.C:
			c.reactiveTick()
		case <-watchdogTicker.C:
			c.watchdogTick()
		case <-paceTicker.C:
			c.submitOne()
		}
	}
}

func (c *Controller) applyReconfig(cfg Config) {
	c.config.MaxMarginCents = cfg.MaxMarginCents
	c.config.StaleDepth = cfg.StaleDepth
	c.config.Replenish = cfg.Replenish
	c.margin = strategy.MarginCurve{
		MaxMargin: cfg.MaxMarginCents,
		PhaseEnd:  c.config.Phases.PhaseEnd(),
	}
	if cfg.RiskPenalty != c.config.RiskPenalty {
		c.config.RiskPenalty = cfg.RiskPenalty
		if c.evaluator != nil {
			ev, err := portfolio.NewEvaluator(c.evaluator.Model(), cfg.RiskPenalty)
			if err != nil {
				c.logger.Error("rebuild evaluator", zap.Error(err))
			} else {
				c.evaluator = ev
				if c.haveHoldings {
					c.fair = c.evaluator.FairPrices(c.holdings)
				}
			}
		}
	}
	c.logger.Info("strategy parameters reloaded",
		zap.Float64("riskPenalty", c.config.RiskPenalty),
		zap.Float64("maxMarginCents", c.config.MaxMarginCents),
		zap.Int64("staleDepth", c.config.StaleDepth))
}

// handleEvent dispatches one venue event. It reports true when the
// session has closed and the loop should exit.
func (c *Controller) handleEvent(ev gateway.Event) bool {
	switch e := ev.(type) {
	case gateway.DefinitionsEvent:
		c.handleDefinitions(e)
	case gateway.SessionEvent:
		return c.handleSession(e)
	case gateway.BookEvent:
		c.handleBook(e)
	case gateway.HoldingsEvent:
		c.handleHoldings(e)
	case gateway.AckEvent:
		c.handleAck(e)
	default:
		c.logger.Warn("unhandled event", zap.Any("event", ev))
	}
	return false
}

func (c *Controller) handleDefinitions(e gateway.DefinitionsEvent) {
	c.securities = make(map[string]market.Security, len(e.Securities))
	c.limits = make(map[string]order.Limits, len(e.Securities))
	for _, s := range e.Securities {
		c.securities[s.ID] = s
		c.limits[s.ID] = order.Limits{
			MinPrice:  s.MinPrice,
			MaxPrice:  s.MaxPrice,
			PriceTick: s.PriceTick,
			MinUnits:  s.MinUnits,
			MaxUnits:  s.MaxUnits,
			UnitTick:  s.UnitTick,
		}
	}
	c.logger.Info("security definitions received",
		zap.Int("count", len(c.securities)),
		zap.Strings("securities", market.SortedIDs(c.securities)))
	// Definitions can land before or after session open; build the
	// model as soon as both have arrived.
	if c.sessionOpen && c.evaluator == nil {
		c.buildModel()
	}
}

func (c *Controller) handleSession(e gateway.SessionEvent) bool {
	switch e.State {
	case gateway.SessionOpen:
		c.sessionStart = c.now()
		c.sessionOpen = true
		c.paused = false
		c.tracker.Reset()
		c.queue = c.queue[:0]
		c.book.Apply(nil)
		c.evaluator = nil
		c.fair = nil
		c.haveHoldings = false
		c.margin = strategy.MarginCurve{
			MaxMargin: c.config.MaxMarginCents,
			PhaseEnd:  c.config.Phases.PhaseEnd(),
		}
		c.logger.Info("session open")
		if len(c.securities) > 0 {
			c.buildModel()
		}
	case gateway.SessionPaused:
		c.paused = true
		c.logger.Info("session paused", zap.Float64("elapsedMinutes", c.elapsedMinutes()))
	case gateway.SessionClosed:
		c.logger.Info("session closed", zap.Float64("elapsedMinutes", c.elapsedMinutes()))
		c.reportSession()
		return true
	}
	return false
}

func (c *Controller) buildModel() {
	model, err := market.NewPayoffModel(c.securities)
	if err != nil {
		c.logger.Error("build payoff model", zap.Error(err))
		return
	}
	ev, err := portfolio.NewEvaluator(model, c.config.RiskPenalty)
	if err != nil {
		c.logger.Error("build evaluator", zap.Error(err))
		return
	}
	c.evaluator = ev
	c.logger.Info("payoff model built", zap.Int("securities", model.Len()))
	// Holdings may have landed before the definitions; derive the fair
	// prices now or the quoting cycle starts blind.
	if c.haveHoldings {
		c.fair = c.evaluator.FairPrices(c.holdings)
		c.metrics.Performance.Set(c.evaluator.Performance(c.holdings, nil))
	}
}

func (c *Controller) handleBook(e gateway.BookEvent) {
	c.book.Apply(e.Orders)
	if !c.ready() {
		return
	}
	elapsed := c.elapsedMinutes()
	if c.config.Phases.ReactiveGuard(elapsed, 0) {
		c.sweepStale()
		return
	}
	// Inside the market-making window a fresh snapshot showing our own
	// resting orders means the previous quotes have not filled; the next
	// cycle's guard will see them via the tracker, nothing to do here.
}

// sweepStale cancels one resting order that has slipped too deep in the
// queue. One per snapshot: cancels are serialised on the venue's
// acknowledgement.
func (c *Controller) sweepStale() {
	if c.tracker.Awaiting() {
		return
	}
	for _, own := range c.book.OwnPending() {
		if c.book.DepthAhead(own) <= c.config.StaleDepth {
			continue
		}
		if _, tracked := c.tracker.Get(own.Ref); !tracked {
			continue
		}
		if err := c.tracker.RegisterCancel(own.Ref); err != nil {
			continue
		}
		c.enqueueCancel(own.Ref, own.Security)
		c.logger.Info("stale order cancelled",
			zap.String("ref", own.Ref),
			zap.String("security", own.Security),
			zap.Int64("depthAhead", c.book.DepthAhead(own)))
		return
	}
}

func (c *Controller) handleHoldings(e gateway.HoldingsEvent) {
	first := !c.haveHoldings
	c.holdings = e.Holdings
	c.haveHoldings = true
	c.metrics.Cash.Set(float64(c.holdings.Cash))
	if c.evaluator == nil {
		return
	}
	c.fair = c.evaluator.FairPrices(c.holdings)
	perf := c.evaluator.Performance(c.holdings, nil)
	c.metrics.Performance.Set(perf)
	if first {
		c.logger.Info("initial holdings",
			zap.Int64("cash", c.holdings.Cash),
			zap.Float64("performance", perf))
	} else {
		c.logger.Debug("holdings updated",
			zap.Int64("cash", c.holdings.Cash),
			zap.Float64("performance", perf))
	}
	c.maybeReplenish()
}

// maybeReplenish sells a block of the cash-proxy security when cash runs
// low. Condition order matters: never while anything is in flight, and
// only while enough units remain to stay a seller later.
func (c *Controller) maybeReplenish() {
	r := c.config.Replenish
	if !r.Enabled || c.paused {
		return
	}
	if c.holdings.Cash >= r.CashFloorCents {
		return
	}
	if c.tracker.InFlight() != 0 {
		return
	}
	ids := market.SortedIDs(c.securities)
	if len(ids) == 0 {
		return
	}
	proxy := ids[len(ids)-1]
	if c.holdings.Position(proxy).UnitsAvailable <= r.MinUnitsHeld {
		return
	}
	if !c.enqueueLimit(strategy.Intent{
		Security: proxy,
		Side:     order.SideSell,
		Price:    r.PriceCents,
		Units:    r.Units,
	}) {
		return
	}
	c.logger.Warn("replenishing cash",
		zap.String("security", proxy),
		zap.Int64("cash", c.holdings.Cash),
		zap.Int64("units", r.Units),
		zap.Int64("price", r.PriceCents))
}

func (c *Controller) handleAck(e gateway.AckEvent) {
	o := e.Order
	switch o.Type {
	case order.TypeLimit:
		if e.Accepted {
			if err := c.tracker.Accepted(o.Ref); err != nil {
				c.logger.Warn("ack for unexpected order", zap.String("ref", o.Ref), zap.Error(err))
				return
			}
			c.metrics.OrdersAccepted.Inc()
			c.logger.Debug("order accepted", zap.String("ref", o.Ref))
			return
		}
		reason := c.diagnoseReject(o)
		if err := c.tracker.Rejected(o.Ref, reason.String()); err != nil {
			c.logger.Warn("reject for unexpected order", zap.String("ref", o.Ref), zap.Error(err))
			return
		}
		c.metrics.OrdersRejected.WithLabelValues(reason.String()).Inc()
		c.logger.Warn("order rejected",
			zap.String("ref", o.Ref),
			zap.String("security", o.Security),
			zap.Int64("price", o.Price),
			zap.Int64("units", o.Units),
			zap.String("reason", reason.String()),
			zap.String("venueNote", e.Reason))
	case order.TypeCancel:
		if e.Accepted {
			if err := c.tracker.CancelAccepted(o.Target); err != nil {
				c.logger.Warn("cancel ack for unexpected order", zap.String("target", o.Target), zap.Error(err))
				return
			}
			c.metrics.OrdersCancelled.Inc()
			c.logger.Debug("cancel accepted", zap.String("target", o.Target))
			return
		}
		if err := c.tracker.CancelRejected(o.Target); err != nil {
			c.logger.Warn("cancel reject for unexpected order", zap.String("target", o.Target), zap.Error(err))
			return
		}
		c.logger.Warn("cancel rejected", zap.String("target", o.Target), zap.String("venueNote", e.Reason))
	}
	c.metrics.InFlight.Set(float64(c.tracker.InFlight()))
}

// diagnoseReject classifies a rejection locally: the venue only says no.
func (c *Controller) diagnoseReject(o order.Order) order.RejectReason {
	l, ok := c.limits[o.Security]
	if !ok {
		return order.ReasonUnknown
	}
	return l.Classify(o.Price, o.Units)
}

func (c *Controller) marketMakingTick() {
	if !c.ready() {
		return
	}
	elapsed := c.elapsedMinutes()
	decision := c.config.Phases.MarketMakingGuard(elapsed, c.tracker.InFlight())
	if decision.ClearOrders {
		c.clearOne()
		return
	}
	if !decision.Run {
		return
	}
	margin := c.margin.Margin(elapsed)
	c.metrics.Margin.Set(margin)
	intents := strategy.BuildQuotes(c.securities, c.fair, margin, c.holdings)
	if len(intents) == 0 {
		c.logger.Debug("no quotes this cycle", zap.Float64("margin", margin))
		return
	}
	queued := 0
	for _, in := range intents {
		if c.enqueueLimit(in) {
			queued++
		}
	}
	c.logger.Info("market-making cycle",
		zap.Float64("elapsedMinutes", elapsed),
		zap.Float64("margin", margin),
		zap.Int("quotes", queued))
}

// clearOne submits a cancel for one outstanding order. Serialised on the
// acknowledgement, the same way stale sweeps are.
func (c *Controller) clearOne() {
	if c.tracker.Awaiting() {
		return
	}
	for _, ref := range c.tracker.Cancelable() {
		o, ok := c.tracker.Get(ref)
		if !ok {
			continue
		}
		if err := c.tracker.RegisterCancel(ref); err != nil {
			continue
		}
		c.enqueueCancel(ref, o.Security)
		c.logger.Info("clearing stale quote", zap.String("ref", ref))
		return
	}
}

func (c *Controller) reactiveTick() {
	if !c.ready() {
		return
	}
	// The tracker's count can drift on missed acks; the book snapshot
	// plus the unsent queue is authoritative here.
	var live int64
	for _, own := range c.book.OwnPending() {
		live += own.Units
	}
	for _, q := range c.queue {
		if q.Type == order.TypeLimit {
			live += q.Units
		}
	}
	c.tracker.SetInFlight(live)
	c.metrics.InFlight.Set(float64(live))

	elapsed := c.elapsedMinutes()
	if !c.config.Phases.ReactiveGuard(elapsed, live) {
		return
	}
	res, intents := strategy.React(c.evaluator, c.holdings, c.book)
	c.metrics.SearchRuns.Inc()
	c.metrics.SearchEvaluations.Add(float64(res.Evaluated))
	if res.Optimal {
		c.logger.Debug("holdings optimal against visible quotes",
			zap.Int("evaluated", res.Evaluated))
		return
	}
	queued := 0
	for _, in := range intents {
		if c.enqueueLimit(in) {
			queued++
		}
	}
	c.logger.Info("reactive cycle",
		zap.Float64("improvement", res.Improvement),
		zap.Int("evaluated", res.Evaluated),
		zap.Int("orders", queued))
}

func (c *Controller) watchdogTick() {
	minAge := c.config.MMInterval
	if c.tracker.RecoverStuck(minAge) {
		c.metrics.WatchdogRecovered.Inc()
		c.logger.Warn("watchdog cleared stuck cancel wait",
			zap.Duration("minAge", minAge))
	}
}

// enqueueLimit creates, validates and queues one limit order. Orders the
// venue would reject are dropped here instead of burning a round trip.
func (c *Controller) enqueueLimit(in strategy.Intent) bool {
	if l, ok := c.limits[in.Security]; ok {
		if err := l.Validate(in.Price, in.Units); err != nil {
			c.logger.Warn("dropping infeasible order",
				zap.String("security", in.Security),
				zap.String("side", in.Side.String()),
				zap.Error(err))
			return false
		}
	}
	o := order.Order{
		Ref:      order.NewRef(in.Security),
		Security: in.Security,
		Side:     in.Side,
		Type:     order.TypeLimit,
		Price:    in.Price,
		Units:    in.Units,
	}
	if err := c.tracker.RegisterLimit(o); err != nil {
		c.logger.Error("register order", zap.String("ref", o.Ref), zap.Error(err))
		return false
	}
	c.queue = append(c.queue, o)
	c.metrics.InFlight.Set(float64(c.tracker.InFlight()))
	return true
}

func (c *Controller) enqueueCancel(target, security string) {
	c.queue = append(c.queue, order.Order{
		Ref:      order.NewRef(security),
		Security: security,
		Type:     order.TypeCancel,
		Target:   target,
	})
}

// submitOne drains one queued order to the venue. The pace ticker keeps
// submissions from bursting.
func (c *Controller) submitOne() {
	if len(c.queue) == 0 || c.paused {
		return
	}
	o := c.queue[0]
	c.queue = c.queue[1:]

	if o.Type == order.TypeLimit {
		if err := c.tracker.MarkSubmitted(o.Ref); err != nil {
			c.logger.Error("mark submitted", zap.String("ref", o.Ref), zap.Error(err))
			return
		}
	}
	if err := c.venue.Submit(o); err != nil {
		c.logger.Error("submit failed",
			zap.String("ref", o.Ref),
			zap.String("type", o.Type.String()),
			zap.Error(err))
		if o.Type == order.TypeLimit {
			_ = c.tracker.Rejected(o.Ref, err.Error())
		} else {
			_ = c.tracker.CancelRejected(o.Target)
		}
		return
	}
	c.metrics.OrdersSubmitted.WithLabelValues(o.Side.String(), o.Type.String()).Inc()
	c.logger.Debug("order submitted",
		zap.String("ref", o.Ref),
		zap.String("type", o.Type.String()),
		zap.String("security", o.Security),
		zap.Int64("price", o.Price),
		zap.Int64("units", o.Units))
}

// ready reports whether the controller has everything a strategy cycle
// needs: an open unpaused session, the payoff model and a holdings
// snapshot.
func (c *Controller) ready() bool {
	return c.sessionOpen && !c.paused && c.evaluator != nil && c.haveHoldings
}

func (c *Controller) elapsedMinutes() float64 {
	return c.now().Sub(c.sessionStart).Minutes()
}

// reportSession logs the end-of-session summary.
func (c *Controller) reportSession() {
	if c.evaluator == nil || !c.haveHoldings {
		c.logger.Info("session ended before trading state was established")
		return
	}
	perf := c.evaluator.Performance(c.holdings, nil)
	fields := []zap.Field{
		zap.Float64("performance", perf),
		zap.Int64("cash", c.holdings.Cash),
	}
	for _, id := range c.evaluator.Model().IDs() {
		fields = append(fields, zap.Int64("units_"+id, c.holdings.Position(id).Units))
	}
	c.logger.Info("session report", fields...)
}
