package portfolio

import (
	"errors"

	"portfolio-trader-go/market"
	"portfolio-trader-go/order"
)

// Prospect is a hypothetical trade used only for performance evaluation;
// it is never submitted. Each prospect moves exactly one unit at its
// price: fair-price linearity in unit count is assumed, not proven, so
// multi-unit hypotheticals are deliberately not modelled.
type Prospect struct {
	Security string
	Side     order.Side
	Price    int64
}

// Evaluator computes the mean-variance utility of a holdings state:
//
//	performance = dot(units, expectedPayoffs) + cash - riskPenalty * dot(units, cov * units)
//
// with cash and payoffs in dollars. It is a pure function of its inputs
// and never mutates the real holdings.
type Evaluator struct {
	model       *market.PayoffModel
	riskPenalty float64
}

func NewEvaluator(model *market.PayoffModel, riskPenalty float64) (*Evaluator, error) {
	if model == nil {
		return nil, errors.New("payoff model is required")
	}
	return &Evaluator{model: model, riskPenalty: riskPenalty}, nil
}

// RiskPenalty returns the configured penalty for payoff variance.
func (e *Evaluator) RiskPenalty() float64 { return e.riskPenalty }

// Model returns the payoff model the evaluator was built from.
func (e *Evaluator) Model() *market.PayoffModel { return e.model }

// Performance evaluates the holdings, optionally adjusted by a set of
// prospective trades: a buy spends its price and gains one unit, a sell
// earns its price and sheds one unit.
func (e *Evaluator) Performance(h Holdings, prospects []Prospect) float64 {
	units := make([]float64, e.model.Len())
	for i, id := range e.model.IDs() {
		units[i] = float64(h.Position(id).Units)
	}
	cash := float64(h.Cash) / 100

	for _, p := range prospects {
		i := e.model.Index(p.Security)
		if i < 0 {
			continue
		}
		switch p.Side {
		case order.SideBuy:
			cash -= float64(p.Price) / 100
			units[i]++
		case order.SideSell:
			cash += float64(p.Price) / 100
			units[i]--
		}
	}

	expected := e.model.ExpectedPayoff(units) + cash
	variance := e.model.PayoffVariance(units)
	return expected - e.riskPenalty*variance
}
