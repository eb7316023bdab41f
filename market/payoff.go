package market

import (
	"errors"
	"fmt"
)

// centsPerDollar converts between the venue's minor units and the dollar
// figures the performance model works in.
const centsPerDollar = 100.0

// PayoffModel holds the expected-payoff vector and covariance matrix
// derived from the payoff scenarios of all securities. It is built once
// at session open and treated as constant afterwards.
//
// Scenario lists are paired across securities: scenario i of one security
// co-occurs with scenario i of every other, so every security must
// publish the same number of scenarios. The covariance is the population
// covariance (normalised by the scenario count, not count-1). All values
// are in dollars.
type PayoffModel struct {
	ids      []string
	index    map[string]int
	expected []float64
	cov      [][]float64
}

// NewPayoffModel derives the model from the session's securities.
// Securities are ordered lexicographically by identifier; the same
// ordering applies to holdings vectors everywhere else.
func NewPayoffModel(secs map[string]Security) (*PayoffModel, error) {
	if len(secs) == 0 {
		return nil, errors.New("no securities")
	}
	ids := SortedIDs(secs)

	scenarios := len(secs[ids[0]].Payoffs)
	if scenarios == 0 {
		return nil, fmt.Errorf("security %s has no payoff scenarios", ids[0])
	}
	for _, id := range ids {
		if len(secs[id].Payoffs) != scenarios {
			return nil, fmt.Errorf("security %s has %d scenarios, want %d (scenario lists are paired)",
				id, len(secs[id].Payoffs), scenarios)
		}
	}

	m := &PayoffModel{
		ids:      ids,
		index:    make(map[string]int, len(ids)),
		expected: make([]float64, len(ids)),
		cov:      make([][]float64, len(ids)),
	}
	payoffs := make([][]float64, len(ids))
	for i, id := range ids {
		m.index[id] = i
		payoffs[i] = make([]float64, scenarios)
		sum := 0.0
		for k, c := range secs[id].Payoffs {
			payoffs[i][k] = float64(c) / centsPerDollar
			sum += payoffs[i][k]
		}
		m.expected[i] = sum / float64(scenarios)
	}

	for i := range ids {
		m.cov[i] = make([]float64, len(ids))
		for j := 0; j <= i; j++ {
			c := 0.0
			for k := 0; k < scenarios; k++ {
				c += (payoffs[i][k] - m.expected[i]) * (payoffs[j][k] - m.expected[j])
			}
			c /= float64(scenarios)
			m.cov[i][j] = c
			m.cov[j][i] = c
		}
	}
	return m, nil
}

// Len returns the number of securities in the model.
func (m *PayoffModel) Len() int { return len(m.ids) }

// IDs returns the securities in model order (a copy).
func (m *PayoffModel) IDs() []string {
	ids := make([]string, len(m.ids))
	copy(ids, m.ids)
	return ids
}

// Index returns the model position of a security, or -1 if unknown.
func (m *PayoffModel) Index(id string) int {
	i, ok := m.index[id]
	if !ok {
		return -1
	}
	return i
}

// Expected returns the expected payoff of security i, in dollars.
func (m *PayoffModel) Expected(i int) float64 { return m.expected[i] }

// Covariance returns the payoff covariance of securities i and j.
func (m *PayoffModel) Covariance(i, j int) float64 { return m.cov[i][j] }

// ExpectedPayoff computes dot(units, expected) for a units vector in
// model order.
func (m *PayoffModel) ExpectedPayoff(units []float64) float64 {
	total := 0.0
	for i, u := range units {
		total += u * m.expected[i]
	}
	return total
}

// PayoffVariance computes the quadratic form dot(units, cov * units).
func (m *PayoffModel) PayoffVariance(units []float64) float64 {
	total := 0.0
	for i, ui := range units {
		if ui == 0 {
			continue
		}
		row := m.cov[i]
		for j, uj := range units {
			total += ui * row[j] * uj
		}
	}
	return total
}
