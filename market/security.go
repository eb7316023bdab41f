package market

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Security describes one tradable instrument. Prices are integer minor
// currency units (cents). The payoff scenarios are the equally likely
// terminal values the security pays at session end. Immutable after
// session start.
type Security struct {
	ID        string
	PriceTick int64
	MinPrice  int64
	MaxPrice  int64
	UnitTick  int64
	MinUnits  int64
	MaxUnits  int64
	Payoffs   []int64
}

// ParsePayoffs parses the venue's payoff description string, a
// comma-separated list of integers in cents ("100,200,300").
func ParsePayoffs(desc string) ([]int64, error) {
	parts := strings.Split(desc, ",")
	payoffs := make([]int64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse payoff %q: %w", p, err)
		}
		payoffs = append(payoffs, v)
	}
	if len(payoffs) == 0 {
		return nil, fmt.Errorf("empty payoff description")
	}
	return payoffs, nil
}

// SortedIDs returns the security identifiers in ascending order. This is
// the canonical ordering shared by the payoff model, holdings vectors and
// quote collection.
func SortedIDs(secs map[string]Security) []string {
	ids := make([]string, 0, len(secs))
	for id := range secs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
