package order

import "fmt"

// RejectReason classifies why the venue refused an order. The venue only
// reports that a rejection happened; the reason is diagnosed locally
// against the security's published limits.
type RejectReason int

const (
	ReasonUnknown RejectReason = iota
	ReasonPriceOutOfRange
	ReasonUnitsOutOfRange
	ReasonPriceTick
	ReasonUnitTick
)

func (r RejectReason) String() string {
	switch r {
	case ReasonPriceOutOfRange:
		return "price out of range"
	case ReasonUnitsOutOfRange:
		return "units out of range"
	case ReasonPriceTick:
		return "price not divisible by price tick"
	case ReasonUnitTick:
		return "units not divisible by unit tick"
	default:
		return "unknown"
	}
}

// Limits holds the venue-published bounds and ticks for one security.
type Limits struct {
	MinPrice  int64
	MaxPrice  int64
	PriceTick int64
	MinUnits  int64
	MaxUnits  int64
	UnitTick  int64
}

// Validate checks an order's price and unit count against the limits.
func (l Limits) Validate(price, units int64) error {
	if r := l.Classify(price, units); r != ReasonUnknown {
		return fmt.Errorf("order violates limits: %s (price=%d units=%d)", r, price, units)
	}
	return nil
}

// Classify returns the first violated constraint, checked in the order the
// venue checks them: price range, unit range, price tick, unit tick.
// ReasonUnknown means no violation was found.
func (l Limits) Classify(price, units int64) RejectReason {
	if price < l.MinPrice || price > l.MaxPrice {
		return ReasonPriceOutOfRange
	}
	if units < l.MinUnits || units > l.MaxUnits {
		return ReasonUnitsOutOfRange
	}
	if l.PriceTick > 0 && price%l.PriceTick != 0 {
		return ReasonPriceTick
	}
	if l.UnitTick > 0 && units%l.UnitTick != 0 {
		return ReasonUnitTick
	}
	return ReasonUnknown
}
