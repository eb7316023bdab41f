package order

import (
	"fmt"
	"time"
)

// Side is the direction of an order. It is a closed enumeration; every
// switch over it must be exhaustive.
type Side int

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// ParseSide maps the wire representation back to a Side.
func ParseSide(s string) (Side, error) {
	switch s {
	case "BUY":
		return SideBuy, nil
	case "SELL":
		return SideSell, nil
	default:
		return 0, fmt.Errorf("unknown side %q", s)
	}
}

// Type distinguishes new limit orders from cancels of previously
// accepted orders. The venue has no other order kinds.
type Type int

const (
	TypeLimit Type = iota
	TypeCancel
)

func (t Type) String() string {
	switch t {
	case TypeLimit:
		return "LIMIT"
	case TypeCancel:
		return "CANCEL"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// ParseType maps the wire representation back to a Type.
func ParseType(s string) (Type, error) {
	switch s {
	case "LIMIT":
		return TypeLimit, nil
	case "CANCEL":
		return TypeCancel, nil
	default:
		return 0, fmt.Errorf("unknown order type %q", s)
	}
}

// Order is an order this agent has created. Prices and the cash they
// move are integer minor currency units (cents).
type Order struct {
	Ref      string
	Security string
	Side     Side
	Type     Type
	Price    int64
	Units    int64
	Status   Status
	// Target is the ref of the order a cancel refers to; empty for limits.
	Target    string
	LastError string
}

// NewRef generates a unique order reference.
func NewRef(security string) string {
	return security + "-" + time.Now().UTC().Format("20060102150405.000000000")
}
