package gateway

import (
	"encoding/json"
	"fmt"

	"portfolio-trader-go/market"
	"portfolio-trader-go/order"
	"portfolio-trader-go/portfolio"
)

// envelope wraps every feed message with a type tag.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type sessionMsg struct {
	State string `json:"state"`
}

type securityMsg struct {
	ID        string `json:"id"`
	PriceTick int64  `json:"priceTick"`
	MinPrice  int64  `json:"minPrice"`
	MaxPrice  int64  `json:"maxPrice"`
	UnitTick  int64  `json:"unitTick"`
	MinUnits  int64  `json:"minUnits"`
	MaxUnits  int64  `json:"maxUnits"`
	// Payoffs is the comma-separated scenario description string.
	Payoffs string `json:"payoffs"`
}

type definitionsMsg struct {
	Securities []securityMsg `json:"securities"`
}

type bookOrderMsg struct {
	Ref      string `json:"ref"`
	Security string `json:"security"`
	Side     string `json:"side"`
	Price    int64  `json:"price"`
	Units    int64  `json:"units"`
	Mine     bool   `json:"mine"`
	Pending  bool   `json:"pending"`
}

type bookMsg struct {
	Orders []bookOrderMsg `json:"orders"`
}

type positionMsg struct {
	Units          int64 `json:"units"`
	UnitsAvailable int64 `json:"unitsAvailable"`
}

type holdingsMsg struct {
	Cash          int64                  `json:"cash"`
	CashAvailable int64                  `json:"cashAvailable"`
	Assets        map[string]positionMsg `json:"assets"`
}

type orderMsg struct {
	Ref      string `json:"ref"`
	Security string `json:"security"`
	Side     string `json:"side"`
	Type     string `json:"orderType"`
	Price    int64  `json:"price"`
	Units    int64  `json:"units"`
	Target   string `json:"target,omitempty"`
}

type ackMsg struct {
	Accepted bool     `json:"accepted"`
	Reason   string   `json:"reason,omitempty"`
	Order    orderMsg `json:"order"`
}

// ParseMessage decodes one feed message into an Event.
func ParseMessage(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	switch env.Type {
	case "session":
		var m sessionMsg
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return nil, fmt.Errorf("decode session: %w", err)
		}
		switch m.State {
		case "open":
			return SessionEvent{State: SessionOpen}, nil
		case "paused":
			return SessionEvent{State: SessionPaused}, nil
		case "closed":
			return SessionEvent{State: SessionClosed}, nil
		default:
			return nil, fmt.Errorf("unknown session state %q", m.State)
		}

	case "definitions":
		var m definitionsMsg
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return nil, fmt.Errorf("decode definitions: %w", err)
		}
		secs := make([]market.Security, 0, len(m.Securities))
		for _, s := range m.Securities {
			payoffs, err := market.ParsePayoffs(s.Payoffs)
			if err != nil {
				return nil, fmt.Errorf("security %s: %w", s.ID, err)
			}
			secs = append(secs, market.Security{
				ID:        s.ID,
				PriceTick: s.PriceTick,
				MinPrice:  s.MinPrice,
				MaxPrice:  s.MaxPrice,
				UnitTick:  s.UnitTick,
				MinUnits:  s.MinUnits,
				MaxUnits:  s.MaxUnits,
				Payoffs:   payoffs,
			})
		}
		return DefinitionsEvent{Securities: secs}, nil

	case "book":
		var m bookMsg
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return nil, fmt.Errorf("decode book: %w", err)
		}
		orders := make([]market.BookOrder, 0, len(m.Orders))
		for _, o := range m.Orders {
			side, err := order.ParseSide(o.Side)
			if err != nil {
				return nil, fmt.Errorf("book order %s: %w", o.Ref, err)
			}
			orders = append(orders, market.BookOrder{
				Ref:      o.Ref,
				Security: o.Security,
				Side:     side,
				Price:    o.Price,
				Units:    o.Units,
				Mine:     o.Mine,
				Pending:  o.Pending,
			})
		}
		return BookEvent{Orders: orders}, nil

	case "holdings":
		var m holdingsMsg
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return nil, fmt.Errorf("decode holdings: %w", err)
		}
		h := portfolio.Holdings{
			Cash:          m.Cash,
			CashAvailable: m.CashAvailable,
			Assets:        make(map[string]portfolio.Position, len(m.Assets)),
		}
		for id, p := range m.Assets {
			h.Assets[id] = portfolio.Position{Units: p.Units, UnitsAvailable: p.UnitsAvailable}
		}
		return HoldingsEvent{Holdings: h}, nil

	case "ack":
		var m ackMsg
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return nil, fmt.Errorf("decode ack: %w", err)
		}
		o, err := decodeOrder(m.Order)
		if err != nil {
			return nil, err
		}
		return AckEvent{Accepted: m.Accepted, Reason: m.Reason, Order: o}, nil

	default:
		return nil, fmt.Errorf("unknown message type %q", env.Type)
	}
}

func decodeOrder(m orderMsg) (order.Order, error) {
	side, err := order.ParseSide(m.Side)
	if err != nil {
		return order.Order{}, fmt.Errorf("ack order %s: %w", m.Ref, err)
	}
	typ, err := order.ParseType(m.Type)
	if err != nil {
		return order.Order{}, fmt.Errorf("ack order %s: %w", m.Ref, err)
	}
	return order.Order{
		Ref:      m.Ref,
		Security: m.Security,
		Side:     side,
		Type:     typ,
		Price:    m.Price,
		Units:    m.Units,
		Target:   m.Target,
	}, nil
}

// EncodeOrder builds the outbound submission message for an order.
func EncodeOrder(o order.Order) ([]byte, error) {
	msg := orderMsg{
		Ref:      o.Ref,
		Security: o.Security,
		Side:     o.Side.String(),
		Type:     o.Type.String(),
		Price:    o.Price,
		Units:    o.Units,
		Target:   o.Target,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: "order", Data: data})
}
