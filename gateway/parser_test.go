package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-trader-go/order"
)

func TestParseSessionMessage(t *testing.T) {
	ev, err := ParseMessage([]byte(`{"type":"session","data":{"state":"open"}}`))
	require.NoError(t, err)
	se, ok := ev.(SessionEvent)
	require.True(t, ok)
	assert.Equal(t, SessionOpen, se.State)

	_, err = ParseMessage([]byte(`{"type":"session","data":{"state":"frozen"}}`))
	assert.Error(t, err)
}

func TestParseDefinitionsMessage(t *testing.T) {
	raw := []byte(`{"type":"definitions","data":{"securities":[
		{"id":"stock-a","priceTick":5,"minPrice":0,"maxPrice":1000,
		 "unitTick":1,"minUnits":1,"maxUnits":10,"payoffs":"100,200,300"}
	]}}`)
	ev, err := ParseMessage(raw)
	require.NoError(t, err)
	de, ok := ev.(DefinitionsEvent)
	require.True(t, ok)
	require.Len(t, de.Securities, 1)

	s := de.Securities[0]
	assert.Equal(t, "stock-a", s.ID)
	assert.Equal(t, int64(5), s.PriceTick)
	assert.Equal(t, []int64{100, 200, 300}, s.Payoffs)

	_, err = ParseMessage([]byte(`{"type":"definitions","data":{"securities":[{"id":"x","payoffs":"1,q"}]}}`))
	assert.Error(t, err, "a malformed payoff description must fail the message")
}

func TestParseBookMessage(t *testing.T) {
	raw := []byte(`{"type":"book","data":{"orders":[
		{"ref":"o1","security":"stock-a","side":"BUY","price":150,"units":2,"mine":false,"pending":true},
		{"ref":"o2","security":"stock-a","side":"SELL","price":160,"units":1,"mine":true,"pending":true}
	]}}`)
	ev, err := ParseMessage(raw)
	require.NoError(t, err)
	be, ok := ev.(BookEvent)
	require.True(t, ok)
	require.Len(t, be.Orders, 2)
	assert.Equal(t, order.SideBuy, be.Orders[0].Side)
	assert.True(t, be.Orders[1].Mine)
}

func TestParseHoldingsMessage(t *testing.T) {
	raw := []byte(`{"type":"holdings","data":{"cash":1000,"cashAvailable":900,
		"assets":{"stock-a":{"units":3,"unitsAvailable":2}}}}`)
	ev, err := ParseMessage(raw)
	require.NoError(t, err)
	he, ok := ev.(HoldingsEvent)
	require.True(t, ok)
	assert.Equal(t, int64(1000), he.Holdings.Cash)
	assert.Equal(t, int64(900), he.Holdings.CashAvailable)
	assert.Equal(t, int64(2), he.Holdings.Position("stock-a").UnitsAvailable)
}

func TestParseAckMessage(t *testing.T) {
	raw := []byte(`{"type":"ack","data":{"accepted":false,"reason":"rejected",
		"order":{"ref":"o1","security":"stock-a","side":"BUY","orderType":"LIMIT","price":150,"units":1}}}`)
	ev, err := ParseMessage(raw)
	require.NoError(t, err)
	ae, ok := ev.(AckEvent)
	require.True(t, ok)
	assert.False(t, ae.Accepted)
	assert.Equal(t, order.TypeLimit, ae.Order.Type)
	assert.Equal(t, "o1", ae.Order.Ref)
}

func TestParseUnknownType(t *testing.T) {
	_, err := ParseMessage([]byte(`{"type":"gossip","data":{}}`))
	assert.Error(t, err)
}

func TestEncodeOrderRoundTrip(t *testing.T) {
	o := order.Order{
		Ref:      "c1",
		Security: "stock-a",
		Side:     order.SideSell,
		Type:     order.TypeCancel,
		Price:    150,
		Units:    1,
		Target:   "o1",
	}
	raw, err := EncodeOrder(o)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"order"`)
	assert.Contains(t, string(raw), `"target":"o1"`)
	assert.Contains(t, string(raw), `"orderType":"CANCEL"`)
}
