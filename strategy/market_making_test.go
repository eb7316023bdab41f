package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-trader-go/market"
	"portfolio-trader-go/order"
	"portfolio-trader-go/portfolio"
)

func mmSecurities() map[string]market.Security {
	return map[string]market.Security{
		"a": {ID: "a", PriceTick: 5, MaxPrice: 1000, MaxUnits: 10},
	}
}

func mmHoldings(cash int64, units int64) portfolio.Holdings {
	return portfolio.Holdings{
		Cash: cash, CashAvailable: cash,
		Assets: map[string]portfolio.Position{"a": {Units: units, UnitsAvailable: units}},
	}
}

func TestBuildQuotesBuySide(t *testing.T) {
	fair := map[string]portfolio.Fair{"a": {Buy: 2.0, Sell: -2.0}}

	// Fair buy 200 cents, margin 50: quote floor((200-50)/5)*5 = 150.
	intents := BuildQuotes(mmSecurities(), fair, 50, mmHoldings(1000, 1))
	require.Len(t, intents, 2)
	assert.Equal(t, order.SideBuy, intents[0].Side)
	assert.Equal(t, int64(150), intents[0].Price)
	assert.Equal(t, int64(1), intents[0].Units)

	// Sell mirrors the buy: |fair sell| 200 > margin 50, quote
	// ceil((200+50)/5)*5 = 250.
	assert.Equal(t, order.SideSell, intents[1].Side)
	assert.Equal(t, int64(250), intents[1].Price)
}

func TestBuildQuotesTickRounding(t *testing.T) {
	fair := map[string]portfolio.Fair{"a": {Buy: 2.03, Sell: -2.03}}

	// Buy: floor((203-50)/5)*5 = 150. Sell: ceil((203+50)/5)*5 = 255.
	intents := BuildQuotes(mmSecurities(), fair, 50, mmHoldings(1000, 1))
	require.Len(t, intents, 2)
	assert.Equal(t, int64(150), intents[0].Price)
	assert.Equal(t, int64(255), intents[1].Price)
}

func TestBuildQuotesInsideMargin(t *testing.T) {
	// Fair value under the margin on both sides: nothing to quote.
	fair := map[string]portfolio.Fair{"a": {Buy: 0.30, Sell: -0.30}}
	intents := BuildQuotes(mmSecurities(), fair, 50, mmHoldings(1000, 1))
	assert.Empty(t, intents)
}

func TestBuildQuotesPositiveFairSell(t *testing.T) {
	// A positive fair sell value means shedding the unit improves
	// performance by itself; quote at just the margin.
	fair := map[string]portfolio.Fair{"a": {Buy: -0.50, Sell: 0.50}}
	intents := BuildQuotes(mmSecurities(), fair, 47, mmHoldings(1000, 1))
	require.Len(t, intents, 1)
	assert.Equal(t, order.SideSell, intents[0].Side)
	assert.Equal(t, int64(50), intents[0].Price, "ceil(47/5)*5")
}

func TestBuildQuotesFeasibility(t *testing.T) {
	fair := map[string]portfolio.Fair{"a": {Buy: 2.0, Sell: -2.0}}

	// Cannot afford the 150-cent buy with 100 cents available.
	intents := BuildQuotes(mmSecurities(), fair, 50, mmHoldings(100, 1))
	require.Len(t, intents, 1)
	assert.Equal(t, order.SideSell, intents[0].Side)

	// No units available: the sell quote drops instead.
	intents = BuildQuotes(mmSecurities(), fair, 50, mmHoldings(1000, 0))
	require.Len(t, intents, 1)
	assert.Equal(t, order.SideBuy, intents[0].Side)
}

func TestBuildQuotesDeterministicOrder(t *testing.T) {
	secs := map[string]market.Security{
		"b": {ID: "b", PriceTick: 1, MaxPrice: 1000, MaxUnits: 10},
		"a": {ID: "a", PriceTick: 1, MaxPrice: 1000, MaxUnits: 10},
	}
	fair := map[string]portfolio.Fair{
		"a": {Buy: 2.0, Sell: 2.0},
		"b": {Buy: 2.0, Sell: 2.0},
	}
	h := portfolio.Holdings{
		Cash: 10000, CashAvailable: 10000,
		Assets: map[string]portfolio.Position{
			"a": {Units: 1, UnitsAvailable: 1},
			"b": {Units: 1, UnitsAvailable: 1},
		},
	}
	intents := BuildQuotes(secs, fair, 50, h)
	require.Len(t, intents, 4)
	assert.Equal(t, "a", intents[0].Security)
	assert.Equal(t, "a", intents[1].Security)
	assert.Equal(t, "b", intents[2].Security)
	assert.Equal(t, "b", intents[3].Security)
}
