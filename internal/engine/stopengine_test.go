package engine

import (
	"testing"

	"matchbook/internal/common"
	"matchbook/internal/handler"

	"github.com/stretchr/testify/assert"
)

func TestConvertActivatedOrder(t *testing.T) {
	stop := newOrder(1, common.Buy, common.Stop, 0, 10, common.GTC)
	stop.StopPrice = 100
	convertActivatedOrder(stop)
	assert.Equal(t, common.Market, stop.Type)
	assert.Equal(t, uint64(0), stop.StopPrice)

	stopLimit := newOrder(2, common.Buy, common.StopLimit, 105, 10, common.GTC)
	stopLimit.StopPrice = 100
	convertActivatedOrder(stopLimit)
	assert.Equal(t, common.Limit, stopLimit.Type)
	assert.Equal(t, uint64(105), stopLimit.Price, "the resting limit price survives activation")
}

func TestActivateStops_BuyStopTriggersOnAskAdvance(t *testing.T) {
	book := NewBook(1, handler.NopHandler{})
	book.RestLimit(newOrder(1, common.Sell, common.Limit, 105, 50, common.GTC))

	stop := newOrder(2, common.Buy, common.Stop, 0, 20, common.GTC)
	stop.StopPrice = 104
	book.AddStop(stop)

	activated := activateStops(book)
	assert.True(t, activated)
	assert.False(t, book.Has(2), "activated stop order leaves its stop tree")
	assert.Equal(t, uint64(0), stop.LeavesQuantity, "converted market order swept the resting ask")
}

func TestActivateStops_BelowTriggerStaysResting(t *testing.T) {
	book := NewBook(1, handler.NopHandler{})
	book.RestLimit(newOrder(1, common.Sell, common.Limit, 100, 50, common.GTC))

	stop := newOrder(2, common.Buy, common.Stop, 0, 20, common.GTC)
	stop.StopPrice = 104
	book.AddStop(stop)

	activated := activateStops(book)
	assert.False(t, activated)
	assert.True(t, book.Has(2))
}

func TestRescanTrailing_SellTrailingStopFollowsBidUpButNeverRetreats(t *testing.T) {
	book := NewBook(1, handler.NopHandler{})
	book.RestLimit(newOrder(1, common.Buy, common.Limit, 100, 50, common.GTC))

	trailing := newOrder(2, common.Sell, common.TrailingStop, 0, 10, common.GTC)
	trailing.TrailingDistance = 5
	book.AddTrailingStop(trailing, 100)
	assert.Equal(t, uint64(95), trailing.StopPrice)

	// Bid rises to 110: the trailing sell stop follows up to 105.
	assert.NoError(t, book.Cancel(1))
	book.RestLimit(newOrder(3, common.Buy, common.Limit, 110, 50, common.GTC))
	rescanTrailing(book)
	updated, ok := book.Lookup(2)
	assert.True(t, ok)
	assert.Equal(t, uint64(105), updated.StopPrice)

	// Bid falls back to 102: the stop must not retreat below 105.
	assert.NoError(t, book.Cancel(3))
	book.RestLimit(newOrder(4, common.Buy, common.Limit, 102, 50, common.GTC))
	rescanTrailing(book)
	updated, ok = book.Lookup(2)
	assert.True(t, ok)
	assert.Equal(t, uint64(105), updated.StopPrice, "trailing stops never retreat")
}

func TestRescanTrailing_StopLimitPreservesPriceOffset(t *testing.T) {
	book := NewBook(1, handler.NopHandler{})
	book.RestLimit(newOrder(1, common.Buy, common.Limit, 100, 50, common.GTC))

	trailing := newOrder(2, common.Sell, common.TrailingStopLimit, 93, 10, common.GTC)
	trailing.TrailingDistance = 5
	book.AddTrailingStop(trailing, 100)
	assert.Equal(t, uint64(95), trailing.StopPrice)
	assert.Equal(t, uint64(93), trailing.Price, "price - stop_price offset is -2 at creation")

	// Bid rises to 110: the stop trails up to 105, and price must follow by
	// the same +10 delta to keep the offset at -2.
	assert.NoError(t, book.Cancel(1))
	book.RestLimit(newOrder(3, common.Buy, common.Limit, 110, 50, common.GTC))
	rescanTrailing(book)

	updated, ok := book.Lookup(2)
	assert.True(t, ok)
	assert.Equal(t, uint64(105), updated.StopPrice)
	assert.Equal(t, uint64(103), updated.Price, "price follows the stop to preserve the offset")
}

func TestRescanTrailing_StepGatesSmallMoves(t *testing.T) {
	book := NewBook(1, handler.NopHandler{})
	book.RestLimit(newOrder(1, common.Buy, common.Limit, 100, 50, common.GTC))

	trailing := newOrder(2, common.Sell, common.TrailingStop, 0, 10, common.GTC)
	trailing.TrailingDistance = 5
	trailing.TrailingStep = 3
	book.AddTrailingStop(trailing, 100)
	assert.Equal(t, uint64(95), trailing.StopPrice)

	// Bid rises by only 2: below the 3-tick step, so the stop does not move.
	assert.NoError(t, book.Cancel(1))
	book.RestLimit(newOrder(3, common.Buy, common.Limit, 102, 50, common.GTC))
	rescanTrailing(book)
	updated, _ := book.Lookup(2)
	assert.Equal(t, uint64(95), updated.StopPrice, "move is smaller than trailing_step")
}
