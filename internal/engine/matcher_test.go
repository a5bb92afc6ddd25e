package engine

import (
	"testing"

	"matchbook/internal/common"
	"matchbook/internal/handler"

	"github.com/stretchr/testify/assert"
)

func TestMatchIncoming_SimpleCross(t *testing.T) {
	rec := newRecordingHandler()
	book := NewBook(1, rec)
	book.RestLimit(newOrder(1, common.Sell, common.Limit, 100, 50, common.GTC))

	incoming := newOrder(2, common.Buy, common.Limit, 100, 50, common.GTC)
	matchIncoming(book, incoming)

	assert.Equal(t, uint64(0), incoming.LeavesQuantity)
	assert.False(t, book.Has(1))
	assert.Nil(t, book.BestAsk)
	assert.Len(t, rec.trades, 2, "one execute event per side of the trade")
	assert.Equal(t, handler.DeleteReasonFilled, rec.deleted[1])
}

func TestMatchIncoming_PartialRests(t *testing.T) {
	book := NewBook(1, handler.NopHandler{})
	book.RestLimit(newOrder(1, common.Sell, common.Limit, 100, 30, common.GTC))

	incoming := newOrder(2, common.Buy, common.Limit, 100, 50, common.GTC)
	matchIncoming(book, incoming)

	assert.Equal(t, uint64(20), incoming.LeavesQuantity)
	assert.True(t, book.Has(2))
	assert.Equal(t, uint64(20), book.BestBid.TotalVolume)
}

func TestMatchIncoming_MultiLevelSweep(t *testing.T) {
	book := NewBook(1, handler.NopHandler{})
	book.RestLimit(newOrder(1, common.Sell, common.Limit, 100, 60, common.GTC))
	book.RestLimit(newOrder(2, common.Sell, common.Limit, 101, 20, common.GTC))

	incoming := newOrder(3, common.Buy, common.Limit, 103, 70, common.GTC)
	matchIncoming(book, incoming)

	assert.Equal(t, uint64(0), incoming.LeavesQuantity)
	assert.NotNil(t, book.BestAsk)
	assert.Equal(t, uint64(101), book.BestAsk.Price)
	assert.Equal(t, uint64(10), book.BestAsk.TotalVolume)
}

func TestMatchIncoming_FOKRejectsWithoutSideEffects(t *testing.T) {
	rec := newRecordingHandler()
	book := NewBook(1, rec)
	book.RestLimit(newOrder(1, common.Sell, common.Limit, 100, 30, common.GTC))

	incoming := newOrder(2, common.Buy, common.Limit, 100, 50, common.FOK)
	matchIncoming(book, incoming)

	assert.Equal(t, uint64(50), incoming.LeavesQuantity, "FOK with insufficient liquidity leaves the order untouched")
	assert.True(t, book.Has(1))
	assert.Equal(t, uint64(30), book.BestAsk.TotalVolume)
	assert.Equal(t, handler.DeleteReasonUnmatched, rec.deleted[2])
	assert.Empty(t, rec.trades)
}

func TestMatchIncoming_AONChainAcrossLevels(t *testing.T) {
	book := NewBook(1, handler.NopHandler{})
	book.RestLimit(newOrder(1, common.Sell, common.Limit, 100, 10, common.AON))
	book.RestLimit(newOrder(2, common.Sell, common.Limit, 101, 5, common.AON))

	incoming := newOrder(3, common.Buy, common.Limit, 101, 15, common.AON)
	matchIncoming(book, incoming)

	assert.Equal(t, uint64(0), incoming.LeavesQuantity)
	assert.False(t, book.Has(1))
	assert.False(t, book.Has(2))
	assert.Nil(t, book.BestAsk)
}

func TestMatchIncoming_AONRestsWithoutImmediateChain(t *testing.T) {
	book := NewBook(1, handler.NopHandler{})
	book.RestLimit(newOrder(1, common.Sell, common.Limit, 100, 10, common.GTC))

	incoming := newOrder(2, common.Buy, common.Limit, 100, 50, common.AON)
	matchIncoming(book, incoming)

	assert.Equal(t, uint64(50), incoming.LeavesQuantity)
	assert.True(t, book.Has(2))
}

func TestMatchIncoming_MarketOrderSlippageBound(t *testing.T) {
	book := NewBook(1, handler.NopHandler{})
	book.RestLimit(newOrder(1, common.Sell, common.Limit, 100, 10, common.GTC))
	book.RestLimit(newOrder(2, common.Sell, common.Limit, 110, 10, common.GTC))

	incoming := &common.Order{
		ID: 3, SymbolID: 1, Side: common.Buy, Type: common.Market,
		Quantity: 20, LeavesQuantity: 20, MaxVisibleQuantity: common.NoMaxVisible,
		Slippage: 5, TIF: common.IOC,
	}
	matchIncoming(book, incoming)

	assert.Equal(t, uint64(10), incoming.LeavesQuantity, "the 110 level sits beyond the slippage bound")
	assert.True(t, book.Has(2))
	assert.False(t, book.Has(3), "IOC leftover is cancelled, never rested")
}

func TestMatchCrossLevelAON_DiscoversAndExecutes(t *testing.T) {
	book := NewBook(1, handler.NopHandler{})
	book.RestLimit(newOrder(1, common.Buy, common.Limit, 100, 15, common.AON))
	book.RestLimit(newOrder(2, common.Sell, common.Limit, 99, 10, common.AON))
	book.RestLimit(newOrder(3, common.Sell, common.Limit, 100, 5, common.AON))

	found := matchCrossLevelAON(book)

	assert.True(t, found)
	assert.False(t, book.Has(1))
	assert.False(t, book.Has(2))
	assert.False(t, book.Has(3))
}

func TestMatchCrossLevelAON_NoChainLeavesBookUntouched(t *testing.T) {
	book := NewBook(1, handler.NopHandler{})
	book.RestLimit(newOrder(1, common.Buy, common.Limit, 100, 15, common.AON))
	book.RestLimit(newOrder(2, common.Sell, common.Limit, 99, 6, common.AON))

	found := matchCrossLevelAON(book)

	assert.False(t, found)
	assert.True(t, book.Has(1))
	assert.True(t, book.Has(2))
}
