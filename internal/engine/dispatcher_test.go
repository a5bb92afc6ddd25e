package engine

import (
	"testing"

	"matchbook/internal/common"
	"matchbook/internal/handler"

	"github.com/stretchr/testify/assert"
)

func TestEngine_AddOrder_FullLifecycle(t *testing.T) {
	rec := newRecordingHandler()
	eng := NewEngine(rec)
	assert.NoError(t, eng.CreateBook(1))

	resting := newOrder(1, common.Sell, common.Limit, 100, 50, common.GTC)
	assert.NoError(t, eng.AddOrder(resting))

	incoming := newOrder(2, common.Buy, common.Limit, 100, 50, common.GTC)
	assert.NoError(t, eng.AddOrder(incoming))

	assert.Equal(t, handler.DeleteReasonFilled, rec.deleted[1])
	assert.Equal(t, handler.DeleteReasonFilled, rec.deleted[2])
	assert.Contains(t, rec.added, uint64(1))
	assert.Contains(t, rec.added, uint64(2))
}

func TestEngine_CreateBook_DuplicateSymbol(t *testing.T) {
	eng := NewEngine(handler.NopHandler{})
	assert.NoError(t, eng.CreateBook(1))

	err := eng.CreateBook(1)
	assert.Error(t, err)
	kind, ok := common.KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, common.OrderBookDuplicate, kind)
}

func TestEngine_AddOrder_UnknownSymbol(t *testing.T) {
	eng := NewEngine(handler.NopHandler{})
	err := eng.AddOrder(newOrder(1, common.Buy, common.Limit, 100, 10, common.GTC))
	assert.Error(t, err)
	kind, ok := common.KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, common.SymbolNotFound, kind)
}

func TestEngine_AddOrder_DuplicateID(t *testing.T) {
	eng := NewEngine(handler.NopHandler{})
	assert.NoError(t, eng.CreateBook(1))
	assert.NoError(t, eng.AddOrder(newOrder(1, common.Buy, common.Limit, 99, 10, common.GTC)))

	err := eng.AddOrder(newOrder(1, common.Buy, common.Limit, 98, 10, common.GTC))
	assert.Error(t, err)
}

func TestEngine_ModifyOrder_MitigatePreservesPosition(t *testing.T) {
	eng := NewEngine(handler.NopHandler{})
	assert.NoError(t, eng.CreateBook(1))
	assert.NoError(t, eng.AddOrder(newOrder(1, common.Buy, common.Limit, 99, 100, common.GTC)))

	assert.NoError(t, eng.ModifyOrder(1, 1, 99, 60, true))

	order, ok := eng.books[1].Lookup(1)
	assert.True(t, ok)
	assert.Equal(t, uint64(60), order.LeavesQuantity)
}

func TestEngine_ModifyOrder_PriceChangeReQueues(t *testing.T) {
	eng := NewEngine(handler.NopHandler{})
	assert.NoError(t, eng.CreateBook(1))
	assert.NoError(t, eng.AddOrder(newOrder(1, common.Buy, common.Limit, 99, 100, common.GTC)))

	assert.NoError(t, eng.ModifyOrder(1, 1, 98, 100, true))

	order, ok := eng.books[1].Lookup(1)
	assert.True(t, ok)
	assert.Equal(t, uint64(98), order.Price)
	assert.Equal(t, uint64(98), eng.books[1].BestBid.Price)
}

func TestEngine_ModifyOrder_StopRejected(t *testing.T) {
	eng := NewEngine(handler.NopHandler{})
	assert.NoError(t, eng.CreateBook(1))
	stop := newOrder(1, common.Buy, common.Stop, 0, 10, common.GTC)
	stop.StopPrice = 200
	assert.NoError(t, eng.AddOrder(stop))

	err := eng.ModifyOrder(1, 1, 0, 5, true)
	assert.Error(t, err)
	kind, ok := common.KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, common.OrderTypeInvalid, kind)
}

func TestEngine_CancelOrder(t *testing.T) {
	eng := NewEngine(handler.NopHandler{})
	assert.NoError(t, eng.CreateBook(1))
	assert.NoError(t, eng.AddOrder(newOrder(1, common.Buy, common.Limit, 99, 100, common.GTC)))

	assert.NoError(t, eng.CancelOrder(1, 1))
	assert.False(t, eng.books[1].Has(1))
}

func TestEngine_CancelOrder_NotFound(t *testing.T) {
	eng := NewEngine(handler.NopHandler{})
	assert.NoError(t, eng.CreateBook(1))

	err := eng.CancelOrder(1, 999)
	assert.Error(t, err)
}

func TestEngine_ExecuteOrder_PartialThenFull(t *testing.T) {
	rec := newRecordingHandler()
	eng := NewEngine(rec)
	assert.NoError(t, eng.CreateBook(1))
	assert.NoError(t, eng.AddOrder(newOrder(1, common.Buy, common.Limit, 99, 100, common.GTC)))

	assert.NoError(t, eng.ExecuteOrder(1, 1, 99, 40))
	order, ok := eng.books[1].Lookup(1)
	assert.True(t, ok)
	assert.Equal(t, uint64(60), order.LeavesQuantity)
	assert.Contains(t, rec.trades, trade{orderID: 1, price: 99, qty: 40})

	assert.NoError(t, eng.ExecuteOrder(1, 1, 99, 60))
	assert.False(t, eng.books[1].Has(1))
	assert.Equal(t, handler.DeleteReasonFilled, rec.deleted[1])
}

func TestEngine_ExecuteOrder_ClampsToLeaves(t *testing.T) {
	eng := NewEngine(handler.NopHandler{})
	assert.NoError(t, eng.CreateBook(1))
	assert.NoError(t, eng.AddOrder(newOrder(1, common.Buy, common.Limit, 99, 50, common.GTC)))

	assert.NoError(t, eng.ExecuteOrder(1, 1, 99, 1000))
	assert.False(t, eng.books[1].Has(1), "overfill clamps to the order's remaining leaves")
}

func TestEngine_ExecuteOrder_NotFound(t *testing.T) {
	eng := NewEngine(handler.NopHandler{})
	assert.NoError(t, eng.CreateBook(1))

	err := eng.ExecuteOrder(1, 999, 99, 10)
	assert.Error(t, err)
	kind, ok := common.KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, common.OrderNotFound, kind)
}

func TestEngine_ReplaceOrder(t *testing.T) {
	eng := NewEngine(handler.NopHandler{})
	assert.NoError(t, eng.CreateBook(1))
	assert.NoError(t, eng.AddOrder(newOrder(1, common.Buy, common.Limit, 99, 100, common.GTC)))

	replacement := newOrder(2, common.Buy, common.Limit, 99, 40, common.GTC)
	assert.NoError(t, eng.ReplaceOrder(1, 1, replacement))

	assert.False(t, eng.books[1].Has(1))
	assert.True(t, eng.books[1].Has(2))
}

func TestEngine_StopActivatesThroughAddOrder(t *testing.T) {
	rec := newRecordingHandler()
	eng := NewEngine(rec)
	assert.NoError(t, eng.CreateBook(1))

	stop := newOrder(1, common.Buy, common.Stop, 0, 20, common.GTC)
	stop.StopPrice = 104
	assert.NoError(t, eng.AddOrder(stop))
	assert.True(t, eng.books[1].Has(1), "stop order parks until triggered")

	assert.NoError(t, eng.AddOrder(newOrder(2, common.Sell, common.Limit, 105, 50, common.GTC)))

	assert.False(t, eng.books[1].Has(1), "the stop activated and swept the resting ask")
	assert.Equal(t, handler.DeleteReasonFilled, rec.deleted[1])
}
