package engine

import (
	"matchbook/internal/common"
	"matchbook/internal/handler"
)

// trade is one OnExecuteOrder callback captured by recordingHandler.
type trade struct {
	orderID uint64
	price   uint64
	qty     uint64
}

// recordingHandler captures just enough of the Handler callback stream for
// assertions, leaving everything else a no-op via the embedded NopHandler.
type recordingHandler struct {
	handler.NopHandler
	added   []uint64
	trades  []trade
	deleted map[uint64]handler.DeleteReason
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{deleted: make(map[uint64]handler.DeleteReason)}
}

func (h *recordingHandler) OnAddOrder(o *common.Order) {
	h.added = append(h.added, o.ID)
}

func (h *recordingHandler) OnExecuteOrder(o *common.Order, price, qty uint64) {
	h.trades = append(h.trades, trade{orderID: o.ID, price: price, qty: qty})
}

func (h *recordingHandler) OnDeleteOrder(o *common.Order, reason handler.DeleteReason) {
	h.deleted[o.ID] = reason
}

var _ handler.Handler = (*recordingHandler)(nil)

// newOrder builds a plain non-iceberg order for tests; callers mutate the
// returned value (StopPrice, TrailingDistance, Slippage, ...) as needed.
func newOrder(id uint64, side common.Side, typ common.OrderType, price, qty uint64, tif common.TimeInForce) *common.Order {
	return &common.Order{
		ID:                 id,
		SymbolID:           1,
		Side:               side,
		Type:               typ,
		Price:              price,
		Quantity:           qty,
		LeavesQuantity:     qty,
		MaxVisibleQuantity: common.NoMaxVisible,
		TIF:                tif,
	}
}
