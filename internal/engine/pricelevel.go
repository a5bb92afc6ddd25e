package engine

import (
	"container/list"

	"matchbook/internal/common"
)

// PriceLevel aggregates every resting order at one price on one side
// (spec §3). orders is a FIFO queue by arrival; each order's position is a
// *list.Element, the stable handle OrderIndex hands back to callers so a
// specific order can be reduced/removed in O(1) without a linear scan.
type PriceLevel struct {
	Price uint64
	Side  common.Side

	TotalVolume   uint64
	VisibleVolume uint64
	HiddenVolume  uint64

	orders *list.List
}

func newPriceLevel(price uint64, side common.Side) *PriceLevel {
	return &PriceLevel{Price: price, Side: side, orders: list.New()}
}

// Orders returns the resting orders at this level, oldest first.
func (l *PriceLevel) Orders() []*common.Order {
	out := make([]*common.Order, 0, l.orders.Len())
	for e := l.orders.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*common.Order))
	}
	return out
}

// Len returns the number of resting orders at this level.
func (l *PriceLevel) Len() int { return l.orders.Len() }

// Front returns the head of the FIFO queue (the next order due for a fill).
func (l *PriceLevel) Front() (*common.Order, *list.Element) {
	e := l.orders.Front()
	if e == nil {
		return nil, nil
	}
	return e.Value.(*common.Order), e
}

func (l *PriceLevel) push(order *common.Order) *list.Element {
	elem := l.orders.PushBack(order)
	l.TotalVolume += order.LeavesQuantity
	l.VisibleVolume += order.Visible()
	l.HiddenVolume = l.TotalVolume - l.VisibleVolume
	return elem
}

// unlink removes an order from the queue entirely (it has reached zero
// leaves, or is being cancelled/replaced). Volumes must already reflect the
// order's current (zero, for fills) leaves — callers apply applyFill first.
func (l *PriceLevel) unlink(elem *list.Element) {
	l.orders.Remove(elem)
}

// applyFill reduces both the order and the level's aggregate volumes by a
// fill, keeping total/visible/hidden consistent (spec §3 sum rule).
func (l *PriceLevel) applyFill(order *common.Order, qty uint64) {
	visibleBefore := order.Visible()
	order.Fill(qty)
	visibleAfter := order.Visible()

	l.TotalVolume -= qty
	l.VisibleVolume -= visibleBefore - visibleAfter
	l.HiddenVolume = l.TotalVolume - l.VisibleVolume
}

// removeVolume withdraws an order's full remaining contribution from the
// level's aggregates, ahead of unlinking it (cancel / reduce-to-zero path).
func (l *PriceLevel) removeVolume(order *common.Order) {
	l.TotalVolume -= order.LeavesQuantity
	l.VisibleVolume -= order.Visible()
	l.HiddenVolume = l.TotalVolume - l.VisibleVolume
}

// addVolume re-publishes an order's current remaining contribution,
// used when partially reducing an order in place (spec §4.6 reduce/modify).
func (l *PriceLevel) addVolume(order *common.Order) {
	l.TotalVolume += order.LeavesQuantity
	l.VisibleVolume += order.Visible()
	l.HiddenVolume = l.TotalVolume - l.VisibleVolume
}

func (l *PriceLevel) isEmpty() bool {
	return l.orders.Len() == 0
}
