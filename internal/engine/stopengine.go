package engine

import "matchbook/internal/common"

// activateStops walks the buy and sell stop sides (plain and trailing)
// repeatedly, converting and re-dispatching every order whose trigger
// condition is currently satisfied (spec §4.4). It returns true if anything
// activated at all, so the Dispatcher's fixpoint loop knows to keep going.
func activateStops(book *Book) bool {
	activated := false
	for activateOne(book) {
		activated = true
	}
	return activated
}

// activateOne activates at most one stop order — the best-priced one on
// whichever side currently triggers — and reports whether it did. Reference
// prices are recomputed fresh on every call, since the order just activated
// may itself have moved the market (spec §9: activation is driven by a
// work item, never recursive re-entry into the Matcher).
func activateOne(book *Book) bool {
	return tryActivateSide(book, common.Buy) || tryActivateSide(book, common.Sell)
}

func tryActivateSide(book *Book, side common.Side) bool {
	var reference uint64
	var ok bool
	if side == common.Buy {
		reference, ok = book.MarketAskPrice()
	} else {
		reference, ok = book.MarketBidPrice()
	}
	if !ok {
		return false
	}

	triggers := func(stop uint64) bool {
		if side == common.Buy {
			return reference >= stop
		}
		return reference <= stop
	}

	if activateFromTree(book, stopTreeKind(side), triggers) {
		return true
	}
	return activateFromTree(book, trailingStopTreeKind(side), triggers)
}

func activateFromTree(book *Book, kind treeKind, triggers func(stop uint64) bool) bool {
	best := book.bestOf(kind)
	if best == nil || !triggers(best.Price) {
		return false
	}
	order, _ := best.Front()
	book.RemoveStopLevel(order)
	convertActivatedOrder(order)
	book.Handler.OnUpdateOrder(order)
	matchIncoming(book, order)
	return true
}

// convertActivatedOrder turns a triggered stop into the order shape it
// activates into: Stop/TrailingStop become a Market order, StopLimit/
// TrailingStopLimit become a Limit order resting (or sweeping) at the price
// the order already carried (spec §4.4).
func convertActivatedOrder(order *common.Order) {
	switch order.Type {
	case common.Stop, common.TrailingStop:
		order.Type = common.Market
		if order.TIF == common.GTC {
			order.TIF = common.IOC
		}
	case common.StopLimit, common.TrailingStopLimit:
		order.Type = common.Limit
	}
	order.StopPrice = 0
}

// rescanTrailing recomputes every resting trailing stop's price against the
// current market reference (spec §4.5). An order only moves when
// CalculateTrailingStopPrice returns something other than its current stop
// price; moving it means removing and reinserting into its (possibly new)
// price level, since trailing trees are keyed by stop price. For a
// TrailingStopLimit, order.Price shifts by the same delta as the stop price
// so the price − stop_price offset the order was created with survives
// every reprice (spec §4.4).
func rescanTrailing(book *Book) {
	rescanTrailingSide(book, common.Buy)
	rescanTrailingSide(book, common.Sell)
}

func rescanTrailingSide(book *Book, side common.Side) {
	var reference uint64
	var ok bool
	if side == common.Buy {
		reference, ok = book.TrailingAskReference()
	} else {
		reference, ok = book.TrailingBidReference()
	}
	if !ok {
		return
	}

	kind := trailingStopTreeKind(side)
	tree := book.treeByKind(kind)
	for _, level := range tree.Items() {
		for _, o := range level.Orders() {
			newStop := CalculateTrailingStopPrice(side, reference, o.StopPrice, o.TrailingDistance, o.TrailingStep)
			if newStop == o.StopPrice {
				continue
			}
			if o.Type == common.TrailingStopLimit {
				delta := int64(newStop) - int64(o.StopPrice)
				o.Price = uint64(int64(o.Price) + delta)
			}
			book.RemoveStopLevel(o)
			o.StopPrice = newStop
			book.insertIntoStopTree(kind, newStop, o)
			book.Handler.OnUpdateOrder(o)
		}
	}
}
