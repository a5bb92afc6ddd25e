package engine

import (
	"matchbook/internal/common"
	"matchbook/internal/handler"
)

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func bestOpposite(book *Book, side common.Side) *PriceLevel {
	if side == common.Buy {
		return book.BestAsk
	}
	return book.BestBid
}

func oppositeTree(book *Book, side common.Side) *PriceTree {
	if side == common.Buy {
		return book.Asks
	}
	return book.Bids
}

// marketableAt reports whether an order resting/arriving at limitPrice on
// side would cross a resting level at restingPrice.
func marketableAt(side common.Side, limitPrice, restingPrice uint64) bool {
	if side == common.Buy {
		return limitPrice >= restingPrice
	}
	return limitPrice <= restingPrice
}

// effectiveLimit turns a market order's slippage into a concrete limit
// price against the current opposite best (spec §4.3.1's "slippage-bounded
// market order"). ok is false if there is nothing to trade against.
func effectiveLimit(book *Book, order *common.Order) (price uint64, ok bool) {
	level := bestOpposite(book, order.Side)
	if level == nil {
		return 0, false
	}
	if order.Side == common.Buy {
		return level.Price + order.Slippage, true
	}
	if order.Slippage >= level.Price {
		return 0, true
	}
	return level.Price - order.Slippage, true
}

// matchIncoming is the Matcher's single entry point for a newly-validated
// order that is eligible to cross (Market, Limit, and any stop order that
// has just activated and been converted to one of those two shapes). It
// never mutates order.TIF/Type — those are decided by the caller.
func matchIncoming(book *Book, order *common.Order) {
	var limitPrice uint64
	var ok bool
	if order.Type == common.Market {
		limitPrice, ok = effectiveLimit(book, order)
		if !ok {
			book.Handler.OnDeleteOrder(order, handler.DeleteReasonUnmatched)
			return
		}
	} else {
		limitPrice = order.Price
	}

	if order.TIF.IsAllOrNone() {
		matchAllOrNone(book, order, limitPrice)
		if order.LeavesQuantity == 0 {
			book.Handler.OnDeleteOrder(order, handler.DeleteReasonFilled)
		}
		return
	}

	matchGreedy(book, order, limitPrice)

	if order.LeavesQuantity == 0 {
		book.Handler.OnDeleteOrder(order, handler.DeleteReasonFilled)
		return
	}
	if order.TIF == common.GTC && order.Type.HasLimitPrice() {
		book.RestLimit(order)
		return
	}
	book.Handler.OnDeleteOrder(order, handler.DeleteReasonUnmatched)
}

// matchGreedy sweeps the opposite side of book, partially filling resting
// orders as needed, until order is exhausted or nothing marketable remains
// at limitPrice (spec §4.3.1's plain crossing loop).
func matchGreedy(book *Book, order *common.Order, limitPrice uint64) {
	for order.LeavesQuantity > 0 {
		level := bestOpposite(book, order.Side)
		if level == nil || !marketableAt(order.Side, limitPrice, level.Price) {
			return
		}
		resting, _ := level.Front()
		fill := minU64(order.LeavesQuantity, resting.LeavesQuantity)
		price := level.Price

		book.recordTrade(order.Side, resting.Side, price)
		order.Fill(fill)
		book.Handler.OnExecuteOrder(order, price, fill)
		book.Fill(resting, fill, price)
	}
}

// matchAllOrNone handles an AON or FOK incoming order (spec §4.3.2): it
// first discovers whether the opposite side can supply exactly the required
// quantity without ever taking less than a resting AON/FOK order's full
// leaves, then either executes that exact chain or rejects/rests depending
// on TIF. Grounded on original_source/src/market_executors/calculators.rs
// (calculate_matching_chain_single_level).
func matchAllOrNone(book *Book, order *common.Order, limitPrice uint64) {
	required := order.LeavesQuantity
	available := planChain(book, order.Side, limitPrice, required)

	if available != required {
		if order.TIF == common.FOK || !order.Type.HasLimitPrice() {
			book.Handler.OnDeleteOrder(order, handler.DeleteReasonUnmatched)
			return
		}
		// Plain AON with no immediate chain: rests until one appears.
		book.RestLimit(order)
		return
	}

	executeChain(book, order, limitPrice, required)
	if order.LeavesQuantity != 0 {
		// Should be unreachable given planChain found an exact match, but
		// never leave an order half-processed.
		book.Handler.OnDeleteOrder(order, handler.DeleteReasonUnmatched)
	}
}

// planChain walks the opposite side of book from its current best, level by
// level, accumulating how much quantity is available at or better than
// limitPrice without partially consuming any AON/FOK resting order. It
// returns as soon as the running total reaches or passes required.
func planChain(book *Book, side common.Side, limitPrice uint64, required uint64) uint64 {
	tree := oppositeTree(book, side)
	level := bestOpposite(book, side)
	var available uint64

	for level != nil {
		if !marketableAt(side, limitPrice, level.Price) {
			break
		}
		for _, o := range level.Orders() {
			need := required - available
			var qty uint64
			if o.TIF.IsAllOrNone() {
				qty = o.LeavesQuantity
			} else {
				qty = minU64(o.LeavesQuantity, need)
			}
			available += qty
			if available >= required {
				return available
			}
		}
		next, ok := tree.NextHigher(level)
		if !ok {
			break
		}
		level = next
	}
	return available
}

// executeChain re-walks the same chain planChain just validated and applies
// it for real, filling AON/FOK resting orders in full and everything else up
// to what's still needed.
func executeChain(book *Book, order *common.Order, limitPrice uint64, required uint64) {
	for order.LeavesQuantity > 0 {
		level := bestOpposite(book, order.Side)
		if level == nil || !marketableAt(order.Side, limitPrice, level.Price) {
			return
		}
		resting, _ := level.Front()

		var fill uint64
		if resting.TIF.IsAllOrNone() {
			fill = resting.LeavesQuantity
		} else {
			fill = minU64(resting.LeavesQuantity, order.LeavesQuantity)
		}
		price := level.Price

		book.recordTrade(order.Side, resting.Side, price)
		order.Fill(fill)
		book.Handler.OnExecuteOrder(order, price, fill)
		book.Fill(resting, fill, price)
	}
}

// sideWalker iterates a book side's resting orders across price levels in
// priority order, used only by the cross-level AON discovery below.
type sideWalker struct {
	tree   *PriceTree
	level  *PriceLevel
	orders []*common.Order
	idx    int
}

func newSideWalker(tree *PriceTree, start *PriceLevel) *sideWalker {
	w := &sideWalker{tree: tree, level: start}
	if start != nil {
		w.orders = start.Orders()
	}
	return w
}

func (w *sideWalker) peek() *common.Order {
	for w.level != nil {
		if w.idx < len(w.orders) {
			return w.orders[w.idx]
		}
		next, ok := w.tree.NextHigher(w.level)
		if !ok {
			w.level = nil
			return nil
		}
		w.level = next
		w.orders = next.Orders()
		w.idx = 0
	}
	return nil
}

func (w *sideWalker) peekQuantity() uint64 {
	o := w.peek()
	if o == nil {
		return 0
	}
	return o.LeavesQuantity
}

func (w *sideWalker) advance() bool {
	if w.peek() == nil {
		return false
	}
	w.idx++
	return true
}

// matchCrossLevelAON looks for a crossed top of book where at least one of
// the two head orders is a resting AON (spec §4.3.3), a state that can only
// arise after an AON order rested without an immediate single-side chain;
// a cross with no AON head is left alone. It designates the
// side needing the larger quantity as "longest" and walks the other side
// accumulating contributions, swapping roles whenever the running total
// would overshoot — mirroring original_source's
// calculate_matching_chain_cross_levels. Returns true if a chain was found
// and executed.
func matchCrossLevelAON(book *Book) bool {
	if book.BestBid == nil || book.BestAsk == nil {
		return false
	}
	if book.BestBid.Price < book.BestAsk.Price {
		return false
	}
	bidHead, _ := book.BestBid.Front()
	askHead, _ := book.BestAsk.Front()
	if bidHead == nil || askHead == nil {
		return false
	}
	if bidHead.TIF != common.AON && askHead.TIF != common.AON {
		return false
	}

	longestWalker := newSideWalker(book.Bids, book.BestBid)
	shortestWalker := newSideWalker(book.Asks, book.BestAsk)
	longestPrice := book.BestBid.Price

	required := longestWalker.peekQuantity()
	if shortestWalker.peekQuantity() > required {
		longestWalker, shortestWalker = shortestWalker, longestWalker
		longestPrice = book.BestAsk.Price
		required = longestWalker.peekQuantity()
	}

	var available uint64
	for {
		node := shortestWalker.peek()
		if node == nil {
			return false
		}
		need := required - available
		var qty uint64
		if node.TIF == common.AON {
			qty = node.LeavesQuantity
		} else {
			qty = minU64(node.LeavesQuantity, need)
		}
		available += qty

		if available == required {
			executeCrossLevelChain(book, required, longestPrice)
			return true
		}
		if available > required {
			longestWalker, shortestWalker = shortestWalker, longestWalker
			required, available = available, required
			continue
		}
		if !shortestWalker.advance() {
			return false
		}
	}
}

// executeCrossLevelChain drains exactly required from both the bid and ask
// sides in lockstep at price, applying AON/FOK resting orders in full and
// everything else up to what's still needed on its side.
func executeCrossLevelChain(book *Book, required, price uint64) {
	var filled uint64
	for filled < required {
		bidLevel, askLevel := book.BestBid, book.BestAsk
		if bidLevel == nil || askLevel == nil {
			return
		}
		bidOrder, _ := bidLevel.Front()
		askOrder, _ := askLevel.Front()
		need := required - filled

		bidQty := bidOrder.LeavesQuantity
		if !bidOrder.TIF.IsAllOrNone() {
			bidQty = minU64(bidQty, need)
		}
		askQty := askOrder.LeavesQuantity
		if !askOrder.TIF.IsAllOrNone() {
			askQty = minU64(askQty, need)
		}
		qty := minU64(minU64(bidQty, askQty), need)

		book.recordTrade(common.Buy, common.Sell, price)
		book.Fill(bidOrder, qty, price)
		book.Fill(askOrder, qty, price)
		filled += qty
	}
}
