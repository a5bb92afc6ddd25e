package engine

import (
	"matchbook/internal/common"
	"matchbook/internal/handler"
)

// Book is the per-symbol order book (spec §3/§4.2): six price-ordered
// trees (bids, asks, buy-stops, sell-stops, trailing-buy-stops,
// trailing-sell-stops), a cached best pointer per tree, and the scalar
// reference prices the Matcher and StopEngine read.
//
// A Book is owned by exactly one goroutine; nothing here takes a lock
// (spec §5 — the source's Arc<Mutex<...>> ubiquity is the mistake this
// rewrite does not reproduce).
type Book struct {
	SymbolID common.SymbolID
	Handler  handler.Handler

	Bids              *PriceTree // max-first
	Asks              *PriceTree // min-first
	BuyStops          *PriceTree // min-first over stop price
	SellStops         *PriceTree // max-first over stop price
	TrailingBuyStops  *PriceTree // min-first over stop price
	TrailingSellStops *PriceTree // max-first over stop price

	index *OrderIndex

	BestBid              *PriceLevel
	BestAsk              *PriceLevel
	BestBuyStop          *PriceLevel
	BestSellStop         *PriceLevel
	BestTrailingBuyStop  *PriceLevel
	BestTrailingSellStop *PriceLevel

	LastBidPrice     uint64
	LastAskPrice     uint64
	MatchingBidPrice uint64        // high-water mark during a match run
	MatchingAskPrice uint64        // low-water mark during a match run
	TrailingBidPrice uint64
	TrailingAskPrice uint64
}

const maxU64 = ^uint64(0)

// NewBook constructs an empty book for symbolID, reporting through h.
func NewBook(symbolID common.SymbolID, h handler.Handler) *Book {
	return &Book{
		SymbolID:          symbolID,
		Handler:           h,
		Bids:              newPriceTree(maxFirst),
		Asks:              newPriceTree(minFirst),
		BuyStops:          newPriceTree(minFirst),
		SellStops:         newPriceTree(maxFirst),
		TrailingBuyStops:  newPriceTree(minFirst),
		TrailingSellStops: newPriceTree(maxFirst),
		index:             newOrderIndex(),
		MatchingAskPrice:  maxU64,
	}
}

func (b *Book) treeByKind(kind treeKind) *PriceTree {
	switch kind {
	case treeBids:
		return b.Bids
	case treeAsks:
		return b.Asks
	case treeBuyStops:
		return b.BuyStops
	case treeSellStops:
		return b.SellStops
	case treeTrailingBuyStops:
		return b.TrailingBuyStops
	case treeTrailingSellStops:
		return b.TrailingSellStops
	default:
		panic("engine: unknown tree kind")
	}
}

// recomputeBest resyncs the cached best pointer for kind from its tree's
// extremum. Per spec §9 this replaces any parent/sibling-pointer recovery:
// after any delete that might have touched the cached best, ask the tree,
// never the old node's neighbours.
func (b *Book) recomputeBest(kind treeKind) {
	tree := b.treeByKind(kind)
	best, ok := tree.Min()
	if !ok {
		best = nil
	}
	switch kind {
	case treeBids:
		b.BestBid = best
	case treeAsks:
		b.BestAsk = best
	case treeBuyStops:
		b.BestBuyStop = best
	case treeSellStops:
		b.BestSellStop = best
	case treeTrailingBuyStops:
		b.BestTrailingBuyStop = best
	case treeTrailingSellStops:
		b.BestTrailingSellStop = best
	}
}

func (b *Book) bestOf(kind treeKind) *PriceLevel {
	switch kind {
	case treeBids:
		return b.BestBid
	case treeAsks:
		return b.BestAsk
	case treeBuyStops:
		return b.BestBuyStop
	case treeSellStops:
		return b.BestSellStop
	case treeTrailingBuyStops:
		return b.BestTrailingBuyStop
	case treeTrailingSellStops:
		return b.BestTrailingSellStop
	default:
		return nil
	}
}

func restingTreeKind(side common.Side) treeKind {
	if side == common.Buy {
		return treeBids
	}
	return treeAsks
}

func stopTreeKind(side common.Side) treeKind {
	if side == common.Buy {
		return treeBuyStops
	}
	return treeSellStops
}

func trailingStopTreeKind(side common.Side) treeKind {
	if side == common.Buy {
		return treeTrailingBuyStops
	}
	return treeTrailingSellStops
}

func (b *Book) emitLevel(kind treeKind, update handler.LevelUpdate) {
	best := b.bestOf(kind)
	update.IsTop = best != nil && best.Price == update.Price
	switch update.Kind {
	case handler.LevelAdded:
		b.Handler.OnAddLevel(update)
	case handler.LevelUpdated:
		b.Handler.OnUpdateLevel(update)
	case handler.LevelDeleted:
		b.Handler.OnDeleteLevel(update)
	}
}

func levelUpdate(kind handler.UpdateKind, level *PriceLevel, symbolID common.SymbolID) handler.LevelUpdate {
	return handler.LevelUpdate{
		Kind:          kind,
		SymbolID:      symbolID,
		Side:          level.Side,
		Price:         level.Price,
		TotalVolume:   level.TotalVolume,
		VisibleVolume: level.VisibleVolume,
		HiddenVolume:  level.HiddenVolume,
	}
}

// insertInto locates or creates the level for order's price within tree
// kind, appends order to its FIFO queue, and updates volumes/best pointer.
// Only called for book (bid/ask) trees — the ones that actually participate
// in matching and are observable as "levels" (spec glossary).
func (b *Book) insertInto(kind treeKind, price uint64, order *common.Order) {
	tree := b.treeByKind(kind)
	level, ok := tree.Get(price)
	created := false
	if !ok {
		level = newPriceLevel(price, order.Side)
		tree.Insert(level)
		created = true
	}
	elem := level.push(order)
	b.index.set(order.ID, &location{kind: kind, level: level, elem: elem})

	if kind == treeBids || kind == treeAsks {
		b.recomputeBest(kind)
		if created {
			b.emitLevel(kind, levelUpdate(handler.LevelAdded, level, b.SymbolID))
		} else {
			b.emitLevel(kind, levelUpdate(handler.LevelUpdated, level, b.SymbolID))
		}
	}
}

// RestLimit adds a (possibly partially filled) limit order to its resting
// tree. Callers invoke this only after the Matcher has already taken
// whatever cross was available — RestLimit never matches.
func (b *Book) RestLimit(order *common.Order) {
	b.insertInto(restingTreeKind(order.Side), order.Price, order)
}

// AddStop inserts a (non-trailing) stop order into its stop tree, keyed by
// stop price. Stop trees are dormant storage — they do not emit level
// callbacks, only the order lifecycle callbacks already fired by the
// Dispatcher on acceptance.
func (b *Book) AddStop(order *common.Order) {
	kind := stopTreeKind(order.Side)
	b.insertIntoStopTree(kind, order.StopPrice, order)
}

// AddTrailingStop inserts a trailing stop, computing its initial stop price
// from the current market if the caller didn't already pin one.
func (b *Book) AddTrailingStop(order *common.Order, marketPrice uint64) {
	if order.StopPrice == 0 {
		order.StopPrice = CalculateTrailingStopPrice(order.Side, marketPrice, 0, order.TrailingDistance, order.TrailingStep)
	}
	kind := trailingStopTreeKind(order.Side)
	b.insertIntoStopTree(kind, order.StopPrice, order)
}

func (b *Book) insertIntoStopTree(kind treeKind, price uint64, order *common.Order) {
	tree := b.treeByKind(kind)
	level, ok := tree.Get(price)
	if !ok {
		level = newPriceLevel(price, order.Side)
		tree.Insert(level)
	}
	elem := level.push(order)
	b.index.set(order.ID, &location{kind: kind, level: level, elem: elem})
	b.recomputeBest(kind)
}

// Lookup returns the order resting under id, if any.
func (b *Book) Lookup(id uint64) (*common.Order, bool) {
	loc, ok := b.index.get(id)
	if !ok {
		return nil, false
	}
	return loc.elem.Value.(*common.Order), true
}

// Has reports whether id currently rests anywhere in the book.
func (b *Book) Has(id uint64) bool { return b.index.has(id) }

// Fill applies an execution of qty at price against the resting order
// tracked by id (spec §4.3.1 step 3-5). It is the Matcher's sole write path
// onto a resting order.
func (b *Book) Fill(order *common.Order, qty uint64, price uint64) {
	loc, ok := b.index.get(order.ID)
	if !ok {
		return
	}
	level := loc.level
	level.applyFill(order, qty)
	b.Handler.OnExecuteOrder(order, price, qty)

	if order.LeavesQuantity == 0 {
		level.unlink(loc.elem)
		b.index.delete(order.ID)
		b.Handler.OnDeleteOrder(order, handler.DeleteReasonFilled)
	}
	b.commitLevel(loc.kind, level)
}

// Reduce decrements the resting order's leaves by delta without marking it
// executed (spec §4.6 `reduce`): a cancellation of part of the order, not a
// trade. If the order reaches zero it is removed and OnDeleteOrder fires
// with DeleteReasonCancelled; otherwise OnUpdateOrder fires.
func (b *Book) Reduce(id uint64, delta uint64) error {
	loc, ok := b.index.get(id)
	if !ok {
		return common.New(common.OrderNotFound, "order not resting in book")
	}
	order := loc.elem.Value.(*common.Order)
	if delta > order.LeavesQuantity {
		delta = order.LeavesQuantity
	}
	level := loc.level

	level.removeVolume(order)
	order.LeavesQuantity -= delta
	order.Quantity -= delta
	level.addVolume(order)

	if order.LeavesQuantity == 0 {
		level.unlink(loc.elem)
		b.index.delete(id)
		b.Handler.OnDeleteOrder(order, handler.DeleteReasonCancelled)
	} else {
		b.Handler.OnUpdateOrder(order)
	}
	b.commitLevel(loc.kind, level)
	return nil
}

// Cancel removes id from whichever tree it rests in (spec §4.6 `cancel`),
// working across all six trees uniformly.
func (b *Book) Cancel(id uint64) error {
	loc, ok := b.index.get(id)
	if !ok {
		return common.New(common.OrderNotFound, "order not resting in book")
	}
	order := loc.elem.Value.(*common.Order)
	level := loc.level

	level.removeVolume(order)
	level.unlink(loc.elem)
	b.index.delete(id)
	order.LeavesQuantity = 0

	b.Handler.OnDeleteOrder(order, handler.DeleteReasonCancelled)
	b.commitLevel(loc.kind, level)
	return nil
}

// Delete is equivalent to reducing by the order's full remaining leaves
// (spec §4.2 `delete`): it withdraws the order from its level and fires
// OnDeleteOrder with the caller's reason. ReplaceOrder uses it with
// DeleteReasonReplaced. Unlike Cancel, it leaves order.LeavesQuantity as it
// was.
func (b *Book) Delete(order *common.Order, reason handler.DeleteReason) error {
	loc, ok := b.index.get(order.ID)
	if !ok {
		return common.New(common.OrderNotFound, "order not resting in book")
	}
	level := loc.level
	level.removeVolume(order)
	level.unlink(loc.elem)
	b.index.delete(order.ID)
	b.Handler.OnDeleteOrder(order, reason)
	b.commitLevel(loc.kind, level)
	return nil
}

// commitLevel finalizes a level mutation: if the level emptied out, it is
// removed from its tree, the cached best is resynced from the tree's
// extremum, and a Delete callback fires; otherwise an Update callback
// fires. Only bid/ask trees emit level callbacks (see AddStop doc).
func (b *Book) commitLevel(kind treeKind, level *PriceLevel) {
	isBookTree := kind == treeBids || kind == treeAsks

	if level.isEmpty() {
		tree := b.treeByKind(kind)
		tree.Remove(level.Price)
		b.recomputeBest(kind)
		if isBookTree {
			b.emitLevel(kind, levelUpdate(handler.LevelDeleted, level, b.SymbolID))
		}
		return
	}
	if isBookTree {
		b.emitLevel(kind, levelUpdate(handler.LevelUpdated, level, b.SymbolID))
	}
}

// RemoveStopLevel deletes a stop/trailing-stop order out of its tree without
// any execution semantics — used by the StopEngine when an order activates
// and is about to be re-dispatched as a market/limit order.
func (b *Book) RemoveStopLevel(order *common.Order) {
	loc, ok := b.index.get(order.ID)
	if !ok {
		return
	}
	level := loc.level
	level.removeVolume(order)
	level.unlink(loc.elem)
	b.index.delete(order.ID)
	b.commitLevel(loc.kind, level)
}

// MarketAskPrice is the StopEngine's buy-stop reference price (spec §4.4):
// the lesser of the best ask and the matching-pass low-water ask price.
func (b *Book) MarketAskPrice() (uint64, bool) {
	if b.BestAsk == nil {
		return 0, false
	}
	price := b.BestAsk.Price
	if b.MatchingAskPrice < price {
		price = b.MatchingAskPrice
	}
	return price, true
}

// MarketBidPrice is the StopEngine's sell-stop reference price: the greater
// of the best bid and the matching-pass high-water bid price.
func (b *Book) MarketBidPrice() (uint64, bool) {
	if b.BestBid == nil {
		return 0, false
	}
	price := b.BestBid.Price
	if b.MatchingBidPrice > price {
		price = b.MatchingBidPrice
	}
	return price, true
}

// TrailingAskReference is max(last_ask_price, best_ask.price) (spec §4.4).
func (b *Book) TrailingAskReference() (uint64, bool) {
	if b.BestAsk == nil {
		return 0, false
	}
	price := b.LastAskPrice
	if b.BestAsk.Price > price {
		price = b.BestAsk.Price
	}
	return price, true
}

// TrailingBidReference is min(last_bid_price, best_bid.price) (spec §4.4).
func (b *Book) TrailingBidReference() (uint64, bool) {
	if b.BestBid == nil {
		return 0, false
	}
	price := b.LastBidPrice
	if price == 0 || b.BestBid.Price < price {
		price = b.BestBid.Price
	}
	return price, true
}

// ResetMatchingPrices resets the matching high/low-water marks between
// matching passes (spec §3 Book invariants).
func (b *Book) ResetMatchingPrices() {
	b.MatchingBidPrice = 0
	b.MatchingAskPrice = maxU64
}

// IsCrossed reports whether the book is currently crossed (spec §3
// invariant 3 — once a Dispatcher call returns, true only while an AON
// order at the top of the book has no chain that fills it exactly).
func (b *Book) IsCrossed() bool {
	return b.BestBid != nil && b.BestAsk != nil && b.BestBid.Price >= b.BestAsk.Price
}

// recordTrade updates the scalar reference prices a trade at price touches
// (spec §4.3.1 step 4): last_*_price tracks whichever side actually rested
// (traded away), while matching_*_price is the high/low-water mark for the
// side the *incoming* order sits on, reset once per matching pass by
// ResetMatchingPrices.
func (b *Book) recordTrade(incomingSide, restingSide common.Side, price uint64) {
	if restingSide == common.Sell {
		b.LastAskPrice = price
	} else {
		b.LastBidPrice = price
	}
	if incomingSide == common.Buy {
		if price > b.MatchingBidPrice {
			b.MatchingBidPrice = price
		}
	} else {
		if price < b.MatchingAskPrice {
			b.MatchingAskPrice = price
		}
	}
}
