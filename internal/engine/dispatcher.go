// Package engine is the in-process matching core: PriceTree/PriceLevel
// storage, the Book, the crossing Matcher, the stop/trailing-stop
// activation StopEngine, and Engine, the Dispatcher spec §5/§6 describes as
// the single entry point external callers use.
package engine

import (
	"matchbook/internal/common"
	"matchbook/internal/handler"
)

// Engine owns every symbol's Book and routes incoming requests to it. It
// holds no locks: each Book is processed to a complete fixpoint (matching,
// AON cross-level discovery, stop activation, trailing repricing) before
// any order call returns, so a caller never observes a half-settled book
// (spec §3 invariant 3, §5). The book is left crossed only when an AON
// order at the top of the book has no chain that fills it exactly.
type Engine struct {
	Handler handler.Handler
	books   map[common.SymbolID]*Book
}

// NewEngine constructs an Engine with no symbols registered yet.
func NewEngine(h handler.Handler) *Engine {
	return &Engine{Handler: h, books: make(map[common.SymbolID]*Book)}
}

// CreateBook registers a new, empty book for symbolID.
func (e *Engine) CreateBook(symbolID common.SymbolID) error {
	if _, ok := e.books[symbolID]; ok {
		return common.New(common.OrderBookDuplicate, "book already exists for symbol")
	}
	e.books[symbolID] = NewBook(symbolID, e.Handler)
	return nil
}

func (e *Engine) book(symbolID common.SymbolID) (*Book, error) {
	b, ok := e.books[symbolID]
	if !ok {
		return nil, common.New(common.SymbolNotFound, "no book registered for symbol")
	}
	return b, nil
}

// AddOrder validates and admits a new order (spec §4.6 `add`): market and
// limit orders go straight to the Matcher; stop and trailing-stop orders
// are parked in their stop tree until activated. Every call runs the book
// to a full fixpoint before returning.
func (e *Engine) AddOrder(order *common.Order) error {
	if err := common.Validate(order); err != nil {
		return err
	}
	book, err := e.book(order.SymbolID)
	if err != nil {
		return err
	}
	if book.Has(order.ID) {
		return common.New(common.OrderIdInvalid, "order id already resting")
	}

	book.Handler.OnAddOrder(order)

	switch {
	case order.Type.IsTrailing():
		reference, ok := trailingBootstrapReference(book, order.Side)
		if !ok {
			reference = order.StopPrice
		}
		book.AddTrailingStop(order, reference)
	case order.Type.IsStop():
		book.AddStop(order)
	default:
		matchIncoming(book, order)
	}

	e.runToFixpoint(book)
	return nil
}

// CancelOrder removes a resting order outright (spec §4.6 `cancel`).
func (e *Engine) CancelOrder(symbolID common.SymbolID, orderID uint64) error {
	book, err := e.book(symbolID)
	if err != nil {
		return err
	}
	if err := book.Cancel(orderID); err != nil {
		return err
	}
	e.runToFixpoint(book)
	return nil
}

// ReduceOrder shrinks a resting order's leaves by delta without marking it
// executed (spec §4.6 `reduce`).
func (e *Engine) ReduceOrder(symbolID common.SymbolID, orderID uint64, delta uint64) error {
	book, err := e.book(symbolID)
	if err != nil {
		return err
	}
	if err := book.Reduce(orderID, delta); err != nil {
		return err
	}
	e.runToFixpoint(book)
	return nil
}

// ExecuteOrder marks a resting order executed against an external fill
// (spec §4.6 `execute`): quantity beyond the order's leaves is clamped, the
// order is reduced by qty, and OnExecuteOrder fires at price. Unlike
// AddOrder this never runs the Matcher against the counterparty side — the
// trade already happened outside the book — but the fixpoint loop still
// runs afterward, since freeing up qty can itself trigger a stop or a
// trailing reprice.
func (e *Engine) ExecuteOrder(symbolID common.SymbolID, orderID uint64, price, qty uint64) error {
	book, err := e.book(symbolID)
	if err != nil {
		return err
	}
	order, ok := book.Lookup(orderID)
	if !ok {
		return common.New(common.OrderNotFound, "order not resting in book")
	}
	if qty > order.LeavesQuantity {
		qty = order.LeavesQuantity
	}

	book.Fill(order, qty, price)
	e.runToFixpoint(book)
	return nil
}

// ModifyOrder changes a resting order's price and/or quantity (spec §4.6
// `modify`). With mitigate=true, a same-price, quantity-only decrease keeps
// the order's FIFO position (it is just a Reduce); anything else — a price
// change, or a quantity increase — cancels and re-admits the order at the
// back of its (possibly new) level, forfeiting time priority and running
// back through the Matcher in case the new terms now cross.
func (e *Engine) ModifyOrder(symbolID common.SymbolID, orderID uint64, newPrice, newQuantity uint64, mitigate bool) error {
	book, err := e.book(symbolID)
	if err != nil {
		return err
	}
	order, ok := book.Lookup(orderID)
	if !ok {
		return common.New(common.OrderNotFound, "order not resting in book")
	}
	if order.Type.IsStop() {
		return common.New(common.OrderTypeInvalid, "stop orders cannot be modified in place")
	}

	if mitigate && newPrice == order.Price && newQuantity <= order.LeavesQuantity {
		delta := order.LeavesQuantity - newQuantity
		if delta == 0 {
			return nil
		}
		return book.Reduce(orderID, delta)
	}

	if err := book.Cancel(orderID); err != nil {
		return err
	}

	replacement := *order
	replacement.Price = newPrice
	replacement.LeavesQuantity = newQuantity
	replacement.Quantity = replacement.ExecutedQuantity + newQuantity
	if err := common.Validate(&replacement); err != nil {
		return err
	}

	book.Handler.OnAddOrder(&replacement)
	matchIncoming(book, &replacement)
	e.runToFixpoint(book)
	return nil
}

// ReplaceOrder atomically cancels oldID and admits newOrder (spec §4.6
// `replace`), always forfeiting time priority, even if newOrder reuses the
// same price.
func (e *Engine) ReplaceOrder(symbolID common.SymbolID, oldID uint64, newOrder *common.Order) error {
	book, err := e.book(symbolID)
	if err != nil {
		return err
	}
	old, ok := book.Lookup(oldID)
	if !ok {
		return common.New(common.OrderNotFound, "order not resting in book")
	}
	if err := common.Validate(newOrder); err != nil {
		return err
	}
	target, err := e.book(newOrder.SymbolID)
	if err != nil {
		return err
	}
	if target.Has(newOrder.ID) && !(target == book && newOrder.ID == oldID) {
		return common.New(common.OrderIdInvalid, "order id already resting")
	}
	if err := book.Delete(old, handler.DeleteReasonReplaced); err != nil {
		return err
	}
	return e.AddOrder(newOrder)
}

func trailingBootstrapReference(book *Book, side common.Side) (uint64, bool) {
	if side == common.Buy {
		return book.TrailingAskReference()
	}
	return book.TrailingBidReference()
}

// runToFixpoint alternates AON cross-level discovery, trailing repricing,
// and stop activation until a full pass changes nothing (spec §4.3.4):
// activating a stop can expose a new cross, and a cross can move the market
// reference enough to activate another stop or reprice a trailing order.
// Every step strictly shrinks some resting quantity or trailing slack, so
// the loop is guaranteed to terminate.
func (e *Engine) runToFixpoint(book *Book) {
	for {
		progressed := false
		for matchCrossLevelAON(book) {
			progressed = true
		}
		rescanTrailing(book)
		if activateStops(book) {
			progressed = true
		}
		if !progressed {
			break
		}
	}
	book.ResetMatchingPrices()
	book.Handler.OnUpdateBook(book.SymbolID, true)
}
