package handler

import "matchbook/internal/common"

// MultiHandler fans every callback out to a fixed list of handlers, in
// registration order. Used to attach, e.g., a LogHandler alongside the
// wire-reporting handler in internal/net without either knowing about the
// other.
type MultiHandler []Handler

func (m MultiHandler) OnAddOrder(order *common.Order) {
	for _, h := range m {
		h.OnAddOrder(order)
	}
}

func (m MultiHandler) OnUpdateOrder(order *common.Order) {
	for _, h := range m {
		h.OnUpdateOrder(order)
	}
}

func (m MultiHandler) OnDeleteOrder(order *common.Order, reason DeleteReason) {
	for _, h := range m {
		h.OnDeleteOrder(order, reason)
	}
}

func (m MultiHandler) OnExecuteOrder(order *common.Order, price, quantity uint64) {
	for _, h := range m {
		h.OnExecuteOrder(order, price, quantity)
	}
}

func (m MultiHandler) OnAddLevel(update LevelUpdate) {
	for _, h := range m {
		h.OnAddLevel(update)
	}
}

func (m MultiHandler) OnUpdateLevel(update LevelUpdate) {
	for _, h := range m {
		h.OnUpdateLevel(update)
	}
}

func (m MultiHandler) OnDeleteLevel(update LevelUpdate) {
	for _, h := range m {
		h.OnDeleteLevel(update)
	}
}

func (m MultiHandler) OnUpdateBook(symbolID common.SymbolID, isTop bool) {
	for _, h := range m {
		h.OnUpdateBook(symbolID, isTop)
	}
}

var _ Handler = MultiHandler(nil)
