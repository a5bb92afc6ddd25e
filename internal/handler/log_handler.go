package handler

import (
	"github.com/rs/zerolog/log"

	"matchbook/internal/common"
)

// LogHandler logs every callback at debug level, in the teacher's
// zerolog call style (chained fields, Msg last).
type LogHandler struct{}

func (LogHandler) OnAddOrder(order *common.Order) {
	log.Debug().Uint64("id", order.ID).Str("side", order.Side.String()).
		Str("type", order.Type.String()).Uint64("qty", order.Quantity).
		Msg("order added")
}

func (LogHandler) OnUpdateOrder(order *common.Order) {
	log.Debug().Uint64("id", order.ID).Str("type", order.Type.String()).
		Uint64("price", order.Price).Uint64("leaves", order.LeavesQuantity).
		Msg("order updated")
}

func (LogHandler) OnDeleteOrder(order *common.Order, reason DeleteReason) {
	log.Debug().Uint64("id", order.ID).Str("reason", reason.String()).
		Msg("order deleted")
}

func (LogHandler) OnExecuteOrder(order *common.Order, price, quantity uint64) {
	log.Debug().Uint64("id", order.ID).Uint64("price", price).
		Uint64("qty", quantity).Msg("order executed")
}

func (LogHandler) OnAddLevel(update LevelUpdate) {
	log.Debug().Str("side", update.Side.String()).Uint64("price", update.Price).
		Uint64("volume", update.TotalVolume).Msg("level added")
}

func (LogHandler) OnUpdateLevel(update LevelUpdate) {
	log.Debug().Str("side", update.Side.String()).Uint64("price", update.Price).
		Uint64("volume", update.TotalVolume).Bool("top", update.IsTop).Msg("level updated")
}

func (LogHandler) OnDeleteLevel(update LevelUpdate) {
	log.Debug().Str("side", update.Side.String()).Uint64("price", update.Price).
		Msg("level deleted")
}

func (LogHandler) OnUpdateBook(symbolID common.SymbolID, isTop bool) {
	log.Debug().Uint32("symbol", uint32(symbolID)).Bool("top", isTop).Msg("book updated")
}

var _ Handler = LogHandler{}
