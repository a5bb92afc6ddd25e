package engine

import "matchbook/internal/common"

// resolveDistance turns a signed trailing_distance/trailing_step into an
// absolute tick amount against marketPrice. A negative value is a
// basis-point encoding (spec §4.5): distance := |distance| * market / 10000.
func resolveDistance(signed int64, marketPrice uint64) uint64 {
	if signed >= 0 {
		return uint64(signed)
	}
	magnitude := uint64(-signed)
	return magnitude * marketPrice / 10000
}

// CalculateTrailingStopPrice implements spec §4.5. oldStop of 0 means the
// order has no prior trailing price (initial placement) and the computed
// price is accepted unconditionally; otherwise a new price is only adopted
// if it is strictly better for the side and has moved at least `step` ticks
// since the last reprice — a trailing stop never retreats (spec §4.5, and
// original_source/src/levels/trailing_level_operations.rs).
func CalculateTrailingStopPrice(side common.Side, marketPrice uint64, oldStop uint64, distance, step int64) uint64 {
	d := resolveDistance(distance, marketPrice)
	s := resolveDistance(step, marketPrice)

	if side == common.Buy {
		newStop := marketPrice + d
		if oldStop == 0 {
			return newStop
		}
		if newStop < oldStop && oldStop-newStop >= s {
			return newStop
		}
		return oldStop
	}

	// Sell side.
	var newStop uint64
	if d >= marketPrice {
		newStop = 0
	} else {
		newStop = marketPrice - d
	}
	if oldStop == 0 {
		return newStop
	}
	if newStop > oldStop && newStop-oldStop >= s {
		return newStop
	}
	return oldStop
}
