// Package common holds the data model shared by the matching core and its
// external collaborators: order values, sides, order types, time-in-force,
// and the error taxonomy. Nothing here depends on the engine, the transport,
// or any feed decoder.
package common

import (
	"fmt"
	"time"
)

// SymbolID identifies a tradable instrument. The registry that maps tickers
// to SymbolIDs lives outside the core (spec §1) — the core only ever sees
// the numeric id.
type SymbolID uint32

// Side is which side of the book an order (or a resting level) belongs to.
type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "sell"
	}
	return "buy"
}

// OrderType enumerates the six order shapes the core understands.
type OrderType uint8

const (
	Market OrderType = iota
	Limit
	Stop
	StopLimit
	TrailingStop
	TrailingStopLimit
)

func (t OrderType) String() string {
	switch t {
	case Market:
		return "market"
	case Limit:
		return "limit"
	case Stop:
		return "stop"
	case StopLimit:
		return "stop-limit"
	case TrailingStop:
		return "trailing-stop"
	case TrailingStopLimit:
		return "trailing-stop-limit"
	default:
		return "unknown"
	}
}

// IsStop reports whether the order type rests in a stop tree rather than
// the regular bid/ask tree.
func (t OrderType) IsStop() bool {
	switch t {
	case Stop, StopLimit, TrailingStop, TrailingStopLimit:
		return true
	default:
		return false
	}
}

// IsTrailing reports whether the order type tracks the market via
// trailing_distance/trailing_step rather than a fixed stop price.
func (t OrderType) IsTrailing() bool {
	return t == TrailingStop || t == TrailingStopLimit
}

// HasLimitPrice reports whether, once activated, the order rests with a
// limit price rather than sweeping as a market order.
func (t OrderType) HasLimitPrice() bool {
	switch t {
	case Limit, StopLimit, TrailingStopLimit:
		return true
	default:
		return false
	}
}

// TimeInForce is the canonical set recommended by spec §9's open question:
// the source's ambiguous IOD is dropped.
type TimeInForce uint8

const (
	GTC TimeInForce = iota
	IOC
	FOK
	AON
)

func (tif TimeInForce) String() string {
	switch tif {
	case GTC:
		return "GTC"
	case IOC:
		return "IOC"
	case FOK:
		return "FOK"
	case AON:
		return "AON"
	default:
		return "unknown"
	}
}

// IsAllOrNone reports whether the order's TIF forbids partial execution
// against any single resting order (spec §4.3.2): both AON and FOK share
// this constraint, FOK additionally requires immediate resolution.
func (tif TimeInForce) IsAllOrNone() bool {
	return tif == AON || tif == FOK
}

// NoMaxVisible marks an order as carrying no iceberg limit: the entire
// leaves quantity is visible.
const NoMaxVisible = ^uint64(0)

// Order is the value type flowing through the core. Prices, stop prices,
// and quantities are integer ticks/lots (spec §6.4) — there is no floating
// point anywhere in the matching path.
type Order struct {
	ID        uint64
	SymbolID  SymbolID
	Side      Side
	Type      OrderType
	Price     uint64
	StopPrice uint64

	Quantity         uint64
	ExecutedQuantity uint64
	LeavesQuantity   uint64

	MaxVisibleQuantity uint64

	Slippage uint64

	// TrailingDistance/TrailingStep: negative values are a signed basis-point
	// encoding, resolved against the current market price at use (spec §4.5).
	TrailingDistance int64
	TrailingStep     int64

	TIF TimeInForce

	Owner     string
	Timestamp time.Time
}

// Visible returns the portion of the order's remaining quantity that is
// published in level volume.
func (o *Order) Visible() uint64 {
	if o.MaxVisibleQuantity == NoMaxVisible || o.MaxVisibleQuantity >= o.LeavesQuantity {
		return o.LeavesQuantity
	}
	return o.MaxVisibleQuantity
}

// Hidden returns the portion of the order's remaining quantity withheld
// from published level volume.
func (o *Order) Hidden() uint64 {
	return o.LeavesQuantity - o.Visible()
}

// IsIceberg reports whether the order publishes less than its full leaves.
func (o *Order) IsIceberg() bool {
	return o.MaxVisibleQuantity != NoMaxVisible && o.MaxVisibleQuantity < o.Quantity
}

// Fill reduces the order by qty, moving it from leaves to executed. The
// caller is responsible for emitting the corresponding Handler callback.
func (o *Order) Fill(qty uint64) {
	o.ExecutedQuantity += qty
	o.LeavesQuantity -= qty
}

func (o Order) String() string {
	return fmt.Sprintf(
		"Order{id=%d symbol=%d side=%s type=%s price=%d stop=%d qty=%d leaves=%d tif=%s owner=%s}",
		o.ID, o.SymbolID, o.Side, o.Type, o.Price, o.StopPrice, o.Quantity, o.LeavesQuantity, o.TIF, o.Owner,
	)
}

// Validate enforces the invariants spec §3/§7 require at acceptance time.
// It never mutates the order.
func Validate(o *Order) error {
	if o.ID == 0 {
		return New(OrderIdInvalid, "order id must be nonzero")
	}
	if o.Quantity == 0 {
		return New(OrderQuantityInvalid, "quantity must be nonzero")
	}
	if o.ExecutedQuantity+o.LeavesQuantity != o.Quantity {
		return New(OrderQuantityInvalid, "executed + leaves must equal quantity")
	}
	if o.LeavesQuantity > o.Quantity {
		return New(OrderQuantityInvalid, "leaves exceeds quantity")
	}

	switch o.Type {
	case Market:
		if o.TIF != IOC && o.TIF != FOK {
			return New(OrderParameterInvalid, "market orders must carry IOC or FOK")
		}
		if o.IsIceberg() {
			return New(OrderParameterInvalid, "market orders cannot be icebergs")
		}
	case Limit, StopLimit, TrailingStopLimit:
		if o.Slippage != 0 {
			return New(OrderParameterInvalid, "limit orders must not carry slippage")
		}
	}

	if o.Type.IsTrailing() {
		sameSign := (o.TrailingDistance < 0) == (o.TrailingStep < 0)
		if o.TrailingStep != 0 && o.TrailingDistance != 0 && !sameSign {
			return New(OrderParameterInvalid, "trailing_step must share the sign of trailing_distance")
		}
	}

	return nil
}
