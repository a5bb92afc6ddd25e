// Package net is the bespoke TCP wire protocol the demo server/client speak
// (an external collaborator per spec §1 — it never reaches into the engine
// except through the handler.Handler interface it implements and the
// *engine.Engine it's handed).
package net

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"matchbook/internal/common"

	"github.com/google/uuid"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrMessageTooShort    = errors.New("message too short for its declared length")
)

// MessageType tags the first two bytes of every client->server frame.
type MessageType uint16

const (
	Heartbeat MessageType = iota
	NewOrder
	CancelOrder
	ReduceOrder
	ExecuteOrder
)

// ReportMessageType tags every server->client frame.
type ReportMessageType uint8

const (
	ExecutionReport ReportMessageType = iota
	ErrorReport
)

type Message interface {
	GetType() MessageType
}

const (
	baseMessageHeaderLen = 2

	// SymbolID(4) + OrderID(8) + Type(1) + Side(1) + TIF(1) + Price(8) +
	// StopPrice(8) + Quantity(8) + MaxVisibleQuantity(8) + Slippage(8) +
	// TrailingDistance(8) + TrailingStep(8) + UsernameLen(1)
	newOrderHeaderLen = 4 + 8 + 1 + 1 + 1 + 8 + 8 + 8 + 8 + 8 + 8 + 8 + 1
	// SymbolID(4) + OrderID(8)
	cancelOrderHeaderLen = 4 + 8
	// SymbolID(4) + OrderID(8) + Delta(8)
	reduceOrderHeaderLen = 4 + 8 + 8
	// SymbolID(4) + OrderID(8) + Price(8) + Quantity(8)
	executeOrderHeaderLen = 4 + 8 + 8 + 8
)

// BaseMessage carries the type tag every concrete message embeds.
type BaseMessage struct {
	TypeOf MessageType
}

func (m BaseMessage) GetType() MessageType { return m.TypeOf }

// parseMessage strips the 2-byte type header and dispatches to the
// type-specific parser.
func parseMessage(msg []byte) (Message, error) {
	if len(msg) < baseMessageHeaderLen {
		return nil, ErrMessageTooShort
	}
	typeOf := MessageType(binary.BigEndian.Uint16(msg[0:2]))
	body := msg[2:]

	switch typeOf {
	case NewOrder:
		return parseNewOrder(body)
	case CancelOrder:
		return parseCancelOrder(body)
	case ReduceOrder:
		return parseReduceOrder(body)
	case ExecuteOrder:
		return parseExecuteOrder(body)
	default:
		return nil, ErrInvalidMessageType
	}
}

// NewOrderMessage carries the full common.Order shape over the wire.
type NewOrderMessage struct {
	BaseMessage
	SymbolID           common.SymbolID
	OrderID            uint64
	Type               common.OrderType
	Side               common.Side
	TIF                common.TimeInForce
	Price              uint64
	StopPrice          uint64
	Quantity           uint64
	MaxVisibleQuantity uint64
	Slippage           uint64
	TrailingDistance   int64
	TrailingStep       int64
	UsernameLen        uint8
	Username           string
}

// Order builds the common.Order this wire message describes.
func (m *NewOrderMessage) Order() *common.Order {
	return &common.Order{
		ID:                 m.OrderID,
		SymbolID:           m.SymbolID,
		Side:               m.Side,
		Type:               m.Type,
		Price:              m.Price,
		StopPrice:          m.StopPrice,
		Quantity:           m.Quantity,
		LeavesQuantity:     m.Quantity,
		MaxVisibleQuantity: m.MaxVisibleQuantity,
		Slippage:           m.Slippage,
		TrailingDistance:   m.TrailingDistance,
		TrailingStep:       m.TrailingStep,
		TIF:                m.TIF,
		Owner:              m.Username,
		Timestamp:          time.Now(),
	}
}

func parseNewOrder(msg []byte) (NewOrderMessage, error) {
	if len(msg) < newOrderHeaderLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}
	m := NewOrderMessage{BaseMessage: BaseMessage{TypeOf: NewOrder}}

	m.SymbolID = common.SymbolID(binary.BigEndian.Uint32(msg[0:4]))
	m.OrderID = binary.BigEndian.Uint64(msg[4:12])
	m.Type = common.OrderType(msg[12])
	m.Side = common.Side(msg[13])
	m.TIF = common.TimeInForce(msg[14])
	m.Price = binary.BigEndian.Uint64(msg[15:23])
	m.StopPrice = binary.BigEndian.Uint64(msg[23:31])
	m.Quantity = binary.BigEndian.Uint64(msg[31:39])
	m.MaxVisibleQuantity = binary.BigEndian.Uint64(msg[39:47])
	m.Slippage = binary.BigEndian.Uint64(msg[47:55])
	m.TrailingDistance = int64(binary.BigEndian.Uint64(msg[55:63]))
	m.TrailingStep = int64(binary.BigEndian.Uint64(msg[63:71]))
	m.UsernameLen = msg[71]

	expectedTotalLen := newOrderHeaderLen + int(m.UsernameLen)
	if len(msg) < expectedTotalLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}
	m.Username = string(msg[newOrderHeaderLen:expectedTotalLen])

	return m, nil
}

// CancelOrderMessage asks the engine to pull a resting order off the book.
type CancelOrderMessage struct {
	BaseMessage
	SymbolID common.SymbolID
	OrderID  uint64
}

func parseCancelOrder(msg []byte) (CancelOrderMessage, error) {
	if len(msg) < cancelOrderHeaderLen {
		return CancelOrderMessage{}, ErrMessageTooShort
	}
	m := CancelOrderMessage{BaseMessage: BaseMessage{TypeOf: CancelOrder}}
	m.SymbolID = common.SymbolID(binary.BigEndian.Uint32(msg[0:4]))
	m.OrderID = binary.BigEndian.Uint64(msg[4:12])
	return m, nil
}

// ReduceOrderMessage shrinks a resting order's leaves quantity in place.
type ReduceOrderMessage struct {
	BaseMessage
	SymbolID common.SymbolID
	OrderID  uint64
	Delta    uint64
}

func parseReduceOrder(msg []byte) (ReduceOrderMessage, error) {
	if len(msg) < reduceOrderHeaderLen {
		return ReduceOrderMessage{}, ErrMessageTooShort
	}
	m := ReduceOrderMessage{BaseMessage: BaseMessage{TypeOf: ReduceOrder}}
	m.SymbolID = common.SymbolID(binary.BigEndian.Uint32(msg[0:4]))
	m.OrderID = binary.BigEndian.Uint64(msg[4:12])
	m.Delta = binary.BigEndian.Uint64(msg[12:20])
	return m, nil
}

// ExecuteOrderMessage reports an external fill against a resting order
// (spec §4.6 `execute`) — used by a venue/clearing feed telling the book
// about a trade that happened outside the Matcher.
type ExecuteOrderMessage struct {
	BaseMessage
	SymbolID common.SymbolID
	OrderID  uint64
	Price    uint64
	Quantity uint64
}

func parseExecuteOrder(msg []byte) (ExecuteOrderMessage, error) {
	if len(msg) < executeOrderHeaderLen {
		return ExecuteOrderMessage{}, ErrMessageTooShort
	}
	m := ExecuteOrderMessage{BaseMessage: BaseMessage{TypeOf: ExecuteOrder}}
	m.SymbolID = common.SymbolID(binary.BigEndian.Uint32(msg[0:4]))
	m.OrderID = binary.BigEndian.Uint64(msg[4:12])
	m.Price = binary.BigEndian.Uint64(msg[12:20])
	m.Quantity = binary.BigEndian.Uint64(msg[20:28])
	return m, nil
}

// Report is a single execution/error report sent back to a connected
// client. CorrelationID is a fresh random id minted for each report, so no
// two reports share one; OrderID is what names the order a report is about.
type Report struct {
	MessageType   ReportMessageType
	CorrelationID uuid.UUID
	SymbolID      common.SymbolID
	Side          common.Side
	OrderID       uint64
	Timestamp     uint64
	Quantity      uint64
	Price         uint64
	ErrStrLen     uint32
	Err           string
}

const reportFixedHeaderLen = 1 + 16 + 4 + 1 + 8 + 8 + 8 + 8 + 4

// Serialize converts the report to its wire form.
func (r *Report) Serialize() ([]byte, error) {
	buf := make([]byte, reportFixedHeaderLen+len(r.Err))

	buf[0] = byte(r.MessageType)
	copy(buf[1:17], r.CorrelationID[:])
	binary.BigEndian.PutUint32(buf[17:21], uint32(r.SymbolID))
	buf[21] = byte(r.Side)
	binary.BigEndian.PutUint64(buf[22:30], r.OrderID)
	binary.BigEndian.PutUint64(buf[30:38], r.Timestamp)
	binary.BigEndian.PutUint64(buf[38:46], r.Quantity)
	binary.BigEndian.PutUint64(buf[46:54], r.Price)
	binary.BigEndian.PutUint32(buf[54:58], r.ErrStrLen)
	if r.ErrStrLen > 0 {
		copy(buf[reportFixedHeaderLen:], r.Err)
	}
	return buf, nil
}

// newExecutionReport builds the report for one side of a trade (the
// Handler's OnExecuteOrder callback), tagged with a fresh correlation id.
func newExecutionReport(order *common.Order, price, quantity uint64) Report {
	return Report{
		MessageType:   ExecutionReport,
		CorrelationID: uuid.New(),
		SymbolID:      order.SymbolID,
		Side:          order.Side,
		OrderID:       order.ID,
		Timestamp:     uint64(time.Now().UnixNano()),
		Quantity:      quantity,
		Price:         price,
	}
}

func newErrorReport(orderID uint64, err error) Report {
	errStr := fmt.Sprintf("%v", err)
	return Report{
		MessageType:   ErrorReport,
		CorrelationID: uuid.New(),
		OrderID:       orderID,
		Timestamp:     uint64(time.Now().UnixNano()),
		ErrStrLen:     uint32(len(errStr)),
		Err:           errStr,
	}
}
