// Command client is a manual test harness: it connects to the demo server,
// sends one or more NewOrder/CancelOrder/ReduceOrder frames from CLI flags,
// and prints every Report it receives back.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	matchbookNet "matchbook/internal/net"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9001", "address of the matching server")
	owner := flag.String("owner", "", "owner username (required)")
	action := flag.String("action", "place", "action to perform: ['place', 'cancel', 'reduce']")

	symbol := flag.Uint64("symbol", 1, "symbol id")
	orderID := flag.Uint64("id", 0, "order id (required, must be unique per session)")
	sideStr := flag.String("side", "buy", "order side: 'buy' or 'sell'")
	typeStr := flag.String("type", "limit", "order type: limit|market|stop|stop-limit|trailing-stop|trailing-stop-limit")
	tifStr := flag.String("tif", "gtc", "time in force: gtc|ioc|fok|aon")
	price := flag.Uint64("price", 100, "limit price, in ticks")
	stopPrice := flag.Uint64("stop", 0, "stop price, in ticks")
	qtyStr := flag.String("qty", "10", "quantity, or comma-separated list (e.g. 10,20,50)")
	maxVisible := flag.Uint64("max-visible", 0, "iceberg max visible quantity; 0 means fully visible")
	slippage := flag.Uint64("slippage", 0, "market order slippage bound, in ticks")

	delta := flag.Uint64("delta", 0, "quantity to reduce by (action=reduce)")

	flag.Parse()

	if *owner == "" {
		fmt.Println("Error: -owner is required.")
		flag.Usage()
		os.Exit(1)
	}

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("connected to %s as %q\n", *serverAddr, *owner)

	go readReports(conn)

	side := parseSide(*sideStr)
	orderType := parseOrderType(*typeStr)
	tif := parseTIF(*tifStr)
	maxVisibleQuantity := maxVisibleOrNone(*maxVisible)

	switch strings.ToLower(*action) {
	case "place":
		for i, qty := range parseQuantities(*qtyStr) {
			id := *orderID + uint64(i)
			err := sendPlaceOrder(conn, *owner, uint32(*symbol), id, orderType, side, tif, *price, *stopPrice, qty, maxVisibleQuantity, *slippage)
			if err != nil {
				log.Printf("failed to place order (id %d): %v", id, err)
			} else {
				fmt.Printf("-> sent %s %s order id=%d qty=%d price=%d\n", strings.ToUpper(*sideStr), *typeStr, id, qty, *price)
			}
			time.Sleep(5 * time.Millisecond)
		}

	case "cancel":
		if err := sendCancelOrder(conn, uint32(*symbol), *orderID); err != nil {
			log.Printf("failed to send cancel: %v", err)
		} else {
			fmt.Printf("-> sent cancel for order id=%d\n", *orderID)
		}

	case "reduce":
		if err := sendReduceOrder(conn, uint32(*symbol), *orderID, *delta); err != nil {
			log.Printf("failed to send reduce: %v", err)
		} else {
			fmt.Printf("-> sent reduce for order id=%d by %d\n", *orderID, *delta)
		}

	default:
		log.Fatalf("unknown action: %s", *action)
	}

	fmt.Println("\nlistening for reports... (ctrl+c to exit)")
	select {}
}

func parseQuantities(input string) []uint64 {
	var result []uint64
	for _, p := range strings.Split(input, ",") {
		p = strings.TrimSpace(p)
		if val, err := strconv.ParseUint(p, 10, 64); err == nil {
			result = append(result, val)
		} else {
			log.Printf("warning: invalid quantity %q, skipping", p)
		}
	}
	return result
}

func parseSide(s string) byte {
	if strings.EqualFold(s, "sell") {
		return 1
	}
	return 0
}

func parseTIF(s string) byte {
	switch strings.ToLower(s) {
	case "ioc":
		return 1
	case "fok":
		return 2
	case "aon":
		return 3
	default:
		return 0
	}
}

func parseOrderType(s string) byte {
	switch strings.ToLower(s) {
	case "market":
		return 0
	case "limit":
		return 1
	case "stop":
		return 2
	case "stop-limit":
		return 3
	case "trailing-stop":
		return 4
	case "trailing-stop-limit":
		return 5
	default:
		return 1
	}
}

func maxVisibleOrNone(v uint64) uint64 {
	if v == 0 {
		return ^uint64(0)
	}
	return v
}

func sendPlaceOrder(conn net.Conn, owner string, symbol uint32, orderID uint64, orderType, side, tif byte, price, stopPrice, qty, maxVisible, slippage uint64) error {
	usernameLen := len(owner)
	body := make([]byte, 72+usernameLen)

	binary.BigEndian.PutUint32(body[0:4], symbol)
	binary.BigEndian.PutUint64(body[4:12], orderID)
	body[12] = orderType
	body[13] = side
	body[14] = tif
	binary.BigEndian.PutUint64(body[15:23], price)
	binary.BigEndian.PutUint64(body[23:31], stopPrice)
	binary.BigEndian.PutUint64(body[31:39], qty)
	binary.BigEndian.PutUint64(body[39:47], maxVisible)
	binary.BigEndian.PutUint64(body[47:55], slippage)
	binary.BigEndian.PutUint64(body[55:63], 0) // trailing distance
	binary.BigEndian.PutUint64(body[63:71], 0) // trailing step
	body[71] = byte(usernameLen)
	copy(body[72:], owner)

	return sendFrame(conn, uint16(matchbookNet.NewOrder), body)
}

func sendCancelOrder(conn net.Conn, symbol uint32, orderID uint64) error {
	body := make([]byte, 12)
	binary.BigEndian.PutUint32(body[0:4], symbol)
	binary.BigEndian.PutUint64(body[4:12], orderID)
	return sendFrame(conn, uint16(matchbookNet.CancelOrder), body)
}

func sendReduceOrder(conn net.Conn, symbol uint32, orderID, delta uint64) error {
	body := make([]byte, 20)
	binary.BigEndian.PutUint32(body[0:4], symbol)
	binary.BigEndian.PutUint64(body[4:12], orderID)
	binary.BigEndian.PutUint64(body[12:20], delta)
	return sendFrame(conn, uint16(matchbookNet.ReduceOrder), body)
}

func sendFrame(conn net.Conn, msgType uint16, body []byte) error {
	buf := make([]byte, 2+len(body))
	binary.BigEndian.PutUint16(buf[0:2], msgType)
	copy(buf[2:], body)
	_, err := conn.Write(buf)
	return err
}

// readReports parses and prints every Report frame the server sends back.
func readReports(conn net.Conn) {
	header := make([]byte, 58)
	for {
		if _, err := io.ReadFull(conn, header); err != nil {
			if err != io.EOF {
				log.Printf("connection lost: %v", err)
			}
			os.Exit(0)
		}

		msgType := matchbookNet.ReportMessageType(header[0])
		orderID := binary.BigEndian.Uint64(header[22:30])
		qty := binary.BigEndian.Uint64(header[38:46])
		price := binary.BigEndian.Uint64(header[46:54])
		errStrLen := binary.BigEndian.Uint32(header[54:58])

		errStr := ""
		if errStrLen > 0 {
			buf := make([]byte, errStrLen)
			if _, err := io.ReadFull(conn, buf); err != nil {
				log.Printf("error reading report body: %v", err)
				return
			}
			errStr = string(buf)
		}

		if msgType == matchbookNet.ErrorReport {
			fmt.Printf("\n[ERROR] order=%d %s\n", orderID, errStr)
		} else {
			fmt.Printf("\n[EXECUTION] order=%d qty=%d price=%d\n", orderID, qty, price)
		}
	}
}
