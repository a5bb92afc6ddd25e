// Command server runs the demo TCP matching server with configurable
// listen address and symbol set, for manual testing against cmd/client.
package main

import (
	"context"
	"flag"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"matchbook/internal/common"
	"matchbook/internal/engine"
	"matchbook/internal/handler"
	"matchbook/internal/net"

	"github.com/rs/zerolog/log"
)

func main() {
	address := flag.String("address", "0.0.0.0", "listen address")
	port := flag.Int("port", 9001, "listen port")
	symbols := flag.String("symbols", "1,2,3", "comma-separated symbol ids to create books for")
	flag.Parse()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	srv := net.New(*address, *port)
	eng := engine.NewEngine(handler.MultiHandler{
		handler.LogHandler{},
		srv,
	})
	srv.SetEngine(eng)

	for _, id := range parseSymbolIDs(*symbols) {
		if err := eng.CreateBook(id); err != nil {
			log.Fatal().Err(err).Uint32("symbolID", uint32(id)).Msg("unable to create book")
		}
	}

	go srv.Run(ctx)
	<-ctx.Done()
}

func parseSymbolIDs(csv string) []common.SymbolID {
	var ids []common.SymbolID
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			log.Warn().Str("value", part).Msg("skipping invalid symbol id")
			continue
		}
		ids = append(ids, common.SymbolID(n))
	}
	return ids
}
