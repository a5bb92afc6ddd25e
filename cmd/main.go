package main

import (
	"context"
	"os/signal"
	"syscall"

	"matchbook/internal/common"
	"matchbook/internal/engine"
	"matchbook/internal/handler"
	"matchbook/internal/net"

	"github.com/rs/zerolog/log"
)

// defaultSymbols seeds the books the demo server accepts orders for. A real
// deployment would load this from the symbol registry spec §1 keeps outside
// the core; the demo hardcodes a handful of ids.
var defaultSymbols = []uint32{1, 2, 3}

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	srv := net.New("0.0.0.0", 9001)
	eng := engine.NewEngine(handler.MultiHandler{
		handler.LogHandler{},
		srv,
	})
	srv.SetEngine(eng)

	for _, id := range defaultSymbols {
		if err := eng.CreateBook(common.SymbolID(id)); err != nil {
			log.Fatal().Err(err).Uint32("symbolID", id).Msg("unable to create book")
		}
	}

	go srv.Run(ctx)
	<-ctx.Done()
}
