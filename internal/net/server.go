package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"matchbook/internal/common"
	"matchbook/internal/engine"
	"matchbook/internal/handler"
	"matchbook/internal/utils"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const (
	maxRecvSize        = 4 * 1024
	defaultNWorkers    = 10
	defaultConnTimeout = time.Second
)

var (
	ErrImproperConversion = errors.New("improper type conversion")
	ErrClientDoesNotExist = errors.New("client does not exist")
)

// clientSession tracks one connected TCP client, addressable by both its
// connection address (for teardown) and the owner name carried on every
// order it submits (for routing reports).
type clientSession struct {
	conn  net.Conn
	owner string
}

// clientMessage links a decoded message to the connection it arrived on.
type clientMessage struct {
	address string
	message Message
}

// Server is the demo TCP front end: it decodes NewOrder/CancelOrder/
// ReduceOrder frames off the wire, drives them through an *engine.Engine,
// and feeds the engine's Handler callbacks back out as Report frames. It
// implements handler.Handler itself so it can be handed straight to
// engine.NewEngine.
type Server struct {
	address string
	port    int
	engine  *engine.Engine
	pool    utils.WorkerPool
	cancel  context.CancelFunc

	sessionsByAddr  map[string]*clientSession
	sessionsByOwner map[string]*clientSession
	sessionsLock    sync.Mutex

	messages chan clientMessage
}

// New constructs a Server. Callers typically do:
//
//	srv := net.New(addr, port)
//	eng := engine.NewEngine(srv)
//	srv.SetEngine(eng)
func New(address string, port int) *Server {
	return &Server{
		address:         address,
		port:            port,
		pool:            utils.NewWorkerPool(defaultNWorkers),
		sessionsByAddr:  make(map[string]*clientSession),
		sessionsByOwner: make(map[string]*clientSession),
		messages:        make(chan clientMessage, 1),
	}
}

// SetEngine wires the matching engine this server dispatches to. It must be
// called before Run.
func (s *Server) SetEngine(e *engine.Engine) {
	s.engine = e
}

func (s *Server) Shutdown() {
	log.Info().Msg("server shutting down")
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Server) Run(ctx context.Context) {
	defer s.Shutdown()

	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		log.Error().Err(err).Msg("unable to start listener")
		return
	}
	defer func() {
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("unable to close listener")
		}
	}()

	t.Go(func() error {
		s.pool.Setup(t, s.handleConnection)
		return nil
	})

	t.Go(func() error {
		return s.sessionHandler(t)
	})

	log.Info().Str("address", s.address).Int("port", s.port).Msg("server running")

	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := listener.Accept()
			if err != nil {
				log.Error().Err(err).Msg("error accepting client")
				continue
			}
			log.Info().Str("address", conn.RemoteAddr().String()).Msg("new client connected")
			s.addSessionByAddr(conn)
			s.pool.AddTask(conn)
		}
	}
}

// sessionHandler drains decoded messages off the shared channel and hands
// each to the engine, logging and reporting back any error.
func (s *Server) sessionHandler(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case msg := <-s.messages:
			if err := s.handleMessage(msg); err != nil {
				log.Error().Err(err).Str("address", msg.address).Msg("error handling message")
			}
		}
	}
}

func (s *Server) handleMessage(msg clientMessage) error {
	switch m := msg.message.(type) {
	case NewOrderMessage:
		s.bindOwner(msg.address, m.Username)
		order := m.Order()
		if err := s.engine.AddOrder(order); err != nil {
			s.reportError(order.Owner, order.ID, err)
			return err
		}
	case CancelOrderMessage:
		if err := s.engine.CancelOrder(m.SymbolID, m.OrderID); err != nil {
			s.reportErrorByAddr(msg.address, m.OrderID, err)
			return err
		}
	case ReduceOrderMessage:
		if err := s.engine.ReduceOrder(m.SymbolID, m.OrderID, m.Delta); err != nil {
			s.reportErrorByAddr(msg.address, m.OrderID, err)
			return err
		}
	case ExecuteOrderMessage:
		if err := s.engine.ExecuteOrder(m.SymbolID, m.OrderID, m.Price, m.Quantity); err != nil {
			s.reportErrorByAddr(msg.address, m.OrderID, err)
			return err
		}
	default:
		return ErrInvalidMessageType
	}
	return nil
}

// handleConnection reads the next frame off conn, decodes it, and forwards
// it to sessionHandler. Any error here is fatal to the connection, not the
// pool — the worker simply returns nil and the connection is torn down.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return ErrImproperConversion
	}
	closeConn := func() {
		if err := conn.Close(); err != nil {
			log.Error().Str("address", conn.RemoteAddr().String()).Err(err).Msg("error closing connection")
		}
	}

	if err := conn.SetDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
		log.Error().Err(err).Msg("failed setting connection deadline")
		closeConn()
		return nil
	}

	buffer := make([]byte, maxRecvSize)
	select {
	case <-t.Dying():
		closeConn()
		return nil
	default:
		n, err := conn.Read(buffer)
		if err != nil {
			s.removeSession(conn.RemoteAddr().String())
			closeConn()
			return nil
		}

		message, err := parseMessage(buffer[:n])
		if err != nil {
			log.Error().Err(err).Str("address", conn.RemoteAddr().String()).Msg("error parsing message")
			closeConn()
			return nil
		}

		s.messages <- clientMessage{address: conn.RemoteAddr().String(), message: message}
		s.pool.AddTask(conn)
	}
	return nil
}

func (s *Server) addSessionByAddr(conn net.Conn) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	s.sessionsByAddr[conn.RemoteAddr().String()] = &clientSession{conn: conn}
}

func (s *Server) bindOwner(address, owner string) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	session, ok := s.sessionsByAddr[address]
	if !ok {
		return
	}
	session.owner = owner
	s.sessionsByOwner[owner] = session
}

func (s *Server) removeSession(address string) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	if session, ok := s.sessionsByAddr[address]; ok {
		delete(s.sessionsByOwner, session.owner)
	}
	delete(s.sessionsByAddr, address)
}

func (s *Server) writeReport(owner string, report Report) error {
	s.sessionsLock.Lock()
	session, ok := s.sessionsByOwner[owner]
	s.sessionsLock.Unlock()
	if !ok {
		return ErrClientDoesNotExist
	}

	payload, err := report.Serialize()
	if err != nil {
		return err
	}
	if _, err := session.conn.Write(payload); err != nil {
		s.removeSession(session.conn.RemoteAddr().String())
		return fmt.Errorf("unable to send report: %w", err)
	}
	return nil
}

func (s *Server) reportError(owner string, orderID uint64, err error) {
	if owner == "" {
		return
	}
	if werr := s.writeReport(owner, newErrorReport(orderID, err)); werr != nil {
		log.Error().Err(werr).Str("owner", owner).Msg("unable to deliver error report")
	}
}

func (s *Server) reportErrorByAddr(address string, orderID uint64, err error) {
	s.sessionsLock.Lock()
	session, ok := s.sessionsByAddr[address]
	s.sessionsLock.Unlock()
	if !ok {
		return
	}
	s.reportError(session.owner, orderID, err)
}

// --- handler.Handler ---
//
// Server implements handler.Handler directly: each execution becomes an
// execution Report routed to the order's owner, and each unmatched
// deletion becomes an error Report. The other order callbacks and the
// level/book-wide callbacks are no-ops here; the LogHandler wired beside
// the Server in a MultiHandler is what logs them.

var _ handler.Handler = (*Server)(nil)

func (s *Server) OnAddOrder(order *common.Order) {}

func (s *Server) OnUpdateOrder(order *common.Order) {}

func (s *Server) OnDeleteOrder(order *common.Order, reason handler.DeleteReason) {
	if reason == handler.DeleteReasonUnmatched {
		s.reportError(order.Owner, order.ID, fmt.Errorf("order unmatched and removed: %s", reason))
	}
}

func (s *Server) OnExecuteOrder(order *common.Order, price, quantity uint64) {
	if err := s.writeReport(order.Owner, newExecutionReport(order, price, quantity)); err != nil {
		log.Error().Err(err).Str("owner", order.Owner).Msg("unable to deliver execution report")
	}
}

func (s *Server) OnAddLevel(update handler.LevelUpdate) {}

func (s *Server) OnUpdateLevel(update handler.LevelUpdate) {}

func (s *Server) OnDeleteLevel(update handler.LevelUpdate) {}

func (s *Server) OnUpdateBook(symbolID common.SymbolID, isTop bool) {}
