package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/alljoyn/services-onboarding/pkg/log"
)

// ServerConfig configures a Server.
type ServerConfig struct {
	// Address to listen on (e.g., ":9955" or "127.0.0.1:0").
	Address string

	// MaxMessageSize is the maximum message size (default: 64KB).
	MaxMessageSize uint32

	// Trace receives frame and connection events (optional).
	Trace log.Logger

	// OnMessage is called for every received frame, on the connection's
	// read goroutine.
	OnMessage func(conn *ServerConn, msg []byte)

	// OnError is called for read errors other than a clean close.
	OnError func(conn *ServerConn, err error)
}

// Server accepts configuration sessions on the device side.
type Server struct {
	config   ServerConfig
	listener net.Listener

	conns   map[*ServerConn]struct{}
	connsMu sync.RWMutex

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer creates a new server.
func NewServer(config ServerConfig) *Server {
	if config.Address == "" {
		config.Address = ":9955"
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	return &Server{
		config: config,
		conns:  make(map[*ServerConn]struct{}),
	}
}

// Start listens and begins accepting connections.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return fmt.Errorf("server already running")
	}

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.listener = listener
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Stop closes the listener and all connections and waits for their
// goroutines.
func (s *Server) Stop() error {
	if !s.running.Swap(false) {
		return nil
	}
	s.cancel()
	err := s.listener.Close()

	s.connsMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connsMu.Unlock()

	s.wg.Wait()
	return err
}

// Addr returns the listen address.
func (s *Server) Addr() net.Addr {
	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}

// ConnectionCount returns the number of active connections.
func (s *Server) ConnectionCount() int {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	return len(s.conns)
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for s.running.Load() {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.running.Load() && s.config.OnError != nil {
				s.config.OnError(nil, fmt.Errorf("accept error: %w", err))
			}
			continue
		}
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()

	connID := uuid.NewString()
	framer := NewFramer(conn, s.config.MaxMessageSize)
	if s.config.Trace != nil {
		framer.SetTrace(s.config.Trace, connID)
	}
	sconn := &ServerConn{
		conn:    conn,
		framer:  framer,
		server:  s,
		closeCh: make(chan struct{}),
		connID:  connID,
	}

	s.connsMu.Lock()
	s.conns[sconn] = struct{}{}
	s.connsMu.Unlock()
	s.traceState(sconn, "", "CONNECTED")

	sconn.readLoop()

	s.connsMu.Lock()
	delete(s.conns, sconn)
	s.connsMu.Unlock()
	s.traceState(sconn, "CONNECTED", "DISCONNECTED")
}

func (s *Server) traceState(c *ServerConn, oldState, newState string) {
	if s.config.Trace == nil {
		return
	}
	s.config.Trace.Log(log.Event{
		Timestamp:  time.Now(),
		SessionID:  c.connID,
		Layer:      log.LayerTransport,
		Category:   log.CategoryState,
		LocalRole:  log.RoleDevice,
		RemoteAddr: c.conn.RemoteAddr().String(),
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnection,
			OldState: oldState,
			NewState: newState,
		},
	})
}

// ServerConn is an accepted session.
type ServerConn struct {
	conn      net.Conn
	framer    *Framer
	server    *Server
	closeCh   chan struct{}
	closeOnce sync.Once
	connID    string

	writeMu sync.Mutex
}

// RemoteAddr returns the remote address of the client.
func (c *ServerConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// ConnID returns the connection identifier.
func (c *ServerConn) ConnID() string {
	return c.connID
}

// Send sends a message to the client.
func (c *ServerConn) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.framer.WriteFrame(data)
}

// Close closes the connection.
func (c *ServerConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}

func (c *ServerConn) readLoop() {
	for {
		data, err := c.framer.ReadFrame()
		if err != nil {
			select {
			case <-c.closeCh:
			case <-c.server.ctx.Done():
			default:
				if !errors.Is(err, io.EOF) && c.server.config.OnError != nil {
					c.server.config.OnError(c, err)
				}
			}
			c.Close()
			return
		}
		if c.server.config.OnMessage != nil {
			c.server.config.OnMessage(c, data)
		}
	}
}
