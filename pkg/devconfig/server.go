package devconfig

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/alljoyn/services-onboarding/pkg/log"
	"github.com/alljoyn/services-onboarding/pkg/transport"
	"github.com/alljoyn/services-onboarding/pkg/wifi"
	"github.com/alljoyn/services-onboarding/pkg/wire"
)

// Handler implements the device side of a configuration session.
// Returning a *wire.StatusError selects the response status; any other
// error is reported as StatusFailed.
type Handler interface {
	ConfigureWiFi(ctx context.Context, ssid, passphrase string, auth wifi.AuthType) (wire.ConfigureMode, error)
	Connect(ctx context.Context) error
	Offboard(ctx context.Context) error
	State(ctx context.Context) wire.StatePayload
}

// ServerConfig configures a Server.
type ServerConfig struct {
	// Address to listen on.
	Address string

	// Trace receives frame and message events (optional).
	Trace log.Logger

	// Logger for diagnostics. Nil discards.
	Logger *slog.Logger
}

// Server serves configuration sessions.
type Server struct {
	srv     *transport.Server
	handler Handler
	trace   log.Logger
	logger  *slog.Logger
	ctx     context.Context
}

// NewServer creates a Server dispatching to h.
func NewServer(cfg ServerConfig, h Handler) *Server {
	if cfg.Trace == nil {
		cfg.Trace = log.NoopLogger{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{handler: h, trace: cfg.Trace, logger: cfg.Logger, ctx: context.Background()}
	s.srv = transport.NewServer(transport.ServerConfig{
		Address:   cfg.Address,
		Trace:     cfg.Trace,
		OnMessage: s.handleMessage,
		OnError: func(_ *transport.ServerConn, err error) {
			s.logger.Debug("session error", slog.Any("error", err))
		},
	})
	return s
}

// Start starts listening.
func (s *Server) Start(ctx context.Context) error {
	s.ctx = ctx
	return s.srv.Start(ctx)
}

// Stop stops the server.
func (s *Server) Stop() error {
	return s.srv.Stop()
}

// Addr returns the listen address.
func (s *Server) Addr() net.Addr {
	return s.srv.Addr()
}

func (s *Server) handleMessage(conn *transport.ServerConn, data []byte) {
	req, err := wire.DecodeRequest(data)
	if err != nil {
		s.logger.Debug("bad request", slog.Any("error", err))
		s.reply(conn, &wire.Response{Status: wire.StatusInvalidParameter, Message: err.Error()})
		return
	}
	s.traceMessage(conn, log.DirectionIn, &log.MessageEvent{MessageID: req.MessageID, Method: &req.Method})

	resp := &wire.Response{MessageID: req.MessageID}
	closeAfter := false

	switch req.Method {
	case wire.MethodConfigureWiFi:
		var p wire.ConfigureWiFiPayload
		if err := wire.DecodePayload(req.Payload, &p); err != nil {
			setError(resp, &wire.StatusError{Status: wire.StatusInvalidParameter, Message: err.Error()})
			break
		}
		if err := p.Validate(); err != nil {
			setError(resp, &wire.StatusError{Status: wire.StatusInvalidParameter, Message: err.Error()})
			break
		}
		mode, err := s.handler.ConfigureWiFi(s.ctx, p.SSID, p.Passphrase, wifi.AuthType(p.AuthType))
		if err != nil {
			setError(resp, err)
			break
		}
		resp.Payload, _ = wire.Marshal(&wire.ConfigureWiFiResult{Mode: mode})

	case wire.MethodConnect:
		if err := s.handler.Connect(s.ctx); err != nil {
			setError(resp, err)
			break
		}
		closeAfter = true

	case wire.MethodOffboard:
		if err := s.handler.Offboard(s.ctx); err != nil {
			setError(resp, err)
			break
		}
		closeAfter = true

	case wire.MethodGetState:
		st := s.handler.State(s.ctx)
		resp.Payload, _ = wire.Marshal(&st)

	default:
		setError(resp, &wire.StatusError{Status: wire.StatusUnsupported, Message: req.Method.String()})
	}

	s.reply(conn, resp)
	if closeAfter {
		conn.Close()
	}
}

func setError(resp *wire.Response, err error) {
	var se *wire.StatusError
	if errors.As(err, &se) {
		resp.Status = se.Status
		resp.Message = se.Message
		return
	}
	resp.Status = wire.StatusFailed
	resp.Message = err.Error()
}

func (s *Server) reply(conn *transport.ServerConn, resp *wire.Response) {
	data, err := wire.EncodeResponse(resp)
	if err != nil {
		s.logger.Warn("encode response", slog.Any("error", err))
		return
	}
	if err := conn.Send(data); err != nil {
		s.logger.Debug("send response", slog.Any("error", err))
		return
	}
	s.traceMessage(conn, log.DirectionOut, &log.MessageEvent{Response: true, MessageID: resp.MessageID, Status: &resp.Status})
}

func (s *Server) traceMessage(conn *transport.ServerConn, dir log.Direction, msg *log.MessageEvent) {
	s.trace.Log(log.Event{
		Timestamp:  time.Now(),
		SessionID:  conn.ConnID(),
		Direction:  dir,
		Layer:      log.LayerWire,
		Category:   log.CategoryMessage,
		LocalRole:  log.RoleDevice,
		RemoteAddr: conn.RemoteAddr().String(),
		Message:    msg,
	})
}
