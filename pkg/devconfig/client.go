package devconfig

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alljoyn/services-onboarding/pkg/log"
	"github.com/alljoyn/services-onboarding/pkg/transport"
	"github.com/alljoyn/services-onboarding/pkg/wifi"
	"github.com/alljoyn/services-onboarding/pkg/wire"
)

// DefaultRequestTimeout bounds the wait for a single response.
const DefaultRequestTimeout = 5 * time.Second

// Errors.
var (
	ErrInvalidLocator = errors.New("devconfig: invalid locator or port")
	ErrSessionFailed  = errors.New("devconfig: session failed")
	ErrRejected       = errors.New("devconfig: request rejected by device")
	ErrMismatchedID   = errors.New("devconfig: response id mismatch")
)

// Config configures a Client.
type Config struct {
	// Transport settings for opening sessions.
	Transport transport.ClientConfig

	// RequestTimeout bounds the wait for each response (default: 5s).
	RequestTimeout time.Duration

	// Trace receives message events (optional).
	Trace log.Logger

	// Logger for diagnostics. Nil discards.
	Logger *slog.Logger
}

// Client opens sessions to devices and issues configuration requests.
type Client struct {
	transport *transport.Client
	timeout   time.Duration
	trace     log.Logger
	logger    *slog.Logger
	nextID    atomic.Uint32

	mu       sync.Mutex
	sessions map[string]*transport.ClientConn
}

// NewClient creates a Client.
func NewClient(cfg Config) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Trace == nil {
		cfg.Trace = log.NoopLogger{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Transport.Trace == nil {
		cfg.Transport.Trace = cfg.Trace
	}
	return &Client{
		transport: transport.NewClient(cfg.Transport),
		timeout:   cfg.RequestTimeout,
		trace:     cfg.Trace,
		logger:    cfg.Logger,
		sessions:  make(map[string]*transport.ClientConn),
	}
}

// Configure pushes target to the device at locator:port and tells it to
// connect.
func (c *Client) Configure(ctx context.Context, locator string, port uint16, target wifi.Network) error {
	endpoint, err := endpointOf(locator, port)
	if err != nil {
		return err
	}
	if err := target.Validate(); err != nil {
		return fmt.Errorf("devconfig: target network: %w", err)
	}
	passphrase, err := wifi.WirePassphrase(target)
	if err != nil {
		return fmt.Errorf("devconfig: target network: %w", err)
	}

	conn, err := c.session(ctx, endpoint)
	if err != nil {
		return err
	}
	defer c.drop(endpoint, conn)

	resp, err := c.call(ctx, conn, wire.MethodConfigureWiFi, &wire.ConfigureWiFiPayload{
		SSID:       wifi.NormalizeSSID(target.SSID),
		Passphrase: passphrase,
		AuthType:   int16(target.Auth),
	})
	if err != nil {
		return err
	}
	var result wire.ConfigureWiFiResult
	if err := wire.DecodePayload(resp.Payload, &result); err == nil {
		c.logger.Debug("device configured", slog.String("endpoint", endpoint),
			slog.Int("mode", int(result.Mode)))
	}

	if _, err := c.call(ctx, conn, wire.MethodConnect, nil); err != nil {
		if errors.Is(err, ErrRejected) {
			return err
		}
		// The device drops the session as soon as it leaves its soft AP.
		c.logger.Debug("session ended after connect", slog.Any("error", err))
	}
	return nil
}

// Offboard asks the device at locator:port to forget its configuration.
func (c *Client) Offboard(ctx context.Context, locator string, port uint16) error {
	endpoint, err := endpointOf(locator, port)
	if err != nil {
		return err
	}
	conn, err := c.session(ctx, endpoint)
	if err != nil {
		return err
	}
	defer c.drop(endpoint, conn)

	_, err = c.call(ctx, conn, wire.MethodOffboard, nil)
	return err
}

// State queries the device-side onboarding state. The session stays open
// for a following Configure.
func (c *Client) State(ctx context.Context, locator string, port uint16) (*wire.StatePayload, error) {
	endpoint, err := endpointOf(locator, port)
	if err != nil {
		return nil, err
	}
	conn, err := c.session(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	resp, err := c.call(ctx, conn, wire.MethodGetState, nil)
	if err != nil {
		c.drop(endpoint, conn)
		return nil, err
	}
	var st wire.StatePayload
	if err := wire.DecodePayload(resp.Payload, &st); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionFailed, err)
	}
	return &st, nil
}

// Close closes all open sessions.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for endpoint, conn := range c.sessions {
		conn.Close()
		delete(c.sessions, endpoint)
	}
	return nil
}

// session returns the open session to endpoint or dials a new one.
func (c *Client) session(ctx context.Context, endpoint string) (*transport.ClientConn, error) {
	c.mu.Lock()
	if conn, ok := c.sessions[endpoint]; ok {
		c.mu.Unlock()
		c.logger.Debug("reusing session", slog.String("endpoint", endpoint))
		return conn, nil
	}
	c.mu.Unlock()

	conn, err := c.transport.Connect(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionFailed, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.sessions[endpoint]; ok {
		conn.Close()
		return existing, nil
	}
	c.sessions[endpoint] = conn
	return conn, nil
}

func (c *Client) drop(endpoint string, conn *transport.ClientConn) {
	c.mu.Lock()
	if c.sessions[endpoint] == conn {
		delete(c.sessions, endpoint)
	}
	c.mu.Unlock()
	conn.Close()
}

// call sends one request and waits for its response.
func (c *Client) call(ctx context.Context, conn *transport.ClientConn, method wire.Method, payload any) (*wire.Response, error) {
	id := c.nextID.Add(1)
	if id == 0 {
		id = c.nextID.Add(1)
	}
	req, err := wire.NewRequest(id, method, payload)
	if err != nil {
		return nil, err
	}
	data, err := wire.EncodeRequest(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	if err := conn.Send(data); err != nil {
		return nil, fmt.Errorf("%w: send %s: %v", ErrSessionFailed, method, err)
	}
	c.traceMessage(conn, log.DirectionOut, &log.MessageEvent{MessageID: id, Method: &method})

	timeout := c.timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("%w: %s: %v", ErrSessionFailed, method, context.DeadlineExceeded)
	}

	raw, err := conn.Receive(timeout)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = transport.ErrConnectionClosed
		}
		return nil, fmt.Errorf("%w: receive %s: %v", ErrSessionFailed, method, err)
	}
	resp, err := wire.DecodeResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionFailed, err)
	}
	rtt := time.Since(start)
	c.traceMessage(conn, log.DirectionIn, &log.MessageEvent{
		Response: true, MessageID: resp.MessageID, Status: &resp.Status, RoundTrip: &rtt,
	})

	if resp.MessageID != id {
		return nil, fmt.Errorf("%w: sent %d, got %d", ErrMismatchedID, id, resp.MessageID)
	}
	if err := resp.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRejected, method, err)
	}
	return resp, nil
}

func (c *Client) traceMessage(conn *transport.ClientConn, dir log.Direction, msg *log.MessageEvent) {
	c.trace.Log(log.Event{
		Timestamp:  time.Now(),
		SessionID:  conn.ID(),
		Direction:  dir,
		Layer:      log.LayerWire,
		Category:   log.CategoryMessage,
		LocalRole:  log.RoleController,
		RemoteAddr: conn.RemoteAddr().String(),
		Message:    msg,
	})
}

func endpointOf(locator string, port uint16) (string, error) {
	if locator == "" || port == 0 {
		return "", fmt.Errorf("%w: %q:%d", ErrInvalidLocator, locator, port)
	}
	return net.JoinHostPort(locator, strconv.Itoa(int(port))), nil
}
