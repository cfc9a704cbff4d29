package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alljoyn/services-onboarding/pkg/log"
)

// Client defaults.
const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultDialAttempts   = 3
)

// Errors.
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrDialFailed       = errors.New("dial failed")
)

// ClientConfig configures a Client.
type ClientConfig struct {
	// MaxMessageSize is the maximum message size (default: 64KB).
	MaxMessageSize uint32

	// ConnectTimeout bounds all dial attempts together when the context
	// has no deadline (default: 10s).
	ConnectTimeout time.Duration

	// DialAttempts is how often the dial is tried (default: 3).
	DialAttempts int

	// Backoff between dial attempts.
	Backoff BackoffConfig

	// Trace receives frame events (optional).
	Trace log.Logger
}

// Client opens configuration sessions.
type Client struct {
	config ClientConfig
	dialer net.Dialer
}

// NewClient creates a new client.
func NewClient(config ClientConfig) *Client {
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	if config.DialAttempts <= 0 {
		config.DialAttempts = DefaultDialAttempts
	}
	return &Client{config: config}
}

// Connect dials address, retrying with backoff.
func (c *Client) Connect(ctx context.Context, address string) (*ClientConn, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.ConnectTimeout)
		defer cancel()
	}

	backoff := NewBackoff(c.config.Backoff)
	var lastErr error
	for attempt := 1; attempt <= c.config.DialAttempts; attempt++ {
		conn, err := c.dialer.DialContext(ctx, "tcp", address)
		if err == nil {
			return c.wrap(conn), nil
		}
		lastErr = err
		if attempt == c.config.DialAttempts {
			break
		}

		timer := time.NewTimer(backoff.Next())
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %s: %v", ErrDialFailed, address, ctx.Err())
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("%w: %s after %d attempts: %v", ErrDialFailed, address, c.config.DialAttempts, lastErr)
}

func (c *Client) wrap(conn net.Conn) *ClientConn {
	id := uuid.NewString()
	framer := NewFramer(conn, c.config.MaxMessageSize)
	if c.config.Trace != nil {
		framer.SetTrace(c.config.Trace, id)
	}
	return &ClientConn{
		conn:    conn,
		framer:  framer,
		id:      id,
		closeCh: make(chan struct{}),
	}
}

// ClientConn is an open session from the controller side.
type ClientConn struct {
	conn    net.Conn
	framer  *Framer
	id      string
	closeCh chan struct{}

	closeOnce sync.Once
	writeMu   sync.Mutex
	readMu    sync.Mutex
}

// ID returns the connection id used in trace events.
func (c *ClientConn) ID() string {
	return c.id
}

// RemoteAddr returns the remote network address.
func (c *ClientConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Send sends a message.
func (c *ClientConn) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.closeCh:
		return ErrConnectionClosed
	default:
	}
	return c.framer.WriteFrame(data)
}

// Receive waits at most timeout for the next message. Zero waits forever.
func (c *ClientConn) Receive(timeout time.Duration) ([]byte, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	select {
	case <-c.closeCh:
		return nil, ErrConnectionClosed
	default:
	}

	if timeout > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
		defer func() { _ = c.conn.SetReadDeadline(time.Time{}) }()
	}
	return c.framer.ReadFrame()
}

// Close closes the connection. Safe to call more than once.
func (c *ClientConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}
