package transport

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alljoyn/services-onboarding/pkg/log"
)

func startEchoServer(t *testing.T, trace log.Logger) *Server {
	t.Helper()
	srv := NewServer(ServerConfig{
		Address: "127.0.0.1:0",
		Trace:   trace,
		OnMessage: func(conn *ServerConn, msg []byte) {
			_ = conn.Send(append([]byte("echo:"), msg...))
		},
	})
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() { _ = srv.Stop() })
	return srv
}

type syncRecorder struct {
	mu     sync.Mutex
	events []log.Event
}

func (r *syncRecorder) Log(e log.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *syncRecorder) states() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if e.StateChange != nil {
			out = append(out, e.StateChange.NewState)
		}
	}
	return out
}

func TestClientServerRoundTrip(t *testing.T) {
	trace := &syncRecorder{}
	srv := startEchoServer(t, trace)

	client := NewClient(ClientConfig{})
	conn, err := client.Connect(context.Background(), srv.Addr().String())
	require.NoError(t, err)
	assert.NotEmpty(t, conn.ID())

	require.NoError(t, conn.Send([]byte("hello")))
	reply, err := conn.Receive(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "echo:hello", string(reply))

	require.Eventually(t, func() bool { return srv.ConnectionCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	assert.ErrorIs(t, conn.Send([]byte("x")), ErrConnectionClosed)

	require.Eventually(t, func() bool { return len(trace.states()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"CONNECTED", "DISCONNECTED"}, trace.states())
	assert.Equal(t, 0, srv.ConnectionCount())
}

func TestClientRetriesDial(t *testing.T) {
	// Reserve a port, then free it so the first attempts are refused.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	go func() {
		time.Sleep(60 * time.Millisecond)
		srv := NewServer(ServerConfig{Address: addr})
		if err := srv.Start(context.Background()); err == nil {
			t.Cleanup(func() { _ = srv.Stop() })
		}
	}()

	client := NewClient(ClientConfig{
		DialAttempts: 10,
		Backoff:      BackoffConfig{Initial: 20 * time.Millisecond, Max: 40 * time.Millisecond},
	})
	conn, err := client.Connect(context.Background(), addr)
	require.NoError(t, err)
	conn.Close()
}

func TestClientGivesUp(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	client := NewClient(ClientConfig{
		DialAttempts: 2,
		Backoff:      BackoffConfig{Initial: time.Millisecond},
	})
	_, err = client.Connect(context.Background(), addr)
	assert.ErrorIs(t, err, ErrDialFailed)
}

func TestReceiveTimeout(t *testing.T) {
	srv := NewServer(ServerConfig{Address: "127.0.0.1:0"})
	require.NoError(t, srv.Start(context.Background()))
	defer srv.Stop()

	conn, err := NewClient(ClientConfig{}).Connect(context.Background(), srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Receive(20 * time.Millisecond)
	var netErr net.Error
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout())
}
