package nmcli

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alljoyn/services-onboarding/pkg/wifi"
)

type reply struct {
	out string
	err error
}

// scriptRunner answers nmcli invocations by matching the argument prefix.
type scriptRunner struct {
	mu      sync.Mutex
	current string
	replies map[string]reply
	calls   []string
}

func (r *scriptRunner) Run(_ context.Context, args ...string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	line := strings.Join(args, " ")
	r.calls = append(r.calls, line)

	if strings.HasPrefix(line, "-t -f ACTIVE,SSID") {
		if r.current == "" {
			return []byte("no:Other\n"), nil
		}
		return []byte("no:Other\nyes:" + r.current + "\n"), nil
	}
	for prefix, rep := range r.replies {
		if strings.HasPrefix(line, prefix) {
			if rep.err == nil && strings.Contains(line, "device wifi connect ") {
				r.current = args[5]
			}
			if rep.err == nil && strings.HasPrefix(line, "connection up id ") {
				r.current = args[3]
			}
			return []byte(rep.out), rep.err
		}
	}
	return nil, nil
}

func (r *scriptRunner) called(prefix string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

type fakeExit int

func (e fakeExit) Error() string { return "exit status" }
func (e fakeExit) ExitCode() int { return int(e) }

func TestJoin(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		r := &scriptRunner{current: "HomeNet", replies: map[string]reply{
			"--wait": {out: "Device successfully activated"},
		}}
		c := New(Config{Runner: r, Interface: "wlan0"})

		err := c.Join(ctx, wifi.Network{SSID: `"AJ_lamp"`, Auth: wifi.AuthWPA2Auto, Passphrase: "pw"}, 10*time.Second)
		require.NoError(t, err)
		assert.True(t, r.called("--wait 10 device wifi connect AJ_lamp password pw ifname wlan0"))
		assert.Equal(t, "AJ_lamp", c.Requested())
	})

	t.Run("AlreadyAssociated", func(t *testing.T) {
		r := &scriptRunner{current: "AJ_lamp"}
		c := New(Config{Runner: r})

		require.NoError(t, c.Join(ctx, wifi.Network{SSID: "AJ_lamp"}, time.Second))
		assert.False(t, r.called("--wait"))
	})

	t.Run("AuthError", func(t *testing.T) {
		r := &scriptRunner{replies: map[string]reply{
			"--wait": {out: "Error: Connection activation failed: Secrets were required, but not provided.", err: fakeExit(4)},
		}}
		c := New(Config{Runner: r})

		err := c.Join(ctx, wifi.Network{SSID: "HomeNet", Auth: wifi.AuthWPA2Auto, Passphrase: "wrong"}, time.Second)
		assert.ErrorIs(t, err, wifi.ErrJoinAuth)
	})

	t.Run("Timeout", func(t *testing.T) {
		r := &scriptRunner{replies: map[string]reply{
			"--wait": {out: "Error: Timeout expired", err: fakeExit(3)},
		}}
		c := New(Config{Runner: r})

		err := c.Join(ctx, wifi.Network{SSID: "HomeNet"}, time.Second)
		assert.ErrorIs(t, err, wifi.ErrJoinTimeout)
	})

	t.Run("InvalidWEPIsAuthError", func(t *testing.T) {
		r := &scriptRunner{}
		c := New(Config{Runner: r})

		err := c.Join(ctx, wifi.Network{SSID: "HomeNet", Auth: wifi.AuthWEP, Passphrase: "shor"}, time.Second)
		assert.ErrorIs(t, err, wifi.ErrJoinAuth)
		assert.Empty(t, r.calls)
	})

	t.Run("WEPKeyType", func(t *testing.T) {
		r := &scriptRunner{replies: map[string]reply{"--wait": {}}}
		c := New(Config{Runner: r})

		require.NoError(t, c.Join(ctx, wifi.Network{SSID: "Old", Auth: wifi.AuthWEP, Passphrase: "abcde"}, time.Second))
		assert.True(t, r.called("--wait 1 device wifi connect Old password abcde wep-key-type key"))
	})
}

func TestRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("ReconnectsOriginal", func(t *testing.T) {
		r := &scriptRunner{current: "HomeNet", replies: map[string]reply{
			"--wait":     {},
			"connection": {},
		}}
		c := New(Config{Runner: r})

		require.NoError(t, c.Join(ctx, wifi.Network{SSID: "AJ_lamp"}, time.Second))
		require.NoError(t, c.Join(ctx, wifi.Network{SSID: "Target"}, time.Second))
		require.NoError(t, c.Restore(ctx))

		assert.True(t, r.called("connection delete id AJ_lamp"))
		assert.True(t, r.called("connection delete id Target"))
		assert.True(t, r.called("connection up id HomeNet"))
		assert.Empty(t, c.Requested())
	})

	t.Run("NothingJoined", func(t *testing.T) {
		r := &scriptRunner{current: "HomeNet"}
		c := New(Config{Runner: r})
		require.NoError(t, c.Restore(ctx))
		assert.Empty(t, r.calls)
	})

	t.Run("AggregatesErrors", func(t *testing.T) {
		r := &scriptRunner{current: "HomeNet", replies: map[string]reply{
			"--wait":     {},
			"connection": {err: errors.New("boom")},
		}}
		c := New(Config{Runner: r})

		require.NoError(t, c.Join(ctx, wifi.Network{SSID: "AJ_lamp"}, time.Second))
		err := c.Restore(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "delete profile")
		assert.Contains(t, err.Error(), "reconnect")
	})
}

func TestScan(t *testing.T) {
	r := &scriptRunner{replies: map[string]reply{
		"-t -f SSID,SECURITY,SIGNAL": {out: "AJ_lamp::80\nHomeNet:WPA1 WPA2:60\nOld:WEP:20\nEsc\\:aped:WPA2:100\n"},
	}}
	c := New(Config{Runner: r})

	results, err := c.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, wifi.ScanResult{SSID: "AJ_lamp", Capabilities: "", Level: -60}, results[0])
	assert.Equal(t, "[WPA][WPA2]", results[1].Capabilities)
	assert.Equal(t, wifi.AuthWEP, results[2].Network().Auth)
	assert.Equal(t, "Esc:aped", results[3].SSID)

	cls := wifi.Classify(results)
	assert.Len(t, cls.Onboardable, 1)
	assert.Len(t, cls.Targets, 3)
}

func TestWatch(t *testing.T) {
	r := &scriptRunner{current: "HomeNet"}
	c := New(Config{Runner: r})
	c.mu.Lock()
	c.requested = "AJ_lamp"
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan string, 4)
	go c.Watch(ctx, 5*time.Millisecond, func(ssid string) { changes <- ssid })

	setCurrent := func(ssid string) {
		r.mu.Lock()
		r.current = ssid
		r.mu.Unlock()
		time.Sleep(20 * time.Millisecond)
	}
	setCurrent("Neighbour")
	setCurrent("")
	setCurrent("AJ_lamp")

	select {
	case got := <-changes:
		assert.Equal(t, "AJ_lamp", got)
	case <-time.After(time.Second):
		t.Fatal("no change reported")
	}
	assert.Empty(t, changes, "only the requested network is reported")
}

func TestWatchWithoutRequestedNetwork(t *testing.T) {
	r := &scriptRunner{current: "HomeNet"}
	c := New(Config{Runner: r})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan string, 4)
	go c.Watch(ctx, 5*time.Millisecond, func(ssid string) { changes <- ssid })

	time.Sleep(20 * time.Millisecond)
	r.mu.Lock()
	r.current = "AJ_lamp"
	r.mu.Unlock()
	time.Sleep(50 * time.Millisecond)

	assert.Empty(t, changes)
}
