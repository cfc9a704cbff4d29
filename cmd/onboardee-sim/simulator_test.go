package main

import (
	"context"
	"net"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alljoyn/services-onboarding/pkg/devconfig"
	"github.com/alljoyn/services-onboarding/pkg/discovery"
	"github.com/alljoyn/services-onboarding/pkg/persistence"
	"github.com/alljoyn/services-onboarding/pkg/transport"
	"github.com/alljoyn/services-onboarding/pkg/wifi"
	"github.com/alljoyn/services-onboarding/pkg/wire"
)

type recordingAdvertiser struct {
	mu    sync.Mutex
	infos []*discovery.AnnouncementInfo
	stops int
}

func (r *recordingAdvertiser) Advertise(_ context.Context, info *discovery.AnnouncementInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.infos = append(r.infos, info)
	return nil
}

func (r *recordingAdvertiser) Update(info *discovery.AnnouncementInfo) error {
	return r.Advertise(context.Background(), info)
}

func (r *recordingAdvertiser) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops++
	return nil
}

func (r *recordingAdvertiser) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.infos)
}

func startSim(t *testing.T, opts simOptions) (*simulator, *recordingAdvertiser, string, uint16) {
	t.Helper()
	adv := &recordingAdvertiser{}
	sim := newSimulator(opts, adv, devconfig.ServerConfig{Address: "127.0.0.1:0"}, nil)
	require.NoError(t, sim.Start(context.Background()))
	t.Cleanup(func() { _ = sim.Stop() })

	host, portStr, err := net.SplitHostPort(sim.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return sim, adv, host, uint16(port)
}

func newClient(t *testing.T) *devconfig.Client {
	c := devconfig.NewClient(devconfig.Config{
		Transport:      transport.ClientConfig{ConnectTimeout: time.Second, DialAttempts: 1},
		RequestTimeout: time.Second,
	})
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSimulatorAnnouncesOnStart(t *testing.T) {
	id := uuid.New()
	sim, adv, _, port := startSim(t, simOptions{ID: id, Name: "Lamp", Version: "1.0"})

	require.Equal(t, 1, adv.count())
	info := adv.infos[0]
	assert.Equal(t, id, info.DeviceID)
	assert.Equal(t, "Lamp", info.DeviceName)
	assert.Equal(t, port, info.Port)
	assert.Equal(t, []string{discovery.InterfaceOnboarding}, info.Interfaces)
	assert.Equal(t, "1.0", info.Version)
	assert.Equal(t, port, sim.port())
}

func TestSimulatorIncompatibleOmitsInterface(t *testing.T) {
	_, adv, _, _ := startSim(t, simOptions{ID: uuid.New(), Incompatible: true})
	require.Equal(t, 1, adv.count())
	assert.Empty(t, adv.infos[0].Interfaces)
}

func TestSimulatorConfigureJoinsAndReannounces(t *testing.T) {
	id := uuid.New()
	sim, adv, host, port := startSim(t, simOptions{ID: id, JoinDelay: 10 * time.Millisecond})

	target := wifi.Network{SSID: "HomeNet", Auth: wifi.AuthWPA2CCMP, Passphrase: "secret123"}
	require.NoError(t, newClient(t).Configure(context.Background(), host, port, target))

	select {
	case n := <-sim.joined:
		assert.Equal(t, "HomeNet", n.SSID)
	case <-time.After(2 * time.Second):
		t.Fatal("simulated join did not finish")
	}

	assert.Equal(t, 2, adv.count())
	assert.Equal(t, id, adv.infos[1].DeviceID)
	assert.Equal(t, wire.DeviceConfiguredValidated, sim.device.State(context.Background()).State)
}

func TestSimulatorFailValidation(t *testing.T) {
	sim, adv, host, port := startSim(t, simOptions{ID: uuid.New(), JoinDelay: time.Millisecond, FailValidation: true})

	target := wifi.Network{SSID: "HomeNet", Auth: wifi.AuthWPA2CCMP, Passphrase: "secret123"}
	require.NoError(t, newClient(t).Configure(context.Background(), host, port, target))

	require.Eventually(t, func() bool {
		return sim.device.State(context.Background()).State == wire.DeviceConfiguredError
	}, 2*time.Second, 5*time.Millisecond)

	st := sim.device.State(context.Background())
	assert.Equal(t, codeUnreachable, st.LastErrorCode)
	assert.Contains(t, st.LastErrorMessage, "HomeNet")
	assert.Equal(t, 1, adv.count())
}

func TestSimulatorOffboard(t *testing.T) {
	sim, _, host, port := startSim(t, simOptions{ID: uuid.New(), JoinDelay: time.Hour})

	c := newClient(t)
	target := wifi.Network{SSID: "HomeNet", Auth: wifi.AuthWPA2CCMP, Passphrase: "secret123"}
	require.NoError(t, c.Configure(context.Background(), host, port, target))
	require.NoError(t, c.Offboard(context.Background(), host, port))

	_, configured := sim.device.Network()
	assert.False(t, configured)
	assert.Equal(t, wire.DeviceNotConfigured, sim.device.State(context.Background()).State)
}

func TestSimulatorRemembersConfiguration(t *testing.T) {
	store := persistence.NewDeviceStateStore(filepath.Join(t.TempDir(), "device.json"))
	id := uuid.New()
	sim, _, host, port := startSim(t, simOptions{ID: id, JoinDelay: time.Millisecond, Store: store})

	target := wifi.Network{SSID: "HomeNet", Auth: wifi.AuthWPA2CCMP, Passphrase: "secret123"}
	require.NoError(t, newClient(t).Configure(context.Background(), host, port, target))
	select {
	case <-sim.joined:
	case <-time.After(2 * time.Second):
		t.Fatal("simulated join did not finish")
	}

	state, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, state.Network)
	assert.Equal(t, id.String(), state.DeviceID)
	assert.Equal(t, "HomeNet", state.Network.SSID)
	assert.True(t, state.Network.Validated)

	restarted := newSimulator(simOptions{ID: uuid.New(), Store: store}, &recordingAdvertiser{}, devconfig.ServerConfig{Address: "127.0.0.1:0"}, nil)
	require.NoError(t, restarted.restore(false))
	assert.Equal(t, id, restarted.opts.ID)
	n, ok := restarted.device.Network()
	require.True(t, ok)
	assert.Equal(t, "HomeNet", n.SSID)
	assert.Equal(t, wire.DeviceConfiguredValidated, restarted.device.State(context.Background()).State)

	explicit := uuid.New()
	again := newSimulator(simOptions{ID: explicit, Store: store}, &recordingAdvertiser{}, devconfig.ServerConfig{Address: "127.0.0.1:0"}, nil)
	require.NoError(t, again.restore(true))
	assert.Equal(t, explicit, again.opts.ID)
}
