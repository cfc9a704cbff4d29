package devconfig

import (
	"context"
	"encoding/hex"
	"sync"

	"github.com/alljoyn/services-onboarding/pkg/wifi"
	"github.com/alljoyn/services-onboarding/pkg/wire"
)

// Device is an in-memory Handler. It keeps the last configuration and
// reports state the way a real device would.
type Device struct {
	mu       sync.Mutex
	network  *wifi.Network
	state    wire.DeviceState
	lastCode int16
	lastMsg  string

	// Mode returned from ConfigureWiFi. Zero means ConfigureModeRegular.
	Mode wire.ConfigureMode

	// OnConnect is called after a successful Connect with the configured
	// network (passphrase still in wire form).
	OnConnect func(n wifi.Network)

	// OnOffboard is called after a successful Offboard.
	OnOffboard func()
}

// ConfigureWiFi stores the network. The passphrase must be hex.
func (d *Device) ConfigureWiFi(_ context.Context, ssid, passphrase string, auth wifi.AuthType) (wire.ConfigureMode, error) {
	if auth.String() == "UNKNOWN" {
		return 0, &wire.StatusError{Status: wire.StatusUnsupported, Message: "unsupported auth type"}
	}
	if auth != wifi.AuthOpen {
		if _, err := hex.DecodeString(passphrase); err != nil || passphrase == "" {
			return 0, &wire.StatusError{Status: wire.StatusInvalidParameter, Message: "passphrase is not hex encoded"}
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.network = &wifi.Network{SSID: ssid, Auth: auth, Passphrase: passphrase}
	d.state = wire.DeviceConfiguredNotValidated
	d.lastCode, d.lastMsg = 0, ""

	if d.Mode == 0 {
		return wire.ConfigureModeRegular, nil
	}
	return d.Mode, nil
}

// Connect switches the device to the configured network.
func (d *Device) Connect(context.Context) error {
	d.mu.Lock()
	if d.network == nil {
		d.mu.Unlock()
		return &wire.StatusError{Status: wire.StatusNotConfigured}
	}
	n := *d.network
	d.state = wire.DeviceConfiguredValidating
	cb := d.OnConnect
	d.mu.Unlock()

	if cb != nil {
		cb(n)
	}
	return nil
}

// Offboard forgets the configuration.
func (d *Device) Offboard(context.Context) error {
	d.mu.Lock()
	d.network = nil
	d.state = wire.DeviceNotConfigured
	cb := d.OnOffboard
	d.mu.Unlock()

	if cb != nil {
		cb()
	}
	return nil
}

// State reports the device state.
func (d *Device) State(context.Context) wire.StatePayload {
	d.mu.Lock()
	defer d.mu.Unlock()
	return wire.StatePayload{State: d.state, LastErrorCode: d.lastCode, LastErrorMessage: d.lastMsg}
}

// SetValidated records the outcome of joining the configured network.
func (d *Device) SetValidated(ok bool, code int16, msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ok {
		d.state = wire.DeviceConfiguredValidated
		d.lastCode, d.lastMsg = 0, ""
		return
	}
	d.state = wire.DeviceConfiguredError
	d.lastCode, d.lastMsg = code, msg
}

// Preload installs a configuration remembered from an earlier run.
func (d *Device) Preload(n wifi.Network, validated bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.network = &n
	d.state = wire.DeviceConfiguredNotValidated
	if validated {
		d.state = wire.DeviceConfiguredValidated
	}
}

// Network returns the stored configuration, if any.
func (d *Device) Network() (wifi.Network, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.network == nil {
		return wifi.Network{}, false
	}
	return *d.network, true
}

var _ Handler = (*Device)(nil)
