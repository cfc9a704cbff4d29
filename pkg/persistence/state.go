package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// StateVersion is the current version of the state file format.
const StateVersion = 1

// ControllerState lists the devices a controller onboarded.
type ControllerState struct {
	// Version is the state file format version.
	Version int `json:"version"`

	// SavedAt is when the state was last saved.
	SavedAt time.Time `json:"saved_at"`

	Devices []OnboardedDevice `json:"devices,omitempty"`
}

// OnboardedDevice is one successful onboarding.
type OnboardedDevice struct {
	DeviceID   string `json:"device_id"`
	DeviceName string `json:"device_name,omitempty"`
	Model      string `json:"model,omitempty"`

	// Network is the SSID the device was configured with.
	Network string `json:"network"`

	// Locator and Port are where the device announced itself on Network.
	Locator string `json:"locator"`
	Port    uint16 `json:"port"`

	OnboardedAt time.Time `json:"onboarded_at"`
}

// Record adds d, replacing an earlier entry for the same device.
func (s *ControllerState) Record(d OnboardedDevice) {
	for i := range s.Devices {
		if s.Devices[i].DeviceID == d.DeviceID {
			s.Devices[i] = d
			return
		}
	}
	s.Devices = append(s.Devices, d)
}

// Remove drops the device reachable at locator:port and reports whether
// one was found.
func (s *ControllerState) Remove(locator string, port uint16) bool {
	for i, d := range s.Devices {
		if d.Locator == locator && d.Port == port {
			s.Devices = append(s.Devices[:i], s.Devices[i+1:]...)
			return true
		}
	}
	return false
}

// DeviceState is what a device remembers about itself.
type DeviceState struct {
	// Version is the state file format version.
	Version int `json:"version"`

	// SavedAt is when the state was last saved.
	SavedAt time.Time `json:"saved_at"`

	DeviceID string `json:"device_id"`

	// Network is the configured network, nil when not configured.
	Network *SavedNetwork `json:"network,omitempty"`
}

// SavedNetwork is a configured network. The passphrase is kept in the form
// it arrived in.
type SavedNetwork struct {
	SSID       string `json:"ssid"`
	Auth       int16  `json:"auth"`
	Passphrase string `json:"passphrase,omitempty"`
	Validated  bool   `json:"validated,omitempty"`
}

// file is a JSON file guarded by a mutex.
type file struct {
	mu   sync.Mutex
	path string
}

func (f *file) save(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	// Write then rename so a crash never leaves a torn file.
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

// load returns false if the file does not exist.
func (f *file) load(v any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("persistence: %s: %w", f.path, err)
	}
	return true, nil
}

func (f *file) clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// ControllerStateStore manages persistence of controller state to a JSON file.
type ControllerStateStore struct {
	f file
}

// NewControllerStateStore creates a new controller state store.
func NewControllerStateStore(path string) *ControllerStateStore {
	return &ControllerStateStore{f: file{path: path}}
}

// Save persists the controller state to disk.
func (s *ControllerStateStore) Save(state *ControllerState) error {
	state.Version = StateVersion
	state.SavedAt = time.Now()
	return s.f.save(state)
}

// Load reads the controller state. A missing file yields an empty state.
func (s *ControllerStateStore) Load() (*ControllerState, error) {
	state := &ControllerState{Version: StateVersion}
	if _, err := s.f.load(state); err != nil {
		return nil, err
	}
	return state, nil
}

// Update loads the state, applies fn and saves the result.
func (s *ControllerStateStore) Update(fn func(*ControllerState)) error {
	state, err := s.Load()
	if err != nil {
		return err
	}
	fn(state)
	return s.Save(state)
}

// Clear removes the state file.
func (s *ControllerStateStore) Clear() error {
	return s.f.clear()
}

// DeviceStateStore manages persistence of device state to a JSON file.
type DeviceStateStore struct {
	f file
}

// NewDeviceStateStore creates a new device state store.
func NewDeviceStateStore(path string) *DeviceStateStore {
	return &DeviceStateStore{f: file{path: path}}
}

// Save persists the device state to disk.
func (s *DeviceStateStore) Save(state *DeviceState) error {
	state.Version = StateVersion
	state.SavedAt = time.Now()
	return s.f.save(state)
}

// Load reads the device state.
// Returns nil, nil if the file doesn't exist (empty state).
func (s *DeviceStateStore) Load() (*DeviceState, error) {
	state := &DeviceState{}
	found, err := s.f.load(state)
	if err != nil || !found {
		return nil, err
	}
	return state, nil
}

// Clear removes the state file.
func (s *DeviceStateStore) Clear() error {
	return s.f.clear()
}
