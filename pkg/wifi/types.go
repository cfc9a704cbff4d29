package wifi

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Join timing.
const (
	// DefaultJoinTimeout is used when a join is requested without a timeout.
	DefaultJoinTimeout = 20 * time.Second

	// MaxPassphraseLen is the longest passphrase a device accepts on the wire
	// (64 characters hexified).
	MaxPassphraseLen = 128
)

// Errors reported by joiners and the credential helpers.
var (
	ErrJoinTimeout   = errors.New("wifi: join timed out")
	ErrJoinAuth      = errors.New("wifi: authentication failed")
	ErrInvalidWEPKey = errors.New("wifi: invalid WEP key")
	ErrEmptySSID     = errors.New("wifi: empty SSID")
	ErrUnknownAuth   = errors.New("wifi: unknown auth type")
)

// AuthType is the authentication type of a network. The numeric values are
// the ones carried on the wire to the device.
type AuthType int16

const (
	AuthWPA2Auto AuthType = -3
	AuthWPAAuto  AuthType = -2
	AuthAny      AuthType = -1
	AuthOpen     AuthType = 0
	AuthWEP      AuthType = 1
	AuthWPATKIP  AuthType = 2
	AuthWPACCMP  AuthType = 3
	AuthWPA2TKIP AuthType = 4
	AuthWPA2CCMP AuthType = 5
	AuthWPS      AuthType = 6
)

var authNames = map[AuthType]string{
	AuthWPA2Auto: "WPA2_AUTO",
	AuthWPAAuto:  "WPA_AUTO",
	AuthAny:      "ANY",
	AuthOpen:     "OPEN",
	AuthWEP:      "WEP",
	AuthWPATKIP:  "WPA_TKIP",
	AuthWPACCMP:  "WPA_CCMP",
	AuthWPA2TKIP: "WPA2_TKIP",
	AuthWPA2CCMP: "WPA2_CCMP",
	AuthWPS:      "WPS",
}

// String returns the auth type name.
func (a AuthType) String() string {
	if s, ok := authNames[a]; ok {
		return s
	}
	return "UNKNOWN"
}

// MarshalText encodes the auth type by name.
func (a AuthType) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText accepts a name or a numeric id, so config files can use
// either.
func (a *AuthType) UnmarshalText(text []byte) error {
	v, err := ParseAuthType(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// ParseAuthType parses a name (case-insensitive) or a numeric id.
func ParseAuthType(s string) (AuthType, error) {
	s = strings.TrimSpace(s)
	for a, name := range authNames {
		if strings.EqualFold(name, s) {
			return a, nil
		}
	}
	if n, err := strconv.ParseInt(s, 10, 16); err == nil {
		if _, ok := authNames[AuthType(n)]; ok {
			return AuthType(n), nil
		}
	}
	return AuthAny, fmt.Errorf("%w: %q", ErrUnknownAuth, s)
}

// AuthTypeFromCapabilities maps a scan capability string such as
// "[WPA2-PSK-CCMP][ESS]" to an auth type.
func AuthTypeFromCapabilities(caps string) AuthType {
	switch {
	case strings.Contains(caps, "WPA2"):
		return AuthWPA2Auto
	case strings.Contains(caps, "WPA"):
		return AuthWPAAuto
	case strings.Contains(caps, "WEP"):
		return AuthWEP
	default:
		return AuthOpen
	}
}

// Network describes an access point to join or to configure on a device.
type Network struct {
	// SSID of the network. Compared after normalization.
	SSID string `yaml:"ssid" toml:"ssid"`

	// Auth is the authentication type.
	Auth AuthType `yaml:"auth" toml:"auth"`

	// Passphrase is the credential, empty for open networks.
	Passphrase string `yaml:"passphrase" toml:"passphrase"`

	// Level is the observed signal strength in dBm when the network came
	// from a scan. Zero otherwise.
	Level int `yaml:"-" toml:"-"`
}

// String returns the normalized SSID and auth type, never the passphrase.
func (n Network) String() string {
	return fmt.Sprintf("%s(%s)", NormalizeSSID(n.SSID), n.Auth)
}

// Validate checks that the network can be joined or pushed to a device.
func (n Network) Validate() error {
	if NormalizeSSID(n.SSID) == "" {
		return ErrEmptySSID
	}
	if n.Auth == AuthWEP {
		if ok, _ := CheckWEPKey(n.Passphrase); !ok {
			return ErrInvalidWEPKey
		}
	}
	return nil
}

// Joiner joins Wi-Fi networks. Join blocks until the network is associated,
// the timeout elapses (ErrJoinTimeout) or the credentials are rejected
// (ErrJoinAuth).
type Joiner interface {
	Join(ctx context.Context, n Network, timeout time.Duration) error
	CurrentNetwork(ctx context.Context) (string, error)
}

// Restorer returns the station to the network it was on before the first
// join of a session.
type Restorer interface {
	Restore(ctx context.Context) error
}

// ScanResult is one access point seen by a scan.
type ScanResult struct {
	SSID         string
	Capabilities string
	Level        int
}

// Network converts the scan result to a network descriptor without
// credentials.
func (r ScanResult) Network() Network {
	return Network{
		SSID:  NormalizeSSID(r.SSID),
		Auth:  AuthTypeFromCapabilities(r.Capabilities),
		Level: r.Level,
	}
}

// Scanner lists visible access points.
type Scanner interface {
	Scan(ctx context.Context) ([]ScanResult, error)
}
