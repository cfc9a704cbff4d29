package discovery

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service type constants for mDNS.
const (
	// ServiceTypeAnnounce is the service type devices announce on.
	ServiceTypeAnnounce = "_ajonb._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is the default configuration session port.
	DefaultPort = 9955
)

// TXT record keys.
const (
	TXTKeyAppID      = "appid" // Device identity (UUID)
	TXTKeyInterfaces = "ifaces"
	TXTKeyDeviceName = "dn"
	TXTKeyModel      = "model"
	TXTKeyVersion    = "obv" // Onboarding interface version
)

// Interface names carried in announcements.
const (
	// InterfaceOnboarding is advertised by devices that accept Wi-Fi
	// credentials.
	InterfaceOnboarding = "org.alljoyn.Onboarding"

	// InterfaceAbout is advertised by every announcing device.
	InterfaceAbout = "org.alljoyn.About"
)

const (
	// BrowseTimeout is the default timeout for one-shot lookups.
	BrowseTimeout = 10 * time.Second

	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63
)

// Errors.
var (
	ErrMissingRequired  = errors.New("discovery: missing required TXT record")
	ErrInvalidTXTRecord = errors.New("discovery: invalid TXT record")
	ErrInvalidAppID     = errors.New("discovery: invalid appid")
	ErrNotFound         = errors.New("discovery: not found")
)

// Announcement is one presence broadcast from a device.
type Announcement struct {
	// InstanceName is the DNS-SD instance name.
	InstanceName string

	// Host is the advertised host name.
	Host string

	// Addresses are the IP addresses the instance resolved to.
	Addresses []string

	// Port of the configuration session. Zero means unusable.
	Port uint16

	// DeviceID identifies the device across networks.
	DeviceID uuid.UUID

	// DeviceName is the user-visible name, may be empty.
	DeviceName string

	// Model is the model name, may be empty.
	Model string

	// Interfaces lists the announced interface names.
	Interfaces []string

	// Version is the announced onboarding interface version, may be empty.
	Version string
}

// Locator returns the address to open a configuration session on. IPv4
// addresses are preferred over IPv6, and the host name is the fallback.
func (a *Announcement) Locator() string {
	for _, addr := range a.Addresses {
		if ip := net.ParseIP(addr); ip != nil && ip.To4() != nil {
			return addr
		}
	}
	if len(a.Addresses) > 0 {
		return a.Addresses[0]
	}
	return strings.TrimSuffix(a.Host, ".")
}

// Endpoint returns host:port for dialing.
func (a *Announcement) Endpoint() string {
	return net.JoinHostPort(a.Locator(), strconv.Itoa(int(a.Port)))
}

// Usable reports whether a session can be opened from this announcement and
// the device can be recognized again later. A nil DeviceID is unusable.
func (a *Announcement) Usable() bool {
	return a.DeviceID != uuid.Nil && a.Port != 0 && a.Locator() != ""
}

// Supports reports whether any announced interface name starts with prefix.
func (a *Announcement) Supports(prefix string) bool {
	for _, name := range a.Interfaces {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (a *Announcement) Clone() *Announcement {
	if a == nil {
		return nil
	}
	c := *a
	c.Addresses = append([]string(nil), a.Addresses...)
	c.Interfaces = append([]string(nil), a.Interfaces...)
	return &c
}

// AnnouncementInfo is what a device advertises about itself.
type AnnouncementInfo struct {
	// InstanceName for the DNS-SD record. Defaults to the device name.
	InstanceName string

	// Port of the configuration session.
	Port uint16

	DeviceID   uuid.UUID
	DeviceName string
	Model      string
	Interfaces []string
	Version    string
}
