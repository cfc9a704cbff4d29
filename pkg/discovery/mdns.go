package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/enbility/zeroconf/v3"
)

// MDNSAdvertiser implements Advertiser using zeroconf.
type MDNSAdvertiser struct {
	config AdvertiserConfig

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewMDNSAdvertiser creates a new mDNS advertiser.
func NewMDNSAdvertiser(config AdvertiserConfig) *MDNSAdvertiser {
	if config.ServiceType == "" {
		config.ServiceType = ServiceTypeAnnounce
	}
	return &MDNSAdvertiser{config: config}
}

// Advertise starts advertising info, replacing any running announcement.
func (a *MDNSAdvertiser) Advertise(ctx context.Context, info *AnnouncementInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	instance := info.InstanceName
	if instance == "" {
		instance = info.DeviceName
	}
	if instance == "" {
		instance = info.DeviceID.String()
	}
	if len(instance) > MaxInstanceNameLen {
		instance = instance[:MaxInstanceNameLen]
	}

	port := int(info.Port)
	if port == 0 {
		port = DefaultPort
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(a.config.TTL))
	}

	server, err := zeroconf.Register(
		instance,
		a.config.ServiceType,
		Domain,
		port,
		TXTRecordsToStrings(EncodeAnnouncementTXT(info)),
		selectInterfaces(a.config.Interface),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to register announcement: %w", err)
	}
	a.server = server
	return nil
}

// Update replaces the TXT records of the running announcement.
func (a *MDNSAdvertiser) Update(info *AnnouncementInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return ErrNotFound
	}
	a.server.SetText(TXTRecordsToStrings(EncodeAnnouncementTXT(info)))
	return nil
}

// Stop withdraws the announcement.
func (a *MDNSAdvertiser) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
	return nil
}

// MDNSBrowser implements Source using zeroconf.
type MDNSBrowser struct {
	config BrowserConfig
	logger *slog.Logger
}

// NewMDNSBrowser creates a new mDNS browser. A nil logger discards.
func NewMDNSBrowser(config BrowserConfig, logger *slog.Logger) *MDNSBrowser {
	if config.ServiceType == "" {
		config.ServiceType = ServiceTypeAnnounce
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &MDNSBrowser{config: config, logger: logger}
}

// Announcements browses until ctx is done. Entries are aggregated by
// instance name; an announcement is emitted when an instance first appears
// and again whenever it shows up with an address or TXT change, which is
// what happens when a device moves to another network.
func (b *MDNSBrowser) Announcements(ctx context.Context) (<-chan *Announcement, error) {
	out := make(chan *Announcement)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	var opts []zeroconf.ClientOption
	if ifaces := selectInterfaces(b.config.Interface); ifaces != nil {
		opts = append(opts, zeroconf.SelectIfaces(ifaces))
	}

	go func() {
		defer close(out)
		agg := newAggregator()
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				a, err := entryToAnnouncement(entry)
				if err != nil {
					b.logger.Debug("dropping announcement",
						slog.String("instance", entry.Instance), slog.Any("error", err))
					continue
				}
				if emit := agg.add(a); emit != nil {
					select {
					case out <- emit:
					case <-ctx.Done():
						return
					}
				}
			case entry, ok := <-removed:
				if !ok {
					continue
				}
				agg.remove(entry)
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		if err := zeroconf.Browse(ctx, b.config.ServiceType, Domain, entries, removed, opts...); err != nil {
			b.logger.Warn("mdns browse failed", slog.Any("error", err))
		}
	}()

	return out, nil
}

// aggregator tracks instances and decides when an entry is news.
type aggregator struct {
	services map[string]*Announcement
}

func newAggregator() *aggregator {
	return &aggregator{services: make(map[string]*Announcement)}
}

// add merges a and returns a copy to emit, or nil if nothing changed.
func (g *aggregator) add(a *Announcement) *Announcement {
	existing, found := g.services[a.InstanceName]
	if !found {
		g.services[a.InstanceName] = a
		return a.Clone()
	}

	changed := existing.DeviceID != a.DeviceID ||
		existing.Port != a.Port ||
		existing.Version != a.Version ||
		!sameStrings(existing.Interfaces, a.Interfaces)
	merged := mergeAddresses(existing.Addresses, a.Addresses)
	if len(merged) != len(existing.Addresses) {
		changed = true
	}

	existing.Addresses = merged
	existing.Host = a.Host
	existing.Port = a.Port
	existing.DeviceID = a.DeviceID
	existing.DeviceName = a.DeviceName
	existing.Model = a.Model
	existing.Interfaces = a.Interfaces
	existing.Version = a.Version

	if !changed {
		return nil
	}
	return existing.Clone()
}

func (g *aggregator) remove(entry *zeroconf.ServiceEntry) {
	existing, found := g.services[entry.Instance]
	if !found {
		return
	}
	existing.Addresses = removeAddresses(existing.Addresses, entry)
	if len(existing.Addresses) == 0 {
		delete(g.services, entry.Instance)
	}
}

// entryToAnnouncement converts a zeroconf entry to an Announcement.
func entryToAnnouncement(entry *zeroconf.ServiceEntry) (*Announcement, error) {
	info, err := DecodeAnnouncementTXT(StringsToTXTRecords(entry.Text))
	if err != nil {
		return nil, err
	}

	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	return &Announcement{
		InstanceName: entry.Instance,
		Host:         entry.HostName,
		Addresses:    addrs,
		Port:         uint16(entry.Port),
		DeviceID:     info.DeviceID,
		DeviceName:   info.DeviceName,
		Model:        info.Model,
		Interfaces:   info.Interfaces,
		Version:      info.Version,
	}, nil
}

// selectInterfaces returns the named interface, or nil for all.
func selectInterfaces(name string) []net.Interface {
	if name == "" {
		return nil
	}
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

// mergeAddresses adds new addresses to existing list, avoiding duplicates.
func mergeAddresses(existing, added []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}
	for _, addr := range added {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses drops the entry's addresses from the list.
func removeAddresses(addresses []string, entry *zeroconf.ServiceEntry) []string {
	toRemove := make(map[string]bool)
	for _, ip := range entry.AddrIPv4 {
		toRemove[ip.String()] = true
	}
	for _, ip := range entry.AddrIPv6 {
		toRemove[ip.String()] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var (
	_ Advertiser = (*MDNSAdvertiser)(nil)
	_ Source     = (*MDNSBrowser)(nil)
)
