package discovery

import (
	"context"

	"github.com/google/uuid"
)

// Source delivers announcements. The channel is closed when ctx is done.
type Source interface {
	Announcements(ctx context.Context) (<-chan *Announcement, error)
}

// Advertiser publishes a device's announcement.
type Advertiser interface {
	// Advertise starts (or replaces) the announcement.
	Advertise(ctx context.Context, info *AnnouncementInfo) error

	// Update replaces the TXT records of the running announcement.
	Update(info *AnnouncementInfo) error

	// Stop withdraws the announcement.
	Stop() error
}

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// ServiceType to browse. Default: ServiceTypeAnnounce.
	ServiceType string

	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{ServiceType: ServiceTypeAnnounce}
}

// AdvertiserConfig configures advertiser behavior.
type AdvertiserConfig struct {
	// ServiceType to advertise. Default: ServiceTypeAnnounce.
	ServiceType string

	// Interface specifies which network interface to advertise on.
	Interface string

	// TTL for the records, zero uses the zeroconf default.
	TTL uint32
}

// FilterFunc selects announcements.
type FilterFunc func(*Announcement) bool

// FilterByDeviceID matches a single device.
func FilterByDeviceID(id uuid.UUID) FilterFunc {
	return func(a *Announcement) bool { return a.DeviceID == id }
}

// FilterSupports matches devices announcing an interface with the prefix.
func FilterSupports(prefix string) FilterFunc {
	return func(a *Announcement) bool { return a.Supports(prefix) }
}

// FilterAll combines filters with AND.
func FilterAll(filters ...FilterFunc) FilterFunc {
	return func(a *Announcement) bool {
		for _, f := range filters {
			if !f(a) {
				return false
			}
		}
		return true
	}
}

// Find returns the first announcement from src accepted by filter.
func Find(ctx context.Context, src Source, filter FilterFunc) (*Announcement, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch, err := src.Announcements(ctx)
	if err != nil {
		return nil, err
	}
	for {
		select {
		case a, ok := <-ch:
			if !ok {
				return nil, ErrNotFound
			}
			if filter == nil || filter(a) {
				return a, nil
			}
		case <-ctx.Done():
			return nil, ErrNotFound
		}
	}
}

// Collect gathers every distinct device seen until ctx is done, keeping the
// latest announcement per device.
func Collect(ctx context.Context, src Source, filter FilterFunc) ([]*Announcement, error) {
	ch, err := src.Announcements(ctx)
	if err != nil {
		return nil, err
	}
	var order []uuid.UUID
	latest := make(map[uuid.UUID]*Announcement)
	for a := range ch {
		if filter != nil && !filter(a) {
			continue
		}
		if _, seen := latest[a.DeviceID]; !seen {
			order = append(order, a.DeviceID)
		}
		latest[a.DeviceID] = a
	}
	out := make([]*Announcement, 0, len(order))
	for _, id := range order {
		out = append(out, latest[id])
	}
	return out, nil
}
