// Package discovery implements the announcement channel used during
// onboarding.
//
// Devices announce themselves over mDNS/DNS-SD with the service type
// _ajonb._tcp. Each announcement names where the device's configuration
// session can be reached (host and port) and carries TXT metadata:
//
//   - appid:  the device identity, a UUID that survives network changes
//   - ifaces: comma-separated names of the interfaces the device implements
//   - dn:     device name (optional)
//   - model:  model name (optional)
//
// A device is announced twice during onboarding: first on its own soft
// access point, then again on the target network after it has joined it.
// The appid is what ties the two announcements to the same device.
//
// The browser delivers every new or changed announcement on a single
// stream. Filtering by phase and identity is left to the consumer.
package discovery
