// Package wifi models the Wi-Fi networks that take part in onboarding.
//
// A Network describes one access point: its SSID, the authentication type
// and the credential used to join it. The package also holds the rules that
// do not depend on any particular Wi-Fi stack:
//
//   - SSID normalization (wrapping quotes are stripped before comparison)
//   - WEP key validation (ASCII vs hex keys by length and charset)
//   - Credential encoding for transmission to a device
//   - Scan classification into onboardable devices and target networks
//
// # Onboardable Networks
//
// A device that is waiting to be onboarded opens its own soft access point
// whose SSID starts with "AJ_" or ends with "_AJ". Every other visible
// network is a candidate target network.
//
// # Joining
//
// Joining is delegated to a Joiner. The nmcli subpackage provides one backed
// by NetworkManager.
package wifi
