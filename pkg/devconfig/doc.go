// Package devconfig pushes Wi-Fi credentials to a device over a
// configuration session, and implements the device side of that session.
//
// The controller side is Client. Configure sends ConfigureWiFi followed by
// Connect; after Connect the device leaves its soft access point, so a
// session that drops before the Connect reply arrives is expected and
// counts as success. Offboard asks a device to forget its configuration.
//
// The device side is Server, which decodes requests and dispatches them to
// a Handler. Device is an in-memory Handler used by the simulator and in
// tests.
package devconfig
