// Package wire defines the CBOR messages of the onboarding configuration
// session.
//
// A controller that has joined a device's soft access point opens a session
// to the device and sends requests; the device answers each with a response
// carrying the same message id. All maps use integer keys.
//
// # Methods
//
//   - ConfigureWiFi: stores target network credentials on the device
//   - Connect: tells the device to leave its soft AP and join the target
//   - Offboard: makes the device forget its configuration
//   - GetState: reports the device-side onboarding state
//
// The passphrase in ConfigureWiFi is hex encoded by the sender, see
// wifi.WirePassphrase.
package wire
