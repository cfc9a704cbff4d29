// Package transport carries onboarding configuration sessions.
//
// A session is a plain TCP connection on the device's soft access point.
// Messages are CBOR payloads framed with a 4-byte big-endian length prefix:
//
//	┌──────────────┬────────────────────┐
//	│ length (4B)  │ CBOR message       │
//	└──────────────┴────────────────────┘
//
// The soft AP link is short lived and often flaky right after the
// controller joins it, so Client.Connect retries the dial with exponential
// backoff before giving up.
package transport
