// Package nmcli joins and scans Wi-Fi networks through NetworkManager's
// command line client.
//
// The Controller remembers the network the station was on before its first
// join so Restore can put it back after an onboarding run, and deletes the
// connection profiles it created along the way. All commands go through a
// Runner so tests can script nmcli output.
package nmcli
