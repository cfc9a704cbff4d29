// Package persistence keeps onboarding state in JSON files across restarts.
//
// Controllers record the devices they onboarded so they can be listed and
// offboarded later. Devices record their identity and the network they were
// configured with.
package persistence
