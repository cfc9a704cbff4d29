package onboarding

import "errors"

// Engine errors.
var (
	// ErrRunActive is returned by Start while a run is in a working state.
	ErrRunActive = errors.New("onboarding: run already active")

	// ErrDeviceIncompatible is returned by Start when the previous attempt
	// found that the device does not accept credentials. Abort to reset.
	ErrDeviceIncompatible = errors.New("onboarding: device does not support onboarding")

	ErrInvalidRequest = errors.New("onboarding: invalid request")
	ErrClosed         = errors.New("onboarding: engine closed")

	// ErrNotIdle is returned by Offboard unless the engine is idle.
	ErrNotIdle = errors.New("onboarding: engine not idle")
)

// ErrorKind classifies a failure reported through Listener.OnError.
type ErrorKind uint8

const (
	KindJoinTimeout ErrorKind = iota + 1
	KindJoinAuthError
	KindAnnounceTimeout
	KindDeviceIncompatible
	KindConfigurationFailed
	KindOffboardFailed
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindJoinTimeout:
		return "JOIN_TIMEOUT"
	case KindJoinAuthError:
		return "JOIN_AUTH_ERROR"
	case KindAnnounceTimeout:
		return "ANNOUNCE_TIMEOUT"
	case KindDeviceIncompatible:
		return "DEVICE_INCOMPATIBLE"
	case KindConfigurationFailed:
		return "CONFIGURATION_FAILED"
	case KindOffboardFailed:
		return "OFFBOARD_FAILED"
	default:
		return "UNKNOWN"
	}
}

// Resumable reports whether a run that failed with k can be resumed.
func (k ErrorKind) Resumable() bool {
	return k != KindDeviceIncompatible
}
