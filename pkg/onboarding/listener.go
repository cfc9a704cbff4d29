package onboarding

import (
	"time"

	"github.com/google/uuid"

	"github.com/alljoyn/services-onboarding/pkg/discovery"
)

// DeviceContext is what the engine knows about the device being onboarded.
// It is created when the onboardee announcement is accepted.
type DeviceContext struct {
	// ID is the identity the target announcement must match.
	ID uuid.UUID

	// Onboardee is the announcement seen on the device's soft AP.
	Onboardee *discovery.Announcement

	// Target is the announcement seen on the target network, once matched.
	Target *discovery.Announcement

	// AcceptedAt is when the onboardee announcement was accepted.
	AcceptedAt time.Time
}

// Clone returns a deep copy.
func (d *DeviceContext) Clone() *DeviceContext {
	if d == nil {
		return nil
	}
	c := *d
	c.Onboardee = d.Onboardee.Clone()
	c.Target = d.Target.Clone()
	return &c
}

// StateChange is delivered on every successful transition.
type StateChange struct {
	RunID string
	Phase Phase
	State State

	// Device is a copy of the device context, nil before the onboardee
	// announcement was accepted.
	Device *DeviceContext
}

// ErrorEvent is delivered when a run enters an error state, and when an
// offboard fails.
type ErrorEvent struct {
	RunID string
	Phase Phase

	// State is the error state entered. It stays unchanged for offboard
	// failures.
	State State

	Kind   ErrorKind
	Detail string
	Err    error
}

// Listener receives engine notifications. Calls are made one at a time,
// in transition order.
type Listener interface {
	OnStateChange(StateChange)
	OnError(ErrorEvent)
}

// OffboardListener is optionally implemented by a Listener to learn about
// successful offboards.
type OffboardListener interface {
	OnOffboarded(locator string, port uint16)
}

// ListenerFuncs adapts plain functions to a Listener. Nil fields are
// ignored.
type ListenerFuncs struct {
	StateChange func(StateChange)
	Error       func(ErrorEvent)
	Offboarded  func(locator string, port uint16)
}

func (f ListenerFuncs) OnStateChange(c StateChange) {
	if f.StateChange != nil {
		f.StateChange(c)
	}
}

func (f ListenerFuncs) OnError(e ErrorEvent) {
	if f.Error != nil {
		f.Error(e)
	}
}

func (f ListenerFuncs) OnOffboarded(locator string, port uint16) {
	if f.Offboarded != nil {
		f.Offboarded(locator, port)
	}
}

type noopListener struct{}

func (noopListener) OnStateChange(StateChange) {}
func (noopListener) OnError(ErrorEvent)        {}
