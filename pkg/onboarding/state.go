package onboarding

// State is an engine state.
type State uint8

const (
	StateIdle State = iota
	StateConnectingOnboardee
	StateWaitingOnboardeeAnnounce
	StateOnboardeeAnnounceReceived
	StateConfiguringOnboardee
	StateConnectingTarget
	StateWaitingTargetAnnounce
	StateTargetAnnounceReceived

	StateErrorConnectingOnboardee
	StateErrorWaitingOnboardeeAnnounce
	StateErrorOnboardeeAnnounceReceived
	StateErrorConfiguringOnboardee
	StateErrorConnectingTarget
	StateErrorWaitingTargetAnnounce
)

var stateNames = [...]string{
	StateIdle:                           "IDLE",
	StateConnectingOnboardee:            "CONNECTING_ONBOARDEE",
	StateWaitingOnboardeeAnnounce:       "WAITING_ONBOARDEE_ANNOUNCE",
	StateOnboardeeAnnounceReceived:      "ONBOARDEE_ANNOUNCE_RECEIVED",
	StateConfiguringOnboardee:           "CONFIGURING_ONBOARDEE",
	StateConnectingTarget:               "CONNECTING_TARGET",
	StateWaitingTargetAnnounce:          "WAITING_TARGET_ANNOUNCE",
	StateTargetAnnounceReceived:         "TARGET_ANNOUNCE_RECEIVED",
	StateErrorConnectingOnboardee:       "ERROR_CONNECTING_ONBOARDEE",
	StateErrorWaitingOnboardeeAnnounce:  "ERROR_WAITING_ONBOARDEE_ANNOUNCE",
	StateErrorOnboardeeAnnounceReceived: "ERROR_ONBOARDEE_ANNOUNCE_RECEIVED",
	StateErrorConfiguringOnboardee:      "ERROR_CONFIGURING_ONBOARDEE",
	StateErrorConnectingTarget:          "ERROR_CONNECTING_TARGET",
	StateErrorWaitingTargetAnnounce:     "ERROR_WAITING_TARGET_ANNOUNCE",
}

// String returns the state name.
func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "UNKNOWN"
}

// IsError reports whether s is one of the error states.
func (s State) IsError() bool {
	return s >= StateErrorConnectingOnboardee && s <= StateErrorWaitingTargetAnnounce
}

// IsTerminal reports whether a run in state s has finished successfully.
func (s State) IsTerminal() bool {
	return s == StateTargetAnnounceReceived
}

// Active reports whether a run is in progress, i.e. s is a working state
// other than IDLE and the terminal success state.
func (s State) Active() bool {
	return s > StateIdle && s < StateTargetAnnounceReceived
}

// Phase returns the network phase s belongs to.
func (s State) Phase() Phase {
	switch s {
	case StateConnectingOnboardee, StateWaitingOnboardeeAnnounce, StateOnboardeeAnnounceReceived,
		StateConfiguringOnboardee,
		StateErrorConnectingOnboardee, StateErrorWaitingOnboardeeAnnounce,
		StateErrorOnboardeeAnnounceReceived, StateErrorConfiguringOnboardee:
		return PhaseOnboardee
	case StateConnectingTarget, StateWaitingTargetAnnounce, StateTargetAnnounceReceived,
		StateErrorConnectingTarget, StateErrorWaitingTargetAnnounce:
		return PhaseTarget
	default:
		return PhaseNone
	}
}

// errorStates maps a working state to its error state.
var errorStates = map[State]State{
	StateConnectingOnboardee:       StateErrorConnectingOnboardee,
	StateWaitingOnboardeeAnnounce:  StateErrorWaitingOnboardeeAnnounce,
	StateOnboardeeAnnounceReceived: StateErrorOnboardeeAnnounceReceived,
	StateConfiguringOnboardee:      StateErrorConfiguringOnboardee,
	StateConnectingTarget:          StateErrorConnectingTarget,
	StateWaitingTargetAnnounce:     StateErrorWaitingTargetAnnounce,
}

// resumeStates maps an error state to the working state a resume re-enters.
// ERROR_ONBOARDEE_ANNOUNCE_RECEIVED is deliberately absent.
var resumeStates = map[State]State{
	StateErrorConnectingOnboardee:      StateConnectingOnboardee,
	StateErrorWaitingOnboardeeAnnounce: StateWaitingOnboardeeAnnounce,
	StateErrorConfiguringOnboardee:     StateConfiguringOnboardee,
	StateErrorConnectingTarget:         StateConnectingTarget,
	StateErrorWaitingTargetAnnounce:    StateWaitingTargetAnnounce,
}

// ErrorState returns the error state for working state s.
func (s State) ErrorState() (State, bool) {
	e, ok := errorStates[s]
	return e, ok
}

// ResumeState returns the working state a resume from s re-enters. It
// reports false for non-error states and for the non-resumable
// ERROR_ONBOARDEE_ANNOUNCE_RECEIVED.
func (s State) ResumeState() (State, bool) {
	r, ok := resumeStates[s]
	return r, ok
}

// Phase names the network a notification concerns.
type Phase uint8

const (
	PhaseNone Phase = iota
	PhaseOnboardee
	PhaseTarget

	// PhaseDevice is used for offboarding, which is not tied to a run.
	PhaseDevice
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseNone:
		return "NONE"
	case PhaseOnboardee:
		return "ONBOARDEE"
	case PhaseTarget:
		return "TARGET"
	case PhaseDevice:
		return "DEVICE"
	default:
		return "UNKNOWN"
	}
}
