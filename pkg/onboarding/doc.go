// Package onboarding implements the onboarding engine: a state machine that
// moves a headless device from its own access point onto a target Wi-Fi
// network.
//
// A run has two phases. In the onboardee phase the controller joins the
// device's soft AP, waits for the device to announce itself, checks that
// it accepts credentials and pushes the target network to it. In the
// target phase the controller joins the target network and waits for the
// same device (matched by its announced identity) to announce again.
//
//	IDLE
//	  -> CONNECTING_ONBOARDEE
//	  -> WAITING_ONBOARDEE_ANNOUNCE
//	  -> ONBOARDEE_ANNOUNCE_RECEIVED
//	  -> CONFIGURING_ONBOARDEE
//	  -> CONNECTING_TARGET
//	  -> WAITING_TARGET_ANNOUNCE
//	  -> TARGET_ANNOUNCE_RECEIVED
//
// Every working state has an error state. Calling Start again from an error
// state resumes at the phase that failed, except for
// ERROR_ONBOARDEE_ANNOUNCE_RECEIVED which means the device cannot be
// onboarded at all.
//
// All state lives on a single event loop goroutine. Public methods, join
// results, announcements and timer expiries are posted to that loop, so a
// late result for an abandoned attempt is dropped by a state check instead
// of racing the transition that superseded it. Blocking collaborator calls
// run on a goroutine pool and post their result back.
//
// Notifications are delivered to a Listener in transition order on a
// separate goroutine, so a listener may call back into the Engine.
package onboarding
