package onboarding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResumeMapping(t *testing.T) {
	tests := []struct {
		from State
		want State
	}{
		{StateErrorConnectingOnboardee, StateConnectingOnboardee},
		{StateErrorWaitingOnboardeeAnnounce, StateWaitingOnboardeeAnnounce},
		{StateErrorConfiguringOnboardee, StateConfiguringOnboardee},
		{StateErrorConnectingTarget, StateConnectingTarget},
		{StateErrorWaitingTargetAnnounce, StateWaitingTargetAnnounce},
	}
	for _, tt := range tests {
		t.Run(tt.from.String(), func(t *testing.T) {
			got, ok := tt.from.ResumeState()
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)

			back, ok := got.ErrorState()
			assert.True(t, ok)
			assert.Equal(t, tt.from, back)
		})
	}

	_, ok := StateErrorOnboardeeAnnounceReceived.ResumeState()
	assert.False(t, ok)
	_, ok = StateConfiguringOnboardee.ResumeState()
	assert.False(t, ok)
}

func TestStateClassification(t *testing.T) {
	for s := StateIdle; s <= StateErrorWaitingTargetAnnounce; s++ {
		assert.NotEqual(t, "UNKNOWN", s.String())
		_, hasErr := s.ErrorState()
		switch {
		case s == StateIdle, s == StateTargetAnnounceReceived:
			assert.False(t, s.Active(), s.String())
			assert.False(t, s.IsError(), s.String())
			assert.False(t, hasErr, s.String())
		case s.IsError():
			assert.False(t, s.Active(), s.String())
		default:
			assert.True(t, s.Active(), s.String())
			assert.True(t, hasErr, s.String())
		}
	}
	assert.True(t, StateTargetAnnounceReceived.IsTerminal())
	assert.Equal(t, "UNKNOWN", State(99).String())
}

func TestStatePhase(t *testing.T) {
	assert.Equal(t, PhaseNone, StateIdle.Phase())
	assert.Equal(t, PhaseOnboardee, StateConfiguringOnboardee.Phase())
	assert.Equal(t, PhaseOnboardee, StateErrorOnboardeeAnnounceReceived.Phase())
	assert.Equal(t, PhaseTarget, StateConnectingTarget.Phase())
	assert.Equal(t, PhaseTarget, StateErrorWaitingTargetAnnounce.Phase())
	assert.Equal(t, "DEVICE", PhaseDevice.String())
}

func TestErrorKind(t *testing.T) {
	for k := KindJoinTimeout; k <= KindOffboardFailed; k++ {
		assert.NotEqual(t, "UNKNOWN", k.String())
		assert.Equal(t, k != KindDeviceIncompatible, k.Resumable())
	}
}
