package interactive

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alljoyn/services-onboarding/pkg/discovery"
	"github.com/alljoyn/services-onboarding/pkg/onboarding"
	"github.com/alljoyn/services-onboarding/pkg/wifi"
)

type fakeEngine struct {
	started   []onboarding.Request
	aborts    int
	offboards []string
	state     onboarding.State
	device    *onboarding.DeviceContext
	startErr  error
}

func (f *fakeEngine) Start(r onboarding.Request) error {
	f.started = append(f.started, r)
	return f.startErr
}

func (f *fakeEngine) Abort() error { f.aborts++; return nil }

func (f *fakeEngine) Offboard(locator string, port uint16) error {
	f.offboards = append(f.offboards, locator)
	return nil
}

func (f *fakeEngine) State() onboarding.State            { return f.state }
func (f *fakeEngine) Device() *onboarding.DeviceContext { return f.device }

func newTestShell() (*Shell, *fakeEngine, *bytes.Buffer) {
	var buf bytes.Buffer
	eng := &fakeEngine{}
	sh := NewWithWriter(onboarding.Request{}, &buf)
	sh.Attach(eng)
	return sh, eng, &buf
}

func TestShellSetAndStart(t *testing.T) {
	sh, eng, buf := newTestShell()

	sh.Execute("set onboardee AJ_Lamp")
	sh.Execute("set target HomeNet WPA2_CCMP secret123")
	sh.Execute("timeout target announce 40s")
	sh.Execute("start")

	require.Len(t, eng.started, 1)
	req := eng.started[0]
	assert.Equal(t, wifi.Network{SSID: "AJ_Lamp"}, req.Onboardee)
	assert.Equal(t, wifi.Network{SSID: "HomeNet", Auth: wifi.AuthWPA2CCMP, Passphrase: "secret123"}, req.Target)
	assert.Equal(t, 40*time.Second, req.TargetAnnounceTimeout)
	assert.NotContains(t, buf.String(), "secret123")
}

func TestShellUsageErrors(t *testing.T) {
	sh, eng, buf := newTestShell()

	sh.Execute("set lamp x")
	sh.Execute("set target HomeNet BOGUS")
	sh.Execute("timeout target join soon")
	sh.Execute("offboard 10.0.0.42 http")
	sh.Execute("frobnicate")

	out := buf.String()
	assert.Contains(t, out, `Unknown network "lamp"`)
	assert.Contains(t, out, "Error:")
	assert.Contains(t, out, `Invalid duration "soon"`)
	assert.Contains(t, out, `Invalid port "http"`)
	assert.Contains(t, out, "Unknown command: frobnicate")
	assert.Empty(t, eng.offboards)
}

func TestShellReportsEngineErrors(t *testing.T) {
	sh, eng, buf := newTestShell()
	eng.startErr = onboarding.ErrRunActive

	sh.Execute("start")
	assert.Contains(t, buf.String(), "Error: "+onboarding.ErrRunActive.Error())
}

func TestShellState(t *testing.T) {
	sh, eng, buf := newTestShell()
	id := uuid.New()
	eng.state = onboarding.StateConfiguringOnboardee
	eng.device = &onboarding.DeviceContext{
		ID:        id,
		Onboardee: &discovery.Announcement{DeviceName: "Lamp", Host: "lamp.local", Addresses: []string{"192.168.4.1"}, Port: 9955},
	}

	sh.Execute("state")
	out := buf.String()
	assert.Contains(t, out, "state: CONFIGURING_ONBOARDEE")
	assert.Contains(t, out, id.String())
	assert.Contains(t, out, "192.168.4.1:9955")
}

func TestShellQuitAbortsActiveRun(t *testing.T) {
	sh, eng, _ := newTestShell()
	eng.state = onboarding.StateWaitingOnboardeeAnnounce

	assert.True(t, sh.Execute("quit"))
	assert.Equal(t, 1, eng.aborts)

	sh2, eng2, _ := newTestShell()
	assert.True(t, sh2.Execute("exit"))
	assert.Zero(t, eng2.aborts)
}

func TestShellOffboard(t *testing.T) {
	sh, eng, _ := newTestShell()
	assert.False(t, sh.Execute("offboard 10.0.0.42 9955"))
	assert.Equal(t, []string{"10.0.0.42"}, eng.offboards)
}

func TestShellNotifications(t *testing.T) {
	sh, _, buf := newTestShell()

	sh.OnStateChange(onboarding.StateChange{Phase: onboarding.PhaseOnboardee, State: onboarding.StateConnectingOnboardee})
	sh.OnError(onboarding.ErrorEvent{
		Phase: onboarding.PhaseTarget, State: onboarding.StateErrorConnectingTarget,
		Kind: onboarding.KindJoinTimeout, Detail: "join timed out", Err: errors.New("join timed out"),
	})
	sh.OnOffboarded("10.0.0.42", 9955)

	out := buf.String()
	assert.Contains(t, out, "[ONBOARDEE] CONNECTING_ONBOARDEE")
	assert.Contains(t, out, "[TARGET] JOIN_TIMEOUT: join timed out")
	assert.Contains(t, out, "'start' resumes from here")
	assert.Contains(t, out, "offboarded 10.0.0.42:9955")
}
