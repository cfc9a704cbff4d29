package onboarding

import (
	"time"

	"github.com/alljoyn/services-onboarding/pkg/discovery"
	"github.com/alljoyn/services-onboarding/pkg/log"
)

// event returns a trace event stamped with the run and device.
func (e *Engine) event(cat log.Category) log.Event {
	ev := log.Event{
		Timestamp: time.Now(),
		SessionID: e.runID,
		Layer:     log.LayerEngine,
		Category:  cat,
		LocalRole: log.RoleController,
		Phase:     e.state.Phase().String(),
	}
	if e.device != nil {
		ev.DeviceID = e.device.ID.String()
	}
	return ev
}

func (e *Engine) traceState(from, to State, reason string) {
	ev := e.event(log.CategoryState)
	ev.StateChange = &log.StateChangeEvent{
		Entity:   log.StateEntityOnboarding,
		OldState: from.String(),
		NewState: to.String(),
		Reason:   reason,
	}
	e.trace.Log(ev)
}

func (e *Engine) traceError(kind ErrorKind, err error) {
	ev := e.event(log.CategoryError)
	ev.Error = &log.ErrorEventData{
		Layer:   log.LayerEngine,
		Kind:    kind.String(),
		Message: err.Error(),
		Context: e.state.String(),
	}
	e.trace.Log(ev)
}

func (e *Engine) traceAnnouncement(a *discovery.Announcement, accepted bool, reason string) {
	ev := e.event(log.CategoryAnnouncement)
	ev.Direction = log.DirectionIn
	ev.Announcement = &log.AnnouncementEvent{
		Instance: a.InstanceName,
		Locator:  a.Locator(),
		Port:     a.Port,
		Accepted: accepted,
		Reason:   reason,
	}
	ev.DeviceID = a.DeviceID.String()
	e.trace.Log(ev)
}

func (e *Engine) traceAction(name, target string, took time.Duration, err error) {
	ev := e.event(log.CategoryAction)
	ev.Action = &log.ActionEvent{Name: name, Target: target, Duration: took}
	if err != nil {
		ev.Action.Err = err.Error()
	}
	e.trace.Log(ev)
}
