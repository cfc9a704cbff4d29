package main

import (
	"sync"

	"github.com/alljoyn/services-onboarding/pkg/onboarding"
)

// offboardResult is queued when an offboard succeeded.
type offboardResult struct {
	locator string
	port    uint16
}

// eventQueue hands engine notifications to a command goroutine. Sends give
// up once the queue is stopped so a finished command never stalls the
// engine's notifier.
type eventQueue struct {
	ch       chan any
	stopped  chan struct{}
	stopOnce sync.Once
}

func newEventQueue() *eventQueue {
	return &eventQueue{ch: make(chan any, 32), stopped: make(chan struct{})}
}

func (q *eventQueue) send(ev any) {
	select {
	case q.ch <- ev:
	case <-q.stopped:
	}
}

func (q *eventQueue) stop() {
	q.stopOnce.Do(func() { close(q.stopped) })
}

func (q *eventQueue) OnStateChange(c onboarding.StateChange) { q.send(c) }
func (q *eventQueue) OnError(e onboarding.ErrorEvent)        { q.send(e) }

func (q *eventQueue) OnOffboarded(locator string, port uint16) {
	q.send(offboardResult{locator: locator, port: port})
}

var (
	_ onboarding.Listener         = (*eventQueue)(nil)
	_ onboarding.OffboardListener = (*eventQueue)(nil)
)
