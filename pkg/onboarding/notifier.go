package onboarding

import "sync"

// notifier delivers listener calls in order on its own goroutine. The
// queue is unbounded so the event loop never waits on a listener.
type notifier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	closed  bool
	stopped chan struct{}
}

func newNotifier() *notifier {
	n := &notifier{stopped: make(chan struct{})}
	n.cond = sync.NewCond(&n.mu)
	go n.run()
	return n
}

func (n *notifier) push(fn func()) {
	n.mu.Lock()
	if !n.closed {
		n.queue = append(n.queue, fn)
		n.cond.Signal()
	}
	n.mu.Unlock()
}

func (n *notifier) run() {
	defer close(n.stopped)
	for {
		n.mu.Lock()
		for len(n.queue) == 0 && !n.closed {
			n.cond.Wait()
		}
		if len(n.queue) == 0 {
			n.mu.Unlock()
			return
		}
		fn := n.queue[0]
		n.queue[0] = nil
		n.queue = n.queue[1:]
		n.mu.Unlock()

		fn()
	}
}

// close drains pending notifications and waits for the goroutine to exit.
func (n *notifier) close() {
	n.mu.Lock()
	n.closed = true
	n.cond.Signal()
	n.mu.Unlock()
	<-n.stopped
}
