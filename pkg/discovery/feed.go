package discovery

import (
	"context"
	"sync"
)

// Feed is an in-process Source. Announcements published to it are
// delivered to every active subscriber; publishing never blocks on a slow
// subscriber for longer than its buffer allows, excess announcements are
// dropped.
type Feed struct {
	mu     sync.Mutex
	subs   map[chan *Announcement]struct{}
	buffer int
}

// NewFeed creates a Feed with the given per-subscriber buffer.
func NewFeed(buffer int) *Feed {
	if buffer <= 0 {
		buffer = 16
	}
	return &Feed{subs: make(map[chan *Announcement]struct{}), buffer: buffer}
}

// Announcements subscribes until ctx is done.
func (f *Feed) Announcements(ctx context.Context) (<-chan *Announcement, error) {
	ch := make(chan *Announcement, f.buffer)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs, ch)
		close(ch)
		f.mu.Unlock()
	}()
	return ch, nil
}

// Publish delivers a copy of a to all subscribers. It returns the number of
// subscribers that received it.
func (f *Feed) Publish(a *Announcement) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for ch := range f.subs {
		select {
		case ch <- a.Clone():
			n++
		default:
		}
	}
	return n
}

var _ Source = (*Feed)(nil)
