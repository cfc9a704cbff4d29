package onboarding

import (
	"context"
	"time"

	"github.com/alljoyn/services-onboarding/pkg/discovery"
)

// Follow feeds announcements from src into the engine until ctx is done,
// the source closes its channel or the engine is closed.
func (e *Engine) Follow(ctx context.Context, src discovery.Source) error {
	ch, err := src.Announcements(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case a, ok := <-ch:
			if !ok {
				return nil
			}
			if err := e.Announce(a); err != nil {
				return err
			}
		}
	}
}

// Watcher reports association changes that matter to the current join
// until ctx is done.
type Watcher interface {
	Watch(ctx context.Context, interval time.Duration, fn func(ssid string))
}

// FollowNetwork forwards association changes seen by w to NetworkChanged.
// It blocks until ctx is done.
func (e *Engine) FollowNetwork(ctx context.Context, w Watcher, interval time.Duration) {
	w.Watch(ctx, interval, func(ssid string) {
		_ = e.NetworkChanged(ssid)
	})
}
