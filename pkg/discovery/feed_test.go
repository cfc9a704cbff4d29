package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedFind(t *testing.T) {
	feed := NewFeed(4)
	want := uuid.New()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan *Announcement, 1)
	go func() {
		a, err := Find(ctx, feed, FilterAll(FilterByDeviceID(want), FilterSupports(InterfaceOnboarding)))
		if err == nil {
			done <- a
		}
		close(done)
	}()

	// Wait for the subscriber to register.
	require.Eventually(t, func() bool {
		feed.mu.Lock()
		defer feed.mu.Unlock()
		return len(feed.subs) == 1
	}, time.Second, time.Millisecond)

	feed.Publish(&Announcement{DeviceID: uuid.New(), Interfaces: []string{InterfaceOnboarding}})
	feed.Publish(&Announcement{DeviceID: want, Interfaces: []string{InterfaceAbout}})
	feed.Publish(&Announcement{DeviceID: want, Interfaces: []string{InterfaceOnboarding}, Port: 1})

	a := <-done
	require.NotNil(t, a)
	assert.Equal(t, uint16(1), a.Port)
}

func TestFindNotFound(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := Find(ctx, NewFeed(1), nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCollect(t *testing.T) {
	feed := NewFeed(8)
	ctx, cancel := context.WithCancel(context.Background())

	a, b := uuid.New(), uuid.New()
	result := make(chan []*Announcement, 1)
	go func() {
		list, _ := Collect(ctx, feed, nil)
		result <- list
	}()

	require.Eventually(t, func() bool {
		feed.mu.Lock()
		defer feed.mu.Unlock()
		return len(feed.subs) == 1
	}, time.Second, time.Millisecond)

	feed.Publish(&Announcement{DeviceID: a, Port: 1})
	feed.Publish(&Announcement{DeviceID: b, Port: 2})
	feed.Publish(&Announcement{DeviceID: a, Port: 3})
	time.Sleep(10 * time.Millisecond)
	cancel()

	list := <-result
	require.Len(t, list, 2)
	assert.Equal(t, a, list[0].DeviceID)
	assert.Equal(t, uint16(3), list[0].Port)
	assert.Equal(t, b, list[1].DeviceID)
}
