package listener

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	calls atomic.Int32
	err   error
}

func (c *fakeCache) Invalidate(ctx context.Context) error {
	c.calls.Add(1)
	return c.err
}

type fakeNotifier struct {
	listenErr error
	ch        chan *pq.Notification
	closed    atomic.Bool
	mu        sync.Mutex
	channels  []string
}

func (n *fakeNotifier) Listen(channel string) error {
	n.mu.Lock()
	n.channels = append(n.channels, channel)
	n.mu.Unlock()
	return n.listenErr
}

func (n *fakeNotifier) NotificationChannel() <-chan *pq.Notification { return n.ch }
func (n *fakeNotifier) Ping() error                                  { return nil }
func (n *fakeNotifier) Close() error {
	n.closed.Store(true)
	return nil
}

type connector struct {
	mu        sync.Mutex
	notifiers []*fakeNotifier
	listenErr error
}

func (c *connector) connect() Notifier {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := &fakeNotifier{ch: make(chan *pq.Notification), listenErr: c.listenErr}
	c.notifiers = append(c.notifiers, n)
	return n
}

func (c *connector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.notifiers)
}

func (c *connector) get(i int) *fakeNotifier {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notifiers[i]
}

func TestChangeListener_InvalidatesOnNotification(t *testing.T) {
	cache := &fakeCache{}
	conn := &connector{}
	l := newChangeListener("transactions_changed", cache, conn.connect)

	l.Start(context.Background())
	defer l.Stop()

	require.Eventually(t, func() bool { return cache.calls.Load() == 1 }, time.Second, 5*time.Millisecond, "invalidated on connect")

	n := conn.get(0)
	n.ch <- &pq.Notification{Channel: "transactions_changed", Extra: "t1"}
	n.ch <- &pq.Notification{Channel: "transactions_changed", Extra: "t2"}

	assert.Eventually(t, func() bool { return cache.calls.Load() == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"transactions_changed"}, n.channels)
}

func TestChangeListener_ReconnectsAfterConnectionLoss(t *testing.T) {
	cache := &fakeCache{err: errors.New("redis down")}
	conn := &connector{}
	l := newChangeListener("transactions_changed", cache, conn.connect)
	l.reconnectInterval = 10 * time.Millisecond

	l.Start(context.Background())
	defer l.Stop()

	require.Eventually(t, func() bool { return conn.count() == 1 }, time.Second, 5*time.Millisecond)
	conn.get(0).ch <- nil

	assert.Eventually(t, func() bool { return conn.count() == 2 }, time.Second, 5*time.Millisecond)
	assert.True(t, conn.get(0).closed.Load())
}

func TestChangeListener_RetriesFailedListen(t *testing.T) {
	conn := &connector{listenErr: errors.New("no such channel")}
	l := newChangeListener("transactions_changed", &fakeCache{}, conn.connect)
	l.reconnectInterval = 10 * time.Millisecond

	l.Start(context.Background())

	assert.Eventually(t, func() bool { return conn.count() >= 2 }, time.Second, 5*time.Millisecond)
	l.Stop()
}

func TestChangeListener_StopsOnContextCancel(t *testing.T) {
	conn := &connector{}
	l := newChangeListener("transactions_changed", &fakeCache{}, conn.connect)
	ctx, cancel := context.WithCancel(context.Background())

	l.Start(ctx)
	require.Eventually(t, func() bool { return conn.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-l.done:
	case <-time.After(time.Second):
		t.Fatal("listener did not stop")
	}
	l.Stop()
}
