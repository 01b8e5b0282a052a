// Package listener invalidates the page cache when the transactions table changes.
package listener

import (
	"context"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/sbilibin2017/gw-transactions/internal/logger"
)

const (
	defaultReconnectInterval = 5 * time.Second
	defaultPingInterval      = 90 * time.Second
)

// Invalidator drops cached list pages.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Notifier is the subset of *pq.Listener the listener uses.
type Notifier interface {
	Listen(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

// ChangeListener receives Postgres notifications on a channel and invalidates the cache on each.
type ChangeListener struct {
	channel           string
	cache             Invalidator
	connect           func() Notifier
	reconnectInterval time.Duration
	pingInterval      time.Duration

	shutdownCh chan struct{}
	done       chan struct{}
	stopOnce   sync.Once
}

// NewChangeListener creates a listener for channel on the database at connStr.
func NewChangeListener(connStr, channel string, cache Invalidator) *ChangeListener {
	l := newChangeListener(channel, cache, nil)
	l.connect = func() Notifier {
		return pq.NewListener(connStr, 10*time.Second, time.Minute, logEvent)
	}
	return l
}

func newChangeListener(channel string, cache Invalidator, connect func() Notifier) *ChangeListener {
	return &ChangeListener{
		channel:           channel,
		cache:             cache,
		connect:           connect,
		reconnectInterval: defaultReconnectInterval,
		pingInterval:      defaultPingInterval,
		shutdownCh:        make(chan struct{}),
		done:              make(chan struct{}),
	}
}

// Start begins listening in a background goroutine.
func (l *ChangeListener) Start(ctx context.Context) {
	go l.listen(ctx)
	logger.Log.Infow("change listener started", "channel", l.channel)
}

// Stop shuts the listener down and waits for it to exit.
func (l *ChangeListener) Stop() {
	l.stopOnce.Do(func() { close(l.shutdownCh) })
	<-l.done
	logger.Log.Infow("change listener stopped", "channel", l.channel)
}

func (l *ChangeListener) listen(ctx context.Context) {
	defer close(l.done)

	for {
		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		default:
			l.connectAndListen(ctx)
		}

		// Wait before reconnecting
		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		case <-time.After(l.reconnectInterval):
			logger.Log.Infow("reconnecting change listener", "channel", l.channel)
		}
	}
}

func (l *ChangeListener) connectAndListen(ctx context.Context) {
	notifier := l.connect()
	defer notifier.Close()

	if err := notifier.Listen(l.channel); err != nil {
		logger.Log.Errorw("failed to listen", "channel", l.channel, "error", err)
		return
	}

	// anything cached while disconnected may be stale
	l.invalidate(ctx)

	ping := time.NewTicker(l.pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		case n := <-notifier.NotificationChannel():
			if n == nil {
				// connection lost
				return
			}
			logger.Log.Debugw("transaction changed", "channel", n.Channel, "id", n.Extra)
			l.invalidate(ctx)
		case <-ping.C:
			go func() {
				if err := notifier.Ping(); err != nil {
					logger.Log.Warnw("listener ping failed", "error", err)
				}
			}()
		}
	}
}

func (l *ChangeListener) invalidate(ctx context.Context) {
	if err := l.cache.Invalidate(ctx); err != nil {
		logger.Log.Warnw("failed to invalidate page cache", "error", err)
	}
}

func logEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventConnected:
		logger.Log.Infow("connected to notification channel")
	case pq.ListenerEventDisconnected:
		logger.Log.Warnw("disconnected from notification channel", "error", err)
	case pq.ListenerEventReconnected:
		logger.Log.Infow("reconnected to notification channel")
	case pq.ListenerEventConnectionAttemptFailed:
		logger.Log.Warnw("notification connection attempt failed", "error", err)
	}
}
