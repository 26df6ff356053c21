package notify

import (
	"context"
	"sync"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	minReconnect = time.Second
	maxReconnect = 64 * time.Second
)

// Source is the part of pq.Listener that Dispatcher needs.
type Source interface {
	Listen(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Close() error
}

// Dispatcher fans notifications from one database connection out to any
// number of in-process subscribers.
type Dispatcher struct {
	src Source
	log *zap.Logger

	mu   sync.Mutex
	subs map[string][]chan Notification
}

// NewListener connects a reconnecting pq.Listener for dsn and wraps it in
// a Dispatcher. Reconnection uses pq's exponential backoff.
func NewListener(dsn string, log *zap.Logger) *Dispatcher {
	l := pq.NewListener(dsn, minReconnect, maxReconnect, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			log.Info("notification listener connected")
		case pq.ListenerEventDisconnected:
			log.Warn("notification listener disconnected", zap.Error(err))
		case pq.ListenerEventReconnected:
			log.Info("notification listener reconnected")
		case pq.ListenerEventConnectionAttemptFailed:
			log.Warn("notification listener connection attempt failed", zap.Error(err))
		}
	})
	return NewDispatcher(l, log)
}

// NewDispatcher wraps an existing notification source.
func NewDispatcher(src Source, log *zap.Logger) *Dispatcher {
	return &Dispatcher{src: src, log: log, subs: make(map[string][]chan Notification)}
}

// Subscribe returns a channel receiving every notification on channel.
// The returned channel is buffered; slow subscribers drop messages
// rather than block the bus.
func (d *Dispatcher) Subscribe(channel string) (<-chan Notification, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.subs[channel]; !ok {
		if err := d.src.Listen(channel); err != nil && err != pq.ErrChannelAlreadyOpen {
			return nil, err
		}
	}
	ch := make(chan Notification, 64)
	d.subs[channel] = append(d.subs[channel], ch)
	return ch, nil
}

// Run delivers notifications until ctx is done, then closes the source
// and every subscriber channel.
func (d *Dispatcher) Run(ctx context.Context) {
	defer d.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-d.src.NotificationChannel():
			if !ok {
				return
			}
			if n == nil {
				// pq sends nil after a reconnect: anything may have
				// changed, so every subscriber re-reads.
				d.broadcastReconnect()
				continue
			}
			d.deliver(Notification{Channel: n.Channel, Payload: n.Extra})
		}
	}
}

func (d *Dispatcher) deliver(n Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ch := range d.subs[n.Channel] {
		select {
		case ch <- n:
		default:
			d.log.Warn("dropping notification for slow subscriber",
				zap.String("channel", n.Channel), zap.String("payload", n.Payload))
		}
	}
}

func (d *Dispatcher) broadcastReconnect() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for channel, subs := range d.subs {
		for _, ch := range subs {
			select {
			case ch <- Notification{Channel: channel}:
			default:
			}
		}
	}
}

func (d *Dispatcher) shutdown() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for channel, subs := range d.subs {
		for _, ch := range subs {
			close(ch)
		}
		delete(d.subs, channel)
	}
	if err := d.src.Close(); err != nil {
		d.log.Warn("closing notification listener", zap.Error(err))
	}
}
