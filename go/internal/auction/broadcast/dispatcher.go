package broadcast

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mcdev12/leagify/go/internal/auction/events"
	"github.com/mcdev12/leagify/go/internal/obs"
	"github.com/rs/zerolog/log"
)

var (
	// ErrBufferFull is returned when the dispatcher cannot accept more events.
	ErrBufferFull = errors.New("broadcast buffer full")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("broadcast dispatcher closed")
)

// DispatcherConfig holds dispatcher tuning.
type DispatcherConfig struct {
	Name           string
	BufferSize     int
	PublishTimeout time.Duration
}

// DefaultDispatcherConfig returns default dispatcher settings.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Name:           "dispatcher",
		BufferSize:     1024,
		PublishTimeout: 5 * time.Second,
	}
}

type message struct {
	topic string
	event events.Envelope
}

// Dispatcher decouples publishers from a slow sink. Publish never blocks;
// events are delivered to the sink one at a time in the order accepted.
type Dispatcher struct {
	next   Gateway
	config DispatcherConfig
	queue  chan message

	mu     sync.RWMutex
	closed bool

	done chan struct{}
}

// NewDispatcher creates a dispatcher and starts its delivery goroutine.
func NewDispatcher(next Gateway, config DispatcherConfig) *Dispatcher {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultDispatcherConfig().BufferSize
	}
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = DefaultDispatcherConfig().PublishTimeout
	}
	d := &Dispatcher{
		next:   next,
		config: config,
		queue:  make(chan message, config.BufferSize),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

// Publish enqueues the event. It fails fast when the buffer is full.
func (d *Dispatcher) Publish(_ context.Context, topic string, event events.Envelope) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.queue <- message{topic: topic, event: event}:
		return nil
	default:
		obs.ObserveDrop(d.config.Name)
		log.Warn().
			Str("sink", d.config.Name).
			Str("topic", topic).
			Str("event_type", string(event.EventType)).
			Uint64("sequence", event.Sequence).
			Msg("broadcast buffer full, dropping event")
		return ErrBufferFull
	}
}

// Close stops accepting events and waits for queued ones to be delivered or
// for ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for msg := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.config.PublishTimeout)
		err := d.next.Publish(ctx, msg.topic, msg.event)
		cancel()

		obs.ObservePublish(d.config.Name, err)
		if err != nil {
			log.Error().
				Err(err).
				Str("sink", d.config.Name).
				Str("topic", msg.topic).
				Str("event_id", msg.event.EventID).
				Str("event_type", string(msg.event.EventType)).
				Msg("failed to deliver event")
		}
	}
}
