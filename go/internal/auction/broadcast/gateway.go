// Package broadcast carries accepted auction events to subscribers. Delivery
// is best effort: a failing sink is logged and never affects auction state.
package broadcast

import (
	"context"
	"errors"

	"github.com/mcdev12/leagify/go/internal/auction/events"
)

// Gateway publishes an event on a topic.
type Gateway interface {
	Publish(ctx context.Context, topic string, event events.Envelope) error
}

// GatewayFunc adapts a function to Gateway.
type GatewayFunc func(ctx context.Context, topic string, event events.Envelope) error

func (f GatewayFunc) Publish(ctx context.Context, topic string, event events.Envelope) error {
	return f(ctx, topic, event)
}

// Multi fans an event out to every sink and joins their errors.
type Multi []Gateway

func (m Multi) Publish(ctx context.Context, topic string, event events.Envelope) error {
	var errs []error
	for _, g := range m {
		if err := g.Publish(ctx, topic, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every event.
var Discard Gateway = GatewayFunc(func(context.Context, string, events.Envelope) error { return nil })
