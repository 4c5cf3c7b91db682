// Package bus carries messages between channel adapters and the agent
// loop over buffered in-process queues.
package bus

import (
	"context"

	"github.com/google/uuid"
)

// queueSize bounds each direction; publishers block once the agent or
// the adapters fall this far behind.
const queueSize = 100

// Inbound is a message arriving from a channel adapter.
type Inbound struct {
	ID       string
	Channel  string
	ChatID   string
	SenderID string
	Content  string
}

// Outbound is a reply heading back to a channel adapter.
type Outbound struct {
	ID      string
	Channel string
	ChatID  string
	Content string
}

// Bus connects channel adapters to the agent loop.
type Bus struct {
	inbound  chan Inbound
	outbound chan Outbound
}

// New returns a Bus with buffered queues in both directions.
func New() *Bus {
	return &Bus{
		inbound:  make(chan Inbound, queueSize),
		outbound: make(chan Outbound, queueSize),
	}
}

// PublishInbound enqueues a message for the agent, assigning a trace ID
// when the adapter did not set one.
func (b *Bus) PublishInbound(ctx context.Context, msg Inbound) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	select {
	case b.inbound <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ConsumeInbound receives the next inbound message.
func (b *Bus) ConsumeInbound(ctx context.Context) (Inbound, error) {
	select {
	case msg := <-b.inbound:
		return msg, nil
	case <-ctx.Done():
		return Inbound{}, ctx.Err()
	}
}

// PublishOutbound enqueues a reply for the channel adapters.
func (b *Bus) PublishOutbound(ctx context.Context, msg Outbound) error {
	select {
	case b.outbound <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Outbound exposes the reply queue for a channel adapter to range over.
func (b *Bus) Outbound() <-chan Outbound {
	return b.outbound
}
