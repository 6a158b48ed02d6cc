package bus

import (
	"context"
	"sync"

	"github.com/coopco/dodgem/internal/bump"
)

// MessageBus is a hub-and-spoke bus using Go channels. It carries engine
// events to observers and chat messages between the channels and the app.
// A single Dispatch goroutine delivers events and outbound messages, so
// subscribers see them in publication order.
type MessageBus struct {
	events   chan bump.Event
	inbound  chan InboundMessage
	outbound chan OutboundMessage

	eventSubs map[bump.EventKind][]func(bump.Event) // kind -> subscribers, "" = all
	outSubs   map[string][]func(OutboundMessage)    // channel name -> subscribers, "" = all
	mu        sync.RWMutex

	done      chan struct{}
	closeOnce sync.Once
}

// NewMessageBus creates a new MessageBus with the given buffer size.
// If bufSize is 0, defaults to 100.
func NewMessageBus(bufSize int) *MessageBus {
	if bufSize <= 0 {
		bufSize = 100
	}
	return &MessageBus{
		events:    make(chan bump.Event, bufSize),
		inbound:   make(chan InboundMessage, bufSize),
		outbound:  make(chan OutboundMessage, bufSize),
		eventSubs: make(map[bump.EventKind][]func(bump.Event)),
		outSubs:   make(map[string][]func(OutboundMessage)),
		done:      make(chan struct{}),
	}
}

// Emit publishes an engine event, making the bus a bump.ProgressSink.
// After Close, events are buffered while there is room and dropped otherwise.
func (b *MessageBus) Emit(e bump.Event) {
	select {
	case b.events <- e:
		return
	default:
	}
	select {
	case b.events <- e:
	case <-b.done:
	}
}

// PublishInbound sends an inbound message onto the bus.
func (b *MessageBus) PublishInbound(msg InboundMessage) {
	select {
	case b.inbound <- msg:
		return
	default:
	}
	select {
	case b.inbound <- msg:
	case <-b.done:
	}
}

// PublishOutbound sends an outbound message onto the bus.
func (b *MessageBus) PublishOutbound(msg OutboundMessage) {
	select {
	case b.outbound <- msg:
		return
	default:
	}
	select {
	case b.outbound <- msg:
	case <-b.done:
	}
}

// ConsumeInbound blocks until an inbound message is available, the bus is
// closed, or ctx is cancelled.
func (b *MessageBus) ConsumeInbound(ctx context.Context) (InboundMessage, error) {
	select {
	case msg := <-b.inbound:
		return msg, nil
	case <-b.done:
		return InboundMessage{}, context.Canceled
	case <-ctx.Done():
		return InboundMessage{}, ctx.Err()
	}
}

// SubscribeEvents registers fn for events of the given kind.
// An empty kind subscribes to ALL events.
func (b *MessageBus) SubscribeEvents(kind bump.EventKind, fn func(bump.Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.eventSubs[kind] = append(b.eventSubs[kind], fn)
}

// Subscribe registers fn to receive outbound messages for the given channel.
// An empty channel string subscribes to ALL channels.
func (b *MessageBus) Subscribe(channel string, fn func(OutboundMessage)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.outSubs[channel] = append(b.outSubs[channel], fn)
}

// Dispatch delivers events and outbound messages to subscribers until ctx
// is cancelled or the bus is closed. After Close it drains what is already
// buffered before returning. Subscribers run one at a time on the calling
// goroutine, so they must hand slow work such as network sends elsewhere.
func (b *MessageBus) Dispatch(ctx context.Context) {
	for {
		select {
		case e := <-b.events:
			b.dispatchEvent(e)
		case msg := <-b.outbound:
			b.dispatchOutbound(msg)
		case <-ctx.Done():
			return
		case <-b.done:
			b.drain()
			return
		}
	}
}

func (b *MessageBus) drain() {
	for {
		select {
		case e := <-b.events:
			b.dispatchEvent(e)
		case msg := <-b.outbound:
			b.dispatchOutbound(msg)
		default:
			return
		}
	}
}

func (b *MessageBus) dispatchEvent(e bump.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, fn := range b.eventSubs[e.Kind] {
		fn(e)
	}
	for _, fn := range b.eventSubs[""] {
		fn(e)
	}
}

func (b *MessageBus) dispatchOutbound(msg OutboundMessage) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, fn := range b.outSubs[msg.Channel] {
		fn(msg)
	}
	for _, fn := range b.outSubs[""] {
		fn(msg)
	}
}

// Close stops accepting messages. Safe to call more than once.
func (b *MessageBus) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}
