package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/coopco/dodgem/internal/bump"
	"github.com/coopco/dodgem/internal/bus"
)

// StatusFunc describes the running session for status replies.
type StatusFunc func() string

const (
	// sendQueueSize bounds the messages waiting for one channel.
	sendQueueSize = 64
	// flushTimeout bounds how long StopAll waits for queued sends.
	flushTimeout = 10 * time.Second
)

// outbox runs one channel's Send calls on its own goroutine so a slow chat
// API never holds up bus dispatch.
type outbox struct {
	ch    Channel
	queue chan bus.OutboundMessage
	done  chan struct{}
}

func newOutbox(ch Channel) *outbox {
	o := &outbox{
		ch:    ch,
		queue: make(chan bus.OutboundMessage, sendQueueSize),
		done:  make(chan struct{}),
	}
	go o.run()
	return o
}

func (o *outbox) run() {
	defer close(o.done)
	for msg := range o.queue {
		if err := o.ch.Send(msg); err != nil {
			slog.Error("failed to send message", "channel", o.ch.Name(), "error", err)
		}
	}
}

type Manager struct {
	channels []Channel
	outboxes map[string]*outbox
	closed   bool
	bus      *bus.MessageBus
	level    NotifyLevel
	status   StatusFunc
	mu       sync.Mutex
}

func NewManager(msgBus *bus.MessageBus, level NotifyLevel, status StatusFunc) *Manager {
	if level == "" {
		level = NotifyAll
	}
	m := &Manager{bus: msgBus, level: level, status: status, outboxes: make(map[string]*outbox)}
	m.setupOutboundDispatch()
	m.setupEventNotifications()
	return m
}

// AddChannel creates and adds a channel from config.
func (m *Manager) AddChannel(name string, cfgJSON json.RawMessage) error {
	factory, ok := GetFactory(name)
	if !ok {
		return fmt.Errorf("no factory registered for channel %q", name)
	}
	ch, err := factory(cfgJSON, m.bus)
	if err != nil {
		return fmt.Errorf("failed to create channel %q: %w", name, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("failed to add channel %q: manager is stopped", name)
	}
	m.channels = append(m.channels, ch)
	m.outboxes[ch.Name()] = newOutbox(ch)
	return nil
}

func (m *Manager) snapshot() []Channel {
	m.mu.Lock()
	defer m.mu.Unlock()
	chs := make([]Channel, len(m.channels))
	copy(chs, m.channels)
	return chs
}

// StartAll starts all registered channels.
func (m *Manager) StartAll(ctx context.Context) error {
	for _, ch := range m.snapshot() {
		if err := ch.Start(ctx); err != nil {
			return fmt.Errorf("failed to start channel %q: %w", ch.Name(), err)
		}
	}
	return nil
}

// StopAll delivers the messages already queued, waiting at most
// flushTimeout, then stops all channels. Later outbound messages are dropped.
func (m *Manager) StopAll() error {
	m.flush()

	var firstErr error
	for _, ch := range m.snapshot() {
		if err := ch.Stop(); err != nil {
			slog.Error("failed to stop channel", "channel", ch.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (m *Manager) flush() {
	m.mu.Lock()
	var pending []*outbox
	if !m.closed {
		m.closed = true
		for _, o := range m.outboxes {
			close(o.queue)
			pending = append(pending, o)
		}
	}
	m.mu.Unlock()

	deadline := time.NewTimer(flushTimeout)
	defer deadline.Stop()
	for _, o := range pending {
		select {
		case <-o.done:
		case <-deadline.C:
			slog.Warn("channels: gave up waiting for queued messages", "channel", o.ch.Name())
			return
		}
	}
}

// ServeCommands answers inbound chat messages until ctx is cancelled or the
// bus closes. "status" gets the session status; anything else gets a hint.
func (m *Manager) ServeCommands(ctx context.Context) {
	for {
		msg, err := m.bus.ConsumeInbound(ctx)
		if err != nil {
			return
		}
		m.bus.PublishOutbound(bus.OutboundMessage{
			Channel: msg.Channel,
			ChatID:  msg.ChatID,
			Content: m.reply(msg.Content),
			Type:    bus.TypeReply,
		})
	}
}

func (m *Manager) reply(content string) string {
	cmd := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(content), "/"))
	if cmd == "status" && m.status != nil {
		return m.status()
	}
	return "Send \"status\" to see the bump session."
}

// Broadcast queues one message per channel, addressed to its default chat.
func (m *Manager) Broadcast(content, msgType string) {
	for _, ch := range m.snapshot() {
		m.bus.PublishOutbound(bus.OutboundMessage{Channel: ch.Name(), Content: content, Type: msgType})
	}
}

// setupOutboundDispatch queues outbound messages on the addressed channel's
// outbox. A full queue drops the message rather than stall the bus.
func (m *Manager) setupOutboundDispatch() {
	m.bus.Subscribe("", func(msg bus.OutboundMessage) {
		m.mu.Lock()
		defer m.mu.Unlock()
		o, ok := m.outboxes[msg.Channel]
		if !ok || m.closed {
			return
		}
		select {
		case o.queue <- msg:
		default:
			slog.Warn("channels: send queue full, dropping message", "channel", msg.Channel, "type", msg.Type)
		}
	})
}

// setupEventNotifications turns cycle results and fatal errors into one
// outbound message per channel.
func (m *Manager) setupEventNotifications() {
	notify := func(e bump.Event) {
		if content, msgType, ok := notification(m.level, e); ok {
			m.Broadcast(content, msgType)
		}
	}
	m.bus.SubscribeEvents(bump.EventCycleCompleted, notify)
	m.bus.SubscribeEvents(bump.EventCycleFailed, notify)
	m.bus.SubscribeEvents(bump.EventFatal, notify)
}
