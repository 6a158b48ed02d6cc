package channels

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/coopco/dodgem/internal/bus"
)

// Channel is the interface every notification channel must implement.
// Channels that can receive messages publish them as bus.InboundMessage so
// users can ask for the session status.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	Send(msg bus.OutboundMessage) error
	IsAllowed(senderID string) bool
}

// ChannelFactory creates a Channel from JSON config and a MessageBus.
type ChannelFactory func(cfg json.RawMessage, msgBus *bus.MessageBus) (Channel, error)

var registry = map[string]ChannelFactory{}

// Register adds a channel factory to the registry.
func Register(name string, factory ChannelFactory) {
	registry[name] = factory
}

// GetFactory returns the factory for a channel name.
func GetFactory(name string) (ChannelFactory, bool) {
	f, ok := registry[name]
	return f, ok
}

// RegisteredNames returns all registered channel names, sorted.
func RegisteredNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// allowList builds the sender filter shared by the chat channels.
func allowList(users []string) map[string]bool {
	allowed := make(map[string]bool, len(users))
	for _, u := range users {
		allowed[u] = true
	}
	return allowed
}

func isAllowed(allowed map[string]bool, senderID string) bool {
	if len(allowed) == 0 {
		return true
	}
	return allowed[senderID]
}
