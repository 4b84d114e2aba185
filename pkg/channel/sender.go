package channel

import (
	"context"
	"fmt"
	"sync"
)

// Sender dispatches a rendered message through one delivery channel.
// Implementations wrap an external provider (email, SMS, WhatsApp transport
// is not implemented here, only called).
type Sender interface {
	// Channel returns the channel this sender serves.
	Channel() Channel

	// Send delivers the message to the recipient address and returns the
	// provider's message id. The id is the correlation key for delivery
	// webhooks, so it must be the id the provider will echo back.
	Send(ctx context.Context, to, subject, body string) (string, error)
}

// Registry manages available channel senders.
// It provides thread-safe registration and lookup of senders.
type Registry struct {
	senders map[Channel]Sender
	mu      sync.RWMutex
}

// NewRegistry creates a new empty sender registry.
func NewRegistry() *Registry {
	return &Registry{
		senders: make(map[Channel]Sender),
	}
}

// Register adds a sender to the registry.
// Returns an error if a sender for the same channel already exists.
func (r *Registry) Register(s Sender) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.senders[s.Channel()]; exists {
		return fmt.Errorf("sender for channel %s already registered", s.Channel())
	}

	r.senders[s.Channel()] = s
	return nil
}

// Get returns the sender for a channel.
// Returns nil if no sender is registered.
func (r *Registry) Get(ch Channel) Sender {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.senders[ch]
}

// Channels returns the channels that have a registered sender.
func (r *Registry) Channels() []Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	channels := make([]Channel, 0, len(r.senders))
	for ch := range r.senders {
		channels = append(channels, ch)
	}

	return channels
}

// Count returns the number of registered senders.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.senders)
}
