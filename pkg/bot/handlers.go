package bot

import (
	"fmt"
	"sync"

	"github.com/tinyland-inc/jabberclaw/pkg/logger"
	"github.com/tinyland-inc/jabberclaw/pkg/xmpp"
)

// MessageHandler handles one inbound chat message. A returned error is
// logged and isolated; it never stops other handlers or the receive loop.
type MessageHandler func(sender, body string, stanza xmpp.Stanza) error

// PresenceHandler handles one inbound presence update.
type PresenceHandler func(sender, presenceType, status string, stanza xmpp.Stanza) error

// HandlerRegistry keeps two independent name->callback mappings, one per
// event category. Dispatch iterates in registration order.
type HandlerRegistry struct {
	mu            sync.RWMutex
	messageOrder  []string
	messages      map[string]MessageHandler
	presenceOrder []string
	presences     map[string]PresenceHandler
}

// NewHandlerRegistry creates an empty registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		messages:  make(map[string]MessageHandler),
		presences: make(map[string]PresenceHandler),
	}
}

// AddMessageHandler registers a message handler under a unique name.
func (r *HandlerRegistry) AddMessageHandler(name string, h MessageHandler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.messages[name]; ok {
		return fmt.Errorf("%w: %q", ErrHandlerExists, name)
	}
	r.messages[name] = h
	r.messageOrder = append(r.messageOrder, name)
	logger.DebugCF("bot", "Message handler registered", map[string]any{"name": name})
	return nil
}

// RemoveMessageHandler unregisters a message handler by name.
func (r *HandlerRegistry) RemoveMessageHandler(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.messages[name]; !ok {
		return fmt.Errorf("%w: %q", ErrHandlerNotFound, name)
	}
	delete(r.messages, name)
	r.messageOrder = removeName(r.messageOrder, name)
	logger.DebugCF("bot", "Message handler removed", map[string]any{"name": name})
	return nil
}

// AddPresenceHandler registers a presence handler under a unique name.
func (r *HandlerRegistry) AddPresenceHandler(name string, h PresenceHandler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.presences[name]; ok {
		return fmt.Errorf("%w: %q", ErrHandlerExists, name)
	}
	r.presences[name] = h
	r.presenceOrder = append(r.presenceOrder, name)
	logger.DebugCF("bot", "Presence handler registered", map[string]any{"name": name})
	return nil
}

// RemovePresenceHandler unregisters a presence handler by name.
func (r *HandlerRegistry) RemovePresenceHandler(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.presences[name]; !ok {
		return fmt.Errorf("%w: %q", ErrHandlerNotFound, name)
	}
	delete(r.presences, name)
	r.presenceOrder = removeName(r.presenceOrder, name)
	logger.DebugCF("bot", "Presence handler removed", map[string]any{"name": name})
	return nil
}

// MessageHandlers returns the registered message handlers in
// registration order.
func (r *HandlerRegistry) MessageHandlers() []MessageHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MessageHandler, 0, len(r.messageOrder))
	for _, name := range r.messageOrder {
		out = append(out, r.messages[name])
	}
	return out
}

// PresenceHandlers returns the registered presence handlers in
// registration order.
func (r *HandlerRegistry) PresenceHandlers() []PresenceHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]PresenceHandler, 0, len(r.presenceOrder))
	for _, name := range r.presenceOrder {
		out = append(out, r.presences[name])
	}
	return out
}

// HasMessageHandler reports whether a message handler is registered.
func (r *HandlerRegistry) HasMessageHandler(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.messages[name]
	return ok
}

// HasPresenceHandler reports whether a presence handler is registered.
func (r *HandlerRegistry) HasPresenceHandler(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.presences[name]
	return ok
}

// Clear removes every handler from both categories.
func (r *HandlerRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = make(map[string]MessageHandler)
	r.presences = make(map[string]PresenceHandler)
	r.messageOrder = nil
	r.presenceOrder = nil
}

func removeName(names []string, name string) []string {
	for i, n := range names {
		if n == name {
			return append(names[:i], names[i+1:]...)
		}
	}
	return names
}
