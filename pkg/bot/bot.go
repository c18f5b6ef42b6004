// Package bot wires the transport, the connection supervisor, the
// outbound queue and the handler registry into a long-lived XMPP agent.
// A Bot runs three workers over one shared connection: a send worker
// draining the outbound queue, a receive worker dispatching inbound
// stanzas, and a keepalive worker pacing presence pings.
package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tinyland-inc/jabberclaw/pkg/bus"
	"github.com/tinyland-inc/jabberclaw/pkg/config"
	"github.com/tinyland-inc/jabberclaw/pkg/logger"
	"github.com/tinyland-inc/jabberclaw/pkg/xmpp"
)

// Bot is the public facade. All methods are safe for concurrent use.
type Bot struct {
	mu          sync.Mutex
	initialized bool
	receiving   bool

	settings   *config.Settings
	transport  xmpp.Transport
	supervisor *Supervisor
	queue      *bus.Queue
	handlers   *HandlerRegistry
	access     *AccessController

	sendCtx    context.Context
	sendCancel context.CancelFunc
	sendWG     sync.WaitGroup

	recvCtx    context.Context
	recvCancel context.CancelFunc
	recvWG     sync.WaitGroup
}

// New creates an uninitialized bot.
func New() *Bot {
	return &Bot{
		handlers: NewHandlerRegistry(),
	}
}

// Initialize loads settings (from the environment when settings is nil),
// connects over a WebSocket transport and starts the send worker.
// Receiving does not start until StartReceiving.
func (b *Bot) Initialize(ctx context.Context, settings *config.Settings) error {
	return b.InitializeWithTransport(ctx, settings, nil)
}

// InitializeWithTransport is Initialize with an explicit transport,
// used by tests and by callers embedding their own transport.
func (b *Bot) InitializeWithTransport(ctx context.Context, settings *config.Settings, transport xmpp.Transport) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.initialized {
		return ErrAlreadyInitialized
	}

	if settings == nil {
		loaded, err := config.LoadEnv()
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}
		settings = loaded
	} else if err := settings.Validate(); err != nil {
		return fmt.Errorf("validating settings: %w", err)
	}
	if transport == nil {
		transport = xmpp.NewWebSocketTransport()
	}
	if settings.Debug {
		logger.SetLevel(logger.DEBUG)
	}

	b.settings = settings
	b.transport = transport
	b.supervisor = NewSupervisor(transport, settings)
	b.queue = bus.NewQueue()
	b.access = NewAccessController(settings)

	if err := b.supervisor.Connect(ctx); err != nil {
		return err
	}

	b.sendCtx, b.sendCancel = context.WithCancel(context.Background())
	b.sendWG.Add(1)
	go func() {
		defer b.sendWG.Done()
		b.sendLoop(b.sendCtx)
	}()

	b.initialized = true
	logger.InfoCF("bot", "Initialized", map[string]any{
		"jid": settings.JID, "resource": settings.Resource,
	})
	return nil
}

// StartReceiving starts the receive and keepalive workers. Calling it
// while already receiving is a no-op.
func (b *Bot) StartReceiving() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		return ErrNotInitialized
	}
	if b.receiving {
		return nil
	}

	b.recvCtx, b.recvCancel = context.WithCancel(context.Background())
	b.recvWG.Add(2)
	go func() {
		defer b.recvWG.Done()
		b.receiveLoop(b.recvCtx)
	}()
	go func() {
		defer b.recvWG.Done()
		b.keepaliveLoop(b.recvCtx)
	}()

	b.receiving = true
	logger.InfoC("bot", "Receiving started")
	return nil
}

// StopReceiving stops the receive and keepalive workers. The connection
// and the send worker stay up.
func (b *Bot) StopReceiving() error {
	b.mu.Lock()
	if !b.initialized {
		b.mu.Unlock()
		return ErrNotInitialized
	}
	if !b.receiving {
		b.mu.Unlock()
		return nil
	}
	b.receiving = false
	cancel := b.recvCancel
	b.mu.Unlock()

	cancel()
	b.recvWG.Wait()
	logger.InfoC("bot", "Receiving stopped")
	return nil
}

// SendMessage sends a chat message to the default receiver and waits
// until the send worker confirms transmission or ctx expires.
func (b *Bot) SendMessage(ctx context.Context, body string) error {
	b.mu.Lock()
	receiver := ""
	if b.settings != nil {
		receiver = b.settings.DefaultReceiver
	}
	b.mu.Unlock()
	return b.ReplyToUser(ctx, body, receiver)
}

// ReplyToUser sends a chat message to an explicit JID and waits until
// the send worker confirms transmission or ctx expires. On ctx expiry
// the message stays queued and will still be transmitted in order.
func (b *Bot) ReplyToUser(ctx context.Context, body, jid string) error {
	b.mu.Lock()
	if !b.initialized {
		b.mu.Unlock()
		return ErrNotInitialized
	}
	queue := b.queue
	b.mu.Unlock()

	msg := bus.NewMessage(jid, body)
	if err := queue.Publish(ctx, msg); err != nil {
		return err
	}
	return msg.Wait(ctx)
}

// SendURL sends the configured base URL joined with the given path to
// the default receiver.
func (b *Bot) SendURL(ctx context.Context, path string) error {
	b.mu.Lock()
	base := ""
	if b.settings != nil {
		base = b.settings.BaseURL
	}
	b.mu.Unlock()

	url := strings.TrimRight(base, "/")
	if path != "" {
		url += "/" + strings.TrimLeft(path, "/")
	}
	return b.SendMessage(ctx, url)
}

// AddMessageHandler registers a named message handler.
func (b *Bot) AddMessageHandler(name string, h MessageHandler) error {
	if !b.IsInitialized() {
		return ErrNotInitialized
	}
	return b.handlers.AddMessageHandler(name, h)
}

// RemoveMessageHandler unregisters a named message handler.
func (b *Bot) RemoveMessageHandler(name string) error {
	if !b.IsInitialized() {
		return ErrNotInitialized
	}
	return b.handlers.RemoveMessageHandler(name)
}

// AddPresenceHandler registers a named presence handler.
func (b *Bot) AddPresenceHandler(name string, h PresenceHandler) error {
	if !b.IsInitialized() {
		return ErrNotInitialized
	}
	return b.handlers.AddPresenceHandler(name, h)
}

// RemovePresenceHandler unregisters a named presence handler.
func (b *Bot) RemovePresenceHandler(name string) error {
	if !b.IsInitialized() {
		return ErrNotInitialized
	}
	return b.handlers.RemovePresenceHandler(name)
}

// HasMessageHandler reports whether a message handler is registered.
func (b *Bot) HasMessageHandler(name string) bool {
	return b.handlers.HasMessageHandler(name)
}

// HasPresenceHandler reports whether a presence handler is registered.
func (b *Bot) HasPresenceHandler(name string) bool {
	return b.handlers.HasPresenceHandler(name)
}

// Flush blocks until every queued outbound message reached a terminal
// state, or ctx expires.
func (b *Bot) Flush(ctx context.Context) error {
	b.mu.Lock()
	if !b.initialized {
		b.mu.Unlock()
		return ErrNotInitialized
	}
	queue := b.queue
	b.mu.Unlock()
	return queue.Flush(ctx)
}

// Shutdown stops the workers, drains the outbound backlog, disconnects
// and resets the bot so Initialize may be called again. Idempotent.
func (b *Bot) Shutdown() {
	b.mu.Lock()
	if !b.initialized {
		b.mu.Unlock()
		return
	}
	receiving := b.receiving
	b.receiving = false
	b.initialized = false
	recvCancel := b.recvCancel
	queue := b.queue
	supervisor := b.supervisor
	sendCancel := b.sendCancel
	b.mu.Unlock()

	logger.InfoC("bot", "Shutting down")

	if receiving {
		recvCancel()
		b.recvWG.Wait()
	}

	// Closing the queue lets the send worker drain the backlog; shutting
	// the supervisor down then fails any messages it cannot transmit.
	queue.Close()
	supervisor.Shutdown()
	b.sendWG.Wait()
	sendCancel()

	b.handlers.Clear()
	logger.InfoC("bot", "Shutdown complete")
}

// State returns the connection state, or Disconnected before Initialize.
func (b *Bot) State() ConnectionState {
	b.mu.Lock()
	sup := b.supervisor
	b.mu.Unlock()
	if sup == nil {
		return StateDisconnected
	}
	return sup.State()
}

// IsConnected reports whether the connection is currently established.
func (b *Bot) IsConnected() bool {
	return b.State() == StateConnected
}

// IsInitialized reports whether Initialize has completed.
func (b *Bot) IsInitialized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initialized
}

// Settings returns the active settings, nil before Initialize.
func (b *Bot) Settings() *config.Settings {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.settings
}

var (
	instMu   sync.Mutex
	instance *Bot
)

// GetInstance returns the package-level bot, creating it on first use.
func GetInstance() *Bot {
	instMu.Lock()
	defer instMu.Unlock()
	if instance == nil {
		instance = New()
	}
	return instance
}

// ResetInstance shuts down and discards the package-level bot.
func ResetInstance() {
	instMu.Lock()
	inst := instance
	instance = nil
	instMu.Unlock()
	if inst != nil {
		inst.Shutdown()
	}
}
