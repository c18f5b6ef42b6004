package bot

import (
	"context"
	"errors"
	"time"

	"github.com/tinyland-inc/jabberclaw/pkg/bus"
	"github.com/tinyland-inc/jabberclaw/pkg/logger"
	"github.com/tinyland-inc/jabberclaw/pkg/xmpp"
)

// pollTimeout bounds each blocking Receive so the loop re-checks its
// context at least once a second.
const pollTimeout = 1 * time.Second

// receiveLoop polls the transport for inbound stanzas and dispatches
// them to the registered handlers. Transport failures are reported to
// the supervisor; the loop then blocks in Session until the connection
// is back.
func (b *Bot) receiveLoop(ctx context.Context) {
	for {
		sess, err := b.supervisor.Session(ctx)
		if err != nil {
			logger.DebugC("receiver", "Receive worker stopping")
			return
		}

		stanza, err := b.transport.Receive(sess, pollTimeout)
		if err != nil {
			if errors.Is(err, xmpp.ErrReceiveTimeout) {
				continue
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			logger.WarnCF("receiver", "Receive failed", map[string]any{"error": err.Error()})
			b.supervisor.ReportFailure(err)
			continue
		}

		switch stanza.Kind {
		case xmpp.KindMessage:
			b.handleMessage(stanza)
		case xmpp.KindPresence:
			b.handlePresence(ctx, stanza)
		default:
			logger.DebugCF("receiver", "Ignoring stanza", map[string]any{
				"kind": string(stanza.Kind), "from": stanza.From,
			})
		}
	}
}

// handleMessage runs the allowlist check and dispatches chat messages to
// every message handler in registration order. Handler errors and panics
// are isolated per handler.
func (b *Bot) handleMessage(stanza xmpp.Stanza) {
	if stanza.Type != xmpp.MessageChat && stanza.Type != xmpp.MessageNormal {
		return
	}
	if stanza.Body == "" {
		return
	}

	sender := stanza.BareFrom()
	if !b.access.IsAllowed(sender) {
		logger.WarnCF("receiver", "Message from unauthorized sender dropped", map[string]any{
			"from": sender,
		})
		return
	}

	logger.DebugCF("receiver", "Message received", map[string]any{
		"from": sender, "length": len(stanza.Body),
	})
	for _, h := range b.handlers.MessageHandlers() {
		b.dispatchMessage(h, sender, stanza)
	}
}

func (b *Bot) dispatchMessage(h MessageHandler, sender string, stanza xmpp.Stanza) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCF("receiver", "Message handler panicked", map[string]any{
				"from": sender, "panic": r,
			})
		}
	}()
	if err := h(sender, stanza.Body, stanza); err != nil {
		logger.ErrorCF("receiver", "Message handler failed", map[string]any{
			"from": sender, "error": err.Error(),
		})
	}
}

// handlePresence auto-approves subscription requests and dispatches the
// update to every presence handler. Subscription approval deliberately
// bypasses the allowlist: the allowlist gates message handling, not
// roster growth.
func (b *Bot) handlePresence(ctx context.Context, stanza xmpp.Stanza) {
	sender := stanza.BareFrom()

	if stanza.Type == xmpp.PresenceSubscribe {
		logger.InfoCF("receiver", "Approving subscription request", map[string]any{
			"from": sender,
		})
		approval := bus.NewPresence(sender, xmpp.PresenceSubscribed)
		if err := b.queue.Publish(ctx, approval); err != nil {
			logger.WarnCF("receiver", "Could not enqueue subscription approval", map[string]any{
				"from": sender, "error": err.Error(),
			})
		}
	}

	for _, h := range b.handlers.PresenceHandlers() {
		b.dispatchPresence(h, sender, stanza)
	}
}

func (b *Bot) dispatchPresence(h PresenceHandler, sender string, stanza xmpp.Stanza) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCF("receiver", "Presence handler panicked", map[string]any{
				"from": sender, "panic": r,
			})
		}
	}()
	if err := h(sender, stanza.Type, stanza.Status, stanza); err != nil {
		logger.ErrorCF("receiver", "Presence handler failed", map[string]any{
			"from": sender, "error": err.Error(),
		})
	}
}
