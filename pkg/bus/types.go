package bus

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tinyland-inc/jabberclaw/pkg/xmpp"
)

// OutboundMessage is one queued stanza awaiting transmission. The send
// worker is the sole consumer; it resolves the message exactly once, with
// nil on successful transmission or an error on terminal failure.
type OutboundMessage struct {
	ID         string
	Stanza     xmpp.Stanza
	EnqueuedAt time.Time

	done chan error
}

// NewMessage builds a queued chat message to the given JID.
func NewMessage(to, body string) *OutboundMessage {
	return &OutboundMessage{
		ID: uuid.New().String(),
		Stanza: xmpp.Stanza{
			Kind: xmpp.KindMessage,
			To:   to,
			Type: xmpp.MessageChat,
			Body: body,
		},
		EnqueuedAt: time.Now(),
		done:       make(chan error, 1),
	}
}

// NewPresence builds a queued presence stanza. Empty to/ptype is the
// broadcast keepalive form.
func NewPresence(to, ptype string) *OutboundMessage {
	return &OutboundMessage{
		ID: uuid.New().String(),
		Stanza: xmpp.Stanza{
			Kind: xmpp.KindPresence,
			To:   to,
			Type: ptype,
		},
		EnqueuedAt: time.Now(),
		done:       make(chan error, 1),
	}
}

// Resolve marks the message terminally handled. Only the consumer calls
// this, once per message.
func (m *OutboundMessage) Resolve(err error) {
	select {
	case m.done <- err:
	default:
	}
}

// Wait blocks until the message is resolved or ctx expires. This is what
// turns an enqueue into a synchronous send: the caller learns the
// difference between "enqueued" and "confirmed sent".
func (m *OutboundMessage) Wait(ctx context.Context) error {
	select {
	case err := <-m.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
