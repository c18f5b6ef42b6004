package xmpp

import (
	"context"
	"errors"
	"time"
)

// Transport-level errors. The bot core branches on these and treats
// everything else as a fatal misconfiguration.
var (
	// ErrReceiveTimeout is the normal idle result of Receive: no stanza
	// arrived within the poll window. Not a failure.
	ErrReceiveTimeout = errors.New("xmpp: receive timeout")

	// ErrDisconnected means the underlying connection is gone and the
	// session is no longer usable.
	ErrDisconnected = errors.New("xmpp: disconnected")

	// ErrAuthFailed means the server rejected the credentials.
	ErrAuthFailed = errors.New("xmpp: authentication failed")
)

// Credentials is everything a Transport needs to authenticate a session.
type Credentials struct {
	JID      string
	Password string
	Resource string

	// Server optionally overrides the endpoint derived from the JID
	// domain (e.g. "wss://chat.example.org/xmpp-websocket").
	Server string
}

// Session is an opaque authenticated connection handle. It is owned by
// the connection supervisor; workers only ever borrow it for the duration
// of a single Transport call.
type Session interface {
	// FullJID is the JID the server bound for this session.
	FullJID() string
}

// Transport frames, sends and receives stanzas over one connection.
// Implementations must allow Send and Receive to run concurrently on the
// same session (one sender, one receiver).
type Transport interface {
	// Connect authenticates and returns a live session. The context
	// bounds the whole handshake.
	Connect(ctx context.Context, creds Credentials) (Session, error)

	// Disconnect closes the session. Safe to call on a dead session.
	Disconnect(Session) error

	// Send transmits one stanza. ErrDisconnected signals a dead session.
	Send(Session, Stanza) error

	// Receive waits up to timeout for the next inbound stanza.
	// ErrReceiveTimeout is the idle case; ErrDisconnected is terminal
	// for the session.
	Receive(Session, time.Duration) (Stanza, error)
}
