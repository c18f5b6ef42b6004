package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tinyland-inc/jabberclaw/pkg/config"
	"github.com/tinyland-inc/jabberclaw/pkg/logger"
	"github.com/tinyland-inc/jabberclaw/pkg/xmpp"
)

// ConnectionState is the supervisor's lifecycle state.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateReconnecting ConnectionState = "reconnecting"
	StateShuttingDown ConnectionState = "shutting_down"
)

// Supervisor owns the transport session and drives the
// connect/reconnect state machine. It is the single writer of both the
// state and the session reference; workers borrow the session through
// Session() for the duration of one transport call and never store it.
type Supervisor struct {
	transport xmpp.Transport
	settings  *config.Settings

	mu      sync.Mutex
	state   ConnectionState
	session xmpp.Session

	// changed is closed and replaced on every state transition so that
	// waiters in Session() wake without busy-polling.
	changed chan struct{}

	// ctx cancels reconnect backoff sleeps and in-flight connect
	// attempts on shutdown.
	ctx    context.Context
	cancel context.CancelFunc

	wg sync.WaitGroup
}

// NewSupervisor creates a supervisor in the Disconnected state.
func NewSupervisor(t xmpp.Transport, s *config.Settings) *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		transport: t,
		settings:  s,
		state:     StateDisconnected,
		changed:   make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// State returns the current connection state.
func (s *Supervisor) State() ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// setStateLocked transitions the state and wakes all waiters.
// Callers hold s.mu.
func (s *Supervisor) setStateLocked(st ConnectionState) {
	if s.state == st {
		return
	}
	logger.InfoCF("supervisor", "State transition", map[string]any{
		"from": string(s.state), "to": string(st),
	})
	s.state = st
	close(s.changed)
	s.changed = make(chan struct{})
}

// credentials builds transport credentials from the settings.
func (s *Supervisor) credentials() xmpp.Credentials {
	return xmpp.Credentials{
		JID:      s.settings.JID,
		Password: s.settings.Password,
		Resource: s.settings.Resource,
		Server:   s.settings.Server,
	}
}

// Connect establishes the initial session. Valid only from the
// Disconnected state; the configured connect timeout bounds the attempt.
// Automatic retry is not performed here: a failed explicit connect is
// surfaced to the initiator.
func (s *Supervisor) Connect(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateShuttingDown:
		s.mu.Unlock()
		return ErrShuttingDown
	case StateDisconnected:
		// proceed
	default:
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("cannot connect while %s", st)
	}
	s.setStateLocked(StateConnecting)
	s.mu.Unlock()

	connectCtx, cancel := context.WithTimeout(ctx, s.settings.ConnectTimeoutDuration())
	defer cancel()

	sess, err := s.transport.Connect(connectCtx, s.credentials())

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateShuttingDown {
		if sess != nil {
			_ = s.transport.Disconnect(sess)
		}
		return ErrShuttingDown
	}
	if err != nil {
		s.setStateLocked(StateDisconnected)
		return fmt.Errorf("connecting: %w", err)
	}
	s.session = sess
	s.setStateLocked(StateConnected)
	return nil
}

// Session blocks until the supervisor is Connected and returns the live
// session, or fails with ErrShuttingDown / the context error. Callers
// must not hold the returned session across their own suspension points;
// reconnection may invalidate it at any time.
func (s *Supervisor) Session(ctx context.Context) (xmpp.Session, error) {
	for {
		s.mu.Lock()
		switch s.state {
		case StateConnected:
			sess := s.session
			s.mu.Unlock()
			return sess, nil
		case StateShuttingDown:
			s.mu.Unlock()
			return nil, ErrShuttingDown
		}
		wait := s.changed
		s.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// ReportFailure is called by any worker that hits a transport-level
// error. The first report for a disconnect episode transitions
// Connected -> Reconnecting and starts the retry loop; reports arriving
// while already Reconnecting (or shutting down) are coalesced into
// no-ops.
func (s *Supervisor) ReportFailure(err error) {
	s.mu.Lock()
	if s.state != StateConnected {
		s.mu.Unlock()
		return
	}
	logger.WarnCF("supervisor", "Transport failure reported", map[string]any{
		"error": err.Error(),
	})
	stale := s.session
	s.session = nil
	s.setStateLocked(StateReconnecting)
	s.mu.Unlock()

	if stale != nil {
		_ = s.transport.Disconnect(stale)
	}

	s.wg.Add(1)
	go s.reconnectLoop()
}

// reconnectLoop retries the connection after each retry delay until it
// succeeds or shutdown is requested. Retries are unbounded: the system
// assumes the network eventually recovers, and callers that need a bound
// observe the state externally.
func (s *Supervisor) reconnectLoop() {
	defer s.wg.Done()

	attempt := 0
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-time.After(s.settings.RetryDelayDuration()):
		}

		attempt++
		logger.InfoCF("supervisor", "Reconnecting", map[string]any{"attempt": attempt})

		connectCtx, cancel := context.WithTimeout(s.ctx, s.settings.ConnectTimeoutDuration())
		sess, err := s.transport.Connect(connectCtx, s.credentials())
		cancel()
		if err != nil {
			logger.WarnCF("supervisor", "Reconnect attempt failed", map[string]any{
				"attempt": attempt, "error": err.Error(),
			})
			continue
		}

		s.mu.Lock()
		if s.state != StateReconnecting {
			// Shutdown raced the reconnect; discard the fresh session.
			s.mu.Unlock()
			_ = s.transport.Disconnect(sess)
			return
		}
		s.session = sess
		s.setStateLocked(StateConnected)
		s.mu.Unlock()

		logger.InfoCF("supervisor", "Reconnected", map[string]any{"attempts": attempt})
		return
	}
}

// Shutdown transitions to ShuttingDown, cancels any reconnect attempt
// and disconnects the session. The supervisor is unusable afterwards.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	if s.state == StateShuttingDown {
		s.mu.Unlock()
		return
	}
	stale := s.session
	s.session = nil
	s.setStateLocked(StateShuttingDown)
	s.mu.Unlock()

	s.cancel()
	if stale != nil {
		_ = s.transport.Disconnect(stale)
	}
	s.wg.Wait()
	logger.InfoC("supervisor", "Shut down")
}
