package xmpp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tinyland-inc/jabberclaw/pkg/logger"
)

// XML namespaces used by the WebSocket subprotocol handshake.
const (
	nsFraming = "urn:ietf:params:xml:ns:xmpp-framing"
	nsSASL    = "urn:ietf:params:xml:ns:xmpp-sasl"
	nsBind    = "urn:ietf:params:xml:ns:xmpp-bind"
)

// WebSocketTransport implements Transport over the XMPP WebSocket
// subprotocol (RFC 7395): each WebSocket text frame carries exactly one
// complete XML element, which removes the need for stream-level parsing.
type WebSocketTransport struct {
	// Dialer allows tests and callers to customize TLS and timeouts.
	Dialer *websocket.Dialer
}

// NewWebSocketTransport returns a transport with the default dialer and
// the "xmpp" subprotocol requested.
func NewWebSocketTransport() *WebSocketTransport {
	d := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 45 * time.Second,
		Subprotocols:     []string{"xmpp"},
	}
	return &WebSocketTransport{Dialer: d}
}

type wsSession struct {
	conn    *websocket.Conn
	fullJID string

	// writeMu serializes writers; gorilla/websocket allows at most one
	// concurrent writer per connection.
	writeMu sync.Mutex

	// frames carries inbound frames from the reader goroutine. A read
	// error closes the channel and the session is dead from then on.
	// gorilla/websocket makes every read error fatal to the connection,
	// so polling with a timeout has to happen on this side of a pump.
	frames  chan []byte
	readErr error
}

// startReader begins pumping inbound frames. Called once the handshake
// has finished, since handshake reads are synchronous.
func (s *wsSession) startReader() {
	s.frames = make(chan []byte, 64)
	go func() {
		defer close(s.frames)
		for {
			_, data, err := s.conn.ReadMessage()
			if err != nil {
				s.readErr = err
				return
			}
			s.frames <- data
		}
	}()
}

func (s *wsSession) FullJID() string { return s.fullJID }

// Endpoint returns the WebSocket URL for the given credentials:
// the explicit server override, or wss://<domain>/xmpp-websocket.
func Endpoint(creds Credentials) string {
	if creds.Server != "" {
		return creds.Server
	}
	return "wss://" + JIDDomain(creds.JID) + "/xmpp-websocket"
}

// Connect dials the server, authenticates with SASL PLAIN, binds the
// resource and announces initial presence.
func (t *WebSocketTransport) Connect(ctx context.Context, creds Credentials) (Session, error) {
	url := Endpoint(creds)
	logger.InfoCF("xmpp", "Connecting", map[string]any{"url": url, "jid": creds.JID})

	conn, _, err := t.Dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}

	sess := &wsSession{conn: conn}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
		_ = conn.SetWriteDeadline(deadline)
	}

	if err := t.handshake(sess, creds); err != nil {
		conn.Close()
		return nil, err
	}

	// Handshake done; clear deadlines and hand reads to the pump.
	_ = conn.SetReadDeadline(time.Time{})
	_ = conn.SetWriteDeadline(time.Time{})
	sess.startReader()

	logger.InfoCF("xmpp", "Session established", map[string]any{"jid": sess.fullJID})
	return sess, nil
}

// handshake runs open / SASL PLAIN / stream restart / bind / presence.
func (t *WebSocketTransport) handshake(sess *wsSession, creds Credentials) error {
	domain := JIDDomain(creds.JID)

	if err := t.openStream(sess, domain); err != nil {
		return err
	}

	// SASL PLAIN: authzid NUL authcid NUL password.
	plain := base64.StdEncoding.EncodeToString(
		[]byte("\x00" + JIDLocal(creds.JID) + "\x00" + creds.Password))
	auth := fmt.Sprintf(`<auth xmlns=%q mechanism="PLAIN">%s</auth>`, nsSASL, plain)
	if err := sess.writeRaw([]byte(auth)); err != nil {
		return err
	}
	reply, err := sess.readRaw()
	if err != nil {
		return err
	}
	name, err := rootName(reply)
	if err != nil {
		return fmt.Errorf("parsing SASL reply: %w", err)
	}
	if name != "success" {
		return fmt.Errorf("%w: server replied <%s>", ErrAuthFailed, name)
	}

	// Stream restart after successful SASL.
	if err := t.openStream(sess, domain); err != nil {
		return err
	}

	// Bind the resource.
	bind := fmt.Sprintf(
		`<iq type="set" id="bind-1"><bind xmlns=%q><resource>%s</resource></bind></iq>`,
		nsBind, xmlEscape(creds.Resource))
	if err := sess.writeRaw([]byte(bind)); err != nil {
		return err
	}
	bound, err := t.awaitBindResult(sess)
	if err != nil {
		return err
	}
	sess.fullJID = bound

	// Initial presence makes the session visible to contacts.
	pres, err := Stanza{Kind: KindPresence}.Marshal()
	if err != nil {
		return err
	}
	return sess.writeRaw(pres)
}

// openStream sends <open/> and consumes the server's <open/> and, when
// present, the following <features/> frame.
func (t *WebSocketTransport) openStream(sess *wsSession, domain string) error {
	open := fmt.Sprintf(`<open xmlns=%q to=%q version="1.0"/>`, nsFraming, domain)
	if err := sess.writeRaw([]byte(open)); err != nil {
		return err
	}
	for {
		frame, err := sess.readRaw()
		if err != nil {
			return err
		}
		name, err := rootName(frame)
		if err != nil {
			return fmt.Errorf("parsing stream header: %w", err)
		}
		switch name {
		case "open":
			continue
		case "features":
			return nil
		case "close":
			return fmt.Errorf("%w: server closed stream during negotiation", ErrDisconnected)
		default:
			return fmt.Errorf("unexpected element <%s> during stream open", name)
		}
	}
}

type bindResult struct {
	XMLName xml.Name `xml:"iq"`
	Type    string   `xml:"type,attr"`
	Bind    struct {
		JID string `xml:"jid"`
	} `xml:"bind"`
}

// awaitBindResult reads frames until the bind IQ result arrives, skipping
// anything the server interleaves (e.g. early presence).
func (t *WebSocketTransport) awaitBindResult(sess *wsSession) (string, error) {
	for {
		frame, err := sess.readRaw()
		if err != nil {
			return "", err
		}
		name, err := rootName(frame)
		if err != nil {
			return "", fmt.Errorf("parsing bind reply: %w", err)
		}
		if name != "iq" {
			continue
		}
		var res bindResult
		if err := xml.Unmarshal(frame, &res); err != nil {
			return "", fmt.Errorf("parsing bind result: %w", err)
		}
		if res.Type != "result" {
			return "", fmt.Errorf("%w: resource bind rejected", ErrAuthFailed)
		}
		return res.Bind.JID, nil
	}
}

// Disconnect sends the framing close element and tears the socket down.
func (t *WebSocketTransport) Disconnect(s Session) error {
	sess, ok := s.(*wsSession)
	if !ok || sess == nil {
		return nil
	}
	_ = sess.writeRaw([]byte(fmt.Sprintf(`<close xmlns=%q/>`, nsFraming)))
	return sess.conn.Close()
}

// Send transmits one stanza as a single text frame.
func (t *WebSocketTransport) Send(s Session, st Stanza) error {
	sess, ok := s.(*wsSession)
	if !ok || sess == nil {
		return ErrDisconnected
	}
	data, err := st.Marshal()
	if err != nil {
		return err
	}
	if err := sess.writeRaw(data); err != nil {
		return fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	return nil
}

// Receive waits up to timeout for the next stanza frame. Stream-level
// frames (<close/>) surface as ErrDisconnected.
func (t *WebSocketTransport) Receive(s Session, timeout time.Duration) (Stanza, error) {
	sess, ok := s.(*wsSession)
	if !ok || sess == nil || sess.frames == nil {
		return Stanza{}, ErrDisconnected
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case frame, ok := <-sess.frames:
		if !ok {
			return Stanza{}, fmt.Errorf("%w: %v", ErrDisconnected, sess.readErr)
		}
		name, err := rootName(frame)
		if err != nil {
			return Stanza{}, fmt.Errorf("parsing inbound frame: %w", err)
		}
		if name == "close" {
			return Stanza{}, ErrDisconnected
		}
		return ParseStanza(frame)
	case <-timer.C:
		return Stanza{}, ErrReceiveTimeout
	}
}

func (s *wsSession) writeRaw(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *wsSession) readRaw() ([]byte, error) {
	_, data, err := s.conn.ReadMessage()
	return data, err
}

func newDecoder(data []byte) *xml.Decoder {
	return xml.NewDecoder(bytes.NewReader(data))
}

func xmlEscape(v string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(v))
	return buf.String()
}
