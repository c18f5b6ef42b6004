// Package xmpp defines the transport boundary of jabberclaw: the stanza
// model, the Transport interface the bot workers program against, and a
// concrete XMPP-over-WebSocket implementation (RFC 7395 framing).
package xmpp

import "encoding/xml"

// StanzaKind classifies a stanza at the transport boundary.
type StanzaKind string

const (
	KindMessage  StanzaKind = "message"
	KindPresence StanzaKind = "presence"
	KindIQ       StanzaKind = "iq"
)

// Message types.
const (
	MessageChat      = "chat"
	MessageNormal    = "normal"
	MessageGroupchat = "groupchat"
)

// Presence types.
const (
	PresenceAvailable    = "available"
	PresenceUnavailable  = "unavailable"
	PresenceSubscribe    = "subscribe"
	PresenceSubscribed   = "subscribed"
	PresenceUnsubscribe  = "unsubscribe"
	PresenceUnsubscribed = "unsubscribed"
)

// Stanza is a single protocol unit. Kind selects which fields are
// meaningful: Body for messages, Status for presence. Raw preserves the
// wire form for handlers that need more than the extracted fields.
type Stanza struct {
	Kind   StanzaKind
	ID     string
	From   string
	To     string
	Type   string
	Body   string
	Status string
	Raw    []byte
}

// BareFrom returns the sender JID without its resource.
func (s Stanza) BareFrom() string {
	return BareJID(s.From)
}

// wire structs for (un)marshaling stanzas on the WebSocket framing.

type wireMessage struct {
	XMLName xml.Name `xml:"jabber:client message"`
	ID      string   `xml:"id,attr,omitempty"`
	From    string   `xml:"from,attr,omitempty"`
	To      string   `xml:"to,attr,omitempty"`
	Type    string   `xml:"type,attr,omitempty"`
	Body    string   `xml:"body,omitempty"`
}

type wirePresence struct {
	XMLName xml.Name `xml:"jabber:client presence"`
	ID      string   `xml:"id,attr,omitempty"`
	From    string   `xml:"from,attr,omitempty"`
	To      string   `xml:"to,attr,omitempty"`
	Type    string   `xml:"type,attr,omitempty"`
	Status  string   `xml:"status,omitempty"`
}

// Marshal renders the stanza in wire form.
func (s Stanza) Marshal() ([]byte, error) {
	switch s.Kind {
	case KindPresence:
		return xml.Marshal(wirePresence{
			ID: s.ID, From: s.From, To: s.To, Type: s.Type, Status: s.Status,
		})
	default:
		return xml.Marshal(wireMessage{
			ID: s.ID, From: s.From, To: s.To, Type: s.Type, Body: s.Body,
		})
	}
}

// ParseStanza decodes a single wire frame into a Stanza. IQ and unknown
// elements come back as KindIQ with only Raw populated, so the receive
// loop can skip them without losing information.
func ParseStanza(data []byte) (Stanza, error) {
	root, err := rootName(data)
	if err != nil {
		return Stanza{}, err
	}

	switch root {
	case "message":
		var m wireMessage
		if err := xml.Unmarshal(data, &m); err != nil {
			return Stanza{}, err
		}
		typ := m.Type
		if typ == "" {
			typ = MessageNormal
		}
		return Stanza{
			Kind: KindMessage, ID: m.ID, From: m.From, To: m.To,
			Type: typ, Body: m.Body, Raw: data,
		}, nil
	case "presence":
		var p wirePresence
		if err := xml.Unmarshal(data, &p); err != nil {
			return Stanza{}, err
		}
		typ := p.Type
		if typ == "" {
			typ = PresenceAvailable
		}
		return Stanza{
			Kind: KindPresence, ID: p.ID, From: p.From, To: p.To,
			Type: typ, Status: p.Status, Raw: data,
		}, nil
	default:
		return Stanza{Kind: KindIQ, Raw: data}, nil
	}
}

// rootName returns the local name of the first start element.
func rootName(data []byte) (string, error) {
	dec := newDecoder(data)
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name.Local, nil
		}
	}
}
