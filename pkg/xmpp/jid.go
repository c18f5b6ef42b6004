package xmpp

import "strings"

// BareJID strips the resource from a full JID.
// "a@x/phone" -> "a@x".
func BareJID(jid string) string {
	return strings.SplitN(jid, "/", 2)[0]
}

// JIDDomain returns the domain part of a JID, or "" if malformed.
func JIDDomain(jid string) string {
	parts := strings.SplitN(BareJID(jid), "@", 2)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// JIDLocal returns the localpart of a JID.
func JIDLocal(jid string) string {
	return strings.SplitN(jid, "@", 2)[0]
}
