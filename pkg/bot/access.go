package bot

import "github.com/tinyland-inc/jabberclaw/pkg/config"

// AccessController decides whether an inbound sender may trigger message
// handlers. It is a pure view over the immutable Settings allowlist: an
// empty allowlist is the open policy.
type AccessController struct {
	settings *config.Settings
}

// NewAccessController builds a controller over the given settings.
func NewAccessController(s *config.Settings) *AccessController {
	return &AccessController{settings: s}
}

// IsAllowed reports whether the (possibly full) JID is authorized.
func (a *AccessController) IsAllowed(jid string) bool {
	return a.settings.IsJIDAllowed(jid)
}
