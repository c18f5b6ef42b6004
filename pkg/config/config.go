// Package config loads and validates jabberclaw settings.
//
// Settings come from three layers, later layers winning: an optional JSON
// config file, a .env file if present, and the process environment. All
// knobs live under the XMPP_ prefix. Settings are immutable after Load.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Defaults applied when the environment leaves a knob unset.
const (
	DefaultConnectTimeout    = 30
	DefaultKeepaliveInterval = 60
	DefaultRetryDelay        = 5.0
	DefaultSendDelay         = 0.1
	DefaultResource          = "jabberclaw"
)

// Configuration errors.
var (
	ErrJIDRequired             = errors.New("jid is required")
	ErrPasswordRequired        = errors.New("password is required")
	ErrDefaultReceiverRequired = errors.New("default receiver is required")
	ErrInvalidJID              = errors.New("invalid jid format")
)

// jidPattern accepts localpart@domain with an optional /resource suffix.
var jidPattern = regexp.MustCompile(`^[^@]+@[^@/]+(?:/[^@]+)?$`)

// Settings holds the full bot configuration. Treat as read-only once
// constructed; workers read it concurrently without locking.
type Settings struct {
	JID             string   `env:"XMPP_JID"                json:"jid"`
	Password        string   `env:"XMPP_PASSWORD"           json:"password"`
	DefaultReceiver string   `env:"XMPP_DEFAULT_RECEIVER"   json:"default_receiver"`
	BaseURL         string   `env:"XMPP_BASE_URL"           json:"base_url"`
	AllowedJIDs     []string `env:"XMPP_ALLOWED_JIDS"       json:"allowed_jids"`
	ConnectTimeout  int      `env:"XMPP_CONNECT_TIMEOUT"    json:"connect_timeout"`
	Keepalive       int      `env:"XMPP_KEEPALIVE_INTERVAL" json:"keepalive_interval"`
	RetryDelay      float64  `env:"XMPP_RETRY_DELAY"        json:"retry_delay"`
	SendDelay       float64  `env:"XMPP_SEND_DELAY"         json:"send_delay"`
	Resource        string   `env:"XMPP_RESOURCE"           json:"resource"`
	Debug           bool     `env:"XMPP_DEBUG"              json:"debug"`

	// Server overrides the WebSocket endpoint derived from the JID domain.
	Server string `env:"XMPP_SERVER" json:"server"`
}

// DefaultSettings returns a Settings with defaults filled and the
// required identity fields empty.
func DefaultSettings() *Settings {
	return &Settings{
		ConnectTimeout: DefaultConnectTimeout,
		Keepalive:      DefaultKeepaliveInterval,
		RetryDelay:     DefaultRetryDelay,
		SendDelay:      DefaultSendDelay,
		Resource:       DefaultResource,
	}
}

// Load builds Settings from the optional JSON file at path, an optional
// .env file (envPath, or ./.env when empty), and the environment.
// Missing files are not errors; a malformed file is.
func Load(path, envPath string) (*Settings, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading env file %s: %w", envPath, err)
		}
	} else {
		// Best-effort default: a missing ./.env is fine.
		_ = godotenv.Load()
	}

	s := DefaultSettings()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, s); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// fall through to env only
		default:
			return nil, err
		}
	}

	if err := env.Parse(s); err != nil {
		return nil, err
	}
	s.normalizeAllowlist()

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadEnv is Load without a config file.
func LoadEnv() (*Settings, error) { return Load("", "") }

// normalizeAllowlist trims entries and drops empties so that
// "a@x, b@x," and "a@x,b@x" are equivalent.
func (s *Settings) normalizeAllowlist() {
	cleaned := s.AllowedJIDs[:0]
	for _, j := range s.AllowedJIDs {
		j = strings.TrimSpace(j)
		if j != "" {
			cleaned = append(cleaned, j)
		}
	}
	s.AllowedJIDs = cleaned
}

// Validate checks required fields and JID shapes. Programmatically built
// Settings must call this before use.
func (s *Settings) Validate() error {
	if s.JID == "" {
		return ErrJIDRequired
	}
	if s.Password == "" {
		return ErrPasswordRequired
	}
	if s.DefaultReceiver == "" {
		return ErrDefaultReceiverRequired
	}
	if !jidPattern.MatchString(s.JID) {
		return fmt.Errorf("%w: %q", ErrInvalidJID, s.JID)
	}
	if !jidPattern.MatchString(s.DefaultReceiver) {
		return fmt.Errorf("%w: %q", ErrInvalidJID, s.DefaultReceiver)
	}
	for _, j := range s.AllowedJIDs {
		if !jidPattern.MatchString(j) {
			return fmt.Errorf("%w: %q", ErrInvalidJID, j)
		}
	}
	return nil
}

// JIDUser returns the localpart of the configured JID.
func (s *Settings) JIDUser() string {
	return strings.SplitN(s.JID, "@", 2)[0]
}

// JIDDomain returns the domain of the configured JID, resource stripped.
func (s *Settings) JIDDomain() string {
	parts := strings.SplitN(s.JID, "@", 2)
	if len(parts) < 2 {
		return ""
	}
	return strings.SplitN(parts[1], "/", 2)[0]
}

// FullJID returns the JID with the resource attached. A resource already
// present in the JID wins over the Resource setting.
func (s *Settings) FullJID() string {
	if strings.Contains(s.JID, "/") {
		return s.JID
	}
	return s.JID + "/" + s.Resource
}

// IsJIDAllowed reports whether jid may trigger message handlers. An empty
// allowlist is the open policy. Comparison is on the bare JID, case-folded.
func (s *Settings) IsJIDAllowed(jid string) bool {
	if len(s.AllowedJIDs) == 0 {
		return true
	}
	bare := strings.ToLower(strings.SplitN(jid, "/", 2)[0])
	for _, allowed := range s.AllowedJIDs {
		if bare == strings.ToLower(strings.SplitN(allowed, "/", 2)[0]) {
			return true
		}
	}
	return false
}

// ConnectTimeoutDuration returns the connect timeout as a time.Duration.
func (s *Settings) ConnectTimeoutDuration() time.Duration {
	return time.Duration(s.ConnectTimeout) * time.Second
}

// KeepaliveDuration returns the keepalive interval as a time.Duration.
func (s *Settings) KeepaliveDuration() time.Duration {
	return time.Duration(s.Keepalive) * time.Second
}

// RetryDelayDuration returns the reconnect retry delay as a time.Duration.
func (s *Settings) RetryDelayDuration() time.Duration {
	return time.Duration(s.RetryDelay * float64(time.Second))
}

// SendDelayDuration returns the minimum inter-send delay as a time.Duration.
func (s *Settings) SendDelayDuration() time.Duration {
	return time.Duration(s.SendDelay * float64(time.Second))
}
