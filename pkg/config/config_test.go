package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("XMPP_JID", "bot@example.org")
	t.Setenv("XMPP_PASSWORD", "secret")
	t.Setenv("XMPP_DEFAULT_RECEIVER", "owner@example.org")
}

func TestLoadEnvDefaults(t *testing.T) {
	setRequiredEnv(t)

	s, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}

	if s.ConnectTimeout != DefaultConnectTimeout {
		t.Errorf("ConnectTimeout = %d, want %d", s.ConnectTimeout, DefaultConnectTimeout)
	}
	if s.Keepalive != DefaultKeepaliveInterval {
		t.Errorf("Keepalive = %d, want %d", s.Keepalive, DefaultKeepaliveInterval)
	}
	if s.RetryDelay != DefaultRetryDelay {
		t.Errorf("RetryDelay = %v, want %v", s.RetryDelay, DefaultRetryDelay)
	}
	if s.SendDelay != DefaultSendDelay {
		t.Errorf("SendDelay = %v, want %v", s.SendDelay, DefaultSendDelay)
	}
	if s.Resource != DefaultResource {
		t.Errorf("Resource = %q, want %q", s.Resource, DefaultResource)
	}
	if s.Debug {
		t.Error("Debug should default to false")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("XMPP_CONNECT_TIMEOUT", "10")
	t.Setenv("XMPP_KEEPALIVE_INTERVAL", "120")
	t.Setenv("XMPP_RETRY_DELAY", "2.5")
	t.Setenv("XMPP_SEND_DELAY", "0.2")
	t.Setenv("XMPP_RESOURCE", "worker-1")
	t.Setenv("XMPP_DEBUG", "true")

	s, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}

	if s.ConnectTimeout != 10 {
		t.Errorf("ConnectTimeout = %d, want 10", s.ConnectTimeout)
	}
	if s.Keepalive != 120 {
		t.Errorf("Keepalive = %d, want 120", s.Keepalive)
	}
	if s.RetryDelay != 2.5 {
		t.Errorf("RetryDelay = %v, want 2.5", s.RetryDelay)
	}
	if s.Resource != "worker-1" {
		t.Errorf("Resource = %q, want worker-1", s.Resource)
	}
	if !s.Debug {
		t.Error("Debug should be true")
	}
}

func TestLoadMissingRequired(t *testing.T) {
	cases := []struct {
		name    string
		unset   string
		wantErr error
	}{
		{"jid", "XMPP_JID", ErrJIDRequired},
		{"password", "XMPP_PASSWORD", ErrPasswordRequired},
		{"receiver", "XMPP_DEFAULT_RECEIVER", ErrDefaultReceiverRequired},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tc.unset, "")

			_, err := LoadEnv()
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("LoadEnv error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestLoadInvalidJID(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("XMPP_JID", "not-a-jid")

	_, err := LoadEnv()
	if !errors.Is(err, ErrInvalidJID) {
		t.Errorf("LoadEnv error = %v, want ErrInvalidJID", err)
	}
}

func TestLoadAllowlistParsing(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("XMPP_ALLOWED_JIDS", "a@example.org, b@example.org ,,c@example.org")

	s, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}

	want := []string{"a@example.org", "b@example.org", "c@example.org"}
	if len(s.AllowedJIDs) != len(want) {
		t.Fatalf("AllowedJIDs = %v, want %v", s.AllowedJIDs, want)
	}
	for i := range want {
		if s.AllowedJIDs[i] != want[i] {
			t.Errorf("AllowedJIDs[%d] = %q, want %q", i, s.AllowedJIDs[i], want[i])
		}
	}
}

func TestLoadConfigFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("XMPP_RESOURCE", "from-env")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{"resource": "from-file", "base_url": "https://example.org/files"}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Environment wins over the file.
	if s.Resource != "from-env" {
		t.Errorf("Resource = %q, want from-env", s.Resource)
	}
	if s.BaseURL != "https://example.org/files" {
		t.Errorf("BaseURL = %q, want value from file", s.BaseURL)
	}
}

func TestLoadMissingFilesAreFine(t *testing.T) {
	setRequiredEnv(t)

	dir := t.TempDir()
	s, err := Load(filepath.Join(dir, "nope.json"), filepath.Join(dir, "nope.env"))
	if err != nil {
		t.Fatalf("Load with missing files failed: %v", err)
	}
	if s.JID != "bot@example.org" {
		t.Errorf("JID = %q", s.JID)
	}
}

func TestJIDAccessors(t *testing.T) {
	s := &Settings{JID: "bot@example.org", Resource: "claw"}

	if got := s.JIDUser(); got != "bot" {
		t.Errorf("JIDUser = %q, want bot", got)
	}
	if got := s.JIDDomain(); got != "example.org" {
		t.Errorf("JIDDomain = %q, want example.org", got)
	}
	if got := s.FullJID(); got != "bot@example.org/claw" {
		t.Errorf("FullJID = %q, want bot@example.org/claw", got)
	}

	withResource := &Settings{JID: "bot@example.org/fixed", Resource: "claw"}
	if got := withResource.FullJID(); got != "bot@example.org/fixed" {
		t.Errorf("FullJID = %q, want resource from JID to win", got)
	}
}

func TestIsJIDAllowed(t *testing.T) {
	open := &Settings{}
	if !open.IsJIDAllowed("anyone@example.org") {
		t.Error("empty allowlist should allow everyone")
	}

	s := &Settings{AllowedJIDs: []string{"Friend@Example.org"}}

	cases := []struct {
		jid  string
		want bool
	}{
		{"friend@example.org", true},
		{"FRIEND@EXAMPLE.ORG", true},
		{"friend@example.org/phone", true},
		{"stranger@example.org", false},
		{"friend@other.org", false},
	}
	for _, tc := range cases {
		if got := s.IsJIDAllowed(tc.jid); got != tc.want {
			t.Errorf("IsJIDAllowed(%q) = %v, want %v", tc.jid, got, tc.want)
		}
	}
}

func TestDurationHelpers(t *testing.T) {
	s := &Settings{ConnectTimeout: 30, Keepalive: 60, RetryDelay: 5.0, SendDelay: 0.1}

	if got := s.ConnectTimeoutDuration(); got != 30*time.Second {
		t.Errorf("ConnectTimeoutDuration = %v", got)
	}
	if got := s.KeepaliveDuration(); got != 60*time.Second {
		t.Errorf("KeepaliveDuration = %v", got)
	}
	if got := s.RetryDelayDuration(); got != 5*time.Second {
		t.Errorf("RetryDelayDuration = %v", got)
	}
	if got := s.SendDelayDuration(); got != 100*time.Millisecond {
		t.Errorf("SendDelayDuration = %v", got)
	}
}

func TestValidateProgrammatic(t *testing.T) {
	s := DefaultSettings()
	s.JID = "bot@example.org"
	s.Password = "pw"
	s.DefaultReceiver = "owner@example.org"
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	s.AllowedJIDs = []string{"bad jid"}
	if err := s.Validate(); !errors.Is(err, ErrInvalidJID) {
		t.Errorf("Validate error = %v, want ErrInvalidJID", err)
	}
}
