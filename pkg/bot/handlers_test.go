package bot

import (
	"errors"
	"testing"

	"github.com/tinyland-inc/jabberclaw/pkg/xmpp"
)

func noopMessage(string, string, xmpp.Stanza) error { return nil }

func noopPresence(string, string, string, xmpp.Stanza) error { return nil }

func TestAddDuplicateMessageHandler(t *testing.T) {
	r := NewHandlerRegistry()

	if err := r.AddMessageHandler("echo", noopMessage); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	err := r.AddMessageHandler("echo", noopMessage)
	if !errors.Is(err, ErrHandlerExists) {
		t.Errorf("duplicate add error = %v, want ErrHandlerExists", err)
	}
}

func TestRemoveAbsentMessageHandler(t *testing.T) {
	r := NewHandlerRegistry()

	err := r.RemoveMessageHandler("ghost")
	if !errors.Is(err, ErrHandlerNotFound) {
		t.Errorf("remove absent error = %v, want ErrHandlerNotFound", err)
	}
}

func TestMessageHandlerOrder(t *testing.T) {
	r := NewHandlerRegistry()

	var calls []string
	mk := func(name string) MessageHandler {
		return func(string, string, xmpp.Stanza) error {
			calls = append(calls, name)
			return nil
		}
	}

	for _, name := range []string{"first", "second", "third"} {
		if err := r.AddMessageHandler(name, mk(name)); err != nil {
			t.Fatalf("add %s failed: %v", name, err)
		}
	}
	if err := r.RemoveMessageHandler("second"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if err := r.AddMessageHandler("fourth", mk("fourth")); err != nil {
		t.Fatalf("add fourth failed: %v", err)
	}

	for _, h := range r.MessageHandlers() {
		_ = h("x@y.org", "body", xmpp.Stanza{})
	}

	want := []string{"first", "third", "fourth"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, calls[i], want[i])
		}
	}
}

func TestSameNameAcrossCategories(t *testing.T) {
	r := NewHandlerRegistry()

	if err := r.AddMessageHandler("watch", noopMessage); err != nil {
		t.Fatalf("message add failed: %v", err)
	}
	// The categories are independent namespaces.
	if err := r.AddPresenceHandler("watch", noopPresence); err != nil {
		t.Errorf("presence add with same name failed: %v", err)
	}

	if !r.HasMessageHandler("watch") || !r.HasPresenceHandler("watch") {
		t.Error("both categories should hold a handler named watch")
	}

	if err := r.RemoveMessageHandler("watch"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if !r.HasPresenceHandler("watch") {
		t.Error("removing the message handler must not touch the presence one")
	}
}

func TestClear(t *testing.T) {
	r := NewHandlerRegistry()
	_ = r.AddMessageHandler("a", noopMessage)
	_ = r.AddPresenceHandler("b", noopPresence)

	r.Clear()

	if r.HasMessageHandler("a") || r.HasPresenceHandler("b") {
		t.Error("Clear should drop every handler")
	}
	if len(r.MessageHandlers()) != 0 || len(r.PresenceHandlers()) != 0 {
		t.Error("Clear should leave empty snapshots")
	}
}
