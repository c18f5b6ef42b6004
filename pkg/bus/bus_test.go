package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tinyland-inc/jabberclaw/pkg/xmpp"
)

func TestPublishConsumeFIFO(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()

	first := NewMessage("a@example.org", "one")
	second := NewMessage("a@example.org", "two")
	third := NewMessage("b@example.org", "three")

	for _, m := range []*OutboundMessage{first, second, third} {
		if err := q.Publish(ctx, m); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}

	for i, want := range []*OutboundMessage{first, second, third} {
		got, ok := q.Consume(ctx)
		if !ok {
			t.Fatalf("Consume %d returned closed", i)
		}
		if got.ID != want.ID {
			t.Errorf("Consume %d = %q, want %q", i, got.Stanza.Body, want.Stanza.Body)
		}
		q.MarkDone()
	}

	if n := q.Pending(); n != 0 {
		t.Errorf("Pending = %d, want 0", n)
	}
}

func TestPublishAfterCloseFails(t *testing.T) {
	q := NewQueue()
	q.Close()

	err := q.Publish(context.Background(), NewMessage("a@example.org", "late"))
	if !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Publish error = %v, want ErrQueueClosed", err)
	}
}

func TestConsumeDrainsBacklogAfterClose(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()

	msg := NewMessage("a@example.org", "pending")
	if err := q.Publish(ctx, msg); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	q.Close()

	got, ok := q.Consume(ctx)
	if !ok {
		t.Fatal("Consume should drain the backlog after close")
	}
	if got.ID != msg.ID {
		t.Errorf("drained wrong message: %q", got.Stanza.Body)
	}
	q.MarkDone()

	if _, ok := q.Consume(ctx); ok {
		t.Error("Consume on empty closed queue should report closed")
	}
}

func TestConsumeHonorsContext(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, ok := q.Consume(ctx); ok {
		t.Error("Consume should give up when ctx expires")
	}
}

func TestFlushWaitsForInflight(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()

	if err := q.Publish(ctx, NewMessage("a@example.org", "x")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	flushCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	if err := q.Flush(flushCtx); err == nil {
		t.Error("Flush should time out while a message is pending")
	}

	msg, _ := q.Consume(ctx)
	msg.Resolve(nil)
	q.MarkDone()

	if err := q.Flush(ctx); err != nil {
		t.Errorf("Flush after drain failed: %v", err)
	}
}

func TestResolveAndWait(t *testing.T) {
	msg := NewMessage("a@example.org", "hello")

	sendErr := errors.New("transport broke")
	msg.Resolve(sendErr)
	// A second resolve is ignored.
	msg.Resolve(nil)

	err := msg.Wait(context.Background())
	if !errors.Is(err, sendErr) {
		t.Errorf("Wait = %v, want the first resolution", err)
	}
}

func TestWaitHonorsContext(t *testing.T) {
	msg := NewMessage("a@example.org", "hello")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := msg.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait = %v, want deadline exceeded", err)
	}
}

func TestNewPresenceShape(t *testing.T) {
	ping := NewPresence("", "")
	if ping.Stanza.Kind != xmpp.KindPresence {
		t.Errorf("Kind = %q", ping.Stanza.Kind)
	}
	if ping.Stanza.To != "" || ping.Stanza.Type != "" {
		t.Errorf("keepalive presence should be broadcast form, got to=%q type=%q",
			ping.Stanza.To, ping.Stanza.Type)
	}

	approval := NewPresence("friend@example.org", xmpp.PresenceSubscribed)
	if approval.Stanza.Type != xmpp.PresenceSubscribed {
		t.Errorf("Type = %q, want subscribed", approval.Stanza.Type)
	}
}
