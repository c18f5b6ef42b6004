package bot

import (
	"context"
	"time"

	"github.com/tinyland-inc/jabberclaw/pkg/bus"
	"github.com/tinyland-inc/jabberclaw/pkg/logger"
)

// sendLoop is the single consumer of the outbound queue. It serializes
// all writes to the transport, paces them by the configured send delay,
// and preserves FIFO order across reconnects by holding a failed
// message locally and retrying it before consuming the next one.
func (b *Bot) sendLoop(ctx context.Context) {
	var retry *bus.OutboundMessage

	for {
		msg := retry
		retry = nil
		if msg == nil {
			var ok bool
			msg, ok = b.queue.Consume(ctx)
			if !ok {
				logger.DebugC("sender", "Outbound queue drained, send worker stopping")
				return
			}
		}

		sess, err := b.supervisor.Session(ctx)
		if err != nil {
			// Shutting down (or caller context gone): fail the message so
			// sync senders unblock, and keep draining the backlog.
			msg.Resolve(err)
			b.queue.MarkDone()
			continue
		}

		if err := b.transport.Send(sess, msg.Stanza); err != nil {
			logger.WarnCF("sender", "Send failed, message retained for retry", map[string]any{
				"id": msg.ID, "to": msg.Stanza.To, "error": err.Error(),
			})
			b.supervisor.ReportFailure(err)
			retry = msg
			continue
		}

		msg.Resolve(nil)
		b.queue.MarkDone()
		logger.DebugCF("sender", "Stanza sent", map[string]any{
			"id": msg.ID, "to": msg.Stanza.To,
		})

		select {
		case <-time.After(b.settings.SendDelayDuration()):
		case <-ctx.Done():
		}
	}
}
