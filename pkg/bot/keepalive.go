package bot

import (
	"context"
	"time"

	"github.com/tinyland-inc/jabberclaw/pkg/bus"
	"github.com/tinyland-inc/jabberclaw/pkg/logger"
)

// keepaliveLoop periodically enqueues a presence ping so middleboxes keep
// the idle connection open. Pings flow through the shared outbound queue,
// so they are paced and serialized exactly like user traffic. Ticks while
// not Connected are skipped rather than queued up.
func (b *Bot) keepaliveLoop(ctx context.Context) {
	ticker := time.NewTicker(b.settings.KeepaliveDuration())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.DebugC("keepalive", "Keepalive worker stopping")
			return
		case <-ticker.C:
		}

		if b.supervisor.State() != StateConnected {
			continue
		}

		ping := bus.NewPresence("", "")
		if err := b.queue.Publish(ctx, ping); err != nil {
			logger.DebugCF("keepalive", "Could not enqueue keepalive", map[string]any{
				"error": err.Error(),
			})
			continue
		}
		logger.DebugC("keepalive", "Keepalive presence enqueued")
	}
}
