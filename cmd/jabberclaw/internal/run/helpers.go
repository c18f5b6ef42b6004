package run

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tinyland-inc/jabberclaw/cmd/jabberclaw/internal"
	"github.com/tinyland-inc/jabberclaw/pkg/bot"
	"github.com/tinyland-inc/jabberclaw/pkg/logger"
	"github.com/tinyland-inc/jabberclaw/pkg/xmpp"
)

func runCmd(debug, echo bool) error {
	if debug {
		logger.SetLevel(logger.DEBUG)
		fmt.Println("🔍 Debug mode enabled")
	}

	settings, err := internal.LoadSettings()
	if err != nil {
		return fmt.Errorf("error loading settings: %w", err)
	}
	if debug {
		settings.Debug = true
	}

	b := bot.GetInstance()

	ctx := context.Background()
	if err := b.Initialize(ctx, settings); err != nil {
		return fmt.Errorf("error initializing bot: %w", err)
	}

	fmt.Printf("✓ Connected as %s\n", settings.FullJID())
	if len(settings.AllowedJIDs) > 0 {
		fmt.Printf("✓ Allowlist active: %d JIDs\n", len(settings.AllowedJIDs))
	} else {
		fmt.Println("⚠ Allowlist empty: all senders accepted")
	}

	if echo {
		err := b.AddMessageHandler("echo", func(sender, body string, _ xmpp.Stanza) error {
			reply := "Echo: " + body
			sendCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return b.ReplyToUser(sendCtx, reply, sender)
		})
		if err != nil {
			return fmt.Errorf("error registering echo handler: %w", err)
		}
		fmt.Println("✓ Echo handler registered")
	}

	if err := b.StartReceiving(); err != nil {
		return fmt.Errorf("error starting receive workers: %w", err)
	}

	fmt.Println("✓ Agent started")
	fmt.Println("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nShutting down...")

	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := b.Flush(flushCtx); err != nil {
		fmt.Printf("⚠ Outbound queue not fully drained: %v\n", err)
	}

	b.Shutdown()
	fmt.Println("✓ Agent stopped")

	return nil
}
