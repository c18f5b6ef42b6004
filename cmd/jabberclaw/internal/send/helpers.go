package send

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tinyland-inc/jabberclaw/cmd/jabberclaw/internal"
	"github.com/tinyland-inc/jabberclaw/pkg/bot"
	"github.com/tinyland-inc/jabberclaw/pkg/logger"
)

func sendCmd(message, to, urlPath string, debug bool) error {
	if message == "" && urlPath == "" {
		return errors.New("nothing to send: pass a message or --url-path")
	}

	if debug {
		logger.SetLevel(logger.DEBUG)
	}

	settings, err := internal.LoadSettings()
	if err != nil {
		return fmt.Errorf("error loading settings: %w", err)
	}

	b := bot.New()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := b.Initialize(ctx, settings); err != nil {
		return fmt.Errorf("error initializing bot: %w", err)
	}
	defer b.Shutdown()

	switch {
	case urlPath != "":
		err = b.SendURL(ctx, urlPath)
	case to != "":
		err = b.ReplyToUser(ctx, message, to)
	default:
		err = b.SendMessage(ctx, message)
	}
	if err != nil {
		return fmt.Errorf("error sending: %w", err)
	}

	if err := b.Flush(ctx); err != nil {
		return fmt.Errorf("error flushing outbound queue: %w", err)
	}

	fmt.Println("✓ Message sent")
	return nil
}
