// JabberClaw - Long-lived XMPP client agent
// License: MIT
//
// Copyright (c) 2026 JabberClaw contributors

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/jabberclaw/cmd/jabberclaw/internal"
	"github.com/tinyland-inc/jabberclaw/cmd/jabberclaw/internal/run"
	"github.com/tinyland-inc/jabberclaw/cmd/jabberclaw/internal/send"
	"github.com/tinyland-inc/jabberclaw/cmd/jabberclaw/internal/version"
)

func NewJabberclawCommand() *cobra.Command {
	short := fmt.Sprintf("%s jabberclaw - XMPP agent v%s\n\n", internal.Logo, internal.GetVersion())

	cmd := &cobra.Command{
		Use:     "jabberclaw",
		Short:   short,
		Example: "jabberclaw run",
	}

	cmd.AddCommand(
		run.NewRunCommand(),
		send.NewSendCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewJabberclawCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
