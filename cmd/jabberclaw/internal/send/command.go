package send

import (
	"github.com/spf13/cobra"
)

func NewSendCommand() *cobra.Command {
	var to string
	var urlPath string
	var debug bool

	cmd := &cobra.Command{
		Use:     "send [message]",
		Aliases: []string{"s"},
		Short:   "Send a one-shot message and exit",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			message := ""
			if len(args) > 0 {
				message = args[0]
			}
			return sendCmd(message, to, urlPath, debug)
		},
	}

	cmd.Flags().StringVarP(&to, "to", "t", "", "Recipient JID (defaults to the configured default receiver)")
	cmd.Flags().StringVar(&urlPath, "url-path", "", "Send the configured base URL joined with this path instead of a message")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}
