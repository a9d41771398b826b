package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newNotifyCmd creates the 'notify' subcommand, which runs verify-and-notify once.
func newNotifyCmd() *cobra.Command {
	var eventPath string
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Verify participants and email the page at websiteUrl",
		Long: `Reads an event ({"from", "to", "websiteUrl"}) from --event or stdin, checks every
address against the SES identity registry and emails the page HTML to the recipients.
Unverified addresses are sent a verification request. The event is echoed on success.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			ev, err := readEvent(cmd, eventPath)
			if err != nil {
				return err
			}
			out, err := appInstance.Notifier().Run(cmd.Context(), ev)
			if err != nil {
				return fmt.Errorf("notify %s: %w", ev.EventID, err)
			}
			payload, err := out.Payload()
			if err != nil {
				return err
			}
			return writeOutput(cmd, payload)
		},
	}
	cmd.Flags().StringVar(&eventPath, "event", "-", "path to the event JSON, - for stdin")
	return cmd
}
