package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/webscraper/internal/api"
)

// newArchiveCmd creates the 'archive' subcommand, which runs scrape-and-archive once.
func newArchiveCmd() *cobra.Command {
	var eventPath string
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Download the CSV linked from a page and upload it to the bucket",
		Long: `Reads an event ({"websiteUrl", "xpath", "filePrefixPattern"}) from --event or stdin,
picks the first selected element whose text contains the match token, downloads its href and
uploads the file as <advertised name><strftime(now, filePrefixPattern)>.csv to the bucket named
by BUCKET_NAME.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			ev, err := readEvent(cmd, eventPath)
			if err != nil {
				return err
			}
			code, err := appInstance.Archiver().Run(cmd.Context(), ev)
			if err != nil {
				return fmt.Errorf("archive %s: %w", ev.EventID, err)
			}
			return writeOutput(cmd, api.ArchiveResponse{EventID: ev.EventID, StatusCode: code})
		},
	}
	cmd.Flags().StringVar(&eventPath, "event", "-", "path to the event JSON, - for stdin")
	return cmd
}
