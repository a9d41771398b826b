package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/webscraper/internal/id/uuid"
	"github.com/JakeFAU/webscraper/internal/workflow"
)

// readEvent decodes the trigger payload from path, or from stdin when path is "" or "-".
// A missing event ID is filled in.
func readEvent(cmd *cobra.Command, path string) (workflow.Event, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return workflow.Event{}, fmt.Errorf("open event file: %w", err)
		}
		defer f.Close() //nolint:errcheck // read-only
		r = f
	}

	var ev workflow.Event
	if err := json.NewDecoder(r).Decode(&ev); err != nil {
		return workflow.Event{}, fmt.Errorf("%w: decode event: %v", workflow.ErrInvalidEvent, err)
	}
	id, err := uuid.New().EnsureEventID(ev.EventID)
	if err != nil {
		return workflow.Event{}, err
	}
	ev.EventID = id
	return ev, nil
}

func writeOutput(cmd *cobra.Command, payload any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
