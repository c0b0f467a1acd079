package cmd

import (
	"fmt"

	"github.com/smazurov/filecast/internal/logging"
	"github.com/smazurov/filecast/internal/viewer"
	"github.com/spf13/cobra"
)

// CreatePlayCmd creates the play command.
func CreatePlayCmd(settings SettingsFunc) *cobra.Command {
	var viewerPath string

	cmd := &cobra.Command{
		Use:   "play <url>",
		Short: "Open a playback URL in the external viewer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := viewerPath
			if path == "" {
				path = settings().ViewerPath
			}
			launcher := viewer.New(path, logging.GetLogger("viewer"))
			pid, err := launcher.Launch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "viewer started (pid %d)\n", pid)
			return nil
		},
	}

	cmd.Flags().StringVar(&viewerPath, "viewer", "", "Viewer executable (default: configured viewer path)")

	return cmd
}
