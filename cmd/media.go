package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/smazurov/filecast/internal/media"
	"github.com/spf13/cobra"
)

// CreateMediaCmd creates the media command.
func CreateMediaCmd(settings SettingsFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "media [dir]",
		Short: "List video files that can be streamed",
		Long:  `Lists video files under dir, or under the configured media directory when dir is omitted.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := settings().MediaDir
			if len(args) == 1 {
				dir = args[0]
			}
			files, err := media.List(dir)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, f := range files {
				fmt.Fprintf(w, "%s\t%d\t%s\n", f.Path, f.Size, f.ModTime.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
}
