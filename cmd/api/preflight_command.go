package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/config"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/preflight"
)

func newPreflightCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Check that yt-dlp and FFmpeg are installed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Resolve(*configFlag)
			if err != nil {
				return err
			}

			statuses := preflight.CheckBinaries(preflight.Requirements(cfg.Download))
			out := cmd.OutOrStdout()
			for _, s := range statuses {
				if s.Available {
					fmt.Fprintf(out, "ok       %-8s %s (%s)\n", s.Name, s.Path, s.Description)
				} else {
					fmt.Fprintf(out, "missing  %-8s %s (%s)\n", s.Name, s.Detail, s.Description)
				}
			}

			if missing := preflight.Missing(statuses); len(missing) > 0 {
				return fmt.Errorf("%d required binaries missing", len(missing))
			}
			return nil
		},
	}
}
