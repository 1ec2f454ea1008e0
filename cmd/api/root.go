package main

import (
	"github.com/spf13/cobra"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/config"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "yt2mp3",
		Short:         "Convert YouTube videos to downloadable MP3 files",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve(configFlag)
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newServeCommand(&configFlag))
	rootCmd.AddCommand(newPreflightCommand(&configFlag))

	return rootCmd
}

func newServeCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Resolve(*configFlag)
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg)
		},
	}
}
