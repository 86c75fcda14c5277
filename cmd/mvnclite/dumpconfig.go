package main

import (
	"github.com/spf13/cobra"

	"github.com/swdee/go-mvnclite/internal/config"
)

func newDumpConfigCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dumpconfig",
		Short: "Show configuration values",
		Long:  "The dumpconfig command shows the configuration after applying the environment and config file.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Encode(cmd.OutOrStdout(), opts.cfg)
		},
	}
}
