package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "steer",
		Short: "Adaptive feature steering driven by a judge model",
		Long: `steer tunes a single feature-steering value on a generation model until a
judge model reports that the output meets a target specification. Every
session is saved as a plain-text transcript.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "config file (JSON or YAML)")
	root.PersistentFlags().String("output-dir", "", "transcript directory (overrides config)")

	root.AddCommand(newRunCmd(), newSessionsCmd())
	return root
}
