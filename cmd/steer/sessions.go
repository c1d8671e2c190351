package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/steer/transcript"
)

func newSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List saved session transcripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			sink := transcript.NewFileSink(cfg.OutputDir)
			names, err := sink.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintf(out, "No sessions in %s\n", sink.Dir())
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(out, filepath.Join(sink.Dir(), name))
			}
			return nil
		},
	}
}
