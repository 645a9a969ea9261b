package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/justestif/go-music-muse/internal/engine"
)

func newRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the extraction rules in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for i, name := range engine.New(nil, nil).Rules() {
				fmt.Fprintf(cmd.OutOrStdout(), "%2d. %s\n", i+1, name)
			}
			return nil
		},
	}
}
