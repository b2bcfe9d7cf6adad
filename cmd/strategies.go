package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/ecodispatch/core/compiler"
	"github.com/kilianp07/ecodispatch/core/metrics"
)

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List compilation strategies and metrics sinks",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		names := make([]string, 0, len(compiler.Strategies()))
		for _, s := range compiler.Strategies() {
			names = append(names, s.String())
		}
		if _, err := fmt.Fprintf(out, "strategies: %s\n", strings.Join(names, ", ")); err != nil {
			return err
		}
		_, err := fmt.Fprintf(out, "sinks: %s\n", strings.Join(metrics.SinkTypes(), ", "))
		return err
	},
}

func init() {
	rootCmd.AddCommand(strategiesCmd)
}
