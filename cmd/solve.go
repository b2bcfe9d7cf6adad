package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/ecodispatch/app"
	"github.com/kilianp07/ecodispatch/config"
	"github.com/kilianp07/ecodispatch/core/results"
	"github.com/kilianp07/ecodispatch/pkg/export"
)

var solveFlags struct {
	scenario  string
	output    string
	format    string
	precision int
}

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Compile and solve a scenario, then write the dispatch table",
	RunE:  solve,
}

func init() {
	f := solveCmd.Flags()
	f.StringVarP(&solveFlags.scenario, "scenario", "s", "", "scenario file (yaml or json)")
	f.StringVarP(&solveFlags.output, "output", "o", "", "output file, stdout when empty")
	f.StringVarP(&solveFlags.format, "format", "f", "", "output format: csv or json")
	f.IntVarP(&solveFlags.precision, "precision", "p", 0, "digits after the point, lossless when unset")
	_ = solveCmd.MarkFlagRequired("scenario")
	rootCmd.AddCommand(solveCmd)
}

func solve(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := applySolveFlags(cmd, cfg); err != nil {
		return err
	}

	sys, err := config.LoadScenario(solveFlags.scenario)
	if err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}
	runner, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer runner.Close()

	run, err := runner.Run(ctx, sys)
	if err != nil {
		return err
	}
	if run.Results == nil {
		return fmt.Errorf("run %s: %s: %s", run.ID, run.Solution.Status, run.Solution.Detail)
	}

	return writeOutput(cmd.OutOrStdout(), cfg.Output, run.Results)
}

// writeOutput renders res to the configured path, or to stdout when the path
// is empty. A failed close of the output file is reported.
func writeOutput(stdout io.Writer, out config.OutputConfig, res *results.Results) (err error) {
	format := export.Format(out.Format)
	if out.Path == "" {
		return export.Write(stdout, format, res, out.Digits())
	}
	f, err := os.Create(out.Path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return export.Write(f, format, res, out.Digits())
}

func applySolveFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output.Path = solveFlags.output
	}
	if flags.Changed("format") {
		cfg.Output.Format = solveFlags.format
	}
	if flags.Changed("precision") {
		p := solveFlags.precision
		cfg.Output.Precision = &p
	}
	if err := cfg.Output.Validate(); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	return nil
}
