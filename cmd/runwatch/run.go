package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/runwatch/runwatch/internal/config"
	"github.com/runwatch/runwatch/internal/runner"
	"github.com/runwatch/runwatch/internal/sink"
)

var runCmd = &cobra.Command{
	Use:   "run [job_name]",
	Short: "Run jobs once",
	Long: "Runs a single job by name, or all jobs if no name is given. The process " +
		"exits nonzero when any invocation fails, so platform-level retry or " +
		"dead-letter handling can engage.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := setupLogger()

		cfg, err := config.Resolve(cfgFile)
		if err != nil {
			return err
		}
		applyOptionFlags(cmd, cfg)

		store, err := sink.NewFileSink(cfg.Options.SinkPath)
		if err != nil {
			return err
		}
		defer store.Close()

		r := runner.New(cfg, store, logger)
		ctx := context.Background()

		var results []runner.Result
		if len(args) == 1 {
			job := r.FindJob(args[0])
			if job == nil {
				return fmt.Errorf("job %q not found in config", args[0])
			}
			results = append(results, r.RunJob(ctx, job, "manual"))
		} else {
			results = r.RunAll(ctx, "manual")
		}

		hasFailure := false
		for _, res := range results {
			printResult(res)
			if res.Failed() {
				hasFailure = true
			}
		}

		if hasFailure {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func printResult(r runner.Result) {
	if r.Err != nil {
		fmt.Printf("✗ %s (%s)\n", r.JobName, r.ScriptURI)
		fmt.Printf("  Error (%s): %s\n", r.ErrStage, r.Err)
		return
	}

	mark := "✓"
	if r.Failed() {
		mark = "✗"
	}
	fmt.Printf("%s %s (%s)\n", mark, r.JobName, r.ScriptURI)
	fmt.Printf("  Outcome: %s, exit code %d, %d records, %s\n",
		r.Outcome, r.ExitCode, r.Records, r.Duration.Round(time.Millisecond))
}
