package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/runwatch/runwatch/internal/config"
	"github.com/runwatch/runwatch/internal/metric"
	"github.com/runwatch/runwatch/internal/sink"
	"github.com/runwatch/runwatch/internal/tui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent failure buckets and the derived alarm state",
	Long: "Reads the log sink and displays the last hour of metric buckets. " +
		"Interactive when stdout is a terminal, plain text otherwise.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Resolve(cfgFile)
		if err != nil {
			return err
		}
		applyOptionFlags(cmd, cfg)

		period, err := cfg.Options.PeriodDuration()
		if err != nil {
			return err
		}
		threshold, err := cfg.Options.ThresholdCount()
		if err != nil {
			return err
		}

		store, err := sink.NewFileSink(cfg.Options.SinkPath)
		if err != nil {
			return err
		}
		defer store.Close()

		extractor := metric.NewExtractor(store, period, cfg.Options.Prefix, nil)

		if !isatty.IsTerminal(os.Stdout.Fd()) {
			out, err := tui.RenderPlain(extractor, threshold, cfg.Options.Prefix, time.Now())
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		}

		m := tui.New(extractor, threshold, cfg.Options.Prefix)
		_, err = tea.NewProgram(m).Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
