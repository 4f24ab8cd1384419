package main

import (
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/runwatch/runwatch/internal/alarm"
	"github.com/runwatch/runwatch/internal/config"
	"github.com/runwatch/runwatch/internal/daemon"
	"github.com/runwatch/runwatch/internal/metric"
	"github.com/runwatch/runwatch/internal/notify"
	"github.com/runwatch/runwatch/internal/runner"
	"github.com/runwatch/runwatch/internal/sink"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the runwatch daemon",
	Long: "Runs jobs on their configured triggers, evaluates the failure metric " +
		"every period, and sends breach/recovery notifications on alarm " +
		"transitions.",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := setupLogger()

		cfg, err := config.Resolve(cfgFile)
		if err != nil {
			return err
		}
		applyOptionFlags(cmd, cfg)
		if err := config.Validate(cfg); err != nil {
			return err
		}

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

		dryRun, _ := cmd.Flags().GetBool("dry-run")
		notifier := &notify.AlarmNotifier{
			Services: serviceDefs(cfg),
			Refs:     notifyRefs(cfg.Alarm.Notify),
			Template: alarmTemplate(cfg),
			Globals:  cfg.Globals,
			Prefix:   cfg.Options.Prefix,
			DryRun:   dryRun,
			Logger:   logger,
		}

		registry := prometheus.NewRegistry()
		extractor := metric.NewExtractor(store, period, cfg.Options.Prefix, registry)
		dispatcher := alarm.NewDispatcher(threshold, period, notifier, logger)
		run := runner.New(cfg, store, logger)

		d := daemon.New(cfg, run, store, extractor, dispatcher, registry, logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return d.Run(ctx)
	},
}

func init() {
	startCmd.Flags().Bool("dry-run", false, "validate notifications instead of sending them")
	rootCmd.AddCommand(startCmd)
}

func serviceDefs(cfg *config.Config) map[string]notify.ServiceDef {
	defs := make(map[string]notify.ServiceDef, len(cfg.Services))
	for name, svc := range cfg.Services {
		defs[name] = notify.ServiceDef{URL: svc.URL, Params: svc.Params}
	}
	return defs
}

func notifyRefs(targets []config.NotifyTarget) []notify.Ref {
	refs := make([]notify.Ref, len(targets))
	for i, t := range targets {
		refs[i] = notify.Ref{
			ServiceName: t.Service,
			Template:    t.Template,
			Params:      t.Params,
		}
	}
	return refs
}

func alarmTemplate(cfg *config.Config) string {
	if cfg.Alarm.Template != "" {
		return cfg.Alarm.Template
	}
	return notify.DefaultTemplate
}
