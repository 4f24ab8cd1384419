package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "runwatch",
	Short: "Managed script invocations with failure alerting",
	Long: "Runwatch wraps batch scripts in managed invocations: it captures their " +
		"output, turns failures into a fixed sentinel log line, derives a failure " +
		"metric from the log, and pages through Shoutrrr when the alarm threshold " +
		"is breached. No database, no agent fleet, just one YAML config and a process.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	registerOptionFlags(rootCmd)
}
