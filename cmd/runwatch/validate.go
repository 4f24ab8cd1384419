package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/runwatch/runwatch/internal/config"
	"github.com/runwatch/runwatch/internal/notify"
	"github.com/runwatch/runwatch/internal/script"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: "Loads the config, checks its structure, resolves every job's script, " +
		"and verifies each notification service URL without sending anything.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Resolve(cfgFile)
		if err != nil {
			return err
		}
		applyOptionFlags(cmd, cfg)

		problems := 0

		if err := config.Validate(cfg); err != nil {
			fmt.Printf("✗ config: %s\n", err)
			problems++
		} else {
			fmt.Println("✓ config structure")
		}

		for _, job := range cfg.Jobs {
			if _, err := script.Resolve(job.Script, cfg.Options.ScriptsDir); err != nil {
				fmt.Printf("✗ job %s: %s\n", job.Name, err)
				problems++
			} else {
				fmt.Printf("✓ job %s (%s)\n", job.Name, job.Script)
			}
		}

		for name, svc := range cfg.Services {
			t := notify.Target{ServiceName: name, URL: svc.URL}
			if err := notify.Validate(t); err != nil {
				fmt.Printf("✗ service %s: %s\n", name, err)
				problems++
			} else {
				fmt.Printf("✓ service %s\n", name)
			}
		}

		if problems > 0 {
			fmt.Printf("\n%d problem(s) found\n", problems)
			os.Exit(1)
		}
		fmt.Println("\nconfiguration is valid")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
