package main

import (
	"reflect"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runwatch/runwatch/internal/config"
)

// optionFlags walks the fields of config.Options and yields the struct field
// index together with the flag name derived from the yaml tag, so flag
// registration and the config overlay cannot drift apart.
func optionFlags(fn func(field int, flagName, yamlTag string)) {
	t := reflect.TypeOf(config.Options{})
	for i := range t.NumField() {
		yamlTag := t.Field(i).Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		fn(i, strings.ReplaceAll(yamlTag, "_", "-"), yamlTag)
	}
}

// registerOptionFlags adds one persistent string flag per Options field.
func registerOptionFlags(cmd *cobra.Command) {
	optionFlags(func(_ int, flagName, yamlTag string) {
		cmd.PersistentFlags().String(flagName, "", "override config option "+yamlTag)
	})
}

// applyOptionFlags copies explicitly set flags over the loaded config.
// Unset flags leave the file values (or defaults) alone.
func applyOptionFlags(cmd *cobra.Command, cfg *config.Config) {
	opts := reflect.ValueOf(&cfg.Options).Elem()
	optionFlags(func(field int, flagName, _ string) {
		if !cmd.Flags().Changed(flagName) {
			return
		}
		val, _ := cmd.Flags().GetString(flagName)
		opts.Field(field).SetString(val)
	})
}
