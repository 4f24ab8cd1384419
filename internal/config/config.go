// Package config loads and validates the YAML configuration. Values may
// reference environment variables; they are expanded before decoding.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/a8m/envsubst"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
)

// Defaults for the recognized options.
const (
	DefaultPrefix        = "runwatch"
	DefaultShell         = "/bin/sh"
	DefaultPeriod        = "60s"
	DefaultThreshold     = "1"
	DefaultRetentionDays = "14"
	DefaultListenAddr    = ":8321"
	DefaultSinkPath      = "/var/lib/runwatch/records.jsonl"
)

type Config struct {
	Options  Options            `yaml:"options"`
	Globals  map[string]any     `yaml:"globals"`
	Services map[string]Service `yaml:"services" validate:"dive"`
	Alarm    Alarm              `yaml:"alarm"`
	Jobs     []Job              `yaml:"jobs" validate:"dive"`
}

// Options are the flat tunables. All fields are strings so the CLI can
// overlay them reflectively from flags; use the typed accessors to read.
type Options struct {
	Prefix        string `yaml:"prefix"`
	ScriptsDir    string `yaml:"scripts_dir"`
	SinkPath      string `yaml:"sink_path"`
	Shell         string `yaml:"shell"`
	Period        string `yaml:"period"`
	Threshold     string `yaml:"threshold"`
	RetentionDays string `yaml:"retention_days"`
	ListenAddr    string `yaml:"listen_addr"`
}

// PeriodDuration parses the alarm evaluation period.
func (o Options) PeriodDuration() (time.Duration, error) {
	d, err := time.ParseDuration(o.Period)
	if err != nil {
		return 0, fmt.Errorf("options.period: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("options.period must be positive, got %s", d)
	}
	return d, nil
}

// ThresholdCount parses the alarm threshold.
func (o Options) ThresholdCount() (int, error) {
	n, err := strconv.Atoi(o.Threshold)
	if err != nil {
		return 0, fmt.Errorf("options.threshold: %w", err)
	}
	if n < 1 {
		return 0, fmt.Errorf("options.threshold must be at least 1, got %d", n)
	}
	return n, nil
}

// RetentionDuration parses the log retention period.
func (o Options) RetentionDuration() (time.Duration, error) {
	days, err := strconv.Atoi(o.RetentionDays)
	if err != nil {
		return 0, fmt.Errorf("options.retention_days: %w", err)
	}
	if days < 1 {
		return 0, fmt.Errorf("options.retention_days must be at least 1, got %d", days)
	}
	return time.Duration(days) * 24 * time.Hour, nil
}

type Service struct {
	URL    string            `yaml:"url" validate:"required"`
	Params map[string]string `yaml:"params"`
}

// Alarm configures the breach/recovery notification fan-out.
type Alarm struct {
	Template string         `yaml:"template"`
	Notify   []NotifyTarget `yaml:"notify"`
}

type Job struct {
	Name    string  `yaml:"name" validate:"required"`
	Script  string  `yaml:"script" validate:"required"`
	Trigger Trigger `yaml:"trigger"`
	Timeout string  `yaml:"timeout"`
}

// TimeoutDuration parses the per-job timeout; zero means no cap beyond
// whatever the caller imposes.
func (j Job) TimeoutDuration() (time.Duration, error) {
	if j.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(j.Timeout)
	if err != nil {
		return 0, fmt.Errorf("job %s timeout: %w", j.Name, err)
	}
	return d, nil
}

type Trigger struct {
	Interval string `yaml:"interval"`
	Cron     string `yaml:"cron"`
	Watch    string `yaml:"watch"`
}

// Kind names the trigger variant, "manual" when none is set.
func (t Trigger) Kind() string {
	switch {
	case t.Watch != "":
		return "watch"
	case t.Cron != "":
		return "cron"
	case t.Interval != "":
		return "interval"
	default:
		return "manual"
	}
}

// NotifyTarget handles a plain service name string or an object with overrides.
type NotifyTarget struct {
	Service  string            `yaml:"service"`
	Template string            `yaml:"template"`
	Params   map[string]string `yaml:"params"`
}

func (n *NotifyTarget) UnmarshalYAML(unmarshal func(any) error) error {
	var str string
	if err := unmarshal(&str); err == nil {
		n.Service = str
		return nil
	}

	type notifyAlias NotifyTarget
	var obj notifyAlias
	if err := unmarshal(&obj); err != nil {
		return fmt.Errorf("notify: must be a service name string or an object with service/template/params")
	}
	*n = NotifyTarget(obj)
	return nil
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	data, err = envsubst.Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("expanding env vars: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	o := &cfg.Options
	if o.Prefix == "" {
		o.Prefix = DefaultPrefix
	}
	if o.Shell == "" {
		o.Shell = DefaultShell
	}
	if o.Period == "" {
		o.Period = DefaultPeriod
	}
	if o.Threshold == "" {
		o.Threshold = DefaultThreshold
	}
	if o.RetentionDays == "" {
		o.RetentionDays = DefaultRetentionDays
	}
	if o.ListenAddr == "" {
		o.ListenAddr = DefaultListenAddr
	}
	if o.SinkPath == "" {
		o.SinkPath = DefaultSinkPath
	}
}

// Validate checks structural constraints beyond what decoding enforces.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if _, err := cfg.Options.PeriodDuration(); err != nil {
		return err
	}
	if _, err := cfg.Options.ThresholdCount(); err != nil {
		return err
	}
	if _, err := cfg.Options.RetentionDuration(); err != nil {
		return err
	}

	if len(cfg.Alarm.Notify) == 0 {
		return fmt.Errorf("alarm.notify: at least one notification target is required")
	}
	for _, ref := range cfg.Alarm.Notify {
		if _, ok := cfg.Services[ref.Service]; !ok {
			return fmt.Errorf("alarm.notify: unknown service %q", ref.Service)
		}
	}

	seen := make(map[string]bool, len(cfg.Jobs))
	for _, job := range cfg.Jobs {
		if seen[job.Name] {
			return fmt.Errorf("duplicate job name %q", job.Name)
		}
		seen[job.Name] = true

		set := 0
		for _, v := range []string{job.Trigger.Interval, job.Trigger.Cron, job.Trigger.Watch} {
			if v != "" {
				set++
			}
		}
		if set > 1 {
			return fmt.Errorf("job %s: trigger must set at most one of interval/cron/watch", job.Name)
		}
		if _, err := job.TimeoutDuration(); err != nil {
			return err
		}
	}

	return nil
}
