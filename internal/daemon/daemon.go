// Package daemon runs the long-lived side of the pipeline: it triggers job
// invocations on their schedules, drives the metric extraction and alarm
// evaluation loop, prunes the sink per the retention policy, and serves the
// HTTP status surface.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/runwatch/runwatch/internal/alarm"
	"github.com/runwatch/runwatch/internal/config"
	"github.com/runwatch/runwatch/internal/metric"
	"github.com/runwatch/runwatch/internal/runner"
	"github.com/runwatch/runwatch/internal/sink"
)

// Daemon wires the runner, extractor, and dispatcher together under the
// configured triggers.
type Daemon struct {
	cfg        *config.Config
	run        *runner.Runner
	store      *sink.FileSink
	extractor  *metric.Extractor
	dispatcher *alarm.Dispatcher
	registry   *prometheus.Registry
	logger     *slog.Logger
}

// New assembles a daemon from an already validated config.
func New(cfg *config.Config, run *runner.Runner, store *sink.FileSink, extractor *metric.Extractor, dispatcher *alarm.Dispatcher, registry *prometheus.Registry, logger *slog.Logger) *Daemon {
	return &Daemon{
		cfg:        cfg,
		run:        run,
		store:      store,
		extractor:  extractor,
		dispatcher: dispatcher,
		registry:   registry,
		logger:     logger,
	}
}

// Run blocks until ctx is cancelled. Triggers never retry a failed
// invocation; retry policy belongs to whatever invokes the daemon's jobs.
func (d *Daemon) Run(ctx context.Context) error {
	c := cron.New()
	for i := range d.cfg.Jobs {
		job := &d.cfg.Jobs[i]
		spec, ok := cronSpec(job.Trigger)
		if !ok {
			continue
		}
		kind := job.Trigger.Kind()
		if _, err := c.AddFunc(spec, func() { d.invoke(ctx, job, kind) }); err != nil {
			return fmt.Errorf("scheduling job %s: %w", job.Name, err)
		}
		d.logger.Info("job scheduled", "job", job.Name, "trigger", kind, "spec", spec)
	}
	c.Start()
	defer c.Stop()

	watcher, err := d.startWatches(ctx)
	if err != nil {
		return err
	}
	if watcher != nil {
		defer watcher.Close()
	}

	srv := d.serveHTTP(ctx)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	period := d.dispatcher.Period()
	evalTicker := time.NewTicker(period)
	defer evalTicker.Stop()

	retention, err := d.cfg.Options.RetentionDuration()
	if err != nil {
		return err
	}
	pruneTicker := time.NewTicker(time.Hour)
	defer pruneTicker.Stop()

	d.logger.Info("daemon started",
		"jobs", len(d.cfg.Jobs), "period", period, "listen", d.cfg.Options.ListenAddr)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("daemon stopping")
			return nil
		case now := <-evalTicker.C:
			d.evaluateOnce(now)
		case <-pruneTicker.C:
			if err := d.store.Prune(retention); err != nil {
				d.logger.Error("retention prune failed", "error", err)
			}
		}
	}
}

// evaluateOnce runs one evaluation period: advance the scrape counter, then
// feed the window's sample to the dispatcher.
func (d *Daemon) evaluateOnce(now time.Time) {
	if _, err := d.extractor.Scan(); err != nil {
		d.logger.Error("metric scan failed", "error", err)
	}

	from := now.Add(-d.dispatcher.Period())
	count, present, err := d.extractor.Window(from, now)
	if err != nil {
		d.logger.Error("metric window failed", "error", err)
		return
	}
	d.dispatcher.Evaluate(count, present, now)
}

func (d *Daemon) invoke(ctx context.Context, job *config.Job, trigger string) {
	result := d.run.RunJob(ctx, job, trigger)
	if result.Failed() {
		d.logger.Warn("invocation failed",
			"job", job.Name, "stage", result.ErrStage, "exit_code", result.ExitCode)
	}
}

// startWatches sets up fsnotify-triggered jobs. Returns nil when no job
// uses a watch trigger.
func (d *Daemon) startWatches(ctx context.Context) (*fsnotify.Watcher, error) {
	byPath := make(map[string][]*config.Job)
	for i := range d.cfg.Jobs {
		job := &d.cfg.Jobs[i]
		if job.Trigger.Watch != "" {
			byPath[job.Trigger.Watch] = append(byPath[job.Trigger.Watch], job)
		}
	}
	if len(byPath) == 0 {
		return nil, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	for path := range byPath {
		if err := watcher.Add(path); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("watching %s: %w", path, err)
		}
		d.logger.Info("watch registered", "path", path)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				for _, jobs := range matchWatch(byPath, event.Name) {
					for _, job := range jobs {
						d.logger.Debug("watch fired", "job", job.Name, "path", event.Name)
						d.invoke(ctx, job, "watch")
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				d.logger.Error("watch error", "error", err)
			}
		}
	}()

	return watcher, nil
}

func matchWatch(byPath map[string][]*config.Job, name string) [][]*config.Job {
	var matched [][]*config.Job
	for path, jobs := range byPath {
		if name == path || hasPathPrefix(name, path) {
			matched = append(matched, jobs)
		}
	}
	return matched
}

func hasPathPrefix(name, dir string) bool {
	return len(name) > len(dir) && name[:len(dir)] == dir && name[len(dir)] == '/'
}

func (d *Daemon) serveHTTP(ctx context.Context) *http.Server {
	srv := &http.Server{
		Addr:    d.cfg.Options.ListenAddr,
		Handler: d.router(),
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			d.logger.Error("http server failed", "error", err)
		}
	}()
	return srv
}

// cronSpec translates a job trigger into a cron expression; watch and
// manual triggers have none.
func cronSpec(t config.Trigger) (string, bool) {
	switch {
	case t.Cron != "":
		return t.Cron, true
	case t.Interval != "":
		return "@every " + t.Interval, true
	default:
		return "", false
	}
}
