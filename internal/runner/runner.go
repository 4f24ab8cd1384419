// Package runner orchestrates one managed invocation: resolve the script,
// execute it, classify the outcome, append the records to the sink. Each
// invocation is stateless and owns its own buffers; nothing is shared
// between runs.
package runner

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/runwatch/runwatch/internal/classify"
	"github.com/runwatch/runwatch/internal/config"
	"github.com/runwatch/runwatch/internal/script"
	"github.com/runwatch/runwatch/internal/sink"
)

// Runner drives the resolve → exec → classify → append pipeline.
type Runner struct {
	cfg    *config.Config
	store  sink.Sink
	logger *slog.Logger
}

// New creates a Runner with the given config, sink, and logger.
func New(cfg *config.Config, store sink.Sink, logger *slog.Logger) *Runner {
	return &Runner{cfg: cfg, store: store, logger: logger}
}

// FindJob returns the job with the given name, or nil if not found.
func (r *Runner) FindJob(name string) *config.Job {
	for i := range r.cfg.Jobs {
		if r.cfg.Jobs[i].Name == name {
			return &r.cfg.Jobs[i]
		}
	}
	return nil
}

// RunAll runs every configured job sequentially.
func (r *Runner) RunAll(ctx context.Context, trigger string) []Result {
	var results []Result
	for i := range r.cfg.Jobs {
		results = append(results, r.RunJob(ctx, &r.cfg.Jobs[i], trigger))
	}
	return results
}

// RunJob executes a single job through the full pipeline. A nonzero script
// exit is not an error of the pipeline: it is classified, logged to the
// sink as the sentinel record, and reported through Result.Outcome. Spawn
// failures still produce a sentinel record so they can never be mistaken
// for success downstream.
func (r *Runner) RunJob(ctx context.Context, job *config.Job, trigger string) Result {
	id := uuid.NewString()
	log := r.logger.With("job", job.Name, "invocation", id)
	start := time.Now()

	result := Result{
		JobName:    job.Name,
		Invocation: id,
		ScriptURI:  job.Script,
	}

	// Stage 1: Resolve script URI.
	log.Info("resolving script", "uri", job.Script)
	resolved, err := script.Resolve(job.Script, r.cfg.Options.ScriptsDir)
	if err != nil {
		result.Err = err
		result.ErrStage = "resolve"
		result.Outcome = r.appendSpawnFailure(log, id, job.Name, nil, err, &result)
		result.Duration = time.Since(start)
		log.Error("resolve failed", "error", err)
		return result
	}
	result.ScriptPath = resolved.Path
	log.Debug("script resolved", "path", resolved.Path, "scheme", resolved.Scheme)

	// Stage 2: Execute.
	timeout, _ := job.TimeoutDuration()
	log.Info("executing script", "path", resolved.Path, "timeout", timeout)

	execResult, err := script.Exec(ctx, script.ExecOpts{
		Path:    resolved.Path,
		Shell:   r.cfg.Options.Shell,
		Timeout: timeout,
		Trigger: trigger,
		Job:     job.Name,
	})
	if err != nil {
		result.Err = err
		result.ErrStage = "exec"
		result.Outcome = r.appendSpawnFailure(log, id, job.Name, execResult, err, &result)
		result.Duration = time.Since(start)
		log.Error("exec failed", "error", err)
		return result
	}
	result.ExitCode = execResult.ExitCode
	log.Debug("script executed", "exit_code", execResult.ExitCode, "duration", execResult.Duration)

	// Stage 3: Classify.
	records, outcome := classify.Classify(execResult)
	result.Outcome = outcome
	log.Debug("output classified", "records", len(records), "outcome", outcome.String())

	// Stage 4: Append to the sink.
	stamp(records, id, job.Name)
	if err := r.store.Append(records); err != nil {
		result.Err = err
		result.ErrStage = "append"
		result.Duration = time.Since(start)
		log.Error("append failed", "error", err)
		return result
	}
	result.Records = len(records)

	result.Duration = time.Since(start)
	log.Info("invocation completed", "outcome", outcome.String(), "exit_code", execResult.ExitCode, "duration", result.Duration)
	return result
}

// appendSpawnFailure writes the partial output (if any) plus the synthesized
// spawn-failure sentinel record. Sink errors here are logged and folded into
// the record count, never allowed to mask the failure outcome.
func (r *Runner) appendSpawnFailure(log *slog.Logger, id, jobName string, partial *script.ProcessResult, cause error, result *Result) classify.Outcome {
	var records []sink.Record
	if partial != nil && partial.Output != "" {
		// Best-effort: keep whatever the script managed to print.
		partialRecords, _ := classify.Classify(&script.ProcessResult{Output: partial.Output})
		records = append(records, partialRecords...)
	}

	rec, outcome := classify.SpawnFailure(cause)
	records = append(records, rec)
	stamp(records, id, jobName)

	if err := r.store.Append(records); err != nil {
		log.Error("appending spawn failure record failed", "error", err)
		return outcome
	}
	result.Records = len(records)
	return outcome
}

func stamp(records []sink.Record, invocation, job string) {
	for i := range records {
		records[i].Invocation = invocation
		records[i].Job = job
	}
}
