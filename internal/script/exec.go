// Package script resolves and executes the wrapped executable. Execution
// mechanics live here; deciding what an exit code means is the classifier's
// job.
package script

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// DefaultShell interprets scripts when the config does not name one.
const DefaultShell = "/bin/sh"

// ProcessResult holds the outcome of one script execution: the exit code,
// the combined stdout+stderr text in emission order, and how long it took.
type ProcessResult struct {
	ExitCode int
	Output   string
	Duration time.Duration
}

// ExecOpts configures script execution.
type ExecOpts struct {
	Path    string
	Shell   string // interpreter, DefaultShell when empty
	Timeout time.Duration
	Trigger string // trigger kind, exported to the script environment
	Job     string
}

// Exec runs the script under the shell's errexit mode, so an unhandled
// failure inside the script surfaces as a single nonzero exit code. Stdout
// and stderr are captured merged into one ordered stream. A nonzero exit is
// not an error; spawn failures and timeouts are.
func Exec(ctx context.Context, opts ExecOpts) (*ProcessResult, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	shell := opts.Shell
	if shell == "" {
		shell = DefaultShell
	}

	cmd := exec.CommandContext(ctx, shell, "-e", opts.Path)
	cmd.Env = buildEnv(opts)

	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	result := &ProcessResult{
		Output:   combined.String(),
		Duration: duration,
	}

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return result, fmt.Errorf("script timed out after %s", opts.Timeout)
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("executing script: %w", err)
	}

	return result, nil
}

func buildEnv(opts ExecOpts) []string {
	env := os.Environ()
	if opts.Trigger != "" {
		env = append(env, "RUNWATCH_TRIGGER="+opts.Trigger)
	}
	if opts.Job != "" {
		env = append(env, "RUNWATCH_JOB="+opts.Job)
	}
	return env
}
