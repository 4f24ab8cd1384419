// Package classify maps a process result onto severity-tagged log records.
// The contract downstream depends on: an error record's text always begins
// with SentinelPrefix. Error text is synthesized only from the exit code,
// never from captured output, so the synthesized line cannot collide with
// whatever the script printed. Output lines pass through verbatim; keeping
// the sentinel out of them is the wrapped script's side of the contract.
package classify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/runwatch/runwatch/internal/script"
	"github.com/runwatch/runwatch/internal/sink"
)

// SentinelPrefix marks a log line as actionable failure evidence. This is a
// wire contract: the metric extractor matches this literal, so changing it
// requires changing the filter in lockstep.
const SentinelPrefix = "ERROR|"

// Outcome is the overall result of one classified invocation.
type Outcome int

const (
	Success Outcome = iota
	Failure
)

func (o Outcome) String() string {
	if o == Failure {
		return "failure"
	}
	return "success"
}

// Classify turns a process result into ordered log records plus an outcome.
// Every captured output line becomes a normal record, verbatim and in
// order. A nonzero exit appends exactly one error record; classification
// depends only on the exit code, never on output content.
func Classify(res *script.ProcessResult) ([]sink.Record, Outcome) {
	lines := splitLines(res.Output)

	records := make([]sink.Record, 0, len(lines)+1)
	for _, line := range lines {
		records = append(records, sink.Record{
			Severity: sink.SeverityNormal,
			Text:     line,
		})
	}

	if res.ExitCode != 0 {
		records = append(records, sink.Record{
			Severity: sink.SeverityError,
			Text:     fmt.Sprintf("%sscript_failed returncode=%d", SentinelPrefix, res.ExitCode),
		})
		return records, Failure
	}

	return records, Success
}

// SpawnFailure synthesizes the error record for an invocation that never got
// a usable exit code: missing executable, permission denied, timeout. It
// must never fall through to Success, so it always pairs with Failure.
func SpawnFailure(err error) (sink.Record, Outcome) {
	return sink.Record{
		Severity: sink.SeverityError,
		Text:     SentinelPrefix + "script_spawn_failed " + spawnReason(err),
	}, Failure
}

func spawnReason(err error) string {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return "not_found"
	case errors.Is(err, os.ErrPermission):
		return "permission_denied"
	case errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "timed out"):
		return "timeout"
	default:
		return "exec_error"
	}
}

// splitLines splits captured output into its lines, preserving blank lines
// but not the empty tail produced by a trailing newline. Output of "\n" is
// one blank line, not none.
func splitLines(output string) []string {
	if output == "" {
		return nil
	}
	output = strings.TrimSuffix(output, "\n")
	return strings.Split(output, "\n")
}
