package runner

import (
	"time"

	"github.com/runwatch/runwatch/internal/classify"
)

// Result captures the outcome of one managed invocation. Errors are stored
// in Err/ErrStage rather than returned, so the caller always has something
// to display.
type Result struct {
	JobName    string
	Invocation string // uuid assigned to this invocation
	ScriptURI  string
	ScriptPath string
	Outcome    classify.Outcome
	ExitCode   int
	Records    int // log records appended to the sink
	Duration   time.Duration
	Err        error
	ErrStage   string // "resolve", "exec", "append"
}

// Failed reports whether the invocation should surface a failure signal to
// the invoking platform: either the script failed or a pipeline stage did.
func (r Result) Failed() bool {
	return r.Outcome == classify.Failure || r.Err != nil
}
