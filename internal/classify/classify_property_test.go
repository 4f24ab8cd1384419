package classify

import (
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/runwatch/runwatch/internal/script"
	"github.com/runwatch/runwatch/internal/sink"
)

// genOutput generates arbitrary multi-line script output, including lines
// that contain or even start with the sentinel text.
func genOutput(t *rapid.T) string {
	lines := rapid.SliceOfN(rapid.OneOf(
		rapid.StringMatching(`[ -~]{0,40}`),
		rapid.Just("ERROR|forged by script"),
		rapid.Just("error: harmless"),
	), 0, 20).Draw(t, "lines")
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func TestClassify_NonZeroExitProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		code := rapid.IntRange(1, 255).Draw(t, "code")
		output := genOutput(t)

		records, outcome := Classify(&script.ProcessResult{
			ExitCode: code,
			Output:   output,
		})

		if outcome != Failure {
			t.Fatalf("outcome = %v, want failure for exit %d", outcome, code)
		}

		errorRecords := 0
		for _, rec := range records {
			if rec.Severity == sink.SeverityError {
				errorRecords++
				if !strings.HasPrefix(rec.Text, SentinelPrefix) {
					t.Fatalf("error record %q does not begin with the sentinel", rec.Text)
				}
			}
		}
		if errorRecords != 1 {
			t.Fatalf("error records = %d, want exactly 1", errorRecords)
		}

		// The error record is always last; normal records are the output
		// lines, verbatim and in order.
		lines := splitLines(output)
		if len(records) != len(lines)+1 {
			t.Fatalf("records = %d, want %d", len(records), len(lines)+1)
		}
		for i, line := range lines {
			if records[i].Severity != sink.SeverityNormal {
				t.Fatalf("record %d severity = %q, want normal", i, records[i].Severity)
			}
			if records[i].Text != line {
				t.Fatalf("record %d = %q, want %q", i, records[i].Text, line)
			}
		}
	})
}

func TestClassify_ZeroExitProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		output := genOutput(t)

		records, outcome := Classify(&script.ProcessResult{
			ExitCode: 0,
			Output:   output,
		})

		if outcome != Success {
			t.Fatalf("outcome = %v, want success", outcome)
		}
		for _, rec := range records {
			if rec.Severity == sink.SeverityError {
				t.Fatalf("zero exit produced error record %q", rec.Text)
			}
		}
	})
}

func TestClassify_IdempotentAcrossRuns(t *testing.T) {
	// Classification holds no state: the outcome of a run depends only on
	// that run's exit code, not on any prior run.
	rapid.Check(t, func(t *rapid.T) {
		first := rapid.IntRange(0, 255).Draw(t, "first")
		second := rapid.IntRange(0, 255).Draw(t, "second")

		_, _ = Classify(&script.ProcessResult{ExitCode: first})
		_, outcome := Classify(&script.ProcessResult{ExitCode: second})

		want := Success
		if second != 0 {
			want = Failure
		}
		if outcome != want {
			t.Fatalf("second outcome = %v, want %v (first exit was %d)", outcome, want, first)
		}
	})
}
