package classify

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/runwatch/runwatch/internal/script"
	"github.com/runwatch/runwatch/internal/sink"
)

func TestClassify_Success(t *testing.T) {
	records, outcome := Classify(&script.ProcessResult{
		ExitCode: 0,
		Output:   "doing something\n",
	})

	if outcome != Success {
		t.Errorf("outcome = %v, want success", outcome)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0].Severity != sink.SeverityNormal {
		t.Errorf("severity = %q, want normal", records[0].Severity)
	}
	if records[0].Text != "doing something" {
		t.Errorf("text = %q, want verbatim output line", records[0].Text)
	}
}

func TestClassify_Failure(t *testing.T) {
	records, outcome := Classify(&script.ProcessResult{
		ExitCode: 42,
		Output:   "partial work\n",
	})

	if outcome != Failure {
		t.Errorf("outcome = %v, want failure", outcome)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	last := records[len(records)-1]
	if last.Severity != sink.SeverityError {
		t.Errorf("severity = %q, want error", last.Severity)
	}
	if last.Text != "ERROR|script_failed returncode=42" {
		t.Errorf("text = %q, want exact sentinel line", last.Text)
	}
}

func TestClassify_EmptyOutputSuccess(t *testing.T) {
	records, outcome := Classify(&script.ProcessResult{ExitCode: 0})

	if outcome != Success {
		t.Errorf("outcome = %v, want success", outcome)
	}
	if len(records) != 0 {
		t.Errorf("records = %d, want 0", len(records))
	}
}

func TestClassify_EmptyOutputFailure(t *testing.T) {
	// Classification depends only on the exit code.
	records, outcome := Classify(&script.ProcessResult{ExitCode: 7})

	if outcome != Failure {
		t.Errorf("outcome = %v, want failure", outcome)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want exactly the synthesized error record", len(records))
	}
	if records[0].Text != "ERROR|script_failed returncode=7" {
		t.Errorf("text = %q", records[0].Text)
	}
}

func TestClassify_OutputMentioningErrorStaysNormal(t *testing.T) {
	records, outcome := Classify(&script.ProcessResult{
		ExitCode: 0,
		Output:   "error: retrying upload\nError rate is 0.1%\n",
	})

	if outcome != Success {
		t.Errorf("outcome = %v, want success", outcome)
	}
	for _, rec := range records {
		if rec.Severity != sink.SeverityNormal {
			t.Errorf("severity = %q for %q, want normal", rec.Severity, rec.Text)
		}
		if strings.HasPrefix(rec.Text, SentinelPrefix) {
			t.Errorf("normal record %q begins with the sentinel", rec.Text)
		}
	}
}

func TestClassify_PreservesOrderAndBlankLines(t *testing.T) {
	records, _ := Classify(&script.ProcessResult{
		ExitCode: 0,
		Output:   "one\n\nthree\n",
	})

	want := []string{"one", "", "three"}
	if len(records) != len(want) {
		t.Fatalf("records = %d, want %d", len(records), len(want))
	}
	for i, w := range want {
		if records[i].Text != w {
			t.Errorf("record %d = %q, want %q", i, records[i].Text, w)
		}
	}
}

func TestClassify_SingleBlankLineIsOneRecord(t *testing.T) {
	tests := []struct {
		output string
		want   int
	}{
		{"\n", 1},
		{"\n\n", 2},
	}

	for _, tt := range tests {
		records, _ := Classify(&script.ProcessResult{ExitCode: 0, Output: tt.output})
		if len(records) != tt.want {
			t.Errorf("output %q: records = %d, want %d", tt.output, len(records), tt.want)
			continue
		}
		for i, rec := range records {
			if rec.Text != "" {
				t.Errorf("output %q: record %d = %q, want blank", tt.output, i, rec.Text)
			}
		}
	}
}

func TestSpawnFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"missing", fmt.Errorf("executing script: %w", os.ErrNotExist), "ERROR|script_spawn_failed not_found"},
		{"permission", fmt.Errorf("executing script: %w", os.ErrPermission), "ERROR|script_spawn_failed permission_denied"},
		{"timeout", context.DeadlineExceeded, "ERROR|script_spawn_failed timeout"},
		{"other", fmt.Errorf("fork failed"), "ERROR|script_spawn_failed exec_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, outcome := SpawnFailure(tt.err)
			if outcome != Failure {
				t.Errorf("outcome = %v, want failure", outcome)
			}
			if rec.Severity != sink.SeverityError {
				t.Errorf("severity = %q, want error", rec.Severity)
			}
			if rec.Text != tt.want {
				t.Errorf("text = %q, want %q", rec.Text, tt.want)
			}
		})
	}
}
