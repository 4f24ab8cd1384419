package script

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func tempScript(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "job.sh")
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExec_Success(t *testing.T) {
	path := tempScript(t, "#!/bin/sh\necho doing something\n")

	result, err := Exec(context.Background(), ExecOpts{Path: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", result.ExitCode)
	}
	if !strings.Contains(result.Output, "doing something") {
		t.Errorf("output = %q, missing script text", result.Output)
	}
	if result.Duration <= 0 {
		t.Errorf("duration = %s, want > 0", result.Duration)
	}
}

func TestExec_NonZeroExit(t *testing.T) {
	path := tempScript(t, "#!/bin/sh\nexit 42\n")

	result, err := Exec(context.Background(), ExecOpts{Path: path})
	if err != nil {
		t.Fatalf("non-zero exit should not be an error: %v", err)
	}
	if result.ExitCode != 42 {
		t.Errorf("exit code = %d, want 42", result.ExitCode)
	}
}

func TestExec_ErrexitPropagatesInnerFailure(t *testing.T) {
	// The false on line two must abort the script before the final echo.
	path := tempScript(t, "#!/bin/sh\necho before\nfalse\necho after\n")

	result, err := Exec(context.Background(), ExecOpts{Path: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExitCode == 0 {
		t.Error("exit code = 0, want nonzero from errexit")
	}
	if !strings.Contains(result.Output, "before") {
		t.Errorf("output = %q, missing pre-failure line", result.Output)
	}
	if strings.Contains(result.Output, "after") {
		t.Errorf("output = %q, errexit did not stop the script", result.Output)
	}
}

func TestExec_MergesStderrInOrder(t *testing.T) {
	path := tempScript(t, "#!/bin/sh\necho out1\necho err1 >&2\necho out2\n")

	result, err := Exec(context.Background(), ExecOpts{Path: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"out1", "err1", "out2"} {
		if !strings.Contains(result.Output, want) {
			t.Errorf("output = %q, missing %q", result.Output, want)
		}
	}
}

func TestExec_Timeout(t *testing.T) {
	path := tempScript(t, "#!/bin/sh\nsleep 10\n")

	_, err := Exec(context.Background(), ExecOpts{
		Path:    path,
		Timeout: 100 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("error = %q, want timeout message", err.Error())
	}
}

func TestExec_Env(t *testing.T) {
	path := tempScript(t, "#!/bin/sh\necho trigger=$RUNWATCH_TRIGGER job=$RUNWATCH_JOB\n")

	result, err := Exec(context.Background(), ExecOpts{
		Path:    path,
		Trigger: "cron",
		Job:     "backup",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Output, "trigger=cron job=backup") {
		t.Errorf("output = %q, missing env values", result.Output)
	}
}

func TestResolve_RelativeName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	resolved, err := Resolve("file://job.sh", dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Path != path {
		t.Errorf("path = %q, want %q", resolved.Path, path)
	}
	if resolved.Scheme != "file" {
		t.Errorf("scheme = %q, want file", resolved.Scheme)
	}
}

func TestResolve_AbsolutePath(t *testing.T) {
	path := tempScript(t, "#!/bin/sh\n")

	resolved, err := Resolve("file://"+path, t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Path != path {
		t.Errorf("path = %q, want %q", resolved.Path, path)
	}
}

func TestResolve_Missing(t *testing.T) {
	_, err := Resolve("file://nonexistent.sh", t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing script")
	}
}

func TestResolve_NotExecutable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Resolve("file://job.sh", dir)
	if err == nil {
		t.Fatal("expected error for non-executable script")
	}
}

func TestResolve_UnknownScheme(t *testing.T) {
	_, err := Resolve("https://example.com/job.sh", t.TempDir())
	if err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}
