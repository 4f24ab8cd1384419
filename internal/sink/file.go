package sink

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ErrClosed is returned by Append once the backing file is closed, either by
// Close or after a prune swap that could not reopen the file.
var ErrClosed = errors.New("sink file is closed")

// FileSink implements Sink on a single append-only JSONL file.
type FileSink struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// NewFileSink opens (or creates) the JSONL file at path for appending.
func NewFileSink(path string) (*FileSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating sink directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening sink: %w", err)
	}
	return &FileSink{path: path, file: f}, nil
}

// Path returns the backing file path.
func (s *FileSink) Path() string {
	return s.path
}

// Append writes the records in order. Records with a zero Time are stamped
// with the current time so callers building records from captured output do
// not have to.
func (s *FileSink) Append(records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return ErrClosed
	}

	now := time.Now()
	for _, rec := range records {
		if rec.Time.IsZero() {
			rec.Time = now
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshalling record: %w", err)
		}
		data = append(data, '\n')
		if _, err := s.file.Write(data); err != nil {
			return fmt.Errorf("appending record: %w", err)
		}
	}
	return nil
}

// Query scans the whole file and returns records matching the filter, in
// append order. Malformed lines are skipped.
func (s *FileSink) Query(f Filter) ([]Record, error) {
	in, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening sink for reading: %w", err)
	}
	defer func() { _ = in.Close() }()

	var records []Record
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if matches(rec, f) {
			records = append(records, rec)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning sink: %w", err)
	}
	return records, nil
}

// Prune drops records older than the retention cutoff by rewriting the file.
// Concurrent appends are held off for the duration of the rewrite.
func (s *FileSink) Prune(keep time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-keep)
	since := Filter{Since: &cutoff}

	records, err := s.Query(since)
	if err != nil {
		return fmt.Errorf("reading sink for prune: %w", err)
	}

	tmp := s.path + ".tmp"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("creating prune temp file: %w", err)
	}
	w := bufio.NewWriter(out)
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			out.Close()
			return fmt.Errorf("marshalling record: %w", err)
		}
		data = append(data, '\n')
		if _, err := w.Write(data); err != nil {
			out.Close()
			return fmt.Errorf("writing prune temp file: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		out.Close()
		return fmt.Errorf("flushing prune temp file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing prune temp file: %w", err)
	}

	// The old handle is gone past this point; on any failure the sink is
	// left closed rather than pointing at the pre-swap file.
	err = s.file.Close()
	s.file = nil
	if err != nil {
		return fmt.Errorf("closing sink before swap: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("swapping pruned sink: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("reopening sink: %w", err)
	}
	s.file = f
	return nil
}

// Close closes the backing file. Closing an already closed sink is a no-op.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	if err != nil {
		return fmt.Errorf("closing sink: %w", err)
	}
	return nil
}

func matches(rec Record, f Filter) bool {
	if f.Since != nil && rec.Time.Before(*f.Since) {
		return false
	}
	if f.Until != nil && rec.Time.After(*f.Until) {
		return false
	}
	if f.Severity != "" && rec.Severity != f.Severity {
		return false
	}
	if f.Prefix != "" && !strings.HasPrefix(rec.Text, f.Prefix) {
		return false
	}
	if f.Contains != "" && !strings.Contains(rec.Text, f.Contains) {
		return false
	}
	if f.Invocation != "" && rec.Invocation != f.Invocation {
		return false
	}
	return true
}
