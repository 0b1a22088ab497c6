package results

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// lockedBuffer lets the test read a buffer the aggregator writes under its own lock.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := strings.TrimSuffix(b.buf.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// slowWriter writes a line in two halves to provoke interleaving if unlocked.
type slowWriter struct {
	buf bytes.Buffer
}

func (w *slowWriter) Write(p []byte) (int, error) {
	half := len(p) / 2
	w.buf.Write(p[:half])
	w.buf.Write(p[half:])
	return len(p), nil
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestAggregator_RecordsLines(t *testing.T) {
	var success, failure lockedBuffer
	agg := New(&success, &failure)

	if err := agg.RecordSuccess("HTTP 200 {}"); err != nil {
		t.Fatalf("RecordSuccess() error = %v", err)
	}
	if err := agg.RecordFailure("missing credential for publicId=X"); err != nil {
		t.Fatalf("RecordFailure() error = %v", err)
	}
	if err := agg.RecordFailure("HTTP 400 bad"); err != nil {
		t.Fatalf("RecordFailure() error = %v", err)
	}

	succeeded, failed := agg.Counts()
	if succeeded != 1 || failed != 2 {
		t.Errorf("Counts() = %d/%d, want 1/2", succeeded, failed)
	}

	if got := success.Lines(); len(got) != 1 || got[0] != "HTTP 200 {}" {
		t.Errorf("success lines = %q", got)
	}
	want := []string{"missing credential for publicId=X", "HTTP 400 bad"}
	got := failure.Lines()
	if len(got) != len(want) {
		t.Fatalf("failure lines = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("failure line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAggregator_FlattensEmbeddedNewlines(t *testing.T) {
	var success, failure lockedBuffer
	agg := New(&success, &failure)

	agg.RecordFailure("HTTP 500 line one\nline two\n")

	lines := failure.Lines()
	if len(lines) != 1 {
		t.Fatalf("failure lines = %q, want exactly one", lines)
	}
	if lines[0] != "HTTP 500 line one line two" {
		t.Errorf("line = %q", lines[0])
	}
}

func TestAggregator_FlattensCarriageReturnsKeepsSpacing(t *testing.T) {
	var success, failure lockedBuffer
	agg := New(&success, &failure)

	agg.RecordSuccess("HTTP 200 {\r\n\"Message\":\"Receipt  already\tsent\"\r}\r\n")

	lines := success.Lines()
	if len(lines) != 1 {
		t.Fatalf("success lines = %q, want exactly one", lines)
	}
	want := "HTTP 200 { \"Message\":\"Receipt  already\tsent\" }"
	if lines[0] != want {
		t.Errorf("line = %q, want %q", lines[0], want)
	}
}

func TestAggregator_ConcurrentWritesDoNotInterleave(t *testing.T) {
	success := &slowWriter{}
	failure := &slowWriter{}
	agg := New(success, failure)

	const workers = 16
	const perWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				line := fmt.Sprintf("worker=%02d seq=%03d payload=%s", w, i, strings.Repeat("x", 64))
				if (w+i)%2 == 0 {
					agg.RecordSuccess(line)
				} else {
					agg.RecordFailure(line)
				}
			}
		}(w)
	}
	wg.Wait()

	succeeded, failed := agg.Counts()
	if succeeded+failed != workers*perWorker {
		t.Errorf("counts sum = %d, want %d", succeeded+failed, workers*perWorker)
	}

	total := 0
	for name, buf := range map[string]*bytes.Buffer{"success": &success.buf, "failure": &failure.buf} {
		lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
		for _, line := range lines {
			var w, i int
			var p string
			if n, err := fmt.Sscanf(line, "worker=%d seq=%d payload=%s", &w, &i, &p); n != 3 || err != nil || len(p) != 64 {
				t.Errorf("%s: corrupted line %q", name, line)
			}
		}
		total += len(lines)
	}
	if total != workers*perWorker {
		t.Errorf("total lines = %d, want %d", total, workers*perWorker)
	}
}

func TestAggregator_CountsEvenWhenWriteFails(t *testing.T) {
	agg := New(failingWriter{}, failingWriter{})

	if err := agg.RecordSuccess("a"); err == nil {
		t.Error("RecordSuccess() should surface the write error")
	}
	if err := agg.RecordFailure("b"); err == nil {
		t.Error("RecordFailure() should surface the write error")
	}

	succeeded, failed := agg.Counts()
	if succeeded != 1 || failed != 1 {
		t.Errorf("Counts() = %d/%d, want 1/1", succeeded, failed)
	}
}

func TestOpenFiles_AppendMode(t *testing.T) {
	dir := t.TempDir()
	successPath := filepath.Join(dir, "success.log")
	failedPath := filepath.Join(dir, "failed.log")

	if err := os.WriteFile(successPath, []byte("previous run\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	files, err := OpenFiles(successPath, failedPath)
	if err != nil {
		t.Fatalf("OpenFiles() error = %v", err)
	}
	agg := files.Aggregator()
	agg.RecordSuccess("HTTP 200 ok")
	agg.RecordFailure("HTTP 400 nope")
	if err := files.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(successPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "previous run\nHTTP 200 ok\n" {
		t.Errorf("success log = %q", data)
	}

	data, err = os.ReadFile(failedPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "HTTP 400 nope\n" {
		t.Errorf("failure log = %q", data)
	}
}

func TestOpenFiles_BadPath(t *testing.T) {
	dir := t.TempDir()
	_, err := OpenFiles(filepath.Join(dir, "ok.log"), filepath.Join(dir, "missing", "failed.log"))
	if err == nil {
		t.Fatal("OpenFiles() should fail for a path in a missing directory")
	}
	if !strings.Contains(err.Error(), "open failure log") {
		t.Errorf("error = %v, want failure log context", err)
	}
}
