// Package results records the per-record outcome of a batch into two
// append-only logs and keeps running totals.
package results

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var outcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "correction_outcomes_total",
	Help: "Total per-record outcomes by result",
}, []string{"result"})

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// sink serializes whole-line writes to one writer.
type sink struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *sink) writeLine(line string) error {
	// A line never carries its own newline; embedded ones would split a record.
	line = lineBreaks.Replace(strings.TrimRight(line, "\r\n"))

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.w, line+"\n")
	return err
}

// Aggregator is the only writer to the success and failure logs. It is safe
// for concurrent use; the two sinks are locked independently.
type Aggregator struct {
	success sink
	failure sink

	succeeded atomic.Int64
	failed    atomic.Int64
}

// New creates an aggregator over the two sinks.
func New(successSink, failureSink io.Writer) *Aggregator {
	return &Aggregator{
		success: sink{w: successSink},
		failure: sink{w: failureSink},
	}
}

// RecordSuccess counts a success and appends line to the success log.
// The counter moves even when the write fails.
func (a *Aggregator) RecordSuccess(line string) error {
	a.succeeded.Add(1)
	outcomesTotal.WithLabelValues("success").Inc()
	if err := a.success.writeLine(line); err != nil {
		return fmt.Errorf("write success log: %w", err)
	}
	return nil
}

// RecordFailure counts a failure and appends line to the failure log.
func (a *Aggregator) RecordFailure(line string) error {
	a.failed.Add(1)
	outcomesTotal.WithLabelValues("failure").Inc()
	if err := a.failure.writeLine(line); err != nil {
		return fmt.Errorf("write failure log: %w", err)
	}
	return nil
}

// Counts returns the current success and failure totals.
func (a *Aggregator) Counts() (succeeded, failed int64) {
	return a.succeeded.Load(), a.failed.Load()
}

// Files holds the two opened log files.
type Files struct {
	Success *os.File
	Failure *os.File
}

// OpenFiles opens (creating if needed) both logs in append mode.
func OpenFiles(successPath, failedPath string) (*Files, error) {
	success, err := openAppend(successPath)
	if err != nil {
		return nil, fmt.Errorf("open success log: %w", err)
	}
	failure, err := openAppend(failedPath)
	if err != nil {
		success.Close()
		return nil, fmt.Errorf("open failure log: %w", err)
	}
	return &Files{Success: success, Failure: failure}, nil
}

func openAppend(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

// Aggregator returns an aggregator writing to the files.
func (f *Files) Aggregator() *Aggregator {
	return New(f.Success, f.Failure)
}

// Close closes both files and returns the first error.
func (f *Files) Close() error {
	errSuccess := f.Success.Close()
	errFailure := f.Failure.Close()
	if errSuccess != nil {
		return errSuccess
	}
	return errFailure
}
