package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/correction-sender/pkg/client"
	"github.com/Sternrassler/correction-sender/pkg/logging"
	"github.com/Sternrassler/correction-sender/pkg/record"
)

// Sender submits one record with the given credential.
// *client.Client implements it.
type Sender interface {
	Send(ctx context.Context, rec record.Record, cred record.Credential) (client.Outcome, error)
}

// Credentials resolves an account secret by public identifier.
// *record.CredentialTable implements it.
type Credentials interface {
	Lookup(publicID string) (record.Credential, bool)
}

// Recorder receives exactly one line per record.
// *results.Aggregator implements it.
type Recorder interface {
	RecordSuccess(line string) error
	RecordFailure(line string) error
}

// Config holds dispatcher configuration
type Config struct {
	// Workers is the fixed pool size
	Workers int
	// BufferSize of the record queue (default: Workers)
	BufferSize int
	// ProgressEvery logs progress after this many records (0 disables)
	ProgressEvery int
}

// DefaultConfig returns a default dispatcher configuration
func DefaultConfig() Config {
	return Config{
		Workers:       4,
		ProgressEvery: 50,
	}
}

// Summary reports the totals of one Run.
type Summary struct {
	RunID     uuid.UUID
	Total     int
	Succeeded int64
	Failed    int64
	Elapsed   time.Duration
}

// ElapsedClock formats Elapsed as HH:MM:SS.
func (s Summary) ElapsedClock() string {
	total := int64(s.Elapsed / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}

// Dispatcher fans records out to a worker pool.
type Dispatcher struct {
	sender      Sender
	credentials Credentials
	recorder    Recorder
	config      Config
	logger      zerolog.Logger
}

// New creates a dispatcher. Workers below 1 are raised to 1.
func New(sender Sender, credentials Credentials, recorder Recorder, config Config) *Dispatcher {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.BufferSize <= 0 {
		config.BufferSize = config.Workers
	}

	return &Dispatcher{
		sender:      sender,
		credentials: credentials,
		recorder:    recorder,
		config:      config,
		logger:      logging.NewLogger("dispatcher"),
	}
}

// runState is shared by the workers of one Run.
type runState struct {
	logger    zerolog.Logger
	total     int
	processed atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
}

// Run processes every record and blocks until each one has been logged.
// Cancelling ctx does not drop records: their acquire or backoff fails and
// they are logged as failures.
func (d *Dispatcher) Run(ctx context.Context, records []record.Record) Summary {
	start := time.Now()
	runID := uuid.New()

	state := &runState{
		logger: d.logger.With().Str("run_id", runID.String()).Logger(),
		total:  len(records),
	}

	workers := d.config.Workers
	if len(records) < workers {
		workers = len(records)
	}

	state.logger.Info().
		Int("records", len(records)).
		Int("workers", workers).
		Msg("Starting dispatch")

	queue := make(chan record.Record, d.config.BufferSize)
	go func() {
		for _, rec := range records {
			queue <- rec
		}
		close(queue)
	}()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go d.worker(ctx, state, queue, &wg, i)
	}
	wg.Wait()

	summary := Summary{
		RunID:     runID,
		Total:     len(records),
		Succeeded: state.succeeded.Load(),
		Failed:    state.failed.Load(),
		Elapsed:   time.Since(start),
	}

	state.logger.Info().
		Int("records", summary.Total).
		Int64("succeeded", summary.Succeeded).
		Int64("failed", summary.Failed).
		Dur("duration", summary.Elapsed).
		Msg("Dispatch complete")

	return summary
}

// worker drains the queue until it is closed.
func (d *Dispatcher) worker(ctx context.Context, state *runState, queue <-chan record.Record, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	processed := 0

	for rec := range queue {
		d.process(ctx, state, rec, workerID)
		processed++

		n := state.processed.Add(1)
		if d.config.ProgressEvery > 0 && n%int64(d.config.ProgressEvery) == 0 {
			state.logger.Info().
				Int64("processed", n).
				Int("total", state.total).
				Float64("progress_pct", float64(n)/float64(state.total)*100).
				Msg("Dispatch progress")
		}
	}

	state.logger.Debug().
		Int("worker_id", workerID).
		Int("records_processed", processed).
		Msg("Worker completed")
}

// process handles one record and writes exactly one outcome line for it.
func (d *Dispatcher) process(ctx context.Context, state *runState, rec record.Record, workerID int) {
	start := time.Now()
	logged := false

	success := func(line string) {
		logged = true
		state.succeeded.Add(1)
		if err := d.recorder.RecordSuccess(line); err != nil {
			state.logger.Error().Err(err).Msg("Failed to write success line")
		}
	}
	failure := func(line string) {
		logged = true
		state.failed.Add(1)
		if err := d.recorder.RecordFailure(line); err != nil {
			state.logger.Error().Err(err).Msg("Failed to write failure line")
		}
	}

	defer func() {
		dispatchDuration.Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			dispatchPanics.Inc()
			state.logger.Error().
				Int("worker_id", workerID).
				Str("public_id", rec.PublicID()).
				Interface("panic", r).
				Msg("Recovered panic while processing record")
			if !logged {
				failure(rec.String())
			}
		}
	}()

	publicID := rec.PublicID()
	cred, ok := d.credentials.Lookup(publicID)
	if !ok {
		state.logger.Warn().
			Int("worker_id", workerID).
			Str("public_id", publicID).
			Msg("No credential for record")
		failure(fmt.Sprintf("missing credential for publicId=%s", publicID))
		return
	}

	outcome, err := d.sender.Send(ctx, rec, cred)
	if err != nil {
		event := state.logger.Warn()
		if errors.Is(err, client.ErrContextCancelled) {
			event = state.logger.Debug()
		}
		event.Err(err).
			Int("worker_id", workerID).
			Str("public_id", publicID).
			Msg("Record failed")
		failure(rec.String())
		return
	}

	if outcome.Success {
		success(outcome.Line())
		return
	}

	state.logger.Info().
		Int("worker_id", workerID).
		Str("public_id", publicID).
		Int("status", outcome.HTTPStatus).
		Msg("Record not accepted")
	failure(outcome.Line())
}
