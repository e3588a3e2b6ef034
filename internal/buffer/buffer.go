package buffer

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Mode is the write semantics of a table.
type Mode int

const (
	// ModeAppend inserts new rows and ignores rows whose key already exists.
	ModeAppend Mode = iota

	// ModeReplace inserts new rows and overwrites rows whose key already exists.
	ModeReplace
)

func (m Mode) String() string {
	if m == ModeReplace {
		return "replace"
	}
	return "append"
}

// Row is one pending write: values in the table's column order.
type Row []any

// TableSpec describes a logical table.
type TableSpec struct {
	Name    string
	Columns []string
	Mode    Mode

	// Key lists the natural key columns used for idempotent writes.
	Key []string
}

// Sink persists a batch of rows.
//
// An error wrapping ErrTransient means the rows can be retried later;
// any other error is fatal. Retried rows must be idempotent by key.
type Sink interface {
	InsertMany(ctx context.Context, spec TableSpec, rows []Row) error
}

// Outcome is the typed result of a flush.
type Outcome int

const (
	// Flushed means the queue was written and cleared (or was empty).
	Flushed Outcome = iota

	// Retryable means the sink was busy; the queue is untouched.
	Retryable

	// Fatal means the sink rejected the batch; the queue is untouched.
	Fatal
)

func (o Outcome) String() string {
	switch o {
	case Flushed:
		return "flushed"
	case Retryable:
		return "retryable"
	default:
		return "fatal"
	}
}

// RetryPolicy bounds FlushWithRetry.
type RetryPolicy struct {
	// Attempts is the total number of flush attempts, at least 1.
	Attempts int

	// Backoff is the pause after the first failed attempt. It doubles
	// after every further failure up to MaxBackoff.
	Backoff    time.Duration
	MaxBackoff time.Duration
}

// Logger is the logging interface used by the buffer.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Buffer holds pending rows per table until they are flushed to a Sink.
//
// Thread Safety:
//   - Not safe for concurrent use. The scheduler goroutine owns it.
type Buffer struct {
	sink     Sink
	specs    map[string]TableSpec
	queues   map[string][]Row
	maxDepth int
	warned   map[string]bool
	logger   Logger

	// sleep waits between retry attempts; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Buffer over sink with the given tables.
// maxDepth is a warning threshold per table; zero disables it.
// Rows are never dropped when it is exceeded.
func New(sink Sink, maxDepth int, specs ...TableSpec) *Buffer {
	b := &Buffer{
		sink:     sink,
		specs:    make(map[string]TableSpec, len(specs)),
		queues:   make(map[string][]Row, len(specs)),
		maxDepth: maxDepth,
		warned:   make(map[string]bool),
		logger:   noopLogger{},
		sleep:    sleepContext,
	}
	for _, s := range specs {
		b.specs[s.Name] = s
	}
	return b
}

// SetLogger sets the logger for the buffer.
func (b *Buffer) SetLogger(logger Logger) {
	b.logger = logger
}

// Enqueue appends row to the queue of table. It never fails and never blocks.
func (b *Buffer) Enqueue(table string, row Row) {
	b.queues[table] = append(b.queues[table], row)

	depth := len(b.queues[table])
	if b.maxDepth > 0 && depth > b.maxDepth && !b.warned[table] {
		b.warned[table] = true
		b.logger.Warn("write queue over depth limit, sink may be unavailable",
			"table", table, "depth", depth, "limit", b.maxDepth)
	}
}

// Len returns the number of pending rows for table.
func (b *Buffer) Len(table string) int {
	return len(b.queues[table])
}

// Pending returns a copy of the pending rows for table.
func (b *Buffer) Pending(table string) []Row {
	return append([]Row(nil), b.queues[table]...)
}

// Overfull reports whether table holds more rows than the depth limit.
func (b *Buffer) Overfull(table string) bool {
	return b.maxDepth > 0 && len(b.queues[table]) > b.maxDepth
}

// NonEmpty returns the names of tables with pending rows, in the order
// given by tables.
func (b *Buffer) NonEmpty(tables ...string) []string {
	var out []string
	for _, t := range tables {
		if len(b.queues[t]) > 0 {
			out = append(out, t)
		}
	}
	return out
}

// Flush writes every pending row of table in one sink call.
// The queue is cleared only when the outcome is Flushed.
func (b *Buffer) Flush(ctx context.Context, table string) (Outcome, error) {
	rows := b.queues[table]
	if len(rows) == 0 {
		return Flushed, nil
	}

	spec, ok := b.specs[table]
	if !ok {
		return Fatal, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	if err := b.sink.InsertMany(ctx, spec, rows); err != nil {
		if isRetryable(err) {
			return Retryable, fmt.Errorf("flushing table %s: %w", table, err)
		}
		return Fatal, fmt.Errorf("flushing table %s: %w", table, err)
	}

	b.queues[table] = nil
	delete(b.warned, table)
	b.logger.Debug("flushed table", "table", table, "rows", len(rows))
	return Flushed, nil
}

// FlushWithRetry calls Flush up to policy.Attempts times, backing off
// between retryable failures. It stops early on Flushed, Fatal or ctx
// cancellation and never loops without bound.
func (b *Buffer) FlushWithRetry(ctx context.Context, table string, policy RetryPolicy) (Outcome, error) {
	attempts := max(policy.Attempts, 1)

	var (
		outcome Outcome
		err     error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		outcome, err = b.Flush(ctx, table)
		if outcome != Retryable {
			return outcome, err
		}

		b.logger.Warn("flush attempt failed",
			"table", table, "attempt", attempt, "of", attempts, "error", err)

		if attempt == attempts {
			break
		}
		if sleepErr := b.sleep(ctx, backoffDelay(policy, attempt)); sleepErr != nil {
			break
		}
	}
	return outcome, err
}

// backoffDelay returns the pause after the given failed attempt (1-based):
// Backoff doubled per earlier failure, capped at MaxBackoff.
func backoffDelay(policy RetryPolicy, attempt int) time.Duration {
	delay := policy.Backoff
	for i := 1; i < attempt; i++ {
		delay *= 2
		if policy.MaxBackoff > 0 && delay >= policy.MaxBackoff {
			return policy.MaxBackoff
		}
	}
	if policy.MaxBackoff > 0 && delay > policy.MaxBackoff {
		return policy.MaxBackoff
	}
	return delay
}

// isRetryable reports whether a sink error leaves the batch worth retrying.
// A cancelled or expired context is retryable: the rows are still good.
func isRetryable(err error) bool {
	return errors.Is(err, ErrTransient) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
