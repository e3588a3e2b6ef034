package scheduler

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/buffer"
	"github.com/nerrad567/gray-logic-climate/internal/device"
	"github.com/nerrad567/gray-logic-climate/internal/health"
)

// Logger is the logging interface used by the scheduler.
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

// HealthStore reads back the persisted health scores.
type HealthStore interface {
	LoadHealth(ctx context.Context) (map[string]int, error)
}

// Indicator receives the LED state of every scored room. Implementations
// must not fail loudly; the call is cosmetic.
type Indicator interface {
	Set(roomID string, state health.State)
}

// Mirror receives a copy of every accepted reading, e.g. for a
// time-series database. Calls must not block.
type Mirror interface {
	MirrorSensor(r device.SensorReading, score int)
	MirrorAppliance(r device.ApplianceReading)
}

// Observer receives scheduler measurements, e.g. for Prometheus.
type Observer interface {
	ObservePoll(class device.Class, roomID string, ok bool, took time.Duration)
	ObserveHealth(roomID string, score int)
	ObserveCycle(class device.Class, took time.Duration)
	ObserveFlush(table string, outcome buffer.Outcome, took time.Duration)
	ObserveQueue(table string, depth int)
	ObserveStalled(class device.Class, reports int)
}

type noopIndicator struct{}

func (noopIndicator) Set(string, health.State) {}

type noopMirror struct{}

func (noopMirror) MirrorSensor(device.SensorReading, int)  {}
func (noopMirror) MirrorAppliance(device.ApplianceReading) {}

type noopObserver struct{}

func (noopObserver) ObservePoll(device.Class, string, bool, time.Duration) {}
func (noopObserver) ObserveHealth(string, int)                             {}
func (noopObserver) ObserveCycle(device.Class, time.Duration)              {}
func (noopObserver) ObserveFlush(string, buffer.Outcome, time.Duration)    {}
func (noopObserver) ObserveQueue(string, int)                              {}
func (noopObserver) ObserveStalled(device.Class, int)                      {}

// Clock abstracts wall time so tests can drive the loop.
type Clock interface {
	Now() time.Time

	// Sleep waits for d or until ctx is done, returning ctx.Err() in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
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
