package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-climate/internal/buffer"
	"github.com/nerrad567/gray-logic-climate/internal/device"
	"github.com/nerrad567/gray-logic-climate/internal/health"
	"github.com/nerrad567/gray-logic-climate/internal/storage"
)

// ErrUnflushed is returned by Run when rows could not be written on shutdown.
var ErrUnflushed = errors.New("scheduler: rows left unflushed")

// classState is the cadence state of one device class.
type classState struct {
	cfg        ClassConfig
	devices    []device.Device
	nextSample time.Time
	nextReport time.Time
	lastSample time.Time
	lastCycle  string
	stalled    int
}

// Scheduler drives the sensor and appliance cadences from one goroutine.
//
// Thread Safety:
//   - Run must be called once. Status may be called from any goroutine.
type Scheduler struct {
	cfg    Config
	buf    *buffer.Buffer
	store  HealthStore
	params health.Params

	classes map[device.Class]*classState
	order   []device.Class

	// scores is the last known score per room. unflushed marks rooms whose
	// latest score is still queued, so a read-back must not override it.
	scores    map[string]int
	unflushed map[string]bool
	rooms     map[string]*RoomStatus

	indicator Indicator
	mirror    Mirror
	observer  Observer
	clock     Clock
	logger    Logger

	status atomic.Pointer[Status]
}

// New creates a scheduler over devices. Classes without devices are never
// sampled or reported.
func New(cfg Config, devices []device.Device, buf *buffer.Buffer, store HealthStore, params health.Params) *Scheduler {
	s := &Scheduler{
		cfg:       cfg,
		buf:       buf,
		store:     store,
		params:    params,
		classes:   make(map[device.Class]*classState),
		scores:    make(map[string]int),
		unflushed: make(map[string]bool),
		rooms:     make(map[string]*RoomStatus),
		indicator: noopIndicator{},
		mirror:    noopMirror{},
		observer:  noopObserver{},
		clock:     realClock{},
		logger:    noopLogger{},
	}

	for _, c := range device.Classes() {
		members := device.OfClass(devices, c)
		if len(members) == 0 {
			continue
		}
		s.classes[c] = &classState{cfg: cfg.Classes[c], devices: members}
		s.order = append(s.order, c)
		for _, d := range members {
			info := d.Identity()
			s.rooms[info.RoomID] = &RoomStatus{RoomID: info.RoomID, Name: info.Name, Class: c}
		}
	}
	return s
}

// SetLogger sets the logger for the scheduler.
func (s *Scheduler) SetLogger(logger Logger) { s.logger = logger }

// SetIndicator sets the LED sink.
func (s *Scheduler) SetIndicator(ind Indicator) { s.indicator = ind }

// SetMirror sets the reading mirror.
func (s *Scheduler) SetMirror(m Mirror) { s.mirror = m }

// SetObserver sets the metrics observer.
func (s *Scheduler) SetObserver(o Observer) { s.observer = o }

// Run executes the control loop until ctx is cancelled or storage fails
// fatally. On return every non-empty queue has been flushed once more.
//
// Returns:
//   - nil after a clean shutdown with all rows written
//   - ErrUnflushed if the final flush left rows behind
//   - the storage error after a fatal flush failure
func (s *Scheduler) Run(ctx context.Context) error {
	now := s.clock.Now()
	for _, c := range s.order {
		cs := s.classes[c]
		cs.nextSample = now
		cs.nextReport = now.Add(cs.cfg.ReportTime)
	}
	s.publish()

	s.logger.Info("scheduler started", "classes", len(s.order), "tick", s.cfg.Tick)

	for {
		if ctx.Err() != nil {
			s.logger.Info("stop requested, flushing queues")
			return s.finalFlush(nil)
		}

		for _, c := range s.order {
			cs := s.classes[c]

			if !s.clock.Now().Before(cs.nextSample) {
				s.sample(ctx, c, cs)
			}
			if ctx.Err() != nil {
				break
			}

			if now := s.clock.Now(); !now.Before(cs.nextReport) {
				if err := s.report(ctx, c, cs, now); err != nil {
					s.logger.Error("storage failure, stopping", "class", c, "error", err)
					return s.finalFlush(err)
				}
			}
		}

		s.publish()

		// Cancellation is checked at the top of the loop.
		_ = s.clock.Sleep(ctx, s.cfg.Tick) //nolint:errcheck // See above
	}
}

// gridNext returns the first instant after start on the cycle grid
// anchored at the Unix epoch: cycle + start - (start mod cycle).
func gridNext(start time.Time, cycle time.Duration) time.Time {
	c := int64(cycle)
	ns := start.UnixNano()
	return time.Unix(0, ns-ns%c+c)
}

// report flushes every table of class c with the retry policy.
func (s *Scheduler) report(ctx context.Context, c device.Class, cs *classState, now time.Time) error {
	retryable := false

	for _, table := range storage.ClassTables(c) {
		begin := s.clock.Now()
		depth := s.buf.Len(table)
		outcome, err := s.buf.FlushWithRetry(ctx, table, s.cfg.Flush)
		s.observer.ObserveFlush(table, outcome, s.clock.Now().Sub(begin))
		s.observer.ObserveQueue(table, s.buf.Len(table))

		switch outcome {
		case buffer.Flushed:
			if depth > 0 {
				s.logger.Debug("report flushed", "class", c, "table", table, "rows", depth)
			}
			if table == storage.TableRooms {
				clear(s.unflushed)
			}
		case buffer.Retryable:
			retryable = true
			s.logger.Warn("report deferred, sink busy", "class", c, "table", table, "queued", depth, "error", err)
		case buffer.Fatal:
			return fmt.Errorf("flushing %s: %w", table, err)
		}
	}

	cs.nextReport = now.Add(cs.cfg.ReportTime)

	if !retryable {
		cs.stalled = 0
	} else {
		cs.stalled++
		if cs.stalled > s.cfg.MaxStalledReports {
			s.logger.Error("sink unavailable for consecutive reports",
				"class", c, "reports", cs.stalled, "limit", s.cfg.MaxStalledReports)
		}
	}
	s.observer.ObserveStalled(c, cs.stalled)
	return nil
}

// finalFlush writes every non-empty queue once, on a fresh context so a
// cancelled run still gets its rows out. cause is returned unchanged when set.
func (s *Scheduler) finalFlush(cause error) error {
	ctx, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
	defer cancel()

	var names []string
	for _, spec := range storage.Tables() {
		names = append(names, spec.Name)
	}

	var left []string
	for _, table := range s.buf.NonEmpty(names...) {
		rows := s.buf.Len(table)
		outcome, err := s.buf.FlushWithRetry(ctx, table, s.cfg.Flush)
		s.observer.ObserveFlush(table, outcome, 0)
		s.observer.ObserveQueue(table, s.buf.Len(table))
		if outcome != buffer.Flushed {
			s.logger.Error("final flush failed, rows lost", "table", table, "rows", rows, "error", err)
			left = append(left, table)
			continue
		}
		s.logger.Info("final flush", "table", table, "rows", rows)
	}
	s.publish()

	if cause != nil {
		return cause
	}
	if len(left) > 0 {
		return fmt.Errorf("%w: %v", ErrUnflushed, left)
	}
	s.logger.Info("scheduler stopped")
	return nil
}

func newCycleID() string {
	return uuid.NewString()
}
