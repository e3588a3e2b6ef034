package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/device"
	"github.com/nerrad567/gray-logic-climate/internal/storage"
)

// pollResult is the outcome of polling one device in one cycle.
type pollResult struct {
	dev    device.Device
	sensor device.SensorReading
	err    error

	// pending marks a failed sensor whose retry has not run yet. A stop
	// during the cool-down leaves it set and the device is not recorded.
	pending bool
}

// sample polls every device of class c once, in configuration order.
// A cancelled ctx skips the devices not yet polled; an in-flight poll is
// never interrupted by the scheduler.
func (s *Scheduler) sample(ctx context.Context, c device.Class, cs *classState) {
	start := s.clock.Now()
	cycleID := newCycleID()
	log := s.logger

	log.Debug("sampling", "class", c, "cycle", cycleID, "devices", len(cs.devices))

	if c == device.ClassSensor {
		s.reloadScores(ctx, cycleID)
	}

	var (
		results []pollResult
		failed  []int
	)
	for i, d := range cs.devices {
		if ctx.Err() != nil {
			log.Info("stop requested, skipping remaining devices",
				"class", c, "cycle", cycleID, "skipped", len(cs.devices)-i)
			break
		}
		if i > 0 && cs.cfg.Relax > 0 {
			if s.clock.Sleep(ctx, cs.cfg.Relax) != nil {
				continue
			}
		}

		res := s.poll(ctx, d, cs.cfg, start)
		if res.err != nil && c == device.ClassAppliance && ctx.Err() == nil {
			log.Debug("appliance poll failed, retrying", "room", d.Identity().RoomID, "error", res.err)
			if s.clock.Sleep(ctx, cs.cfg.RetryDelay) == nil {
				res = s.poll(ctx, d, cs.cfg, start)
			}
		}
		if res.err != nil && c == device.ClassSensor {
			res.pending = true
			failed = append(failed, len(results))
		}
		results = append(results, res)
	}

	// Sensors get their single retry at the end of the pass, after the
	// transport had time to recover.
	if len(failed) > 0 && ctx.Err() == nil {
		log.Debug("retrying failed sensors", "cycle", cycleID, "count", len(failed), "after", cs.cfg.RetryDelay)
		if s.clock.Sleep(ctx, cs.cfg.RetryDelay) == nil {
			for _, idx := range failed {
				if ctx.Err() != nil {
					break
				}
				results[idx] = s.poll(ctx, results[idx].dev, cs.cfg, start)
			}
		}
	}

	for _, res := range results {
		if res.pending {
			// Only a failed retry makes the cycle "no data"; the score stays as it is.
			log.Info("stop requested before sensor retry, health unchanged",
				"room", res.dev.Identity().RoomID, "cycle", cycleID, "error", res.err)
			continue
		}
		s.record(c, cycleID, res)
	}

	elapsed := s.clock.Now().Sub(start)
	cs.lastSample = start
	cs.lastCycle = cycleID
	cs.nextSample = gridNext(start, cs.cfg.CycleTime)
	s.observer.ObserveCycle(c, elapsed)
	for _, table := range storage.ClassTables(c) {
		s.observer.ObserveQueue(table, s.buf.Len(table))
	}

	now := s.clock.Now()
	if wait := cs.nextSample.Sub(now); wait > 0 {
		log.Debug("sample pass complete", "class", c, "cycle", cycleID, "took", elapsed, "waiting", wait)
	} else {
		log.Debug("sample pass complete", "class", c, "cycle", cycleID, "took", elapsed, "behind", -wait)
	}
}

// poll reads one device, bounded by the class poll timeout.
func (s *Scheduler) poll(ctx context.Context, d device.Device, cfg ClassConfig, at time.Time) pollResult {
	if cfg.PollTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.PollTimeout)
		defer cancel()
	}

	info := d.Identity()
	begin := s.clock.Now()
	res := pollResult{dev: d}

	switch dev := d.(type) {
	case device.Sensor:
		state, err := dev.Handle.StateOf(ctx)
		if err == nil && state.Quality == 0 {
			err = device.ErrNoData
		}
		res.err = err
		if err == nil {
			res.sensor = device.SensorReading{
				SampleTime:  at,
				RoomID:      info.RoomID,
				Temperature: state.Temperature,
				Humidity:    state.Humidity,
				Voltage:     state.Voltage,
			}
		}
	case device.Appliance:
		reading, err := dev.Handle.Poll(ctx)
		res.err = err
		if err == nil {
			reading.SampleTime = at
			reading.RoomID = info.RoomID
			s.buf.Enqueue(storage.TableAircon, storage.ApplianceRow(reading))
			s.mirror.MirrorAppliance(reading)
			if reading.TargetFallback {
				s.logger.Debug("target temperature unavailable, using inside temperature",
					"room", info.RoomID, "mode", reading.Mode, "inside", reading.InsideTemp)
			}
			if reading.OutsideMissing || reading.CompressorMissing {
				s.logger.Debug("outdoor unit values unavailable, storing NULL",
					"room", info.RoomID, "outside", !reading.OutsideMissing, "compressor", !reading.CompressorMissing)
			}
		}
	}

	s.observer.ObservePoll(info.Class, info.RoomID, res.err == nil, s.clock.Now().Sub(begin))
	return res
}

// record applies the final outcome of one device for the cycle. Sensor
// rooms get exactly one score update, one rooms row and one LED call.
func (s *Scheduler) record(c device.Class, cycleID string, res pollResult) {
	info := res.dev.Identity()
	room := s.rooms[info.RoomID]

	if res.err != nil {
		room.LastError = res.err.Error()
		s.logger.Warn("no data from device", "class", c, "room", info.RoomID, "cycle", cycleID,
			"timeout", errors.Is(res.err, device.ErrTimeout) || errors.Is(res.err, context.DeadlineExceeded),
			"error", res.err)
	} else {
		room.LastError = ""
		room.LastSeen = s.clock.Now()
	}

	if c != device.ClassSensor {
		return
	}

	prev := s.params.Previous(s.scores, info.RoomID)
	var score int
	if res.err == nil {
		s.buf.Enqueue(storage.TableData, storage.SensorRow(res.sensor))
		score = s.params.Success(prev, res.sensor.Voltage)
		s.mirror.MirrorSensor(res.sensor, score)
	} else {
		score = s.params.Failure(prev)
	}

	state := s.params.Classify(score)
	s.scores[info.RoomID] = score
	s.unflushed[info.RoomID] = true
	s.buf.Enqueue(storage.TableRooms, storage.RoomRow(info.RoomID, info.Name, score))
	s.indicator.Set(info.RoomID, state)
	s.observer.ObserveHealth(info.RoomID, score)

	room.Score = score
	room.State = state
	s.logger.Debug("health updated", "room", info.RoomID, "cycle", cycleID, "from", prev, "to", score, "state", state)
}

// reloadScores reads the persisted scores at the top of a sensor cycle.
// Scores still waiting in the queue win over the stored ones; on a read
// failure the cached scores are used as they are.
func (s *Scheduler) reloadScores(ctx context.Context, cycleID string) {
	stored, err := s.store.LoadHealth(ctx)
	if err != nil {
		s.logger.Warn("reading health scores failed, using cached scores", "cycle", cycleID, "error", err)
		return
	}
	for room, score := range stored {
		if !s.unflushed[room] {
			s.scores[room] = score
		}
	}
}
