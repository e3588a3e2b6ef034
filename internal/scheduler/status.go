package scheduler

import (
	"sort"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/device"
	"github.com/nerrad567/gray-logic-climate/internal/health"
	"github.com/nerrad567/gray-logic-climate/internal/storage"
)

// RoomStatus is the last known state of one device.
type RoomStatus struct {
	RoomID    string       `json:"room_id"`
	Name      string       `json:"name"`
	Class     device.Class `json:"class"`
	Score     int          `json:"health"`
	State     health.State `json:"state,omitempty"`
	LastSeen  time.Time    `json:"last_seen,omitzero"`
	LastError string       `json:"last_error,omitempty"`
}

// ClassStatus is the cadence state of one device class.
type ClassStatus struct {
	Class          device.Class `json:"class"`
	Devices        int          `json:"devices"`
	LastSample     time.Time    `json:"last_sample,omitzero"`
	LastCycle      string       `json:"last_cycle,omitempty"`
	NextSample     time.Time    `json:"next_sample"`
	NextReport     time.Time    `json:"next_report"`
	StalledReports int          `json:"stalled_reports"`
}

// Status is an immutable snapshot published after every tick.
type Status struct {
	UpdatedAt time.Time      `json:"updated_at"`
	Classes   []ClassStatus  `json:"classes"`
	Rooms     []RoomStatus   `json:"rooms"`
	Queued    map[string]int `json:"queued"`
}

// Status returns the latest snapshot. It is safe to call from any goroutine
// and returns nil before Run has started.
func (s *Scheduler) Status() *Status {
	return s.status.Load()
}

// publish builds a fresh snapshot from the scheduler goroutine.
func (s *Scheduler) publish() {
	st := &Status{
		UpdatedAt: s.clock.Now(),
		Queued:    make(map[string]int),
	}

	for _, c := range s.order {
		cs := s.classes[c]
		st.Classes = append(st.Classes, ClassStatus{
			Class:          c,
			Devices:        len(cs.devices),
			LastSample:     cs.lastSample,
			LastCycle:      cs.lastCycle,
			NextSample:     cs.nextSample,
			NextReport:     cs.nextReport,
			StalledReports: cs.stalled,
		})
	}

	for _, r := range s.rooms {
		st.Rooms = append(st.Rooms, *r)
	}
	sort.Slice(st.Rooms, func(i, j int) bool { return st.Rooms[i].RoomID < st.Rooms[j].RoomID })

	for _, spec := range storage.Tables() {
		st.Queued[spec.Name] = s.buf.Len(spec.Name)
	}

	s.status.Store(st)
}

// Class returns the status of class c, if it is scheduled.
func (st *Status) Class(c device.Class) (ClassStatus, bool) {
	for _, cs := range st.Classes {
		if cs.Class == c {
			return cs, true
		}
	}
	return ClassStatus{}, false
}
