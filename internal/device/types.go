package device

import (
	"context"
	"time"
)

// Class is the device class. Each class has its own sampling and report cadence.
type Class string

const (
	// ClassSensor is a battery powered room thermometer/hygrometer.
	ClassSensor Class = "sensor"

	// ClassAppliance is a networked air-conditioner unit.
	ClassAppliance Class = "appliance"
)

// Classes lists the device classes in scheduling order.
func Classes() []Class {
	return []Class{ClassSensor, ClassAppliance}
}

// Info identifies one polled device. It is immutable for the process lifetime.
type Info struct {
	// RoomID is the natural key in every persisted table.
	RoomID string

	// Name is the human-readable room name.
	Name string

	// Address is the transport address: a MAC for sensors, a host for appliances.
	Address string

	// Class selects the cadence the device is polled on.
	Class Class
}

// Device is a tagged variant over Sensor and Appliance.
// Consumers dispatch with a type switch:
//
//	switch d := dev.(type) {
//	case device.Sensor:
//	    state, err := d.Handle.StateOf(ctx)
//	case device.Appliance:
//	    reading, err := d.Handle.Poll(ctx)
//	}
type Device interface {
	// Identity returns the static device description.
	Identity() Info

	sealed()
}

// SensorHandle is the reading source for one sensor.
//
// Implementations must bound the call with their own timeout; the
// scheduler never pre-empts a poll.
type SensorHandle interface {
	StateOf(ctx context.Context) (SensorState, error)
}

// ApplianceHandle is the reading source for one appliance.
//
// Errors should wrap ErrTimeout, ErrConnect or ErrMalformed so callers can
// tell transport failures apart.
type ApplianceHandle interface {
	Poll(ctx context.Context) (ApplianceReading, error)
}

// Sensor is a sensor-class device with its live handle.
type Sensor struct {
	Info
	Handle SensorHandle
}

// Identity implements Device.
func (s Sensor) Identity() Info { return s.Info }

func (Sensor) sealed() {}

// Appliance is an appliance-class device with its live handle.
type Appliance struct {
	Info
	Handle ApplianceHandle
}

// Identity implements Device.
func (a Appliance) Identity() Info { return a.Info }

func (Appliance) sealed() {}

// SensorState is the most recent state pushed by a sensor.
type SensorState struct {
	// Quality counts fresh updates received since the previous read.
	// Zero means no fresh data.
	Quality int

	Temperature float64
	Humidity    int

	// Voltage is the battery voltage in volts, zero when not reported.
	Voltage float64

	// Battery is the percentage reported by the device itself, if any.
	Battery int

	// Timestamp is when the state was last updated.
	Timestamp time.Time
}

// SensorReading is one accepted sensor sample.
type SensorReading struct {
	SampleTime  time.Time
	RoomID      string
	Temperature float64
	Humidity    int
	Voltage     float64
}

// ApplianceReading is one accepted appliance sample.
type ApplianceReading struct {
	SampleTime     time.Time
	RoomID         string
	Power          bool
	Mode           int
	InsideTemp     float64
	TargetTemp     float64
	OutsideTemp    float64
	CompressorFreq int

	// TargetFallback is true when the unit reported no usable target and
	// TargetTemp was substituted with InsideTemp.
	TargetFallback bool

	// OutsideMissing is true when the unit reported no usable outside
	// temperature ("-" while the outdoor unit is idle). OutsideTemp is 0
	// and the value is stored as NULL.
	OutsideMissing bool

	// CompressorMissing is true when the unit reported no usable compressor
	// frequency. CompressorFreq is 0 and the value is stored as NULL.
	CompressorMissing bool
}

// SampleTimeFormat is the layout of the sample_time column.
const SampleTimeFormat = "2006-01-02 15:04:05"
