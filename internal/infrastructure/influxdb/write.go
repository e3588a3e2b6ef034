package influxdb

import (
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-climate/internal/device"
)

// Measurement names.
const (
	MeasurementRoom   = "room_climate"
	MeasurementAircon = "aircon"
)

// MirrorSensor queues a sensor reading together with the room's updated
// health score. It implements the scheduler's Mirror.
func (c *Client) MirrorSensor(r device.SensorReading, score int) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(sensorPoint(r, score))
}

// MirrorAppliance queues an appliance reading.
func (c *Client) MirrorAppliance(r device.ApplianceReading) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(appliancePoint(r))
}

func sensorPoint(r device.SensorReading, score int) *write.Point {
	fields := map[string]any{
		"temperature": r.Temperature,
		"humidity":    r.Humidity,
		"health":      score,
	}
	// A sensor without voltage reporting would otherwise plot as an empty battery.
	if r.Voltage > 0 {
		fields["voltage"] = r.Voltage
	}
	return write.NewPoint(MeasurementRoom, map[string]string{"room_id": r.RoomID}, fields, r.SampleTime)
}

func appliancePoint(r device.ApplianceReading) *write.Point {
	power := 0
	if r.Power {
		power = 1
	}
	fields := map[string]any{
		"power":              power,
		"mode":               r.Mode,
		"temperature_inside": r.InsideTemp,
		"temperature_target": r.TargetTemp,
		"target_fallback":    r.TargetFallback,
	}
	if !r.OutsideMissing {
		fields["temperature_outside"] = r.OutsideTemp
	}
	if !r.CompressorMissing {
		fields["compressor_freq"] = r.CompressorFreq
	}
	return write.NewPoint(MeasurementAircon, map[string]string{"room_id": r.RoomID}, fields, r.SampleTime)
}
