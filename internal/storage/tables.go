package storage

import (
	"github.com/nerrad567/gray-logic-climate/internal/buffer"
	"github.com/nerrad567/gray-logic-climate/internal/device"
)

// Table names.
const (
	TableData   = "data"
	TableAircon = "aircon"
	TableRooms  = "rooms"
)

// DataTable holds sensor readings, appended by (sample_epoch, room_id).
var DataTable = buffer.TableSpec{
	Name:    TableData,
	Columns: []string{"sample_time", "sample_epoch", "room_id", "temperature", "humidity", "voltage"},
	Mode:    buffer.ModeAppend,
	Key:     []string{"sample_epoch", "room_id"},
}

// AirconTable holds appliance readings, appended by (sample_epoch, room_id).
var AirconTable = buffer.TableSpec{
	Name: TableAircon,
	Columns: []string{
		"sample_time", "sample_epoch", "room_id",
		"ac_power", "ac_mode", "temperature_ac", "temperature_target", "temperature_outside", "cmp_freq",
	},
	Mode: buffer.ModeAppend,
	Key:  []string{"sample_epoch", "room_id"},
}

// RoomsTable holds the current health per room, replaced by room_id.
var RoomsTable = buffer.TableSpec{
	Name:    TableRooms,
	Columns: []string{"room_id", "name", "health"},
	Mode:    buffer.ModeReplace,
	Key:     []string{"room_id"},
}

// Tables returns every table spec, for registering with a buffer.
func Tables() []buffer.TableSpec {
	return []buffer.TableSpec{DataTable, AirconTable, RoomsTable}
}

// ClassTables returns the tables written by a device class, in flush order.
func ClassTables(c device.Class) []string {
	switch c {
	case device.ClassSensor:
		return []string{TableData, TableRooms}
	case device.ClassAppliance:
		return []string{TableAircon}
	default:
		return nil
	}
}

// SensorRow converts a sensor reading to a DataTable row.
func SensorRow(r device.SensorReading) buffer.Row {
	return buffer.Row{
		r.SampleTime.Format(device.SampleTimeFormat),
		r.SampleTime.Unix(),
		r.RoomID,
		r.Temperature,
		r.Humidity,
		r.Voltage,
	}
}

// ApplianceRow converts an appliance reading to an AirconTable row.
func ApplianceRow(r device.ApplianceReading) buffer.Row {
	power := 0
	if r.Power {
		power = 1
	}
	var outside, compressor any = r.OutsideTemp, r.CompressorFreq
	if r.OutsideMissing {
		outside = nil
	}
	if r.CompressorMissing {
		compressor = nil
	}
	return buffer.Row{
		r.SampleTime.Format(device.SampleTimeFormat),
		r.SampleTime.Unix(),
		r.RoomID,
		power,
		r.Mode,
		r.InsideTemp,
		r.TargetTemp,
		outside,
		compressor,
	}
}

// RoomRow builds a RoomsTable row.
func RoomRow(roomID, name string, health int) buffer.Row {
	return buffer.Row{roomID, name, health}
}
