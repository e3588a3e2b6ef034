// Package sensor is the reading source for BLE room thermometers.
//
// The thermometers are not polled directly. A BLE gateway listens for their
// advertisements and republishes each one as JSON on
//
//	graylogic/climate/sensor/{MAC}/state
//
// Cache subscribes to those topics and keeps the latest state per MAC
// together with a count of updates received since the state was last read.
// The scheduler reads a sensor through Handle(mac).StateOf, which returns
// that count as SensorState.Quality and resets it. A Quality of zero means
// the sensor has not been heard from since the previous poll.
//
// Only MACs handed out through Handle are tracked; advertisements from
// other devices in range are ignored.
package sensor
