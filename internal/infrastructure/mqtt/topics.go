package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every topic the climate daemon reads or writes.
//
//	graylogic/climate/sensor/{mac}/state   sensor advertisements (inbound)
//	graylogic/climate/room/{room_id}/led   health colour per room (retained)
//	graylogic/climate/status               daemon online/offline (retained, LWT)
const TopicPrefix = "graylogic/climate"

// Topics provides builders for climate MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.SensorState("A4:C1:38:59:9A:9B")
//	// Returns: "graylogic/climate/sensor/A4:C1:38:59:9A:9B/state"
type Topics struct{}

// SensorState returns the topic a sensor gateway publishes advertisements on.
// MAC addresses are normalised to upper case so lookups are case-insensitive.
func (Topics) SensorState(mac string) string {
	return fmt.Sprintf("%s/sensor/%s/state", TopicPrefix, strings.ToUpper(mac))
}

// AllSensorStates returns a pattern matching every sensor advertisement.
//
// Pattern: graylogic/climate/sensor/+/state
func (Topics) AllSensorStates() string {
	return TopicPrefix + "/sensor/+/state"
}

// RoomLED returns the retained indicator topic for a room.
//
// Example: graylogic/climate/room/0.1/led
func (Topics) RoomLED(roomID string) string {
	return fmt.Sprintf("%s/room/%s/led", TopicPrefix, roomID)
}

// SystemStatus returns the daemon status topic used for the online message and the LWT.
func (Topics) SystemStatus() string {
	return TopicPrefix + "/status"
}

// ParseSensorTopic extracts the MAC address from a sensor state topic.
// It returns false when topic is not of the form produced by SensorState.
func ParseSensorTopic(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, TopicPrefix+"/sensor/")
	if !ok {
		return "", false
	}
	mac, ok := strings.CutSuffix(rest, "/state")
	if !ok || mac == "" || strings.Contains(mac, "/") {
		return "", false
	}
	return strings.ToUpper(mac), true
}
