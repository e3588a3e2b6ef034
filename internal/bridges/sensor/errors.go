package sensor

import "errors"

var (
	// ErrUnknownSensor is returned for an advertisement from an untracked MAC.
	ErrUnknownSensor = errors.New("sensor: unknown sensor")

	// ErrBadTopic is returned for a topic that is not a sensor state topic.
	ErrBadTopic = errors.New("sensor: unexpected topic")
)
