package sensor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/device"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/mqtt"
)

// Logger is the logging interface used by the cache.
type Logger interface {
	Debug(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}

// Subscriber is the subset of the MQTT client used to receive advertisements.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Advertisement is the JSON payload published by the gateway.
type Advertisement struct {
	Temperature float64 `json:"temperature"`
	Humidity    int     `json:"humidity"`
	Voltage     float64 `json:"voltage"`
	Battery     int     `json:"battery"`

	// Timestamp is when the gateway received the advertisement. The
	// receive time is used when it is absent.
	Timestamp time.Time `json:"timestamp"`
}

type entry struct {
	state device.SensorState
	fresh int
}

// Cache holds the latest advertisement per tracked sensor.
//
// Thread Safety:
//   - HandleMessage runs on MQTT callback goroutines while StateOf runs on
//     the scheduler goroutine; all access goes through mu.
type Cache struct {
	mu      sync.Mutex
	sensors map[string]*entry
	logger  Logger
	now     func() time.Time
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{
		sensors: make(map[string]*entry),
		logger:  noopLogger{},
		now:     time.Now,
	}
}

// SetLogger sets the logger for ignored messages.
func (c *Cache) SetLogger(l Logger) {
	if l == nil {
		l = noopLogger{}
	}
	c.mu.Lock()
	c.logger = l
	c.mu.Unlock()
}

// Subscribe registers HandleMessage for every sensor state topic.
func (c *Cache) Subscribe(sub Subscriber, qos byte) error {
	if err := sub.Subscribe(mqtt.Topics{}.AllSensorStates(), qos, c.HandleMessage); err != nil {
		return fmt.Errorf("subscribing to sensor states: %w", err)
	}
	return nil
}

// HandleMessage records one advertisement. It implements mqtt.MessageHandler.
func (c *Cache) HandleMessage(topic string, payload []byte) error {
	mac, ok := mqtt.ParseSensorTopic(topic)
	if !ok {
		return fmt.Errorf("%w: %s", ErrBadTopic, topic)
	}

	var adv Advertisement
	if err := json.Unmarshal(payload, &adv); err != nil {
		return fmt.Errorf("%w: %s: %w", device.ErrMalformed, mac, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, tracked := c.sensors[mac]
	if !tracked {
		c.logger.Debug("ignoring advertisement from untracked sensor", "mac", mac)
		return nil
	}

	ts := adv.Timestamp
	if ts.IsZero() {
		ts = c.now()
	}
	e.state = device.SensorState{
		Temperature: adv.Temperature,
		Humidity:    adv.Humidity,
		Voltage:     adv.Voltage,
		Battery:     adv.Battery,
		Timestamp:   ts,
	}
	e.fresh++
	return nil
}

// Handle starts tracking mac and returns its reading source.
// It implements device.SensorSource.
func (c *Cache) Handle(mac string) device.SensorHandle {
	mac = strings.ToUpper(mac)

	c.mu.Lock()
	if _, ok := c.sensors[mac]; !ok {
		c.sensors[mac] = &entry{}
	}
	c.mu.Unlock()

	return handle{cache: c, mac: mac}
}

// read returns the state of mac with Quality set to the number of fresh
// updates, and resets that count.
func (c *Cache) read(mac string) (device.SensorState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.sensors[mac]
	if !ok {
		return device.SensorState{}, fmt.Errorf("%w: %s", ErrUnknownSensor, mac)
	}

	state := e.state
	state.Quality = e.fresh
	e.fresh = 0
	return state, nil
}

type handle struct {
	cache *Cache
	mac   string
}

// StateOf implements device.SensorHandle.
func (h handle) StateOf(ctx context.Context) (device.SensorState, error) {
	if err := ctx.Err(); err != nil {
		return device.SensorState{}, err
	}
	return h.cache.read(h.mac)
}
