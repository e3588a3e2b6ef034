package sensor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/device"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/mqtt"
)

const testMAC = "A4:C1:38:59:9A:9B"

func stateTopic(mac string) string {
	return mqtt.Topics{}.SensorState(mac)
}

func TestCache_FreshCountResetsOnRead(t *testing.T) {
	c := NewCache()
	h := c.Handle(testMAC)

	for _, p := range []string{
		`{"temperature":20.5,"humidity":51,"voltage":2.9}`,
		`{"temperature":20.7,"humidity":50,"voltage":2.91,"battery":88}`,
	} {
		if err := c.HandleMessage(stateTopic(testMAC), []byte(p)); err != nil {
			t.Fatalf("HandleMessage() error = %v", err)
		}
	}

	state, err := h.StateOf(context.Background())
	if err != nil {
		t.Fatalf("StateOf() error = %v", err)
	}
	if state.Quality != 2 {
		t.Errorf("Quality = %d, want 2", state.Quality)
	}
	if state.Temperature != 20.7 || state.Humidity != 50 || state.Voltage != 2.91 || state.Battery != 88 {
		t.Errorf("state = %+v, want the latest advertisement", state)
	}

	state, err = h.StateOf(context.Background())
	if err != nil {
		t.Fatalf("StateOf() error = %v", err)
	}
	if state.Quality != 0 {
		t.Errorf("second read Quality = %d, want 0", state.Quality)
	}
	if state.Temperature != 20.7 {
		t.Errorf("second read keeps last state, got %+v", state)
	}
}

func TestCache_NeverHeard(t *testing.T) {
	c := NewCache()
	state, err := c.Handle(testMAC).StateOf(context.Background())
	if err != nil {
		t.Fatalf("StateOf() error = %v", err)
	}
	if state.Quality != 0 {
		t.Errorf("Quality = %d, want 0", state.Quality)
	}
}

func TestCache_MACIsCaseInsensitive(t *testing.T) {
	c := NewCache()
	h := c.Handle("a4:c1:38:59:9a:9b")

	if err := c.HandleMessage("graylogic/climate/sensor/a4:c1:38:59:9a:9b/state", []byte(`{"temperature":19}`)); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	state, _ := h.StateOf(context.Background())
	if state.Quality != 1 {
		t.Errorf("Quality = %d, want 1", state.Quality)
	}
}

func TestCache_TimestampDefaultsToReceiveTime(t *testing.T) {
	c := NewCache()
	received := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return received }
	h := c.Handle(testMAC)

	_ = c.HandleMessage(stateTopic(testMAC), []byte(`{"temperature":19}`))
	state, _ := h.StateOf(context.Background())
	if !state.Timestamp.Equal(received) {
		t.Errorf("Timestamp = %v, want %v", state.Timestamp, received)
	}

	_ = c.HandleMessage(stateTopic(testMAC), []byte(`{"temperature":19,"timestamp":"2026-03-01T09:59:30Z"}`))
	state, _ = h.StateOf(context.Background())
	if want := received.Add(-30 * time.Second); !state.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want gateway time %v", state.Timestamp, want)
	}
}

func TestCache_HandleMessageErrors(t *testing.T) {
	c := NewCache()
	c.Handle(testMAC)

	tests := []struct {
		name    string
		topic   string
		payload string
		wantErr error
	}{
		{"wrong topic", "graylogic/climate/room/0.1/led", `{}`, ErrBadTopic},
		{"bad json", stateTopic(testMAC), `{"temperature":`, device.ErrMalformed},
		{"untracked sensor", stateTopic("00:00:00:00:00:01"), `{"temperature":1}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.HandleMessage(tt.topic, []byte(tt.payload))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("HandleMessage() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if state, _ := c.Handle(testMAC).StateOf(context.Background()); state.Quality != 0 {
		t.Errorf("rejected messages counted as fresh: Quality = %d", state.Quality)
	}
}

func TestHandle_CancelledContext(t *testing.T) {
	c := NewCache()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Handle(testMAC).StateOf(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("StateOf() error = %v, want context.Canceled", err)
	}
}

type fakeSubscriber struct {
	topic   string
	qos     byte
	handler mqtt.MessageHandler
	err     error
}

func (f *fakeSubscriber) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	f.topic, f.qos, f.handler = topic, qos, handler
	return f.err
}

func TestCache_Subscribe(t *testing.T) {
	c := NewCache()
	h := c.Handle(testMAC)
	sub := &fakeSubscriber{}

	if err := c.Subscribe(sub, 1); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if sub.topic != "graylogic/climate/sensor/+/state" || sub.qos != 1 {
		t.Errorf("subscribed to %q qos %d", sub.topic, sub.qos)
	}

	if err := sub.handler(stateTopic(testMAC), []byte(`{"temperature":22}`)); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if state, _ := h.StateOf(context.Background()); state.Quality != 1 {
		t.Errorf("Quality = %d, want 1", state.Quality)
	}

	sub.err = mqtt.ErrNotConnected
	if err := c.Subscribe(sub, 1); !errors.Is(err, mqtt.ErrNotConnected) {
		t.Errorf("Subscribe() error = %v, want wrapped ErrNotConnected", err)
	}
}

var _ device.SensorSource = (*Cache)(nil)
