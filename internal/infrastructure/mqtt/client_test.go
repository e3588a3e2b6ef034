package mqtt

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/config"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "graylogic-climate-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// =============================================================================
// Options
// =============================================================================

func TestBuildClientOptions(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(c *config.MQTTConfig)
		wantBroker string
		wantUser   string
		wantTLS    bool
	}{
		{
			name:       "plain tcp without auth",
			mutate:     func(_ *config.MQTTConfig) {},
			wantBroker: "tcp://127.0.0.1:1883",
		},
		{
			name: "tls with credentials",
			mutate: func(c *config.MQTTConfig) {
				c.Broker.TLS = true
				c.Broker.Port = 8883
				c.Auth.Username = "climate"
				c.Auth.Password = "secret"
			},
			wantBroker: "ssl://127.0.0.1:8883",
			wantUser:   "climate",
			wantTLS:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			opts := buildClientOptions(cfg)

			if len(opts.Servers) != 1 {
				t.Fatalf("len(Servers) = %d, want 1", len(opts.Servers))
			}
			if got := opts.Servers[0].String(); got != tt.wantBroker {
				t.Errorf("broker = %q, want %q", got, tt.wantBroker)
			}
			if opts.ClientID != cfg.Broker.ClientID {
				t.Errorf("ClientID = %q, want %q", opts.ClientID, cfg.Broker.ClientID)
			}
			if opts.Username != tt.wantUser {
				t.Errorf("Username = %q, want %q", opts.Username, tt.wantUser)
			}
			if (opts.TLSConfig != nil) != tt.wantTLS {
				t.Errorf("TLSConfig set = %v, want %v", opts.TLSConfig != nil, tt.wantTLS)
			}
			if !opts.AutoReconnect || !opts.CleanSession {
				t.Error("expected auto-reconnect with a clean session")
			}
			if opts.MaxReconnectInterval.Seconds() != 5 {
				t.Errorf("MaxReconnectInterval = %v, want 5s", opts.MaxReconnectInterval)
			}
		})
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig())
	configureLWT(opts, "climate-1")

	if !opts.WillEnabled {
		t.Fatal("WillEnabled = false, want true")
	}
	if opts.WillTopic != "graylogic/climate/status" {
		t.Errorf("WillTopic = %q", opts.WillTopic)
	}
	if !opts.WillRetained || opts.WillQos != 1 {
		t.Errorf("will retained=%v qos=%d, want retained qos 1", opts.WillRetained, opts.WillQos)
	}

	var p statusPayload
	if err := json.Unmarshal(opts.WillPayload, &p); err != nil {
		t.Fatalf("will payload is not JSON: %v", err)
	}
	if p.Status != statusOffline || p.Reason != reasonUnexpected || p.ClientID != "climate-1" {
		t.Errorf("will payload = %+v", p)
	}
}

func TestStatusPayloads(t *testing.T) {
	var online, offline statusPayload
	if err := json.Unmarshal(buildOnlinePayload("c"), &online); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(buildOfflinePayload("c"), &offline); err != nil {
		t.Fatal(err)
	}

	if online.Status != "online" || online.Reason != "" {
		t.Errorf("online payload = %+v", online)
	}
	if offline.Status != "offline" || offline.Reason != "graceful_shutdown" {
		t.Errorf("offline payload = %+v", offline)
	}
	if online.Timestamp == "" || offline.Timestamp == "" {
		t.Error("payload timestamp is empty")
	}
	if strings.Contains(string(buildOnlinePayload("c")), "reason") {
		t.Error("online payload should omit reason")
	}
}

// =============================================================================
// Validation and disconnected behaviour
// =============================================================================

func TestConnect_InvalidQoS(t *testing.T) {
	cfg := testConfig()
	cfg.QoS = 3

	if _, err := Connect(cfg); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Connect() error = %v, want ErrInvalidQoS", err)
	}
}

func TestPublish_Validation(t *testing.T) {
	c := newClient(testConfig(), nil)

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{"empty topic", "", []byte("x"), 1, ErrInvalidTopic},
		{"bad qos", "t", []byte("x"), 3, ErrInvalidQoS},
		{"oversized", "t", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		{"not connected", "t", []byte("x"), 1, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Publish(tt.topic, tt.payload, tt.qos, true)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubscribe_Validation(t *testing.T) {
	c := newClient(testConfig(), nil)
	noop := func(string, []byte) error { return nil }

	if err := c.Subscribe("", 1, noop); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic error = %v", err)
	}
	if err := c.Subscribe("t", 5, noop); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("bad qos error = %v", err)
	}
	if err := c.Subscribe("t", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("nil handler error = %v", err)
	}
	if err := c.Subscribe("t", 1, noop); !errors.Is(err, ErrNotConnected) {
		t.Errorf("disconnected error = %v", err)
	}
	if c.HasSubscription("t") {
		t.Error("failed subscription should not be tracked")
	}
	if err := c.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe empty topic error = %v", err)
	}
}

func TestClient_Unconnected(t *testing.T) {
	c := newClient(testConfig(), nil)

	if c.IsConnected() {
		t.Error("IsConnected() = true for a client that never connected")
	}
	if err := c.HealthCheck(t.Context()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
	errs  []string
}

func (l *recordingLogger) Info(string, ...any) {}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, msg)
}

func TestDispatch_RecoversAndLogs(t *testing.T) {
	c := newClient(testConfig(), nil)
	log := &recordingLogger{}
	c.SetLogger(log)

	c.dispatch(func(string, []byte) error { return errors.New("bad payload") }, "t", nil)
	c.dispatch(func(string, []byte) error { panic("boom") }, "t", nil)

	var got string
	c.dispatch(func(topic string, payload []byte) error {
		got = topic + "=" + string(payload)
		return nil
	}, "t", []byte("ok"))

	if len(log.warns) != 1 {
		t.Errorf("warnings = %v, want one", log.warns)
	}
	if len(log.errs) != 1 {
		t.Errorf("errors = %v, want one recovered panic", log.errs)
	}
	if got != "t=ok" {
		t.Errorf("handler saw %q", got)
	}
}

// =============================================================================
// Topics
// =============================================================================

func TestTopics(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"sensor state", topics.SensorState("a4:c1:38:59:9a:9b"), "graylogic/climate/sensor/A4:C1:38:59:9A:9B/state"},
		{"all sensor states", topics.AllSensorStates(), "graylogic/climate/sensor/+/state"},
		{"room led", topics.RoomLED("0.1"), "graylogic/climate/room/0.1/led"},
		{"system status", topics.SystemStatus(), "graylogic/climate/status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestParseSensorTopic(t *testing.T) {
	tests := []struct {
		topic   string
		wantMAC string
		wantOK  bool
	}{
		{"graylogic/climate/sensor/A4:C1:38:59:9A:9B/state", "A4:C1:38:59:9A:9B", true},
		{"graylogic/climate/sensor/a4:c1:38:00:00:01/state", "A4:C1:38:00:00:01", true},
		{"graylogic/climate/sensor//state", "", false},
		{"graylogic/climate/sensor/a/b/state", "", false},
		{"graylogic/climate/room/0.1/led", "", false},
		{"graylogic/climate/sensor/A4:C1:38:59:9A:9B", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			mac, ok := ParseSensorTopic(tt.topic)
			if ok != tt.wantOK || mac != tt.wantMAC {
				t.Errorf("ParseSensorTopic() = (%q, %v), want (%q, %v)", mac, ok, tt.wantMAC, tt.wantOK)
			}
		})
	}
}
