package indicator

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/health"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/mqtt"
)

// Sink receives the LED state of a room.
type Sink interface {
	Set(roomID string, state health.State)
}

// Logger is the logging interface used by the sinks.
type Logger interface {
	Debug(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}

// SetAll sets every room in roomIDs to state. The daemon uses it to show
// orange for all rooms before the first poll.
func SetAll(sink Sink, roomIDs []string, state health.State) {
	for _, id := range roomIDs {
		sink.Set(id, state)
	}
}

// Multi fans a state out to several sinks in order.
type Multi []Sink

// Set implements Sink.
func (m Multi) Set(roomID string, state health.State) {
	for _, s := range m {
		s.Set(roomID, state)
	}
}

// FileSink copies a colour image over the room's image in the web directory.
type FileSink struct {
	assetDir  string
	outputDir string
	logger    Logger
}

// NewFileSink creates a FileSink reading <assetDir>/<colour>.png and writing
// <outputDir>/<room_id>.png.
func NewFileSink(assetDir, outputDir string) *FileSink {
	return &FileSink{assetDir: assetDir, outputDir: outputDir, logger: noopLogger{}}
}

// SetLogger sets the logger for copy failures.
func (f *FileSink) SetLogger(l Logger) {
	if l == nil {
		l = noopLogger{}
	}
	f.logger = l
}

// Set implements Sink.
func (f *FileSink) Set(roomID string, state health.State) {
	src := filepath.Join(f.assetDir, string(state)+".png")
	dst := filepath.Join(f.outputDir, roomID+".png")
	if err := copyFile(src, dst); err != nil {
		f.logger.Debug("indicator image not updated", "room_id", roomID, "state", state, "error", err)
		return
	}
	f.logger.Debug("indicator image updated", "room_id", roomID, "state", state)
}

// copyFile writes src to a temporary file beside dst and renames it into
// place, so a reader never sees a half-written image.
func copyFile(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // path built from configured asset dir
	if err != nil {
		return fmt.Errorf("opening asset: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".led-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // already renamed on success

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return fmt.Errorf("copying asset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil { //nolint:gosec // served by the web server
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("renaming into place: %w", err)
	}
	return nil
}

// Publisher is the subset of the MQTT client used by MQTTSink.
type Publisher interface {
	PublishRetained(topic string, payload []byte) error
}

// ledPayload is the retained message on a room's LED topic.
type ledPayload struct {
	RoomID    string       `json:"room_id"`
	State     health.State `json:"state"`
	Timestamp string       `json:"timestamp"`
}

// MQTTSink publishes the LED colour of each room as a retained message.
type MQTTSink struct {
	pub    Publisher
	logger Logger
	now    func() time.Time
}

// NewMQTTSink creates an MQTTSink publishing through pub.
func NewMQTTSink(pub Publisher) *MQTTSink {
	return &MQTTSink{pub: pub, logger: noopLogger{}, now: time.Now}
}

// SetLogger sets the logger for publish failures.
func (m *MQTTSink) SetLogger(l Logger) {
	if l == nil {
		l = noopLogger{}
	}
	m.logger = l
}

// Set implements Sink.
func (m *MQTTSink) Set(roomID string, state health.State) {
	payload, err := json.Marshal(ledPayload{
		RoomID:    roomID,
		State:     state,
		Timestamp: m.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		m.logger.Debug("indicator payload not encoded", "room_id", roomID, "error", err)
		return
	}
	if err := m.pub.PublishRetained(mqtt.Topics{}.RoomLED(roomID), payload); err != nil {
		m.logger.Debug("indicator state not published", "room_id", roomID, "state", state, "error", err)
	}
}
