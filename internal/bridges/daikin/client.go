package daikin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/device"
)

const (
	sensorInfoPath  = "/aircon/get_sensor_info"
	controlInfoPath = "/aircon/get_control_info"

	// DefaultTimeout bounds each request to the adapter.
	DefaultTimeout = 3 * time.Second

	// maxBodySize caps the adapter response; real answers are well under 1KB.
	maxBodySize = 16 << 10
)

// Client polls Daikin adapters over HTTP. One Client serves every unit.
type Client struct {
	http   *http.Client
	scheme string
}

// NewClient creates a Client whose requests time out after timeout.
// A non-positive timeout selects DefaultTimeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http:   &http.Client{Timeout: timeout},
		scheme: "http",
	}
}

// Handle returns the reading source for the unit at host.
// It implements device.ApplianceSource.
func (c *Client) Handle(host string) device.ApplianceHandle {
	return unit{client: c, host: host}
}

type unit struct {
	client *Client
	host   string
}

// Poll implements device.ApplianceHandle.
func (u unit) Poll(ctx context.Context) (device.ApplianceReading, error) {
	return u.client.Poll(ctx, u.host)
}

// Poll reads sensor and control info from the unit at host.
// SampleTime and RoomID are left for the caller to fill in.
func (c *Client) Poll(ctx context.Context, host string) (device.ApplianceReading, error) {
	sensor, err := c.get(ctx, host, sensorInfoPath)
	if err != nil {
		return device.ApplianceReading{}, err
	}
	control, err := c.get(ctx, host, controlInfoPath)
	if err != nil {
		return device.ApplianceReading{}, err
	}
	return decodeReading(sensor, control)
}

func (c *Client) get(ctx context.Context, host, path string) (map[string]string, error) {
	u := url.URL{Scheme: c.scheme, Host: host, Path: path}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", device.ErrConnect, host, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransport(host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s%s: status %d", device.ErrConnect, host, path, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, classifyTransport(host, err)
	}

	fields, err := parseBody(string(body))
	if err != nil {
		return nil, fmt.Errorf("%s%s: %w", host, path, err)
	}
	return fields, nil
}

func classifyTransport(host string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %s: %w", device.ErrTimeout, host, err)
	}
	return fmt.Errorf("%w: %s: %w", device.ErrConnect, host, err)
}

// parseBody splits a "ret=OK,key=value,..." answer into a map.
// Values are unescaped the way the adapter encodes the unit name.
func parseBody(body string) (map[string]string, error) {
	body = strings.TrimSpace(body)
	if !strings.HasPrefix(body, "ret=") {
		return nil, fmt.Errorf("%w: body does not start with ret=", device.ErrMalformed)
	}

	fields := make(map[string]string)
	for _, part := range strings.Split(body, ",") {
		key, value, _ := strings.Cut(part, "=")
		if key == "" {
			continue
		}
		if unescaped, err := url.QueryUnescape(value); err == nil {
			value = unescaped
		}
		fields[key] = value
	}

	if ret := fields["ret"]; ret != "OK" {
		return nil, fmt.Errorf("%w: ret=%s", device.ErrMalformed, ret)
	}
	return fields, nil
}

func decodeReading(sensor, control map[string]string) (device.ApplianceReading, error) {
	var (
		r   device.ApplianceReading
		err error
	)

	power, err := intField(control, "pow")
	if err != nil {
		return r, err
	}
	r.Power = power != 0

	if r.Mode, err = intField(control, "mode"); err != nil {
		return r, err
	}
	if r.InsideTemp, err = floatField(sensor, "htemp"); err != nil {
		return r, err
	}

	r.TargetTemp, r.TargetFallback = parseTarget(control["stemp"], r.InsideTemp)
	r.OutsideTemp, r.OutsideMissing = parseOutside(sensor["otemp"])
	r.CompressorFreq, r.CompressorMissing = parseCompressor(sensor["cmpfreq"])
	return r, nil
}

// parseTarget returns the numeric target temperature. When the unit reports
// a non-numeric target ("--" in fan mode, "M" in dry mode, or anything
// else) it returns inside and true.
func parseTarget(raw string, inside float64) (float64, bool) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return inside, true
	}
	return v, false
}

// parseOutside returns the outside temperature, or 0 and true when the unit
// reports none ("-" while the outdoor unit is idle, or the key is absent).
func parseOutside(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, true
	}
	return v, false
}

// parseCompressor returns the compressor frequency in Hz, or 0 and true
// when the unit reports none. Fractional values are rounded.
func parseCompressor(raw string) (int, bool) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, true
	}
	return int(math.Round(v)), false
}

func intField(fields map[string]string, key string) (int, error) {
	raw, ok := fields[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing %s", device.ErrMalformed, key)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", device.ErrMalformed, key, raw)
	}
	return v, nil
}

func floatField(fields map[string]string, key string) (float64, error) {
	raw, ok := fields[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing %s", device.ErrMalformed, key)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", device.ErrMalformed, key, raw)
	}
	return v, nil
}
