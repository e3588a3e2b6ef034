package device

import "errors"

// Domain errors for the device package.
//
//	if errors.Is(err, device.ErrTimeout) {
//	    // device did not answer in time
//	}
var (
	// ErrNoData is returned when a device has nothing fresh to report.
	ErrNoData = errors.New("device: no data")

	// ErrTimeout is returned when a device poll exceeds its deadline.
	ErrTimeout = errors.New("device: timeout")

	// ErrConnect is returned when the device cannot be reached.
	ErrConnect = errors.New("device: connect failed")

	// ErrMalformed is returned when the device answers with an unparsable payload.
	ErrMalformed = errors.New("device: malformed response")

	// ErrInvalidDevice is returned when a device description is incomplete.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrUnknownClass is returned for a class other than sensor or appliance.
	ErrUnknownClass = errors.New("device: unknown class")
)
