// Package device defines the polled devices and the readings they produce.
//
// A Device is either a Sensor or an Appliance, each carrying a handle to
// its reading source. The device list is built once from configuration and
// is never modified while the scheduler runs.
package device
