package device

import (
	"fmt"

	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/config"
)

// SensorSource hands out a SensorHandle per sensor address.
type SensorSource interface {
	Handle(address string) SensorHandle
}

// ApplianceSource hands out an ApplianceHandle per appliance address.
type ApplianceSource interface {
	Handle(address string) ApplianceHandle
}

// Build turns the configured device list into Devices in configuration order.
// A source may be nil when no device of its class is configured.
func Build(cfgs []config.DeviceConfig, sensors SensorSource, appliances ApplianceSource) ([]Device, error) {
	devices := make([]Device, 0, len(cfgs))
	for i, c := range cfgs {
		info := Info{
			RoomID:  c.RoomID,
			Name:    c.Name,
			Address: c.Address,
			Class:   Class(c.Class),
		}
		if err := info.Validate(); err != nil {
			return nil, fmt.Errorf("devices[%d]: %w", i, err)
		}

		switch info.Class {
		case ClassSensor:
			if sensors == nil {
				return nil, fmt.Errorf("devices[%d] %s: no sensor source configured", i, info.RoomID)
			}
			devices = append(devices, Sensor{Info: info, Handle: sensors.Handle(info.Address)})
		case ClassAppliance:
			if appliances == nil {
				return nil, fmt.Errorf("devices[%d] %s: no appliance source configured", i, info.RoomID)
			}
			devices = append(devices, Appliance{Info: info, Handle: appliances.Handle(info.Address)})
		}
	}
	return devices, nil
}

// Validate checks that the description is complete.
func (i Info) Validate() error {
	if i.RoomID == "" {
		return fmt.Errorf("%w: room id is required", ErrInvalidDevice)
	}
	if i.Address == "" {
		return fmt.Errorf("%w: %s: address is required", ErrInvalidDevice, i.RoomID)
	}
	if i.Class != ClassSensor && i.Class != ClassAppliance {
		return fmt.Errorf("%w: %q", ErrUnknownClass, i.Class)
	}
	return nil
}

// OfClass returns the devices of class c, preserving order.
func OfClass(devices []Device, c Class) []Device {
	var out []Device
	for _, d := range devices {
		if d.Identity().Class == c {
			out = append(out, d)
		}
	}
	return out
}
