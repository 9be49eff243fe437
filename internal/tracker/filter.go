// internal/tracker/filter.go
package tracker

import "github.com/signalnine/housewatch/internal/protocol"

// DefaultSensorModel is the rtl_433 model tag of the Govee water leak sensor
const DefaultSensorModel = "Govee-Water"

// DeviceRegistry maps sensor ids to human labels
type DeviceRegistry map[uint64]string

// SensorFilter accepts events from registered devices of one model
type SensorFilter struct {
	Registry DeviceRegistry
	Model    string
}

// Match returns the device label when ev should be alerted on.
// Unregistered ids and other models are not errors, just not ours.
func (f SensorFilter) Match(ev protocol.SensorEvent) (string, bool) {
	if !ev.HasID || ev.Model != f.Model {
		return "", false
	}
	label, ok := f.Registry[ev.ID]
	return label, ok
}
