package device

import "time"

// Device represents a field endpoint known to the core.
// This matches the database schema in migrations.
type Device struct {
	// ID is the stable external identifier the device announces on the
	// bus (e.g. "btn-0a3f"). It is the primary key.
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind Kind   `json:"kind"`

	// Bindings. A device is bound to at most one location and at most
	// one crew member at a time.
	LocationID   *string `json:"location_id,omitempty"`
	CrewMemberID *string `json:"crew_member_id,omitempty"`

	// Health
	Status         Status     `json:"status"`
	BatteryLevel   *int       `json:"battery_level,omitempty"`
	SignalStrength *int       `json:"signal_strength,omitempty"`
	LastSeenAt     *time.Time `json:"last_seen_at,omitempty"`

	// Metadata
	FirmwareVersion *string `json:"firmware_version,omitempty"`
	HardwareVersion *string `json:"hardware_version,omitempty"`
	NetworkAddress  *string `json:"network_address,omitempty"`

	// Config holds the button-to-action mapping and other device
	// settings as an opaque JSON map.
	Config Config `json:"config,omitempty"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy creates a complete independent copy of the Device.
// Map fields are cloned so modifications to the copy do not affect the
// original. This is essential for cache isolation.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d
	cpy.Config = deepCopyMap(d.Config)

	// Pointer fields (*string, *int, *time.Time) point at immutable
	// values and do not need cloning.

	return &cpy
}

// deepCopyMap creates a deep copy of a map[string]any.
// Nested maps and slices are recursively copied.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		return v
	}
}

// Config holds device-specific configuration as a JSON map.
//
// Example (call button):
//
//	{"buttons": {"aux1": "dnd_toggle", "aux2": "lights"}}
type Config map[string]any

// Kind classifies what a device is.
type Kind string

// Kind constants.
const (
	KindButton       Kind = "button"
	KindWearable     Kind = "wearable"
	KindRepeater     Kind = "repeater"
	KindCompanionApp Kind = "companion_app"
)

// AllKinds returns all valid device kinds.
func AllKinds() []Kind {
	return []Kind{KindButton, KindWearable, KindRepeater, KindCompanionApp}
}

// Valid reports whether k is a recognised kind.
func (k Kind) Valid() bool {
	switch k {
	case KindButton, KindWearable, KindRepeater, KindCompanionApp:
		return true
	}
	return false
}

// Status represents device reachability.
type Status string

// Status constants.
const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	StatusUnknown Status = "unknown"
)

// Hints carries the optional fields an inbound message may supply when
// a device is first seen or refreshed. Zero values mean "not supplied"
// and are never merged over existing data.
type Hints struct {
	Kind            Kind
	Name            string
	LocationID      string
	FirmwareVersion string
	HardwareVersion string
	NetworkAddress  string
	BatteryLevel    *int
	SignalStrength  *int
	Config          Config
}
