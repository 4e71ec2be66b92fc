package mqtt

import "fmt"

// Topic prefixes for the Steward message bus.
//
// All topics use the flat scheme: steward/{category}/.../{device_or_id}.
// Field devices (buttons, wearables, repeaters, companion apps) publish
// inbound events and subscribe to their own command topics.
const (
	// TopicPrefix is the base for all Steward topics.
	TopicPrefix = "steward"

	// TopicPrefixDevice is the base for device-originated and device-bound topics.
	TopicPrefixDevice = "steward/device"

	// TopicPrefixWearable is the base for wearable-specific topics.
	TopicPrefixWearable = "steward/wearable"

	// TopicPrefixService is the base for service-request broadcast topics.
	TopicPrefixService = "steward/service"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "steward/system"
)

// Topics provides builders for Steward MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	cmdTopic := topics.DeviceCommand("btn-0a3f")
//	// Returns: "steward/device/btn-0a3f/command"
type Topics struct{}

// =============================================================================
// Inbound (device → core)
// =============================================================================

// ButtonPress returns the topic a button publishes press events on.
//
// Example: steward/device/button/btn-0a3f/press
func (Topics) ButtonPress(deviceID string) string {
	return fmt.Sprintf("%s/button/%s/press", TopicPrefixDevice, deviceID)
}

// ButtonStatus returns the topic a button publishes status updates on.
//
// Example: steward/device/button/btn-0a3f/status
func (Topics) ButtonStatus(deviceID string) string {
	return fmt.Sprintf("%s/button/%s/status", TopicPrefixDevice, deviceID)
}

// DeviceRegister returns the shared registration topic.
//
// Example: steward/device/register
func (Topics) DeviceRegister() string {
	return fmt.Sprintf("%s/register", TopicPrefixDevice)
}

// DeviceHeartbeat returns the shared heartbeat topic.
//
// Example: steward/device/heartbeat
func (Topics) DeviceHeartbeat() string {
	return fmt.Sprintf("%s/heartbeat", TopicPrefixDevice)
}

// DeviceTelemetry returns the per-device telemetry topic.
//
// Example: steward/device/btn-0a3f/telemetry
func (Topics) DeviceTelemetry(deviceID string) string {
	return fmt.Sprintf("%s/%s/telemetry", TopicPrefixDevice, deviceID)
}

// WearableAcknowledge returns the topic a wearable publishes request
// acknowledgements on.
//
// Example: steward/wearable/w-crew1/acknowledge
func (Topics) WearableAcknowledge(deviceID string) string {
	return fmt.Sprintf("%s/%s/acknowledge", TopicPrefixWearable, deviceID)
}

// =============================================================================
// Outbound (core → device / other subsystems)
// =============================================================================

// DeviceCommand returns the per-device command topic (ack, test, paired,
// pairing-cancelled, request-accepted).
//
// Example: steward/device/btn-0a3f/command
func (Topics) DeviceCommand(deviceID string) string {
	return fmt.Sprintf("%s/%s/command", TopicPrefixDevice, deviceID)
}

// WearableNotification returns the per-wearable notification topic.
//
// Example: steward/wearable/w-crew1/notification
func (Topics) WearableNotification(deviceID string) string {
	return fmt.Sprintf("%s/%s/notification", TopicPrefixWearable, deviceID)
}

// ServiceRequest returns the topic for new service-request broadcasts.
//
// Example: steward/service/request
func (Topics) ServiceRequest() string {
	return fmt.Sprintf("%s/request", TopicPrefixService)
}

// ServiceUpdate returns the topic for request status-change broadcasts.
//
// Example: steward/service/update
func (Topics) ServiceUpdate() string {
	return fmt.Sprintf("%s/update", TopicPrefixService)
}

// SystemStatus returns the core online/offline status topic.
//
// Example: steward/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllButtonPresses returns a pattern matching all button press events.
//
// Pattern: steward/device/button/+/press
func (Topics) AllButtonPresses() string {
	return fmt.Sprintf("%s/button/+/press", TopicPrefixDevice)
}

// AllButtonStatuses returns a pattern matching all button status updates.
//
// Pattern: steward/device/button/+/status
func (Topics) AllButtonStatuses() string {
	return fmt.Sprintf("%s/button/+/status", TopicPrefixDevice)
}

// AllDeviceTelemetry returns a pattern matching all per-device telemetry.
//
// Pattern: steward/device/+/telemetry
func (Topics) AllDeviceTelemetry() string {
	return fmt.Sprintf("%s/+/telemetry", TopicPrefixDevice)
}

// AllWearableAcknowledgements returns a pattern matching all wearable acks.
//
// Pattern: steward/wearable/+/acknowledge
func (Topics) AllWearableAcknowledgements() string {
	return fmt.Sprintf("%s/+/acknowledge", TopicPrefixWearable)
}

// AllTopics returns a pattern matching all Steward topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: steward/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
