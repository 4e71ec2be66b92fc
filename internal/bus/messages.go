package bus

import (
	"errors"
	"strings"
)

// ErrBadTopic indicates a topic that does not match the expected shape.
var ErrBadTopic = errors.New("bus: malformed topic")

// ButtonPressMessage is the payload of device/button/<id>/press.
type ButtonPressMessage struct {
	DeviceID        string `json:"deviceId"`
	LocationID      string `json:"locationId,omitempty"`
	GuestID         string `json:"guestId,omitempty"`
	Button          string `json:"button"`
	Gesture         string `json:"gesture"`
	Battery         *int   `json:"battery,omitempty"`
	Signal          *int   `json:"signal,omitempty"`
	FirmwareVersion string `json:"firmwareVersion,omitempty"`
	SequenceNumber  *int64 `json:"sequenceNumber,omitempty"`
	Timestamp       int64  `json:"timestamp"`
	VoiceTranscript string `json:"voiceTranscript,omitempty"`
	AudioRef        string `json:"audioRef,omitempty"`
}

// ButtonStatusMessage is the payload of device/button/<id>/status.
type ButtonStatusMessage struct {
	Online  bool `json:"online"`
	Battery *int `json:"battery,omitempty"`
	Signal  *int `json:"signal,omitempty"`
}

// RegisterMessage is the payload of device/register.
type RegisterMessage struct {
	DeviceID        string `json:"deviceId"`
	Kind            string `json:"kind"`
	Name            string `json:"name,omitempty"`
	FirmwareVersion string `json:"firmwareVersion,omitempty"`
	HardwareVersion string `json:"hardwareVersion,omitempty"`
	NetworkAddress  string `json:"networkAddress,omitempty"`
	Signal          *int   `json:"signal,omitempty"`
}

// HeartbeatMessage is the payload of device/heartbeat.
type HeartbeatMessage struct {
	DeviceID   string `json:"deviceId"`
	Kind       string `json:"kind,omitempty"`
	Status     string `json:"status,omitempty"`
	Signal     *int   `json:"signal,omitempty"`
	Uptime     int64  `json:"uptime,omitempty"`
	FreeMemory int64  `json:"freeMemory,omitempty"`
}

// TelemetryMessage is the payload of device/<id>/telemetry.
type TelemetryMessage struct {
	Battery *int `json:"battery,omitempty"`
	Signal  *int `json:"signal,omitempty"`
}

// AcknowledgeMessage is the payload of wearable/<id>/acknowledge.
type AcknowledgeMessage struct {
	RequestID string `json:"requestId"`
	Action    string `json:"action"`
}

// Wearable acknowledgement actions.
const (
	AckActionAccept   = "accept"
	AckActionComplete = "complete"
)

// deviceIDFromTopic extracts the path segment at index from a topic.
//
//	steward/device/button/<id>/press  → index 3
//	steward/device/<id>/telemetry     → index 2
//	steward/wearable/<id>/acknowledge → index 2
func deviceIDFromTopic(topic string, index int) (string, error) {
	parts := strings.Split(topic, "/")
	if index >= len(parts) || parts[index] == "" {
		return "", ErrBadTopic
	}
	return parts[index], nil
}
