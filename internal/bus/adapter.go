package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/saltline/steward-core/internal/device"
	"github.com/saltline/steward-core/internal/directory"
	"github.com/saltline/steward-core/internal/infrastructure/mqtt"
	"github.com/saltline/steward-core/internal/intent"
	"github.com/saltline/steward-core/internal/request"
)

// subscribeQoS is the delivery guarantee for inbound subscriptions.
// At-least-once; the pipeline tolerates duplicates.
const subscribeQoS = 1

// Subscriber abstracts the inbound message channel.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Publisher abstracts the outbound message channel.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Broadcaster pushes events to connected UI sessions. Best-effort,
// at-most-once per session.
type Broadcaster interface {
	Broadcast(event string, payload any)
}

// Lifecycle is the slice of the request manager the adapter drives.
type Lifecycle interface {
	Create(ctx context.Context, params request.CreateParams) (*request.Request, error)
	Accept(ctx context.Context, id, crewID string) (*request.Request, error)
	Complete(ctx context.Context, id string) (*request.Request, error)
}

// Telemetry receives device health readings for time-series storage.
type Telemetry interface {
	WriteDeviceTelemetry(deviceID string, kind string, batteryLevel *int, signalStrength *int)
}

// TaskRunner defers side-effect work off the message loop.
type TaskRunner interface {
	Submit(name string, task func(ctx context.Context)) bool
}

// Logger defines the logging interface used by the Adapter.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Adapter wires the MQTT topics to the ingestion pipeline.
type Adapter struct {
	sub       Subscriber
	pub       Publisher
	registry  *device.Registry
	dir       directory.Repository
	lifecycle Lifecycle
	hub       Broadcaster
	deduper   *Deduper
	pairing   *device.PairingTracker
	metrics   Telemetry
	runner    TaskRunner
	topics    mqtt.Topics
	logger    Logger

	// baseCtx bounds handler work spawned by inbound messages.
	baseCtx context.Context
}

// Options carries the optional collaborators; nil fields disable the
// corresponding side effect.
type Options struct {
	Hub     Broadcaster
	Metrics Telemetry
	Runner  TaskRunner
	Pairing *device.PairingTracker
	Deduper *Deduper
	Logger  Logger
}

// NewAdapter creates a bus adapter.
func NewAdapter(sub Subscriber, pub Publisher, registry *device.Registry, dir directory.Repository, lifecycle Lifecycle, opts Options) *Adapter {
	a := &Adapter{
		sub:       sub,
		pub:       pub,
		registry:  registry,
		dir:       dir,
		lifecycle: lifecycle,
		hub:       opts.Hub,
		deduper:   opts.Deduper,
		pairing:   opts.Pairing,
		metrics:   opts.Metrics,
		runner:    opts.Runner,
		logger:    opts.Logger,
	}
	if a.deduper == nil {
		a.deduper = NewDeduper(0)
	}
	if a.logger == nil {
		a.logger = noopLogger{}
	}
	return a
}

// Start subscribes to all inbound topic patterns. The context bounds
// the work spawned by message handlers.
func (a *Adapter) Start(ctx context.Context) error {
	a.baseCtx = ctx

	subscriptions := []struct {
		topic   string
		handler mqtt.MessageHandler
	}{
		{a.topics.AllButtonPresses(), a.handleButtonPress},
		{a.topics.AllButtonStatuses(), a.handleButtonStatus},
		{a.topics.DeviceRegister(), a.handleRegister},
		{a.topics.DeviceHeartbeat(), a.handleHeartbeat},
		{a.topics.AllDeviceTelemetry(), a.handleTelemetry},
		{a.topics.AllWearableAcknowledgements(), a.handleAcknowledge},
	}

	for _, s := range subscriptions {
		if err := a.sub.Subscribe(s.topic, subscribeQoS, s.handler); err != nil {
			return fmt.Errorf("subscribing %s: %w", s.topic, err)
		}
	}

	a.logger.Info("bus adapter started", "subscriptions", len(subscriptions))
	return nil
}

// handleButtonPress runs the main pipeline: dedupe, ensure, derive,
// then either the DND side effect or request creation.
func (a *Adapter) handleButtonPress(topic string, payload []byte) error {
	var msg ButtonPressMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("dropping malformed press payload: %w", err)
	}

	deviceID, err := deviceIDFromTopic(topic, 3)
	if err != nil {
		deviceID = msg.DeviceID
	}
	if deviceID == "" {
		return errors.New("dropping press with no device identifier")
	}

	if msg.SequenceNumber != nil && a.deduper.Seen(deviceID, *msg.SequenceNumber) {
		a.logger.Debug("duplicate press suppressed",
			"device_id", deviceID, "sequence", *msg.SequenceNumber)
		return nil
	}

	// The pair is marked seen up front so concurrent deliveries race
	// once; a failure below releases it so the retransmit can land.
	fail := func(err error) error {
		if msg.SequenceNumber != nil {
			a.deduper.Forget(deviceID, *msg.SequenceNumber)
		}
		return err
	}

	ctx := a.baseCtx
	dev, err := a.registry.EnsureDevice(ctx, deviceID, device.Hints{
		Kind:            device.KindButton,
		LocationID:      msg.LocationID,
		FirmwareVersion: msg.FirmwareVersion,
		BatteryLevel:    msg.Battery,
		SignalStrength:  msg.Signal,
	})
	if err != nil {
		return fail(fmt.Errorf("ensuring device %s: %w", deviceID, err))
	}

	derived := intent.Derive(intent.Event{
		Button:          intent.Button(msg.Button),
		Gesture:         intent.Gesture(msg.Gesture),
		DeviceKind:      string(dev.Kind),
		VoiceTranscript: msg.VoiceTranscript,
		AudioRef:        msg.AudioRef,
	})

	locationID := msg.LocationID
	if locationID == "" && dev.LocationID != nil {
		locationID = *dev.LocationID
	}

	if derived.SideEffect() {
		if err := a.toggleDoNotDisturb(ctx, dev.ID, locationID); err != nil {
			return fail(err)
		}
		return nil
	}

	req, err := a.lifecycle.Create(ctx, request.CreateParams{
		Category:        derived.Category,
		Priority:        derived.Priority,
		VoiceTranscript: derived.VoiceTranscript,
		AudioRef:        derived.AudioRef,
		LocationID:      locationID,
		GuestID:         msg.GuestID,
		SourceDeviceID:  dev.ID,
	})
	if err != nil {
		return fail(fmt.Errorf("creating request: %w", err))
	}

	a.logger.Info("press handled",
		"device_id", dev.ID, "request_id", req.ID,
		"category", req.Category, "priority", req.Priority)

	a.submitTelemetryWrite(dev.ID, string(dev.Kind), msg.Battery, msg.Signal)
	return nil
}

// toggleDoNotDisturb performs the aux1 side effect: flip DND on the
// bound location, acknowledge the device, broadcast the change. No
// request is created.
func (a *Adapter) toggleDoNotDisturb(ctx context.Context, deviceID, locationID string) error {
	if locationID == "" {
		return fmt.Errorf("dropping dnd toggle from %s: device has no bound location", deviceID)
	}

	value, err := a.dir.ToggleDoNotDisturb(ctx, locationID)
	if err != nil {
		return fmt.Errorf("toggling dnd for %s: %w", locationID, err)
	}

	a.logger.Info("do-not-disturb toggled",
		"location_id", locationID, "device_id", deviceID, "value", value)

	a.publishCommand(deviceID, "ack", "")
	a.broadcast("dnd_changed", map[string]any{
		"location_id":    locationID,
		"do_not_disturb": value,
	})
	return nil
}

// handleButtonStatus refreshes health from a status message.
func (a *Adapter) handleButtonStatus(topic string, payload []byte) error {
	var msg ButtonStatusMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("dropping malformed status payload: %w", err)
	}

	deviceID, err := deviceIDFromTopic(topic, 3)
	if err != nil {
		return fmt.Errorf("dropping status message: %w", err)
	}

	status := device.StatusOnline
	if !msg.Online {
		status = device.StatusOffline
	}
	if err := a.registry.RecordTelemetry(a.baseCtx, deviceID, msg.Battery, msg.Signal, status); err != nil {
		return fmt.Errorf("recording status for %s: %w", deviceID, err)
	}

	a.broadcast("device_status", map[string]any{
		"device_id": deviceID,
		"status":    string(status),
	})
	return nil
}

// handleRegister provisions or refreshes a device from an explicit
// registration and confirms it back to the device.
func (a *Adapter) handleRegister(_ string, payload []byte) error {
	var msg RegisterMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("dropping malformed register payload: %w", err)
	}
	if msg.DeviceID == "" {
		return errors.New("dropping registration with no device identifier")
	}

	dev, err := a.registry.EnsureDevice(a.baseCtx, msg.DeviceID, device.Hints{
		Kind:            device.Kind(msg.Kind),
		Name:            msg.Name,
		FirmwareVersion: msg.FirmwareVersion,
		HardwareVersion: msg.HardwareVersion,
		NetworkAddress:  msg.NetworkAddress,
		SignalStrength:  msg.Signal,
	})
	if err != nil {
		return fmt.Errorf("registering device %s: %w", msg.DeviceID, err)
	}

	// A device that registers during its pairing window completes the
	// pairing flow; anything else just gets a receipt.
	command := "ack"
	if a.pairing != nil && a.pairing.Cancel(dev.ID) {
		command = "paired"
	}
	a.publishCommand(dev.ID, command, "")

	a.logger.Info("device registered", "device_id", dev.ID, "kind", dev.Kind)
	return nil
}

// handleHeartbeat refreshes liveness from a heartbeat message.
func (a *Adapter) handleHeartbeat(_ string, payload []byte) error {
	var msg HeartbeatMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("dropping malformed heartbeat payload: %w", err)
	}
	if msg.DeviceID == "" {
		return errors.New("dropping heartbeat with no device identifier")
	}

	status := device.Status(msg.Status)
	if status == "" {
		status = device.StatusOnline
	}
	if err := a.registry.RecordTelemetry(a.baseCtx, msg.DeviceID, nil, msg.Signal, status); err != nil {
		return fmt.Errorf("recording heartbeat for %s: %w", msg.DeviceID, err)
	}

	a.broadcast("device_status", map[string]any{
		"device_id": msg.DeviceID,
		"status":    string(status),
	})
	return nil
}

// handleTelemetry records battery/signal readings.
func (a *Adapter) handleTelemetry(topic string, payload []byte) error {
	var msg TelemetryMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("dropping malformed telemetry payload: %w", err)
	}

	deviceID, err := deviceIDFromTopic(topic, 2)
	if err != nil {
		return fmt.Errorf("dropping telemetry message: %w", err)
	}

	if err := a.registry.RecordTelemetry(a.baseCtx, deviceID, msg.Battery, msg.Signal, ""); err != nil {
		return fmt.Errorf("recording telemetry for %s: %w", deviceID, err)
	}

	a.submitTelemetryWrite(deviceID, "", msg.Battery, msg.Signal)
	return nil
}

// handleAcknowledge maps a wearable acknowledgement onto a lifecycle
// transition for the crew member the wearable is bound to.
func (a *Adapter) handleAcknowledge(topic string, payload []byte) error {
	var msg AcknowledgeMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("dropping malformed acknowledge payload: %w", err)
	}

	wearableID, err := deviceIDFromTopic(topic, 2)
	if err != nil {
		return fmt.Errorf("dropping acknowledge message: %w", err)
	}
	if msg.RequestID == "" {
		return errors.New("dropping acknowledge with no request id")
	}

	ctx := a.baseCtx
	wearable, err := a.registry.GetDevice(ctx, wearableID)
	if err != nil {
		return fmt.Errorf("acknowledging from unknown wearable %s: %w", wearableID, err)
	}
	if wearable.CrewMemberID == nil {
		return fmt.Errorf("dropping acknowledge from unbound wearable %s", wearableID)
	}

	switch msg.Action {
	case AckActionAccept:
		_, err = a.lifecycle.Accept(ctx, msg.RequestID, *wearable.CrewMemberID)
	case AckActionComplete:
		_, err = a.lifecycle.Complete(ctx, msg.RequestID)
	default:
		return fmt.Errorf("dropping acknowledge with unknown action %q", msg.Action)
	}

	if err != nil {
		// Conflicts are routine: two wearables racing to accept the
		// same request, or a repeated tap. Log and move on.
		if errors.Is(err, request.ErrInvalidTransition) {
			a.logger.Debug("acknowledge lost the race",
				"request_id", msg.RequestID, "wearable_id", wearableID, "action", msg.Action)
			return nil
		}
		return fmt.Errorf("acknowledging request %s: %w", msg.RequestID, err)
	}

	a.logger.Info("wearable acknowledgement applied",
		"request_id", msg.RequestID, "wearable_id", wearableID, "action", msg.Action)
	return nil
}

// PublishCommand sends a best-effort command to a device. Used by the
// API layer for pairing feedback and device tests.
func (a *Adapter) PublishCommand(deviceID, command string) {
	a.publishCommand(deviceID, command, "")
}

// publishCommand sends a best-effort command to a device.
func (a *Adapter) publishCommand(deviceID, command, requestID string) {
	body := map[string]string{"command": command}
	if requestID != "" {
		body["request_id"] = requestID
	}
	payload, err := json.Marshal(body)
	if err != nil {
		a.logger.Error("marshalling device command failed", "device_id", deviceID, "error", err)
		return
	}
	if err := a.pub.Publish(a.topics.DeviceCommand(deviceID), payload, subscribeQoS, false); err != nil {
		a.logger.Warn("device command publish failed",
			"device_id", deviceID, "command", command, "error", err)
	}
}

// broadcast pushes a UI event when a hub is wired.
func (a *Adapter) broadcast(event string, payload any) {
	if a.hub == nil {
		return
	}
	a.hub.Broadcast(event, payload)
}

// submitTelemetryWrite defers a time-series write off the message loop.
func (a *Adapter) submitTelemetryWrite(deviceID, kind string, battery, signal *int) {
	if a.metrics == nil || (battery == nil && signal == nil) {
		return
	}
	write := func(context.Context) {
		a.metrics.WriteDeviceTelemetry(deviceID, kind, battery, signal)
	}
	if a.runner != nil {
		a.runner.Submit("telemetry-write", write)
		return
	}
	write(a.baseCtx)
}
