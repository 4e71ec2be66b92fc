package notify

import (
	"context"
	"encoding/json"

	"github.com/saltline/steward-core/internal/device"
	"github.com/saltline/steward-core/internal/directory"
	"github.com/saltline/steward-core/internal/infrastructure/mqtt"
	"github.com/saltline/steward-core/internal/intent"
	"github.com/saltline/steward-core/internal/request"
)

// notifyQoS is the delivery guarantee for wearable notifications.
// At-least-once: a duplicate buzz beats a missed call.
const notifyQoS = 1

// Publisher abstracts the outbound message channel.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// DeviceDirectory provides the wearable lookups targeting needs.
type DeviceDirectory interface {
	WearablesForCrew(ctx context.Context, crewMemberID string) ([]device.Device, error)
	AllCrewWearables(ctx context.Context) ([]device.Device, error)
}

// Logger defines the logging interface used by the Router.
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

// Router computes notification target sets and publishes the outbound
// payloads. Every method is best-effort: failures are logged, never
// returned to the lifecycle transition that triggered them.
type Router struct {
	devices DeviceDirectory
	dir     directory.Repository
	pub     Publisher
	topics  mqtt.Topics
	logger  Logger
}

// NewRouter creates a notification router.
func NewRouter(devices DeviceDirectory, dir directory.Repository, pub Publisher) *Router {
	return &Router{
		devices: devices,
		dir:     dir,
		pub:     pub,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the router.
func (r *Router) SetLogger(logger Logger) {
	r.logger = logger
}

// Targets computes the recipient device set for a request.
//
//  1. Assigned request: exactly the assigned crew member's wearables,
//     duty status ignored.
//  2. Unassigned emergency: every crew wearable.
//  3. Otherwise: wearables of on-duty crew.
//
// An empty set is a valid result, not an error.
func (r *Router) Targets(ctx context.Context, req *request.Request) ([]device.Device, error) {
	if req.AssignedCrewID != nil {
		return r.devices.WearablesForCrew(ctx, *req.AssignedCrewID)
	}

	if req.Priority == intent.PriorityEmergency {
		return r.devices.AllCrewWearables(ctx)
	}

	onDuty, err := r.dir.OnDutyCrew(ctx)
	if err != nil {
		return nil, err
	}
	var targets []device.Device
	for _, crew := range onDuty {
		wearables, err := r.devices.WearablesForCrew(ctx, crew.ID)
		if err != nil {
			return nil, err
		}
		targets = append(targets, wearables...)
	}
	return targets, nil
}

// HandleTransition fans out a lifecycle transition: a service-topic
// summary for other subsystems, wearable notifications where the
// transition warrants them, and an acknowledgement command to the
// originating device.
func (r *Router) HandleTransition(ctx context.Context, req *request.Request, action request.Action) {
	r.publishServiceEvent(req, action)

	switch action {
	case request.ActionCreated, request.ActionAssigned:
		r.notifyWearables(ctx, req)
	}

	r.acknowledgeOrigin(req, action)
}

// notifyWearables delivers the per-recipient payload to the computed
// target set.
func (r *Router) notifyWearables(ctx context.Context, req *request.Request) {
	targets, err := r.Targets(ctx, req)
	if err != nil {
		r.logger.Error("computing notification targets failed",
			"request_id", req.ID, "error", err)
		return
	}
	if len(targets) == 0 {
		r.logger.Info("no notification recipients",
			"request_id", req.ID, "priority", req.Priority)
		return
	}

	notification := r.buildNotification(ctx, req)
	payload, err := json.Marshal(notification)
	if err != nil {
		r.logger.Error("marshalling notification failed",
			"request_id", req.ID, "error", err)
		return
	}

	for _, target := range targets {
		topic := r.topics.WearableNotification(target.ID)
		if err := r.pub.Publish(topic, payload, notifyQoS, false); err != nil {
			r.logger.Warn("notification delivery failed",
				"request_id", req.ID, "device_id", target.ID, "error", err)
		}
	}

	r.logger.Debug("notifications dispatched",
		"request_id", req.ID, "recipients", len(targets))
}

// originCommands maps lifecycle actions to the feedback command the
// originating device should play.
var originCommands = map[request.Action]string{
	request.ActionCreated:   "ack",
	request.ActionAccepted:  "request-accepted",
	request.ActionCompleted: "request-completed",
	request.ActionCancelled: "request-cancelled",
}

// acknowledgeOrigin echoes a feedback command to the device that
// raised the request. Best-effort side channel.
func (r *Router) acknowledgeOrigin(req *request.Request, action request.Action) {
	if req.SourceDeviceID == nil {
		return
	}
	command, ok := originCommands[action]
	if !ok {
		return
	}

	payload, err := json.Marshal(Command{Command: command, RequestID: req.ID})
	if err != nil {
		r.logger.Error("marshalling origin command failed",
			"request_id", req.ID, "error", err)
		return
	}

	topic := r.topics.DeviceCommand(*req.SourceDeviceID)
	if err := r.pub.Publish(topic, payload, notifyQoS, false); err != nil {
		r.logger.Warn("origin acknowledgement failed",
			"request_id", req.ID, "device_id", *req.SourceDeviceID, "error", err)
	}
}

// publishServiceEvent broadcasts a transition summary on the service
// topics.
func (r *Router) publishServiceEvent(req *request.Request, action request.Action) {
	event := ServiceEvent{
		RequestID: req.ID,
		Action:    string(action),
		Category:  string(req.Category),
		Priority:  string(req.Priority),
		Status:    string(req.Status),
	}
	if req.LocationID != nil {
		event.LocationID = *req.LocationID
	}
	if req.GuestID != nil {
		event.GuestID = *req.GuestID
	}
	if req.AssignedCrewName != nil {
		event.CrewName = *req.AssignedCrewName
	}

	payload, err := json.Marshal(event)
	if err != nil {
		r.logger.Error("marshalling service event failed",
			"request_id", req.ID, "error", err)
		return
	}

	topic := r.topics.ServiceUpdate()
	if action == request.ActionCreated {
		topic = r.topics.ServiceRequest()
	}
	if err := r.pub.Publish(topic, payload, notifyQoS, false); err != nil {
		r.logger.Warn("service event publish failed",
			"request_id", req.ID, "topic", topic, "error", err)
	}
}
