package request

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/saltline/steward-core/internal/directory"
	"github.com/saltline/steward-core/internal/intent"
)

// Logger defines the logging interface used by the Manager.
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

// TransitionHook is invoked after every successful lifecycle
// transition. Hooks receive a copy of the request; they must return
// quickly (long work belongs on the task runner) and their failures
// never affect the transition.
type TransitionHook func(req *Request, action Action)

// Manager drives the request state machine.
//
// It wraps the repository's compare-and-set transitions with guest
// resolution, history records, timing metrics and transition hooks.
// All methods are safe for concurrent use; concurrency control lives
// in the repository's conditional updates.
type Manager struct {
	repo   Repository
	dir    directory.Repository
	logger Logger
	hooks  []TransitionHook
}

// NewManager creates a request lifecycle manager.
func NewManager(repo Repository, dir directory.Repository) *Manager {
	return &Manager{
		repo:   repo,
		dir:    dir,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// OnTransition registers a hook invoked after every successful
// transition. Must be called during wiring, before concurrent use.
func (m *Manager) OnTransition(hook TransitionHook) {
	m.hooks = append(m.hooks, hook)
}

// CreateParams carries the inputs for request creation. Empty strings
// mean "absent".
type CreateParams struct {
	Category        intent.Category
	Priority        intent.Priority
	Notes           string
	VoiceTranscript string
	AudioRef        string
	LocationID      string
	GuestID         string
	SourceDeviceID  string
}

// Create opens a new pending request.
//
// When no guest is supplied but a location is, the guest is resolved
// as the most recently created onboard guest at that location. Absence
// of a guest is not an error; the request proceeds as anonymous.
func (m *Manager) Create(ctx context.Context, params CreateParams) (*Request, error) {
	guestID := params.GuestID
	if guestID == "" && params.LocationID != "" {
		guest, err := m.dir.GuestAtLocation(ctx, params.LocationID)
		switch {
		case err == nil:
			guestID = guest.ID
		case errors.Is(err, directory.ErrGuestNotFound):
			m.logger.Debug("no guest at location, request is anonymous",
				"location_id", params.LocationID)
		default:
			// Guest resolution is a convenience, not a gate.
			m.logger.Warn("guest resolution failed, request is anonymous",
				"location_id", params.LocationID, "error", err)
		}
	}

	req := &Request{
		ID:        uuid.NewString(),
		Category:  params.Category,
		Priority:  params.Priority,
		Notes:     params.Notes,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if params.VoiceTranscript != "" {
		req.VoiceTranscript = &params.VoiceTranscript
	}
	if params.AudioRef != "" {
		req.AudioRef = &params.AudioRef
	}
	if params.LocationID != "" {
		req.LocationID = &params.LocationID
	}
	if guestID != "" {
		req.GuestID = &guestID
	}
	if params.SourceDeviceID != "" {
		req.SourceDeviceID = &params.SourceDeviceID
	}

	if err := m.repo.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	m.recordHistory(ctx, req.ID, ActionCreated, nil, nil)
	m.fireHooks(req, ActionCreated)

	m.logger.Info("request created",
		"request_id", req.ID, "category", req.Category, "priority", req.Priority)
	return req, nil
}

// Get retrieves a request by id.
func (m *Manager) Get(ctx context.Context, id string) (*Request, error) {
	return m.repo.GetByID(ctx, id)
}

// List retrieves requests matching the filter, newest first.
func (m *Manager) List(ctx context.Context, filter ListFilter) ([]Request, error) {
	return m.repo.List(ctx, filter)
}

// Assign sets assignment on a pending request without confirmation.
// Used for manual dispatch from the console; the request stays pending
// until the crew member accepts.
func (m *Manager) Assign(ctx context.Context, id, crewID string) (*Request, error) {
	if crewID == "" {
		return nil, ErrCrewMemberRequired
	}
	crewName, err := m.crewDisplayName(ctx, crewID)
	if err != nil {
		return nil, err
	}

	if err := m.repo.Assign(ctx, id, crewID, crewName, time.Now().UTC()); err != nil {
		return nil, err
	}

	req, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	m.recordHistory(ctx, id, ActionAssigned, &crewID, nil)
	m.fireHooks(req, ActionAssigned)

	m.logger.Info("request assigned", "request_id", id, "crew_id", crewID)
	return req, nil
}

// Accept transitions a pending request to serving. The accepting crew
// member becomes the assignment, overwriting any prior one; last
// acceptance wins.
func (m *Manager) Accept(ctx context.Context, id, crewID string) (*Request, error) {
	if crewID == "" {
		return nil, ErrCrewMemberRequired
	}
	crewName, err := m.crewDisplayName(ctx, crewID)
	if err != nil {
		return nil, err
	}

	if err := m.repo.Accept(ctx, id, crewID, crewName, time.Now().UTC()); err != nil {
		return nil, err
	}

	req, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	m.recordHistory(ctx, id, ActionAccepted, &crewID, nil)
	m.fireHooks(req, ActionAccepted)

	m.logger.Info("request accepted", "request_id", id, "crew_id", crewID)
	return req, nil
}

// Complete transitions a serving request to completed and computes its
// timing metrics: responseTime = acceptedAt − createdAt and
// completionTime = completedAt − acceptedAt.
//
// Negative metrics indicate a clock or data-entry fault. The
// transition still succeeds, but the fault is logged and flagged in
// the history record rather than silently clamped.
func (m *Manager) Complete(ctx context.Context, id string) (*Request, error) {
	if err := m.repo.Complete(ctx, id, time.Now().UTC()); err != nil {
		return nil, err
	}

	req, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	details := map[string]any{}
	if req.AcceptedAt != nil && req.CompletedAt != nil {
		response := req.AcceptedAt.Sub(req.CreatedAt).Seconds()
		completion := req.CompletedAt.Sub(*req.AcceptedAt).Seconds()
		details[DetailResponseSeconds] = response
		details[DetailCompletionSeconds] = completion

		if response < 0 || completion < 0 {
			details[DetailClockFault] = true
			m.logger.Error("negative timing metric on completion",
				"request_id", id,
				"response_seconds", response,
				"completion_seconds", completion,
				"error", ErrNegativeTiming)
		}
	}

	m.recordHistory(ctx, id, ActionCompleted, req.AssignedCrewID, details)
	m.fireHooks(req, ActionCompleted)

	m.logger.Info("request completed", "request_id", id)
	return req, nil
}

// Cancel transitions a pending or serving request to cancelled.
func (m *Manager) Cancel(ctx context.Context, id, reason string) (*Request, error) {
	if err := m.repo.Cancel(ctx, id, reason, time.Now().UTC()); err != nil {
		return nil, err
	}

	req, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var details map[string]any
	if reason != "" {
		details = map[string]any{DetailReason: reason}
	}
	m.recordHistory(ctx, id, ActionCancelled, nil, details)
	m.fireHooks(req, ActionCancelled)

	m.logger.Info("request cancelled", "request_id", id, "reason", reason)
	return req, nil
}

// History retrieves a request's transition history, oldest first.
func (m *Manager) History(ctx context.Context, requestID string) ([]HistoryEntry, error) {
	return m.repo.ListHistory(ctx, requestID)
}

// crewDisplayName resolves a crew member's display name for the
// denormalised assignment field.
func (m *Manager) crewDisplayName(ctx context.Context, crewID string) (string, error) {
	crew, err := m.dir.GetCrewMember(ctx, crewID)
	if err != nil {
		return "", err
	}
	return crew.DisplayName(), nil
}

// recordHistory appends a history record. Failures are logged, never
// surfaced; history is a secondary record and must not fail the
// transition that produced it.
func (m *Manager) recordHistory(ctx context.Context, requestID string, action Action, crewID *string, details map[string]any) {
	if len(details) == 0 {
		details = nil
	}
	entry := &HistoryEntry{
		ID:        uuid.NewString(),
		RequestID: requestID,
		Action:    action,
		CrewID:    crewID,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.repo.AddHistory(ctx, entry); err != nil {
		m.logger.Error("recording request history failed",
			"request_id", requestID, "action", action, "error", err)
	}
}

// fireHooks invokes transition hooks with a copy of the request.
// A panicking hook is contained so it cannot take down the caller.
func (m *Manager) fireHooks(req *Request, action Action) {
	for _, hook := range m.hooks {
		cpy := *req
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Error("transition hook panicked",
						"request_id", req.ID, "action", action, "panic", r)
				}
			}()
			hook(&cpy, action)
		}()
	}
}
