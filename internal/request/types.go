package request

import (
	"time"

	"github.com/saltline/steward-core/internal/intent"
)

// Status is a request's lifecycle state.
type Status string

// Status constants. Pending is initial; Completed and Cancelled are
// terminal.
const (
	StatusPending   Status = "pending"
	StatusServing   Status = "serving"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether s permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Request is the persisted unit of work representing a call for
// assistance.
type Request struct {
	ID       string          `json:"id"`
	Category intent.Category `json:"category"`
	Priority intent.Priority `json:"priority"`
	Notes    string          `json:"notes,omitempty"`

	// Voice payload, present on voice-note requests.
	VoiceTranscript *string `json:"voice_transcript,omitempty"`
	AudioRef        *string `json:"audio_ref,omitempty"`

	// Links. Both optional: a request may be anonymous and unlocated.
	LocationID     *string `json:"location_id,omitempty"`
	GuestID        *string `json:"guest_id,omitempty"`
	SourceDeviceID *string `json:"source_device_id,omitempty"`

	Status Status `json:"status"`

	// Assignment. Set by assign or accept; AssignedCrewName is
	// denormalised for display so wearables need no roster lookup.
	AssignedCrewID   *string `json:"assigned_crew_id,omitempty"`
	AssignedCrewName *string `json:"assigned_crew_name,omitempty"`

	CancelReason *string `json:"cancel_reason,omitempty"`

	// Lifecycle timestamps. Each non-null one is monotonically later
	// than the previous; at most one of CompletedAt/CancelledAt is set.
	CreatedAt   time.Time  `json:"created_at"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Action labels a lifecycle transition in history records and events.
type Action string

// Action constants.
const (
	ActionCreated   Action = "created"
	ActionAssigned  Action = "assigned"
	ActionAccepted  Action = "accepted"
	ActionCompleted Action = "completed"
	ActionCancelled Action = "cancelled"
)

// HistoryEntry records a single lifecycle transition for the activity
// log and analytics.
type HistoryEntry struct {
	ID        string         `json:"id"`
	RequestID string         `json:"request_id"`
	Action    Action         `json:"action"`
	CrewID    *string        `json:"crew_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Details keys written by the Manager.
const (
	// DetailResponseSeconds is acceptedAt − createdAt on completion.
	DetailResponseSeconds = "response_seconds"
	// DetailCompletionSeconds is completedAt − acceptedAt on completion.
	DetailCompletionSeconds = "completion_seconds"
	// DetailClockFault marks a negative timing metric.
	DetailClockFault = "clock_fault"
	// DetailReason carries the cancellation reason.
	DetailReason = "reason"
)
