package notify

import (
	"context"

	"github.com/saltline/steward-core/internal/intent"
	"github.com/saltline/steward-core/internal/request"
)

// Notification is the payload delivered to a crew wearable.
type Notification struct {
	RequestID    string `json:"request_id"`
	Title        string `json:"title"`
	Message      string `json:"message"`
	LocationName string `json:"location,omitempty"`
	GuestName    string `json:"guest,omitempty"`
	Priority     string `json:"priority"`
	Emergency    bool   `json:"emergency"`

	// Voice payload, forwarded for voice-note requests.
	VoiceTranscript string `json:"voice_transcript,omitempty"`
	AudioRef        string `json:"audio_ref,omitempty"`

	// MedicalContext is attached only when the request is emergency
	// priority and a guest is known.
	MedicalContext string `json:"medical_context,omitempty"`
}

// Command is the acknowledgement payload sent back to an originating
// device so its LED/sound feedback tracks server state.
type Command struct {
	Command   string `json:"command"`
	RequestID string `json:"request_id,omitempty"`
}

// ServiceEvent is the summary broadcast on the service topics for
// other subsystems (activity log, companion apps).
type ServiceEvent struct {
	RequestID  string `json:"request_id"`
	Action     string `json:"action"`
	Category   string `json:"category"`
	Priority   string `json:"priority"`
	Status     string `json:"status"`
	LocationID string `json:"location_id,omitempty"`
	GuestID    string `json:"guest_id,omitempty"`
	CrewName   string `json:"crew_name,omitempty"`
}

// emergencyMarker distinguishes emergency titles on small wearable
// screens.
const emergencyMarker = "!! EMERGENCY !!"

// categoryTitles maps request categories to wearable titles.
var categoryTitles = map[intent.Category]string{
	intent.CategoryNormalCall:  "Service Call",
	intent.CategoryUrgentCall:  "Urgent Call",
	intent.CategoryEmergency:   emergencyMarker,
	intent.CategoryVoiceNote:   "Voice Note",
	intent.CategoryLights:      "Lights Request",
	intent.CategoryPrepareFood: "Food Request",
	intent.CategoryBringDrinks: "Drinks Request",
	intent.CategoryDND:         "Do Not Disturb",
}

// buildNotification assembles the per-recipient payload. Location and
// guest names are resolved best-effort; a missing directory entry just
// leaves the field empty.
func (r *Router) buildNotification(ctx context.Context, req *request.Request) Notification {
	n := Notification{
		RequestID: req.ID,
		Priority:  string(req.Priority),
		Emergency: req.Priority == intent.PriorityEmergency,
	}

	title, ok := categoryTitles[req.Category]
	if !ok {
		title = "Service Call"
	}
	n.Title = title

	if req.LocationID != nil {
		if loc, err := r.dir.GetLocation(ctx, *req.LocationID); err == nil {
			n.LocationName = loc.Name
		}
	}

	if req.GuestID != nil {
		if guest, err := r.dir.GetGuest(ctx, *req.GuestID); err == nil {
			n.GuestName = guest.DisplayName()
			if n.Emergency && guest.MedicalNotes != nil {
				n.MedicalContext = *guest.MedicalNotes
			}
		}
	}

	if req.VoiceTranscript != nil {
		n.VoiceTranscript = *req.VoiceTranscript
	}
	if req.AudioRef != nil {
		n.AudioRef = *req.AudioRef
	}

	n.Message = buildMessage(n)
	return n
}

// buildMessage composes the human line under the title.
func buildMessage(n Notification) string {
	who := n.GuestName
	if who == "" {
		who = "A guest"
	}
	where := n.LocationName
	if where == "" {
		where = "an unknown location"
	}

	switch {
	case n.Emergency:
		return emergencyMarker + " " + who + " needs help at " + where
	case n.VoiceTranscript != "":
		return who + " at " + where + ": " + n.VoiceTranscript
	default:
		return who + " at " + where + " is calling for service"
	}
}
