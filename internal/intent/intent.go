package intent

// Button identifies which physical button on a device was pressed.
type Button string

// Button constants. Main is the large central button; aux buttons are
// the smaller fixed-function ones around it.
const (
	ButtonMain Button = "main"
	ButtonAux1 Button = "aux1"
	ButtonAux2 Button = "aux2"
	ButtonAux3 Button = "aux3"
	ButtonAux4 Button = "aux4"
	ButtonAux5 Button = "aux5"
)

// Gesture identifies how the button was actuated.
type Gesture string

// Gesture constants.
const (
	GestureSingle      Gesture = "single"
	GestureDouble      Gesture = "double"
	GestureDoubleTouch Gesture = "double-touch"
	GestureLongPress   Gesture = "long-press"
	GestureShake       Gesture = "shake"
)

// Category is the classified meaning of a device event.
type Category string

// Category constants.
const (
	CategoryNormalCall  Category = "normal-call"
	CategoryUrgentCall  Category = "urgent-call"
	CategoryEmergency   Category = "emergency"
	CategoryVoiceNote   Category = "voice-note"
	CategoryLights      Category = "lights"
	CategoryPrepareFood Category = "prepare-food"
	CategoryBringDrinks Category = "bring-drinks"
	CategoryDND         Category = "dnd"
	CategoryDNDToggle   Category = "dnd-toggle"
)

// Priority ranks how urgently crew should respond.
type Priority string

// Priority constants, in ascending order of urgency.
const (
	PriorityNormal    Priority = "normal"
	PriorityUrgent    Priority = "urgent"
	PriorityEmergency Priority = "emergency"
)

// Event is the raw input to derivation: what the device reported.
type Event struct {
	Button     Button
	Gesture    Gesture
	DeviceKind string

	// Voice payload, present on long-press events from devices with a
	// microphone. Attached to the intent verbatim.
	VoiceTranscript string
	AudioRef        string
}

// Intent is the classified output: what the press means.
// Intents are ephemeral; they become Service Requests (or a side
// effect) downstream and are never persisted themselves.
type Intent struct {
	Category Category
	Priority Priority

	// VoiceTranscript and AudioRef carry the voice-note payload.
	VoiceTranscript string
	AudioRef        string
}

// SideEffect reports whether this intent is a side-effecting command
// rather than a service request. Side-effect intents must short-circuit
// before request creation.
func (i Intent) SideEffect() bool {
	return i.Category == CategoryDNDToggle
}

// auxCategories maps fixed-function aux buttons to their categories.
// aux1 is absent: it is the DND toggle side effect, handled before
// this table.
var auxCategories = map[Button]Category{
	ButtonAux2: CategoryLights,
	ButtonAux3: CategoryPrepareFood,
	ButtonAux4: CategoryBringDrinks,
	ButtonAux5: CategoryDND,
}

// Derive classifies a raw device event.
//
// The rules are order-sensitive and evaluated top to bottom:
//
//  1. shake is the panic gesture and beats everything
//  2. long-press is a voice note on any button
//  3. aux1 is the DND toggle side effect, never a request
//  4. aux2..aux5 have fixed category mappings
//  5. the main button falls through to the gesture table
func Derive(ev Event) Intent {
	if ev.Gesture == GestureShake {
		return Intent{Category: CategoryEmergency, Priority: PriorityEmergency}
	}

	if ev.Gesture == GestureLongPress {
		return Intent{
			Category:        CategoryVoiceNote,
			Priority:        PriorityNormal,
			VoiceTranscript: ev.VoiceTranscript,
			AudioRef:        ev.AudioRef,
		}
	}

	if ev.Button == ButtonAux1 {
		return Intent{Category: CategoryDNDToggle, Priority: PriorityNormal}
	}

	if category, ok := auxCategories[ev.Button]; ok {
		return Intent{Category: category, Priority: PriorityNormal}
	}

	switch ev.Gesture {
	case GestureDouble:
		return Intent{Category: CategoryUrgentCall, Priority: PriorityUrgent}
	case GestureDoubleTouch:
		return Intent{Category: CategoryEmergency, Priority: PriorityUrgent}
	default:
		return Intent{Category: CategoryNormalCall, Priority: PriorityNormal}
	}
}
