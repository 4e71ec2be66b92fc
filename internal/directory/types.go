package directory

import "time"

// Location represents a serviceable space on the vessel: a cabin,
// suite, deck area or common room.
type Location struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Deck         string    `json:"deck,omitempty"`
	Kind         string    `json:"kind"`
	DoNotDisturb bool      `json:"do_not_disturb"`
	SortOrder    int       `json:"sort_order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Guest represents a guest record. Guests are bound to at most one
// location at a time; Onboard distinguishes current guests from past
// charters kept for history.
type Guest struct {
	ID            string     `json:"id"`
	LocationID    *string    `json:"location_id,omitempty"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	PreferredName *string    `json:"preferred_name,omitempty"`
	Onboard       bool       `json:"onboard"`
	DoNotDisturb  bool       `json:"do_not_disturb"`
	MedicalNotes  *string    `json:"medical_notes,omitempty"`
	DietaryNotes  *string    `json:"dietary_notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DepartedAt    *time.Time `json:"departed_at,omitempty"`
}

// DisplayName returns the name to show on wearables and the console.
func (g *Guest) DisplayName() string {
	if g.PreferredName != nil && *g.PreferredName != "" {
		return *g.PreferredName
	}
	if g.FirstName == "" {
		return g.LastName
	}
	if g.LastName == "" {
		return g.FirstName
	}
	return g.FirstName + " " + g.LastName
}

// CrewMember represents a crew roster entry. OnDuty is owned by the
// rostering subsystem and read-only here.
type CrewMember struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      string    `json:"role,omitempty"`
	OnDuty    bool      `json:"on_duty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName returns the crew member's full name.
func (c *CrewMember) DisplayName() string {
	if c.FirstName == "" {
		return c.LastName
	}
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}
