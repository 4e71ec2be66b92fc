package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/saltline/steward-core/internal/device"
)

// handleListDevices returns all devices, with optional query filters.
//
// Query parameters:
//   - kind: filter by device kind (button, wearable, repeater, companion_app)
//   - location_id: filter by bound location
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.registry.ListDevices(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list devices")
		return
	}

	kind := r.URL.Query().Get("kind")
	locationID := r.URL.Query().Get("location_id")
	if kind != "" && !device.Kind(kind).Valid() {
		writeBadRequest(w, "unknown device kind: "+kind)
		return
	}

	filtered := devices[:0]
	for _, d := range devices {
		if kind != "" && string(d.Kind) != kind {
			continue
		}
		if locationID != "" && (d.LocationID == nil || *d.LocationID != locationID) {
			continue
		}
		filtered = append(filtered, d)
	}

	writeJSON(w, http.StatusOK, map[string]any{"devices": filtered, "count": len(filtered)})
}

// handleGetDevice returns a single device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	dev, err := s.registry.GetDevice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// handleCreateDevice registers a device explicitly from the console.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var dev device.Device
	if err := json.NewDecoder(r.Body).Decode(&dev); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if dev.ID == "" {
		writeBadRequest(w, "device id is required")
		return
	}
	if !dev.Kind.Valid() {
		writeBadRequest(w, "unknown device kind: "+string(dev.Kind))
		return
	}

	if err := s.registry.CreateDevice(r.Context(), &dev); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dev)
}

// handleUpdateDevice applies a partial update to a device.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dev, err := s.registry.GetDevice(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// Decode over the existing device so absent fields keep their values.
	if err := json.NewDecoder(r.Body).Decode(dev); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	dev.ID = id // immutable

	if !dev.Kind.Valid() {
		writeBadRequest(w, "unknown device kind: "+string(dev.Kind))
		return
	}

	if err := s.registry.UpdateDevice(r.Context(), dev); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// handleDeleteDevice removes a device from the registry.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.DeleteDevice(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleBeginPairing opens a pairing window for a device identifier.
// A device registering within the window receives a "paired" command.
func (s *Server) handleBeginPairing(w http.ResponseWriter, r *http.Request) {
	if s.pairing == nil {
		writeInternalError(w, "pairing is not configured")
		return
	}
	id := chi.URLParam(r, "id")
	s.pairing.Begin(id)
	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": id,
		"pairing":   true,
	})
}

// handleCancelPairing closes a pairing window early.
func (s *Server) handleCancelPairing(w http.ResponseWriter, r *http.Request) {
	if s.pairing == nil {
		writeInternalError(w, "pairing is not configured")
		return
	}
	id := chi.URLParam(r, "id")
	cancelled := s.pairing.Cancel(id)
	if cancelled && s.commands != nil {
		s.commands.PublishCommand(id, "pairing-cancelled")
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": id,
		"cancelled": cancelled,
	})
}

// bindLocationBody carries a location binding; null unbinds.
type bindLocationBody struct {
	LocationID *string `json:"location_id"`
}

// handleBindLocation re-binds a device to a location.
func (s *Server) handleBindLocation(w http.ResponseWriter, r *http.Request) {
	var body bindLocationBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.registry.BindLocation(r.Context(), chi.URLParam(r, "id"), body.LocationID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// bindCrewBody carries a crew binding; null unbinds.
type bindCrewBody struct {
	CrewMemberID *string `json:"crew_member_id"`
}

// handleBindCrewMember re-binds a wearable to a crew member.
func (s *Server) handleBindCrewMember(w http.ResponseWriter, r *http.Request) {
	var body bindCrewBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.registry.BindCrewMember(r.Context(), chi.URLParam(r, "id"), body.CrewMemberID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
