package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleListLocations returns all vessel locations in sort order.
func (s *Server) handleListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := s.directory.ListLocations(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list locations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"locations": locations, "count": len(locations)})
}

// handleGetLocation returns a single location by ID.
func (s *Server) handleGetLocation(w http.ResponseWriter, r *http.Request) {
	loc, err := s.directory.GetLocation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

// handleToggleDND flips a location's do-not-disturb flag and mirrors it
// onto the guests staying there. Broadcasts the change to consoles.
func (s *Server) handleToggleDND(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	value, err := s.directory.ToggleDoNotDisturb(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.Broadcast("dnd_changed", map[string]any{
			"location_id":    id,
			"do_not_disturb": value,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"location_id":    id,
		"do_not_disturb": value,
	})
}

// handleListCrew returns the crew roster.
func (s *Server) handleListCrew(w http.ResponseWriter, r *http.Request) {
	crew, err := s.directory.ListCrew(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list crew")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"crew": crew, "count": len(crew)})
}

// handleOnDutyCrew returns crew members currently on duty.
func (s *Server) handleOnDutyCrew(w http.ResponseWriter, r *http.Request) {
	crew, err := s.directory.OnDutyCrew(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list on-duty crew")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"crew": crew, "count": len(crew)})
}
