package api

import (
	"net/http"
	"strconv"

	"github.com/saltline/steward-core/internal/activity"
)

// handleListActivity returns the activity log, newest first.
//
// Query parameters:
//   - action: filter by action name
//   - entity_type: filter by entity type (request, device, location)
//   - entity_id: filter by specific entity
//   - limit, offset: pagination
func (s *Server) handleListActivity(w http.ResponseWriter, r *http.Request) {
	if s.activity == nil {
		writeInternalError(w, "activity log is not configured")
		return
	}

	filter := activity.Filter{
		Action:     r.URL.Query().Get("action"),
		EntityType: r.URL.Query().Get("entity_type"),
		EntityID:   r.URL.Query().Get("entity_id"),
	}

	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil || limit < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}
	if offsetParam := r.URL.Query().Get("offset"); offsetParam != "" {
		offset, err := strconv.Atoi(offsetParam)
		if err != nil || offset < 0 {
			writeBadRequest(w, "offset must be a non-negative integer")
			return
		}
		filter.Offset = offset
	}

	result, err := s.activity.List(r.Context(), filter)
	if err != nil {
		writeInternalError(w, "failed to list activity")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
