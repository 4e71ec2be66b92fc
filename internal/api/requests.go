package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/saltline/steward-core/internal/intent"
	"github.com/saltline/steward-core/internal/request"
)

// handleListRequests returns service requests, newest first.
//
// Query parameters:
//   - status: comma-separated statuses (pending,serving,completed,cancelled)
//   - location_id: filter by location
//   - limit: maximum number of results
func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	filter := request.ListFilter{
		LocationID: r.URL.Query().Get("location_id"),
	}

	if statusParam := r.URL.Query().Get("status"); statusParam != "" {
		for _, raw := range strings.Split(statusParam, ",") {
			status := request.Status(strings.TrimSpace(raw))
			switch status {
			case request.StatusPending, request.StatusServing,
				request.StatusCompleted, request.StatusCancelled:
				filter.Statuses = append(filter.Statuses, status)
			default:
				writeBadRequest(w, "unknown status: "+string(status))
				return
			}
		}
	}

	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil || limit < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}

	requests, err := s.requests.List(r.Context(), filter)
	if err != nil {
		writeInternalError(w, "failed to list requests")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": requests, "count": len(requests)})
}

// createRequestBody is the console payload for manual request creation.
type createRequestBody struct {
	Category   string `json:"category"`
	Priority   string `json:"priority"`
	Notes      string `json:"notes"`
	LocationID string `json:"location_id"`
	GuestID    string `json:"guest_id"`
}

// handleCreateRequest opens a request on behalf of the operator console,
// e.g. a phoned-in order that never touched a call button.
func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if body.Category == "" {
		writeBadRequest(w, "category is required")
		return
	}

	priority := intent.Priority(body.Priority)
	if priority == "" {
		priority = intent.PriorityNormal
	}

	req, err := s.requests.Create(r.Context(), request.CreateParams{
		Category:   intent.Category(body.Category),
		Priority:   priority,
		Notes:      body.Notes,
		LocationID: body.LocationID,
		GuestID:    body.GuestID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// handleGetRequest returns a single request by ID.
func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := s.requests.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// handleRequestHistory returns a request's audit trail, oldest first.
func (s *Server) handleRequestHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// Surface 404 for unknown requests rather than an empty history.
	if _, err := s.requests.Get(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	history, err := s.requests.History(r.Context(), id)
	if err != nil {
		writeInternalError(w, "failed to load request history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": history, "count": len(history)})
}

// crewBody carries a crew member reference for assign/accept.
type crewBody struct {
	CrewID string `json:"crew_id"`
}

// handleAssignRequest dispatches a pending request to a crew member.
func (s *Server) handleAssignRequest(w http.ResponseWriter, r *http.Request) {
	var body crewBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	req, err := s.requests.Assign(r.Context(), chi.URLParam(r, "id"), body.CrewID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// handleAcceptRequest marks a pending request as being served.
func (s *Server) handleAcceptRequest(w http.ResponseWriter, r *http.Request) {
	var body crewBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	req, err := s.requests.Accept(r.Context(), chi.URLParam(r, "id"), body.CrewID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// handleCompleteRequest closes a serving request.
func (s *Server) handleCompleteRequest(w http.ResponseWriter, r *http.Request) {
	req, err := s.requests.Complete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// cancelBody carries an optional cancellation reason.
type cancelBody struct {
	Reason string `json:"reason"`
}

// handleCancelRequest cancels a pending or serving request.
func (s *Server) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	var body cancelBody
	// Body is optional; an empty or absent body cancels without a reason.
	if r.Body != nil {
		//nolint:errcheck // Absent body is fine
		json.NewDecoder(r.Body).Decode(&body)
	}

	req, err := s.requests.Cancel(r.Context(), chi.URLParam(r, "id"), body.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}
