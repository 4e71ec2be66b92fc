package request

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/saltline/steward-core/internal/intent"
)

// Repository defines persistence for requests and their history.
//
// Transition methods (Assign, Accept, Complete, Cancel) are
// compare-and-set operations conditioned on the source state. They
// return ErrInvalidTransition when the request exists but is not in a
// permitted source state, and ErrRequestNotFound when it does not
// exist. Safe for concurrent invocation with the same request id.
type Repository interface {
	// Create inserts a new request.
	Create(ctx context.Context, req *Request) error

	// GetByID retrieves a request by id.
	// Returns ErrRequestNotFound if it does not exist.
	GetByID(ctx context.Context, id string) (*Request, error)

	// List retrieves requests matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]Request, error)

	// Assign sets assignment fields on a pending request without
	// changing its state.
	Assign(ctx context.Context, id, crewID, crewName string, at time.Time) error

	// Accept transitions pending → serving, setting acceptedAt and
	// overwriting any prior assignment (last acceptance wins).
	Accept(ctx context.Context, id, crewID, crewName string, at time.Time) error

	// Complete transitions serving → completed, setting completedAt.
	Complete(ctx context.Context, id string, at time.Time) error

	// Cancel transitions pending or serving → cancelled.
	Cancel(ctx context.Context, id, reason string, at time.Time) error

	// AddHistory appends a transition history record.
	AddHistory(ctx context.Context, entry *HistoryEntry) error

	// ListHistory retrieves a request's history, oldest first.
	ListHistory(ctx context.Context, requestID string) ([]HistoryEntry, error)
}

// ListFilter narrows List results. Zero value means "everything".
type ListFilter struct {
	Statuses   []Status
	LocationID string
	Limit      int
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const requestColumns = `id, category, priority, notes, voice_transcript, audio_ref,
	location_id, guest_id, source_device_id, status,
	assigned_crew_id, assigned_crew_name, cancel_reason,
	created_at, accepted_at, completed_at, cancelled_at, updated_at`

// Create inserts a new request.
func (r *SQLiteRepository) Create(ctx context.Context, req *Request) error {
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now
	if req.Status == "" {
		req.Status = StatusPending
	}

	query := `
		INSERT INTO service_requests (` + requestColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		req.ID,
		string(req.Category),
		string(req.Priority),
		req.Notes,
		nullableString(req.VoiceTranscript),
		nullableString(req.AudioRef),
		nullableString(req.LocationID),
		nullableString(req.GuestID),
		nullableString(req.SourceDeviceID),
		string(req.Status),
		nullableString(req.AssignedCrewID),
		nullableString(req.AssignedCrewName),
		nullableString(req.CancelReason),
		req.CreatedAt.Format(time.RFC3339),
		nullableTime(req.AcceptedAt),
		nullableTime(req.CompletedAt),
		nullableTime(req.CancelledAt),
		req.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting request: %w", err)
	}
	return nil
}

// GetByID retrieves a request by id.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Request, error) {
	query := `SELECT ` + requestColumns + ` FROM service_requests WHERE id = ?`

	req, err := scanRequest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("querying request: %w", err)
	}
	return req, nil
}

// List retrieves requests matching the filter, newest first.
func (r *SQLiteRepository) List(ctx context.Context, filter ListFilter) ([]Request, error) {
	query := `SELECT ` + requestColumns + ` FROM service_requests`
	var args []any
	var where []string

	if len(filter.Statuses) > 0 {
		placeholders := ""
		for i, s := range filter.Statuses {
			if i > 0 {
				placeholders += ", "
			}
			placeholders += "?"
			args = append(args, string(s))
		}
		where = append(where, "status IN ("+placeholders+")")
	}
	if filter.LocationID != "" {
		where = append(where, "location_id = ?")
		args = append(args, filter.LocationID)
	}

	for i, clause := range where {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying requests: %w", err)
	}
	defer rows.Close()

	var requests []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning request: %w", err)
		}
		requests = append(requests, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating requests: %w", err)
	}
	return requests, nil
}

// Assign sets assignment fields on a pending request.
func (r *SQLiteRepository) Assign(ctx context.Context, id, crewID, crewName string, at time.Time) error {
	query := `
		UPDATE service_requests
		SET assigned_crew_id = ?, assigned_crew_name = ?, updated_at = ?
		WHERE id = ? AND status = ?`

	result, err := r.db.ExecContext(ctx, query,
		crewID, crewName, at.UTC().Format(time.RFC3339), id, string(StatusPending))
	if err != nil {
		return fmt.Errorf("assigning request: %w", err)
	}
	return r.resolveCAS(ctx, result, id)
}

// Accept transitions pending → serving. Assignment is overwritten;
// last acceptance wins.
func (r *SQLiteRepository) Accept(ctx context.Context, id, crewID, crewName string, at time.Time) error {
	query := `
		UPDATE service_requests
		SET status = ?, accepted_at = ?, assigned_crew_id = ?, assigned_crew_name = ?, updated_at = ?
		WHERE id = ? AND status = ?`

	ts := at.UTC().Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx, query,
		string(StatusServing), ts, crewID, crewName, ts, id, string(StatusPending))
	if err != nil {
		return fmt.Errorf("accepting request: %w", err)
	}
	return r.resolveCAS(ctx, result, id)
}

// Complete transitions serving → completed.
func (r *SQLiteRepository) Complete(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE service_requests
		SET status = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`

	ts := at.UTC().Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx, query,
		string(StatusCompleted), ts, ts, id, string(StatusServing))
	if err != nil {
		return fmt.Errorf("completing request: %w", err)
	}
	return r.resolveCAS(ctx, result, id)
}

// Cancel transitions pending or serving → cancelled.
func (r *SQLiteRepository) Cancel(ctx context.Context, id, reason string, at time.Time) error {
	query := `
		UPDATE service_requests
		SET status = ?, cancelled_at = ?, cancel_reason = ?, updated_at = ?
		WHERE id = ? AND status IN (?, ?)`

	ts := at.UTC().Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx, query,
		string(StatusCancelled), ts, reason, ts, id,
		string(StatusPending), string(StatusServing))
	if err != nil {
		return fmt.Errorf("cancelling request: %w", err)
	}
	return r.resolveCAS(ctx, result, id)
}

// resolveCAS disambiguates a zero-rows-affected conditional update:
// the request is either missing (not found) or in the wrong state
// (conflict).
func (r *SQLiteRepository) resolveCAS(ctx context.Context, result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var count int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM service_requests WHERE id = ?", id,
	).Scan(&count); err != nil {
		return fmt.Errorf("checking request exists: %w", err)
	}
	if count == 0 {
		return ErrRequestNotFound
	}
	return ErrInvalidTransition
}

// AddHistory appends a transition history record.
func (r *SQLiteRepository) AddHistory(ctx context.Context, entry *HistoryEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var detailsJSON []byte
	if entry.Details != nil {
		var err error
		detailsJSON, err = json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshalling history details: %w", err)
		}
	}

	query := `
		INSERT INTO request_history (id, request_id, action, crew_id, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.RequestID,
		string(entry.Action),
		nullableString(entry.CrewID),
		nullableBytes(detailsJSON),
		entry.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting history entry: %w", err)
	}
	return nil
}

// ListHistory retrieves a request's history, oldest first.
func (r *SQLiteRepository) ListHistory(ctx context.Context, requestID string) ([]HistoryEntry, error) {
	query := `
		SELECT id, request_id, action, crew_id, details, created_at
		FROM request_history
		WHERE request_id = ?
		ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var entry HistoryEntry
		var crewID, detailsJSON sql.NullString
		var action, createdAt string

		if err := rows.Scan(&entry.ID, &entry.RequestID, &action, &crewID, &detailsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning history entry: %w", err)
		}

		entry.Action = Action(action)
		if crewID.Valid {
			entry.CrewID = &crewID.String
		}
		if detailsJSON.Valid && detailsJSON.String != "" {
			if err := json.Unmarshal([]byte(detailsJSON.String), &entry.Details); err != nil {
				return nil, fmt.Errorf("unmarshalling history details: %w", err)
			}
		}
		entry.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing history created_at: %w", err)
		}

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}
	return entries, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(scanner rowScanner) (*Request, error) {
	var req Request
	var voiceTranscript, audioRef sql.NullString
	var locationID, guestID, sourceDeviceID sql.NullString
	var assignedCrewID, assignedCrewName, cancelReason sql.NullString
	var acceptedAt, completedAt, cancelledAt sql.NullString
	var category, priority, status string
	var createdAt, updatedAt string

	err := scanner.Scan(
		&req.ID, &category, &priority, &req.Notes, &voiceTranscript, &audioRef,
		&locationID, &guestID, &sourceDeviceID, &status,
		&assignedCrewID, &assignedCrewName, &cancelReason,
		&createdAt, &acceptedAt, &completedAt, &cancelledAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	req.Category = intent.Category(category)
	req.Priority = intent.Priority(priority)
	req.Status = Status(status)

	assignStr := func(dst **string, src sql.NullString) {
		if src.Valid {
			s := src.String
			*dst = &s
		}
	}
	assignStr(&req.VoiceTranscript, voiceTranscript)
	assignStr(&req.AudioRef, audioRef)
	assignStr(&req.LocationID, locationID)
	assignStr(&req.GuestID, guestID)
	assignStr(&req.SourceDeviceID, sourceDeviceID)
	assignStr(&req.AssignedCrewID, assignedCrewID)
	assignStr(&req.AssignedCrewName, assignedCrewName)
	assignStr(&req.CancelReason, cancelReason)

	var parseErr error
	req.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	req.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	parseTimePtr := func(dst **time.Time, src sql.NullString) {
		if src.Valid {
			if t, err := time.Parse(time.RFC3339, src.String); err == nil {
				*dst = &t
			}
		}
	}
	parseTimePtr(&req.AcceptedAt, acceptedAt)
	parseTimePtr(&req.CompletedAt, completedAt)
	parseTimePtr(&req.CancelledAt, cancelledAt)

	return &req, nil
}

// nullableString returns a sql.NullString for optional string pointers.
func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullableTime returns a sql.NullString for optional time pointers.
func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

// nullableBytes returns a sql.NullString for optional byte slices.
func nullableBytes(b []byte) sql.NullString {
	if b == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
