package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for device persistence operations.
// This abstraction allows for different implementations (SQLite, mock)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByID retrieves a device by its external identifier.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, id string) (*Device, error)

	// List retrieves all devices.
	List(ctx context.Context) ([]Device, error)

	// ListByKind retrieves all devices of a specific kind.
	ListByKind(ctx context.Context, kind Kind) ([]Device, error)

	// ListByLocation retrieves all devices bound to a location.
	ListByLocation(ctx context.Context, locationID string) ([]Device, error)

	// ListByCrewMember retrieves all devices bound to a crew member.
	ListByCrewMember(ctx context.Context, crewMemberID string) ([]Device, error)

	// Ensure performs an atomic insert-or-update keyed by identifier.
	// Absent devices are created from hints with status online; present
	// devices have non-empty hint fields merged and last-seen refreshed.
	// Safe for concurrent invocation with the same identifier.
	Ensure(ctx context.Context, id string, hints Hints) (*Device, error)

	// Create inserts a new device.
	// Returns ErrDeviceExists if the identifier is already taken.
	Create(ctx context.Context, device *Device) error

	// Update modifies an existing device.
	// Returns ErrDeviceNotFound if the device does not exist.
	Update(ctx context.Context, device *Device) error

	// Delete removes a device by identifier. Operator action only;
	// the ingestion pipeline never calls this.
	Delete(ctx context.Context, id string) error

	// UpdateTelemetry updates only the supplied health fields.
	// Returns ErrDeviceNotFound if the device does not exist.
	UpdateTelemetry(ctx context.Context, id string, battery, signal *int, status Status) error

	// BindLocation re-binds a device to a location (nil unbinds).
	BindLocation(ctx context.Context, id string, locationID *string) error

	// BindCrewMember re-binds a device to a crew member (nil unbinds).
	BindCrewMember(ctx context.Context, id string, crewMemberID *string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const deviceColumns = `id, name, kind, location_id, crew_member_id, status,
	battery_level, signal_strength, last_seen_at,
	firmware_version, hardware_version, network_address,
	config, created_at, updated_at`

// GetByID retrieves a device by its external identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	device, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}
	return device, nil
}

// List retrieves all devices.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices ORDER BY name`
	return r.queryDevices(ctx, query)
}

// ListByKind retrieves all devices of a specific kind.
func (r *SQLiteRepository) ListByKind(ctx context.Context, kind Kind) ([]Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE kind = ? ORDER BY name`
	return r.queryDevices(ctx, query, string(kind))
}

// ListByLocation retrieves all devices bound to a location.
func (r *SQLiteRepository) ListByLocation(ctx context.Context, locationID string) ([]Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE location_id = ? ORDER BY name`
	return r.queryDevices(ctx, query, locationID)
}

// ListByCrewMember retrieves all devices bound to a crew member.
func (r *SQLiteRepository) ListByCrewMember(ctx context.Context, crewMemberID string) ([]Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE crew_member_id = ? ORDER BY name`
	return r.queryDevices(ctx, query, crewMemberID)
}

// Ensure performs an atomic insert-or-update keyed by identifier.
//
// The upsert is a single statement so two first contacts racing on the
// same identifier cannot create duplicates. Hint fields only overwrite
// when supplied; existing data is never blanked by a sparse message.
func (r *SQLiteRepository) Ensure(ctx context.Context, id string, hints Hints) (*Device, error) {
	if id == "" {
		return nil, ErrIdentifierRequired
	}

	name := hints.Name
	if name == "" {
		name = id
	}
	kind := hints.Kind
	if kind == "" {
		kind = KindButton
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}

	var configJSON []byte
	if hints.Config != nil {
		var err error
		configJSON, err = json.Marshal(hints.Config)
		if err != nil {
			return nil, fmt.Errorf("marshalling config: %w", err)
		}
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO devices (
			id, name, kind, location_id, crew_member_id, status,
			battery_level, signal_strength, last_seen_at,
			firmware_version, hardware_version, network_address,
			config, created_at, updated_at
		) VALUES (?, ?, ?, ?, NULL, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = CASE WHEN excluded.name != excluded.id THEN excluded.name ELSE devices.name END,
			kind = devices.kind,
			location_id = COALESCE(excluded.location_id, devices.location_id),
			status = ?,
			battery_level = COALESCE(excluded.battery_level, devices.battery_level),
			signal_strength = COALESCE(excluded.signal_strength, devices.signal_strength),
			last_seen_at = excluded.last_seen_at,
			firmware_version = COALESCE(excluded.firmware_version, devices.firmware_version),
			hardware_version = COALESCE(excluded.hardware_version, devices.hardware_version),
			network_address = COALESCE(excluded.network_address, devices.network_address),
			config = COALESCE(excluded.config, devices.config),
			updated_at = excluded.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		id,
		name,
		string(kind),
		nullableStr(hints.LocationID),
		string(StatusOnline),
		nullableIntPtr(hints.BatteryLevel),
		nullableIntPtr(hints.SignalStrength),
		now.Format(time.RFC3339),
		nullableStr(hints.FirmwareVersion),
		nullableStr(hints.HardwareVersion),
		nullableStr(hints.NetworkAddress),
		nullableBytes(configJSON),
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
		string(StatusOnline),
	)
	if err != nil {
		return nil, fmt.Errorf("upserting device: %w", err)
	}

	return r.GetByID(ctx, id)
}

// Create inserts a new device.
func (r *SQLiteRepository) Create(ctx context.Context, device *Device) error {
	if device.ID == "" {
		return ErrIdentifierRequired
	}
	if !device.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, device.Kind)
	}

	var configJSON []byte
	if device.Config != nil {
		var err error
		configJSON, err = json.Marshal(device.Config)
		if err != nil {
			return fmt.Errorf("marshalling config: %w", err)
		}
	}

	now := time.Now().UTC()
	if device.CreatedAt.IsZero() {
		device.CreatedAt = now
	}
	device.UpdatedAt = now
	if device.Status == "" {
		device.Status = StatusUnknown
	}

	query := `
		INSERT INTO devices (
			id, name, kind, location_id, crew_member_id, status,
			battery_level, signal_strength, last_seen_at,
			firmware_version, hardware_version, network_address,
			config, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		device.ID,
		device.Name,
		string(device.Kind),
		nullableString(device.LocationID),
		nullableString(device.CrewMemberID),
		string(device.Status),
		nullableIntPtr(device.BatteryLevel),
		nullableIntPtr(device.SignalStrength),
		nullableTime(device.LastSeenAt),
		nullableString(device.FirmwareVersion),
		nullableString(device.HardwareVersion),
		nullableString(device.NetworkAddress),
		nullableBytes(configJSON),
		device.CreatedAt.Format(time.RFC3339),
		device.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("inserting device: %w", err)
	}

	return nil
}

// Update modifies an existing device.
func (r *SQLiteRepository) Update(ctx context.Context, device *Device) error {
	var configJSON []byte
	if device.Config != nil {
		var err error
		configJSON, err = json.Marshal(device.Config)
		if err != nil {
			return fmt.Errorf("marshalling config: %w", err)
		}
	}

	device.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE devices SET
			name = ?, kind = ?, location_id = ?, crew_member_id = ?, status = ?,
			battery_level = ?, signal_strength = ?, last_seen_at = ?,
			firmware_version = ?, hardware_version = ?, network_address = ?,
			config = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		device.Name,
		string(device.Kind),
		nullableString(device.LocationID),
		nullableString(device.CrewMemberID),
		string(device.Status),
		nullableIntPtr(device.BatteryLevel),
		nullableIntPtr(device.SignalStrength),
		nullableTime(device.LastSeenAt),
		nullableString(device.FirmwareVersion),
		nullableString(device.HardwareVersion),
		nullableString(device.NetworkAddress),
		nullableBytes(configJSON),
		device.UpdatedAt.Format(time.RFC3339),
		device.ID,
	)
	if err != nil {
		return fmt.Errorf("updating device: %w", err)
	}

	return requireRow(result)
}

// Delete removes a device by identifier.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM devices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	return requireRow(result)
}

// UpdateTelemetry updates only the supplied health fields.
func (r *SQLiteRepository) UpdateTelemetry(ctx context.Context, id string, battery, signal *int, status Status) error {
	now := time.Now().UTC()
	query := `
		UPDATE devices SET
			battery_level = COALESCE(?, battery_level),
			signal_strength = COALESCE(?, signal_strength),
			status = CASE WHEN ? != '' THEN ? ELSE status END,
			last_seen_at = ?,
			updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		nullableIntPtr(battery),
		nullableIntPtr(signal),
		string(status),
		string(status),
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("updating device telemetry: %w", err)
	}
	return requireRow(result)
}

// BindLocation re-binds a device to a location.
func (r *SQLiteRepository) BindLocation(ctx context.Context, id string, locationID *string) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		"UPDATE devices SET location_id = ?, updated_at = ? WHERE id = ?",
		nullableString(locationID),
		now.Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("binding device location: %w", err)
	}
	return requireRow(result)
}

// BindCrewMember re-binds a device to a crew member.
func (r *SQLiteRepository) BindCrewMember(ctx context.Context, id string, crewMemberID *string) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		"UPDATE devices SET crew_member_id = ?, updated_at = ? WHERE id = ?",
		nullableString(crewMemberID),
		now.Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("binding device crew member: %w", err)
	}
	return requireRow(result)
}

// queryDevices executes a query and returns a slice of devices.
func (r *SQLiteRepository) queryDevices(ctx context.Context, query string, args ...any) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *device)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}

	return devices, nil
}

// requireRow converts a zero-rows-affected result into ErrDeviceNotFound.
func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDevice scans a row or rows result into a Device.
func scanDevice(scanner rowScanner) (*Device, error) {
	var d Device
	var locationID, crewMemberID sql.NullString
	var firmwareVersion, hardwareVersion, networkAddress sql.NullString
	var batteryLevel, signalStrength sql.NullInt64
	var lastSeenAt, configJSON sql.NullString
	var kind, status string
	var createdAt, updatedAt string

	err := scanner.Scan(
		&d.ID,
		&d.Name,
		&kind,
		&locationID,
		&crewMemberID,
		&status,
		&batteryLevel,
		&signalStrength,
		&lastSeenAt,
		&firmwareVersion,
		&hardwareVersion,
		&networkAddress,
		&configJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.Kind = Kind(kind)
	d.Status = Status(status)

	if locationID.Valid {
		d.LocationID = &locationID.String
	}
	if crewMemberID.Valid {
		d.CrewMemberID = &crewMemberID.String
	}
	if firmwareVersion.Valid {
		d.FirmwareVersion = &firmwareVersion.String
	}
	if hardwareVersion.Valid {
		d.HardwareVersion = &hardwareVersion.String
	}
	if networkAddress.Valid {
		d.NetworkAddress = &networkAddress.String
	}
	if batteryLevel.Valid {
		v := int(batteryLevel.Int64)
		d.BatteryLevel = &v
	}
	if signalStrength.Valid {
		v := int(signalStrength.Int64)
		d.SignalStrength = &v
	}

	if lastSeenAt.Valid {
		t, err := time.Parse(time.RFC3339, lastSeenAt.String)
		if err == nil {
			d.LastSeenAt = &t
		}
	}

	var parseErr error
	d.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	d.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	if configJSON.Valid && configJSON.String != "" {
		if err := json.Unmarshal([]byte(configJSON.String), &d.Config); err != nil {
			return nil, fmt.Errorf("unmarshalling config: %w", err)
		}
	}

	return &d, nil
}

// nullableString returns a sql.NullString for optional string pointers.
func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullableStr returns a sql.NullString for plain strings where empty
// means "not supplied".
func nullableStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullableIntPtr returns a sql.NullInt64 for optional int pointers.
func nullableIntPtr(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

// nullableTime returns a sql.NullString for optional time pointers (as RFC3339 strings).
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

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
