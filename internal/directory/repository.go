package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository defines the directory lookups the core consumes.
type Repository interface {
	// GetLocation retrieves a location by id.
	// Returns ErrLocationNotFound if it does not exist.
	GetLocation(ctx context.Context, id string) (*Location, error)

	// ListLocations retrieves all locations in sort order.
	ListLocations(ctx context.Context) ([]Location, error)

	// GetGuest retrieves a guest by id.
	// Returns ErrGuestNotFound if it does not exist.
	GetGuest(ctx context.Context, id string) (*Guest, error)

	// GuestAtLocation resolves the guest a request at a location should
	// attach to: the most recently created onboard guest bound there.
	// Returns ErrGuestNotFound when the location has no onboard guest;
	// callers treat that as "anonymous request", not a failure.
	GuestAtLocation(ctx context.Context, locationID string) (*Guest, error)

	// GetCrewMember retrieves a crew member by id.
	// Returns ErrCrewMemberNotFound if it does not exist.
	GetCrewMember(ctx context.Context, id string) (*CrewMember, error)

	// ListCrew retrieves the full crew roster.
	ListCrew(ctx context.Context) ([]CrewMember, error)

	// OnDutyCrew retrieves crew members currently on duty.
	OnDutyCrew(ctx context.Context) ([]CrewMember, error)

	// ToggleDoNotDisturb inverts a location's do-not-disturb flag and
	// mirrors the new value onto its onboard guests, in one transaction.
	// Returns the new flag value.
	ToggleDoNotDisturb(ctx context.Context, locationID string) (bool, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const locationColumns = `id, name, deck, kind, do_not_disturb, sort_order, created_at, updated_at`

const guestColumns = `id, location_id, first_name, last_name, preferred_name,
	onboard, do_not_disturb, medical_notes, dietary_notes,
	created_at, updated_at, departed_at`

const crewColumns = `id, first_name, last_name, role, on_duty, created_at, updated_at`

// GetLocation retrieves a location by id.
func (r *SQLiteRepository) GetLocation(ctx context.Context, id string) (*Location, error) {
	query := `SELECT ` + locationColumns + ` FROM locations WHERE id = ?`

	loc, err := scanLocation(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLocationNotFound
		}
		return nil, fmt.Errorf("querying location: %w", err)
	}
	return loc, nil
}

// ListLocations retrieves all locations in sort order.
func (r *SQLiteRepository) ListLocations(ctx context.Context) ([]Location, error) {
	query := `SELECT ` + locationColumns + ` FROM locations ORDER BY sort_order, name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying locations: %w", err)
	}
	defer rows.Close()

	var locations []Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}
		locations = append(locations, *loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating locations: %w", err)
	}
	return locations, nil
}

// GetGuest retrieves a guest by id.
func (r *SQLiteRepository) GetGuest(ctx context.Context, id string) (*Guest, error) {
	query := `SELECT ` + guestColumns + ` FROM guests WHERE id = ?`

	guest, err := scanGuest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGuestNotFound
		}
		return nil, fmt.Errorf("querying guest: %w", err)
	}
	return guest, nil
}

// GuestAtLocation resolves the most recently created onboard guest
// bound to a location.
func (r *SQLiteRepository) GuestAtLocation(ctx context.Context, locationID string) (*Guest, error) {
	query := `SELECT ` + guestColumns + `
		FROM guests
		WHERE location_id = ? AND onboard = 1
		ORDER BY created_at DESC
		LIMIT 1`

	guest, err := scanGuest(r.db.QueryRowContext(ctx, query, locationID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGuestNotFound
		}
		return nil, fmt.Errorf("querying guest at location: %w", err)
	}
	return guest, nil
}

// GetCrewMember retrieves a crew member by id.
func (r *SQLiteRepository) GetCrewMember(ctx context.Context, id string) (*CrewMember, error) {
	query := `SELECT ` + crewColumns + ` FROM crew_members WHERE id = ?`

	crew, err := scanCrewMember(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCrewMemberNotFound
		}
		return nil, fmt.Errorf("querying crew member: %w", err)
	}
	return crew, nil
}

// ListCrew retrieves the full crew roster.
func (r *SQLiteRepository) ListCrew(ctx context.Context) ([]CrewMember, error) {
	query := `SELECT ` + crewColumns + ` FROM crew_members ORDER BY last_name, first_name`
	return r.queryCrew(ctx, query)
}

// OnDutyCrew retrieves crew members currently on duty.
func (r *SQLiteRepository) OnDutyCrew(ctx context.Context) ([]CrewMember, error) {
	query := `SELECT ` + crewColumns + ` FROM crew_members WHERE on_duty = 1 ORDER BY last_name, first_name`
	return r.queryCrew(ctx, query)
}

// ToggleDoNotDisturb inverts a location's do-not-disturb flag and
// mirrors the new value onto its onboard guests atomically.
func (r *SQLiteRepository) ToggleDoNotDisturb(ctx context.Context, locationID string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning dnd transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	now := time.Now().UTC().Format(time.RFC3339)

	result, err := tx.ExecContext(ctx,
		`UPDATE locations SET do_not_disturb = NOT do_not_disturb, updated_at = ? WHERE id = ?`,
		now, locationID,
	)
	if err != nil {
		return false, fmt.Errorf("toggling location dnd: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return false, ErrLocationNotFound
	}

	var newValue bool
	if err := tx.QueryRowContext(ctx,
		`SELECT do_not_disturb FROM locations WHERE id = ?`, locationID,
	).Scan(&newValue); err != nil {
		return false, fmt.Errorf("reading toggled dnd: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE guests SET do_not_disturb = ?, updated_at = ? WHERE location_id = ? AND onboard = 1`,
		newValue, now, locationID,
	); err != nil {
		return false, fmt.Errorf("mirroring dnd to guests: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing dnd toggle: %w", err)
	}

	return newValue, nil
}

func (r *SQLiteRepository) queryCrew(ctx context.Context, query string, args ...any) ([]CrewMember, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying crew: %w", err)
	}
	defer rows.Close()

	var crew []CrewMember
	for rows.Next() {
		member, err := scanCrewMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning crew member: %w", err)
		}
		crew = append(crew, *member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating crew: %w", err)
	}
	return crew, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanLocation(scanner rowScanner) (*Location, error) {
	var loc Location
	var deck sql.NullString
	var createdAt, updatedAt string

	err := scanner.Scan(
		&loc.ID, &loc.Name, &deck, &loc.Kind,
		&loc.DoNotDisturb, &loc.SortOrder,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if deck.Valid {
		loc.Deck = deck.String
	}

	var parseErr error
	loc.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	loc.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}
	return &loc, nil
}

func scanGuest(scanner rowScanner) (*Guest, error) {
	var g Guest
	var locationID, preferredName, medicalNotes, dietaryNotes sql.NullString
	var departedAt sql.NullString
	var createdAt, updatedAt string

	err := scanner.Scan(
		&g.ID, &locationID, &g.FirstName, &g.LastName, &preferredName,
		&g.Onboard, &g.DoNotDisturb, &medicalNotes, &dietaryNotes,
		&createdAt, &updatedAt, &departedAt,
	)
	if err != nil {
		return nil, err
	}

	if locationID.Valid {
		g.LocationID = &locationID.String
	}
	if preferredName.Valid {
		g.PreferredName = &preferredName.String
	}
	if medicalNotes.Valid {
		g.MedicalNotes = &medicalNotes.String
	}
	if dietaryNotes.Valid {
		g.DietaryNotes = &dietaryNotes.String
	}

	var parseErr error
	g.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	g.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}
	if departedAt.Valid {
		t, err := time.Parse(time.RFC3339, departedAt.String)
		if err == nil {
			g.DepartedAt = &t
		}
	}
	return &g, nil
}

func scanCrewMember(scanner rowScanner) (*CrewMember, error) {
	var c CrewMember
	var role sql.NullString
	var createdAt, updatedAt string

	err := scanner.Scan(
		&c.ID, &c.FirstName, &c.LastName, &role, &c.OnDuty,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if role.Valid {
		c.Role = role.String
	}

	var parseErr error
	c.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	c.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}
	return &c, nil
}
