package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/saltline/steward-core/internal/device"
	"github.com/saltline/steward-core/internal/directory"
	"github.com/saltline/steward-core/internal/infrastructure/config"
	"github.com/saltline/steward-core/internal/infrastructure/logging"
	"github.com/saltline/steward-core/internal/request"
)

// fakeRequestRepo is an in-memory request.Repository with the same
// compare-and-set transition semantics as the SQLite implementation.
type fakeRequestRepo struct {
	requests map[string]*request.Request
	history  map[string][]request.HistoryEntry
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{
		requests: make(map[string]*request.Request),
		history:  make(map[string][]request.HistoryEntry),
	}
}

func (f *fakeRequestRepo) Create(_ context.Context, req *request.Request) error {
	cpy := *req
	f.requests[req.ID] = &cpy
	return nil
}

func (f *fakeRequestRepo) GetByID(_ context.Context, id string) (*request.Request, error) {
	req, ok := f.requests[id]
	if !ok {
		return nil, request.ErrRequestNotFound
	}
	cpy := *req
	return &cpy, nil
}

func (f *fakeRequestRepo) List(_ context.Context, filter request.ListFilter) ([]request.Request, error) {
	var out []request.Request
	for _, req := range f.requests {
		if filter.LocationID != "" && (req.LocationID == nil || *req.LocationID != filter.LocationID) {
			continue
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, s := range filter.Statuses {
				if req.Status == s {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, *req)
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeRequestRepo) transition(id string, from []request.Status, apply func(*request.Request)) error {
	req, ok := f.requests[id]
	if !ok {
		return request.ErrRequestNotFound
	}
	for _, s := range from {
		if req.Status == s {
			apply(req)
			return nil
		}
	}
	return request.ErrInvalidTransition
}

func (f *fakeRequestRepo) Assign(_ context.Context, id, crewID, crewName string, at time.Time) error {
	return f.transition(id, []request.Status{request.StatusPending}, func(req *request.Request) {
		req.AssignedCrewID = &crewID
		req.AssignedCrewName = &crewName
		req.UpdatedAt = at
	})
}

func (f *fakeRequestRepo) Accept(_ context.Context, id, crewID, crewName string, at time.Time) error {
	return f.transition(id, []request.Status{request.StatusPending}, func(req *request.Request) {
		req.Status = request.StatusServing
		req.AssignedCrewID = &crewID
		req.AssignedCrewName = &crewName
		req.AcceptedAt = &at
		req.UpdatedAt = at
	})
}

func (f *fakeRequestRepo) Complete(_ context.Context, id string, at time.Time) error {
	return f.transition(id, []request.Status{request.StatusServing}, func(req *request.Request) {
		req.Status = request.StatusCompleted
		req.CompletedAt = &at
		req.UpdatedAt = at
	})
}

func (f *fakeRequestRepo) Cancel(_ context.Context, id, reason string, at time.Time) error {
	return f.transition(id, []request.Status{request.StatusPending, request.StatusServing}, func(req *request.Request) {
		req.Status = request.StatusCancelled
		if reason != "" {
			req.CancelReason = &reason
		}
		req.CancelledAt = &at
		req.UpdatedAt = at
	})
}

func (f *fakeRequestRepo) AddHistory(_ context.Context, entry *request.HistoryEntry) error {
	f.history[entry.RequestID] = append(f.history[entry.RequestID], *entry)
	return nil
}

func (f *fakeRequestRepo) ListHistory(_ context.Context, requestID string) ([]request.HistoryEntry, error) {
	return f.history[requestID], nil
}

// fakeDirectory is an in-memory directory.Repository.
type fakeDirectory struct {
	locations map[string]*directory.Location
	guests    map[string]*directory.Guest
	crew      map[string]*directory.CrewMember
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		locations: make(map[string]*directory.Location),
		guests:    make(map[string]*directory.Guest),
		crew:      make(map[string]*directory.CrewMember),
	}
}

func (f *fakeDirectory) GetLocation(_ context.Context, id string) (*directory.Location, error) {
	loc, ok := f.locations[id]
	if !ok {
		return nil, directory.ErrLocationNotFound
	}
	cpy := *loc
	return &cpy, nil
}

func (f *fakeDirectory) ListLocations(_ context.Context) ([]directory.Location, error) {
	var out []directory.Location
	for _, loc := range f.locations {
		out = append(out, *loc)
	}
	return out, nil
}

func (f *fakeDirectory) GetGuest(_ context.Context, id string) (*directory.Guest, error) {
	guest, ok := f.guests[id]
	if !ok {
		return nil, directory.ErrGuestNotFound
	}
	cpy := *guest
	return &cpy, nil
}

func (f *fakeDirectory) GuestAtLocation(_ context.Context, locationID string) (*directory.Guest, error) {
	for _, guest := range f.guests {
		if guest.LocationID != nil && *guest.LocationID == locationID && guest.Onboard {
			cpy := *guest
			return &cpy, nil
		}
	}
	return nil, directory.ErrGuestNotFound
}

func (f *fakeDirectory) GetCrewMember(_ context.Context, id string) (*directory.CrewMember, error) {
	member, ok := f.crew[id]
	if !ok {
		return nil, directory.ErrCrewMemberNotFound
	}
	cpy := *member
	return &cpy, nil
}

func (f *fakeDirectory) ListCrew(_ context.Context) ([]directory.CrewMember, error) {
	var out []directory.CrewMember
	for _, member := range f.crew {
		out = append(out, *member)
	}
	return out, nil
}

func (f *fakeDirectory) OnDutyCrew(_ context.Context) ([]directory.CrewMember, error) {
	var out []directory.CrewMember
	for _, member := range f.crew {
		if member.OnDuty {
			out = append(out, *member)
		}
	}
	return out, nil
}

func (f *fakeDirectory) ToggleDoNotDisturb(_ context.Context, locationID string) (bool, error) {
	loc, ok := f.locations[locationID]
	if !ok {
		return false, directory.ErrLocationNotFound
	}
	loc.DoNotDisturb = !loc.DoNotDisturb
	return loc.DoNotDisturb, nil
}

// fakeAPIDeviceRepo is an in-memory device.Repository, trimmed to what
// the handlers exercise.
type fakeAPIDeviceRepo struct {
	devices map[string]*device.Device
}

func newFakeAPIDeviceRepo() *fakeAPIDeviceRepo {
	return &fakeAPIDeviceRepo{devices: make(map[string]*device.Device)}
}

func (f *fakeAPIDeviceRepo) GetByID(_ context.Context, id string) (*device.Device, error) {
	d, ok := f.devices[id]
	if !ok {
		return nil, device.ErrDeviceNotFound
	}
	return d.DeepCopy(), nil
}

func (f *fakeAPIDeviceRepo) List(_ context.Context) ([]device.Device, error) {
	out := make([]device.Device, 0, len(f.devices))
	for _, d := range f.devices {
		out = append(out, *d.DeepCopy())
	}
	return out, nil
}

func (f *fakeAPIDeviceRepo) ListByKind(_ context.Context, kind device.Kind) ([]device.Device, error) {
	var out []device.Device
	for _, d := range f.devices {
		if d.Kind == kind {
			out = append(out, *d.DeepCopy())
		}
	}
	return out, nil
}

func (f *fakeAPIDeviceRepo) ListByLocation(_ context.Context, locationID string) ([]device.Device, error) {
	var out []device.Device
	for _, d := range f.devices {
		if d.LocationID != nil && *d.LocationID == locationID {
			out = append(out, *d.DeepCopy())
		}
	}
	return out, nil
}

func (f *fakeAPIDeviceRepo) ListByCrewMember(_ context.Context, crewMemberID string) ([]device.Device, error) {
	var out []device.Device
	for _, d := range f.devices {
		if d.CrewMemberID != nil && *d.CrewMemberID == crewMemberID {
			out = append(out, *d.DeepCopy())
		}
	}
	return out, nil
}

func (f *fakeAPIDeviceRepo) Ensure(_ context.Context, id string, hints device.Hints) (*device.Device, error) {
	if d, ok := f.devices[id]; ok {
		return d.DeepCopy(), nil
	}
	d := &device.Device{ID: id, Name: id, Kind: device.KindButton, Status: device.StatusOnline}
	f.devices[id] = d
	return d.DeepCopy(), nil
}

func (f *fakeAPIDeviceRepo) Create(_ context.Context, d *device.Device) error {
	if _, ok := f.devices[d.ID]; ok {
		return device.ErrDeviceExists
	}
	f.devices[d.ID] = d.DeepCopy()
	return nil
}

func (f *fakeAPIDeviceRepo) Update(_ context.Context, d *device.Device) error {
	if _, ok := f.devices[d.ID]; !ok {
		return device.ErrDeviceNotFound
	}
	f.devices[d.ID] = d.DeepCopy()
	return nil
}

func (f *fakeAPIDeviceRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.devices[id]; !ok {
		return device.ErrDeviceNotFound
	}
	delete(f.devices, id)
	return nil
}

func (f *fakeAPIDeviceRepo) UpdateTelemetry(_ context.Context, id string, battery, signal *int, status device.Status) error {
	if _, ok := f.devices[id]; !ok {
		return device.ErrDeviceNotFound
	}
	return nil
}

func (f *fakeAPIDeviceRepo) BindLocation(_ context.Context, id string, locationID *string) error {
	d, ok := f.devices[id]
	if !ok {
		return device.ErrDeviceNotFound
	}
	d.LocationID = locationID
	return nil
}

func (f *fakeAPIDeviceRepo) BindCrewMember(_ context.Context, id string, crewMemberID *string) error {
	d, ok := f.devices[id]
	if !ok {
		return device.ErrDeviceNotFound
	}
	d.CrewMemberID = crewMemberID
	return nil
}

// testHarness bundles a server and its backing fakes.
type testHarness struct {
	server     *Server
	router     http.Handler
	requests   *fakeRequestRepo
	directory  *fakeDirectory
	deviceRepo *fakeAPIDeviceRepo
	manager    *request.Manager
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	h := &testHarness{
		requests:   newFakeRequestRepo(),
		directory:  newFakeDirectory(),
		deviceRepo: newFakeAPIDeviceRepo(),
	}
	h.manager = request.NewManager(h.requests, h.directory)

	logger := logging.New(config.LoggingConfig{Level: "error", Format: "text"}, "test")
	server, err := New(Deps{
		Logger:    logger,
		Registry:  device.NewRegistry(h.deviceRepo),
		Directory: h.directory,
		Requests:  h.manager,
		Pairing:   device.NewPairingTracker(0),
		Version:   "test",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.server = server
	h.server.hub = NewHub(config.WebSocketConfig{}, logger)
	h.router = server.buildRouter()
	return h
}

func (h *testHarness) do(t *testing.T, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestHarness(t)

	rec := h.do(t, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	logger := logging.New(config.LoggingConfig{Level: "error", Format: "text"}, "test")

	if _, err := New(Deps{}); err == nil {
		t.Error("expected error with no dependencies")
	}
	if _, err := New(Deps{Logger: logger}); err == nil {
		t.Error("expected error with no registry")
	}
}
