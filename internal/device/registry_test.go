package device

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// mockRepository is an in-memory Repository for testing.
type mockRepository struct {
	mu      sync.Mutex
	devices map[string]*Device

	ensureCalls int
}

func newMockRepository() *mockRepository {
	return &mockRepository{devices: make(map[string]*Device)}
}

func (m *mockRepository) GetByID(_ context.Context, id string) (*Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[id]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return d.DeepCopy(), nil
}

func (m *mockRepository) List(_ context.Context) ([]Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Device, 0, len(m.devices))
	for _, d := range m.devices {
		out = append(out, *d.DeepCopy())
	}
	return out, nil
}

func (m *mockRepository) ListByKind(_ context.Context, kind Kind) ([]Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Device
	for _, d := range m.devices {
		if d.Kind == kind {
			out = append(out, *d.DeepCopy())
		}
	}
	return out, nil
}

func (m *mockRepository) ListByLocation(_ context.Context, locationID string) ([]Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Device
	for _, d := range m.devices {
		if d.LocationID != nil && *d.LocationID == locationID {
			out = append(out, *d.DeepCopy())
		}
	}
	return out, nil
}

func (m *mockRepository) ListByCrewMember(_ context.Context, crewMemberID string) ([]Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Device
	for _, d := range m.devices {
		if d.CrewMemberID != nil && *d.CrewMemberID == crewMemberID {
			out = append(out, *d.DeepCopy())
		}
	}
	return out, nil
}

func (m *mockRepository) Ensure(_ context.Context, id string, hints Hints) (*Device, error) {
	if id == "" {
		return nil, ErrIdentifierRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureCalls++

	now := time.Now().UTC()
	d, ok := m.devices[id]
	if !ok {
		kind := hints.Kind
		if kind == "" {
			kind = KindButton
		}
		name := hints.Name
		if name == "" {
			name = id
		}
		d = &Device{
			ID:        id,
			Name:      name,
			Kind:      kind,
			Status:    StatusOnline,
			CreatedAt: now,
		}
		m.devices[id] = d
	}

	if hints.Name != "" {
		d.Name = hints.Name
	}
	if hints.LocationID != "" {
		loc := hints.LocationID
		d.LocationID = &loc
	}
	if hints.FirmwareVersion != "" {
		fw := hints.FirmwareVersion
		d.FirmwareVersion = &fw
	}
	if hints.BatteryLevel != nil {
		b := *hints.BatteryLevel
		d.BatteryLevel = &b
	}
	if hints.SignalStrength != nil {
		s := *hints.SignalStrength
		d.SignalStrength = &s
	}
	if hints.Config != nil {
		d.Config = deepCopyMap(hints.Config)
	}
	d.Status = StatusOnline
	d.LastSeenAt = &now
	d.UpdatedAt = now

	return d.DeepCopy(), nil
}

func (m *mockRepository) Create(_ context.Context, device *Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.devices[device.ID]; ok {
		return ErrDeviceExists
	}
	m.devices[device.ID] = device.DeepCopy()
	return nil
}

func (m *mockRepository) Update(_ context.Context, device *Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.devices[device.ID]; !ok {
		return ErrDeviceNotFound
	}
	m.devices[device.ID] = device.DeepCopy()
	return nil
}

func (m *mockRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.devices[id]; !ok {
		return ErrDeviceNotFound
	}
	delete(m.devices, id)
	return nil
}

func (m *mockRepository) UpdateTelemetry(_ context.Context, id string, battery, signal *int, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[id]
	if !ok {
		return ErrDeviceNotFound
	}
	if battery != nil {
		b := *battery
		d.BatteryLevel = &b
	}
	if signal != nil {
		s := *signal
		d.SignalStrength = &s
	}
	if status != "" {
		d.Status = status
	}
	now := time.Now().UTC()
	d.LastSeenAt = &now
	return nil
}

func (m *mockRepository) BindLocation(_ context.Context, id string, locationID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[id]
	if !ok {
		return ErrDeviceNotFound
	}
	d.LocationID = locationID
	return nil
}

func (m *mockRepository) BindCrewMember(_ context.Context, id string, crewMemberID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[id]
	if !ok {
		return ErrDeviceNotFound
	}
	d.CrewMemberID = crewMemberID
	return nil
}

func strPtr(s string) *string { return &s }
func intPtr(v int) *int       { return &v }

func TestEnsureDeviceIdempotent(t *testing.T) {
	repo := newMockRepository()
	registry := NewRegistry(repo)
	ctx := context.Background()

	first, err := registry.EnsureDevice(ctx, "btn-01", Hints{Kind: KindButton})
	if err != nil {
		t.Fatalf("first EnsureDevice: %v", err)
	}

	second, err := registry.EnsureDevice(ctx, "btn-01", Hints{Kind: KindButton})
	if err != nil {
		t.Fatalf("second EnsureDevice: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("expected same device, got %q and %q", first.ID, second.ID)
	}

	devices, err := registry.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if len(devices) != 1 {
		t.Errorf("expected 1 device after two ensures, got %d", len(devices))
	}
}

func TestEnsureDeviceConcurrent(t *testing.T) {
	repo := newMockRepository()
	registry := NewRegistry(repo)
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := registry.EnsureDevice(ctx, "btn-race", Hints{}); err != nil {
				t.Errorf("EnsureDevice: %v", err)
			}
		}()
	}
	wg.Wait()

	devices, err := registry.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if len(devices) != 1 {
		t.Errorf("expected 1 device after concurrent ensures, got %d", len(devices))
	}
}

func TestEnsureDeviceMergesHints(t *testing.T) {
	repo := newMockRepository()
	registry := NewRegistry(repo)
	ctx := context.Background()

	_, err := registry.EnsureDevice(ctx, "btn-02", Hints{Kind: KindButton})
	if err != nil {
		t.Fatalf("EnsureDevice: %v", err)
	}

	got, err := registry.EnsureDevice(ctx, "btn-02", Hints{
		FirmwareVersion: "2.1.0",
		LocationID:      "loc-master",
		BatteryLevel:    intPtr(74),
	})
	if err != nil {
		t.Fatalf("EnsureDevice with hints: %v", err)
	}

	if got.FirmwareVersion == nil || *got.FirmwareVersion != "2.1.0" {
		t.Errorf("firmware hint not merged: %v", got.FirmwareVersion)
	}
	if got.LocationID == nil || *got.LocationID != "loc-master" {
		t.Errorf("location hint not merged: %v", got.LocationID)
	}
	if got.BatteryLevel == nil || *got.BatteryLevel != 74 {
		t.Errorf("battery hint not merged: %v", got.BatteryLevel)
	}
	if got.LastSeenAt == nil {
		t.Error("last seen not refreshed")
	}
}

func TestEnsureDeviceEmptyIdentifier(t *testing.T) {
	registry := NewRegistry(newMockRepository())

	_, err := registry.EnsureDevice(context.Background(), "", Hints{})
	if !errors.Is(err, ErrIdentifierRequired) {
		t.Errorf("error = %v, want ErrIdentifierRequired", err)
	}
}

func TestRecordTelemetryAutoProvisions(t *testing.T) {
	repo := newMockRepository()
	registry := NewRegistry(repo)
	ctx := context.Background()

	err := registry.RecordTelemetry(ctx, "btn-new", intPtr(55), intPtr(-70), "")
	if err != nil {
		t.Fatalf("RecordTelemetry: %v", err)
	}

	got, err := registry.GetDevice(ctx, "btn-new")
	if err != nil {
		t.Fatalf("GetDevice after telemetry: %v", err)
	}
	if got.BatteryLevel == nil || *got.BatteryLevel != 55 {
		t.Errorf("battery = %v, want 55", got.BatteryLevel)
	}
	if got.SignalStrength == nil || *got.SignalStrength != -70 {
		t.Errorf("signal = %v, want -70", got.SignalStrength)
	}
}

func TestRecordTelemetryPartialUpdate(t *testing.T) {
	repo := newMockRepository()
	registry := NewRegistry(repo)
	ctx := context.Background()

	_, err := registry.EnsureDevice(ctx, "btn-03", Hints{
		BatteryLevel:   intPtr(90),
		SignalStrength: intPtr(-50),
	})
	if err != nil {
		t.Fatalf("EnsureDevice: %v", err)
	}

	// Only signal supplied; battery must survive.
	if err := registry.RecordTelemetry(ctx, "btn-03", nil, intPtr(-65), ""); err != nil {
		t.Fatalf("RecordTelemetry: %v", err)
	}

	got, err := registry.GetDevice(ctx, "btn-03")
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}
	if got.BatteryLevel == nil || *got.BatteryLevel != 90 {
		t.Errorf("battery = %v, want 90 (unchanged)", got.BatteryLevel)
	}
	if got.SignalStrength == nil || *got.SignalStrength != -65 {
		t.Errorf("signal = %v, want -65", got.SignalStrength)
	}
}

func TestWearablesForCrew(t *testing.T) {
	repo := newMockRepository()
	registry := NewRegistry(repo)
	ctx := context.Background()

	seed := []Device{
		{ID: "w-1", Kind: KindWearable, CrewMemberID: strPtr("crew-a")},
		{ID: "w-2", Kind: KindWearable, CrewMemberID: strPtr("crew-a")},
		{ID: "w-3", Kind: KindWearable, CrewMemberID: strPtr("crew-b")},
		{ID: "w-4", Kind: KindWearable},
		{ID: "btn-1", Kind: KindButton, CrewMemberID: strPtr("crew-a")},
	}
	for i := range seed {
		if err := registry.CreateDevice(ctx, &seed[i]); err != nil {
			t.Fatalf("CreateDevice(%s): %v", seed[i].ID, err)
		}
	}

	wearables, err := registry.WearablesForCrew(ctx, "crew-a")
	if err != nil {
		t.Fatalf("WearablesForCrew: %v", err)
	}
	if len(wearables) != 2 {
		t.Fatalf("expected 2 wearables for crew-a, got %d", len(wearables))
	}
	for _, w := range wearables {
		if w.Kind != KindWearable {
			t.Errorf("non-wearable %q in result", w.ID)
		}
	}

	all, err := registry.AllCrewWearables(ctx)
	if err != nil {
		t.Fatalf("AllCrewWearables: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 bound wearables, got %d (unbound w-4 must be excluded)", len(all))
	}
}

func TestGetDeviceCacheIsolation(t *testing.T) {
	repo := newMockRepository()
	registry := NewRegistry(repo)
	ctx := context.Background()

	_, err := registry.EnsureDevice(ctx, "btn-iso", Hints{
		Config: Config{"buttons": map[string]any{"aux1": "dnd_toggle"}},
	})
	if err != nil {
		t.Fatalf("EnsureDevice: %v", err)
	}

	first, err := registry.GetDevice(ctx, "btn-iso")
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}
	first.Name = "mutated"
	first.Config["buttons"] = "clobbered"

	second, err := registry.GetDevice(ctx, "btn-iso")
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}
	if second.Name == "mutated" {
		t.Error("mutating a returned device leaked into the cache")
	}
	if _, ok := second.Config["buttons"].(map[string]any); !ok {
		t.Error("mutating a returned device config leaked into the cache")
	}
}

func TestBindLocationAndCrewMember(t *testing.T) {
	repo := newMockRepository()
	registry := NewRegistry(repo)
	ctx := context.Background()

	if _, err := registry.EnsureDevice(ctx, "w-bind", Hints{Kind: KindWearable}); err != nil {
		t.Fatalf("EnsureDevice: %v", err)
	}

	if err := registry.BindCrewMember(ctx, "w-bind", strPtr("crew-z")); err != nil {
		t.Fatalf("BindCrewMember: %v", err)
	}
	if err := registry.BindLocation(ctx, "w-bind", strPtr("loc-deck")); err != nil {
		t.Fatalf("BindLocation: %v", err)
	}

	got, err := registry.GetDevice(ctx, "w-bind")
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}
	if got.CrewMemberID == nil || *got.CrewMemberID != "crew-z" {
		t.Errorf("crew binding = %v, want crew-z", got.CrewMemberID)
	}
	if got.LocationID == nil || *got.LocationID != "loc-deck" {
		t.Errorf("location binding = %v, want loc-deck", got.LocationID)
	}

	// Unbind.
	if err := registry.BindCrewMember(ctx, "w-bind", nil); err != nil {
		t.Fatalf("unbind crew: %v", err)
	}
	got, err = registry.GetDevice(ctx, "w-bind")
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}
	if got.CrewMemberID != nil {
		t.Errorf("crew binding = %v, want nil after unbind", got.CrewMemberID)
	}
}

func TestKindValid(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindButton, true},
		{KindWearable, true},
		{KindRepeater, true},
		{KindCompanionApp, true},
		{Kind("toaster"), false},
		{Kind(""), false},
	}

	for _, tt := range tests {
		if got := tt.kind.Valid(); got != tt.want {
			t.Errorf("Kind(%q).Valid() = %v, want %v", tt.kind, got, tt.want)
		}
	}
}
