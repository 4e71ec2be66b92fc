package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry provides device management with caching and thread safety.
// It wraps a Repository and adds an in-memory cache for fast lookups.
//
// The cache is populated on startup via RefreshCache and kept in sync
// by cache-updating mutations. All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Device
	cacheMu sync.RWMutex
	logger  Logger
}

// NewRegistry creates a new device registry.
// The repository is used for persistence; the registry adds caching.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Device),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all devices from the repository into the cache.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	devices, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.cache = make(map[string]*Device, len(devices))
	for i := range devices {
		d := devices[i]
		r.cache[d.ID] = d.DeepCopy()
	}

	r.logger.Info("device cache refreshed", "count", len(devices))
	return nil
}

// EnsureDevice looks up a device by identifier, creating it on first
// contact. For known devices, non-empty hint fields are merged and
// last-seen is refreshed. The upsert is atomic in the repository, so
// concurrent calls for the same identifier never produce duplicates.
// The returned device is a deep copy; callers can safely modify it.
func (r *Registry) EnsureDevice(ctx context.Context, id string, hints Hints) (*Device, error) {
	device, err := r.repo.Ensure(ctx, id, hints)
	if err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	_, known := r.cache[device.ID]
	r.cache[device.ID] = device.DeepCopy()
	r.cacheMu.Unlock()

	if !known {
		r.logger.Info("device auto-provisioned",
			"device_id", device.ID, "kind", device.Kind)
	}

	return device, nil
}

// GetDevice retrieves a device by identifier.
// Returns ErrDeviceNotFound if the device does not exist.
// The returned device is a deep copy; callers can safely modify it.
func (r *Registry) GetDevice(ctx context.Context, id string) (*Device, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[id]
	r.cacheMu.RUnlock()

	if ok {
		return cached.DeepCopy(), nil
	}

	// Fall back to repository (might be a new device not yet cached)
	device, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	r.cache[id] = device.DeepCopy()
	r.cacheMu.Unlock()

	return device, nil
}

// ListDevices retrieves all devices.
// The returned devices are deep copies; callers can safely modify them.
func (r *Registry) ListDevices(ctx context.Context) ([]Device, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	if len(r.cache) > 0 {
		devices := make([]Device, 0, len(r.cache))
		for _, d := range r.cache {
			devices = append(devices, *d.DeepCopy())
		}
		return devices, nil
	}

	return r.repo.List(ctx)
}

// RecordTelemetry updates a device's health fields. Unknown devices
// are auto-provisioned rather than failing; only supplied fields are
// written.
func (r *Registry) RecordTelemetry(ctx context.Context, id string, battery, signal *int, status Status) error {
	err := r.repo.UpdateTelemetry(ctx, id, battery, signal, status)
	if errors.Is(err, ErrDeviceNotFound) {
		_, err = r.EnsureDevice(ctx, id, Hints{
			BatteryLevel:   battery,
			SignalStrength: signal,
		})
		return err
	}
	if err != nil {
		return err
	}

	r.cacheMu.Lock()
	if cached, ok := r.cache[id]; ok {
		if battery != nil {
			b := *battery
			cached.BatteryLevel = &b
		}
		if signal != nil {
			s := *signal
			cached.SignalStrength = &s
		}
		if status != "" {
			cached.Status = status
		}
	}
	r.cacheMu.Unlock()

	return nil
}

// BindLocation re-binds a device to a location (nil unbinds).
// Used by the pairing flow and the operator console.
func (r *Registry) BindLocation(ctx context.Context, id string, locationID *string) error {
	if err := r.repo.BindLocation(ctx, id, locationID); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

// BindCrewMember re-binds a device to a crew member (nil unbinds).
func (r *Registry) BindCrewMember(ctx context.Context, id string, crewMemberID *string) error {
	if err := r.repo.BindCrewMember(ctx, id, crewMemberID); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

// CreateDevice registers a device explicitly (pairing confirmation or
// operator console).
func (r *Registry) CreateDevice(ctx context.Context, device *Device) error {
	if err := r.repo.Create(ctx, device); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[device.ID] = device.DeepCopy()
	r.cacheMu.Unlock()

	return nil
}

// UpdateDevice modifies an existing device.
func (r *Registry) UpdateDevice(ctx context.Context, device *Device) error {
	if err := r.repo.Update(ctx, device); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[device.ID] = device.DeepCopy()
	r.cacheMu.Unlock()

	return nil
}

// DeleteDevice removes a device. Operator action only.
func (r *Registry) DeleteDevice(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.cache, id)
	r.cacheMu.Unlock()

	return nil
}

// WearablesForCrew returns the wearable devices bound to a crew member.
// An empty result is not an error.
func (r *Registry) WearablesForCrew(ctx context.Context, crewMemberID string) ([]Device, error) {
	r.cacheMu.RLock()
	if len(r.cache) > 0 {
		var wearables []Device
		for _, d := range r.cache {
			if d.Kind == KindWearable && d.CrewMemberID != nil && *d.CrewMemberID == crewMemberID {
				wearables = append(wearables, *d.DeepCopy())
			}
		}
		r.cacheMu.RUnlock()
		return wearables, nil
	}
	r.cacheMu.RUnlock()

	devices, err := r.repo.ListByCrewMember(ctx, crewMemberID)
	if err != nil {
		return nil, err
	}
	var wearables []Device
	for _, d := range devices {
		if d.Kind == KindWearable {
			wearables = append(wearables, d)
		}
	}
	return wearables, nil
}

// AllCrewWearables returns every wearable bound to any crew member.
// Used for emergency fan-out, which ignores duty status.
func (r *Registry) AllCrewWearables(ctx context.Context) ([]Device, error) {
	r.cacheMu.RLock()
	if len(r.cache) > 0 {
		var wearables []Device
		for _, d := range r.cache {
			if d.Kind == KindWearable && d.CrewMemberID != nil {
				wearables = append(wearables, *d.DeepCopy())
			}
		}
		r.cacheMu.RUnlock()
		return wearables, nil
	}
	r.cacheMu.RUnlock()

	devices, err := r.repo.ListByKind(ctx, KindWearable)
	if err != nil {
		return nil, err
	}
	var wearables []Device
	for _, d := range devices {
		if d.CrewMemberID != nil {
			wearables = append(wearables, d)
		}
	}
	return wearables, nil
}

// invalidate refreshes a single cache entry from the repository.
func (r *Registry) invalidate(ctx context.Context, id string) {
	device, err := r.repo.GetByID(ctx, id)
	if err != nil {
		r.cacheMu.Lock()
		delete(r.cache, id)
		r.cacheMu.Unlock()
		return
	}

	r.cacheMu.Lock()
	r.cache[id] = device.DeepCopy()
	r.cacheMu.Unlock()
}
