package device

import (
	"sync"
	"time"
)

// defaultPairingWindow is how long a device stays in pairing mode
// before the entry expires.
const defaultPairingWindow = 2 * time.Minute

// PairingTracker is a time-bounded cache of devices currently in
// pairing mode. Entries expire after the pairing window; expired
// entries are swept on access so the map never grows unbounded.
//
// All methods are safe for concurrent use.
type PairingTracker struct {
	mu      sync.Mutex
	entries map[string]time.Time
	window  time.Duration

	// now is replaceable for tests.
	now func() time.Time
}

// NewPairingTracker creates a tracker with the given pairing window.
// A non-positive window uses the default.
func NewPairingTracker(window time.Duration) *PairingTracker {
	if window <= 0 {
		window = defaultPairingWindow
	}
	return &PairingTracker{
		entries: make(map[string]time.Time),
		window:  window,
		now:     time.Now,
	}
}

// Begin puts a device into pairing mode, replacing any existing entry.
func (p *PairingTracker) Begin(deviceID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sweepLocked()
	p.entries[deviceID] = p.now().Add(p.window)
}

// Cancel removes a device from pairing mode.
// Returns true if the device was in pairing mode.
func (p *PairingTracker) Cancel(deviceID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sweepLocked()
	_, ok := p.entries[deviceID]
	delete(p.entries, deviceID)
	return ok
}

// Active reports whether a device is currently in pairing mode.
func (p *PairingTracker) Active(deviceID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sweepLocked()
	_, ok := p.entries[deviceID]
	return ok
}

// Count returns the number of devices currently in pairing mode.
func (p *PairingTracker) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sweepLocked()
	return len(p.entries)
}

// sweepLocked evicts expired entries. Callers must hold mu.
func (p *PairingTracker) sweepLocked() {
	now := p.now()
	for id, deadline := range p.entries {
		if now.After(deadline) {
			delete(p.entries, id)
		}
	}
}
