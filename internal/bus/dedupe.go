package bus

import (
	"strconv"
	"sync"
	"time"
)

// defaultDedupeTTL bounds how long a sequence number is remembered.
// Well past any sane firmware retry window.
const defaultDedupeTTL = 5 * time.Minute

// Deduper suppresses duplicate press messages by (device id, sequence
// number). Firmware retransmits on lossy RF links; the same press may
// arrive more than once and must not open a second request.
//
// Entries expire after the TTL and are swept on access, so the map
// stays bounded without a background goroutine.
type Deduper struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration

	// now is replaceable for tests.
	now func() time.Time
}

// NewDeduper creates a deduper. A non-positive TTL uses the default.
func NewDeduper(ttl time.Duration) *Deduper {
	if ttl <= 0 {
		ttl = defaultDedupeTTL
	}
	return &Deduper{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Seen records a (device, sequence) pair and reports whether it was
// already present. The first call for a pair returns false; repeats
// within the TTL return true.
func (d *Deduper) Seen(deviceID string, sequence int64) bool {
	key := deviceID + "#" + strconv.FormatInt(sequence, 10)

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for k, deadline := range d.entries {
		if now.After(deadline) {
			delete(d.entries, k)
		}
	}

	if _, ok := d.entries[key]; ok {
		return true
	}
	d.entries[key] = now.Add(d.ttl)
	return false
}

// Forget releases a (device, sequence) pair so a retransmit is
// processed again. Used when handling fails after the pair was marked,
// otherwise a transient error would suppress the press for the TTL.
func (d *Deduper) Forget(deviceID string, sequence int64) {
	key := deviceID + "#" + strconv.FormatInt(sequence, 10)

	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.entries, key)
}

// Len returns the number of live entries.
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}
