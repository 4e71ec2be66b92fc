package bus

import (
	"testing"
	"time"
)

func TestDeduperFirstSeenIsFalse(t *testing.T) {
	d := NewDeduper(time.Minute)

	if d.Seen("btn-01", 1) {
		t.Error("first sighting must not be a duplicate")
	}
	if !d.Seen("btn-01", 1) {
		t.Error("repeat sighting must be a duplicate")
	}
}

func TestDeduperKeysByDeviceAndSequence(t *testing.T) {
	d := NewDeduper(time.Minute)

	d.Seen("btn-01", 1)
	if d.Seen("btn-02", 1) {
		t.Error("same sequence from a different device is not a duplicate")
	}
	if d.Seen("btn-01", 2) {
		t.Error("different sequence from the same device is not a duplicate")
	}
}

func TestDeduperExpiry(t *testing.T) {
	d := NewDeduper(time.Minute)
	current := time.Now()
	d.now = func() time.Time { return current }

	d.Seen("btn-01", 1)
	current = current.Add(2 * time.Minute)

	if d.Seen("btn-01", 1) {
		t.Error("expired entry must not count as a duplicate")
	}
}

func TestDeduperSweepsOnAccess(t *testing.T) {
	d := NewDeduper(time.Minute)
	current := time.Now()
	d.now = func() time.Time { return current }

	for i := int64(0); i < 10; i++ {
		d.Seen("btn-01", i)
	}
	if d.Len() != 10 {
		t.Fatalf("Len = %d, want 10", d.Len())
	}

	current = current.Add(2 * time.Minute)
	d.Seen("btn-02", 1)

	if d.Len() != 1 {
		t.Errorf("Len = %d after sweep, want 1", d.Len())
	}
}

func TestDeduperForget(t *testing.T) {
	d := NewDeduper(time.Minute)

	d.Seen("btn-01", 1)
	d.Forget("btn-01", 1)

	if d.Seen("btn-01", 1) {
		t.Error("forgotten entry must not count as a duplicate")
	}
	if !d.Seen("btn-01", 1) {
		t.Error("re-marked entry must count as a duplicate again")
	}
}

func TestDeduperDefaultTTL(t *testing.T) {
	d := NewDeduper(0)
	if d.ttl != defaultDedupeTTL {
		t.Errorf("ttl = %v, want %v", d.ttl, defaultDedupeTTL)
	}
}
