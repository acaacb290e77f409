package cache

import (
	"testing"
	"time"

	"mercator-hq/jupiter/pkg/mwl"
)

func TestPatientCache_PutAndGet(t *testing.T) {
	c := NewPatientCache(time.Hour, 100)
	defer c.Close()

	c.Put("P-1", PatientInfo{Name: mwl.PatientName{Family: "Doe", Given: "Jane"}, Sex: "F"})

	info, ok := c.Get("P-1")
	if !ok {
		t.Fatal("Get() returned false for existing key")
	}
	if info.Name.Family != "Doe" {
		t.Fatalf("Name.Family = %q, want Doe", info.Name.Family)
	}
}

func TestPatientCache_GetMissingKey(t *testing.T) {
	c := NewPatientCache(time.Hour, 100)
	defer c.Close()

	if _, ok := c.Get("missing"); ok {
		t.Fatal("Get() returned true for missing key")
	}
}

func TestPatientCache_ZeroTTLNeverExpires(t *testing.T) {
	c := NewPatientCache(0, 0)
	defer c.Close()

	c.Put("P-1", PatientInfo{Name: mwl.PatientName{Family: "Doe"}})
	time.Sleep(10 * time.Millisecond)

	if _, ok := c.Get("P-1"); !ok {
		t.Fatal("entry expired despite zero TTL")
	}
}

func TestPatientCache_LRUEvictionAtCapacity(t *testing.T) {
	c := NewPatientCache(time.Hour, 2)
	defer c.Close()

	c.Put("P-1", PatientInfo{Name: mwl.PatientName{Family: "One"}})
	time.Sleep(time.Millisecond)
	c.Put("P-2", PatientInfo{Name: mwl.PatientName{Family: "Two"}})
	time.Sleep(time.Millisecond)

	// Access P-1 so it is more recently used than P-2.
	c.Get("P-1")

	c.Put("P-3", PatientInfo{Name: mwl.PatientName{Family: "Three"}})

	if _, ok := c.Get("P-2"); ok {
		t.Fatal("expected P-2 to be evicted as least recently used")
	}
	if _, ok := c.Get("P-1"); !ok {
		t.Fatal("expected P-1 to survive eviction")
	}
	if _, ok := c.Get("P-3"); !ok {
		t.Fatal("expected P-3 to be present")
	}
}

func TestPatientCache_Merge(t *testing.T) {
	c := NewPatientCache(time.Hour, 100)
	defer c.Close()

	c.Put("OLD", PatientInfo{Name: mwl.PatientName{Family: "Doe"}})
	c.Merge("OLD", "NEW")

	if _, ok := c.Get("OLD"); ok {
		t.Fatal("expected OLD key removed after merge")
	}
	info, ok := c.Get("NEW")
	if !ok || info.Name.Family != "Doe" {
		t.Fatalf("Get(NEW) = %+v, %v", info, ok)
	}
}

func TestPatientCache_MergePrefersExistingSurvivor(t *testing.T) {
	c := NewPatientCache(time.Hour, 100)
	defer c.Close()

	c.Put("OLD", PatientInfo{Name: mwl.PatientName{Family: "Stale"}})
	c.Put("NEW", PatientInfo{Name: mwl.PatientName{Family: "Current"}})
	c.Merge("OLD", "NEW")

	info, ok := c.Get("NEW")
	if !ok || info.Name.Family != "Current" {
		t.Fatalf("Get(NEW) = %+v, %v, want Current preserved", info, ok)
	}
}

func TestPatientCache_Delete(t *testing.T) {
	c := NewPatientCache(time.Hour, 100)
	defer c.Close()

	c.Put("P-1", PatientInfo{})
	c.Delete("P-1")

	if _, ok := c.Get("P-1"); ok {
		t.Fatal("expected P-1 deleted")
	}
}

func TestPatientCache_Size(t *testing.T) {
	c := NewPatientCache(time.Hour, 100)
	defer c.Close()

	c.Put("P-1", PatientInfo{})
	c.Put("P-2", PatientInfo{})

	if c.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", c.Size())
	}
}
