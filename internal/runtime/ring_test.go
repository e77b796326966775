package runtime

import (
	"fmt"
	"testing"
)

func TestRingOwnerIsDeterministic(t *testing.T) {
	a := NewRing(0)
	b := NewRing(0)
	for _, host := range []string{"host-1", "host-2", "host-3"} {
		a.Add(host)
		b.Add(host)
	}
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("trade/%d", i)
		if a.Owner(key) != b.Owner(key) {
			t.Fatalf("rings disagree on %s: %s vs %s", key, a.Owner(key), b.Owner(key))
		}
	}
}

func TestRingEmptyAndSingleHost(t *testing.T) {
	r := NewRing(0)
	if owner := r.Owner("anything"); owner != "" {
		t.Fatalf("empty ring owner %q", owner)
	}
	r.Add("only")
	for i := 0; i < 20; i++ {
		if owner := r.Owner(fmt.Sprintf("k%d", i)); owner != "only" {
			t.Fatalf("single host ring gave %q", owner)
		}
	}
}

func TestRingAddIsIdempotent(t *testing.T) {
	r := NewRing(0)
	r.Add("host-1")
	r.Add("host-1")
	if hosts := r.Hosts(); len(hosts) != 1 {
		t.Fatalf("hosts %v", hosts)
	}
}

func TestRingRemoveRedistributesOnlyOrphanedKeys(t *testing.T) {
	r := NewRing(0)
	r.Add("host-1")
	r.Add("host-2")
	r.Add("host-3")

	before := make(map[string]string)
	for i := 0; i < 200; i++ {
		key := fmt.Sprintf("inventory/char-%d", i)
		before[key] = r.Owner(key)
	}

	r.Remove("host-2")
	for key, owner := range before {
		got := r.Owner(key)
		if got == "host-2" {
			t.Fatalf("%s still owned by removed host", key)
		}
		// Keys not on the removed host must not move.
		if owner != "host-2" && got != owner {
			t.Fatalf("%s moved from %s to %s", key, owner, got)
		}
	}
}

func TestRingSpreadsKeys(t *testing.T) {
	r := NewRing(0)
	hosts := []string{"host-1", "host-2", "host-3"}
	for _, h := range hosts {
		r.Add(h)
	}
	counts := make(map[string]int)
	for i := 0; i < 3000; i++ {
		counts[r.Owner(fmt.Sprintf("key-%d", i))]++
	}
	for _, h := range hosts {
		if counts[h] == 0 {
			t.Fatalf("host %s received no keys: %v", h, counts)
		}
	}
}
