package ttlcache

import (
	"testing"
	"time"
)

func TestCache_SetGet(t *testing.T) {
	c := New[string, int](time.Minute)

	c.Set("a", 1)
	got, ok := c.Get("a")
	if !ok || got != 1 {
		t.Fatalf("expected (1, true), got (%d, %v)", got, ok)
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestCache_Expiry(t *testing.T) {
	now := time.Now()
	c := New[string, int](time.Minute)
	c.now = func() time.Time { return now }

	c.Set("a", 1)

	now = now.Add(59 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Error("expected hit before expiry")
	}

	now = now.Add(2 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Error("expected miss after expiry")
	}
}

func TestCache_SetSweepsExpired(t *testing.T) {
	now := time.Now()
	c := New[string, int](time.Minute)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	c.Set("b", 2)

	now = now.Add(2 * time.Minute)
	c.Set("c", 3)

	if c.Len() != 1 {
		t.Errorf("expected expired entries swept on write, len=%d", c.Len())
	}
}

func TestCache_SetResetsTTL(t *testing.T) {
	now := time.Now()
	c := New[string, int](time.Minute)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	now = now.Add(45 * time.Second)
	c.Set("a", 2)
	now = now.Add(45 * time.Second)

	got, ok := c.Get("a")
	if !ok || got != 2 {
		t.Fatalf("expected refreshed entry (2, true), got (%d, %v)", got, ok)
	}
}
