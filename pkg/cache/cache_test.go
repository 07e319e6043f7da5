package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func TestSetAndGet(t *testing.T) {
	c := New[string]()
	c.Set("key1", "value1", 1*time.Second)
	val, ok := c.Get("key1")
	if !ok || val != "value1" {
		t.Fatalf("expected value1, got %v, exists=%v", val, ok)
	}
}

func TestExpiration(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c := NewWithClock[string](clock.now)
	c.Set("key1", "value1", 100*time.Millisecond)
	clock.t = clock.t.Add(150 * time.Millisecond)
	if _, ok := c.Get("key1"); ok {
		t.Fatalf("expected expired key to return false")
	}
	if n := c.Purge(); n != 1 {
		t.Fatalf("expected 1 purged entry, got %d", n)
	}
	if c.Len() != 0 {
		t.Fatalf("expected empty cache after purge")
	}
}

func TestDelete(t *testing.T) {
	c := New[int]()
	c.Set("key1", 1, 1*time.Second)
	c.Delete("key1")
	if _, ok := c.Get("key1"); ok {
		t.Fatalf("expected deleted key to return false")
	}
}

func TestInvalidate(t *testing.T) {
	c := New[string]()
	c.Set("revoked:1", "a", 1*time.Second)
	c.Set("revoked:2", "b", 1*time.Second)
	c.Set("session:1", "s1", 1*time.Second)
	c.Invalidate("revoked:")
	_, ok1 := c.Get("revoked:1")
	_, ok2 := c.Get("revoked:2")
	_, ok3 := c.Get("session:1")
	if ok1 || ok2 {
		t.Fatalf("expected revoked keys to be invalidated")
	}
	if !ok3 {
		t.Fatalf("expected session:1 to still exist")
	}
}
