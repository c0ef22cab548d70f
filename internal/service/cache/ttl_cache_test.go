package cache

import (
	"testing"
	"time"
)

func TestTTL_SetGet(t *testing.T) {
	c := NewTTL[int]()
	c.Set("a", 42, time.Minute)

	v, ok := c.Get("a")
	if !ok || v != 42 {
		t.Fatalf("got %d/%v, want 42/true", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestTTL_Expiry(t *testing.T) {
	c := NewTTL[string]()
	c.Set("a", "x", time.Nanosecond)
	time.Sleep(time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected expired entry to miss")
	}
}

func TestTTL_ZeroTTLNeverExpires(t *testing.T) {
	c := NewTTL[string]()
	c.Set("a", "x", 0)
	time.Sleep(time.Millisecond)

	if _, ok := c.Get("a"); !ok {
		t.Fatal("zero ttl entry must not expire")
	}
}
