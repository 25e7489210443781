package core

import (
	"testing"
	"time"
)

func TestCacheGetSet(t *testing.T) {
	c := NewCache(0)

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for absent key")
	}

	c.Set("submissions:contact_submissions?resolved=&vaulted=", []Record{{"name": "a"}})
	v, ok := c.Get("submissions:contact_submissions?resolved=&vaulted=")
	if !ok {
		t.Fatal("expected hit")
	}
	if recs := v.([]Record); len(recs) != 1 || recs[0]["name"] != "a" {
		t.Errorf("unexpected cached value: %v", v)
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	c := NewCache(time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("key", 1)
	if _, ok := c.Get("key"); !ok {
		t.Fatal("expected hit before expiry")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("key"); ok {
		t.Error("expected miss after expiry")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be evicted, have %d", c.Len())
	}
}

func TestCacheInvalidateTable(t *testing.T) {
	c := NewCache(0)
	c.Set("submissions:contact_submissions?resolved=&vaulted=", 1)
	c.Set("submissions:quote_requests?resolved=&vaulted=", 2)
	c.Set("counts:dashboard", 3)
	c.Set("counts:vault", 4)

	c.InvalidateTable("contact_submissions")

	if _, ok := c.Get("submissions:contact_submissions?resolved=&vaulted="); ok {
		t.Error("table reads should be invalidated")
	}
	if _, ok := c.Get("counts:dashboard"); ok {
		t.Error("dashboard counts should be invalidated")
	}
	if _, ok := c.Get("counts:vault"); ok {
		t.Error("vault counts should be invalidated")
	}
	if _, ok := c.Get("submissions:quote_requests?resolved=&vaulted="); !ok {
		t.Error("unrelated table reads should survive")
	}
}

func TestCacheInvalidateMatching(t *testing.T) {
	c := NewCache(0)
	c.Set("a", 1)
	c.Set("b", 2)

	c.InvalidateMatching(func(string) bool { return true })
	if c.Len() != 0 {
		t.Errorf("expected empty cache, have %d entries", c.Len())
	}
}
