package narrative

import (
	"testing"

	"saas_stack/pkg/core/projection"
)

func TestCacheSingleEntry(t *testing.T) {
	c := NewCache()
	a := projection.DefaultParameters()
	b := a
	b.PricePerCustomer = 25

	if _, ok := c.Lookup(a, "gemini"); ok {
		t.Fatal("Expected empty cache to miss")
	}

	c.Store(a, "gemini", Result{ID: "a"})
	if r, ok := c.Lookup(a, "gemini"); !ok || r.ID != "a" {
		t.Errorf("Expected hit for a, got %+v %v", r, ok)
	}
	if _, ok := c.Lookup(b, "gemini"); ok {
		t.Error("Expected miss for different parameters")
	}

	c.Store(b, "gemini", Result{ID: "b"})
	if _, ok := c.Lookup(a, "gemini"); ok {
		t.Error("Expected a to be evicted by b")
	}

	c.Invalidate()
	if _, ok := c.Lookup(b, "gemini"); ok {
		t.Error("Expected miss after Invalidate")
	}
}

func TestCacheKeyedByProvider(t *testing.T) {
	c := NewCache()
	p := projection.DefaultParameters()

	c.Store(p, "gemini", Result{ID: "g"})
	if _, ok := c.Lookup(p, "deepseek"); ok {
		t.Error("Expected miss for a different provider")
	}
	if r, ok := c.Lookup(p, "gemini"); !ok || r.ID != "g" {
		t.Errorf("Expected hit for gemini, got %+v %v", r, ok)
	}
}
