package renderer

import (
	"testing"
)

func TestNewUniformCache(t *testing.T) {
	cache := NewUniformCache(0)

	if cache == nil {
		t.Fatal("NewUniformCache returned nil")
	}

	if cache.locations == nil {
		t.Error("locations map should be initialized")
	}
}

func TestUniformCacheClear(t *testing.T) {
	cache := NewUniformCache(0)
	cache.locations["M"] = 5

	cache.Clear()

	if len(cache.locations) != 0 {
		t.Error("Clear should empty the cache")
	}
}

func TestUniformCacheSkipsMissingUniforms(t *testing.T) {
	cache := NewUniformCache(0)
	cache.locations["has_albedo_map"] = -1
	cache.locations["exposure"] = -1

	// Cached -1 locations must short-circuit before any GL call is made.
	cache.SetBool("has_albedo_map", true)
	cache.SetFloat("exposure", 1)

	if got := cache.GetLocation("has_albedo_map"); got != -1 {
		t.Errorf("Expected cached location -1, got %d", got)
	}
}
