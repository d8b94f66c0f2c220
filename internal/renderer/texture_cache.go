package renderer

import (
	"GopherPBR/internal/logger"
	"sync"

	"go.uber.org/zap"
)

// TextureStats provides debugging and profiling information
type TextureStats struct {
	TotalTextures  int
	CacheHits      int
	CacheMisses    int
	ActiveTextures int
}

// TextureCache deduplicates material textures by source identity. Each
// model owns one, so deleting the model releases exactly the textures it
// created.
type TextureCache struct {
	device          Device
	textureCache    map[string]uint32 // key -> GPU texture ID
	textureRefCount map[uint32]int    // texture ID -> reference count
	textureKeys     map[uint32]string // texture ID -> key (for debugging)
	mu              sync.RWMutex
	stats           TextureStats
}

func NewTextureCache(device Device) *TextureCache {
	return &TextureCache{
		device:          device,
		textureCache:    make(map[string]uint32),
		textureRefCount: make(map[uint32]int),
		textureKeys:     make(map[uint32]string),
	}
}

// Acquire returns the GPU texture for ref, uploading it on first sight of
// its key. A nil ref yields texture 0.
func (tc *TextureCache) Acquire(ref *TextureRef) (uint32, error) {
	if ref == nil {
		return 0, nil
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()

	if textureID, exists := tc.textureCache[ref.Key]; exists {
		tc.textureRefCount[textureID]++
		tc.stats.CacheHits++

		logger.Log.Debug("Texture cache hit",
			zap.String("key", ref.Key),
			zap.Uint32("textureID", textureID),
			zap.Int("refCount", tc.textureRefCount[textureID]))

		return textureID, nil
	}

	tc.stats.CacheMisses++
	textureID, err := tc.device.CreateTexture2D(ref.Image)
	if err != nil {
		return 0, err
	}

	tc.textureCache[ref.Key] = textureID
	tc.textureRefCount[textureID] = 1
	tc.textureKeys[textureID] = ref.Key
	tc.stats.TotalTextures++
	tc.stats.ActiveTextures++

	logger.Log.Debug("Texture uploaded and cached",
		zap.String("key", ref.Key),
		zap.Uint32("textureID", textureID),
		zap.Int("width", ref.Image.Rect.Dx()),
		zap.Int("height", ref.Image.Rect.Dy()))

	return textureID, nil
}

// Release decrements the reference count and frees the texture at zero.
func (tc *TextureCache) Release(textureID uint32) {
	if textureID == 0 {
		return
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()

	refCount, exists := tc.textureRefCount[textureID]
	if !exists {
		logger.Log.Warn("Attempted to release unknown texture",
			zap.Uint32("textureID", textureID))
		return
	}

	refCount--
	tc.textureRefCount[textureID] = refCount
	if refCount > 0 {
		return
	}

	tc.device.DeleteTexture(textureID)
	key := tc.textureKeys[textureID]
	delete(tc.textureCache, key)
	delete(tc.textureRefCount, textureID)
	delete(tc.textureKeys, textureID)
	tc.stats.ActiveTextures--

	logger.Log.Debug("Texture freed",
		zap.Uint32("textureID", textureID),
		zap.String("key", key))
}

// Len is the number of distinct textures currently alive.
func (tc *TextureCache) Len() int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return len(tc.textureRefCount)
}

// GetStats returns current texture cache statistics
func (tc *TextureCache) GetStats() TextureStats {
	tc.mu.RLock()
	defer tc.mu.RUnlock()

	stats := tc.stats
	stats.ActiveTextures = len(tc.textureRefCount)
	return stats
}

func (tc *TextureCache) LogStats() {
	stats := tc.GetStats()
	hitRate := 0.0
	if lookups := stats.CacheHits + stats.CacheMisses; lookups > 0 {
		hitRate = float64(stats.CacheHits) / float64(lookups)
	}
	logger.Log.Info("Texture cache stats",
		zap.Int("totalTextures", stats.TotalTextures),
		zap.Int("activeTextures", stats.ActiveTextures),
		zap.Int("cacheHits", stats.CacheHits),
		zap.Int("cacheMisses", stats.CacheMisses),
		zap.Float64("hitRate", hitRate))
}

// Clear deletes every texture regardless of reference counts.
func (tc *TextureCache) Clear() {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	for textureID := range tc.textureRefCount {
		tc.device.DeleteTexture(textureID)
	}

	tc.textureCache = make(map[string]uint32)
	tc.textureRefCount = make(map[uint32]int)
	tc.textureKeys = make(map[uint32]string)
	tc.stats.ActiveTextures = 0
}
