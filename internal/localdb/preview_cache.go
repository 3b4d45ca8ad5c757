package localdb

import (
	"encoding/json/v2"
	"strings"
	"time"

	"github.com/promptnote/promptnote/internal/domain"
)

// CachedPreview is a preview result with the fetch timestamp used for TTL
// checks.
type CachedPreview struct {
	Data      domain.Preview `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

// SetCachedPreview persists one preview cache entry. One key per URL, so a
// cache write never rewrites the whole cache.
func (d *DB) SetCachedPreview(url string, p CachedPreview) {
	Set(d, previewCachePrefix+url, p)
}

// CachedPreviews returns all persisted preview entries keyed by URL, for
// rehydrating the in-memory cache at startup. Unreadable entries are skipped.
func (d *DB) CachedPreviews() map[string]CachedPreview {
	out := make(map[string]CachedPreview)
	d.listPrefix(previewCachePrefix, func(key string, val []byte) {
		var p CachedPreview
		if err := json.Unmarshal(val, &p); err != nil {
			d.logger.Warn("dropping unreadable preview cache entry", "key", key, "error", err)
			return
		}
		out[strings.TrimPrefix(key, previewCachePrefix)] = p
	})
	return out
}
