package models

import "time"

// CacheEntry stores a scored result under its fingerprint.
type CacheEntry struct {
	Key       string      `json:"key"`
	Value     ScoreResult `json:"value"`
	CreatedAt time.Time   `json:"created_at"`
}

// CacheStats reports cache performance metrics.
type CacheStats struct {
	Entries   int64 `json:"entries"`
	Capacity  int   `json:"capacity"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}
