package models

// QueueStats reports admission queue state.
type QueueStats struct {
	Depth         int   `json:"depth"`
	InFlight      int   `json:"in_flight"`
	MaxConcurrent int   `json:"max_concurrent"`
	Dispatched    int64 `json:"dispatched"`
	Completed     int64 `json:"completed"`
	Failed        int64 `json:"failed"`
}

// Status is a read-only snapshot of the broker.
type Status struct {
	CacheSize  int64         `json:"cache_size"`
	QueueDepth int           `json:"queue_depth"`
	Cache      CacheStats    `json:"cache"`
	Queue      QueueStats    `json:"queue"`
	Quota      []QuotaStatus `json:"quota"`
	Tiers      []Provider    `json:"tiers"`
}
