package models

import "time"

// QuotaStatus shows current usage of a provider against its daily limit.
type QuotaStatus struct {
	Provider  Provider  `json:"provider"`
	Used      int64     `json:"used"`
	Pending   int64     `json:"pending"`
	Limit     int64     `json:"limit"`
	Remaining int64     `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}
