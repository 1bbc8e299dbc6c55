package model

import "time"

// CostLogEntry records the spend of one enrichment attempt, success or not.
// Entries are append-only and never mutated.
type CostLogEntry struct {
	ID             string     `json:"id"`
	Domain         string     `json:"domain"`
	SearchCalls    int        `json:"search_calls"`
	ScrapeCalls    int        `json:"scrape_calls"`
	RenderCalls    int        `json:"render_calls"`
	AITokensIn     int64      `json:"ai_tokens_in"`
	AITokensOut    int64      `json:"ai_tokens_out"`
	CostUSD        float64    `json:"cost_usd"`
	ReferenceUSD   float64    `json:"reference_usd"` // comparable paid-API cost
	DurationMs     int64      `json:"duration_ms"`
	Success        bool       `json:"success"`
	DataSource     DataSource `json:"data_source,omitempty"`
	DedupHit       bool       `json:"dedup_hit,omitempty"`
	CacheHit       bool       `json:"cache_hit,omitempty"`
	StoredBytes    int        `json:"stored_bytes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// SavingsUSD is the spend avoided versus the reference paid alternative.
func (e CostLogEntry) SavingsUSD() float64 {
	s := e.ReferenceUSD - e.CostUSD
	if s < 0 {
		return 0
	}
	return s
}
