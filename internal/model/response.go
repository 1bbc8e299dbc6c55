package model

// CostBreakdown is the per-request spend summary returned to callers.
type CostBreakdown struct {
	SearchAPICalls int     `json:"search_api_calls"`
	ScrapingCalls  int     `json:"scraping_calls"`
	AITokensUsed   int64   `json:"ai_tokens_used"`
	TotalCostUSD   float64 `json:"total_cost_usd"`
}

// StorageMetrics reports dedup/archive activity for a request.
type StorageMetrics struct {
	DedupHit    bool   `json:"dedup_hit"`
	ContentHash string `json:"content_hash,omitempty"`
	StoredBytes int    `json:"stored_bytes,omitempty"`
}

// ResponseMetrics carries quality and timing figures for a request.
type ResponseMetrics struct {
	DurationMs          int64           `json:"duration_ms"`
	DataPointsExtracted int             `json:"data_points_extracted"`
	ConfidenceScore     int             `json:"confidence_score"`
	Storage             *StorageMetrics `json:"storage,omitempty"`
}

// EnrichmentResponse is the full result of one EnrichCompany call. Success
// alone does not imply high quality: callers must read Confidence and
// DataSource on the payload to judge it.
type EnrichmentResponse struct {
	Success bool                   `json:"success"`
	Data    *CompanyEnrichmentData `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Cost    CostBreakdown          `json:"cost"`
	Metrics ResponseMetrics        `json:"metrics"`
}
