package model

// Check names for ValidationResult.Checks.
const (
	CheckDomainReachable = "domain_reachable"
	CheckEmailFormat     = "email_format"
	CheckPhoneFormat     = "phone_format"
	CheckConsistency     = "consistency"
	CheckSourceReliable  = "source_reliable"
)

// ValidationResult is the outcome of validating an enrichment result.
// Confidence is always an integer in [0, 100]. IsValid is true iff there
// are zero hard errors; warnings alone never invalidate a result.
type ValidationResult struct {
	IsValid    bool            `json:"is_valid"`
	Confidence int             `json:"confidence"`
	Errors     []string        `json:"errors,omitempty"`
	Warnings   []string        `json:"warnings,omitempty"`
	Checks     map[string]bool `json:"checks"`
}
