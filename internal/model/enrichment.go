// Package model defines the core data types shared across the enrichment
// pipeline.
package model

import "time"

// DataSource identifies how an enrichment result was produced.
type DataSource string

const (
	DataSourceCache  DataSource = "cache"
	DataSourceLive   DataSource = "live"
	DataSourceHybrid DataSource = "hybrid"
	DataSourceBackup DataSource = "backup"
)

// CompanySize is the closed employee-bracket enumeration.
type CompanySize string

const (
	SizeMicro      CompanySize = "1-10"
	SizeSmall      CompanySize = "11-50"
	SizeMedium     CompanySize = "51-200"
	SizeLarge      CompanySize = "201-500"
	SizeVeryLarge  CompanySize = "501-1000"
	SizeEnterprise CompanySize = "1000+"
	SizeUnknown    CompanySize = "unknown"
)

// ValidSizes lists every accepted CompanySize value.
var ValidSizes = []CompanySize{
	SizeMicro, SizeSmall, SizeMedium, SizeLarge,
	SizeVeryLarge, SizeEnterprise, SizeUnknown,
}

// IsValidSize reports whether s is a member of the closed size enumeration.
func IsValidSize(s CompanySize) bool {
	for _, v := range ValidSizes {
		if s == v {
			return true
		}
	}
	return false
}

// RequestContext carries optional hints and toggles for a single request.
type RequestContext struct {
	IndustryHint string `json:"industry_hint,omitempty"`
	SkipCache    bool   `json:"skip_cache,omitempty"`
	SkipRender   bool   `json:"skip_render,omitempty"`
}

// EnrichmentRequest is the immutable input to the pipeline. At least one of
// Name, Domain, or URL must be set.
type EnrichmentRequest struct {
	Name    string          `json:"name,omitempty"`
	Domain  string          `json:"domain,omitempty"`
	URL     string          `json:"url,omitempty"`
	Context *RequestContext `json:"context,omitempty"`
}

// Empty reports whether the request carries no identifier at all.
func (r EnrichmentRequest) Empty() bool {
	return r.Name == "" && r.Domain == "" && r.URL == ""
}

// CompanyEnrichmentData is the canonical enrichment output. Fields for which
// nothing is known stay at their zero value (or nil for pointers) and are
// omitted from JSON; the pipeline never writes a guessed value.
type CompanyEnrichmentData struct {
	// Identity.
	Name    string `json:"name,omitempty"`
	Domain  string `json:"domain,omitempty"`
	Website string `json:"website,omitempty"`

	// Descriptive.
	Description  string      `json:"description,omitempty"`
	Industry     string      `json:"industry,omitempty"`
	Size         CompanySize `json:"size,omitempty"`
	Headquarters string      `json:"headquarters,omitempty"`
	FoundedYear  *int        `json:"founded_year,omitempty"`
	EmployeeCount *int       `json:"employee_count,omitempty"`
	Revenue      string      `json:"revenue,omitempty"`
	FundingStage string      `json:"funding_stage,omitempty"`

	// Contact.
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`

	// Derived signals.
	TechStack   []string          `json:"tech_stack,omitempty"`
	News        []NewsItem        `json:"news,omitempty"`
	SocialLinks map[string]string `json:"social_links,omitempty"`

	Confidence  int        `json:"confidence"`
	DataSource  DataSource `json:"data_source"`
	LastUpdated time.Time  `json:"last_updated"`
}

// NewsItem is one recent-news signal attached to a profile.
type NewsItem struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
	Date  string `json:"date,omitempty"`
}

// IsEmpty reports whether no substantive field was populated. Confidence,
// source, and timestamps are bookkeeping, not data.
func (d *CompanyEnrichmentData) IsEmpty() bool {
	if d == nil {
		return true
	}
	return d.Name == "" && d.Description == "" && d.Industry == "" &&
		(d.Size == "" || d.Size == SizeUnknown) && d.Headquarters == "" &&
		d.FoundedYear == nil && d.EmployeeCount == nil && d.Revenue == "" &&
		d.FundingStage == "" && d.Email == "" && d.Phone == "" &&
		len(d.TechStack) == 0 && len(d.News) == 0 && len(d.SocialLinks) == 0
}

// FieldCount returns the number of populated data points, used for the
// data_points_extracted response metric.
func (d *CompanyEnrichmentData) FieldCount() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, set := range []bool{
		d.Name != "", d.Domain != "", d.Website != "", d.Description != "",
		d.Industry != "", d.Size != "" && d.Size != SizeUnknown,
		d.Headquarters != "", d.FoundedYear != nil, d.EmployeeCount != nil,
		d.Revenue != "", d.FundingStage != "", d.Email != "", d.Phone != "",
		len(d.TechStack) > 0, len(d.News) > 0, len(d.SocialLinks) > 0,
	} {
		if set {
			n++
		}
	}
	return n
}

// Merge copies non-empty fields from other into d. Scalars from other win
// when set; TechStack is unioned with duplicates removed; SocialLinks keys
// from other win.
func (d *CompanyEnrichmentData) Merge(other *CompanyEnrichmentData) {
	if other == nil {
		return
	}
	if other.Name != "" {
		d.Name = other.Name
	}
	if other.Domain != "" {
		d.Domain = other.Domain
	}
	if other.Website != "" {
		d.Website = other.Website
	}
	if other.Description != "" {
		d.Description = other.Description
	}
	if other.Industry != "" {
		d.Industry = other.Industry
	}
	if other.Size != "" && other.Size != SizeUnknown {
		d.Size = other.Size
	}
	if other.Headquarters != "" {
		d.Headquarters = other.Headquarters
	}
	if other.FoundedYear != nil {
		d.FoundedYear = other.FoundedYear
	}
	if other.EmployeeCount != nil {
		d.EmployeeCount = other.EmployeeCount
	}
	if other.Revenue != "" {
		d.Revenue = other.Revenue
	}
	if other.FundingStage != "" {
		d.FundingStage = other.FundingStage
	}
	if other.Email != "" {
		d.Email = other.Email
	}
	if other.Phone != "" {
		d.Phone = other.Phone
	}
	d.TechStack = unionStrings(d.TechStack, other.TechStack)
	if len(other.News) > 0 {
		d.News = append(d.News, other.News...)
	}
	if len(other.SocialLinks) > 0 {
		if d.SocialLinks == nil {
			d.SocialLinks = make(map[string]string, len(other.SocialLinks))
		}
		for k, v := range other.SocialLinks {
			d.SocialLinks[k] = v
		}
	}
}

func unionStrings(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
