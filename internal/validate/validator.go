// Package validate checks an enrichment profile for internal consistency and
// real-world plausibility, and scores confidence from the outcome.
package validate

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sells-group/enrich-cli/internal/model"
)

// Scoring coefficients. Confidence starts at the ceiling and is docked per
// finding; bonus signals claw a little back.
const (
	scoreStart            = 100
	penaltyError          = 20
	penaltyWarning        = 5
	penaltyMissingCore    = 10 // name, description, industry
	penaltyMissingMinor   = 5  // size, headquarters, contact
	bonusSignal           = 5  // tech stack, news, social links, founded year
	EscalationThreshold   = 30
	reachabilityTimeout   = 5 * time.Second
	minCorroboratedFields = 4
)

// placeholderEmails are shapes people type into forms, never real contacts.
var placeholderEmails = map[string]struct{}{
	"test@test.com":       {},
	"test@example.com":    {},
	"email@example.com":   {},
	"info@example.com":    {},
	"admin@admin.com":     {},
	"noreply@example.com": {},
}

var (
	phoneRe            = regexp.MustCompile(`^\+?[\d\s().-]{7,20}$`)
	phoneDigitsRe      = regexp.MustCompile(`\d`)
	placeholderPhoneRe = regexp.MustCompile(`^(\+?1?[\s.-]?)?\(?555\)?[\s.-]?555`)
)

// boilerplateDescriptions match filler a template site ships with.
var boilerplateDescriptions = []string{
	"lorem ipsum",
	"welcome to our website",
	"under construction",
	"coming soon",
	"this is a default",
}

// Validator runs the check battery. The HTTP client is injectable for tests.
type Validator struct {
	http     *http.Client
	validate *validator.Validate
}

// New creates a Validator with production defaults.
func New() *Validator {
	return &Validator{
		http:     &http.Client{Timeout: reachabilityTimeout},
		validate: validator.New(),
	}
}

// WithHTTPClient overrides the reachability client.
func (v *Validator) WithHTTPClient(hc *http.Client) *Validator {
	v.http = hc
	return v
}

// WithTimeout overrides the reachability probe timeout. Non-positive values
// keep the default.
func (v *Validator) WithTimeout(d time.Duration) *Validator {
	if d > 0 {
		v.http.Timeout = d
	}
	return v
}

// Validate runs every check against data and returns findings plus a
// confidence score. IsValid means zero errors; warnings only cost points.
func (v *Validator) Validate(ctx context.Context, data *model.CompanyEnrichmentData) model.ValidationResult {
	res := model.ValidationResult{Checks: map[string]bool{}}
	if data == nil || data.IsEmpty() {
		res.Errors = append(res.Errors, "no data to validate")
		res.Confidence = 0
		return res
	}

	v.checkReachability(ctx, data, &res)
	v.checkEmail(data, &res)
	v.checkPhone(data, &res)
	v.checkConsistency(data, &res)
	v.checkReliability(data, &res)

	res.Confidence = v.score(data, &res)
	res.IsValid = len(res.Errors) == 0
	return res
}

func (v *Validator) checkReachability(ctx context.Context, data *model.CompanyEnrichmentData, res *model.ValidationResult) {
	if data.Domain == "" {
		return
	}
	ok := v.domainReachable(ctx, data.Domain)
	res.Checks[model.CheckDomainReachable] = ok
	if !ok {
		res.Errors = append(res.Errors, fmt.Sprintf("domain %s is unreachable", data.Domain))
	}
}

// domainReachable issues a HEAD against https://domain. Anything below 500
// counts as existing: auth walls and bot blocks still prove the host is real.
// Servers that reject HEAD outright get one GET retry.
func (v *Validator) domainReachable(ctx context.Context, domain string) bool {
	target := "https://" + domain
	status, err := v.probe(ctx, http.MethodHead, target)
	if err == nil && status == http.StatusMethodNotAllowed {
		status, err = v.probe(ctx, http.MethodGet, target)
	}
	return err == nil && status < 500
}

func (v *Validator) probe(ctx context.Context, method, target string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return 0, err
	}
	resp, err := v.http.Do(req)
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

func (v *Validator) checkEmail(data *model.CompanyEnrichmentData, res *model.ValidationResult) {
	if data.Email == "" {
		return
	}
	lower := strings.ToLower(data.Email)
	if _, placeholder := placeholderEmails[lower]; placeholder {
		res.Checks[model.CheckEmailFormat] = false
		res.Warnings = append(res.Warnings, fmt.Sprintf("email %s looks like a placeholder", data.Email))
		return
	}
	if err := v.validate.Var(data.Email, "email"); err != nil {
		res.Checks[model.CheckEmailFormat] = false
		res.Warnings = append(res.Warnings, fmt.Sprintf("email %s is malformed", data.Email))
		return
	}
	res.Checks[model.CheckEmailFormat] = true
}

func (v *Validator) checkPhone(data *model.CompanyEnrichmentData, res *model.ValidationResult) {
	if data.Phone == "" {
		return
	}
	digits := len(phoneDigitsRe.FindAllString(data.Phone, -1))
	if !phoneRe.MatchString(data.Phone) || digits < 7 || placeholderPhoneRe.MatchString(data.Phone) {
		res.Checks[model.CheckPhoneFormat] = false
		res.Warnings = append(res.Warnings, fmt.Sprintf("phone %s is implausible", data.Phone))
		return
	}
	res.Checks[model.CheckPhoneFormat] = true
}

func (v *Validator) checkConsistency(data *model.CompanyEnrichmentData, res *model.ValidationResult) {
	consistent := true

	if data.EmployeeCount != nil && data.Size != "" && data.Size != model.SizeUnknown {
		if !countWithinBracket(*data.EmployeeCount, data.Size) {
			consistent = false
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("employee count %d falls outside size bracket %s", *data.EmployeeCount, data.Size))
		}
	}

	if data.FoundedYear != nil {
		year := *data.FoundedYear
		if year < 1800 || year > time.Now().Year() {
			consistent = false
			res.Warnings = append(res.Warnings, fmt.Sprintf("founded year %d is out of range", year))
		}
	}

	if data.Website != "" && data.Domain != "" {
		if host := hostOf(data.Website); host != "" && !hostMatchesDomain(host, data.Domain) {
			consistent = false
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("website host %s does not match domain %s", host, data.Domain))
		}
	}

	if data.Description != "" {
		lower := strings.ToLower(data.Description)
		for _, b := range boilerplateDescriptions {
			if strings.Contains(lower, b) {
				consistent = false
				res.Warnings = append(res.Warnings, "description looks like template boilerplate")
				break
			}
		}
	}

	res.Checks[model.CheckConsistency] = consistent
}

// checkReliability flags profiles that were rebuilt from backup sources or
// carry too few corroborating data points to trust on their own.
func (v *Validator) checkReliability(data *model.CompanyEnrichmentData, res *model.ValidationResult) {
	if data.DataSource == model.DataSourceBackup {
		res.Checks[model.CheckSourceReliable] = false
		res.Warnings = append(res.Warnings, "profile was rebuilt from backup sources")
		return
	}
	if data.FieldCount() < minCorroboratedFields {
		res.Checks[model.CheckSourceReliable] = false
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("only %d data points corroborate this profile", data.FieldCount()))
		return
	}
	res.Checks[model.CheckSourceReliable] = true
}

func (v *Validator) score(data *model.CompanyEnrichmentData, res *model.ValidationResult) int {
	score := scoreStart
	score -= penaltyError * len(res.Errors)
	score -= penaltyWarning * len(res.Warnings)

	for _, missing := range []bool{data.Name == "", data.Description == "", data.Industry == ""} {
		if missing {
			score -= penaltyMissingCore
		}
	}
	for _, missing := range []bool{
		data.Size == "" || data.Size == model.SizeUnknown,
		data.Headquarters == "",
		data.Email == "" && data.Phone == "",
	} {
		if missing {
			score -= penaltyMissingMinor
		}
	}

	for _, bonus := range []bool{
		len(data.TechStack) > 0,
		len(data.News) > 0,
		len(data.SocialLinks) > 0,
		data.FoundedYear != nil,
	} {
		if bonus {
			score += bonusSignal
		}
	}

	if score < 0 {
		return 0
	}
	if score > scoreStart {
		return scoreStart
	}
	return score
}

// ShouldEscalate reports whether a primary result is weak enough to discard
// in favour of backup sources. threshold is the confidence floor; callers
// pass EscalationThreshold unless configured otherwise.
func ShouldEscalate(res model.ValidationResult, threshold int) bool {
	return !res.IsValid && res.Confidence < threshold
}

func countWithinBracket(n int, size model.CompanySize) bool {
	switch size {
	case model.SizeMicro:
		return n >= 1 && n <= 10
	case model.SizeSmall:
		return n >= 11 && n <= 50
	case model.SizeMedium:
		return n >= 51 && n <= 200
	case model.SizeLarge:
		return n >= 201 && n <= 500
	case model.SizeVeryLarge:
		return n >= 501 && n <= 1000
	case model.SizeEnterprise:
		return n > 1000
	default:
		return true
	}
}

func hostOf(website string) string {
	u, err := url.Parse(website)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func hostMatchesDomain(host, domain string) bool {
	host = strings.TrimPrefix(host, "www.")
	domain = strings.ToLower(strings.TrimPrefix(domain, "www."))
	return host == domain || strings.HasSuffix(host, "."+domain)
}
