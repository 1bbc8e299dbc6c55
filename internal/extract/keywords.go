package extract

import (
	_ "embed"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/enrich-cli/internal/model"
)

//go:embed industries.yaml
var industriesYAML []byte

type industryTemplate struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

type industryFile struct {
	Industries []industryTemplate `yaml:"industries"`
}

var industryTemplates = loadIndustryTemplates()

func loadIndustryTemplates() []industryTemplate {
	var f industryFile
	if err := yaml.Unmarshal(industriesYAML, &f); err != nil {
		// The template ships inside the binary; a parse failure is a build
		// defect, not a runtime condition.
		zap.L().Error("extract: parse embedded industry templates", zap.Error(err))
		return nil
	}
	return f.Industries
}

var (
	employeeCountRe = regexp.MustCompile(`(?i)\b([\d,]{1,7})\+?\s+employees\b`)
	foundedYearRe   = regexp.MustCompile(`(?i)\b(?:founded|established|since|est\.?)\s+(?:in\s+)?(\d{4})\b`)
)

// keywordExtract is the deterministic fallback used when the model path is
// unavailable or returns unusable output. It only reports what the text
// literally states; absent facts stay absent.
func keywordExtract(content *model.ScrapedContent, companyName, industryHint string) *model.CompanyEnrichmentData {
	data := &model.CompanyEnrichmentData{Name: companyName}

	text := content.Text
	lower := strings.ToLower(text)

	if industryHint != "" {
		data.Industry = strings.ToLower(industryHint)
	} else {
		for _, tpl := range industryTemplates {
			for _, kw := range tpl.Keywords {
				if strings.Contains(lower, kw) {
					data.Industry = tpl.Name
					break
				}
			}
			if data.Industry != "" {
				break
			}
		}
	}

	if m := employeeCountRe.FindStringSubmatch(text); m != nil {
		raw := strings.ReplaceAll(m[1], ",", "")
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			count := n
			data.EmployeeCount = &count
			data.Size = SizeForEmployeeCount(n)
		}
	}

	if m := foundedYearRe.FindStringSubmatch(text); m != nil {
		if year, err := strconv.Atoi(m[1]); err == nil {
			if year >= 1800 && year <= time.Now().Year() {
				data.FoundedYear = &year
			}
		}
	}

	if content.Description != "" {
		data.Description = content.Description
	}

	return data
}

// SizeForEmployeeCount maps a headcount to its size bracket.
func SizeForEmployeeCount(n int) model.CompanySize {
	switch {
	case n <= 0:
		return model.SizeUnknown
	case n <= 10:
		return model.SizeMicro
	case n <= 50:
		return model.SizeSmall
	case n <= 200:
		return model.SizeMedium
	case n <= 500:
		return model.SizeLarge
	case n <= 1000:
		return model.SizeVeryLarge
	default:
		return model.SizeEnterprise
	}
}
