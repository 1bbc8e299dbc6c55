// Package extract turns cleaned page content into a structured company
// profile. The primary path is a schema-constrained model call; a keyword
// fallback covers model failures so an enrichment never dies on extraction.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/pkg/anthropic"
)

const (
	// maxPromptChars bounds how much cleaned text goes into the prompt.
	maxPromptChars = 3000
	maxTokens      = 1024
)

// extractionResult is the shape the model must produce. The schema generated
// from it is embedded in the prompt so the response stays machine-parseable.
type extractionResult struct {
	Name          string   `json:"name" jsonschema:"description=Official company name"`
	Description   string   `json:"description" jsonschema:"description=One or two sentence summary of what the company does"`
	Industry      string   `json:"industry" jsonschema:"description=Primary industry in lowercase"`
	Size          string   `json:"size" jsonschema:"enum=1-10,enum=11-50,enum=51-200,enum=201-500,enum=501-1000,enum=1000+,enum=unknown"`
	EmployeeCount *int     `json:"employee_count" jsonschema:"description=Exact employee count if the text states one"`
	FoundedYear   *int     `json:"founded_year"`
	Headquarters  string   `json:"headquarters" jsonschema:"description=City and country of the main office"`
	Revenue       string   `json:"revenue" jsonschema:"description=Stated revenue or revenue range"`
	FundingStage  string   `json:"funding_stage"`
	Email         string   `json:"email" jsonschema:"description=Primary contact email found on the page"`
	Phone         string   `json:"phone"`
	TechStack     []string `json:"tech_stack" jsonschema:"description=Technologies the company builds with or sells"`
}

// responseSchema is generated once; the reflector settings keep the schema
// self-contained and closed so the model cannot add fields.
var responseSchema = generateSchema()

func generateSchema() string {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(&extractionResult{})
	b, err := json.Marshal(schema)
	if err != nil {
		zap.L().Error("extract: marshal response schema", zap.Error(err))
		return "{}"
	}
	return string(b)
}

// Engine runs extraction over scraped content.
type Engine struct {
	ai       anthropic.Client
	model    string
	disabled bool
}

// NewEngine creates an extraction engine. A nil client disables the model
// path entirely and every call takes the keyword fallback.
func NewEngine(ai anthropic.Client, modelName string) *Engine {
	return &Engine{ai: ai, model: modelName, disabled: ai == nil}
}

// Extract produces a partial company profile from cleaned page content,
// along with the token usage incurred. Model failures and schema violations
// degrade to the keyword fallback rather than failing the pipeline.
func (e *Engine) Extract(ctx context.Context, content *model.ScrapedContent, companyName, industryHint string) (*model.CompanyEnrichmentData, anthropic.TokenUsage, error) {
	if content == nil || strings.TrimSpace(content.Text) == "" {
		return nil, anthropic.TokenUsage{}, eris.New("extract: no content to extract from")
	}

	if e.disabled {
		return keywordExtract(content, companyName, industryHint), anthropic.TokenUsage{}, nil
	}

	data, usage, err := e.modelExtract(ctx, content, companyName, industryHint)
	if err != nil {
		zap.L().Warn("extract: model path failed, using keyword fallback",
			zap.String("company", companyName), zap.Error(err))
		return keywordExtract(content, companyName, industryHint), usage, nil
	}
	return data, usage, nil
}

func (e *Engine) modelExtract(ctx context.Context, content *model.ScrapedContent, companyName, industryHint string) (*model.CompanyEnrichmentData, anthropic.TokenUsage, error) {
	text := content.Text
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars]
	}

	hint := ""
	if industryHint != "" {
		hint = fmt.Sprintf("\nThe caller believes the industry is %q; confirm or correct from the text.", industryHint)
	}

	prompt := fmt.Sprintf(`Extract structured company data from this website text for %q.%s

Respond with a single JSON object matching this schema exactly:
%s

Rules:
- Only report facts stated in the text. Use "" / null for anything absent.
- size must be one of the enumerated brackets; use "unknown" when the text gives no headcount signal.
- Do not include commentary outside the JSON object.

Website text:
%s`, companyName, hint, responseSchema, text)

	temp := 0.0
	resp, err := e.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       e.model,
		MaxTokens:   maxTokens,
		Temperature: &temp,
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, anthropic.TokenUsage{}, eris.Wrap(err, "extract: model call")
	}
	usage := resp.Usage
	usage.LogUsage(resp.Model, "extract")

	var result extractionResult
	cleaned := cleanJSONFromText(resp.Text)
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, usage, eris.Wrap(err, "extract: parse model response")
	}

	data := resultToData(&result, companyName)
	return data, usage, nil
}

// resultToData maps the model payload onto the canonical profile, dropping
// out-of-range values instead of repairing them.
func resultToData(r *extractionResult, companyName string) *model.CompanyEnrichmentData {
	data := &model.CompanyEnrichmentData{
		Name:         strings.TrimSpace(r.Name),
		Description:  strings.TrimSpace(r.Description),
		Industry:     strings.ToLower(strings.TrimSpace(r.Industry)),
		Headquarters: strings.TrimSpace(r.Headquarters),
		Revenue:      strings.TrimSpace(r.Revenue),
		FundingStage: strings.TrimSpace(r.FundingStage),
		Email:        strings.TrimSpace(r.Email),
		Phone:        strings.TrimSpace(r.Phone),
	}
	if data.Name == "" {
		data.Name = companyName
	}

	if size := model.CompanySize(r.Size); model.IsValidSize(size) && size != model.SizeUnknown {
		data.Size = size
	}
	if r.EmployeeCount != nil && *r.EmployeeCount > 0 {
		data.EmployeeCount = r.EmployeeCount
		if data.Size == "" {
			data.Size = SizeForEmployeeCount(*r.EmployeeCount)
		}
	}
	if r.FoundedYear != nil && *r.FoundedYear >= 1800 && *r.FoundedYear <= time.Now().Year() {
		data.FoundedYear = r.FoundedYear
	}
	for _, t := range r.TechStack {
		t = strings.TrimSpace(strings.ToLower(t))
		if t != "" {
			data.TechStack = append(data.TechStack, t)
		}
	}
	return data
}

// cleanJSONFromText strips markdown code fences and leading prose so the
// response parses even when the model wraps the object.
func cleanJSONFromText(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	text = strings.TrimSpace(text)

	if !strings.HasPrefix(text, "{") {
		if i := strings.Index(text, "{"); i >= 0 {
			if j := strings.LastIndex(text, "}"); j > i {
				text = text[i : j+1]
			}
		}
	}
	return text
}
