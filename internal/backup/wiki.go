package backup

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/pkg/wiki"
)

// wikidataSource searches the Wikidata knowledge graph for the company and
// reports the entity description when the top hit plausibly matches.
type wikidataSource struct {
	client wiki.Client
}

// NewWikidataSource wraps a wiki client as the Wikidata backup source.
func NewWikidataSource(client wiki.Client) Source {
	return &wikidataSource{client: client}
}

func (s *wikidataSource) Name() string { return "wikidata" }

func (s *wikidataSource) Lookup(ctx context.Context, name, _ string) (*model.CompanyEnrichmentData, error) {
	if name == "" {
		return nil, nil
	}
	resp, err := s.client.SearchEntities(ctx, name)
	if err != nil {
		return nil, eris.Wrapf(err, "backup: wikidata search %q", name)
	}
	for _, e := range resp.Search {
		if !labelMatches(e.Label, name) || e.Description == "" {
			continue
		}
		return &model.CompanyEnrichmentData{
			Name:        e.Label,
			Description: e.Description,
		}, nil
	}
	return nil, nil
}

// wikipediaSource fetches the encyclopedia summary for the company page.
type wikipediaSource struct {
	client wiki.Client
}

// NewWikipediaSource wraps a wiki client as the Wikipedia backup source.
func NewWikipediaSource(client wiki.Client) Source {
	return &wikipediaSource{client: client}
}

func (s *wikipediaSource) Name() string { return "wikipedia" }

func (s *wikipediaSource) Lookup(ctx context.Context, name, _ string) (*model.CompanyEnrichmentData, error) {
	if name == "" {
		return nil, nil
	}
	resp, err := s.client.Summary(ctx, name)
	if err != nil {
		return nil, eris.Wrapf(err, "backup: wikipedia summary %q", name)
	}
	if resp.Extract == "" || !labelMatches(resp.Title, name) {
		return nil, nil
	}
	data := &model.CompanyEnrichmentData{
		Name:        resp.Title,
		Description: resp.Extract,
	}
	if resp.ContentURLs.Desktop.Page != "" {
		if data.SocialLinks == nil {
			data.SocialLinks = map[string]string{}
		}
		data.SocialLinks["wikipedia"] = resp.ContentURLs.Desktop.Page
	}
	return data, nil
}

// labelMatches guards against returning a summary for an unrelated topic
// that happens to rank for the query.
func labelMatches(label, query string) bool {
	l := strings.ToLower(strings.TrimSpace(label))
	q := strings.ToLower(strings.TrimSpace(query))
	if l == "" || q == "" {
		return false
	}
	return strings.Contains(l, q) || strings.Contains(q, l)
}
