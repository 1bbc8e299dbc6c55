package backup

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/pkg/rdap"
)

// rdapSource reads domain registration data. Registration year is a weak
// proxy for founding year, so it is only reported when nothing better is
// available downstream (Merge order puts rdap first for exactly this reason).
type rdapSource struct {
	client rdap.Client
}

// NewRDAPSource wraps an RDAP client as a backup source.
func NewRDAPSource(client rdap.Client) Source {
	return &rdapSource{client: client}
}

func (s *rdapSource) Name() string { return "rdap" }

func (s *rdapSource) Lookup(ctx context.Context, _, domain string) (*model.CompanyEnrichmentData, error) {
	if domain == "" {
		return nil, nil
	}
	resp, err := s.client.Domain(ctx, domain)
	if err != nil {
		return nil, eris.Wrapf(err, "backup: rdap lookup %s", domain)
	}

	data := &model.CompanyEnrichmentData{Domain: domain}
	if org := resp.RegistrantOrg(); org != "" {
		data.Name = org
	}
	if year := resp.RegistrationYear(); year >= 1800 {
		y := year
		data.FoundedYear = &y
	}
	if data.IsEmpty() {
		return nil, nil
	}
	return data, nil
}
