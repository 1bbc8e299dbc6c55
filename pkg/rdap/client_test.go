package rdap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRDAP = `{
	"ldhName": "acme.com",
	"events": [
		{"eventAction": "registration", "eventDate": "2001-05-14T04:00:00Z"},
		{"eventAction": "expiration", "eventDate": "2027-05-14T04:00:00Z"}
	],
	"entities": [
		{
			"roles": ["registrant"],
			"vcardArray": ["vcard", [
				["version", {}, "text", "4.0"],
				["fn", {}, "text", "Domain Admin"],
				["org", {}, "text", "Acme Incorporated"]
			]]
		},
		{
			"roles": ["technical"],
			"vcardArray": ["vcard", [["org", {}, "text", "Hosting Co"]]]
		}
	]
}`

func TestClient_Domain(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/domain/acme.com", r.URL.Path)
		_, _ = w.Write([]byte(sampleRDAP))
	}))
	defer ts.Close()

	c := NewClient(WithBaseURL(ts.URL))
	resp, err := c.Domain(context.Background(), "acme.com")
	require.NoError(t, err)

	assert.Equal(t, "acme.com", resp.LDHName)
	assert.Equal(t, 2001, resp.RegistrationYear())
	// Registrant org wins over the technical contact.
	assert.Equal(t, "Acme Incorporated", resp.RegistrantOrg())
}

func TestDomainResponse_RegistrationYear_DateOnly(t *testing.T) {
	r := &DomainResponse{Events: []Event{
		{Action: "registration", Date: "1998-03-20"},
	}}
	assert.Equal(t, 1998, r.RegistrationYear())
}

func TestDomainResponse_RegistrationYear_Missing(t *testing.T) {
	r := &DomainResponse{Events: []Event{
		{Action: "expiration", Date: "2027-01-01T00:00:00Z"},
	}}
	assert.Zero(t, r.RegistrationYear())
}

func TestDomainResponse_RegistrantOrg_FallsBackToFN(t *testing.T) {
	r := &DomainResponse{Entities: []Entity{
		{
			Roles: []string{"registrant"},
			VCard: []any{"vcard", []any{
				[]any{"fn", map[string]any{}, "text", "Jordan Smith"},
			}},
		},
	}}
	assert.Equal(t, "Jordan Smith", r.RegistrantOrg())
}

func TestClient_Domain_NotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	c := NewClient(WithBaseURL(ts.URL))
	_, err := c.Domain(context.Background(), "nope.invalid")
	require.Error(t, err)
}
