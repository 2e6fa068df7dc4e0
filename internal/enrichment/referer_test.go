package enrichment

import (
	"context"
	"testing"

	"shortlink/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestTrafficClassifier_Classify(t *testing.T) {
	c := NewTrafficClassifier()

	tests := []struct {
		name       string
		referrer   string
		utm        domain.UTM
		wantSource domain.TrafficSource
		wantDomain string
	}{
		{"empty referrer is direct", "", domain.UTM{}, domain.SourceDirect, ""},
		{"search engine", "https://www.google.com/search?q=links", domain.UTM{}, domain.SourceSearch, "google.com"},
		{"social", "https://twitter.com/some/status", domain.UTM{}, domain.SourceSocial, "twitter.com"},
		{"plain site is referral", "https://blog.example.org/post", domain.UTM{}, domain.SourceReferral, "blog.example.org"},
		{"utm email medium wins", "https://www.google.com/", domain.UTM{Medium: "email"}, domain.SourceEmail, "google.com"},
		{"utm email source wins", "", domain.UTM{Source: "email"}, domain.SourceEmail, ""},
		{"webmail referrer", "https://mail.google.com/mail/u/0/", domain.UTM{}, domain.SourceEmail, "mail.google.com"},
		{"campaign tag", "", domain.UTM{Campaign: "spring-sale"}, domain.SourceCampaign, ""},
		{"paid medium", "https://example.com", domain.UTM{Medium: "cpc"}, domain.SourceCampaign, "example.com"},
		{"unparseable referrer", "http://%zz", domain.UTM{}, domain.SourceUnknown, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source, refDomain := c.Classify(tt.referrer, tt.utm)
			assert.Equal(t, tt.wantSource, source)
			assert.Equal(t, tt.wantDomain, refDomain)
		})
	}
}

func TestNoopLocator(t *testing.T) {
	loc := NoopLocator{}.Locate(context.Background(), "8.8.8.8")

	assert.Equal(t, domain.Unknown, loc.Country)
	assert.Equal(t, domain.Unknown, loc.City)
}
