package enrichment

import (
	"net/url"
	"strings"

	"shortlink/internal/domain"
)

// TrafficClassifier classifies traffic sources from referrer URLs and UTM
// parameters. The domain lists are immutable after construction.
type TrafficClassifier struct {
	searchEngines []string
	socialMedia   []string
	emailDomains  []string
	paidMediums   []string
}

// NewTrafficClassifier creates a TrafficClassifier with predefined domain
// lists.
func NewTrafficClassifier() *TrafficClassifier {
	return &TrafficClassifier{
		searchEngines: []string{
			"google.com",
			"bing.com",
			"yahoo.com",
			"duckduckgo.com",
			"baidu.com",
			"yandex.ru",
			"ecosia.org",
		},
		socialMedia: []string{
			"facebook.com",
			"twitter.com",
			"x.com",
			"instagram.com",
			"linkedin.com",
			"pinterest.com",
			"reddit.com",
			"tiktok.com",
			"youtube.com",
			"threads.net",
			"mastodon.social",
		},
		emailDomains: []string{
			"mail.google.com",
			"outlook.live.com",
			"mail.yahoo.com",
		},
		paidMediums: []string{"cpc", "ppc", "paid", "display", "banner"},
	}
}

// Classify derives the referrer domain and the coarse traffic source.
// UTM parameters take precedence over the referrer: an email medium wins,
// then campaign tagging, then the referrer-based categories.
func (c *TrafficClassifier) Classify(referrer string, utm domain.UTM) (domain.TrafficSource, string) {
	refDomain := c.ReferrerDomain(referrer)

	medium := strings.ToLower(strings.TrimSpace(utm.Medium))
	source := strings.ToLower(strings.TrimSpace(utm.Source))

	if medium == "email" || source == "email" {
		return domain.SourceEmail, refDomain
	}
	if utm.Campaign != "" || c.isPaidMedium(medium) {
		return domain.SourceCampaign, refDomain
	}

	if referrer == "" {
		return domain.SourceDirect, ""
	}
	if refDomain == "" {
		// Referrer present but unparseable.
		return domain.SourceUnknown, ""
	}

	for _, d := range c.emailDomains {
		if strings.Contains(refDomain, d) {
			return domain.SourceEmail, refDomain
		}
	}
	for _, d := range c.searchEngines {
		if strings.Contains(refDomain, d) {
			return domain.SourceSearch, refDomain
		}
	}
	for _, d := range c.socialMedia {
		if strings.Contains(refDomain, d) {
			return domain.SourceSocial, refDomain
		}
	}
	return domain.SourceReferral, refDomain
}

// ReferrerDomain extracts the normalized hostname from a referrer URL.
// Returns "" when the referrer is empty or unparseable.
func (c *TrafficClassifier) ReferrerDomain(referrer string) string {
	if referrer == "" {
		return ""
	}
	parsed, err := url.Parse(referrer)
	if err != nil {
		return ""
	}
	hostname := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(hostname, "www.")
}

func (c *TrafficClassifier) isPaidMedium(medium string) bool {
	for _, m := range c.paidMediums {
		if medium == m {
			return true
		}
	}
	return false
}
