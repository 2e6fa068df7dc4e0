package enrichment

import (
	"strings"

	"shortlink/internal/domain"
)

// AgentInfo is the result of parsing a User-Agent string. Fields that could
// not be determined hold "Unknown".
type AgentInfo struct {
	Browser        string
	BrowserVersion string
	OS             string
	OSVersion      string
	Device         string
	DeviceType     domain.DeviceType
}

// AgentParser extracts browser, OS and device information from User-Agent
// strings using ordered substring matching. The matcher tables are
// immutable, safe for concurrent use.
type AgentParser struct {
	browsers []agentMatcher
	systems  []agentMatcher
	devices  []agentMatcher
}

type agentMatcher struct {
	name  string
	token string
}

// NewAgentParser creates a new AgentParser.
//
// Browser order matters: Edge ships a Chrome-like UA and Chrome a
// Safari-like one, so Edge must match before Chrome and Chrome before
// Safari.
func NewAgentParser() *AgentParser {
	return &AgentParser{
		browsers: []agentMatcher{
			{"Edge", "edg"},
			{"Chrome", "chrome"},
			{"Firefox", "firefox"},
			{"Safari", "safari"},
			{"Opera", "opera"},
		},
		systems: []agentMatcher{
			{"Windows", "windows nt"},
			{"Android", "android"},
			{"iOS", "iphone os"},
			{"iOS", "cpu os"},
			{"macOS", "mac os x"},
			{"Linux", "linux"},
		},
		devices: []agentMatcher{
			{"iPhone", "iphone"},
			{"iPad", "ipad"},
			{"Android Device", "android"},
			{"Windows PC", "windows"},
			{"Mac", "macintosh"},
			{"Linux PC", "linux"},
		},
	}
}

// Parse extracts agent information. An empty or unrecognizable string
// yields all fields "Unknown" — never an error.
func (p *AgentParser) Parse(ua string) AgentInfo {
	info := AgentInfo{
		Browser:        domain.Unknown,
		BrowserVersion: domain.Unknown,
		OS:             domain.Unknown,
		OSVersion:      domain.Unknown,
		Device:         domain.Unknown,
		DeviceType:     domain.DeviceUnknown,
	}
	if strings.TrimSpace(ua) == "" {
		return info
	}

	lower := strings.ToLower(ua)

	for _, m := range p.browsers {
		if strings.Contains(lower, m.token) {
			info.Browser = m.name
			if v := versionAfter(lower, m.token); v != "" {
				info.BrowserVersion = v
			}
			break
		}
	}

	for _, m := range p.systems {
		if strings.Contains(lower, m.token) {
			info.OS = m.name
			if v := versionAfter(lower, m.token); v != "" {
				info.OSVersion = v
			}
			break
		}
	}

	for _, m := range p.devices {
		if strings.Contains(lower, m.token) {
			info.Device = m.name
			break
		}
	}

	if info.Browser == domain.Unknown && info.OS == domain.Unknown && info.Device == domain.Unknown {
		// Nothing recognizable; don't guess Desktop for gibberish.
		return info
	}

	info.DeviceType = p.deviceType(lower)
	return info
}

// deviceType applies the classification rules:
// "mobile" or "iphone" means Mobile; "tablet", "ipad" or Android without
// "mobile" means Tablet; anything else recognizable is Desktop.
func (p *AgentParser) deviceType(lower string) domain.DeviceType {
	switch {
	// Tablets first: iPad user agents also carry a "Mobile/..." build token.
	case strings.Contains(lower, "tablet"), strings.Contains(lower, "ipad"):
		return domain.DeviceTablet
	case strings.Contains(lower, "mobile"), strings.Contains(lower, "iphone"):
		return domain.DeviceMobile
	case strings.Contains(lower, "android"):
		// Android without the "mobile" token is a tablet.
		return domain.DeviceTablet
	default:
		return domain.DeviceDesktop
	}
}

// versionAfter extracts the version token following "<token>/" or
// "<token> ", e.g. "chrome/122.0" or "windows nt 10.0".
func versionAfter(lower, token string) string {
	idx := strings.Index(lower, token)
	if idx < 0 {
		return ""
	}
	rest := lower[idx+len(token):]
	rest = strings.TrimLeft(rest, "/ ")

	var b strings.Builder
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		if (c >= '0' && c <= '9') || c == '.' || c == '_' {
			b.WriteByte(c)
			continue
		}
		break
	}
	return strings.ReplaceAll(strings.Trim(b.String(), "."), "_", ".")
}
