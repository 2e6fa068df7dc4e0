package domain

import "time"

// Unknown is the degraded value for enrichment fields that could not be
// resolved. Enrichment failure never drops a click record.
const Unknown = "Unknown"

// DeviceType classifies the device a click came from.
type DeviceType string

const (
	DeviceDesktop DeviceType = "Desktop"
	DeviceMobile  DeviceType = "Mobile"
	DeviceTablet  DeviceType = "Tablet"
	DeviceUnknown DeviceType = Unknown
)

// TrafficSource is the coarse classification of how a visitor arrived.
type TrafficSource string

const (
	SourceDirect   TrafficSource = "Direct"
	SourceReferral TrafficSource = "Referral"
	SourceSocial   TrafficSource = "Social"
	SourceSearch   TrafficSource = "Search"
	SourceEmail    TrafficSource = "Email"
	SourceCampaign TrafficSource = "Campaign"
	SourceUnknown  TrafficSource = Unknown
)

// UTM carries the campaign parameters captured from the request URL.
type UTM struct {
	Source   string `json:"source,omitempty"`
	Medium   string `json:"medium,omitempty"`
	Campaign string `json:"campaign,omitempty"`
	Term     string `json:"term,omitempty"`
	Content  string `json:"content,omitempty"`
}

// ClickCapture is the raw tracking record handed from the redirect path to
// the ingestion pipeline. IP, session and user agent are required at
// ingestion; everything else is optional.
type ClickCapture struct {
	LinkID    int64
	Code      string
	ClickedAt time.Time
	IPAddress string
	SessionID string
	UserAgent string
	Referrer  string
	UTM       UTM
}

// ClickEvent is one immutable record per successful resolution. Enriched
// fields degrade to Unknown when enrichment fails.
type ClickEvent struct {
	ID        int64
	LinkID    int64
	ClickedAt time.Time

	// Raw capture
	IPAddress string
	SessionID string
	UserAgent string
	Referrer  string
	UTM       UTM

	// Enriched
	Country        string
	City           string
	Browser        string
	OS             string
	Device         string
	DeviceType     DeviceType
	ReferrerDomain string
	TrafficSource  TrafficSource
}

// GroupCount is one bucket of a group-by-count aggregation.
type GroupCount struct {
	Value string
	Count int64
}

// BucketCount is one time bucket of a daily or hourly aggregation.
type BucketCount struct {
	Bucket time.Time
	Count  int64
}

// HourCount is one hour-of-day bucket (0-23) of an hourly aggregation.
type HourCount struct {
	Hour  int
	Count int64
}

// DateRange is an inclusive-on-both-ends time range.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Validate rejects ranges with start after end.
func (r DateRange) Validate() error {
	if r.Start.After(r.End) {
		return ErrInvalidArgument
	}
	return nil
}
