package record

// Origin tells whether a record came from a real page or was synthesized.
type Origin string

const (
	OriginReal      Origin = "real"
	OriginSynthetic Origin = "synthetic"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Reading is an IMECA observation for one monitoring station.
type Reading struct {
	Station          string       `json:"station"`
	IndexValue       int          `json:"index_value"`
	Status           Status       `json:"status"`
	StatusOverridden bool         `json:"status_overridden,omitempty"`
	Coordinates      *Coordinates `json:"coordinates,omitempty"`
	ObservedAt       string       `json:"observed_at"`
	Origin           Origin       `json:"origin"`
}

// WaterUnit is the unit reported by the reservoir authority (metres above sea level).
const WaterUnit = "msnm"

// WaterLevel is a reservoir surface elevation reading.
type WaterLevel struct {
	ElevationMeters float64 `json:"elevation_meters"`
	Unit            string  `json:"unit"`
	ObservedAt      string  `json:"observed_at"`
	Origin          Origin  `json:"origin"`
	EvidenceSnippet string  `json:"evidence_snippet,omitempty"`
}

// NewsItem is a single headline from a news topic feed.
//
// Processed is true only when AISummary was produced by the remote
// summarizer; otherwise AISummary holds the (possibly truncated) description.
type NewsItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
	Published   string `json:"published"`
	Source      string `json:"source"`
	Topic       string `json:"topic,omitempty"`
	AISummary   string `json:"ai_summary"`
	Processed   bool   `json:"processed"`
	IsRumor     bool   `json:"is_rumor"`
	Error       string `json:"error,omitempty"`
}

// CacheEntry is the on-disk shape of a daily cache file.
type CacheEntry[T any] struct {
	Date string `json:"date"`
	Data T      `json:"data"`
}

// WaterHistoryPoint is one day of a reservoir level trend, as a percentage of capacity.
type WaterHistoryPoint struct {
	Date    string  `json:"date"`
	Percent float64 `json:"percent"`
}
