package database

// AirRow is a stored station reading.
type AirRow struct {
	ID           int64
	RecordedDate string
	Station      string
	IndexValue   int
	Status       string
	Origin       string
	Lat          *float64
	Lon          *float64
	ObservedAt   *string
	RecordedAt   *string
}

// DailyAir aggregates one day of readings.
type DailyAir struct {
	Date     string  `json:"date"`
	MaxIndex int     `json:"max_index"`
	AvgIndex float64 `json:"avg_index"`
	Worst    string  `json:"worst_station"`
	Readings int     `json:"readings"`
}

// WaterRow is a stored reservoir level.
type WaterRow struct {
	ID           int64   `json:"-"`
	RecordedDate string  `json:"date"`
	Elevation    float64 `json:"elevation_meters"`
	Origin       string  `json:"origin"`
	Evidence     *string `json:"evidence_snippet,omitempty"`
	ObservedAt   *string `json:"observed_at,omitempty"`
}

// Briefing is a generated daily briefing.
type Briefing struct {
	ID           int64
	Date         string
	Headline     string
	BodyMarkdown string
	GeneratedAt  *string
}

// RunReport records how a dataset request was resolved.
type RunReport struct {
	ID        int64
	Dataset   string
	Outcome   string // "ok", "degraded" or "error"
	ItemCount int
	Error     *string
	RunAt     *string
}

// Stats contains aggregate database statistics.
type Stats struct {
	AirReadings     int
	RealAirReadings int
	WaterLevels     int
	RealWaterLevels int
	DaysRecorded    int
	Briefings       int
	Runs            int
	DegradedRuns    int
	FailedRuns      int
}
