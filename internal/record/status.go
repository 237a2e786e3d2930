package record

import "strings"

// Status is the air quality category for an IMECA value.
type Status string

const (
	StatusGood         Status = "Good"
	StatusModerate     Status = "Moderate"
	StatusBad          Status = "Bad"
	StatusVeryBad      Status = "VeryBad"
	StatusExtremelyBad Status = "ExtremelyBad"
)

// MinIndex and MaxIndex bound every accepted IMECA value.
const (
	MinIndex = 0
	MaxIndex = 300
)

// Classify maps an IMECA value to its status. Values above 200 are
// ExtremelyBad; negative values are treated as Good.
func Classify(index int) Status {
	switch {
	case index <= 50:
		return StatusGood
	case index <= 100:
		return StatusModerate
	case index <= 150:
		return StatusBad
	case index <= 200:
		return StatusVeryBad
	default:
		return StatusExtremelyBad
	}
}

// ValidIndex reports whether v is inside the accepted IMECA range.
func ValidIndex(v int) bool {
	return v >= MinIndex && v <= MaxIndex
}

var statusLabels = map[Status]string{
	StatusGood:         "Buena",
	StatusModerate:     "Regular",
	StatusBad:          "Mala",
	StatusVeryBad:      "Muy Mala",
	StatusExtremelyBad: "Extremadamente Mala",
}

var statusColors = map[Status]string{
	StatusGood:         "#00E400",
	StatusModerate:     "#FFFF00",
	StatusBad:          "#FF7E00",
	StatusVeryBad:      "#FF0000",
	StatusExtremelyBad: "#7E0023",
}

// Label returns the Spanish label shown by the monitoring site.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Color returns the hex colour used for s on maps and gauges.
func (s Status) Color() string {
	if c, ok := statusColors[s]; ok {
		return c
	}
	return "#808080"
}

// ParseLabel maps a Spanish label ("Muy Mala", "regular") to a Status.
func ParseLabel(label string) (Status, bool) {
	label = strings.Join(strings.Fields(strings.ToLower(label)), " ")
	// Longest labels first so "muy mala" is not read as "mala".
	for _, s := range []Status{StatusExtremelyBad, StatusVeryBad, StatusModerate, StatusGood, StatusBad} {
		if strings.ToLower(statusLabels[s]) == label {
			return s, true
		}
	}
	return "", false
}
