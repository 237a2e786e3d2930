// Package station holds the registry of ZMG air monitoring stations.
package station

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/gdlinsight/gdlinsight/internal/record"
)

// Profile parameterizes the synthetic IMECA distribution for a station.
type Profile struct {
	Mean   float64
	StdDev float64
}

var (
	// South of the metro area usually reads worse.
	profileSouth = Profile{Mean: 105, StdDev: 15}
	profileNorth = Profile{Mean: 45, StdDev: 10}
	profileMid   = Profile{Mean: 70, StdDev: 20}
)

// Station is a monitoring station with its location.
type Station struct {
	Name    string
	Coords  record.Coordinates
	Profile Profile
}

// Registry is an ordered, read-only set of known stations.
type Registry struct {
	stations []Station
	folded   []string
}

// Default returns the 13 stations of the Jalisco air monitoring network.
// "Vallarta" is the Av. Vallarta station in Guadalajara, not the port.
func Default() *Registry {
	return NewRegistry([]Station{
		{"Las Pintas", record.Coordinates{Lat: 20.5768, Lon: -103.3265}, profileSouth},
		{"Miravalle", record.Coordinates{Lat: 20.6120, Lon: -103.3430}, profileSouth},
		{"Centro", record.Coordinates{Lat: 20.6736, Lon: -103.3440}, profileMid},
		{"Tlaquepaque", record.Coordinates{Lat: 20.6409, Lon: -103.3125}, profileSouth},
		{"Vallarta", record.Coordinates{Lat: 20.6775, Lon: -103.4323}, profileNorth},
		{"Oblatos", record.Coordinates{Lat: 20.6923, Lon: -103.2974}, profileMid},
		{"Aguilas", record.Coordinates{Lat: 20.6350, Lon: -103.4150}, profileMid},
		{"Loma Dorada", record.Coordinates{Lat: 20.6280, Lon: -103.2530}, profileMid},
		{"Santa Fe", record.Coordinates{Lat: 20.5310, Lon: -103.3830}, profileSouth},
		{"Santa Anita", record.Coordinates{Lat: 20.5515, Lon: -103.4470}, profileMid},
		{"Atemajac", record.Coordinates{Lat: 20.7160, Lon: -103.3560}, profileMid},
		{"Santa Margarita", record.Coordinates{Lat: 20.7300, Lon: -103.4150}, profileNorth},
		{"Country", record.Coordinates{Lat: 20.6950, Lon: -103.3750}, profileNorth},
	})
}

// NewRegistry builds a registry from stations, preserving their order.
func NewRegistry(stations []Station) *Registry {
	r := &Registry{stations: append([]Station(nil), stations...)}
	for _, s := range r.stations {
		r.folded = append(r.folded, Fold(s.Name))
	}
	return r
}

// All returns the stations in registry order.
func (r *Registry) All() []Station {
	return append([]Station(nil), r.stations...)
}

// Len returns the number of stations.
func (r *Registry) Len() int {
	return len(r.stations)
}

// Names returns station names in registry order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.stations))
	for i, s := range r.stations {
		names[i] = s.Name
	}
	return names
}

// Lookup resolves a name fragment to a station. An exact (folded) match wins,
// then the station name found earliest inside the fragment (longest on ties),
// then a station whose name uniquely contains the fragment.
func (r *Registry) Lookup(fragment string) (Station, bool) {
	f := Fold(fragment)
	if f == "" {
		return Station{}, false
	}
	for i, name := range r.folded {
		if name == f {
			return r.stations[i], true
		}
	}

	best, bestPos := -1, len(f)+1
	for i, name := range r.folded {
		pos := wordIndex(f, name)
		if pos < 0 {
			continue
		}
		if pos < bestPos || (pos == bestPos && len(name) > len(r.folded[best])) {
			best, bestPos = i, pos
		}
	}
	if best >= 0 {
		return r.stations[best], true
	}

	if len(f) < 4 {
		return Station{}, false
	}
	match := -1
	for i, name := range r.folded {
		if strings.Contains(name, f) {
			if match >= 0 {
				return Station{}, false // ambiguous, e.g. "santa"
			}
			match = i
		}
	}
	if match < 0 {
		return Station{}, false
	}
	return r.stations[match], true
}

// wordIndex returns the byte offset of name in s on word boundaries, or -1.
func wordIndex(s, name string) int {
	for start := 0; start <= len(s); {
		i := strings.Index(s[start:], name)
		if i < 0 {
			return -1
		}
		i += start
		end := i + len(name)
		leftOK := i == 0 || s[i-1] == ' '
		rightOK := end == len(s) || s[end] == ' '
		if leftOK && rightOK {
			return i
		}
		start = i + 1
	}
	return -1
}

// Fold lowercases s, strips accents and punctuation, and collapses whitespace.
func Fold(s string) string {
	// Transformers carry state, so each call builds its own chain.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	words := strings.FieldsFunc(strings.ToLower(out), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(words, " ")
}
