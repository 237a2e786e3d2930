package extract

import (
	"fmt"
	"regexp"

	"github.com/gdlinsight/gdlinsight/internal/record"
	"github.com/gdlinsight/gdlinsight/internal/station"
)

// stationFragment captures up to four words after "en".
const stationFragment = `([\p{L}][\p{L}.]*(?:\s+[\p{L}][\p{L}.]*){0,3})`

var (
	// "142 puntos IMECA en Las Pintas"
	reIndexAtStation = regexp.MustCompile(`(?i)\b(\d{1,3})\s*puntos?\s*(?:imeca\s*)?(?:en|in|at)\s+(?:la\s+estaci[oó]n\s+)?` + stationFragment)
	// "Las Pintas: 105" or "Miravalle - 87"
	reStationColonIndex = regexp.MustCompile(`(\p{Lu}[\p{L}]+(?:\s+\p{Lu}[\p{L}]+){0,2})\s*[:\-–]\s*(\d{1,3})\b`)
	// "calidad del aire: Muy Mala"
	reStatusText = regexp.MustCompile(`(?i)calidad\s+(?:del\s+aire\s*)?(?:es\s+)?[:\-]?\s*(extremadamente\s+mala|muy\s+mala|mala|regular|buena)\b`)
)

func validIndex(c Candidate) bool {
	return c.Value == float64(int(c.Value)) && record.ValidIndex(int(c.Value))
}

// AirIndex is the single headline IMECA value of a page.
type AirIndex struct {
	Value   int
	Station string // empty when the winning strategy captures no station
	// StatusOverride is set when the page states the category in words.
	StatusOverride record.Status
	Snippet        string
	Strategy       string
}

// AirIndexChain is the ordered cascade for a single IMECA value.
func AirIndexChain() *Chain {
	return &Chain{
		Label: "air index",
		Strategies: []Strategy{
			&RegexStrategy{Label: "contextual phrase", Pattern: reIndexAtStation, ValueGroup: 1, StationGroup: 2, Parse: ParseInt},
			&HeadingStrategy{Label: "heading scan", Token: intToken, Parse: ParseInt},
			&HintStrategy{Label: "attribute hint", Hints: []string{"imeca", "indice", "calidad", "aire"}, Token: intToken, Parse: ParseInt},
			&ProximityStrategy{Label: "keyword proximity", Keywords: []string{"imeca"}, Window: 40, Token: intToken, Parse: ParseInt},
		},
		Valid: validIndex,
	}
}

// ExtractAirIndex recovers the headline IMECA value from a page.
func ExtractAirIndex(p *Page) (AirIndex, error) {
	c, err := AirIndexChain().Run(p)
	if err != nil {
		return AirIndex{}, err
	}
	ai := AirIndex{
		Value:    int(c.Value),
		Station:  c.Station,
		Snippet:  c.Snippet,
		Strategy: c.Strategy,
	}
	if s, ok := StatusText(p); ok {
		ai.StatusOverride = s
	}
	return ai, nil
}

// StatusText finds an air quality category written on the page.
func StatusText(p *Page) (record.Status, bool) {
	m := reStatusText.FindStringSubmatch(p.Text)
	if m == nil {
		return "", false
	}
	return record.ParseLabel(m[1])
}

// StationValue is an IMECA value resolved to a registry station.
type StationValue struct {
	Station station.Station
	Value   int
	Snippet string
}

// stationTemplates returns the ordered templates for per-station extraction.
// The last template is built from the registry itself.
func stationTemplates(reg *station.Registry) []Strategy {
	return []Strategy{
		&RegexStrategy{Label: "index at station", Pattern: reIndexAtStation, ValueGroup: 1, StationGroup: 2, Parse: ParseInt},
		&RegexStrategy{Label: "station colon index", Pattern: reStationColonIndex, ValueGroup: 2, StationGroup: 1, Parse: ParseInt},
		&registryProximity{reg: reg},
	}
}

// ExtractStations recovers per-station IMECA values. Templates are tried in
// order and the first one resolving at least one registry station wins.
// Fragments that do not resolve to a registry station are dropped.
//
// It returns ErrNotFound when no template matched and ErrTooFewStations
// (with the partial result) when fewer than minStations were recovered.
func ExtractStations(p *Page, reg *station.Registry, minStations int) ([]StationValue, error) {
	var found []StationValue
	for _, tmpl := range stationTemplates(reg) {
		found = resolveStations(tmpl.Extract(p), reg)
		if len(found) > 0 {
			break
		}
	}
	if len(found) == 0 {
		return nil, ErrNotFound
	}
	if len(found) < minStations {
		return found, fmt.Errorf("%w: %d of %d required", ErrTooFewStations, len(found), minStations)
	}
	return found, nil
}

func resolveStations(cands []Candidate, reg *station.Registry) []StationValue {
	seen := make(map[string]bool)
	var out []StationValue
	for _, c := range cands {
		if !validIndex(c) {
			continue
		}
		s, ok := reg.Lookup(c.Station)
		if !ok || seen[s.Name] {
			continue
		}
		seen[s.Name] = true
		out = append(out, StationValue{Station: s, Value: int(c.Value), Snippet: c.Snippet})
	}
	return out
}

// registryProximity looks for the nearest number within 30 characters of
// each known station name, preferring the one that follows the name.
type registryProximity struct {
	reg *station.Registry
}

func (r *registryProximity) Name() string { return "registry proximity" }

func (r *registryProximity) Extract(p *Page) []Candidate {
	// Folding drops accents and punctuation on both sides of the match.
	text := station.Fold(p.Text)
	var out []Candidate
	for _, s := range r.reg.All() {
		name := `\b` + regexp.QuoteMeta(station.Fold(s.Name)) + `\b`
		after := regexp.MustCompile(name + `\D{0,30}?\b(\d{1,3})\b`)
		before := regexp.MustCompile(`\b(\d{1,3})\b\D{0,30}?` + name)
		m := after.FindStringSubmatchIndex(text)
		if m == nil {
			m = before.FindStringSubmatchIndex(text)
		}
		if m == nil {
			continue
		}
		v, ok := ParseInt(text[m[2]:m[3]])
		if !ok {
			continue
		}
		out = append(out, Candidate{Value: v, Station: s.Name, Snippet: snippet(text, m[0], m[1], snippetWidth)})
	}
	return out
}
