package extract

import "regexp"

// "Cota: 94.56 msnm", "cota de 94,56 m.s.n.m."
var reCotaMSNM = regexp.MustCompile(`(?i)\bcota\b[^0-9]{0,20}?(\d{2,3}[.,]\d{1,3})\s*m\.?\s*s\.?\s*n\.?\s*m\b`)

// Elevation is a reservoir level recovered from a page.
type Elevation struct {
	Meters   float64
	Snippet  string
	Strategy string
}

// WaterLevelChain is the ordered cascade for a reservoir elevation. Values
// outside [lo, hi] are rejected.
func WaterLevelChain(lo, hi float64) *Chain {
	return &Chain{
		Label: "water level",
		Strategies: []Strategy{
			&RegexStrategy{Label: "contextual phrase", Pattern: reCotaMSNM, ValueGroup: 1, Parse: ParseDecimal},
			&HeadingStrategy{Label: "heading scan", Token: decimalToken, Parse: ParseDecimal},
			&HintStrategy{Label: "attribute hint", Hints: []string{"cota", "nivel", "level", "chapala"}, Token: decimalToken, Parse: ParseDecimal},
			&ProximityStrategy{Label: "keyword proximity", Keywords: []string{"msnm", "cota"}, Window: 40, Token: decimalToken, Parse: ParseDecimal},
		},
		Valid: func(c Candidate) bool { return c.Value >= lo && c.Value <= hi },
	}
}

// ExtractWaterLevel recovers the reservoir elevation in msnm.
func ExtractWaterLevel(p *Page, lo, hi float64) (Elevation, error) {
	c, err := WaterLevelChain(lo, hi).Run(p)
	if err != nil {
		return Elevation{}, err
	}
	return Elevation{Meters: c.Value, Snippet: c.Snippet, Strategy: c.Strategy}, nil
}
