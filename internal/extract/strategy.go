package extract

import (
	"errors"
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gdlinsight/gdlinsight/internal/station"
)

var (
	// ErrNotFound means no strategy produced a valid value.
	ErrNotFound = errors.New("no reading found in page")
	// ErrTooFewStations means station extraction worked but recovered fewer
	// stations than the quality threshold.
	ErrTooFewStations = errors.New("too few stations recovered")
)

const snippetWidth = 80

// Candidate is a value proposed by a strategy.
type Candidate struct {
	Value    float64
	Station  string // name fragment, when the strategy captures one
	Snippet  string
	Strategy string
}

// Strategy proposes candidate values for a page, in document order.
type Strategy interface {
	Name() string
	Extract(p *Page) []Candidate
}

// Chain runs strategies in order and returns the first candidate accepted by
// Valid. Candidates from different strategies are never merged.
type Chain struct {
	Label      string
	Strategies []Strategy
	Valid      func(Candidate) bool
}

// Run returns the winning candidate or ErrNotFound.
func (c *Chain) Run(p *Page) (Candidate, error) {
	for _, s := range c.Strategies {
		for _, cand := range s.Extract(p) {
			cand.Strategy = s.Name()
			if c.Valid != nil && !c.Valid(cand) {
				log.Printf("%s: rejected %v from %s (out of range)", c.Label, cand.Value, s.Name())
				continue
			}
			return cand, nil
		}
	}
	return Candidate{}, ErrNotFound
}

// NumberParser reads a numeric value from a matched token.
type NumberParser func(string) (float64, bool)

// ParseInt accepts plain integers.
func ParseInt(s string) (float64, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return float64(v), true
}

// ParseDecimal accepts "94.56" and "94,56".
func ParseDecimal(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.Replace(strings.TrimSpace(s), ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

var (
	intToken     = regexp.MustCompile(`\b\d{1,3}\b`)
	decimalToken = regexp.MustCompile(`\b\d{2,3}[.,]\d{1,3}\b`)
)

// RegexStrategy matches a contextual phrase. ValueGroup and StationGroup are
// submatch indexes; StationGroup 0 means the pattern captures no station.
type RegexStrategy struct {
	Label        string
	Pattern      *regexp.Regexp
	ValueGroup   int
	StationGroup int
	Parse        NumberParser
}

func (s *RegexStrategy) Name() string { return s.Label }

func (s *RegexStrategy) Extract(p *Page) []Candidate {
	var out []Candidate
	for _, m := range s.Pattern.FindAllStringSubmatchIndex(p.Text, -1) {
		vs, ve := m[2*s.ValueGroup], m[2*s.ValueGroup+1]
		if vs < 0 {
			continue
		}
		v, ok := s.Parse(p.Text[vs:ve])
		if !ok {
			continue
		}
		c := Candidate{Value: v, Snippet: snippet(p.Text, m[0], m[1], snippetWidth)}
		if s.StationGroup > 0 && m[2*s.StationGroup] >= 0 {
			c.Station = strings.TrimSpace(p.Text[m[2*s.StationGroup]:m[2*s.StationGroup+1]])
		}
		out = append(out, c)
	}
	return out
}

// HeadingStrategy scans h1-h6 elements for numbers.
type HeadingStrategy struct {
	Label string
	Token *regexp.Regexp
	Parse NumberParser
}

func (s *HeadingStrategy) Name() string { return s.Label }

func (s *HeadingStrategy) Extract(p *Page) []Candidate {
	if p.Doc == nil {
		return nil
	}
	var out []Candidate
	p.Doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, sel *goquery.Selection) {
		out = append(out, tokens(normalizeSpace(sel.Text()), s.Token, s.Parse)...)
	})
	return out
}

// HintStrategy scans elements whose class or id mentions one of Hints.
type HintStrategy struct {
	Label string
	Hints []string
	Token *regexp.Regexp
	Parse NumberParser
}

func (s *HintStrategy) Name() string { return s.Label }

func (s *HintStrategy) Extract(p *Page) []Candidate {
	if p.Doc == nil {
		return nil
	}
	var out []Candidate
	p.Doc.Find("[class], [id]").Each(func(_ int, sel *goquery.Selection) {
		class, _ := sel.Attr("class")
		id, _ := sel.Attr("id")
		attrs := station.Fold(class + " " + id)
		for _, h := range s.Hints {
			if strings.Contains(attrs, h) {
				out = append(out, tokens(normalizeSpace(sel.Text()), s.Token, s.Parse)...)
				return
			}
		}
	})
	return out
}

// ProximityStrategy takes numbers within Window characters of a keyword,
// nearest first.
type ProximityStrategy struct {
	Label    string
	Keywords []string
	Window   int
	Token    *regexp.Regexp
	Parse    NumberParser
}

func (s *ProximityStrategy) Name() string { return s.Label }

func (s *ProximityStrategy) Extract(p *Page) []Candidate {
	type near struct {
		c    Candidate
		dist int
		pos  int
	}
	var found []near
	for _, kw := range s.Keywords {
		// Offsets must index p.Text itself, which may hold invalid UTF-8.
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(kw))
		for _, k := range re.FindAllStringIndex(p.Text, -1) {
			ks, ke := k[0], k[1]

			from := max(0, ks-s.Window)
			to := min(len(p.Text), ke+s.Window)
			for _, m := range s.Token.FindAllStringIndex(p.Text[from:to], -1) {
				ms, me := from+m[0], from+m[1]
				v, ok := s.Parse(p.Text[ms:me])
				if !ok {
					continue
				}
				dist := ks - me
				if ms >= ke {
					dist = ms - ke
				}
				if dist < 0 {
					dist = 0
				}
				found = append(found, near{
					c:    Candidate{Value: v, Snippet: snippet(p.Text, min(ms, ks), max(me, ke), snippetWidth)},
					dist: dist,
					pos:  ms,
				})
			}
		}
	}
	sort.SliceStable(found, func(a, b int) bool {
		if found[a].dist != found[b].dist {
			return found[a].dist < found[b].dist
		}
		return found[a].pos < found[b].pos
	})
	out := make([]Candidate, len(found))
	for i, f := range found {
		out[i] = f.c
	}
	return out
}

func tokens(text string, token *regexp.Regexp, parse NumberParser) []Candidate {
	var out []Candidate
	for _, m := range token.FindAllStringIndex(text, -1) {
		if v, ok := parse(text[m[0]:m[1]]); ok {
			out = append(out, Candidate{Value: v, Snippet: snippet(text, m[0], m[1], snippetWidth)})
		}
	}
	return out
}
