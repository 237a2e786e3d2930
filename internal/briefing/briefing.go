// Package briefing composes the daily ZMG briefing from a dashboard snapshot.
package briefing

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/gdlinsight/gdlinsight/internal/dashboard"
	"github.com/gdlinsight/gdlinsight/internal/database"
	"github.com/gdlinsight/gdlinsight/internal/llm"
	"github.com/gdlinsight/gdlinsight/internal/record"
)

const headlinePrompt = `Eres el editor de un boletín matutino sobre la Zona Metropolitana de Guadalajara.

Datos de hoy:

%s

Escribe un titular de una sola oración (máximo 25 palabras) que resuma lo más importante del día para un habitante de la ZMG.

Responde SOLO con este JSON:
{"titular": "..."}`

var md = goldmark.New(goldmark.WithExtensions(extension.Table, extension.Linkify))

// Composer composes briefings. Both db and provider may be nil.
type Composer struct {
	db       *database.DB
	provider llm.Provider
}

// NewComposer creates a new briefing composer.
func NewComposer(db *database.DB, provider llm.Provider) *Composer {
	return &Composer{db: db, provider: provider}
}

// Compose builds the briefing for snap and stores it when a database is set.
func (c *Composer) Compose(ctx context.Context, snap *dashboard.Snapshot) (*database.Briefing, error) {
	body := AssembleBody(snap)
	headline := c.generateHeadline(ctx, snap)

	b := &database.Briefing{Date: snap.Date, Headline: headline, BodyMarkdown: body}
	if c.db == nil {
		return b, nil
	}
	if _, err := c.db.InsertBriefing(snap.Date, headline, body); err != nil {
		return nil, fmt.Errorf("storing briefing: %w", err)
	}
	stored, err := c.db.GetBriefing(snap.Date)
	if err != nil {
		return nil, err
	}
	log.Printf("Briefing composed for %s", snap.Date)
	return stored, nil
}

func (c *Composer) generateHeadline(ctx context.Context, snap *dashboard.Snapshot) string {
	if c.provider == nil || !c.provider.IsConfigured() {
		return FallbackHeadline(snap)
	}

	text, err := c.provider.Generate(ctx, llm.Request{
		Prompt:    fmt.Sprintf(headlinePrompt, facts(snap)),
		MaxTokens: 128,
	})
	if err != nil || text == "" {
		if err != nil {
			log.Printf("Briefing headline failed: %v", err)
		}
		return FallbackHeadline(snap)
	}
	if parsed := llm.ParseJSONResponse(text); parsed != nil {
		if h, ok := llm.String(parsed, "titular"); ok {
			return h
		}
	}
	return strings.TrimSpace(text)
}

// FallbackHeadline states the worst station and the lake level.
func FallbackHeadline(snap *dashboard.Snapshot) string {
	var parts []string
	if snap.Worst != nil {
		parts = append(parts, fmt.Sprintf("Aire %s: %d IMECA en %s",
			strings.ToLower(snap.Worst.Status.Label()), snap.Worst.IndexValue, snap.Worst.Station))
	}
	if snap.Water != nil {
		parts = append(parts, fmt.Sprintf("Chapala en %.2f %s", snap.Water.ElevationMeters, snap.Water.Unit))
	}
	if len(parts) == 0 {
		return "Sin datos disponibles hoy."
	}
	return strings.Join(parts, " · ")
}

func facts(snap *dashboard.Snapshot) string {
	var b strings.Builder
	b.WriteString(FallbackHeadline(snap))
	b.WriteString("\n")
	for _, tn := range snap.News {
		for _, item := range tn.Items {
			fmt.Fprintf(&b, "- [%s] %s\n", tn.Name, item.Title)
		}
	}
	return b.String()
}

// AssembleBody renders the snapshot as Markdown.
func AssembleBody(snap *dashboard.Snapshot) string {
	var sections []string

	var air strings.Builder
	air.WriteString("## Calidad del aire\n\n")
	if len(snap.Stations) == 0 {
		air.WriteString("Sin datos de estaciones.")
	} else {
		air.WriteString("| Estación | IMECA | Calidad |\n|---|---:|---|\n")
		for _, r := range snap.Stations {
			fmt.Fprintf(&air, "| %s | %d | %s |\n", r.Station, r.IndexValue, r.Status.Label())
		}
		if snap.Stations[0].Origin == record.OriginSynthetic {
			air.WriteString("\n*Datos simulados: la fuente oficial no respondió.*")
		}
	}
	sections = append(sections, strings.TrimRight(air.String(), "\n"))

	water := "## Lago de Chapala\n\n"
	if snap.Water == nil {
		water += "Sin datos del nivel."
	} else {
		water += fmt.Sprintf("Cota: **%.2f %s**", snap.Water.ElevationMeters, snap.Water.Unit)
		if snap.Water.Origin == record.OriginSynthetic {
			water += " *(simulado)*"
		}
	}
	sections = append(sections, water)

	for _, tn := range snap.News {
		sections = append(sections, newsSection(tn))
	}

	return strings.Join(sections, "\n\n---\n\n")
}

func newsSection(tn dashboard.TopicNews) string {
	header := fmt.Sprintf("## %s\n\n", tn.Name)
	if len(tn.Items) == 0 {
		if tn.Err != nil {
			return header + "Noticias no disponibles."
		}
		return header + "Sin noticias hoy."
	}
	var lines []string
	for _, item := range tn.Items {
		line := fmt.Sprintf("- [%s](%s) (%s)", item.Title, item.Link, item.Source)
		if item.IsRumor {
			line += " **Rumor**"
		}
		if item.AISummary != "" {
			line += "\n  " + item.AISummary
		}
		lines = append(lines, line)
	}
	return header + strings.Join(lines, "\n")
}

// RenderHTML converts briefing Markdown to HTML.
func RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.String(), nil
}

// Document is the full Markdown file of a briefing.
func Document(b *database.Briefing) string {
	return fmt.Sprintf("# Boletín ZMG · %s\n\n> %s\n\n%s\n",
		database.FormatDateDisplay(b.Date), b.Headline, b.BodyMarkdown)
}

// Write writes the briefing as Markdown into dir and returns the file path.
func Write(dir string, b *database.Briefing) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating briefing directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("briefing_%s.md", b.Date))
	if err := os.WriteFile(path, []byte(Document(b)), 0o644); err != nil {
		return "", fmt.Errorf("writing briefing: %w", err)
	}
	return path, nil
}
