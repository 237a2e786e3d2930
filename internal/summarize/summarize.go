// Package summarize rewrites news descriptions with an LLM, falling back
// through alternate models and finally to the truncated original text.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gdlinsight/gdlinsight/internal/llm"
	"github.com/gdlinsight/gdlinsight/internal/record"
)

// DefaultTruncateAt is the rune limit of the fallback summary.
const DefaultTruncateAt = 200

var personas = map[string]string{
	"env": "Actúa como analista ambiental. Resume esta noticia de Guadalajara en una frase clara " +
		"y un párrafo conciso que permita analizar el contenido.",
	"chivas": "Actúa como un analista deportivo objetivo. Elimina el clickbait y el sensacionalismo " +
		"y resume la noticia sobre Chivas en una o dos frases con la información más importante. " +
		"Indica si la nota es un rumor de fichaje sin confirmar.",
}

const defaultPersona = "Resume la siguiente noticia en una o dos frases objetivas."

const answerFormat = `Responde solo con JSON: {"resumen": "<texto>", "es_rumor": <true|false>}`

// Result is the outcome of summarizing one item.
type Result struct {
	Summary   string
	IsRumor   bool
	Processed bool
	Err       error
}

// Summarizer calls Provider with each of Models in order. A nil Provider
// means no credential is configured.
type Summarizer struct {
	Provider   llm.Provider
	Models     []string
	MaxTokens  int
	TruncateAt int
}

// New creates a summarizer.
func New(p llm.Provider, models []string, maxTokens, truncateAt int) *Summarizer {
	if truncateAt <= 0 {
		truncateAt = DefaultTruncateAt
	}
	if maxTokens <= 0 {
		maxTokens = 256
	}
	return &Summarizer{Provider: p, Models: models, MaxTokens: maxTokens, TruncateAt: truncateAt}
}

// Available reports whether a remote summarizer is configured.
func (s *Summarizer) Available() bool {
	return s != nil && s.Provider != nil && s.Provider.IsConfigured()
}

// Summarize produces a summary for one news item. It never fails: when every
// model fails the truncated description is returned with Processed false.
func (s *Summarizer) Summarize(ctx context.Context, topic, title, description string) Result {
	fallback := Truncate(description, s.truncateAt())
	if !s.Available() {
		return Result{Summary: fallback}
	}

	req := llm.Request{
		System:    persona(topic),
		Prompt:    prompt(title, description),
		MaxTokens: s.MaxTokens,
	}
	models := s.Models
	if len(models) == 0 {
		models = []string{""}
	}

	var errs []error
	for _, model := range models {
		req.Model = model
		text, err := s.Provider.Generate(ctx, req)
		if err == nil {
			if summary, rumor, ok := parseAnswer(text); ok {
				return Result{Summary: summary, IsRumor: rumor, Processed: true}
			}
			err = fmt.Errorf("empty response")
		}
		log.Printf("Summarizer model %q failed: %v", model, err)
		errs = append(errs, fmt.Errorf("%s: %w", modelName(model), err))
		if ctx.Err() != nil {
			break
		}
	}
	return Result{Summary: fallback, Err: errors.Join(errs...)}
}

// Apply summarizes item in place.
func (s *Summarizer) Apply(ctx context.Context, item *record.NewsItem) {
	r := s.Summarize(ctx, item.Topic, item.Title, item.Description)
	item.AISummary = r.Summary
	item.IsRumor = r.IsRumor
	item.Processed = r.Processed
	item.Error = ""
	if r.Err != nil {
		item.Error = r.Err.Error()
	}
}

func (s *Summarizer) truncateAt() int {
	if s == nil || s.TruncateAt <= 0 {
		return DefaultTruncateAt
	}
	return s.TruncateAt
}

// Truncate cuts text to n runes and appends "..." when it was longer.
func Truncate(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "..."
}

func persona(topic string) string {
	if p, ok := personas[topic]; ok {
		return p
	}
	return defaultPersona
}

func prompt(title, description string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Título: %s\n", title)
	fmt.Fprintf(&b, "Descripción: %s\n\n", description)
	b.WriteString(answerFormat)
	return b.String()
}

// parseAnswer accepts the requested JSON shape or plain text.
func parseAnswer(text string) (string, bool, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false, false
	}
	if strings.Contains(text, "{") {
		if m := llm.ParseJSONResponse(text); m != nil {
			if summary, ok := llm.String(m, "resumen"); ok {
				return summary, llm.Bool(m, "es_rumor"), true
			}
		}
	}
	return text, false, true
}

func modelName(m string) string {
	if m == "" {
		return "default model"
	}
	return m
}
