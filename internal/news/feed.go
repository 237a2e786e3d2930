package news

import (
	"fmt"
	"html"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/rss"

	"github.com/gdlinsight/gdlinsight/internal/record"
)

// sourceKey is where the RSS <source> title is kept on translated items.
const sourceKey = "source"

// sourceTranslator keeps the <source> element of RSS items, which the
// default translator drops. Google News names the publisher there.
type sourceTranslator struct {
	gofeed.DefaultRSSTranslator
}

func (t *sourceTranslator) Translate(feed interface{}) (*gofeed.Feed, error) {
	rssFeed, ok := feed.(*rss.Feed)
	if !ok {
		return nil, fmt.Errorf("feed did not match expected type of *rss.Feed")
	}
	f, err := t.DefaultRSSTranslator.Translate(rssFeed)
	if err != nil {
		return nil, err
	}
	for i, item := range rssFeed.Items {
		if i >= len(f.Items) || item.Source == nil {
			continue
		}
		if title := strings.TrimSpace(item.Source.Title); title != "" {
			if f.Items[i].Custom == nil {
				f.Items[i].Custom = make(map[string]string)
			}
			f.Items[i].Custom[sourceKey] = title
		}
	}
	return f, nil
}

func newParser() *gofeed.Parser {
	p := gofeed.NewParser()
	p.RSSTranslator = &sourceTranslator{}
	return p
}

// parseItem maps a feed entry onto a NewsItem. Entries without a title are
// kept with a placeholder, as the feed order matters more than completeness.
func parseItem(item *gofeed.Item, topic Topic) record.NewsItem {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = "Sin título"
	}

	link := item.Link
	if link == "" {
		link = item.GUID
	}

	desc := item.Description
	if desc == "" {
		desc = item.Content
	}

	source := topic.DefaultSource
	if s := item.Custom[sourceKey]; s != "" {
		source = s
	}

	return record.NewsItem{
		Title:       title,
		Description: stripHTML(desc),
		Link:        link,
		Published:   item.Published,
		Source:      source,
		Topic:       topic.Key,
	}
}

func stripHTML(text string) string {
	// Simple HTML tag removal
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := html.UnescapeString(result.String())
	return strings.Join(strings.Fields(s), " ")
}

// needsEnrichment reports whether a description carries nothing beyond the
// headline, which is how Google News formats most entries.
func needsEnrichment(it record.NewsItem) bool {
	d := strings.ToLower(strings.TrimSpace(it.Description))
	return d == "" || strings.HasPrefix(d, strings.ToLower(it.Title))
}
