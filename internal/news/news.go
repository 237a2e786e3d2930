// Package news collects topic headlines from RSS feeds, summarizes them and
// keeps them in the daily cache.
package news

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/gdlinsight/gdlinsight/internal/dailycache"
	"github.com/gdlinsight/gdlinsight/internal/fetch"
	"github.com/gdlinsight/gdlinsight/internal/record"
	"github.com/gdlinsight/gdlinsight/internal/retry"
	"github.com/gdlinsight/gdlinsight/internal/summarize"
)

// DefaultMaxItems is how many headlines a topic yields.
const DefaultMaxItems = 5

// Topic is one news feed.
type Topic struct {
	Key           string
	URL           string
	DefaultSource string
}

// Options control a single collection.
type Options struct {
	MaxItems int
	UseAI    bool
	// Refresh skips the cache read; the result is still saved.
	Refresh bool
}

// Collector fetches, summarizes and caches topic feeds.
type Collector struct {
	Client     *fetch.Client
	Retry      *retry.Controller
	Cache      *dailycache.Store
	Summarizer *summarize.Summarizer
	Enrich     bool

	parser *gofeed.Parser
}

// NewCollector creates a collector. cache and s may be nil.
func NewCollector(client *fetch.Client, rc *retry.Controller, cache *dailycache.Store, s *summarize.Summarizer) *Collector {
	return &Collector{Client: client, Retry: rc, Cache: cache, Summarizer: s, parser: newParser()}
}

// CacheKey returns the daily cache key of a topic in a mode.
func CacheKey(topic string, useAI bool) string {
	if useAI {
		return topic + "_news"
	}
	return topic + "_news_raw"
}

// Collect returns up to opts.MaxItems items of topic. A same-day cache entry
// is returned as is. Fetch failures surface as a *retry.FetchError.
func (c *Collector) Collect(ctx context.Context, topic Topic, opts Options) ([]record.NewsItem, error) {
	if opts.MaxItems <= 0 {
		opts.MaxItems = DefaultMaxItems
	}
	key := CacheKey(topic.Key, opts.UseAI)

	if c.Cache != nil && !opts.Refresh {
		var cached []record.NewsItem
		if c.Cache.Load(key, &cached) && len(cached) > 0 {
			log.Printf("Using cached %s news (%d items)", topic.Key, len(cached))
			if len(cached) > opts.MaxItems {
				cached = cached[:opts.MaxItems]
			}
			return cached, nil
		}
	}

	get := func(ctx context.Context) (string, error) { return c.Client.Get(ctx, topic.URL) }
	parse := func(raw string) ([]record.NewsItem, error) { return c.parse(raw, topic, opts.MaxItems) }
	rc := c.Retry
	if rc == nil {
		rc = retry.New(0, 0)
	}
	items, err := retry.Do(ctx, rc, topic.Key+" news", get, parse, false, nil).Unwrap()
	if err != nil {
		return nil, err
	}

	for i := range items {
		if c.Enrich && needsEnrichment(items[i]) {
			c.enrich(ctx, &items[i])
		}
		if opts.UseAI {
			c.Summarizer.Apply(ctx, &items[i])
		} else {
			items[i].AISummary = items[i].Description
			items[i].Processed = false
		}
	}

	if len(items) > 0 && c.Cache != nil {
		c.Cache.Save(key, items)
	} else if len(items) == 0 {
		log.Printf("Feed for %s returned no items", topic.Key)
	}
	log.Printf("Collected %d %s news items", len(items), topic.Key)
	return items, nil
}

func (c *Collector) parse(raw string, topic Topic, maxItems int) ([]record.NewsItem, error) {
	parser := c.parser
	if parser == nil {
		parser = newParser()
	}
	feed, err := parser.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	items := make([]record.NewsItem, 0, min(len(feed.Items), maxItems))
	for _, it := range feed.Items {
		if len(items) >= maxItems {
			break
		}
		items = append(items, parseItem(it, topic))
	}
	return items, nil
}

func (c *Collector) enrich(ctx context.Context, it *record.NewsItem) {
	if it.Link == "" {
		return
	}
	text, err := c.Client.ArticleText(ctx, it.Link)
	if err != nil {
		log.Printf("Enrichment failed for %s: %v", it.Link, err)
		return
	}
	if text != "" {
		it.Description = text
	}
}
