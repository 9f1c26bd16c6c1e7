package rss

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
	"github.com/pkg/errors"
)

const (
	// Bound each individual feed fetch so one unresponsive origin cannot
	// stall a whole refresh fan-in beyond this.
	fetchTimeout = 10 * time.Second

	userAgent = "Mozilla/5.0 (compatible; briefmux/1.0)"

	untitledFeed = "Untitled Feed"
)

// Metadata is the feed-level display information extracted from a parsed
// feed. Fields may be empty when the upstream feed omits them.
type Metadata struct {
	Title       string
	Description string
	Link        string
	ImageUrl    string
	Language    string
}

// Item is a single normalized feed entry. Guid is the raw upstream guid and
// may be empty, identity derivation happens at ingestion time.
type Item struct {
	Guid       string
	Title      string
	Link       string
	Content    string
	Summary    string
	PubDate    time.Time
	Author     string
	Categories []string
	ImageUrl   string
}

// Feed is the result of one fetch+parse round trip.
type Feed struct {
	Metadata Metadata
	Items    []Item
}

// Category is the tagged-object form of a feed category, produced by XML
// parsers for <category domain="...">Text</category>.
type Category struct {
	Text       string
	Attributes map[string]string
}

// Client fetches and parses remote feeds.
type Client struct {
	parser *gofeed.Parser
}

func NewClient() *Client {
	p := gofeed.NewParser()
	p.UserAgent = userAgent
	p.Client = &http.Client{Timeout: fetchTimeout}
	return &Client{parser: p}
}

// FetchAndParse retrieves the feed at url and normalizes it. Network
// failures and parse failures are both returned as errors, the caller does
// not need to distinguish them.
func (c *Client) FetchAndParse(ctx context.Context, url string) (*Feed, error) {
	parsed, err := c.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch or parse feed %s", url)
	}

	now := time.Now()
	items := make([]Item, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		items = append(items, normalizeItem(item, now))
	}

	return &Feed{
		Metadata: extractMetadata(parsed),
		Items:    items,
	}, nil
}

func extractMetadata(feed *gofeed.Feed) Metadata {
	m := Metadata{
		Title:       feed.Title,
		Description: feed.Description,
		Link:        feed.Link,
		Language:    feed.Language,
	}
	if m.Title == "" {
		m.Title = untitledFeed
	}
	if feed.Image != nil {
		m.ImageUrl = feed.Image.URL
	}
	return m
}

func normalizeItem(item *gofeed.Item, fallbackTime time.Time) Item {
	title := item.Title
	if title == "" {
		title = "Untitled"
	}

	// Content variants: content body, then encoded content, then
	// description, then a summary-like custom field.
	content := item.Content
	if content == "" {
		content = item.Custom["content:encoded"]
	}
	if content == "" {
		content = item.Description
	}
	if content == "" {
		content = item.Custom["summary"]
	}

	summary := item.Description
	if summary == "" {
		summary = item.Custom["summary"]
	}

	raw := make([]interface{}, 0, len(item.Categories))
	for _, c := range item.Categories {
		raw = append(raw, c)
	}

	return Item{
		Guid:       item.GUID,
		Title:      title,
		Link:       item.Link,
		Content:    content,
		Summary:    summary,
		PubDate:    publicationTime(item, fallbackTime),
		Author:     extractAuthor(item),
		Categories: NormalizeCategories(raw),
		ImageUrl:   enclosureImage(item),
	}
}

// publicationTime prefers the parser's own timestamp and falls back to
// best-effort parsing of the raw date string.
func publicationTime(item *gofeed.Item, fallback time.Time) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.Published != "" {
		if t, err := dateparse.ParseAny(item.Published); err == nil {
			return t
		}
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return fallback
}

func extractAuthor(item *gofeed.Item) string {
	if item.DublinCoreExt != nil && len(item.DublinCoreExt.Creator) > 0 {
		return item.DublinCoreExt.Creator[0]
	}
	if item.Author != nil && item.Author.Name != "" {
		return item.Author.Name
	}
	return item.Custom["author"]
}

// enclosureImage returns the first enclosure URL whose declared MIME type is
// an image. Audio/video enclosures are ignored.
func enclosureImage(item *gofeed.Item) string {
	for _, enc := range item.Enclosures {
		if enc == nil {
			continue
		}
		if enc.URL != "" && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}

// NormalizeCategories flattens feed categories into trimmed strings.
// Accepts the plain string form, the tagged-object Category form, and the
// generic map form a permissive XML decoder produces. Empty and unexpected
// entries are dropped.
//
// gofeed already flattens categories to strings, so the internal parse path
// only ever hits the string branch; the wrapper forms are for callers
// normalizing categories from their own decoders.
func NormalizeCategories(raw []interface{}) []string {
	categories := []string{}
	for _, entry := range raw {
		var text string
		switch c := entry.(type) {
		case string:
			text = c
		case Category:
			text = c.Text
		case *Category:
			if c != nil {
				text = c.Text
			}
		case map[string]interface{}:
			if t, ok := c["text"].(string); ok {
				text = t
			}
		}
		text = strings.TrimSpace(text)
		if text != "" {
			categories = append(categories, text)
		}
	}
	return categories
}
