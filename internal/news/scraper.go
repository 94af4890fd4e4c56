// Package news fetches recent headlines for a ticker from the Yahoo Finance
// RSS feed and serves them through a short-lived in-memory cache.
package news

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/sitshu/stock-analyst/internal/logger"
)

const feedHost = "feeds.finance.yahoo.com"

// Headline is one news item from the feed.
type Headline struct {
	Title     string     `json:"title"`
	Link      string     `json:"link"`
	Published *time.Time `json:"published"`
	Source    string     `json:"source"`
	Summary   string     `json:"summary"`
}

// Scraper pulls a ticker's RSS feed.
type Scraper struct {
	timeout  time.Duration
	identity string
}

// NewScraper creates a scraper. The identity string is sent as User-Agent.
func NewScraper(timeout time.Duration, identity string) *Scraper {
	return &Scraper{timeout: timeout, identity: identity}
}

func feedURL(ticker string) string {
	return fmt.Sprintf("https://%s/rss/2.0/headline?s=%s&region=US&lang=en-US", feedHost, ticker)
}

// Fetch returns up to maxItems headlines for the ticker, newest first as the
// feed delivers them.
func (s *Scraper) Fetch(ctx context.Context, ticker string, maxItems int) ([]Headline, error) {
	headlines := []Headline{}
	var fetchErr error

	c := colly.NewCollector(
		colly.AllowedDomains(feedHost),
		colly.MaxDepth(1),
	)
	c.SetRequestTimeout(s.timeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", s.identity)
	})

	c.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	c.OnXML("//rss/channel/item", func(e *colly.XMLElement) {
		if len(headlines) >= maxItems {
			return
		}
		title := strings.TrimSpace(e.ChildText("title"))
		link := strings.TrimSpace(e.ChildText("link"))
		if title == "" || link == "" {
			return
		}
		headlines = append(headlines, Headline{
			Title:     title,
			Link:      link,
			Published: parsePubDate(e.ChildText("pubDate")),
			Source:    sourceName(e.ChildText("source")),
			Summary:   stripHTML(e.ChildText("description")),
		})
	})

	url := feedURL(ticker)
	logger.Debug(ctx, "fetching news feed", "ticker", ticker, "url", url)
	if err := c.Visit(url); err != nil {
		return nil, fmt.Errorf("visit feed for %s: %w", ticker, err)
	}
	c.Wait()

	if fetchErr != nil {
		return nil, fmt.Errorf("fetch feed for %s: %w", ticker, fetchErr)
	}
	return headlines, nil
}

// parsePubDate handles the date formats RSS feeds actually emit.
func parsePubDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822} {
		if ts, err := time.Parse(layout, raw); err == nil {
			utc := ts.UTC()
			return &utc
		}
	}
	return nil
}

func sourceName(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "Yahoo Finance"
	}
	return raw
}

// stripHTML reduces a feed description to plain text. Feed summaries often
// arrive wrapped in markup.
func stripHTML(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return raw
	}
	return strings.TrimSpace(doc.Text())
}
