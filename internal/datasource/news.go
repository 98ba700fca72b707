// Package datasource ingests financial news from RSS feeds.
package datasource

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/phuslu/log"
	"golang.org/x/time/rate"

	"github.com/seenimoa/newsimpact/internal/config"
	"github.com/seenimoa/newsimpact/internal/logging"
	"github.com/seenimoa/newsimpact/pkg/models"
	"github.com/seenimoa/newsimpact/pkg/utils"
)

// Feed is one RSS source.
type Feed struct {
	Name string
	URL  string
}

// DefaultFeeds is used when no feed is configured.
var DefaultFeeds = []Feed{
	{Name: "新浪财经", URL: "https://rss.sina.com.cn/roll/finance/hot_roll.xml"},
	{Name: "中新网财经", URL: "https://www.chinanews.com.cn/rss/finance.xml"},
}

// News fetches NewsItems from RSS feeds.
type News struct {
	feeds   []Feed
	limiter *rate.Limiter
	parser  *gofeed.Parser
	logger  *log.Logger
	now     func() time.Time
}

// NewsOption configures News.
type NewsOption func(*News)

// WithFeeds replaces the feed list.
func WithFeeds(feeds []Feed) NewsOption {
	return func(n *News) {
		if len(feeds) > 0 {
			n.feeds = feeds
		}
	}
}

// WithRate limits feed requests to perSecond.
func WithRate(perSecond float64) NewsOption {
	return func(n *News) {
		if perSecond > 0 {
			n.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithHTTPClient sets the client used to download feeds.
func WithHTTPClient(c *http.Client) NewsOption {
	return func(n *News) { n.parser.Client = c }
}

// WithNewsLogger sets the logger.
func WithNewsLogger(l *log.Logger) NewsOption {
	return func(n *News) { n.logger = l }
}

// NewNews creates a news source. Without options it reads DefaultFeeds at
// two requests per second.
func NewNews(opts ...NewsOption) *News {
	n := &News{
		feeds:   DefaultFeeds,
		limiter: rate.NewLimiter(2, 1),
		parser:  gofeed.NewParser(),
		now:     time.Now,
	}
	n.parser.UserAgent = "newsimpact/1.0"
	for _, opt := range opts {
		opt(n)
	}
	n.logger = logging.OrNop(n.logger)
	return n
}

// NewNewsFromConfig builds a news source from cfg.
func NewNewsFromConfig(cfg config.NewsConfig, logger *log.Logger) *News {
	feeds := make([]Feed, 0, len(cfg.Feeds))
	for _, f := range cfg.Feeds {
		feeds = append(feeds, Feed{Name: f.Name, URL: f.URL})
	}
	return NewNews(
		WithFeeds(feeds),
		WithRate(cfg.RatePerSecond),
		WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
		WithNewsLogger(logger),
	)
}

// Feeds returns the configured feeds.
func (n *News) Feeds() []Feed { return n.feeds }

// FetchItems reads every feed and returns the items newest first, capped
// at limit when limit > 0. Feeds that fail are logged and skipped; an
// error is returned only when ctx ends.
func (n *News) FetchItems(ctx context.Context, limit int) ([]models.NewsItem, error) {
	var all []models.NewsItem
	for _, f := range n.feeds {
		items, err := n.fetchFeed(ctx, f)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			n.logger.Warn().Err(err).Str("source", f.Name).Msg("feed skipped")
			continue
		}
		n.logger.Debug().Str("source", f.Name).Int("count", len(items)).Msg("feed fetched")
		all = append(all, items...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].PublishedAt.After(all[j].PublishedAt)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (n *News) fetchFeed(ctx context.Context, f Feed) ([]models.NewsItem, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	feed, err := n.parser.ParseURLWithContext(f.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse RSS %s: %w", f.Name, err)
	}

	items := make([]models.NewsItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		title := strings.TrimSpace(it.Title)
		if title == "" {
			continue
		}
		content := cleanHTML(it.Description)
		if content == "" {
			content = cleanHTML(it.Content)
		}

		published := n.now()
		if it.PublishedParsed != nil {
			published = *it.PublishedParsed
		} else if it.UpdatedParsed != nil {
			published = *it.UpdatedParsed
		}

		id := it.GUID
		if id == "" {
			id = it.Link
		}
		items = append(items, models.NewsItem{
			ID:          id,
			Title:       title,
			Content:     content,
			Source:      f.Name,
			Date:        utils.DateKey(published),
			URL:         it.Link,
			PublishedAt: published,
		})
	}
	return items, nil
}

// GroupByDate buckets items by their Date. Items without one go under
// today's date.
func GroupByDate(items []models.NewsItem) map[string][]models.NewsItem {
	out := make(map[string][]models.NewsItem)
	for _, it := range items {
		d := it.Date
		if d == "" {
			d = utils.Today()
		}
		out[d] = append(out[d], it)
	}
	return out
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
