package news

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/web3-frozen/aptos-yield-monitor/internal/metrics"
)

const (
	// MaxArticles caps every feed.
	MaxArticles = 10
	// minTopicArticles is enough topic news to skip the general fetch.
	minTopicArticles = 5
	// DefaultTopic is the currency code used for the focused fetch.
	DefaultTopic = "aptos"
)

// PostFetcher is the news upstream.
type PostFetcher interface {
	Posts(ctx context.Context, currency string) ([]Post, error)
}

// Aggregator prefers topic news and tops it up with general news.
type Aggregator struct {
	feed   PostFetcher
	topic  string
	logger *slog.Logger
	now    func() time.Time
}

func NewAggregator(feed PostFetcher, topic string, logger *slog.Logger) *Aggregator {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Aggregator{feed: feed, topic: topic, logger: logger, now: time.Now}
}

// GetLatestNews never fails; it serves the canned set when nothing live
// is available.
func (a *Aggregator) GetLatestNews(ctx context.Context) *Feed {
	topicPosts, topicErr := a.feed.Posts(ctx, a.topic)
	if topicErr != nil {
		a.logger.Warn("topic news fetch failed", "topic", a.topic, "error", topicErr)
	}
	topic := a.format(topicPosts, true)
	if len(topic) >= minTopicArticles {
		return &Feed{Articles: truncate(topic), LastUpdated: a.now()}
	}

	a.logger.Info("insufficient topic news, fetching general news", "topic", a.topic, "count", len(topic))
	generalPosts, generalErr := a.feed.Posts(ctx, "")
	if generalErr != nil {
		a.logger.Warn("general news fetch failed", "error", generalErr)
	}

	combined := dedupe(append(topic, a.format(generalPosts, false)...))
	if len(combined) == 0 {
		metrics.NewsFallbackTotal.Inc()
		return Fallback(a.now())
	}
	return &Feed{Articles: truncate(combined), LastUpdated: a.now()}
}

// format normalises, deduplicates and sorts newest first. Topic batches
// also move related articles ahead of the rest.
func (a *Aggregator) format(posts []Post, pinRelated bool) []Article {
	articles := make([]Article, 0, len(posts))
	for _, p := range posts {
		if strings.TrimSpace(p.Title) == "" {
			continue
		}
		articles = append(articles, a.toArticle(p))
	}
	articles = dedupe(articles)
	sort.SliceStable(articles, func(i, j int) bool { return articles[i].Date.After(articles[j].Date) })
	if pinRelated {
		sort.SliceStable(articles, func(i, j int) bool {
			return articles[i].IsAptosRelated && !articles[j].IsAptosRelated
		})
	}
	return articles
}

func (a *Aggregator) toArticle(p Post) Article {
	codes := make([]string, 0, len(p.Currencies))
	lowerCodes := make([]string, 0, len(p.Currencies))
	for _, c := range p.Currencies {
		codes = append(codes, c.Code)
		lowerCodes = append(lowerCodes, strings.ToLower(c.Code))
	}

	title := strings.ToLower(p.Title)
	related := strings.Contains(title, a.topic) || strings.Contains(strings.ToLower(p.Domain), a.topic)
	for _, c := range lowerCodes {
		if c == "apt" || c == a.topic {
			related = true
		}
	}

	source := "Unknown"
	switch {
	case p.Source != nil && p.Source.Title != "":
		source = p.Source.Title
	case p.Domain != "":
		source = p.Domain
	}

	summary := "Crypto news"
	switch {
	case len(codes) > 0:
		summary = "Affects: " + strings.Join(codes, ", ")
	case p.Domain != "":
		summary = p.Domain
	}

	relevance := "normal"
	switch {
	case related:
		relevance = "high"
	case p.Votes.Negative > p.Votes.Positive:
		relevance = "medium"
	}

	tags := append([]string{}, lowerCodes...)
	if related {
		tags = append(tags, a.topic)
	}
	if strings.Contains(title, "defi") {
		tags = append(tags, "defi")
	}
	if strings.Contains(title, "staking") {
		tags = append(tags, "staking")
	}

	date := p.CreatedAt
	if date.IsZero() {
		date = a.now()
	}

	return Article{
		Headline:       p.Title,
		Source:         source,
		Date:           date.UTC(),
		URL:            p.URL,
		Summary:        summary,
		Relevance:      relevance,
		Tags:           uniq(tags),
		IsAptosRelated: related,
	}
}

// dedupe keeps the first article for each exact headline.
func dedupe(in []Article) []Article {
	seen := make(map[string]bool, len(in))
	out := in[:0:0]
	for _, a := range in {
		if seen[a.Headline] {
			continue
		}
		seen[a.Headline] = true
		out = append(out, a)
	}
	return out
}

func truncate(in []Article) []Article {
	if len(in) > MaxArticles {
		return in[:MaxArticles]
	}
	return in
}

func uniq(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
