package vectorstore

import (
	"strings"
	"time"

	"newsmonitor/internal/core"
	"newsmonitor/internal/logger"
)

// dateFormats mirrors the original vector store's date-parsing fallback
// chain: try progressively looser layouts before giving up.
var dateFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// parsePublicationDateTS parses an article's free-form publication_date
// string into UTC epoch seconds. Unrecognized formats fall back to "now"
// and MUST be logged (spec §4.1).
func parsePublicationDateTS(raw string) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		logger.Warn("vectorstore: empty publication_date, defaulting to now")
		return time.Now().UTC().Unix()
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC().Unix()
		}
	}
	logger.Warn("vectorstore: unrecognized publication_date format, defaulting to now", "publication_date", raw)
	return time.Now().UTC().Unix()
}

// buildMetadata projects the scalar subset of an Article into vector-store
// metadata. Non-scalar or null fields are dropped; tag lists are flattened
// to a comma-separated string (spec §4.1, §6.3).
func buildMetadata(article *core.Article) map[string]any {
	md := map[string]any{
		"uri":                 article.URI,
		"publication_date":    article.PublicationDate,
		"publication_date_ts": parsePublicationDateTS(article.PublicationDate),
		"topic":               article.Topic,
	}
	setIfNonEmpty(md, "title", article.Title)
	setIfNonEmpty(md, "news_source", article.NewsSource)
	setIfNonEmpty(md, "category", article.Category)
	setIfNonEmpty(md, "sentiment", article.Sentiment)
	setIfNonEmpty(md, "future_signal", article.FutureSignal)
	setIfNonEmpty(md, "time_to_impact", article.TimeToImpact)
	setIfNonEmpty(md, "driver_type", article.DriverType)
	setIfNonEmpty(md, "bias", article.Bias)
	setIfNonEmpty(md, "ingest_status", string(article.IngestStatus))
	if len(article.Tags) > 0 {
		md["tags"] = strings.Join(article.Tags, ",")
	}
	if article.TopicAlignmentScore != 0 {
		md["topic_alignment_score"] = article.TopicAlignmentScore
	}
	return md
}

func setIfNonEmpty(md map[string]any, key, value string) {
	if value != "" {
		md[key] = value
	}
}
