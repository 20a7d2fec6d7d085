package domain

import (
	"encoding/json"
	"fmt"
)

const (
	alertsContainer = "features"
	newsContainer   = "articles"
)

// DecodeDocument parses a raw upstream document into a generic JSON tree.
// Valid JSON that is not an object (an array, scalar or null) has no
// containers and decodes to an empty document.
func DecodeDocument(data []byte) (map[string]any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}, nil
	}
	return doc, nil
}

// DetectFeed infers the feed of a document from its container key. It returns
// false when neither container is present.
func DetectFeed(doc map[string]any) (Feed, bool) {
	if _, ok := doc[alertsContainer]; ok {
		return FeedAlerts, true
	}
	if _, ok := doc[newsContainer]; ok {
		return FeedNews, true
	}
	return "", false
}

// NormalizeAlerts flattens the "features" array of an NWS alerts document.
// A document without the array yields an empty, non-nil slice.
func NormalizeAlerts(doc map[string]any) []NormalizedAlert {
	return NormalizeAlertFeatures(SliceAt(doc, alertsContainer))
}

// NormalizeAlertFeatures maps each raw feature to one NormalizedAlert, in order.
func NormalizeAlertFeatures(features []any) []NormalizedAlert {
	alerts := make([]NormalizedAlert, 0, len(features))
	for _, f := range features {
		alerts = append(alerts, NormalizedAlert{
			Title:       StringAt(f, "", "properties", "headline"),
			Description: StringAt(f, "", "properties", "description"),
			Severity:    StringAt(f, "", "properties", "severity"),
			Area:        StringAt(f, "", "properties", "areaDesc"),
			Event:       StringAt(f, "", "properties", "event"),
			Start:       StringAt(f, "", "properties", "effective"),
			End:         StringAt(f, "", "properties", "expires"),
		})
	}
	return alerts
}

// NormalizeNews flattens the "articles" array of a NewsAPI document.
// A document without the array yields an empty, non-nil slice.
func NormalizeNews(doc map[string]any) []NormalizedNewsItem {
	return NormalizeNewsArticles(SliceAt(doc, newsContainer))
}

// NormalizeNewsArticles maps each raw article to one NormalizedNewsItem, in order.
func NormalizeNewsArticles(articles []any) []NormalizedNewsItem {
	items := make([]NormalizedNewsItem, 0, len(articles))
	for _, a := range articles {
		items = append(items, NormalizedNewsItem{
			Headline:    StringAt(a, "", "title"),
			Description: StringAt(a, "", "description"),
			Source:      StringAt(a, "", "source", "name"),
			PublishedAt: StringAt(a, "", "publishedAt"),
			URL:         StringAt(a, "", "url"),
			Content:     StringAt(a, "", "content"),
		})
	}
	return items
}
