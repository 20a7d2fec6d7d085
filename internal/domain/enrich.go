package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Risker predicts the risk of an alert description.
type Risker interface {
	Classify(description string) Classification
}

// ClassifyAlerts attaches a risk prediction, a stable ID, and the processing
// time to every alert. Order is preserved.
func ClassifyAlerts(alerts []NormalizedAlert, risker Risker) []ClassifiedAlert {
	now := clock.Now()
	out := make([]ClassifiedAlert, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, ClassifiedAlert{
			ID:              generateID("alert", a.Title, a.Area, a.Event, a.Start),
			NormalizedAlert: a,
			Risk:            risker.Classify(a.Description),
			ProcessedAt:     now,
		})
	}
	return out
}

// IdentifyNews assigns a stable ID and the processing time to every news item.
func IdentifyNews(items []NormalizedNewsItem) []NewsRecord {
	now := clock.Now()
	out := make([]NewsRecord, 0, len(items))
	for _, n := range items {
		out = append(out, NewsRecord{
			ID:                 generateID("news", n.Headline, n.URL, n.PublishedAt),
			NormalizedNewsItem: n,
			ProcessedAt:        now,
		})
	}
	return out
}

// generateID hashes the identifying fields of a record. Identical upstream
// records always map to the same ID.
func generateID(kind string, fields ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(fields, "|")))
	return kind + "-" + hex.EncodeToString(hash[:8])
}

// SerializeRefresh renders every record of a refresh as a sink message keyed
// by record ID.
func SerializeRefresh(r Refresh) ([]OutputEvent, error) {
	out := make([]OutputEvent, 0, r.Len())
	switch r.Feed {
	case FeedAlerts:
		for _, a := range r.Alerts {
			ev, err := serialize(a.ID, a, r, map[string]string{
				"risk":         a.Risk.Label.String(),
				"processed_at": a.ProcessedAt.Format(time.RFC3339),
			})
			if err != nil {
				return nil, err
			}
			out = append(out, ev)
		}
	case FeedNews:
		for _, n := range r.News {
			ev, err := serialize(n.ID, n, r, map[string]string{
				"processed_at": n.ProcessedAt.Format(time.RFC3339),
			})
			if err != nil {
				return nil, err
			}
			out = append(out, ev)
		}
	default:
		return nil, fmt.Errorf("serialize refresh: unknown feed %q", r.Feed)
	}
	return out, nil
}

func serialize(id string, record any, r Refresh, headers map[string]string) (OutputEvent, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize %s record: %w", r.Feed, err)
	}
	headers[HeaderFeed] = string(r.Feed)
	headers["refresh_id"] = r.RefreshID
	return OutputEvent{Key: []byte(id), Value: data, Headers: headers}, nil
}
