// Package store keeps the latest normalized alert and news snapshots in memory
// for the read API.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/couchcryptid/catastroguard/internal/domain"
)

// Memory holds the most recent sequence of each feed. Every refresh replaces
// the sequence of its feed wholesale. It implements pipeline.BatchLoader.
type Memory struct {
	mu           sync.RWMutex
	alerts       []domain.ClassifiedAlert
	news         []domain.NewsRecord
	alertsLoaded time.Time
	newsLoaded   time.Time
}

// NewMemory creates an empty snapshot store.
func NewMemory() *Memory {
	return &Memory{
		alerts: []domain.ClassifiedAlert{},
		news:   []domain.NewsRecord{},
	}
}

// LoadBatch applies refreshes in order, so the last refresh of each feed in
// the batch wins.
func (m *Memory) LoadBatch(_ context.Context, refreshes []domain.Refresh) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range refreshes {
		at := r.ReceivedAt
		if at.IsZero() {
			at = time.Now().UTC()
		}
		switch r.Feed {
		case domain.FeedAlerts:
			m.alerts = append([]domain.ClassifiedAlert{}, r.Alerts...)
			m.alertsLoaded = at
		case domain.FeedNews:
			m.news = append([]domain.NewsRecord{}, r.News...)
			m.newsLoaded = at
		}
	}
	return nil
}

// QueryAlerts returns the alerts of the latest snapshot that match f, in feed order.
func (m *Memory) QueryAlerts(f domain.AlertFilter) []domain.ClassifiedAlert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return domain.FilterAlerts(m.alerts, f)
}

// QueryNews returns the news records of the latest snapshot that match f, in feed order.
func (m *Memory) QueryNews(f domain.NewsFilter) []domain.NewsRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return domain.FilterNews(m.news, f)
}

// LoadedAt reports when the current snapshot of feed was received. The zero
// time means the feed has not been loaded yet.
func (m *Memory) LoadedAt(feed domain.Feed) time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if feed == domain.FeedNews {
		return m.newsLoaded
	}
	return m.alertsLoaded
}

// CheckReadiness returns an error until an alerts snapshot has been loaded.
// News is optional because the collector skips it without an API key.
func (m *Memory) CheckReadiness(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.alertsLoaded.IsZero() {
		return errors.New("no alerts snapshot loaded")
	}
	return nil
}
