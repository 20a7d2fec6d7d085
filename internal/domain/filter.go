package domain

import "strings"

// AlertFilter selects alerts by case-insensitive substring match. Empty
// criteria match every alert; a zero MinRisk disables the risk threshold.
type AlertFilter struct {
	Location string
	Event    string
	Severity string
	MinRisk  RiskLabel
}

// Matches reports whether a normalized alert satisfies the text criteria.
func (f AlertFilter) Matches(a NormalizedAlert) bool {
	if !containsFold(a.Area, f.Location) || !containsFold(a.Event, f.Event) {
		return false
	}
	if f.Severity != "" && !containsFold(a.Severity, f.Severity) {
		return false
	}
	return true
}

// MatchesClassified additionally applies the MinRisk threshold.
func (f AlertFilter) MatchesClassified(a ClassifiedAlert) bool {
	if f.MinRisk != 0 && a.Risk.Label < f.MinRisk {
		return false
	}
	return f.Matches(a.NormalizedAlert)
}

// FilterAlerts returns the matching alerts in input order.
func FilterAlerts(alerts []ClassifiedAlert, f AlertFilter) []ClassifiedAlert {
	out := make([]ClassifiedAlert, 0, len(alerts))
	for _, a := range alerts {
		if f.MatchesClassified(a) {
			out = append(out, a)
		}
	}
	return out
}

// NewsFilter selects news whose headline or description contains Keyword,
// ignoring case.
type NewsFilter struct {
	Keyword string
}

func (f NewsFilter) Matches(n NormalizedNewsItem) bool {
	return containsFold(n.Headline, f.Keyword) || containsFold(n.Description, f.Keyword)
}

// FilterNews returns the matching news records in input order.
func FilterNews(items []NewsRecord, f NewsFilter) []NewsRecord {
	out := make([]NewsRecord, 0, len(items))
	for _, n := range items {
		if f.Matches(n.NormalizedNewsItem) {
			out = append(out, n)
		}
	}
	return out
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
