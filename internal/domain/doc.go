// Package domain models disaster alerts and news headlines and the risk
// classification applied to them.
//
// # Data Sources
//
// Alerts come from the National Weather Service (NWS) active alerts API
// (https://api.weather.gov/alerts/active), a GeoJSON FeatureCollection. Each
// feature carries its fields under "properties":
//
//	{"features": [{"properties": {"headline": "...", "areaDesc": "...", ...}}]}
//
// News comes from the NewsAPI top-headlines endpoint
// (https://newsapi.org/v2/top-headlines):
//
//	{"articles": [{"title": "...", "source": {"name": "..."}, ...}]}
//
// The collector publishes each fetched document unchanged to the source topic
// with a "feed" header naming which of the two it is.
//
// # Normalization
//
// Both feeds are flattened into fixed records by [NormalizeAlerts] and
// [NormalizeNews]. Normalization is total: upstream schemas drift, so a
// missing container key yields an empty slice and a missing field at any depth
// yields an empty string. All lookups go through [StringAt].
//
//	properties.headline    → title
//	properties.description → description
//	properties.severity    → severity
//	properties.areaDesc    → area
//	properties.event       → event
//	properties.effective   → start
//	properties.expires     → end
//
//	title       → headline
//	description → description
//	source.name → source
//	publishedAt → publishedAt
//	url         → url
//	content     → content
//
// # Risk Classification
//
// Alert descriptions are scored by a multinomial naive Bayes model fitted on a
// small fixed corpus ([DefaultCorpus]). The vocabulary is the set of
// lower-cased tokens of two or more word characters found in the corpus;
// query tokens outside it are ignored. Scores use Laplace smoothing (alpha=1)
// and log-space priors, and the posterior is normalized with log-sum-exp.
// Equal scores resolve to the lowest label (Low before Moderate before Severe).
//
//	Low      1  advisories, minor flooding, heat
//	Moderate 2  earthquakes with potential damage, volcanic ash
//	Severe   3  hurricanes, high wind, flash floods, tsunamis
//
// # ID Generation
//
// Record IDs are short SHA-256 hashes of identifying fields, prefixed with the
// record kind ("alert-", "news-"), so replays of the same upstream document
// produce the same sink message keys. See [generateID].
package domain
