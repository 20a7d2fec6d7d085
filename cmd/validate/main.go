// Command validate checks processed record files against the raw upstream
// documents they were produced from. It re-runs normalization and, for
// classified files, classification, then reports every mismatch.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -alerts-raw data/raw/nws_alerts.json \
//	  -alerts-processed data/processed/alerts.json \
//	  -news-raw data/raw/news.json \
//	  -news-processed data/processed/news.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/couchcryptid/catastroguard/internal/domain"
)

// probabilityTolerance bounds the drift allowed between a stored posterior
// and a fresh one.
const probabilityTolerance = 1e-9

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	alertsRaw := flag.String("alerts-raw", "", "raw NWS alerts document")
	alertsProcessed := flag.String("alerts-processed", "", "processed alerts file")
	newsRaw := flag.String("news-raw", "", "raw NewsAPI document")
	newsProcessed := flag.String("news-processed", "", "processed news file")
	flag.Parse()

	if (*alertsRaw == "" || *alertsProcessed == "") && (*newsRaw == "" || *newsProcessed == "") {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(inputs{
		alertsRaw:       *alertsRaw,
		alertsProcessed: *alertsProcessed,
		newsRaw:         *newsRaw,
		newsProcessed:   *newsProcessed,
	}, os.Stdout))
}

type inputs struct {
	alertsRaw, alertsProcessed string
	newsRaw, newsProcessed     string
}

func run(in inputs, out io.Writer) int {
	fmt.Fprintln(out, "=== Processed Feed Validation ===")

	var phases []*phase
	if in.alertsRaw != "" && in.alertsProcessed != "" {
		ps, err := validateAlerts(in.alertsRaw, in.alertsProcessed)
		if err != nil {
			fmt.Fprintf(out, "FATAL: alerts: %v\n", err)
			return 1
		}
		phases = append(phases, ps...)
	}
	if in.newsRaw != "" && in.newsProcessed != "" {
		ps, err := validateNews(in.newsRaw, in.newsProcessed)
		if err != nil {
			fmt.Fprintf(out, "FATAL: news: %v\n", err)
			return 1
		}
		phases = append(phases, ps...)
	}

	return report(out, phases)
}

func report(out io.Writer, phases []*phase) int {
	fmt.Fprintln(out)
	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-36s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadDocument(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return domain.DecodeDocument(data)
}

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ── Alerts ──

func validateAlerts(rawPath, processedPath string) ([]*phase, error) {
	doc, err := loadDocument(rawPath)
	if err != nil {
		return nil, err
	}
	processed, err := loadJSON[domain.ClassifiedAlert](processedPath)
	if err != nil {
		return nil, err
	}
	expected := domain.NormalizeAlerts(doc)

	phases := []*phase{
		checkAlertFields(expected, processed),
	}
	if isClassified(processed) {
		classifier, err := domain.NewClassifier(domain.DefaultCorpus())
		if err != nil {
			return nil, err
		}
		phases = append(phases, checkAlertRisk(processed, classifier), checkUniqueIDs("Alerts: IDs", alertIDs(processed)))
	}
	return phases, nil
}

func isClassified(alerts []domain.ClassifiedAlert) bool {
	for i := range alerts {
		if alerts[i].Risk.Label != 0 || alerts[i].ID != "" {
			return true
		}
	}
	return false
}

func checkAlertFields(expected []domain.NormalizedAlert, processed []domain.ClassifiedAlert) *phase {
	p := &phase{name: "Alerts: field mapping"}
	if len(expected) != len(processed) {
		p.errorf("count mismatch: raw=%d processed=%d", len(expected), len(processed))
		return p
	}
	for i := range expected {
		if expected[i] != processed[i].NormalizedAlert {
			p.errorf("record %d: got %+v, want %+v", i, processed[i].NormalizedAlert, expected[i])
		}
	}
	return p
}

func checkAlertRisk(processed []domain.ClassifiedAlert, risker domain.Risker) *phase {
	p := &phase{name: "Alerts: risk predictions"}
	for i := range processed {
		a := &processed[i]
		want := risker.Classify(a.Description)
		if a.Risk.Label != want.Label {
			p.errorf("record %d (%s): label %s, want %s", i, a.Title, a.Risk.Label, want.Label)
			continue
		}
		var sum float64
		for _, l := range domain.RiskLabels {
			got := a.Risk.Probabilities[l]
			sum += got
			if math.Abs(got-want.Probabilities[l]) > probabilityTolerance {
				p.errorf("record %d (%s): P(%s)=%g, want %g", i, a.Title, l, got, want.Probabilities[l])
			}
		}
		if math.Abs(sum-1) > 1e-6 {
			p.errorf("record %d (%s): probabilities sum to %g", i, a.Title, sum)
		}
	}
	return p
}

func alertIDs(alerts []domain.ClassifiedAlert) []string {
	ids := make([]string, len(alerts))
	for i := range alerts {
		ids[i] = alerts[i].ID
	}
	return ids
}

// ── News ──

func validateNews(rawPath, processedPath string) ([]*phase, error) {
	doc, err := loadDocument(rawPath)
	if err != nil {
		return nil, err
	}
	processed, err := loadJSON[domain.NewsRecord](processedPath)
	if err != nil {
		return nil, err
	}
	expected := domain.NormalizeNews(doc)

	phases := []*phase{checkNewsFields(expected, processed)}
	ids := make([]string, 0, len(processed))
	for i := range processed {
		if processed[i].ID != "" {
			ids = append(ids, processed[i].ID)
		}
	}
	if len(ids) > 0 {
		phases = append(phases, checkUniqueIDs("News: IDs", ids))
	}
	return phases, nil
}

func checkNewsFields(expected []domain.NormalizedNewsItem, processed []domain.NewsRecord) *phase {
	p := &phase{name: "News: field mapping"}
	if len(expected) != len(processed) {
		p.errorf("count mismatch: raw=%d processed=%d", len(expected), len(processed))
		return p
	}
	for i := range expected {
		if expected[i] != processed[i].NormalizedNewsItem {
			p.errorf("record %d: got %+v, want %+v", i, processed[i].NormalizedNewsItem, expected[i])
		}
	}
	return p
}

// ── Shared ──

// checkUniqueIDs flags empty and repeated IDs.
func checkUniqueIDs(name string, ids []string) *phase {
	p := &phase{name: name}
	seen := make(map[string]int, len(ids))
	for i, id := range ids {
		if id == "" {
			p.errorf("record %d: missing id", i)
			continue
		}
		if first, ok := seen[id]; ok {
			p.errorf("record %d: id %s already used by record %d", i, id, first)
			continue
		}
		seen[id] = i
	}
	return p
}
