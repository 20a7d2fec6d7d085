// Command preprocess normalizes raw upstream documents saved on disk into
// the flat record files the dashboard reads. With -classify, alerts are
// written with their predicted risk, stable ID, and processing time.
//
// Usage:
//
//	go run ./cmd/preprocess \
//	  -alerts-in data/raw/nws_alerts.json \
//	  -alerts-out data/processed/alerts.json \
//	  -news-in data/raw/news.json \
//	  -news-out data/processed/news.json \
//	  -classify -processed-at 2025-01-01T06:00:00Z
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/couchcryptid/catastroguard/internal/domain"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

type options struct {
	alertsIn, alertsOut string
	newsIn, newsOut     string
	classify            bool
	processedAt         string
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("preprocess", flag.ContinueOnError)
	fs.StringVar(&o.alertsIn, "alerts-in", "", "raw NWS alerts document")
	fs.StringVar(&o.alertsOut, "alerts-out", "", "output path for normalized alerts")
	fs.StringVar(&o.newsIn, "news-in", "", "raw NewsAPI document")
	fs.StringVar(&o.newsOut, "news-out", "", "output path for normalized news")
	fs.BoolVar(&o.classify, "classify", false, "attach risk predictions and IDs")
	fs.StringVar(&o.processedAt, "processed-at", "", "fixed RFC3339 processing time for reproducible output")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	if (o.alertsIn == "") != (o.alertsOut == "") {
		return o, errors.New("-alerts-in and -alerts-out must be set together")
	}
	if (o.newsIn == "") != (o.newsOut == "") {
		return o, errors.New("-news-in and -news-out must be set together")
	}
	if o.alertsIn == "" && o.newsIn == "" {
		fs.Usage()
		return o, errors.New("nothing to do: set -alerts-in/-alerts-out or -news-in/-news-out")
	}
	return o, nil
}

func run(args []string, out io.Writer) error {
	o, err := parseFlags(args)
	if err != nil {
		return err
	}

	if o.processedAt != "" {
		at, err := time.Parse(time.RFC3339, o.processedAt)
		if err != nil {
			return fmt.Errorf("invalid -processed-at: %w", err)
		}
		domain.SetClock(clockwork.NewFakeClockAt(at.UTC()))
		defer domain.SetClock(nil)
	}

	if o.alertsIn != "" {
		if err := processAlerts(o, out); err != nil {
			return fmt.Errorf("alerts: %w", err)
		}
	}
	if o.newsIn != "" {
		if err := processNews(o, out); err != nil {
			return fmt.Errorf("news: %w", err)
		}
	}
	return nil
}

func processAlerts(o options, out io.Writer) error {
	doc, err := readDocument(o.alertsIn)
	if err != nil {
		return err
	}
	alerts := domain.NormalizeAlerts(doc)

	if !o.classify {
		fmt.Fprintf(out, "alerts: %d records -> %s\n", len(alerts), o.alertsOut)
		return writeJSON(o.alertsOut, alerts)
	}

	classifier, err := domain.NewClassifier(domain.DefaultCorpus())
	if err != nil {
		return err
	}
	classified := domain.ClassifyAlerts(alerts, classifier)
	fmt.Fprintf(out, "alerts: %d classified records -> %s\n", len(classified), o.alertsOut)
	printRiskStats(out, classified)
	return writeJSON(o.alertsOut, classified)
}

func processNews(o options, out io.Writer) error {
	doc, err := readDocument(o.newsIn)
	if err != nil {
		return err
	}
	items := domain.NormalizeNews(doc)

	fmt.Fprintf(out, "news: %d records -> %s\n", len(items), o.newsOut)
	if o.classify {
		return writeJSON(o.newsOut, domain.IdentifyNews(items))
	}
	return writeJSON(o.newsOut, items)
}

func readDocument(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return domain.DecodeDocument(data)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

type labelCount struct {
	label domain.RiskLabel
	count int
}

// printRiskStats prints the label distribution, highest risk first.
func printRiskStats(out io.Writer, alerts []domain.ClassifiedAlert) {
	counts := map[domain.RiskLabel]int{}
	for i := range alerts {
		counts[alerts[i].Risk.Label]++
	}
	lc := make([]labelCount, 0, len(counts))
	for l, c := range counts {
		lc = append(lc, labelCount{l, c})
	}
	sort.Slice(lc, func(i, j int) bool { return lc[i].label > lc[j].label })

	for _, c := range lc {
		fmt.Fprintf(out, "  %-8s %d (%s)\n", c.label, c.count, c.label.Notice())
	}
}
