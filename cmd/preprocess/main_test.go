package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	rawAlerts = `{"features":[
		{"properties":{"headline":"Flash Flood Warning","description":"Flash flood alert with evacuation orders","severity":"Severe","areaDesc":"San Diego County","event":"Flash Flood Warning","effective":"2025-01-01T00:00:00-08:00","expires":"2025-01-02T00:00:00-08:00"}},
		{"properties":{"headline":"Heat Advisory","description":"Heat advisory in effect for inland valleys","areaDesc":"Coachella Valley"}}
	]}`
	rawNews = `{"articles":[{"title":"Storm batters coast","source":{"name":"AP"},"url":"https://example.com/a"}]}`
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func readRecords(t *testing.T, path string) []map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var records []map[string]any
	require.NoError(t, json.Unmarshal(data, &records))
	return records
}

func TestRun_NormalizeOnly(t *testing.T) {
	dir := t.TempDir()
	alertsIn := writeFile(t, dir, "alerts.json", rawAlerts)
	newsIn := writeFile(t, dir, "news.json", rawNews)
	alertsOut := filepath.Join(dir, "out", "alerts.json")
	newsOut := filepath.Join(dir, "out", "news.json")

	var out bytes.Buffer
	err := run([]string{
		"-alerts-in", alertsIn, "-alerts-out", alertsOut,
		"-news-in", newsIn, "-news-out", newsOut,
	}, &out)
	require.NoError(t, err)

	alerts := readRecords(t, alertsOut)
	require.Len(t, alerts, 2)
	assert.Equal(t, "Flash Flood Warning", alerts[0]["title"])
	assert.Equal(t, "San Diego County", alerts[0]["area"])
	assert.Equal(t, "2025-01-02T00:00:00-08:00", alerts[0]["end"])
	assert.Equal(t, "", alerts[1]["severity"])
	assert.NotContains(t, alerts[0], "risk")

	news := readRecords(t, newsOut)
	require.Len(t, news, 1)
	assert.Equal(t, "Storm batters coast", news[0]["headline"])
	assert.Equal(t, "AP", news[0]["source"])
	assert.Contains(t, out.String(), "alerts: 2 records")
}

func TestRun_Classify(t *testing.T) {
	dir := t.TempDir()
	alertsIn := writeFile(t, dir, "alerts.json", rawAlerts)
	alertsOut := filepath.Join(dir, "classified.json")

	var out bytes.Buffer
	err := run([]string{
		"-alerts-in", alertsIn, "-alerts-out", alertsOut,
		"-classify", "-processed-at", "2025-01-01T06:00:00Z",
	}, &out)
	require.NoError(t, err)

	alerts := readRecords(t, alertsOut)
	require.Len(t, alerts, 2)
	assert.Equal(t, "2025-01-01T06:00:00Z", alerts[0]["processed_at"])
	assert.Regexp(t, `^alert-[0-9a-f]{16}$`, alerts[0]["id"])

	risk := alerts[0]["risk"].(map[string]any)
	assert.Equal(t, "Severe", risk["label"])
	assert.Equal(t, "Low", alerts[1]["risk"].(map[string]any)["label"])
	assert.Contains(t, out.String(), "Severe")
}

func TestRun_FlagErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "nothing to do", args: nil},
		{name: "alerts without output", args: []string{"-alerts-in", "a.json"}},
		{name: "news without input", args: []string{"-news-out", "n.json"}},
		{name: "bad processed-at", args: []string{"-alerts-in", "a.json", "-alerts-out", "b.json", "-processed-at", "yesterday"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, run(tt.args, &bytes.Buffer{}))
		})
	}
}

func TestRun_InvalidDocument(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "alerts.json", "not json")

	err := run([]string{"-alerts-in", in, "-alerts-out", filepath.Join(dir, "o.json")}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode document")
}
