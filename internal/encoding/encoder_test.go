package encoding

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phishmeter/phishmeter/internal/analyzer"
	"github.com/phishmeter/phishmeter/internal/mlscore"
	"github.com/phishmeter/phishmeter/internal/scoring"
	"github.com/phishmeter/phishmeter/internal/signals"
)

func sampleRow(url, host string, risk scoring.Risk, label string) Row {
	return Row{Label: label, Report: analyzer.Report{
		RequestID: "req-1",
		URL:       url,
		Features:  signals.Set{URL: url, Host: host},
		Heuristic: scoring.Verdict{
			Risk:                risk,
			Score:               0.72,
			PredictedCategories: []string{scoring.CategoryCredentialTheft},
			Reasons:             []string{"Suspicious top-level domain", "Unusually long URL"},
		},
		ML:        mlscore.Result{Available: false, Reason: "model artifacts not found"},
		ElapsedMS: 41,
	}}
}

func TestJSONLWriterRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf)

	require.NoError(t, w.Write(sampleRow("http://a.tk/x", "a.tk", scoring.RiskHigh, "phishing")))
	require.NoError(t, w.Write(sampleRow("https://b.org/", "b.org", scoring.RiskLow, "")))
	require.NoError(t, w.Flush())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var decoded Row
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &decoded))
	assert.Equal(t, "http://a.tk/x", decoded.URL)
	assert.Equal(t, scoring.RiskHigh, decoded.Heuristic.Risk)
	assert.Equal(t, "phishing", decoded.Label)
	assert.NotContains(t, lines[1], `"label"`)
}

func TestCSVWriterHeaderAndRows(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewCSVWriter(&buf)
	require.NoError(t, err)

	require.NoError(t, w.Write(sampleRow("http://a.tk/x", "a.tk", scoring.RiskHigh, "phishing")))
	require.NoError(t, w.Flush())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "url,label,host,risk,score"))
	assert.Contains(t, lines[1], "phishing,a.tk,high,0.72")
	assert.Contains(t, lines[1], "Suspicious top-level domain|Unusually long URL")
}

func TestNewReportWriterSelectsFormat(t *testing.T) {
	var buf bytes.Buffer

	w, err := NewReportWriter(&buf, "jsonl")
	require.NoError(t, err)
	assert.IsType(t, &JSONLWriter{}, w)

	w, err = NewReportWriter(&buf, "CSV")
	require.NoError(t, err)
	assert.IsType(t, &CSVWriter{}, w)

	_, err = NewReportWriter(&buf, "xml")
	assert.Error(t, err)
}
