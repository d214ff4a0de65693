// Package encoding writes analysis reports to line-oriented output formats
// for batch collection runs.
package encoding

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/phishmeter/phishmeter/internal/analyzer"
)

// Row pairs a report with an optional ground-truth label carried through
// from the input list, for building labeled datasets.
type Row struct {
	analyzer.Report
	Label string `json:"label,omitempty"`
}

// ReportWriter writes a stream of report rows to an output
type ReportWriter interface {
	Write(row Row) error
	Flush() error
}

// NewReportWriter returns a writer for the named format, "jsonl" or "csv"
func NewReportWriter(w io.Writer, format string) (ReportWriter, error) {
	switch strings.ToLower(format) {
	case "jsonl", "":
		return NewJSONLWriter(w), nil
	case "csv":
		return NewCSVWriter(w)
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// JSONLWriter writes one report per line as JSON
type JSONLWriter struct {
	enc *json.Encoder
}

func NewJSONLWriter(w io.Writer) *JSONLWriter {
	return &JSONLWriter{enc: json.NewEncoder(w)}
}

func (jw *JSONLWriter) Write(row Row) error {
	return jw.enc.Encode(row)
}

func (jw *JSONLWriter) Flush() error {
	return nil
}

// csvColumns is the flat projection of a report used for dataset building.
// The full signal set lives in the JSONL format, CSV keeps the columns a
// spreadsheet reader actually wants.
var csvColumns = []string{
	"url", "label", "host", "risk", "score", "categories", "reasons",
	"ml_available", "ml_score", "elapsed_ms",
}

// CSVWriter writes reports as rows with a fixed header
type CSVWriter struct {
	w *csv.Writer
}

func NewCSVWriter(w io.Writer) (*CSVWriter, error) {
	cw := &CSVWriter{w: csv.NewWriter(w)}
	if err := cw.w.Write(csvColumns); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	return cw, nil
}

func (cw *CSVWriter) Write(row Row) error {
	report := row.Report
	record := []string{
		report.URL,
		row.Label,
		report.Features.Host,
		string(report.Heuristic.Risk),
		strconv.FormatFloat(report.Heuristic.Score, 'f', -1, 64),
		strings.Join(report.Heuristic.PredictedCategories, "|"),
		strings.Join(report.Heuristic.Reasons, "|"),
		strconv.FormatBool(report.ML.Available),
		strconv.FormatFloat(report.ML.Score, 'f', -1, 64),
		strconv.FormatInt(report.ElapsedMS, 10),
	}
	return cw.w.Write(record)
}

func (cw *CSVWriter) Flush() error {
	cw.w.Flush()
	return cw.w.Error()
}
