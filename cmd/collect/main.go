// Command collect analyzes a list of URLs and writes the reports to a
// JSONL or CSV file, for building labeled datasets and regression corpora.
package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/phishmeter/phishmeter/internal/analyzer"
	"github.com/phishmeter/phishmeter/internal/config"
	"github.com/phishmeter/phishmeter/internal/encoding"
	"github.com/phishmeter/phishmeter/internal/mlscore"
)

type entry struct {
	URL   string
	Label string
}

func main() {
	inputFormat := flag.String("input-format", "", "input format: txt, csv, or jsonl (default: by extension)")
	outputFormat := flag.String("output-format", "", "output format: jsonl or csv (default: by extension)")
	offline := flag.Bool("offline", false, "skip network probes, lexical features only")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <input> <output>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}
	inputPath := flag.Arg(0)
	outputPath := flag.Arg(1)

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	entries, err := readEntries(inputPath, normalizeInputFormat(inputPath, *inputFormat))
	if err != nil {
		slog.Error("Failed to read input", "path", inputPath, "error", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		slog.Error("Input contains no URLs", "path", inputPath)
		os.Exit(1)
	}

	cfg := config.Load()
	mlScorer := mlscore.NewScorer(cfg.ModelPath)
	defer mlScorer.Close()

	urlAnalyzer := analyzer.New(cfg, mlScorer, logger)

	out, err := os.Create(outputPath)
	if err != nil {
		slog.Error("Failed to create output", "path", outputPath, "error", err)
		os.Exit(1)
	}
	defer out.Close()

	writer, err := encoding.NewReportWriter(out, normalizeOutputFormat(outputPath, *outputFormat))
	if err != nil {
		slog.Error("Failed to create writer", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	for i, e := range entries {
		var report analyzer.Report
		if *offline {
			report = urlAnalyzer.AnalyzeOffline(ctx, e.URL)
		} else {
			report = urlAnalyzer.Analyze(ctx, e.URL)
		}

		if err := writer.Write(encoding.Row{Report: report, Label: e.Label}); err != nil {
			slog.Error("Failed to write report", "url", e.URL, "error", err)
			os.Exit(1)
		}

		slog.Info("Analyzed",
			"progress", fmt.Sprintf("%d/%d", i+1, len(entries)),
			"url", e.URL,
			"risk", report.Heuristic.Risk,
			"score", report.Heuristic.Score)
	}

	if err := writer.Flush(); err != nil {
		slog.Error("Failed to flush output", "error", err)
		os.Exit(1)
	}
}

func normalizeInputFormat(path, explicit string) string {
	if explicit != "" {
		return strings.ToLower(explicit)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".list":
		return "txt"
	case ".jsonl":
		return "jsonl"
	default:
		return "csv"
	}
}

func normalizeOutputFormat(path, explicit string) string {
	if explicit != "" {
		return strings.ToLower(explicit)
	}
	if strings.ToLower(filepath.Ext(path)) == ".csv" {
		return "csv"
	}
	return "jsonl"
}

func readEntries(path, format string) ([]entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch format {
	case "txt":
		return readTxt(f)
	case "jsonl":
		return readJSONL(f)
	case "csv":
		return readCSV(f)
	default:
		return nil, fmt.Errorf("unknown input format %q", format)
	}
}

func readTxt(r io.Reader) ([]entry, error) {
	var entries []entry
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		url := strings.TrimSpace(scanner.Text())
		if url == "" || strings.HasPrefix(url, "#") {
			continue
		}
		entries = append(entries, entry{URL: url})
	}
	return entries, scanner.Err()
}

// readJSONL accepts either bare URL strings or objects with url and an
// optional label. Malformed lines are skipped.
func readJSONL(r io.Reader) ([]entry, error) {
	var entries []entry
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}

		var url string
		if err := json.Unmarshal([]byte(raw), &url); err == nil {
			if url = strings.TrimSpace(url); url != "" {
				entries = append(entries, entry{URL: url})
			}
			continue
		}

		var obj struct {
			URL   string `json:"url"`
			Label string `json:"label"`
		}
		if err := json.Unmarshal([]byte(raw), &obj); err != nil {
			continue
		}
		if obj.URL = strings.TrimSpace(obj.URL); obj.URL != "" {
			entries = append(entries, entry{URL: obj.URL, Label: obj.Label})
		}
	}
	return entries, scanner.Err()
}

func readCSV(r io.Reader) ([]entry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	urlCol, labelCol := -1, -1
	for i, name := range records[0] {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "url":
			urlCol = i
		case "label":
			labelCol = i
		}
	}
	if urlCol < 0 {
		return nil, fmt.Errorf("csv input has no url column")
	}

	var entries []entry
	for _, record := range records[1:] {
		if urlCol >= len(record) {
			continue
		}
		url := strings.TrimSpace(record[urlCol])
		if url == "" {
			continue
		}
		e := entry{URL: url}
		if labelCol >= 0 && labelCol < len(record) {
			e.Label = strings.TrimSpace(record[labelCol])
		}
		entries = append(entries, e)
	}
	return entries, nil
}
