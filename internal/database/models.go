package database

import (
	"encoding/json"
	"time"

	"github.com/phishmeter/phishmeter/internal/analyzer"
)

// Analysis is one stored analysis result
type Analysis struct {
	ID          string    `json:"id" db:"id"`
	URL         string    `json:"url" db:"url"`
	Host        string    `json:"host" db:"host"`
	Risk        string    `json:"risk" db:"risk"`
	Score       float64   `json:"score" db:"score"`
	Categories  string    `json:"-" db:"categories"` // JSON map
	Reasons     string    `json:"-" db:"reasons"`    // JSON array
	MLAvailable bool      `json:"ml_available" db:"ml_available"`
	MLScore     float64   `json:"ml_score,omitempty" db:"ml_score"`
	ElapsedMS   int64     `json:"elapsed_ms" db:"elapsed_ms"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// NewAnalysis flattens a report into a storable record. Category and reason
// payloads are serialized to JSON text columns.
func NewAnalysis(report analyzer.Report) *Analysis {
	categories, _ := json.Marshal(report.Heuristic.PredictedCategories)
	reasons, _ := json.Marshal(report.Heuristic.Reasons)

	return &Analysis{
		ID:          report.RequestID,
		URL:         report.URL,
		Host:        report.Features.Host,
		Risk:        string(report.Heuristic.Risk),
		Score:       report.Heuristic.Score,
		Categories:  string(categories),
		Reasons:     string(reasons),
		MLAvailable: report.ML.Available,
		MLScore:     report.ML.Score,
		ElapsedMS:   report.ElapsedMS,
		CreatedAt:   time.Now(),
	}
}

// PredictedCategories decodes the stored category list
func (a *Analysis) PredictedCategories() []string {
	var out []string
	_ = json.Unmarshal([]byte(a.Categories), &out)
	return out
}

// ReasonList decodes the stored reason list
func (a *Analysis) ReasonList() []string {
	var out []string
	_ = json.Unmarshal([]byte(a.Reasons), &out)
	return out
}
