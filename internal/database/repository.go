package database

import (
	"fmt"
)

// Repository handles database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// SaveAnalysis stores one analysis record
func (r *Repository) SaveAnalysis(a *Analysis) error {
	stmt, err := r.db.GetPreparedStatement("insert_analysis")
	if err != nil {
		return err
	}

	_, err = stmt.Exec(
		a.ID, a.URL, a.Host, a.Risk, a.Score, a.Categories, a.Reasons,
		a.MLAvailable, a.MLScore, a.ElapsedMS, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}

	return nil
}

// RecentAnalyses returns the most recent analyses, newest first
func (r *Repository) RecentAnalyses(limit int) ([]*Analysis, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	stmt, err := r.db.GetPreparedStatement("get_recent_analyses")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent analyses: %w", err)
	}
	defer rows.Close()

	return scanAnalyses(rows)
}

// AnalysesByHost returns stored analyses for one host, newest first
func (r *Repository) AnalysesByHost(host string, limit int) ([]*Analysis, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	stmt, err := r.db.GetPreparedStatement("get_analyses_by_host")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(host, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses by host: %w", err)
	}
	defer rows.Close()

	return scanAnalyses(rows)
}

// CountByRisk returns the number of stored analyses per risk tier
func (r *Repository) CountByRisk() (map[string]int64, error) {
	stmt, err := r.db.GetPreparedStatement("count_by_risk")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query()
	if err != nil {
		return nil, fmt.Errorf("failed to count by risk: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var risk string
		var count int64
		if err := rows.Scan(&risk, &count); err != nil {
			return nil, fmt.Errorf("failed to scan risk count: %w", err)
		}
		counts[risk] = count
	}

	return counts, rows.Err()
}

type rowScanner interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanAnalyses(rows rowScanner) ([]*Analysis, error) {
	var out []*Analysis
	for rows.Next() {
		var a Analysis
		if err := rows.Scan(
			&a.ID, &a.URL, &a.Host, &a.Risk, &a.Score, &a.Categories, &a.Reasons,
			&a.MLAvailable, &a.MLScore, &a.ElapsedMS, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		out = append(out, &a)
	}

	return out, rows.Err()
}
