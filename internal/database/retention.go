package database

import (
	"fmt"
	"log/slog"
	"time"
)

// DeleteAnalysesOlderThan removes analyses past the retention window and
// returns the number of rows deleted.
func (r *Repository) DeleteAnalysesOlderThan(age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age)

	result, err := r.db.Exec("DELETE FROM analyses WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired analyses: %w", err)
	}

	deleted, _ := result.RowsAffected()
	return deleted, nil
}

// PruneExpired applies the retention window once and logs the outcome
func (s *HistoryService) PruneExpired(retentionDays int) {
	if retentionDays <= 0 {
		return
	}

	deleted, err := s.repo.DeleteAnalysesOlderThan(time.Duration(retentionDays) * 24 * time.Hour)
	if err != nil {
		slog.Error("History retention pass failed", "error", err)
		return
	}

	if deleted > 0 {
		slog.Info("Pruned expired analyses", "deleted", deleted, "retention_days", retentionDays)
	}
}
