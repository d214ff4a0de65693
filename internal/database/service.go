package database

import (
	"log/slog"
	"sync"

	"github.com/phishmeter/phishmeter/internal/analyzer"
)

// HistoryService persists analysis reports off the request path. Saves are
// queued and written by a single background worker so a slow disk never
// blocks an /analyze response.
type HistoryService struct {
	repo  *Repository
	queue chan *Analysis
	done  chan struct{}
	once  sync.Once
}

// NewHistoryService creates a history service and starts its writer
func NewHistoryService(repo *Repository) *HistoryService {
	s := &HistoryService{
		repo:  repo,
		queue: make(chan *Analysis, 256),
		done:  make(chan struct{}),
	}

	go s.writer()

	return s
}

func (s *HistoryService) writer() {
	defer close(s.done)

	for a := range s.queue {
		if err := s.repo.SaveAnalysis(a); err != nil {
			slog.Warn("Failed to persist analysis", "id", a.ID, "error", err)
		}
	}
}

// Record queues one report for persistence. Reports are dropped with a
// warning when the queue is full rather than blocking the caller.
func (s *HistoryService) Record(report analyzer.Report) {
	select {
	case s.queue <- NewAnalysis(report):
	default:
		slog.Warn("History queue full, dropping record", "request_id", report.RequestID)
	}
}

// Recent returns the most recent stored analyses
func (s *HistoryService) Recent(limit int) ([]*Analysis, error) {
	return s.repo.RecentAnalyses(limit)
}

// ByHost returns stored analyses for one host
func (s *HistoryService) ByHost(host string, limit int) ([]*Analysis, error) {
	return s.repo.AnalysesByHost(host, limit)
}

// RiskCounts returns stored analysis counts per risk tier
func (s *HistoryService) RiskCounts() (map[string]int64, error) {
	return s.repo.CountByRisk()
}

// Close drains the queue and stops the writer
func (s *HistoryService) Close() error {
	s.once.Do(func() {
		close(s.queue)
	})
	<-s.done
	return nil
}
