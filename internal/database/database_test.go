package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phishmeter/phishmeter/internal/analyzer"
	"github.com/phishmeter/phishmeter/internal/mlscore"
	"github.com/phishmeter/phishmeter/internal/scoring"
	"github.com/phishmeter/phishmeter/internal/signals"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func sampleReport(id, url, host, risk string, score float64) analyzer.Report {
	return analyzer.Report{
		RequestID: id,
		URL:       url,
		Features:  signals.Set{URL: url, Host: host},
		Heuristic: scoring.Verdict{
			Risk:                scoring.Risk(risk),
			Score:               score,
			PredictedCategories: []string{"credential_theft"},
			Reasons:             []string{"Suspicious top-level domain"},
		},
		ML:        mlscore.Result{Available: false, Reason: "model artifacts not found"},
		ElapsedMS: 12,
	}
}

func TestSaveAndRecentAnalyses(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)

	first := NewAnalysis(sampleReport("id-1", "http://a.tk/login", "a.tk", "high", 0.91))
	second := NewAnalysis(sampleReport("id-2", "http://b.com", "b.com", "low", 0.05))
	second.CreatedAt = first.CreatedAt.Add(time.Second)

	require.NoError(t, repo.SaveAnalysis(first))
	require.NoError(t, repo.SaveAnalysis(second))

	recent, err := repo.RecentAnalyses(10)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	assert.Equal(t, "id-2", recent[0].ID)
	assert.Equal(t, "id-1", recent[1].ID)
	assert.Equal(t, "high", recent[1].Risk)
	assert.Equal(t, []string{"credential_theft"}, recent[1].PredictedCategories())
	assert.Equal(t, []string{"Suspicious top-level domain"}, recent[1].ReasonList())
}

func TestAnalysesByHost(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)

	require.NoError(t, repo.SaveAnalysis(NewAnalysis(sampleReport("id-1", "http://a.tk/x", "a.tk", "high", 0.9))))
	require.NoError(t, repo.SaveAnalysis(NewAnalysis(sampleReport("id-2", "http://b.com", "b.com", "low", 0.1))))

	got, err := repo.AnalysesByHost("a.tk", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "id-1", got[0].ID)
}

func TestCountByRisk(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)

	require.NoError(t, repo.SaveAnalysis(NewAnalysis(sampleReport("id-1", "http://a.tk", "a.tk", "high", 0.9))))
	require.NoError(t, repo.SaveAnalysis(NewAnalysis(sampleReport("id-2", "http://b.tk", "b.tk", "high", 0.8))))
	require.NoError(t, repo.SaveAnalysis(NewAnalysis(sampleReport("id-3", "http://c.com", "c.com", "low", 0.1))))

	counts, err := repo.CountByRisk()
	require.NoError(t, err)

	assert.Equal(t, int64(2), counts["high"])
	assert.Equal(t, int64(1), counts["low"])
}

func TestHistoryServiceRecord(t *testing.T) {
	db := newTestDB(t)
	svc := NewHistoryService(NewRepository(db))

	svc.Record(sampleReport("id-1", "http://a.tk", "a.tk", "high", 0.9))
	require.NoError(t, svc.Close())

	recent, err := svc.Recent(10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "id-1", recent[0].ID)
}

func TestDeleteAnalysesOlderThan(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)

	old := NewAnalysis(sampleReport("id-old", "http://a.tk", "a.tk", "high", 0.9))
	old.CreatedAt = time.Now().Add(-100 * 24 * time.Hour)
	fresh := NewAnalysis(sampleReport("id-new", "http://b.com", "b.com", "low", 0.1))

	require.NoError(t, repo.SaveAnalysis(old))
	require.NoError(t, repo.SaveAnalysis(fresh))

	deleted, err := repo.DeleteAnalysesOlderThan(90 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	recent, err := repo.RecentAnalyses(10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "id-new", recent[0].ID)
}

func TestPruneExpiredKeepsRecentRows(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	svc := NewHistoryService(repo)
	t.Cleanup(func() { _ = svc.Close() })

	old := NewAnalysis(sampleReport("id-old", "http://a.tk", "a.tk", "high", 0.9))
	old.CreatedAt = time.Now().Add(-100 * 24 * time.Hour)
	require.NoError(t, repo.SaveAnalysis(old))
	require.NoError(t, repo.SaveAnalysis(NewAnalysis(sampleReport("id-new", "http://b.com", "b.com", "low", 0.1))))

	svc.PruneExpired(90)

	recent, err := repo.RecentAnalyses(10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "id-new", recent[0].ID)
}
