package repository

import (
	"context"
	"path/filepath"
	"riskierwas/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteRepo(t *testing.T) ResultRepo {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := NewSQLiteResultRepo(db)
	require.NoError(t, err)
	return repo
}

func sampleResult(id, code string, ended time.Time) *model.GameResult {
	return &model.GameResult{
		GameID: id,
		Code:   code,
		HostID: "host_abc",
		Standings: []model.TeamStanding{
			{Rank: 1, Name: "Owls", Score: 350},
			{Rank: 2, Name: "Foxes", Score: 120},
		},
		QuestionsPlayed: 7,
		PointDecay:      true,
		StartedAt:       ended.Add(-time.Hour),
		EndedAt:         ended,
	}
}

func TestSQLiteResultSaveAndGet(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	ended := time.Date(2025, 3, 14, 21, 30, 0, 0, time.UTC)

	require.NoError(t, repo.Save(ctx, sampleResult("g1", "ABC234", ended)))

	got, err := repo.GetByCode(ctx, "ABC234")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "g1", got.GameID)
	assert.Equal(t, "host_abc", got.HostID)
	assert.Equal(t, 7, got.QuestionsPlayed)
	assert.True(t, got.PointDecay)
	assert.Equal(t, "Owls", got.Standings[0].Name)
	assert.Len(t, got.Standings, 2)
	assert.True(t, ended.Equal(got.EndedAt), "ended %s", got.EndedAt)
	assert.True(t, ended.Add(-time.Hour).Equal(got.StartedAt))

	missing, err := repo.GetByCode(ctx, "ZZZZZZ")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLiteResultUpsertAndList(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 14, 20, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Save(ctx, sampleResult("g1", "AAAAAA", base)))
	require.NoError(t, repo.Save(ctx, sampleResult("g2", "BBBBBB", base.Add(time.Hour))))
	require.NoError(t, repo.Save(ctx, sampleResult("g3", "AAAAAA", base.Add(2*time.Hour))))

	again := sampleResult("g1", "AAAAAA", base)
	again.QuestionsPlayed = 9
	require.NoError(t, repo.Save(ctx, again))

	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"g3", "g2", "g1"}, []string{all[0].GameID, all[1].GameID, all[2].GameID})
	assert.Equal(t, 9, all[2].QuestionsPlayed)

	limited, err := repo.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	// Reused code resolves to the latest game
	latest, err := repo.GetByCode(ctx, "AAAAAA")
	require.NoError(t, err)
	assert.Equal(t, "g3", latest.GameID)
}

func TestSQLiteResultEmptyList(t *testing.T) {
	repo := newSQLiteRepo(t)
	all, err := repo.List(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}
