package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okuma-lab/readability-api/internal/models"
)

func TestRepository_PredictionsArePerUser(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	for _, user := range []string{"admin", "user", "user"} {
		rec := &models.PredictionRecord{Text: "t", Score: 0.5, Label: models.LabelEasy, User: user}
		require.NoError(t, repo.InsertPrediction(ctx, rec))
		assert.NotEmpty(t, rec.ID)
	}

	mine, err := repo.FindPredictionsByUser(ctx, "user")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	none, err := repo.FindPredictionsByUser(ctx, "ghost")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	deleted, err := repo.DeletePredictionsByUser(ctx, "user")
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	all, err := repo.AllPredictions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "admin", all[0].User)

	deleted, err = repo.DeletePredictionsByUser(ctx, "user")
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestRepository_Simplifications(t *testing.T) {
	repo := NewRepository()

	rec := &models.SimplificationRecord{UserID: "user", OriginalText: "a", SimplifiedText: "b", Method: models.MethodMT5}
	require.NoError(t, repo.InsertSimplification(context.Background(), rec))

	log := repo.Simplifications()
	require.Len(t, log, 1)
	assert.Equal(t, rec.ID, log[0].ID)
	assert.Equal(t, models.MethodMT5, log[0].Method)
}

func TestRepository_ConcurrentInserts(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = repo.InsertPrediction(ctx, &models.PredictionRecord{Text: "t", Label: models.LabelEasy, User: "user"})
		}()
	}
	wg.Wait()

	all, err := repo.AllPredictions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 50)
}
