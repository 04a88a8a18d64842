package queries

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/finy-forecast/pkg/database"
	"github.com/OldStager01/finy-forecast/pkg/models"
)

func TestNullString(t *testing.T) {
	assert.False(t, nullString("").Valid)
	assert.True(t, nullString("x").Valid)
}

// openTestDB connects to the database named by FINY_TEST_DB_HOST and friends,
// or skips the test when none is configured.
func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	host := os.Getenv("FINY_TEST_DB_HOST")
	if host == "" {
		t.Skip("FINY_TEST_DB_HOST not set")
	}
	port, _ := strconv.Atoi(os.Getenv("FINY_TEST_DB_PORT"))
	if port == 0 {
		port = 5432
	}
	db, err := database.New(database.Config{
		Host:           host,
		Port:           port,
		Name:           os.Getenv("FINY_TEST_DB_NAME"),
		User:           os.Getenv("FINY_TEST_DB_USER"),
		Password:       os.Getenv("FINY_TEST_DB_PASSWORD"),
		MaxConnections: 2,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, database.NewMigrator(db).Run(ctx))
	return db
}

func TestForecastRepository_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := NewForecastRepository(db.DB)
	ctx := context.Background()

	metricID := "it-" + models.NewUUID()
	run := &models.ForecastRun{
		ID:             models.NewUUID(),
		MetricID:       metricID,
		Requested:      models.StrategyEnsemble,
		Used:           models.StrategyFallback,
		Fallback:       true,
		FallbackReason: models.FallbackInsufficientData,
		Values:         []float64{100, 105, 70},
		DurationMs:     12,
		CreatedAt:      time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, repo.Insert(ctx, run, "trace-1"))
	require.NoError(t, repo.Insert(ctx, run, "trace-1"), "duplicate ids are ignored")

	got, err := repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Values, got.Values)
	assert.Equal(t, run.FallbackReason, got.FallbackReason)

	runs, err := repo.ListByMetric(ctx, metricID, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	deleted, err := repo.DeleteOlderThan(ctx, metricID, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.GetByID(ctx, run.ID)
	assert.ErrorIs(t, err, ErrRunNotFound)
}
