package history_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metalyz/backend/analyzer"
	"github.com/metalyz/backend/history"
)

func openTestDB(t *testing.T) *history.DB {
	t.Helper()

	db, err := history.Open(history.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	t.Parallel()

	_, err := history.Open("mysql", "dsn")
	assert.Error(t, err)
}

func TestDB_InsertAndList(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, db.Insert(ctx, history.Record{
			ID:         fmt.Sprintf("rec-%d", i),
			URL:        "https://example.com",
			SeoScore:   50 + i,
			IssueCount: i,
			AnalyzedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, db.Insert(ctx, history.Record{
		URL:        "https://other.org",
		SeoScore:   10,
		AnalyzedAt: base,
	}))

	records, err := db.List(ctx, "https://example.com", 0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "rec-2", records[0].ID)
	assert.Equal(t, 52, records[0].SeoScore)
	assert.Equal(t, base.Add(2*time.Hour), records[0].AnalyzedAt)
	assert.Equal(t, "rec-0", records[2].ID)

	limited, err := db.List(ctx, "https://example.com", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	other, err := db.List(ctx, "https://other.org", 0)
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.NotEmpty(t, other[0].ID)

	none, err := db.List(ctx, "https://missing.example", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none)
}

func TestDB_RecordImplementsRecorder(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()

	var recorder analyzer.Recorder = db
	fallback := analyzer.Fallback("https://down.example", fmt.Errorf("connection refused"))
	require.NoError(t, recorder.Record(ctx, fallback))

	records, err := db.List(ctx, "https://down.example", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Fallback)
	assert.Equal(t, 0, records[0].SeoScore)
	assert.Equal(t, 1, records[0].IssueCount)
	assert.WithinDuration(t, time.Now(), records[0].AnalyzedAt, time.Minute)
}
