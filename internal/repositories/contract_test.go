package repositories

import (
	"context"
	"testing"

	"go-logstore/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(level string, ts int64, tag string) models.LogEntry {
	return models.LogEntry{
		Level:     level,
		Message:   level + " message",
		Tag:       tag,
		Timestamp: ts,
	}
}

func timestamps(entries []models.LogEntry) []int64 {
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.Timestamp
	}
	return out
}

// runContractSuite checks the behaviour every LogRepository must share.
// newRepo must return an empty store.
func runContractSuite(t *testing.T, newRepo func(t *testing.T) LogRepository) {
	t.Run("ids increase and are never reused", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		var last int64
		for i := 0; i < 5; i++ {
			id, err := repo.Save(ctx, entry(models.LevelInfo, int64(100+i), ""))
			require.NoError(t, err)
			assert.Greater(t, id, last)
			last = id
		}
		_, err := repo.DeleteOldLogs(ctx, 1000)
		require.NoError(t, err)
		require.NoError(t, repo.Clear(ctx))

		id, err := repo.Save(ctx, entry(models.LevelInfo, 500, ""))
		require.NoError(t, err)
		assert.Greater(t, id, last)
	})

	t.Run("round trip", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		in := models.LogEntry{
			Level:   models.LevelWarn,
			Message: "battery low",
			Data: map[string]any{
				"percent": 12.5,
				"charger": false,
				"device":  map[string]any{"model": "X1", "ports": []any{"usb", 2.0}},
				"nothing": nil,
			},
			Tag:       "power",
			Timestamp: 1700000000123,
			SessionID: "session-1",
			UserID:    "user-9",
		}
		id, err := repo.Save(ctx, in)
		require.NoError(t, err)

		got, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, got)
		in.ID = id
		assert.Equal(t, in, *got)
	})

	t.Run("nil data reads back as empty map", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		id, err := repo.Save(ctx, entry(models.LevelDebug, 10, ""))
		require.NoError(t, err)
		got, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, map[string]any{}, got.Data)
		assert.Equal(t, "", got.Tag)
		assert.Equal(t, "", got.SessionID)
	})

	t.Run("find missing id", func(t *testing.T) {
		repo := newRepo(t)
		got, err := repo.FindByID(context.Background(), 42)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("query orders newest first", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)
		for _, ts := range []int64{300, 100, 500, 200, 400} {
			_, err := repo.Save(ctx, entry(models.LevelInfo, ts, ""))
			require.NoError(t, err)
		}

		got, err := repo.Query(ctx, models.QueryOptions{})
		require.NoError(t, err)
		assert.Equal(t, []int64{500, 400, 300, 200, 100}, timestamps(got))
	})

	t.Run("equal timestamps order by id", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)
		first, err := repo.Save(ctx, entry(models.LevelInfo, 100, "a"))
		require.NoError(t, err)
		second, err := repo.Save(ctx, entry(models.LevelInfo, 100, "b"))
		require.NoError(t, err)

		got, err := repo.Query(ctx, models.QueryOptions{})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, second, got[0].ID)
		assert.Equal(t, first, got[1].ID)
	})

	t.Run("filters are conjunctive", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)
		seed := []models.LogEntry{
			entry(models.LevelInfo, 100, "net"),
			entry(models.LevelError, 200, "net"),
			entry(models.LevelError, 300, "ui"),
			entry(models.LevelWarn, 400, "net"),
			entry(models.LevelError, 500, "net"),
		}
		for _, e := range seed {
			_, err := repo.Save(ctx, e)
			require.NoError(t, err)
		}

		cases := []struct {
			name string
			opts models.QueryOptions
			want []int64
		}{
			{"levels", models.QueryOptions{Levels: []string{models.LevelError, models.LevelWarn}}, []int64{500, 400, 300, 200}},
			{"tag", models.QueryOptions{Tag: "ui"}, []int64{300}},
			{"range inclusive", models.QueryOptions{From: 200, To: 400}, []int64{400, 300, 200}},
			{"from only", models.QueryOptions{From: 450}, []int64{500}},
			{"to only", models.QueryOptions{To: 150}, []int64{100}},
			{"all together", models.QueryOptions{Levels: []string{models.LevelError}, Tag: "net", From: 150, To: 450}, []int64{200}},
			{"empty level list is no filter", models.QueryOptions{Levels: []string{}}, []int64{500, 400, 300, 200, 100}},
			{"no match", models.QueryOptions{Tag: "db"}, []int64{}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				got, err := repo.Query(ctx, tc.opts)
				require.NoError(t, err)
				assert.Equal(t, tc.want, timestamps(got))
			})
		}
	})

	t.Run("pagination window", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)
		for ts := int64(1); ts <= 10; ts++ {
			_, err := repo.Save(ctx, entry(models.LevelInfo, ts*10, ""))
			require.NoError(t, err)
		}

		cases := []struct {
			name          string
			limit, offset int
			want          []int64
		}{
			{"limit", 3, 0, []int64{100, 90, 80}},
			{"limit and offset", 3, 2, []int64{80, 70, 60}},
			{"offset only", 0, 7, []int64{30, 20, 10}},
			{"window past the end", 5, 8, []int64{20, 10}},
			{"offset beyond results", 5, 20, []int64{}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				got, err := repo.Query(ctx, models.QueryOptions{Limit: tc.limit, Offset: tc.offset})
				require.NoError(t, err)
				assert.Equal(t, tc.want, timestamps(got))
			})
		}
	})

	t.Run("delete old logs", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)
		for _, ts := range []int64{100, 150, 200, 250, 300} {
			_, err := repo.Save(ctx, entry(models.LevelInfo, ts, ""))
			require.NoError(t, err)
		}

		n, err := repo.DeleteOldLogs(ctx, 200)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		count, err := repo.GetCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)

		got, err := repo.Query(ctx, models.QueryOptions{})
		require.NoError(t, err)
		assert.Equal(t, []int64{300, 250, 200}, timestamps(got))

		n, err = repo.DeleteOldLogs(ctx, 50)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("clear", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)
		for _, ts := range []int64{1, 2, 3} {
			_, err := repo.Save(ctx, entry(models.LevelInfo, ts, ""))
			require.NoError(t, err)
		}

		require.NoError(t, repo.Clear(ctx))

		count, err := repo.GetCount(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
		got, err := repo.Query(ctx, models.QueryOptions{})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("invalid entries are rejected", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		bad := []models.LogEntry{
			{Level: "verbose", Message: "x", Timestamp: 1},
			{Level: models.LevelInfo, Message: "", Timestamp: 1},
			{Level: models.LevelInfo, Message: "x", Timestamp: 0},
		}
		for _, e := range bad {
			_, err := repo.Save(ctx, e)
			assert.ErrorIs(t, err, models.ErrInvalidEntry)
		}
		count, err := repo.GetCount(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("scenario", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)
		for _, e := range []models.LogEntry{
			entry(models.LevelInfo, 100, ""),
			entry(models.LevelError, 200, ""),
			entry(models.LevelInfo, 300, ""),
		} {
			_, err := repo.Save(ctx, e)
			require.NoError(t, err)
		}

		got, err := repo.Query(ctx, models.QueryOptions{Levels: []string{models.LevelError}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, int64(200), got[0].Timestamp)

		n, err := repo.DeleteOldLogs(ctx, 200)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		count, err := repo.GetCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})
}
