package gazette

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nasermirzaei89/gazette/articles"
	"github.com/nasermirzaei89/gazette/db/sqlite3"
	"github.com/nasermirzaei89/gazette/discuss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLogLevelFromEnv(t *testing.T) {
	tests := []struct {
		value    string
		expected slog.Level
	}{
		{value: "debug", expected: slog.LevelDebug},
		{value: "info", expected: slog.LevelInfo},
		{value: "warn", expected: slog.LevelWarn},
		{value: "error", expected: slog.LevelError},
		{value: "verbose", expected: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.value)

			assert.Equal(t, tt.expected, GetLogLevelFromEnv())
		})
	}
}

func TestGetIntAndDuration(t *testing.T) {
	t.Setenv("GAZETTE_TEST_INT", "2")
	t.Setenv("GAZETTE_TEST_BAD_INT", "two")
	t.Setenv("GAZETTE_TEST_DURATION", "250ms")

	assert.Equal(t, 2, getInt("GAZETTE_TEST_INT", 0))
	assert.Equal(t, 7, getInt("GAZETTE_TEST_BAD_INT", 7))
	assert.Equal(t, 7, getInt("GAZETTE_TEST_MISSING_INT", 7))
	assert.Equal(t, 250*time.Millisecond, getDuration("GAZETTE_TEST_DURATION", time.Second))
	assert.Equal(t, time.Second, getDuration("GAZETTE_TEST_MISSING_DURATION", time.Second))
}

func TestSeedDemoData(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	db, err := sqlite3.NewDB(ctx, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	require.NoError(t, sqlite3.MigrateUp(ctx, db))

	articleRepo := sqlite3.NewArticleRepository(db)
	commentRepo := sqlite3.NewCommentRepository(db)
	txManager := sqlite3.NewTxManager(db)

	articlesSvc := articles.NewService(articleRepo, commentRepo, txManager)
	discussSvc := discuss.NewService(commentRepo, articleRepo, txManager)

	require.NoError(t, seedDemoData(ctx, articlesSvc, discussSvc))
	require.NoError(t, seedDemoData(ctx, articlesSvc, discussSvc))

	list, err := articlesSvc.ListArticles(ctx)
	require.NoError(t, err)
	require.Len(t, list, len(demoArticles(time.Now())))
	assert.Equal(t, "A Week of Traffic Numbers", list[0].Title)

	oldest := list[len(list)-1]
	assert.Equal(t, 4, oldest.CommentCount)

	nodes, err := discussSvc.ListComments(ctx, oldest.ID)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
}
