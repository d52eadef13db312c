package sqlite3_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nasermirzaei89/gazette/articles"
	"github.com/nasermirzaei89/gazette/db/sqlite3"
	"github.com/nasermirzaei89/gazette/discuss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	ctx := context.Background()

	db, err := sqlite3.NewDB(ctx, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	err = sqlite3.MigrateUp(ctx, db)
	require.NoError(t, err)

	return db
}

func insertArticle(t *testing.T, repo *sqlite3.ArticleRepository, id string) *articles.Article {
	t.Helper()

	article := &articles.Article{
		ID:          id,
		Title:       "Title " + id,
		Summary:     "Summary",
		Content:     "Content",
		Author:      "Jane",
		PublishedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}

	err := repo.Insert(context.Background(), article)
	require.NoError(t, err)

	return article
}

func TestArticleRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newTestDB(t)
	repo := sqlite3.NewArticleRepository(db)

	insertArticle(t, repo, "a1")

	t.Run("find", func(t *testing.T) {
		article, err := repo.Find(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, "Title a1", article.Title)
		assert.True(t, article.PublishedAt.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))
	})

	t.Run("find missing", func(t *testing.T) {
		_, err := repo.Find(ctx, "nope")
		require.Error(t, err)

		notFoundErr := &articles.ArticleNotFoundError{}
		require.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, "nope", notFoundErr.ID)
	})

	t.Run("exists", func(t *testing.T) {
		exists, err := repo.ArticleExists(ctx, "a1")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ArticleExists(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("increment missing", func(t *testing.T) {
		err := repo.IncrementCommentCount(ctx, "nope")

		notFoundErr := &articles.ArticleNotFoundError{}
		require.ErrorAs(t, err, &notFoundErr)
	})
}

func TestArticleRepository_Counters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newTestDB(t)
	repo := sqlite3.NewArticleRepository(db)

	insertArticle(t, repo, "a1")

	require.NoError(t, repo.IncrementViewCount(ctx, "a1"))
	require.NoError(t, repo.IncrementViewCount(ctx, "a1"))
	require.NoError(t, repo.IncrementCommentCount(ctx, "a1"))

	article, err := repo.Find(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 2, article.ViewCount)
	assert.Equal(t, 1, article.CommentCount)
}

func TestArticleRepository_UpdateDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newTestDB(t)
	repo := sqlite3.NewArticleRepository(db)

	article := insertArticle(t, repo, "a1")
	article.Title = "Changed"

	require.NoError(t, repo.Update(ctx, article))

	found, err := repo.Find(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Changed", found.Title)

	require.NoError(t, repo.Delete(ctx, "a1"))

	err = repo.Delete(ctx, "a1")
	notFoundErr := &articles.ArticleNotFoundError{}
	require.ErrorAs(t, err, &notFoundErr)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCommentRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newTestDB(t)
	repo := sqlite3.NewCommentRepository(db)

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	parentID := "c1"

	comments := []*discuss.Comment{
		{ID: "c2", ArticleID: "a1", ParentID: &parentID, Author: "Bob", Content: "reply", CreatedAt: base.Add(time.Minute)},
		{ID: "c1", ArticleID: "a1", Author: "Ann", Content: "first", CreatedAt: base},
		{ID: "c3", ArticleID: "a2", Author: "Cid", Content: "other", CreatedAt: base},
	}

	for _, c := range comments {
		require.NoError(t, repo.Insert(ctx, c))
	}

	t.Run("find", func(t *testing.T) {
		c, err := repo.Find(ctx, "c2")
		require.NoError(t, err)
		require.NotNil(t, c.ParentID)
		assert.Equal(t, "c1", *c.ParentID)
		assert.True(t, c.CreatedAt.Equal(base.Add(time.Minute)))

		c, err = repo.Find(ctx, "c1")
		require.NoError(t, err)
		assert.Nil(t, c.ParentID)
	})

	t.Run("find missing", func(t *testing.T) {
		_, err := repo.Find(ctx, "nope")

		notFoundErr := &discuss.CommentNotFoundError{}
		require.ErrorAs(t, err, &notFoundErr)
	})

	t.Run("list by article oldest first", func(t *testing.T) {
		list, err := repo.List(ctx, &discuss.ListCommentsParams{ArticleID: "a1"})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "c1", list[0].ID)
		assert.Equal(t, "c2", list[1].ID)
	})

	t.Run("count", func(t *testing.T) {
		count, err := repo.Count(ctx, &discuss.ListCommentsParams{ArticleID: "a1"})
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		count, err = repo.Count(ctx, &discuss.ListCommentsParams{ArticleID: "missing"})
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}

func TestCommentRepository_DeleteByArticle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newTestDB(t)
	repo := sqlite3.NewCommentRepository(db)

	now := time.Now().UTC()

	require.NoError(t, repo.Insert(ctx, &discuss.Comment{ID: "c1", ArticleID: "a1", Author: "A", Content: "x", CreatedAt: now}))
	require.NoError(t, repo.Insert(ctx, &discuss.Comment{ID: "c2", ArticleID: "a1", Author: "B", Content: "y", CreatedAt: now}))
	require.NoError(t, repo.Insert(ctx, &discuss.Comment{ID: "c3", ArticleID: "a2", Author: "C", Content: "z", CreatedAt: now}))

	deleted, err := repo.DeleteByArticle(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	count, err := repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestTxManager_WithinTx(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newTestDB(t)
	txm := sqlite3.NewTxManager(db)
	articleRepo := sqlite3.NewArticleRepository(db)
	commentRepo := sqlite3.NewCommentRepository(db)

	insertArticle(t, articleRepo, "a1")

	t.Run("rollback on error", func(t *testing.T) {
		errBoom := errors.New("boom")

		err := txm.WithinTx(ctx, func(ctx context.Context) error {
			err := commentRepo.Insert(ctx, &discuss.Comment{ID: "r1", ArticleID: "a1", Author: "A", Content: "x", CreatedAt: time.Now()})
			require.NoError(t, err)

			err = articleRepo.IncrementCommentCount(ctx, "a1")
			require.NoError(t, err)

			return errBoom
		})
		require.ErrorIs(t, err, errBoom)

		_, err = commentRepo.Find(ctx, "r1")
		notFoundErr := &discuss.CommentNotFoundError{}
		require.ErrorAs(t, err, &notFoundErr)

		article, err := articleRepo.Find(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, 0, article.CommentCount)
	})

	t.Run("commit joins nested calls", func(t *testing.T) {
		err := txm.WithinTx(ctx, func(ctx context.Context) error {
			return txm.WithinTx(ctx, func(ctx context.Context) error {
				return commentRepo.Insert(ctx, &discuss.Comment{ID: "k1", ArticleID: "a1", Author: "A", Content: "x", CreatedAt: time.Now()})
			})
		})
		require.NoError(t, err)

		_, err = commentRepo.Find(ctx, "k1")
		require.NoError(t, err)
	})
}
