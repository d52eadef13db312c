package sqlite3

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/nasermirzaei89/gazette/articles"
	"github.com/nasermirzaei89/gazette/discuss"
)

const tableArticles = "articles"

type ArticleRepository struct {
	db *sql.DB
}

var (
	_ articles.ArticleRepository = (*ArticleRepository)(nil)
	_ discuss.ArticleStore       = (*ArticleRepository)(nil)
)

func NewArticleRepository(db *sql.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

const (
	articleFieldID           = "id"
	articleFieldTitle        = "title"
	articleFieldSummary      = "summary"
	articleFieldContent      = "content"
	articleFieldImage        = "image"
	articleFieldAuthor       = "author"
	articleFieldPublishedAt  = "published_at"
	articleFieldViewCount    = "view_count"
	articleFieldCommentCount = "comment_count"
)

func articleColumns() []string {
	return []string{
		articleFieldID,
		articleFieldTitle,
		articleFieldSummary,
		articleFieldContent,
		articleFieldImage,
		articleFieldAuthor,
		articleFieldPublishedAt,
		articleFieldViewCount,
		articleFieldCommentCount,
	}
}

func scanArticle(row sq.RowScanner) (*articles.Article, error) {
	var article articles.Article

	err := row.Scan(
		&article.ID,
		&article.Title,
		&article.Summary,
		&article.Content,
		&article.Image,
		&article.Author,
		&article.PublishedAt,
		&article.ViewCount,
		&article.CommentCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	article.PublishedAt = article.PublishedAt.UTC()

	return &article, nil
}

func (repo *ArticleRepository) Insert(ctx context.Context, article *articles.Article) error {
	q := sq.Insert(tableArticles).
		Columns(articleColumns()...).
		Values(
			article.ID,
			article.Title,
			article.Summary,
			article.Content,
			article.Image,
			article.Author,
			article.PublishedAt.UTC(),
			article.ViewCount,
			article.CommentCount,
		)

	q = q.RunWith(runner(ctx, repo.db))

	_, err := q.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec insert: %w", err)
	}

	return nil
}

func (repo *ArticleRepository) Find(ctx context.Context, id string) (*articles.Article, error) {
	q := sq.Select(articleColumns()...).
		From(tableArticles).
		Where(sq.Eq{articleFieldID: id})

	q = q.RunWith(runner(ctx, repo.db))

	article, err := scanArticle(q.QueryRowContext(ctx))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &articles.ArticleNotFoundError{ID: id}
		}

		return nil, fmt.Errorf("failed to scan article: %w", err)
	}

	return article, nil
}

func (repo *ArticleRepository) List(ctx context.Context) ([]*articles.Article, error) {
	q := sq.Select(articleColumns()...).
		From(tableArticles).
		OrderBy(articleFieldPublishedAt + " DESC")

	q = q.RunWith(runner(ctx, repo.db))

	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	result := make([]*articles.Article, 0)

	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}

		result = append(result, article)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return result, nil
}

func (repo *ArticleRepository) Update(ctx context.Context, article *articles.Article) error {
	q := sq.Update(tableArticles).
		SetMap(map[string]any{
			articleFieldTitle:   article.Title,
			articleFieldSummary: article.Summary,
			articleFieldContent: article.Content,
			articleFieldImage:   article.Image,
			articleFieldAuthor:  article.Author,
		}).
		Where(sq.Eq{articleFieldID: article.ID})

	return repo.execAffectingOne(ctx, q, article.ID)
}

func (repo *ArticleRepository) Delete(ctx context.Context, id string) error {
	q := sq.Delete(tableArticles).
		Where(sq.Eq{articleFieldID: id})

	return repo.execAffectingOne(ctx, q, id)
}

func (repo *ArticleRepository) IncrementViewCount(ctx context.Context, id string) error {
	q := sq.Update(tableArticles).
		Set(articleFieldViewCount, sq.Expr(articleFieldViewCount+" + 1")).
		Where(sq.Eq{articleFieldID: id})

	return repo.execAffectingOne(ctx, q, id)
}

func (repo *ArticleRepository) IncrementCommentCount(ctx context.Context, articleID string) error {
	q := sq.Update(tableArticles).
		Set(articleFieldCommentCount, sq.Expr(articleFieldCommentCount+" + 1")).
		Where(sq.Eq{articleFieldID: articleID})

	return repo.execAffectingOne(ctx, q, articleID)
}

func (repo *ArticleRepository) ArticleExists(ctx context.Context, articleID string) (bool, error) {
	q := sq.Select("COUNT(*)").
		From(tableArticles).
		Where(sq.Eq{articleFieldID: articleID})

	q = q.RunWith(runner(ctx, repo.db))

	var count int

	err := q.QueryRowContext(ctx).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to scan count: %w", err)
	}

	return count > 0, nil
}

// execAffectingOne reports a missing article when the statement touched no row.
func (repo *ArticleRepository) execAffectingOne(ctx context.Context, q sq.Sqlizer, id string) error {
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	res, err := runner(ctx, repo.db).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to exec query: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if affected == 0 {
		return &articles.ArticleNotFoundError{ID: id}
	}

	return nil
}
