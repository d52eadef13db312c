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

const tableComments = "comments"

type CommentRepository struct {
	db *sql.DB
}

var (
	_ discuss.CommentRepository = (*CommentRepository)(nil)
	_ articles.CommentPurger    = (*CommentRepository)(nil)
)

func NewCommentRepository(db *sql.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

const (
	commentFieldID        = "id"
	commentFieldArticleID = "article_id"
	commentFieldParentID  = "parent_id"
	commentFieldAuthor    = "author"
	commentFieldContent   = "content"
	commentFieldCreatedAt = "created_at"
)

func commentColumns() []string {
	return []string{
		commentFieldID,
		commentFieldArticleID,
		commentFieldParentID,
		commentFieldAuthor,
		commentFieldContent,
		commentFieldCreatedAt,
	}
}

func scanComment(row sq.RowScanner) (*discuss.Comment, error) {
	var comment discuss.Comment

	err := row.Scan(
		&comment.ID,
		&comment.ArticleID,
		&comment.ParentID,
		&comment.Author,
		&comment.Content,
		&comment.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	comment.CreatedAt = comment.CreatedAt.UTC()

	return &comment, nil
}

func (repo *CommentRepository) Insert(ctx context.Context, comment *discuss.Comment) error {
	q := sq.Insert(tableComments).
		Columns(commentColumns()...).
		Values(
			comment.ID,
			comment.ArticleID,
			comment.ParentID,
			comment.Author,
			comment.Content,
			comment.CreatedAt.UTC(),
		)

	q = q.RunWith(runner(ctx, repo.db))

	_, err := q.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec insert: %w", err)
	}

	return nil
}

func (repo *CommentRepository) Find(ctx context.Context, id string) (*discuss.Comment, error) {
	q := sq.Select(commentColumns()...).
		From(tableComments).
		Where(sq.Eq{commentFieldID: id})

	q = q.RunWith(runner(ctx, repo.db))

	comment, err := scanComment(q.QueryRowContext(ctx))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &discuss.CommentNotFoundError{ID: id}
		}

		return nil, fmt.Errorf("failed to scan comment: %w", err)
	}

	return comment, nil
}

func (repo *CommentRepository) List(
	ctx context.Context,
	params *discuss.ListCommentsParams,
) ([]*discuss.Comment, error) {
	query := sq.Select(commentColumns()...).
		From(tableComments).
		OrderBy(commentFieldCreatedAt+" ASC", commentFieldID+" ASC")

	if params != nil && params.ArticleID != "" {
		query = query.Where(sq.Eq{commentFieldArticleID: params.ArticleID})
	}

	query = query.RunWith(runner(ctx, repo.db))

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	comments := make([]*discuss.Comment, 0)

	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment failed: %w", err)
		}

		comments = append(comments, comment)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return comments, nil
}

func (repo *CommentRepository) Count(ctx context.Context, params *discuss.ListCommentsParams) (int, error) {
	query := sq.Select("COUNT(*)").From(tableComments)

	if params != nil && params.ArticleID != "" {
		query = query.Where(sq.Eq{commentFieldArticleID: params.ArticleID})
	}

	query = query.RunWith(runner(ctx, repo.db))

	var count int

	err := query.QueryRowContext(ctx).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to scan count: %w", err)
	}

	return count, nil
}

func (repo *CommentRepository) DeleteByArticle(ctx context.Context, articleID string) (int, error) {
	q := sq.Delete(tableComments).
		Where(sq.Eq{commentFieldArticleID: articleID})

	q = q.RunWith(runner(ctx, repo.db))

	res, err := q.ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to exec delete: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return int(affected), nil
}
