package articles

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	articleRepo   ArticleRepository
	commentPurger CommentPurger
	tx            Transactor
	now           func() time.Time
}

func NewService(articleRepo ArticleRepository, commentPurger CommentPurger, tx Transactor) *Service {
	return &Service{
		articleRepo:   articleRepo,
		commentPurger: commentPurger,
		tx:            tx,
		now:           time.Now,
	}
}

type CreateArticleRequest struct {
	Title       string
	Summary     string
	Content     string
	Image       string
	Author      string
	PublishedAt time.Time
}

func (svc *Service) CreateArticle(ctx context.Context, req CreateArticleRequest) (*Article, error) {
	publishedAt := req.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = svc.now()
	}

	article := &Article{
		ID:           uuid.NewString(),
		Title:        req.Title,
		Summary:      req.Summary,
		Content:      req.Content,
		Image:        req.Image,
		Author:       req.Author,
		PublishedAt:  publishedAt.UTC(),
		ViewCount:    0,
		CommentCount: 0,
	}

	err := svc.articleRepo.Insert(ctx, article)
	if err != nil {
		return nil, fmt.Errorf("failed to create article: %w", err)
	}

	return article, nil
}

// ListArticles returns all articles, most recently published first.
func (svc *Service) ListArticles(ctx context.Context) ([]*Article, error) {
	articles, err := svc.articleRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}

	slices.SortStableFunc(articles, func(a, b *Article) int {
		return b.PublishedAt.Compare(a.PublishedAt)
	})

	return articles, nil
}

// GetArticle returns the article and counts the read as a view.
func (svc *Service) GetArticle(ctx context.Context, id string) (*Article, error) {
	err := svc.articleRepo.IncrementViewCount(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to increment view count: %w", err)
	}

	article, err := svc.articleRepo.Find(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find article: %w", err)
	}

	return article, nil
}

func (svc *Service) FindArticle(ctx context.Context, id string) (*Article, error) {
	article, err := svc.articleRepo.Find(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find article: %w", err)
	}

	return article, nil
}

type UpdateArticleRequest struct {
	Title   *string
	Summary *string
	Content *string
	Image   *string
	Author  *string
}

func (svc *Service) UpdateArticle(ctx context.Context, id string, req UpdateArticleRequest) (*Article, error) {
	var article *Article

	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error

		article, err = svc.articleRepo.Find(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to find article: %w", err)
		}

		applyUpdate(article, req)

		err = svc.articleRepo.Update(ctx, article)
		if err != nil {
			return fmt.Errorf("failed to update article: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return article, nil
}

func applyUpdate(article *Article, req UpdateArticleRequest) {
	if req.Title != nil {
		article.Title = *req.Title
	}

	if req.Summary != nil {
		article.Summary = *req.Summary
	}

	if req.Content != nil {
		article.Content = *req.Content
	}

	if req.Image != nil {
		article.Image = *req.Image
	}

	if req.Author != nil {
		article.Author = *req.Author
	}
}

// DeleteArticle removes the article together with every comment posted under it.
func (svc *Service) DeleteArticle(ctx context.Context, id string) error {
	return svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		_, err := svc.articleRepo.Find(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to find article: %w", err)
		}

		deleted, err := svc.commentPurger.DeleteByArticle(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to delete article comments: %w", err)
		}

		err = svc.articleRepo.Delete(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to delete article: %w", err)
		}

		slog.InfoContext(ctx, "article deleted", "articleId", id, "deletedComments", deleted)

		return nil
	})
}
