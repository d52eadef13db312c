package articles

import (
	"context"
	"fmt"
	"time"
)

type Article struct {
	ID           string
	Title        string
	Summary      string
	Content      string
	Image        string
	Author       string
	PublishedAt  time.Time
	ViewCount    int
	CommentCount int
}

type ArticleRepository interface {
	Insert(ctx context.Context, article *Article) (err error)
	Find(ctx context.Context, id string) (article *Article, err error)
	List(ctx context.Context) (articles []*Article, err error)
	Update(ctx context.Context, article *Article) (err error)
	Delete(ctx context.Context, id string) (err error)
	IncrementViewCount(ctx context.Context, id string) (err error)
}

// CommentPurger removes comments that belong to an article.
type CommentPurger interface {
	DeleteByArticle(ctx context.Context, articleID string) (deleted int, err error)
}

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error)
}

type ArticleNotFoundError struct {
	ID string
}

func (err ArticleNotFoundError) Error() string {
	return fmt.Sprintf("article with id %q not found", err.ID)
}
