package discuss

import (
	"context"
	"fmt"
	"time"
)

const ServiceName = "github.com/nasermirzaei89/gazette/discuss"

type Comment struct {
	ID        string
	ArticleID string
	ParentID  *string
	Author    string
	Content   string
	CreatedAt time.Time
}

// IsReply reports whether the comment answers another comment.
func (c *Comment) IsReply() bool {
	return c.ParentID != nil && *c.ParentID != ""
}

type CommentNode struct {
	Comment

	Replies []*CommentNode
}

type CommentRepository interface {
	Insert(ctx context.Context, comment *Comment) (err error)
	Find(ctx context.Context, id string) (comment *Comment, err error)
	List(ctx context.Context, params *ListCommentsParams) (comments []*Comment, err error)
	Count(ctx context.Context, params *ListCommentsParams) (count int, err error)
}

type ListCommentsParams struct {
	ArticleID string
}

// ArticleStore is the part of the article store a comment mutation needs.
type ArticleStore interface {
	ArticleExists(ctx context.Context, articleID string) (exists bool, err error)
	IncrementCommentCount(ctx context.Context, articleID string) (err error)
}

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error)
}

type CommentNotFoundError struct {
	ID string
}

func (err CommentNotFoundError) Error() string {
	return fmt.Sprintf("comment with id %q not found", err.ID)
}

type InvalidParentError struct {
	ParentID  string
	ArticleID string
}

func (err InvalidParentError) Error() string {
	return fmt.Sprintf("comment %q is not a valid parent for article %q", err.ParentID, err.ArticleID)
}
