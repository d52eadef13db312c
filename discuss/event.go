package discuss

import (
	"context"
	"time"
)

type CommentCreatedEvent struct {
	CommentID string    `json:"commentId"`
	ArticleID string    `json:"articleId"`
	ParentID  string    `json:"parentId,omitempty"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

func (CommentCreatedEvent) Topic() string {
	return "comment_events"
}

func (evt CommentCreatedEvent) IsReply() bool {
	return evt.ParentID != ""
}

type EventPublisher interface {
	PublishCommentCreated(ctx context.Context, evt CommentCreatedEvent) (err error)
}

type nopPublisher struct{}

func (nopPublisher) PublishCommentCreated(context.Context, CommentCreatedEvent) error {
	return nil
}
