package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ecodeclub/mq-api"
	"github.com/nasermirzaei89/gazette/discuss"
	"github.com/nasermirzaei89/gazette/metrics"
)

const subscriberGroupID = "notify"

// Subscriber consumes comment events and records a message for each of them.
type Subscriber struct {
	consumer mq.Consumer
	feed     *Feed
}

func NewSubscriber(q mq.MQ, feed *Feed) (*Subscriber, error) {
	consumer, err := q.Consumer(TopicCommentEvents, subscriberGroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	return &Subscriber{
		consumer: consumer,
		feed:     feed,
	}, nil
}

// Start blocks until ctx is done.
func (s *Subscriber) Start(ctx context.Context) {
	for {
		err := s.Consume(ctx)
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			slog.ErrorContext(ctx, "failed to consume comment event", "error", err)
		}
	}
}

func (s *Subscriber) Consume(ctx context.Context) error {
	msg, err := s.consumer.Consume(ctx)
	if err != nil {
		return fmt.Errorf("failed to get message: %w", err)
	}

	var evt discuss.CommentCreatedEvent

	err = json.Unmarshal(msg.Value, &evt)
	if err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	kind := metrics.KindComment
	if evt.IsReply() {
		kind = metrics.KindReply
	}

	metrics.NotificationsTotal.WithLabelValues(kind).Inc()

	slog.InfoContext(ctx, "comment published",
		"commentId", evt.CommentID,
		"articleId", evt.ArticleID,
		"author", evt.Author,
		"reply", evt.IsReply(),
	)

	message := MessageForComment(evt.IsReply())
	message.CreatedAt = evt.CreatedAt

	s.feed.Push(message)

	return nil
}
