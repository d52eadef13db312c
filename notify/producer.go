package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ecodeclub/mq-api"
	"github.com/nasermirzaei89/gazette/discuss"
)

// TopicCommentEvents carries discuss.CommentCreatedEvent payloads.
const TopicCommentEvents = "comment_events"

type Producer struct {
	producer mq.Producer
}

var _ discuss.EventPublisher = (*Producer)(nil)

func NewProducer(q mq.MQ) (*Producer, error) {
	p, err := q.Producer(TopicCommentEvents)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	return &Producer{producer: p}, nil
}

func (p *Producer) PublishCommentCreated(ctx context.Context, evt discuss.CommentCreatedEvent) error {
	data, err := json.Marshal(&evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = p.producer.Produce(ctx, &mq.Message{Value: data})
	if err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}

	return nil
}
