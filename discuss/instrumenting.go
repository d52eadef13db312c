package discuss

import (
	"context"
	"log/slog"
	"time"

	"github.com/nasermirzaei89/gazette/metrics"
)

const (
	OperationCreateComment = "createComment"
	OperationListComments  = "listComments"
	OperationCountComments = "countComments"
)

type InstrumentingMiddleware struct {
	next Service
}

var _ Service = (*InstrumentingMiddleware)(nil)

func NewInstrumentingMiddleware(next Service) *InstrumentingMiddleware {
	return &InstrumentingMiddleware{
		next: next,
	}
}

func observe(ctx context.Context, operation string, start time.Time, err error) {
	metrics.DiscussOperationsTotal.WithLabelValues(operation, metrics.Result(err)).Inc()
	metrics.DiscussOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())

	slog.DebugContext(
		ctx,
		"discuss operation finished",
		"service", ServiceName,
		"operation", operation,
		"took", time.Since(start),
		"error", err,
	)
}

func (mw *InstrumentingMiddleware) CreateComment(ctx context.Context, req CreateCommentRequest) (*Comment, error) {
	start := time.Now()

	comment, err := mw.next.CreateComment(ctx, req)
	observe(ctx, OperationCreateComment, start, err)

	if err != nil {
		return nil, err
	}

	kind := metrics.KindComment
	if comment.IsReply() {
		kind = metrics.KindReply
	}

	metrics.CommentsCreatedTotal.WithLabelValues(kind).Inc()

	return comment, nil
}

func (mw *InstrumentingMiddleware) ListComments(ctx context.Context, articleID string) ([]*CommentNode, error) {
	start := time.Now()

	nodes, err := mw.next.ListComments(ctx, articleID)
	observe(ctx, OperationListComments, start, err)

	return nodes, err
}

func (mw *InstrumentingMiddleware) CountComments(ctx context.Context, articleID string) (int, error) {
	start := time.Now()

	count, err := mw.next.CountComments(ctx, articleID)
	observe(ctx, OperationCountComments, start, err)

	return count, err
}
