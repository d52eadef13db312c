package discuss

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type Service interface {
	CreateComment(ctx context.Context, req CreateCommentRequest) (*Comment, error)
	ListComments(ctx context.Context, articleID string) ([]*CommentNode, error)
	CountComments(ctx context.Context, articleID string) (int, error)
}

type BaseService struct {
	commentRepo  CommentRepository
	articleStore ArticleStore
	tx           Transactor
	publisher    EventPublisher
	tree         TreeBuilder
	now          func() time.Time
}

var _ Service = (*BaseService)(nil)

type Option func(svc *BaseService)

func WithEventPublisher(publisher EventPublisher) Option {
	return func(svc *BaseService) {
		svc.publisher = publisher
	}
}

func WithTreeBuilder(tree TreeBuilder) Option {
	return func(svc *BaseService) {
		svc.tree = tree
	}
}

func WithClock(now func() time.Time) Option {
	return func(svc *BaseService) {
		svc.now = now
	}
}

func NewService(commentRepo CommentRepository, articleStore ArticleStore, tx Transactor, opts ...Option) *BaseService {
	svc := &BaseService{
		commentRepo:  commentRepo,
		articleStore: articleStore,
		tx:           tx,
		publisher:    nopPublisher{},
		tree:         TreeBuilder{},
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc
}

type CreateCommentRequest struct {
	ArticleID string
	ParentID  string
	Author    string
	Content   string
}

// CreateComment stores the comment and bumps the article's comment count in one transaction.
// The transaction is committed before CreateComment returns.
func (svc *BaseService) CreateComment(ctx context.Context, req CreateCommentRequest) (*Comment, error) {
	var parentID *string
	if req.ParentID != "" {
		parentID = &req.ParentID
	}

	comment := &Comment{
		ID:        uuid.NewString(),
		ArticleID: req.ArticleID,
		ParentID:  parentID,
		Author:    req.Author,
		Content:   req.Content,
		CreatedAt: svc.now().UTC(),
	}

	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if comment.ParentID != nil {
			err := svc.checkParent(ctx, *comment.ParentID, comment.ArticleID)
			if err != nil {
				return err
			}
		}

		err := svc.commentRepo.Insert(ctx, comment)
		if err != nil {
			return fmt.Errorf("failed to insert comment: %w", err)
		}

		exists, err := svc.articleStore.ArticleExists(ctx, comment.ArticleID)
		if err != nil {
			return fmt.Errorf("failed to check article existence: %w", err)
		}

		if !exists {
			slog.WarnContext(ctx, "comment created for missing article", "articleId", comment.ArticleID)

			return nil
		}

		err = svc.articleStore.IncrementCommentCount(ctx, comment.ArticleID)
		if err != nil {
			return fmt.Errorf("failed to increment comment count: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	evt := CommentCreatedEvent{
		CommentID: comment.ID,
		ArticleID: comment.ArticleID,
		ParentID:  req.ParentID,
		Author:    comment.Author,
		CreatedAt: comment.CreatedAt,
	}

	err = svc.publisher.PublishCommentCreated(ctx, evt)
	if err != nil {
		slog.ErrorContext(ctx, "failed to publish comment created event", "commentId", comment.ID, "error", err)
	}

	return comment, nil
}

func (svc *BaseService) checkParent(ctx context.Context, parentID, articleID string) error {
	parent, err := svc.commentRepo.Find(ctx, parentID)
	if err != nil {
		var notFoundErr *CommentNotFoundError
		if errors.As(err, &notFoundErr) {
			return &InvalidParentError{ParentID: parentID, ArticleID: articleID}
		}

		return fmt.Errorf("failed to find parent comment: %w", err)
	}

	if parent.ArticleID != articleID {
		return &InvalidParentError{ParentID: parentID, ArticleID: articleID}
	}

	return nil
}

func (svc *BaseService) ListComments(ctx context.Context, articleID string) ([]*CommentNode, error) {
	comments, err := svc.commentRepo.List(ctx, &ListCommentsParams{ArticleID: articleID})
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	return svc.tree.Build(comments, articleID), nil
}

func (svc *BaseService) CountComments(ctx context.Context, articleID string) (int, error) {
	count, err := svc.commentRepo.Count(ctx, &ListCommentsParams{ArticleID: articleID})
	if err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}

	return count, nil
}
