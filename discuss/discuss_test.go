package discuss_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nasermirzaei89/gazette/articles"
	"github.com/nasermirzaei89/gazette/db/sqlite3"
	"github.com/nasermirzaei89/gazette/discuss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []discuss.CommentCreatedEvent
	err    error
}

func (p *recordingPublisher) PublishCommentCreated(_ context.Context, evt discuss.CommentCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, evt)

	return p.err
}

type failingArticleStore struct {
	discuss.ArticleStore
}

func (failingArticleStore) IncrementCommentCount(context.Context, string) error {
	return errors.New("counter unavailable")
}

type fixture struct {
	articleRepo *sqlite3.ArticleRepository
	commentRepo *sqlite3.CommentRepository
	txManager   *sqlite3.TxManager
	articleID   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()

	db, err := sqlite3.NewDB(ctx, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	require.NoError(t, sqlite3.MigrateUp(ctx, db))

	f := &fixture{
		articleRepo: sqlite3.NewArticleRepository(db),
		commentRepo: sqlite3.NewCommentRepository(db),
		txManager:   sqlite3.NewTxManager(db),
		articleID:   "a1",
	}

	err = f.articleRepo.Insert(ctx, &articles.Article{
		ID:          f.articleID,
		Title:       "Article",
		PublishedAt: time.Now(),
	})
	require.NoError(t, err)

	return f
}

func (f *fixture) service(opts ...discuss.Option) *discuss.BaseService {
	return discuss.NewService(f.commentRepo, f.articleRepo, f.txManager, opts...)
}

func (f *fixture) commentCount(t *testing.T) int {
	t.Helper()

	article, err := f.articleRepo.Find(context.Background(), f.articleID)
	require.NoError(t, err)

	return article.CommentCount
}

func TestService_CreateComment(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	publisher := &recordingPublisher{}
	svc := f.service(discuss.WithEventPublisher(publisher))

	comment, err := svc.CreateComment(ctx, discuss.CreateCommentRequest{
		ArticleID: f.articleID,
		Author:    "Ann",
		Content:   "Hello",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, comment.ID)
	assert.Nil(t, comment.ParentID)
	assert.Equal(t, time.UTC, comment.CreatedAt.Location())
	assert.WithinDuration(t, time.Now(), comment.CreatedAt, 5*time.Second)

	nodes, err := svc.ListComments(ctx, f.articleID)
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	stored := nodes[0]
	assert.Equal(t, comment.ID, stored.ID)
	assert.Equal(t, "Ann", stored.Author)
	assert.Equal(t, "Hello", stored.Content)
	assert.True(t, comment.CreatedAt.Equal(stored.CreatedAt))
	assert.Empty(t, stored.Replies)

	assert.Equal(t, 1, f.commentCount(t))

	require.Len(t, publisher.events, 1)
	assert.Equal(t, comment.ID, publisher.events[0].CommentID)
	assert.False(t, publisher.events[0].IsReply())
}

func TestService_CreateReply(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	publisher := &recordingPublisher{}
	svc := f.service(discuss.WithEventPublisher(publisher))

	parent, err := svc.CreateComment(ctx, discuss.CreateCommentRequest{ArticleID: f.articleID, Author: "Ann", Content: "Root"})
	require.NoError(t, err)

	reply, err := svc.CreateComment(ctx, discuss.CreateCommentRequest{
		ArticleID: f.articleID,
		ParentID:  parent.ID,
		Author:    "Bob",
		Content:   "Reply",
	})
	require.NoError(t, err)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, parent.ID, *reply.ParentID)

	nodes, err := svc.ListComments(ctx, f.articleID)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	require.Len(t, nodes[0].Replies, 1)
	assert.Equal(t, reply.ID, nodes[0].Replies[0].ID)

	require.Len(t, publisher.events, 2)
	assert.True(t, publisher.events[1].IsReply())
}

func TestService_CountComments(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	svc := f.service()

	for i := range 3 {
		_, err := svc.CreateComment(ctx, discuss.CreateCommentRequest{
			ArticleID: f.articleID,
			Author:    "Ann",
			Content:   fmt.Sprintf("comment %d", i),
		})
		require.NoError(t, err)
	}

	count, err := svc.CountComments(ctx, f.articleID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, 3, f.commentCount(t))
}

func TestService_CreateCommentInvalidParent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	svc := f.service()

	foreign, err := svc.CreateComment(ctx, discuss.CreateCommentRequest{ArticleID: "other", Author: "Ann", Content: "Elsewhere"})
	require.NoError(t, err)

	tests := []struct {
		name     string
		parentID string
	}{
		{name: "missing parent", parentID: "does-not-exist"},
		{name: "parent of another article", parentID: foreign.ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateComment(ctx, discuss.CreateCommentRequest{
				ArticleID: f.articleID,
				ParentID:  tt.parentID,
				Author:    "Bob",
				Content:   "Reply",
			})
			require.Error(t, err)

			invalidParentErr := &discuss.InvalidParentError{}
			require.ErrorAs(t, err, &invalidParentErr)
			assert.Equal(t, tt.parentID, invalidParentErr.ParentID)
		})
	}

	count, err := svc.CountComments(ctx, f.articleID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, 0, f.commentCount(t))
}

func TestService_CreateCommentMissingArticle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	svc := f.service()

	comment, err := svc.CreateComment(ctx, discuss.CreateCommentRequest{ArticleID: "ghost", Author: "Ann", Content: "Hi"})
	require.NoError(t, err)

	count, err := svc.CountComments(ctx, "ghost")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	nodes, err := svc.ListComments(ctx, "ghost")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, comment.ID, nodes[0].ID)
}

func TestService_CreateCommentIsAtomic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	svc := discuss.NewService(f.commentRepo, failingArticleStore{ArticleStore: f.articleRepo}, f.txManager)

	_, err := svc.CreateComment(ctx, discuss.CreateCommentRequest{ArticleID: f.articleID, Author: "Ann", Content: "Hi"})
	require.Error(t, err)

	count, err := svc.CountComments(ctx, f.articleID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestService_PublishFailureDoesNotFailCreate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	publisher := &recordingPublisher{err: errors.New("broker down")}
	svc := f.service(discuss.WithEventPublisher(publisher))

	_, err := svc.CreateComment(ctx, discuss.CreateCommentRequest{ArticleID: f.articleID, Author: "Ann", Content: "Hi"})
	require.NoError(t, err)

	assert.Equal(t, 1, f.commentCount(t))
	assert.Len(t, publisher.events, 1)
}

func TestService_ListCommentsOrdering(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	now := baseTime
	svc := f.service(discuss.WithClock(func() time.Time {
		now = now.Add(time.Minute)

		return now
	}))

	first, err := svc.CreateComment(ctx, discuss.CreateCommentRequest{ArticleID: f.articleID, Author: "A", Content: "first"})
	require.NoError(t, err)

	second, err := svc.CreateComment(ctx, discuss.CreateCommentRequest{ArticleID: f.articleID, Author: "B", Content: "second"})
	require.NoError(t, err)

	replyA, err := svc.CreateComment(ctx, discuss.CreateCommentRequest{ArticleID: f.articleID, ParentID: first.ID, Author: "C", Content: "a"})
	require.NoError(t, err)

	replyB, err := svc.CreateComment(ctx, discuss.CreateCommentRequest{ArticleID: f.articleID, ParentID: first.ID, Author: "D", Content: "b"})
	require.NoError(t, err)

	nodes, err := svc.ListComments(ctx, f.articleID)
	require.NoError(t, err)

	assert.Equal(t, []string{second.ID, first.ID}, ids(nodes))
	assert.Equal(t, []string{replyA.ID, replyB.ID}, ids(nodes[1].Replies))
}
