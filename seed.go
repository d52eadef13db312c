package gazette

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nasermirzaei89/gazette/articles"
	"github.com/nasermirzaei89/gazette/discuss"
)

type seedComment struct {
	author  string
	content string
	replies []seedComment
}

type seedArticle struct {
	request  articles.CreateArticleRequest
	comments []seedComment
}

func demoArticles(now time.Time) []seedArticle {
	return []seedArticle{
		{
			request: articles.CreateArticleRequest{
				Title:       "Getting Started with Server Rendered Pages",
				Summary:     "Why plain HTML with a sprinkle of HTMX still goes a long way.",
				Content:     "# Server rendered pages\n\nMost pages are documents. Render them on the server and enhance them where it pays off.\n\n## Fragments\n\nHTMX swaps small fragments, so forms keep working without scripts.",
				Image:       "https://images.unsplash.com/photo-1461749280684-dccba630e2f6?w=1200",
				Author:      "Sarah Johnson",
				PublishedAt: now.Add(-72 * time.Hour),
			},
			comments: []seedComment{
				{
					author:  "Michael Chen",
					content: "Great overview. The part about fragments matches what we ended up doing.",
					replies: []seedComment{
						{
							author:  "Sarah Johnson",
							content: "Thanks! Fragments made our forms much simpler.",
							replies: []seedComment{
								{author: "Michael Chen", content: "Did you keep the full page fallback?"},
							},
						},
					},
				},
				{author: "Emma Wilson", content: "Would love a follow up on caching."},
			},
		},
		{
			request: articles.CreateArticleRequest{
				Title:       "Designing Comment Threads",
				Summary:     "Ordering, nesting and where to stop replying.",
				Content:     "# Comment threads\n\nNewest conversations first, replies in the order they happened.\n\nDeep threads stay readable while the reply button stops at a fixed depth.",
				Image:       "https://images.unsplash.com/photo-1516321318423-f06f85e504b3?w=1200",
				Author:      "David Park",
				PublishedAt: now.Add(-24 * time.Hour),
			},
			comments: []seedComment{
				{author: "Olivia Brown", content: "The asymmetry in ordering took me a moment, but it reads naturally."},
			},
		},
		{
			request: articles.CreateArticleRequest{
				Title:       "A Week of Traffic Numbers",
				Summary:     "Reading the dashboard without fooling yourself.",
				Content:     "# Traffic numbers\n\nDaily figures jitter. Look at the weekly and monthly series before drawing conclusions.",
				Image:       "",
				Author:      "Sarah Johnson",
				PublishedAt: now.Add(-2 * time.Hour),
			},
			comments: nil,
		},
	}
}

func seedDemoData(ctx context.Context, articlesSvc *articles.Service, discussSvc discuss.Service) error {
	existing, err := articlesSvc.ListArticles(ctx)
	if err != nil {
		return fmt.Errorf("failed to list articles: %w", err)
	}

	if len(existing) > 0 {
		return nil
	}

	for _, seed := range demoArticles(time.Now()) {
		article, err := articlesSvc.CreateArticle(ctx, seed.request)
		if err != nil {
			return fmt.Errorf("failed to create article: %w", err)
		}

		err = seedComments(ctx, discussSvc, article.ID, "", seed.comments)
		if err != nil {
			return err
		}
	}

	slog.InfoContext(ctx, "demo data seeded")

	return nil
}

func seedComments(ctx context.Context, discussSvc discuss.Service, articleID, parentID string, seeds []seedComment) error {
	for _, seed := range seeds {
		comment, err := discussSvc.CreateComment(ctx, discuss.CreateCommentRequest{
			ArticleID: articleID,
			ParentID:  parentID,
			Author:    seed.author,
			Content:   seed.content,
		})
		if err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}

		err = seedComments(ctx, discussSvc, articleID, comment.ID, seed.replies)
		if err != nil {
			return err
		}
	}

	return nil
}
