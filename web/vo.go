package web

import (
	"time"

	"github.com/ecodeclub/ekit/slice"
	"github.com/nasermirzaei89/gazette/articles"
	"github.com/nasermirzaei89/gazette/discuss"
)

type Article struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary"`
	Content      string    `json:"content"`
	Image        string    `json:"image"`
	Author       string    `json:"author"`
	PublishedAt  time.Time `json:"publishedAt"`
	ViewCount    int       `json:"viewCount"`
	CommentCount int       `json:"commentCount"`
}

func newArticle(article *articles.Article) Article {
	return Article{
		ID:           article.ID,
		Title:        article.Title,
		Summary:      article.Summary,
		Content:      article.Content,
		Image:        article.Image,
		Author:       article.Author,
		PublishedAt:  article.PublishedAt,
		ViewCount:    article.ViewCount,
		CommentCount: article.CommentCount,
	}
}

type Comment struct {
	ID        string    `json:"id"`
	ArticleID string    `json:"articleId"`
	ParentID  *string   `json:"parentId"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Replies   []Comment `json:"replies"`
}

func newComment(comment *discuss.Comment) Comment {
	return Comment{
		ID:        comment.ID,
		ArticleID: comment.ArticleID,
		ParentID:  comment.ParentID,
		Author:    comment.Author,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
		Replies:   []Comment{},
	}
}

func newCommentTree(nodes []*discuss.CommentNode) []Comment {
	return slice.Map(nodes, func(_ int, node *discuss.CommentNode) Comment {
		c := newComment(&node.Comment)
		c.Replies = newCommentTree(node.Replies)

		return c
	})
}

type CreateCommentReq struct {
	ParentID string `json:"parentId"`
	Author   string `json:"author"`
	Content  string `json:"content"`
}

type ListCommentsResp struct {
	Comments []Comment `json:"comments"`
	Total    int       `json:"total"`
}

type ErrorResp struct {
	Error string `json:"error"`
}
