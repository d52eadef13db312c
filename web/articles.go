package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ecodeclub/ekit/slice"
	"github.com/gorilla/csrf"
	"github.com/nasermirzaei89/gazette/articles"
	"github.com/nasermirzaei89/gazette/discuss"
	"github.com/nasermirzaei89/gazette/notify"
	"golang.org/x/sync/errgroup"
)

// CommentItem is a comment as the comment template renders it.
type CommentItem struct {
	*discuss.ThreadView

	ArticleID      string
	CSRFField      template.HTML
	ComposerAuthor string
	Replies        []*CommentItem
}

type ReplyForm struct {
	ArticleID string
	CommentID string
	Author    string
	CSRFField template.HTML
}

func (item *CommentItem) ReplyForm() ReplyForm {
	return ReplyForm{
		ArticleID: item.ArticleID,
		CommentID: item.ID,
		Author:    item.ComposerAuthor,
		CSRFField: item.CSRFField,
	}
}

func commentItems(views []*discuss.ThreadView, articleID, author string, csrfField template.HTML) []*CommentItem {
	return slice.Map(views, func(_ int, view *discuss.ThreadView) *CommentItem {
		return &CommentItem{
			ThreadView:     view,
			ArticleID:      articleID,
			CSRFField:      csrfField,
			ComposerAuthor: author,
			Replies:        commentItems(view.Replies, articleID, author, csrfField),
		}
	})
}

func articlePath(articleID string) string {
	return "/a/" + articleID
}

func (h *Handler) loadThread(ctx context.Context, articleID string) (*discuss.Thread, error) {
	if thread, ok := h.threads.get(articleID); ok {
		return thread, nil
	}

	gen := h.threads.generation(articleID)

	nodes, err := h.discussSvc.ListComments(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	thread := discuss.NewThread(articleID, nodes)
	h.threads.setIfCurrent(thread, gen)

	return thread, nil
}

func (h *Handler) HandleHomePage(w http.ResponseWriter, r *http.Request) {
	list, err := h.articlesSvc.ListArticles(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list articles", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)

		return
	}

	data := map[string]any{
		"Articles": list,
	}

	h.renderTemplate(w, r, "home-page.gohtml", data)
}

func (h *Handler) HandleArticlePage() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		articleID := r.PathValue("articleId")
		replyTo := r.URL.Query().Get("reply_to")

		var (
			article *articles.Article
			thread  *discuss.Thread
		)

		g, ctx := errgroup.WithContext(r.Context())

		g.Go(func() error {
			var err error

			article, err = h.articlesSvc.GetArticle(ctx, articleID)

			return err
		})

		g.Go(func() error {
			var err error

			thread, err = h.loadThread(ctx, articleID)

			return err
		})

		err := g.Wait()
		if err != nil {
			var articleNotFoundErr *articles.ArticleNotFoundError
			if errors.As(err, &articleNotFoundErr) {
				h.threads.remove(articleID)
				http.Error(w, "Article not found", http.StatusNotFound)

				return
			}

			slog.ErrorContext(r.Context(), "failed to load article page", "articleId", articleID, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)

			return
		}

		author := h.rememberedAuthor(r)

		data := map[string]any{
			"SiteTitle":      article.Title,
			"ArticleID":      articleID,
			"Article":        article,
			"Comments":       commentItems(thread.View(replyTo), articleID, author, csrf.TemplateField(r)),
			"CommentCount":   thread.Len(),
			"Author":         author,
			csrf.TemplateTag: csrf.TemplateField(r),
		}

		h.renderTemplate(w, r, "article-page.gohtml", data)
	})
}

func (h *Handler) HandlePostComment() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		articleID := r.PathValue("articleId")

		err := r.ParseForm()
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to parse form", "error", err)
			http.Error(w, "Bad Request", http.StatusBadRequest)

			return
		}

		author := strings.TrimSpace(r.FormValue("author"))
		content := strings.TrimSpace(r.FormValue("content"))
		parentID := strings.TrimSpace(r.FormValue("parent_id"))

		if author == "" || content == "" {
			http.Error(w, "Author and content are required", http.StatusBadRequest)

			return
		}

		if parentID != "" {
			thread, err := h.loadThread(r.Context(), articleID)
			if err == nil {
				// the parent may have been created after the thread was cached
				if _, ok := thread.Depth(parentID); !ok {
					h.threads.invalidate(articleID)

					thread, err = h.loadThread(r.Context(), articleID)
				}
			}

			if err != nil {
				slog.ErrorContext(r.Context(), "failed to load thread", "articleId", articleID, "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)

				return
			}

			if !thread.CanReply(parentID) {
				http.Error(w, "Replies to this comment are not allowed", http.StatusBadRequest)

				return
			}
		}

		comment, err := h.discussSvc.CreateComment(r.Context(), discuss.CreateCommentRequest{
			ArticleID: articleID,
			ParentID:  parentID,
			Author:    author,
			Content:   content,
		})
		if err != nil {
			var invalidParentErr *discuss.InvalidParentError
			if errors.As(err, &invalidParentErr) {
				http.Error(w, "Invalid parent comment", http.StatusBadRequest)

				return
			}

			slog.ErrorContext(r.Context(), "failed to create comment", "articleId", articleID, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)

			return
		}

		h.threads.apply(comment)

		err = h.setSessionValue(w, r, authorNameKey, author)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to remember author", "error", err)
		}

		h.flash(w, r, notify.MessageForComment(comment.IsReply()))

		if isHTMXRequest(r) {
			h.renderComments(w, r, articleID)

			return
		}

		returnTo := r.FormValue("return_to")
		if returnTo == "" {
			returnTo = articlePath(articleID)
		}

		http.Redirect(w, r, sanitizeReturnToPath(returnTo)+"#comment-"+comment.ID, http.StatusSeeOther)
	})
}

func (h *Handler) renderComments(w http.ResponseWriter, r *http.Request, articleID string) {
	thread, err := h.loadThread(r.Context(), articleID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to load thread", "articleId", articleID, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)

		return
	}

	author := h.rememberedAuthor(r)

	data := map[string]any{
		"Fragment":       true,
		"ArticleID":      articleID,
		"Comments":       commentItems(thread.View(""), articleID, author, csrf.TemplateField(r)),
		"CommentCount":   thread.Len(),
		"Author":         author,
		csrf.TemplateTag: csrf.TemplateField(r),
	}

	h.renderTemplate(w, r, "comments.gohtml", data)
}

func (h *Handler) HandleReplyForm() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		articleID := r.PathValue("articleId")
		commentID := r.PathValue("commentId")

		if !isHTMXRequest(r) {
			http.Redirect(w, r, articlePath(articleID)+"?reply_to="+commentID+"#comment-"+commentID, http.StatusSeeOther)

			return
		}

		thread, err := h.loadThread(r.Context(), articleID)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to load thread", "articleId", articleID, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)

			return
		}

		if !thread.CanReply(commentID) {
			http.Error(w, "Replies to this comment are not allowed", http.StatusBadRequest)

			return
		}

		data := map[string]any{
			"Form": ReplyForm{
				ArticleID: articleID,
				CommentID: commentID,
				Author:    h.rememberedAuthor(r),
				CSRFField: csrf.TemplateField(r),
			},
		}

		h.renderTemplate(w, r, "reply-form.gohtml", data)
	})
}
