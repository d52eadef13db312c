package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ecodeclub/ekit/slice"
	"github.com/nasermirzaei89/gazette/articles"
	"github.com/nasermirzaei89/gazette/discuss"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, ErrorResp{Error: msg})
}

// delayed holds the request back for the configured API delay or until the client goes away.
func (h *Handler) delayed(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.apiDelay > 0 {
			timer := time.NewTimer(h.apiDelay)
			defer timer.Stop()

			select {
			case <-r.Context().Done():
				slog.DebugContext(r.Context(), "request canceled during api delay", "error", r.Context().Err())

				return
			case <-timer.C:
			}
		}

		next.ServeHTTP(w, r)
	})
}

func (h *Handler) HandleAPIListArticles() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		list, err := h.articlesSvc.ListArticles(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to list articles", "error", err)
			writeJSONError(w, r, http.StatusInternalServerError, "internal error")

			return
		}

		writeJSON(w, r, http.StatusOK, slice.Map(list, func(_ int, article *articles.Article) Article {
			return newArticle(article)
		}))
	})
}

func (h *Handler) HandleAPIGetArticle() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		articleID := r.PathValue("articleId")

		article, err := h.articlesSvc.GetArticle(r.Context(), articleID)
		if err != nil {
			var articleNotFoundErr *articles.ArticleNotFoundError
			if errors.As(err, &articleNotFoundErr) {
				writeJSONError(w, r, http.StatusNotFound, articleNotFoundErr.Error())

				return
			}

			slog.ErrorContext(r.Context(), "failed to get article", "articleId", articleID, "error", err)
			writeJSONError(w, r, http.StatusInternalServerError, "internal error")

			return
		}

		writeJSON(w, r, http.StatusOK, newArticle(article))
	})
}

func (h *Handler) HandleAPIListComments() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		articleID := r.PathValue("articleId")

		nodes, err := h.discussSvc.ListComments(r.Context(), articleID)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to list comments", "articleId", articleID, "error", err)
			writeJSONError(w, r, http.StatusInternalServerError, "internal error")

			return
		}

		total, err := h.discussSvc.CountComments(r.Context(), articleID)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to count comments", "articleId", articleID, "error", err)
			writeJSONError(w, r, http.StatusInternalServerError, "internal error")

			return
		}

		writeJSON(w, r, http.StatusOK, ListCommentsResp{
			Comments: newCommentTree(nodes),
			Total:    total,
		})
	})
}

func (h *Handler) HandleAPICreateComment() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		articleID := r.PathValue("articleId")

		var req CreateCommentReq

		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			writeJSONError(w, r, http.StatusBadRequest, "invalid request body")

			return
		}

		author := strings.TrimSpace(req.Author)
		content := strings.TrimSpace(req.Content)

		if author == "" || content == "" {
			writeJSONError(w, r, http.StatusBadRequest, "author and content are required")

			return
		}

		comment, err := h.discussSvc.CreateComment(r.Context(), discuss.CreateCommentRequest{
			ArticleID: articleID,
			ParentID:  strings.TrimSpace(req.ParentID),
			Author:    author,
			Content:   content,
		})
		if err != nil {
			var invalidParentErr *discuss.InvalidParentError
			if errors.As(err, &invalidParentErr) {
				writeJSONError(w, r, http.StatusBadRequest, invalidParentErr.Error())

				return
			}

			slog.ErrorContext(r.Context(), "failed to create comment", "articleId", articleID, "error", err)
			writeJSONError(w, r, http.StatusInternalServerError, "internal error")

			return
		}

		h.threads.apply(comment)

		writeJSON(w, r, http.StatusCreated, newComment(comment))
	})
}

func (h *Handler) HandleAPIStatistics() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, h.statsSvc.Snapshot())
	})
}
