package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/csrf"
	"github.com/nasermirzaei89/gazette/articles"
	"github.com/nasermirzaei89/gazette/notify"
	"github.com/nasermirzaei89/gazette/stats"
)

type ChartBar struct {
	Label   string
	Value   int
	Percent int
}

func chartBars(series stats.Series, period stats.Period) []ChartBar {
	values, labels := series.Points(period)

	peak := 0
	for _, v := range values {
		peak = max(peak, v)
	}

	bars := make([]ChartBar, 0, len(values))

	for i, v := range values {
		label := ""
		if i < len(labels) {
			label = labels[i]
		}

		percent := 0
		if peak > 0 {
			percent = v * 100 / peak
		}

		bars = append(bars, ChartBar{Label: label, Value: v, Percent: percent})
	}

	return bars
}

var periodTitles = map[stats.Period]string{
	stats.PeriodDaily:   "Daily",
	stats.PeriodWeekly:  "Weekly",
	stats.PeriodMonthly: "Monthly",
}

type PeriodTab struct {
	Period stats.Period
	Title  string
	Active bool
}

func periodTabs(active stats.Period) []PeriodTab {
	tabs := make([]PeriodTab, 0, len(stats.Periods))

	for _, period := range stats.Periods {
		tabs = append(tabs, PeriodTab{Period: period, Title: periodTitles[period], Active: period == active})
	}

	return tabs
}

// StatsCharts is what the dashboard charts fragment renders.
type StatsCharts struct {
	Title       string
	ViewBars    []ChartBar
	CommentBars []ChartBar
}

func newStatsCharts(snapshot stats.Statistics, period stats.Period) StatsCharts {
	return StatsCharts{
		Title:       periodTitles[period],
		ViewBars:    chartBars(snapshot.Views, period),
		CommentBars: chartBars(snapshot.Comments, period),
	}
}

type articleForm struct {
	Title   string
	Summary string
	Content string
	Image   string
	Author  string
}

func parseArticleForm(r *http.Request) (articleForm, error) {
	err := r.ParseForm()
	if err != nil {
		return articleForm{}, err
	}

	return articleForm{
		Title:   strings.TrimSpace(r.FormValue("title")),
		Summary: strings.TrimSpace(r.FormValue("summary")),
		Content: strings.TrimSpace(r.FormValue("content")),
		Image:   strings.TrimSpace(r.FormValue("image")),
		Author:  strings.TrimSpace(r.FormValue("author")),
	}, nil
}

func (form articleForm) validate() string {
	switch {
	case form.Title == "":
		return "Title is required"
	case form.Content == "":
		return "Content is required"
	default:
		return ""
	}
}

func (h *Handler) HandleAdminDashboard() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		list, err := h.articlesSvc.ListArticles(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to list articles", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)

			return
		}

		totalViews, totalComments := 0, 0
		for _, article := range list {
			totalViews += article.ViewCount
			totalComments += article.CommentCount
		}

		period := stats.ParsePeriod(r.URL.Query().Get("period"))

		data := map[string]any{
			"SiteTitle":      "Admin",
			"Articles":       list,
			"TotalViews":     totalViews,
			"TotalComments":  totalComments,
			"Period":         period,
			"PeriodTabs":     periodTabs(period),
			"Charts":         newStatsCharts(h.statsSvc.Snapshot(), period),
			"Notifications":  h.feed.Items(),
			csrf.TemplateTag: csrf.TemplateField(r),
		}

		h.renderTemplate(w, r, "admin-page.gohtml", data)
	})
}

func (h *Handler) renderArticleForm(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	articleID string,
	form articleForm,
	formErr string,
) {
	title := "New Article"
	action := "/admin/articles"

	if articleID != "" {
		title = "Edit Article"
		action = "/admin/articles/" + articleID
	}

	data := map[string]any{
		"SiteTitle":      title,
		"ArticleID":      articleID,
		"Action":         action,
		"Form":           form,
		"Error":          formErr,
		csrf.TemplateTag: csrf.TemplateField(r),
	}

	h.renderTemplateStatus(w, r, status, "article-form-page.gohtml", data)
}

func (h *Handler) HandleNewArticlePage() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.renderArticleForm(w, r, http.StatusOK, "", articleForm{}, "")
	})
}

func (h *Handler) HandleCreateArticle() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		form, err := parseArticleForm(r)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to parse form", "error", err)
			http.Error(w, "Bad Request", http.StatusBadRequest)

			return
		}

		if msg := form.validate(); msg != "" {
			h.renderArticleForm(w, r, http.StatusBadRequest, "", form, msg)

			return
		}

		article, err := h.articlesSvc.CreateArticle(r.Context(), articles.CreateArticleRequest{
			Title:   form.Title,
			Summary: form.Summary,
			Content: form.Content,
			Image:   form.Image,
			Author:  form.Author,
		})
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to create article", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)

			return
		}

		h.notifyAdmin(w, r, notify.MessageArticleCreated(article.Title))

		http.Redirect(w, r, "/admin", http.StatusSeeOther)
	})
}

func (h *Handler) HandleEditArticlePage() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		articleID := r.PathValue("articleId")

		article, err := h.articlesSvc.FindArticle(r.Context(), articleID)
		if err != nil {
			h.handleArticleError(w, r, articleID, err)

			return
		}

		form := articleForm{
			Title:   article.Title,
			Summary: article.Summary,
			Content: article.Content,
			Image:   article.Image,
			Author:  article.Author,
		}

		h.renderArticleForm(w, r, http.StatusOK, articleID, form, "")
	})
}

func (h *Handler) HandleUpdateArticle() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		articleID := r.PathValue("articleId")

		form, err := parseArticleForm(r)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to parse form", "error", err)
			http.Error(w, "Bad Request", http.StatusBadRequest)

			return
		}

		if msg := form.validate(); msg != "" {
			h.renderArticleForm(w, r, http.StatusBadRequest, articleID, form, msg)

			return
		}

		article, err := h.articlesSvc.UpdateArticle(r.Context(), articleID, articles.UpdateArticleRequest{
			Title:   &form.Title,
			Summary: &form.Summary,
			Content: &form.Content,
			Image:   &form.Image,
			Author:  &form.Author,
		})
		if err != nil {
			h.handleArticleError(w, r, articleID, err)

			return
		}

		h.threads.invalidate(articleID)
		h.notifyAdmin(w, r, notify.MessageArticleUpdated(article.Title))

		http.Redirect(w, r, "/admin", http.StatusSeeOther)
	})
}

func (h *Handler) HandleDeleteArticle() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		articleID := r.PathValue("articleId")

		err := h.articlesSvc.DeleteArticle(r.Context(), articleID)
		if err != nil {
			h.handleArticleError(w, r, articleID, err)

			return
		}

		h.threads.invalidate(articleID)
		h.notifyAdmin(w, r, notify.MessageArticleDeleted())

		returnTo := r.FormValue("return_to")
		if returnTo == "" {
			returnTo = "/admin"
		}

		http.Redirect(w, r, sanitizeReturnToPath(returnTo), http.StatusSeeOther)
	})
}

func (h *Handler) notifyAdmin(w http.ResponseWriter, r *http.Request, msg notify.Message) {
	h.feed.Push(msg)
	h.flash(w, r, msg)
}

func (h *Handler) handleArticleError(w http.ResponseWriter, r *http.Request, articleID string, err error) {
	var articleNotFoundErr *articles.ArticleNotFoundError
	if errors.As(err, &articleNotFoundErr) {
		http.Error(w, "Article not found", http.StatusNotFound)

		return
	}

	slog.ErrorContext(r.Context(), "article operation failed", "articleId", articleID, "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
