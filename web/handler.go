package web

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"maps"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
	"github.com/nasermirzaei89/gazette/articles"
	"github.com/nasermirzaei89/gazette/discuss"
	"github.com/nasermirzaei89/gazette/markdown"
	"github.com/nasermirzaei89/gazette/metrics"
	"github.com/nasermirzaei89/gazette/notify"
	"github.com/nasermirzaei89/gazette/stats"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	//go:embed templates/*
	templatesFS embed.FS

	//go:embed static/*
	staticFS embed.FS
)

const (
	defaultSiteTitle = "Gazette"
	hxRequestTrue    = "true"
	apiPathPrefix    = "/api/"
)

type Config struct {
	SessionName        string
	CSRFAuthKey        []byte
	CSRFTrustedOrigins []string
	SecureCookies      bool
	APIDelay           time.Duration
	ThreadCacheSize    int
	ThreadCacheTTL     time.Duration
}

type Handler struct {
	mux         *http.ServeMux
	handler     http.Handler
	tpl         *template.Template
	static      fs.FS
	articlesSvc *articles.Service
	discussSvc  discuss.Service
	statsSvc    *stats.Service
	feed        *notify.Feed
	markdown    *markdown.Renderer
	threads     *threadCache
	cookieStore *sessions.CookieStore
	sessionName string
	apiDelay    time.Duration
}

var _ http.Handler = (*Handler)(nil)

func NewHandler(
	articlesSvc *articles.Service,
	discussSvc discuss.Service,
	statsSvc *stats.Service,
	feed *notify.Feed,
	renderer *markdown.Renderer,
	cookieStore *sessions.CookieStore,
	cfg Config,
) (*Handler, error) {
	h := &Handler{
		mux:         nil,
		handler:     nil,
		tpl:         nil,
		articlesSvc: articlesSvc,
		discussSvc:  discussSvc,
		statsSvc:    statsSvc,
		feed:        feed,
		markdown:    renderer,
		threads:     nil,
		cookieStore: cookieStore,
		sessionName: cfg.SessionName,
		apiDelay:    cfg.APIDelay,
	}

	{
		threads, err := newThreadCache(cfg.ThreadCacheSize, cfg.ThreadCacheTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to create thread cache: %w", err)
		}

		h.threads = threads
	}

	{
		tpl, err := template.New("").Funcs(h.funcs()).ParseFS(templatesFS, "templates/*.gohtml")
		if err != nil {
			return nil, fmt.Errorf("failed to parse templates: %w", err)
		}

		h.tpl = tpl
	}

	{
		static, err := fs.Sub(staticFS, "static")
		if err != nil {
			return nil, fmt.Errorf("failed to sub static fs: %w", err)
		}

		h.static = static
	}

	{
		h.mux = &http.ServeMux{}

		h.registerRoutes()
	}

	{
		routed := metrics.Middleware(h.mux)

		csrfMiddleware := csrf.Protect(
			cfg.CSRFAuthKey,
			csrf.TrustedOrigins(cfg.CSRFTrustedOrigins),
			csrf.Secure(cfg.SecureCookies),
			csrf.Path("/"),
		)

		h.handler = bypassCSRFForAPI(csrfMiddleware(routed), routed)
		h.handler = recoverMiddleware(h.handler)
	}

	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("/", h.HandleIndex)

	h.mux.Handle("GET /a/{articleId}", h.HandleArticlePage())
	h.mux.Handle("POST /a/{articleId}/comments", h.HandlePostComment())
	h.mux.Handle("GET /a/{articleId}/comments/{commentId}/reply", h.HandleReplyForm())

	h.mux.Handle("GET /admin", h.HandleAdminDashboard())
	h.mux.Handle("GET /admin/statistics/stream", h.HandleStatisticsStream())
	h.mux.Handle("GET /admin/articles/new", h.HandleNewArticlePage())
	h.mux.Handle("POST /admin/articles", h.HandleCreateArticle())
	h.mux.Handle("GET /admin/articles/{articleId}/edit", h.HandleEditArticlePage())
	h.mux.Handle("POST /admin/articles/{articleId}", h.HandleUpdateArticle())
	h.mux.Handle("POST /admin/articles/{articleId}/delete", h.HandleDeleteArticle())

	h.mux.Handle("GET /api/articles", h.delayed(h.HandleAPIListArticles()))
	h.mux.Handle("GET /api/articles/{articleId}", h.delayed(h.HandleAPIGetArticle()))
	h.mux.Handle("GET /api/articles/{articleId}/comments", h.delayed(h.HandleAPIListComments()))
	h.mux.Handle("POST /api/articles/{articleId}/comments", h.delayed(h.HandleAPICreateComment()))
	h.mux.Handle("GET /api/statistics", h.delayed(h.HandleAPIStatistics()))

	h.mux.Handle("GET /metrics", promhttp.Handler())
}

// bypassCSRFForAPI routes JSON API calls around the CSRF check; they carry no cookies.
func bypassCSRFForAPI(protected, api http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, apiPathPrefix) {
			api.ServeHTTP(w, r)

			return
		}

		if r.TLS == nil {
			r = csrf.PlaintextHTTPRequest(r)
		}

		protected.ServeHTTP(w, r)
	})
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func(ctx context.Context) {
			if err := recover(); err != nil {
				slog.ErrorContext(
					ctx,
					"recovered from panic",
					"error",
					err,
					"stack",
					string(debug.Stack()),
				)

				http.Error(w, "internal error occurred", http.StatusInternalServerError)
			}
		}(r.Context())

		next.ServeHTTP(w, r)
	})
}

func (h *Handler) funcs() template.FuncMap {
	return template.FuncMap{
		"markdown": func(src string) template.HTML {
			return h.markdown.Render(src)
		},
		"formatDate": func(t time.Time) string {
			return t.Format("Jan 2, 2006")
		},
		"formatDateTime": func(t time.Time) string {
			return t.Format("Jan 2, 2006 15:04")
		},
	}
}

func (h *Handler) renderTemplate(w http.ResponseWriter, r *http.Request, name string, extraData map[string]any) {
	h.renderTemplateStatus(w, r, http.StatusOK, name, extraData)
}

func (h *Handler) renderTemplateStatus(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	name string,
	extraData map[string]any,
) {
	data := map[string]any{
		"CurrentPath": r.URL.Path,
		"Lang":        "en",
		"Dir":         "ltr",
		"Flashes":     h.popFlashes(w, r),
	}

	maps.Copy(data, extraData)

	data["SiteTitle"] = defaultSiteTitle

	if extraData["SiteTitle"] != nil {
		data["SiteTitle"] = fmt.Sprintf("%s | %s", extraData["SiteTitle"], data["SiteTitle"])
	}

	var buf bytes.Buffer

	err := h.tpl.ExecuteTemplate(&buf, name, data)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to render template", "name", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	_, err = buf.WriteTo(w)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to write response", "name", name, "error", err)
	}
}

func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" {
		h.HandleHomePage(w, r)

		return
	}

	h.HandleStatic(w, r)
}

// HandleStatic serves static files.
func (h *Handler) HandleStatic(w http.ResponseWriter, r *http.Request) {
	http.FileServer(http.FS(h.static)).ServeHTTP(w, r)
}

func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == hxRequestTrue
}

// sanitizeReturnToPath keeps redirects on this site.
func sanitizeReturnToPath(path string) string {
	if path == "" || !strings.HasPrefix(path, "/") {
		return "/"
	}

	// browsers treat a backslash after the leading slash like a second slash
	if strings.HasPrefix(path, "//") || strings.HasPrefix(path, "/\\") {
		return "/"
	}

	return path
}
