package gazette

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ecodeclub/mq-api"
	"github.com/ecodeclub/mq-api/memory"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/nasermirzaei89/env"
	"github.com/nasermirzaei89/gazette/articles"
	"github.com/nasermirzaei89/gazette/db/sqlite3"
	"github.com/nasermirzaei89/gazette/discuss"
	"github.com/nasermirzaei89/gazette/markdown"
	"github.com/nasermirzaei89/gazette/notify"
	"github.com/nasermirzaei89/gazette/server"
	"github.com/nasermirzaei89/gazette/stats"
	"github.com/nasermirzaei89/gazette/web"
	"golang.org/x/sync/errgroup"
)

const defaultDSN = "file:gazette?mode=memory&cache=shared"

type App struct {
	server        *server.Server
	handler       *web.Handler
	db            *sql.DB
	queue         mq.MQ
	subscriber    *notify.Subscriber
	statsSvc      *stats.Service
	statsInterval time.Duration
}

func NewApp(ctx context.Context) (*App, error) {
	db, err := sqlite3.NewDB(ctx, env.GetString("DB_DSN", defaultDSN))
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	err = sqlite3.MigrateUp(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	articleRepo := sqlite3.NewArticleRepository(db)
	commentRepo := sqlite3.NewCommentRepository(db)
	txManager := sqlite3.NewTxManager(db)

	queue := memory.NewMQ()

	err = queue.CreateTopic(ctx, notify.TopicCommentEvents, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to create topic: %w", err)
	}

	feed := notify.NewFeed(getInt("NOTIFY_FEED_SIZE", notify.DefaultFeedSize))

	// The subscriber joins its group before anything is produced.
	subscriber, err := notify.NewSubscriber(queue, feed)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification subscriber: %w", err)
	}

	producer, err := notify.NewProducer(queue)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification producer: %w", err)
	}

	articlesSvc := articles.NewService(articleRepo, commentRepo, txManager)

	var discussSvc discuss.Service = discuss.NewService(
		commentRepo,
		articleRepo,
		txManager,
		discuss.WithEventPublisher(producer),
		discuss.WithTreeBuilder(discuss.TreeBuilder{MaxDepth: getInt("COMMENT_TREE_DEPTH", 0)}),
	)
	discussSvc = discuss.NewInstrumentingMiddleware(discussSvc)

	if env.GetBool("SEED_DEMO_DATA", true) {
		// demo comments are not announced
		seedDiscussSvc := discuss.NewService(commentRepo, articleRepo, txManager)

		err = seedDemoData(ctx, articlesSvc, seedDiscussSvc)
		if err != nil {
			return nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	renderer, err := markdown.NewRenderer(markdown.DefaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}

	statsSvc := stats.NewService(stats.Seed())

	sessionName := env.GetString("SESSION_NAME", "gazette")
	cookieStore := sessions.NewCookieStore(envKey("SESSION_KEY"))
	tlsEnabled := env.GetBool("TLS_ENABLED", false)
	cookieStore.Options.HttpOnly = true
	cookieStore.Options.Secure = tlsEnabled

	httpHandler, err := web.NewHandler(
		articlesSvc,
		discussSvc,
		statsSvc,
		feed,
		renderer,
		cookieStore,
		web.Config{
			SessionName:        sessionName,
			CSRFAuthKey:        envKey("CSRF_AUTH_KEY"),
			CSRFTrustedOrigins: env.GetStringSlice("CSRF_TRUSTED_ORIGINS", []string{}),
			SecureCookies:      tlsEnabled,
			APIDelay:           getDuration("API_DELAY", 0),
			ThreadCacheSize:    0,
			ThreadCacheTTL:     0,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP handler: %w", err)
	}

	app := &App{
		server:        newServer(),
		handler:       httpHandler,
		db:            db,
		queue:         queue,
		subscriber:    subscriber,
		statsSvc:      statsSvc,
		statsInterval: getDuration("STATS_INTERVAL", stats.DefaultInterval),
	}

	return app, nil
}

func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	defer func() {
		err := app.queue.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close message queue", "error", err)
		}

		if app.db != nil {
			err := app.db.Close()
			if err != nil {
				slog.ErrorContext(ctx, "failed to close database", "error", err)
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.subscriber.Start(gctx)

		return nil
	})

	g.Go(func() error {
		app.statsSvc.Run(gctx, app.statsInterval)

		return nil
	})

	g.Go(func() error {
		err := app.server.Run(gctx, app.handler)
		if err != nil {
			return fmt.Errorf("failed to run server: %w", err)
		}

		return nil
	})

	return g.Wait()
}

func newServer() *server.Server {
	server := &server.Server{
		Port: env.GetString("PORT", server.DefaultPort),
		Host: env.GetString("HOST", ""),
		TLS: server.ServerTLS{
			Enabled: env.GetBool("TLS_ENABLED", false),
			Mode:    env.GetString("TLS_MODE", server.DefaultTLSMode),
			AutoCert: &server.ServerTLSAutoCert{
				CacheDir: env.GetString("TLS_AUTOCERT_CACHE_DIR", "./cert-cache"),
				Domains:  env.GetStringSlice("TLS_AUTOCERT_DOMAINS", []string{}),
				Email:    env.GetString("TLS_AUTOCERT_EMAIL", ""),
			},
			CertFile: env.GetString("TLS_CERT_FILE", ""),
			KeyFile:  env.GetString("TLS_KEY_FILE", ""),
		},
	}

	return server
}

func GetLogLevelFromEnv() slog.Level {
	levelStr := env.GetString("LOG_LEVEL", "info")
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		slog.Warn("unknown log level, defaulting to info", "level", levelStr)

		return slog.LevelInfo
	}
}

// envKey returns the configured secret or a random one that lives as long as the process.
func envKey(name string) []byte {
	value := env.GetString(name, "")
	if value != "" {
		return []byte(value)
	}

	slog.Warn("no key configured, using a random one", "name", name)

	return securecookie.GenerateRandomKey(32)
}

func getInt(name string, def int) int {
	value := env.GetString(name, "")
	if value == "" {
		return def
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "name", name, "value", value, "default", def)

		return def
	}

	return n
}

func getDuration(name string, def time.Duration) time.Duration {
	value := env.GetString(name, "")
	if value == "" {
		return def
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "name", name, "value", value, "default", def)

		return def
	}

	return d
}
