// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/olegiv/ignews-go/internal/cache"
	"github.com/olegiv/ignews-go/internal/config"
	"github.com/olegiv/ignews-go/internal/content"
	"github.com/olegiv/ignews-go/internal/dates"
	"github.com/olegiv/ignews-go/internal/handler"
	"github.com/olegiv/ignews-go/internal/logging"
	"github.com/olegiv/ignews-go/internal/metrics"
	"github.com/olegiv/ignews-go/internal/middleware"
	"github.com/olegiv/ignews-go/internal/preview"
	"github.com/olegiv/ignews-go/internal/render"
	"github.com/olegiv/ignews-go/internal/richtext"
	"github.com/olegiv/ignews-go/internal/scheduler"
	"github.com/olegiv/ignews-go/internal/session"
	"github.com/olegiv/ignews-go/internal/store"
	"github.com/olegiv/ignews-go/internal/subscription"
	"github.com/olegiv/ignews-go/internal/version"
	"github.com/olegiv/ignews-go/web"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Ig.news - paywalled post previews\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  IGNEWS_SESSION_SECRET        Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  IGNEWS_PRISMIC_ENDPOINT      Prismic API root (required for the prismic source)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  IGNEWS_PRISMIC_ACCESS_TOKEN  Prismic access token\n")
		_, _ = fmt.Fprintf(os.Stderr, "  IGNEWS_CONTENT_SOURCE        prismic|files (default: prismic)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  IGNEWS_DB_PATH               SQLite database path (default: ./data/ignews.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  IGNEWS_SERVER_PORT           Server port (default: 3000)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  IGNEWS_REVALIDATE_SECONDS    Preview regeneration interval (default: 1800)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  IGNEWS_REDIS_URL             Redis URL for a shared page cache (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  IGNEWS_WEBHOOK_SECRET        Bearer secret of the webhook endpoints\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	versionInfo := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	if *showVersion {
		_, _ = fmt.Println(versionInfo.String())
		os.Exit(0)
	}

	if err := run(versionInfo); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(versionInfo version.Info) error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(os.Stdout, logging.ParseLevel(cfg.LogLevel), cfg.IsDevelopment())
	slog.SetDefault(logger)

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	sessionManager := session.New(db, cfg.IsDevelopment())

	// Generated pages stay cached well past their revalidation interval so
	// stale copies can be served while they regenerate.
	retain := max(24*time.Hour, 2*cfg.RevalidateInterval())
	pageCache, backend, err := cache.New(cache.Config{
		RedisURL:         cfg.RedisURL,
		Prefix:           cfg.CachePrefix,
		DefaultTTL:       retain,
		MaxSize:          cfg.CacheMaxSize,
		CleanupInterval:  time.Minute,
		FallbackToMemory: cfg.IsDevelopment(),
	}, logger)
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	defer func() { _ = pageCache.Close() }()
	slog.Info("page cache ready", "backend", backend)

	if sp, ok := pageCache.(cache.StatsProvider); ok {
		collector := metrics.NewCacheStatsCollector(sp)
		collector.Start(30 * time.Second)
		defer collector.Stop()
	}

	repo, err := newRepository(cfg, versionInfo)
	if err != nil {
		return err
	}
	prerender := uniqueSlugs(cfg.PrerenderSlugs)

	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("loading timezone: %w", err)
	}
	formatter, err := dates.NewFormatter(cfg.DateLocale, loc)
	if err != nil {
		return fmt.Errorf("creating date formatter: %w", err)
	}

	loader := preview.NewLoader(repo, formatter, richtext.NewSanitizer(cfg.SanitizeHTML), preview.LoaderOptions{
		Blocks:     cfg.PreviewBlocks,
		Revalidate: cfg.RevalidateInterval(),
		Prerender:  prerender,
	})
	pageStore := preview.NewStore(loader, pageCache, preview.StoreOptions{
		Retain: retain,
		Logger: logger,
	})
	defer pageStore.Wait()

	if len(prerender) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		if err := pageStore.Prerender(ctx); err != nil {
			// Missing pages are generated on first request.
			slog.Warn("prerendering previews", "error", err)
		}
		cancel()
		slog.Info("previews prerendered", "count", len(pageStore.Tracked()))
	}

	broker := subscription.NewBroker()
	subscriptions := subscription.NewService(db, broker, logger)
	sessions := subscription.NewSessionProvider(sessionManager, subscriptions)

	if interval := scheduler.Interval(cfg.RevalidateInterval()); interval > 0 {
		sched := scheduler.New(pageStore, interval, logger)
		if err := sched.Start(); err != nil {
			return fmt.Errorf("starting scheduler: %w", err)
		}
		defer sched.Stop()
	}

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("getting templates fs: %w", err)
	}
	renderer, err := render.New(render.Config{
		TemplatesFS: templatesFS,
		SiteName:    cfg.SiteName,
		Lang:        formatter.Locale(),
		IsDev:       cfg.IsDevelopment(),
	})
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}

	if cfg.WebhookSecret == "" {
		slog.Warn("IGNEWS_WEBHOOK_SECRET not set, webhook endpoints are disabled")
	}

	var cachePinger handler.CachePinger
	if p, ok := pageCache.(handler.CachePinger); ok {
		cachePinger = p
	}

	postsHandler := handler.NewPostsHandler(renderer, pageStore, sessions, logger)
	apiHandler := handler.NewAPIHandler(pageStore, sessions, logger)
	webhooksHandler := handler.NewWebhooksHandler(cfg.WebhookSecret, subscriptions, pageStore, logger)
	healthHandler := handler.NewHealthHandler(db, cachePinger, versionInfo.Version)
	seoHandler := handler.NewSEOHandler(cfg.SiteURL, cfg.IsDevelopment(), pageStore, logger)

	securityConfig := middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())
	securityConfig.ExcludePaths = []string{"/metrics"}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(chimw.GetHead)                 // Handle HEAD requests for uptime monitoring
	r.Use(middleware.StripTrailingSlash) // Redirect /path/ to /path (301)
	r.Use(middleware.SecurityHeaders(securityConfig))

	r.Get(handler.RouteHealth, healthHandler.Health)
	r.Get(handler.RouteHealthLive, healthHandler.Liveness)
	r.Get(handler.RouteHealthReady, healthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/robots.txt", seoHandler.Robots)
	r.Get("/sitemap.xml", seoHandler.Sitemap)

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		return fmt.Errorf("getting static fs: %w", err)
	}
	staticMaxAge := 86400
	if cfg.IsDevelopment() {
		staticMaxAge = 0
	}
	r.Handle("/static/*", middleware.StaticCache(staticMaxAge)(http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))))

	r.Group(func(r chi.Router) {
		r.Use(sessionManager.LoadAndSave)

		// Event streams are long-lived and stay outside the request timeout.
		r.Get(handler.RoutePreviewEvents, postsHandler.PreviewEvents)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Compress(5))
			r.Use(middleware.Timeout(30 * time.Second))

			r.Get(handler.RouteRoot, postsHandler.Home)
			r.Get(handler.RoutePreview, postsHandler.Preview)
			r.Get(handler.RoutePost, postsHandler.Post)
			r.Get(handler.RouteAPISession, apiHandler.Session)
			r.Get(handler.RouteAPIPreview, apiHandler.Preview)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Post(handler.RouteWebhookSubscribe, webhooksHandler.Subscription)
		r.Post(handler.RouteRevalidate, webhooksHandler.Revalidate)
	})

	r.NotFound(postsHandler.NotFound)

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	// Closing the broker ends open event streams so Shutdown can finish.
	srv.RegisterOnShutdown(broker.Close)

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", versionInfo.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// newRepository creates the configured content repository.
func newRepository(cfg *config.Config, versionInfo version.Info) (content.Repository, error) {
	switch cfg.ContentSource {
	case config.ContentSourceFiles:
		repo := content.NewFileRepository(os.DirFS(cfg.ContentDir))
		uids, err := repo.UIDs(content.TypePublication)
		if err != nil {
			return nil, fmt.Errorf("listing publications in %s: %w", cfg.ContentDir, err)
		}
		slog.Info("content source ready", "source", cfg.ContentSource, "dir", cfg.ContentDir, "publications", len(uids))
		return repo, nil
	default:
		repo, err := content.NewPrismicRepository(content.PrismicOptions{
			Endpoint:    cfg.PrismicEndpoint,
			AccessToken: cfg.PrismicAccessToken,
			RateLimit:   cfg.PrismicRateLimit,
			UserAgent:   versionInfo.UserAgent(),
		})
		if err != nil {
			return nil, fmt.Errorf("creating prismic client: %w", err)
		}
		slog.Info("content source ready", "source", cfg.ContentSource, "endpoint", cfg.PrismicEndpoint)
		return repo, nil
	}
}

// uniqueSlugs returns the configured prerender slugs sorted and without
// duplicates. Only these are generated ahead of requests; everything else
// is generated on first request.
func uniqueSlugs(slugs []string) []string {
	out := slices.Clone(slugs)
	slices.Sort(out)
	return slices.Compact(out)
}
