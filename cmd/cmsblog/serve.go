package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/SherPsu/cms-blog/internal/config"
	"github.com/SherPsu/cms-blog/internal/database"
	"github.com/SherPsu/cms-blog/internal/handlers"
	"github.com/SherPsu/cms-blog/internal/middleware"
	"github.com/SherPsu/cms-blog/internal/publish"
	"github.com/SherPsu/cms-blog/internal/render"
	"github.com/SherPsu/cms-blog/internal/router"
	"github.com/SherPsu/cms-blog/internal/service"
	"github.com/SherPsu/cms-blog/internal/session"
	"github.com/SherPsu/cms-blog/internal/storage"
	"github.com/SherPsu/cms-blog/internal/store"
	"github.com/SherPsu/cms-blog/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func serve(ctx context.Context) error {
	cfg, db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}
	// Development databases get the default admin and categories.
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			return err
		}
	}

	valkey, err := session.Connect(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword, cfg.ValkeyDB)
	if err != nil {
		return err
	}
	defer valkey.Close()
	sessions := session.NewStore(valkey, cfg.CookieSecure)

	publisher, err := newPublisher(cfg)
	if err != nil {
		return err
	}

	renderer, err := render.New()
	if err != nil {
		return fmt.Errorf("initialize templates: %w", err)
	}

	users := store.NewUserStore(db)
	categories := store.NewCategoryStore(db)
	posts := store.NewPostStore(db)
	tags := store.NewTagStore(db)
	comments := store.NewCommentStore(db)
	reactions := store.NewReactionStore(db)

	svc := handlers.Services{
		Posts:      service.NewPosts(posts, tags, categories, publisher),
		Categories: service.NewCategories(categories),
		Comments:   service.NewComments(comments, posts),
		Reactions:  service.NewReactions(reactions, posts),
		Users:      service.NewUsers(users, posts, publisher),
		Dashboard:  service.NewDashboard(posts, comments, categories, users),
	}

	static, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("static assets: %w", err)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitAuth, time.Minute)
	defer limiter.Stop()

	r := router.New(router.Options{
		Sessions:      sessions,
		SecureCookies: cfg.CookieSecure,
		AuthLimiter:   limiter,
		Static:        static,
		Checks: map[string]router.HealthCheck{
			"database": db.PingContext,
			"valkey":   func(ctx context.Context) error { return valkey.Ping(ctx).Err() },
		},
		API:    handlers.NewAPI(svc, sessions),
		Public: handlers.NewPublic(renderer, svc),
		Auth:   handlers.NewAuth(renderer, sessions, svc.Users),
		Admin:  handlers.NewAdmin(renderer, sessions, svc),
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// newPublisher builds the snapshot sink: the local directory, the S3
// mirror, both, or neither.
func newPublisher(cfg *config.Config) (publish.Publisher, error) {
	var sinks publish.Multi
	if cfg.SnapshotDir != "" {
		sinks = append(sinks, publish.NewFilePublisher(cfg.SnapshotDir))
		slog.Info("post snapshots enabled", "dir", cfg.SnapshotDir)
	}
	if cfg.S3Enabled() {
		client, err := storage.New(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket)
		if err != nil {
			return nil, fmt.Errorf("initialize s3 storage: %w", err)
		}
		sinks = append(sinks, publish.NewS3Publisher(client, cfg.S3Prefix))
		slog.Info("s3 snapshot mirror enabled", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
	} else {
		slog.Warn("s3 storage not configured, snapshots stay local")
	}

	switch len(sinks) {
	case 0:
		return publish.Nop{}, nil
	case 1:
		return sinks[0], nil
	}
	return sinks, nil
}
