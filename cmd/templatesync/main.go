// Command templatesync runs the subscription-gated template sync service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	syncgin "github.com/engarde-media/templatesync/adapters/gin"
	"github.com/engarde-media/templatesync/auth"
	"github.com/engarde-media/templatesync/catalog"
	"github.com/engarde-media/templatesync/config"
	"github.com/engarde-media/templatesync/entitlement"
	redislimiter "github.com/engarde-media/templatesync/ratelimit/redis"
	redisstore "github.com/engarde-media/templatesync/storage/redis"
	enginesync "github.com/engarde-media/templatesync/sync"
)

var version = "1.0.0"

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "templatesync",
		Short:         "Subscription-gated template sync service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configPath)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file (env vars take precedence)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		logrus.WithError(err).Fatal("templatesync exited")
	}
}

func serve(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	log.SetFormatter(&logrus.JSONFormatter{})

	workspacePool, err := pgxpool.New(ctx, cfg.WorkspaceDatabaseURL)
	if err != nil {
		return fmt.Errorf("workspace database: %w", err)
	}
	defer workspacePool.Close()

	entitlementPool, err := pgxpool.New(ctx, cfg.EntitlementDatabaseURL)
	if err != nil {
		return fmt.Errorf("entitlement database: %w", err)
	}
	defer entitlementPool.Close()

	catalogStore := catalog.NewStore(workspacePool, log)
	resolver := entitlement.NewResolver(entitlement.NewStore(entitlementPool), log)

	opts := []enginesync.Option{}
	if cfg.UpgradeURL != "" {
		opts = append(opts, enginesync.WithUpgradeURL(cfg.UpgradeURL))
	}

	var limiter *redislimiter.Limiter
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis url: %w", err)
		}
		rdb := redis.NewClient(redisOpts)
		defer rdb.Close()

		opts = append(opts,
			enginesync.WithResultCache(redisstore.NewResultCache(rdb, "", cfg.ResultCacheTTL)),
			enginesync.WithLocker(redisstore.NewLock(rdb, "", 2*cfg.RequestTimeout)),
		)
		limiter = redislimiter.New(rdb, "")
		log.Info("redis enabled: result cache, sync lock, rate limiter")
	} else {
		log.Warn("redis not configured: no result cache, no cross-process lock, no rate limit")
	}

	engine := enginesync.NewEngine(catalogStore, resolver, log, opts...)

	verifier, err := auth.NewVerifier(cfg.AuthMode, cfg.ServiceToken, cfg.AuthAudience)
	if err != nil {
		return err
	}

	routerCfg := syncgin.RouterConfig{
		Engine:   engine,
		Verifier: verifier,
		Log:      log,
		Service:  "templatesync",
		Version:  version,
	}
	if limiter != nil {
		routerCfg.Limiter = limiter
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      syncgin.NewRouter(routerCfg),
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("templatesync listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
