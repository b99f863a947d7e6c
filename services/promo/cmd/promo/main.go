package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"bookpromo/internal/metrics"
	"bookpromo/internal/ratelimit"
	"bookpromo/internal/util"
	"bookpromo/pkg/ai"
	"bookpromo/pkg/channels"
	"bookpromo/pkg/notify"
	"bookpromo/pkg/storage"
	"bookpromo/pkg/store"
	"bookpromo/services/promo/internal/app"
	"bookpromo/services/promo/internal/config"
	"bookpromo/services/promo/internal/server"
)

func main() {
	if err := run(); err != nil {
		slog.Error("promo server failed", "err", err)
		os.Exit(1)
	}
}

// run owns every resource it opens; they are closed in reverse order on return.
func run() error {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	util.InitLogger(cfg.LogLevel)

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if cerr := closers[i].Close(); cerr != nil {
				slog.Warn("close_failed", "err", cerr)
			}
		}
	}()

	blobs, err := openBlobStore(cfg)
	if err != nil {
		return fmt.Errorf("init %s state store: %w", cfg.StateBackend, err)
	}
	if c, ok := blobs.(io.Closer); ok {
		closers = append(closers, c)
	}

	text, images := openGenerators(cfg)

	var media *storage.MediaStore
	if cfg.Minio.Enabled() {
		objects, err := storage.NewMinioStore(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.Bucket, cfg.Minio.UseSSL)
		if err != nil {
			return fmt.Errorf("init minio at %s: %w", cfg.Minio.Endpoint, err)
		}
		media = storage.NewMediaStore(objects, cfg.MediaURLExpiry())
	}

	notifier, err := openNotifier(cfg)
	if err != nil {
		return fmt.Errorf("init %s notifier: %w", cfg.NotifyBackend, err)
	}
	if c, ok := notifier.(io.Closer); ok {
		closers = append(closers, c)
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimitPerMinute > 0 {
		limiter, err = ratelimit.NewRedis(cfg.RedisAddr, cfg.RedisPassword, "", cfg.RateLimitPerMinute, time.Minute)
		if err != nil {
			return fmt.Errorf("init rate limiter: %w", err)
		}
		closers = append(closers, limiter)
	}

	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		return err
	}

	m := metrics.New()
	appCore, err := app.New(app.Config{
		Book:        cfg.Book,
		Text:        text,
		Images:      images,
		TextModel:   cfg.TextModel,
		ImageModel:  cfg.ImageModel,
		State:       store.NewStateStore(blobs),
		Channels:    channels.New(nil, cfg.ChannelHandles),
		Media:       media,
		Notifier:    notifier,
		Metrics:     m,
		DeployDelay: cfg.DeployDelay(),
	})
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	if appCore.Status().Status != "active" {
		slog.Warn("generation provider missing; content falls back to placeholder text", "provider", cfg.GenerationProvider)
	}

	httpServer := server.New(server.Config{
		App:            appCore,
		Metrics:        m,
		Limiter:        limiter,
		TrustedProxies: trusted,
		CORSOrigins:    cfg.CORSOrigins,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:        addr,
		Handler:     httpServer.Router(),
		ReadTimeout: 15 * time.Second,
		// Generation and campaign planning can take a while.
		WriteTimeout: cfg.GenerationTimeout() + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("promo server listening", "addr", addr, "state", cfg.StateBackend, "provider", cfg.GenerationProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("promo server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openBlobStore(cfg config.FileConfig) (store.BlobStore, error) {
	switch cfg.StateBackend {
	case config.BackendRedis:
		return store.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, "", cfg.StateTTL())
	case config.BackendPostgres:
		return store.NewGormStore(cfg.DatabaseURL)
	default:
		return store.NewMemoryStore(), nil
	}
}

// openGenerators returns nil generators when no credentials are configured;
// the app then serves placeholders.
func openGenerators(cfg config.FileConfig) (ai.TextGenerator, ai.ImageGenerator) {
	switch cfg.GenerationProvider {
	case config.ProviderOpenAICompat:
		return ai.NewOpenAICompatGenerator(cfg.GenerationBaseURL, cfg.GeneratorAPIKey(), cfg.TextModel, cfg.GenerationTimeout()), nil
	default:
		opts := []ai.GeminiOption{ai.WithGeminiTimeout(cfg.GenerationTimeout())}
		if cfg.GenerationBaseURL != "" {
			opts = append(opts, ai.WithGeminiBaseURL(cfg.GenerationBaseURL))
		}
		client, err := ai.NewGeminiClient(cfg.GeneratorAPIKey(), opts...)
		if err != nil {
			slog.Warn("gemini client disabled", "err", err)
			return nil, nil
		}
		gen := ai.NewGeminiGenerator(client, cfg.TextModel, cfg.ImageModel)
		return gen, gen
	}
}

func openNotifier(cfg config.FileConfig) (notify.Notifier, error) {
	switch cfg.NotifyBackend {
	case config.NotifyAMQP:
		return notify.NewAMQPNotifier(cfg.AMQPURL, cfg.AMQPExchange)
	case config.NotifyRedis:
		return notify.NewRedisStreamNotifier(cfg.RedisAddr, cfg.RedisPassword, cfg.EventStream, 0)
	default:
		return notify.Nop{}, nil
	}
}
