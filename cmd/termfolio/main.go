package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/AlexKimmel/termfolio/internal/animator"
	"github.com/AlexKimmel/termfolio/internal/canvas"
	"github.com/AlexKimmel/termfolio/internal/chat"
	"github.com/AlexKimmel/termfolio/internal/config"
	"github.com/AlexKimmel/termfolio/internal/gateway"
	"github.com/AlexKimmel/termfolio/internal/obs"
	"github.com/AlexKimmel/termfolio/internal/ratelimit"
	"github.com/AlexKimmel/termfolio/internal/ratelimit/memory"
	redislimiter "github.com/AlexKimmel/termfolio/internal/ratelimit/redis"
	"github.com/AlexKimmel/termfolio/internal/server"
	"github.com/AlexKimmel/termfolio/internal/session"
	"github.com/AlexKimmel/termfolio/internal/terminal"
)

var version = "v0.1.0"

const (
	sessionTTL    = 30 * 24 * time.Hour
	pruneInterval = time.Minute
)

func main() {
	configPath := flag.String("config", "./config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zerolog.New(os.Stderr).Fatal().Err(err).Str("path", *configPath).Msg("load config")
	}

	logger := obs.SetupLogger(cfg.Observability.LogLevel)
	logger.Info().Str("version", version).Msg("starting termfolio")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := obs.NewMetrics(reg)

	limiter, err := newLimiter(cfg, ratelimit.Policy{
		MaxRequests: cfg.Limits.Ask.MaxRequests,
		Window:      cfg.Limits.AskWindow(),
	})
	if err != nil {
		logger.Fatal().Err(err).Str("storage", cfg.Limits.Storage).Msg("init ask limiter")
	}
	ipLimiter, err := newLimiter(cfg, ratelimit.Policy{
		MaxRequests: cfg.Limits.AskPerIP.MaxRequests,
		Window:      cfg.Limits.AskPerIPWindow(),
	})
	if err != nil {
		logger.Fatal().Err(err).Str("storage", cfg.Limits.Storage).Msg("init per-IP ask limiter")
	}

	content, err := terminal.LoadContent(cfg.ContentPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load terminal content")
	}
	commands := terminal.New(content)

	if cfg.Chat.APIKey == "" {
		logger.Warn().Str("env", cfg.Chat.APIKeyEnv).Msg("chat API key not set, askai will be unavailable")
	}
	chatClient := chat.New(chat.Config{
		BaseURL:     cfg.Chat.BaseURL,
		APIKey:      cfg.Chat.APIKey,
		Model:       cfg.Chat.Model,
		Temperature: cfg.Chat.Temperature,
		MaxTokens:   cfg.Chat.MaxTokens,
		Timeout:     cfg.Chat.Timeout(),
	}, nil)

	sched := animator.NewTickerScheduler(cfg.Background.FPS)
	display := animator.NewDisplay(cfg.Background.Width, cfg.Background.Height)
	background := animator.NewBackground(
		canvas.New(0, 0), nil, sched, display,
		logger.With().Str("component", "background").Logger(),
		animator.WithFrameHook(metrics.ObserveFrame),
		animator.WithResizeHook(metrics.ObserveResize),
	)

	ctx, stopLoops := context.WithCancel(context.Background())
	defer stopLoops()

	if background.Mount() {
		go sched.Run(ctx)
	}

	skip := map[string]struct{}{
		"/health":                        {},
		"/version":                       {},
		cfg.Observability.PrometheusPath: {},
	}
	throttle := gateway.NewThrottle(cfg.Limits.Ingress.RequestsPerSecond, cfg.Limits.Ingress.Burst, cfg.Server.TrustForwarded)

	go prune(ctx, throttle, limiter, ipLimiter)

	handler := server.New(server.Deps{
		Log:         logger,
		Metrics:     metrics,
		Commands:    commands,
		Limiter:     limiter,
		IPLimiter:   ipLimiter,
		Chat:        chatClient,
		Background:  background,
		Display:     display,
		Version:     version,
		MetricsPath: cfg.Observability.PrometheusPath,

		TrustForwarded: cfg.Server.TrustForwarded,
		MaxWidth:       cfg.Background.MaxWidth,
		MaxHeight:      cfg.Background.MaxHeight,
		Middleware: []gateway.Middleware{
			obs.Logger(logger),
			gateway.BodyLimit(cfg.Server.MaxBody()),
			session.Middleware(sessionTTL, skip),
			throttle.Middleware(skip, metrics.Throttled.Inc),
			metrics.Middleware(skip),
		},
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout(),
		IdleTimeout:       cfg.Server.IdleTimeout(),
		ReadTimeout:       cfg.Server.ReadTimeout(),
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	background.Unmount()
	stopLoops()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	for _, l := range []ratelimit.Limiter{limiter, ipLimiter} {
		if err := l.Close(); err != nil {
			logger.Error().Err(err).Msg("close ask limiter")
		}
	}
	logger.Info().Msg("bye")
}

func newLimiter(cfg *config.Root, policy ratelimit.Policy) (ratelimit.Limiter, error) {
	switch cfg.Limits.Storage {
	case "memory":
		return memory.New(policy)
	case "redis":
		return redislimiter.New(redislimiter.Config{
			Addr:     cfg.Limits.Redis.Addr,
			Password: cfg.Limits.Redis.Password,
			DB:       cfg.Limits.Redis.DB,
			Prefix:   cfg.Limits.Redis.Prefix,
		}, policy)
	default:
		return nil, errors.New("limits.storage must be \"memory\" or \"redis\"")
	}
}

type pruner interface {
	Prune(now time.Time) int
}

// prune drops drained limiter logs and idle throttle buckets until ctx ends.
func prune(ctx context.Context, throttle *gateway.Throttle, limiters ...ratelimit.Limiter) {
	t := time.NewTicker(pruneInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			for _, l := range limiters {
				if p, ok := l.(pruner); ok {
					p.Prune(now)
				}
			}
			throttle.Prune(10 * pruneInterval)
		}
	}
}
