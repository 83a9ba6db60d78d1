package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fuad-rahat/school-website/internal/auth"
	"github.com/fuad-rahat/school-website/internal/config"
	"github.com/fuad-rahat/school-website/internal/httpapi"
	"github.com/fuad-rahat/school-website/internal/ratelimit"
	"github.com/fuad-rahat/school-website/internal/session"
	"github.com/fuad-rahat/school-website/internal/store/postgres"
	"github.com/fuad-rahat/school-website/internal/telemetry"
	"github.com/fuad-rahat/school-website/internal/token"
	"github.com/fuad-rahat/school-website/internal/upload"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/netutil"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "school-website"

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger depends on the configuration.
		newLogger("error", "").Error("loading config", slogutil.KeyError, err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	if cfg.SecretGenerated {
		logger.WarnContext(ctx, "JWT_SECRET is not set; using a random secret, sessions will not survive a restart")
	}

	shutdownTelemetry := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: serviceName,
		Endpoint:    cfg.OTelEndpoint,
		Insecure:    cfg.OTelInsecure,
	}, logger.With(slogutil.KeyPrefix, "telemetry"))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.ErrorContext(ctx, "db connect", slogutil.KeyError, err)
		os.Exit(1)
	}
	defer pool.Close()

	st := postgres.NewStore(pool)
	if err = st.Migrate(ctx); err != nil {
		logger.ErrorContext(ctx, "db migrate", slogutil.KeyError, err)
		os.Exit(1)
	}

	var loginLimiter auth.Limiter = ratelimit.Nop{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = rdb.Close() }()

		if err = rdb.Ping(ctx).Err(); err != nil {
			logger.WarnContext(ctx, "redis ping; login throttling will fail open", slogutil.KeyError, err)
		}
		loginLimiter = ratelimit.NewLogin(rdb, ratelimit.LoginConfig{
			MaxAttempts: cfg.LoginMaxAttempts,
			Cooldown:    cfg.LoginCooldown,
		})
	}

	codec, err := token.NewCodec(token.Config{Secret: cfg.JWTSecret, TTL: cfg.SessionTTL})
	if err != nil {
		logger.ErrorContext(ctx, "token codec", slogutil.KeyError, err)
		os.Exit(1)
	}

	authSvc, err := auth.NewService(st, codec, loginLimiter, logger.With(slogutil.KeyPrefix, "auth"))
	if err != nil {
		logger.ErrorContext(ctx, "auth service", slogutil.KeyError, err)
		os.Exit(1)
	}

	var proxies netutil.SubnetSet
	if len(cfg.TrustedProxies) > 0 {
		proxies = netutil.SliceSubnetSet(cfg.TrustedProxies)
	}

	handler := httpapi.NewHandler(httpapi.Config{
		Store:   st,
		Auth:    authSvc,
		Cookies: session.NewAccessor(cfg.CookieSecure),
		Uploader: upload.NewClient(upload.Config{
			APIKey:   cfg.ImgBBAPIKey,
			Endpoint: cfg.ImgBBEndpoint,
			MaxBytes: cfg.UploadMaxBytes,
		}),
		Logger:         logger.With(slogutil.KeyPrefix, "http"),
		PublicDir:      cfg.PublicDir,
		TrustedProxies: proxies,
	})
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		PerMinute:      cfg.RateLimitPerMinute,
		Burst:          cfg.RateLimitBurst,
		TrustedProxies: proxies,
	})

	otelHandler := otelhttp.NewHandler(
		httpapi.LoggingMiddleware(logger.With(slogutil.KeyPrefix, "access"), limiter.Middleware(handler.Routes())),
		serviceName,
	)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.InfoContext(ctx, "listening", "addr", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorContext(ctx, "server error", slogutil.KeyError, err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.ErrorContext(shutdownCtx, "shutdown", slogutil.KeyError, err)
	}
}
