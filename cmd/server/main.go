package main // booking server entry point

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Yusuf8760/bus-booking-frontend/internal/clock"
	"github.com/Yusuf8760/bus-booking-frontend/internal/config"
	"github.com/Yusuf8760/bus-booking-frontend/internal/database"
	"github.com/Yusuf8760/bus-booking-frontend/internal/handler"
	"github.com/Yusuf8760/bus-booking-frontend/internal/inventory"
	"github.com/Yusuf8760/bus-booking-frontend/internal/logger"
	"github.com/Yusuf8760/bus-booking-frontend/internal/middleware"
	"github.com/Yusuf8760/bus-booking-frontend/internal/payment"
	"github.com/Yusuf8760/bus-booking-frontend/internal/pricing"
	"github.com/Yusuf8760/bus-booking-frontend/internal/queue"
	"github.com/Yusuf8760/bus-booking-frontend/internal/repository"
	"github.com/Yusuf8760/bus-booking-frontend/internal/router"
	"github.com/Yusuf8760/bus-booking-frontend/internal/session"
)

func main() {
	if err := config.LoadEnvFile(); err != nil {
		log.Fatalf("load .env: %v", err)
	}
	cfg := config.Load()

	zl, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend := inventory.NewClient(cfg.BackendURL, nil, zl.Named("inventory"))
	shared := session.Shared{
		Backend: backend,
		Pricing: pricing.Settings{
			FarePerSeat: cfg.FarePerSeat,
			Currency:    cfg.Currency,
			TTL:         cfg.QuoteTTL,
			Timeout:     cfg.QuoteTimeout,
		},
		Payment: payment.Settings{
			Key:        cfg.RazorpayKeyID,
			Name:       cfg.MerchantName,
			ThemeColor: cfg.ThemeColor,
		},
		ScriptURL:      cfg.RazorpayScriptURL,
		ConfirmTimeout: cfg.ConfirmTimeout,
		LockTTL:        cfg.ConfirmLockTTL,
		Clock:          clock.NewSystem(),
		Log:            zl,
	}

	// Booking ledger (optional).
	var (
		db       *sql.DB
		bookings handler.BookingLister
	)
	if cfg.DB.Enabled {
		db, err = database.Open(ctx, cfg.DB)
		if err != nil {
			zl.Fatal("open ledger database", zap.Error(err))
		}
		defer db.Close()
		repo := repository.NewBookingRepo(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			zl.Fatal("ensure ledger schema", zap.Error(err))
		}
		shared.Ledger = repo
		bookings = repo
		zl.Info("booking ledger enabled", zap.String("db", cfg.DB.Name))
	}

	// Redis: confirmation lock, bus list cache, rate limit.
	var rdb *redis.Client
	if rc := config.NewRedisClient(config.LoadRedisConfig()); rc != nil {
		rdb = rc
		defer rdb.Close()
		shared.Locker = repository.NewConfirmLock(rdb, "bus:confirm")
		zl.Info("redis connected")
	} else {
		zl.Warn("redis unavailable; running without cache, rate limit and confirm lock")
	}

	// Booking events (optional).
	if cfg.RabbitURL != "" {
		pub := queue.NewPublisher(cfg.RabbitURL, zl.Named("queue"))
		defer pub.Close()
		shared.Notifier = pub
	}

	reg := session.NewRegistry(shared, cfg.SessionTTL)
	go reg.Run(ctx, time.Minute)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(requestLogger(zl))

	ready := &handler.ReadyHandler{DB: db, Redis: rdb}
	router.RegisterRoutes(e, ready)
	h := handler.NewSessionHandler(reg, backend, bookings, cfg.JWTSecret, cfg.SessionTTL, zl.Named("http"))
	router.RegisterSession(e, h, cfg.JWTSecret, router.Middlewares{
		RateLimit: middleware.RateLimit(config.LoadRateLimitConfig(), rdb, zl.Named("ratelimit")),
		BusCache:  middleware.ResponseCache(config.LoadCacheConfig(), rdb, zl.Named("cache")),
	})

	addr := ":" + cfg.Port
	go func() {
		zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("shutdown", zap.Error(err))
	}
	zl.Info("server stopped")
}

// requestLogger logs one line per request through zap.
func requestLogger(zl *zap.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				zl.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			zl.Info("request", fields...)
			return nil
		},
	})
}
