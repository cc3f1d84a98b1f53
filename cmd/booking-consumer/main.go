package main // booking event consumer: appends confirmed bookings to a log file

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Yusuf8760/bus-booking-frontend/internal/config"
	"github.com/Yusuf8760/bus-booking-frontend/internal/logger"
	"github.com/Yusuf8760/bus-booking-frontend/internal/queue"
)

func main() {
	if err := config.LoadEnvFile(); err != nil {
		log.Fatalf("load .env: %v", err)
	}
	cfg := config.LoadConsumer()

	zl, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zl.Info("consuming booking events", zap.String("queue", queue.BookingQueueName), zap.String("log_path", cfg.LogPath))
	c := queue.NewConsumer(cfg.RabbitURL, cfg.LogPath, zl)
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		zl.Error("consumer stopped", zap.Error(err))
	}
}
