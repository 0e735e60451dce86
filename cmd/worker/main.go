package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/bootstrap"
	"github.com/Domenick1991/flightbooking/internal/cache"
	"github.com/Domenick1991/flightbooking/internal/email"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/Domenick1991/flightbooking/internal/logging"
	"github.com/Domenick1991/flightbooking/internal/service/booking"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := bootstrap.OpenStore(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer store.Close()

	bookingOpts := []booking.BookingServiceOption{booking.WithLogger(logger)}
	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.CacheTTL())
		defer redisCache.Close()
		bookingOpts = append(bookingOpts, booking.WithCache(redisCache))
	}

	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.BookingTopic != "" {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, logger,
			kafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
			kafka.WithWriteTimeout(cfg.Kafka.PublishTimeout()))
		defer producer.Close()
		bookingOpts = append(bookingOpts,
			booking.WithProducer(producer, cfg.Kafka.BookingTopic),
			booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
			booking.WithPublishTimeout(cfg.Kafka.PublishTimeout()))
	}
	bookingService := booking.NewBookingService(store.Tx, store.Bookings, store.Flights, bookingOpts...)

	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.NotificationsTopic != "" {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, logger)
		defer consumer.Close()

		sender := email.NewSender(logger)
		go func() {
			err := consumer.ConsumeEvents(ctx, func(ctx context.Context, event kafka.BookingEvent) error {
				if err := sender.Send(ctx, event); err != nil {
					logger.Warn("notification dropped", zap.String("event_id", event.ID), zap.Error(err))
				}
				return nil
			})
			if err != nil {
				logger.Error("consumer stopped", zap.Error(err))
				stop()
			}
		}()
		logger.Info("notification consumer started", zap.String("topic", cfg.Kafka.NotificationsTopic))
	}

	runCompletionSweep(ctx, bookingService, cfg.Worker.SweepInterval(), logger)
	logger.Info("worker stopped")
}

func runCompletionSweep(ctx context.Context, bookings booking.BookingUseCase, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			completed, err := bookings.CompleteArrivedBookings(ctx)
			if err != nil {
				logger.Error("completion sweep failed", zap.Error(err))
				continue
			}
			if len(completed) > 0 {
				logger.Info("completion sweep", zap.Int("completed", len(completed)))
			}
		case <-ctx.Done():
			return
		}
	}
}
