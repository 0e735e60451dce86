package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/flightbooking/api"
	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/api/bookings_service_api"
	"github.com/Domenick1991/flightbooking/internal/bootstrap"
	"github.com/Domenick1991/flightbooking/internal/cache"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/Domenick1991/flightbooking/internal/logging"
	"github.com/Domenick1991/flightbooking/internal/service/airports"
	"github.com/Domenick1991/flightbooking/internal/service/booking"
	"github.com/Domenick1991/flightbooking/internal/service/flights"
	"github.com/Domenick1991/flightbooking/internal/service/payment"
	"github.com/gin-gonic/gin"
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

	health := map[string]api.HealthCheck{"database": store.Ping}

	bookingOpts := []booking.BookingServiceOption{
		booking.WithLogger(logger),
		booking.WithMaxSeats(cfg.Booking.MaxSeatsPerBooking),
		booking.WithNumberAttempts(cfg.Booking.NumberAttempts),
	}
	paymentOpts := []payment.PaymentServiceOption{
		payment.WithLogger(logger),
		payment.WithIDAttempts(cfg.Booking.NumberAttempts),
	}
	flightOpts := []flights.FlightServiceOption{flights.WithLogger(logger)}

	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.CacheTTL())
		defer redisCache.Close()
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis is unreachable, requests fall back to the database", zap.Error(err))
		}
		bookingOpts = append(bookingOpts, booking.WithCache(redisCache))
		flightOpts = append(flightOpts, flights.WithCache(redisCache))
		health["redis"] = redisCache.Ping
	}

	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.BookingTopic != "" {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, logger,
			kafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
			kafka.WithWriteTimeout(cfg.Kafka.PublishTimeout()))
		defer producer.Close()
		if err := producer.CheckConnection(ctx); err != nil {
			logger.Warn("kafka is unreachable, events will be dropped", zap.Error(err))
		}
		bookingOpts = append(bookingOpts,
			booking.WithProducer(producer, cfg.Kafka.BookingTopic),
			booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
			booking.WithPublishTimeout(cfg.Kafka.PublishTimeout()))
		paymentOpts = append(paymentOpts,
			payment.WithProducer(producer, cfg.Kafka.BookingTopic),
			payment.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
			payment.WithPublishTimeout(cfg.Kafka.PublishTimeout()))
	}

	bookingService := booking.NewBookingService(store.Tx, store.Bookings, store.Flights, bookingOpts...)
	paymentService := payment.NewPaymentService(store.Tx, store.Payments, store.Bookings, bookingService.Lifecycle(), paymentOpts...)
	flightService := flights.NewFlightService(store.Tx, store.Flights, store.Airports, flightOpts...)
	airportService := airports.NewAirportService(store.Airports, logger)

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Handlers{
		Airports: api.NewAirportHandler(airportService),
		Flights:  api.NewFlightHandler(flightService, bookingService),
		Bookings: api.NewBookingHandler(bookingService),
		Payments: api.NewPaymentHandler(paymentService),
		Health:   health,
	}, api.RouterOptions{Logger: logger, SwaggerDir: cfg.HTTP.SwaggerDir})

	grpcBookings := bookings_service_api.NewServer(bookingService, logger)
	if err := bootstrap.Run(ctx, cfg, router, logger, grpcBookings); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
