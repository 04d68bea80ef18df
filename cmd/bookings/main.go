package main

import (
	"tutorhub/internal/bookings/handler"
	"tutorhub/internal/bookings/repository"
	"tutorhub/internal/bookings/service"
	coursesrepository "tutorhub/internal/courses/repository"
	"tutorhub/internal/scheduling"
	"tutorhub/pkg/app"
	"tutorhub/pkg/config"
	"tutorhub/pkg/events"
	"tutorhub/pkg/kafka"
	kafka_config "tutorhub/pkg/kafka/config"
	kafka_middleware "tutorhub/pkg/kafka/middleware"
	"tutorhub/pkg/meet"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Bookings service")

	publisher := newPublisher(cfg)
	defer publisher.Close()

	bookingService := initServices(cfg, publisher)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewBookingHandler(bookingService, cfg.Log), false)
	serverApp.Run()
}

func initServices(cfg *config.Config, publisher events.Publisher) service.BookingService {
	bookingRepo := repository.NewMongoBookingRepository(cfg)
	sessionRepo := coursesrepository.NewMongoSessionRepository(cfg)
	lockRepo := scheduling.NewSlotLockRepository(cfg)

	// Scheduled bookings and planned course sessions both occupy teacher
	// time, so the conflict checker reads from both.
	checker := scheduling.NewChecker(cfg.Log, bookingRepo, sessionRepo)

	bookingService := service.NewBookingService(
		bookingRepo,
		lockRepo,
		checker,
		newProvisioner(cfg),
		publisher,
		cfg,
	)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return bookingService
}

func newPublisher(cfg *config.Config) events.Publisher {
	kafkaCfg := kafka_config.Load()
	producer, err := kafka.NewProducer(kafkaCfg, cfg.EventsTopic, cfg.EventsDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	producer.Use(kafka_middleware.MetricsProducerMiddleware())
	return events.NewKafkaPublisher(producer, ServiceName, cfg.Log)
}

func newProvisioner(cfg *config.Config) meet.Provisioner {
	if cfg.MeetAPIToken == "" {
		cfg.Log.Warn("Meet API token not set, meeting provisioning disabled")
		return meet.NoopProvisioner{}
	}
	return meet.NewHTTPProvisioner(cfg.MeetAPIBaseURL, cfg.MeetAPIToken)
}
