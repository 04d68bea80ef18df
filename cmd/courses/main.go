package main

import (
	bookingsrepository "tutorhub/internal/bookings/repository"
	"tutorhub/internal/courses/handler"
	"tutorhub/internal/courses/repository"
	"tutorhub/internal/courses/service"
	"tutorhub/internal/courses/validator"
	"tutorhub/internal/scheduling"
	"tutorhub/pkg/app"
	"tutorhub/pkg/config"
	"tutorhub/pkg/events"
	"tutorhub/pkg/kafka"
	kafka_config "tutorhub/pkg/kafka/config"
	kafka_middleware "tutorhub/pkg/kafka/middleware"
	"tutorhub/pkg/meet"
)

const ServiceName = "courses"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Courses service")

	publisher := newPublisher(cfg)
	defer publisher.Close()

	lessonService, sessionService := initServices(cfg, publisher)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewCourseHandler(lessonService, sessionService, cfg.Log), false)
	serverApp.Run()
}

func initServices(cfg *config.Config, publisher events.Publisher) (service.LessonService, service.SessionService) {
	lessonRepo := repository.NewMongoLessonRepository(cfg)
	sessionRepo := repository.NewMongoSessionRepository(cfg)
	enrollmentReader := repository.NewMongoEnrollmentReader(cfg)
	bookingRepo := bookingsrepository.NewMongoBookingRepository(cfg)
	lockRepo := scheduling.NewSlotLockRepository(cfg)

	checker := scheduling.NewChecker(cfg.Log, sessionRepo, bookingRepo)

	lessonService := service.NewLessonService(
		lessonRepo,
		sessionRepo,
		validator.NewLessonValidator(cfg.Log),
		cfg,
	)

	sessionService := service.NewSessionService(
		sessionRepo,
		enrollmentReader,
		lockRepo,
		checker,
		newProvisioner(cfg),
		publisher,
		cfg,
	)

	cfg.Log.Info("Course services initialized", "database", cfg.MongoDatabaseName)
	return lessonService, sessionService
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
