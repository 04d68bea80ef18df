package main

import (
	"context"

	"tutorhub/internal/billing/handler"
	"tutorhub/internal/billing/ingest"
	"tutorhub/internal/billing/repository"
	"tutorhub/internal/billing/service"
	"tutorhub/internal/billing/validator"
	bookingsvalidator "tutorhub/internal/bookings/validator"
	"tutorhub/pkg/app"
	"tutorhub/pkg/config"
	"tutorhub/pkg/events"
	"tutorhub/pkg/kafka"
	kafka_config "tutorhub/pkg/kafka/config"
	kafka_middleware "tutorhub/pkg/kafka/middleware"
)

const ServiceName = "billing"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Billing service")

	kafkaCfg := kafka_config.Load()
	publisher := newPublisher(cfg, kafkaCfg)
	defer publisher.Close()

	billingService, invoiceRepo := initServices(cfg, publisher)

	consumer := newPaymentConsumer(cfg, kafkaCfg, billingService, invoiceRepo)
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	go func() {
		if err := consumer.Start(consumerCtx); err != nil {
			cfg.Log.Error("Payment consumer stopped", "error", err)
		}
	}()
	defer func() {
		stopConsumer()
		if err := consumer.Close(); err != nil {
			cfg.Log.Error("Failed to close payment consumer", "error", err)
		}
	}()

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewBillingHandler(billingService, cfg.Log), true)
	serverApp.Run()
}

func initServices(cfg *config.Config, publisher events.Publisher) (service.BillingService, repository.InvoiceRepository) {
	bookingRepo := repository.NewMongoBookingRepository(cfg)
	invoiceRepo := repository.NewMongoInvoiceRepository(cfg)
	installmentRepo := repository.NewMongoInstallmentRepository(cfg)
	lessonReader := repository.NewMongoLessonReader(cfg)

	billingService := service.NewBillingService(
		bookingRepo,
		invoiceRepo,
		installmentRepo,
		lessonReader,
		bookingsvalidator.NewBookingValidator(cfg.Log),
		validator.NewInvoiceValidator(cfg.Log),
		publisher,
		cfg,
	)

	cfg.Log.Info("Billing service initialized", "database", cfg.MongoDatabaseName)
	return billingService, invoiceRepo
}

func newPublisher(cfg *config.Config, kafkaCfg *kafka_config.Config) events.Publisher {
	producer, err := kafka.NewProducer(kafkaCfg, cfg.EventsTopic, cfg.EventsDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	producer.Use(kafka_middleware.MetricsProducerMiddleware())
	return events.NewKafkaPublisher(producer, ServiceName, cfg.Log)
}

func newPaymentConsumer(
	cfg *config.Config,
	kafkaCfg *kafka_config.Config,
	billingService service.BillingService,
	invoiceRepo repository.InvoiceRepository,
) *kafka.Consumer {
	ingestor := ingest.NewPaymentIngestor(billingService, invoiceRepo, cfg.Log)

	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		cfg.PaymentsTopic,
		cfg.PaymentsGroupID,
		cfg.PaymentsDLQTopic,
		ingestor.Handle,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create payment consumer", "error", err)
	}
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
	consumer.Use(kafka_middleware.MetricsConsumerMiddleware())

	cfg.Log.Info("Payment consumer initialized",
		"topic", cfg.PaymentsTopic,
		"group_id", cfg.PaymentsGroupID,
		"dlq_topic", cfg.PaymentsDLQTopic,
	)
	return consumer
}
