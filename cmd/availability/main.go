package main

import (
	"context"
	"lodgr/internal/availability/coordinator"
	"lodgr/internal/availability/events"
	"lodgr/internal/availability/handler"
	"lodgr/internal/availability/repository"
	"lodgr/internal/availability/router"
	"lodgr/internal/availability/service"
	"lodgr/internal/availability/validator"
	"lodgr/pkg/app"
	"lodgr/pkg/clock"
	"lodgr/pkg/config"
	"lodgr/pkg/kafka"
	kafkamw "lodgr/pkg/kafka/middleware"
)

const ServiceName = "availability"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Availability coordinator")

	publisher, kafkaMetrics := initEvents(cfg)
	holds := repository.NewMongoHoldRepository(cfg)
	units := initRouter(cfg, holds, publisher)
	availabilityService := service.NewAvailabilityService(units, validator.NewHoldValidator(), cfg)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		handler.NewAvailabilityHandler(availabilityService, cfg.Log),
		handler.NewHealthHandler(cfg.Client.Mongo, units, holds, publisher, kafkaMetrics, cfg.Log),
	)
	serverApp.OnShutdown("unit router", units.Close)
	serverApp.OnShutdown("hold events", publisher.Close)
	serverApp.OnShutdown("mongo", func(ctx context.Context) error {
		cfg.GracefulShutdown()
		return nil
	})
	serverApp.Run()
}

type eventPublisher interface {
	coordinator.Publisher
	Dropped() int64
	Close(ctx context.Context) error
}

func initEvents(cfg *config.Config) (eventPublisher, *kafkamw.Metrics) {
	if cfg.Kafka == nil || !cfg.Kafka.Enabled() {
		cfg.Log.Info("Hold events disabled, no Kafka brokers configured")
		return events.Noop{}, nil
	}

	producer, err := kafka.NewProducer(cfg.Kafka, cfg.Kafka.HoldEventsTopic, cfg.Kafka.HoldEventsDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}

	var metrics *kafkamw.Metrics
	if cfg.Kafka.EnableMiddleware {
		metrics = kafkamw.NewMetrics()
		producer.Use(kafkamw.LoggingProducerMiddleware(cfg.Log))
		producer.Use(kafkamw.MetricsProducerMiddleware(metrics))
	}

	publisher := events.NewKafkaPublisher(producer, events.Options{
		QueueSize:    cfg.Kafka.PublishQueueSize,
		MaxRetries:   cfg.Kafka.PublishMaxRetries,
		WriteTimeout: cfg.Kafka.ProducerWriteTimeout,
	}, cfg.Log)

	cfg.Log.Info("Hold events enabled", "topic", producer.Topic())
	return publisher, metrics
}

func initRouter(cfg *config.Config, holds repository.HoldRepository, publisher coordinator.Publisher) *router.Router {
	units := router.New(router.Config{
		IdleAfter:       cfg.UnitIdleTimeout,
		JanitorInterval: cfg.UnitJanitorInterval,
		RestoreTimeout:  cfg.UnitRestoreTimeout,
		Actor: coordinator.Settings{
			SweepInterval:     cfg.HoldSweepInterval,
			TerminalRetention: cfg.HoldTerminalRetention,
			PersistTimeout:    cfg.HoldPersistTimeout,
		},
	}, coordinator.Deps{
		Clock:   clock.NewSystem(),
		Journal: holds,
		Events:  publisher,
		Log:     cfg.Log,
	}, holds)
	units.Start()

	cfg.Log.Info("Unit router started",
		"idle_timeout", cfg.UnitIdleTimeout,
		"terminal_retention", cfg.HoldTerminalRetention,
	)
	return units
}
