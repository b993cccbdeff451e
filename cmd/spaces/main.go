package main

import (
	"parkade/internal/spaces/handler"
	"parkade/internal/spaces/repository"
	"parkade/internal/spaces/service"
	"parkade/internal/spaces/validator"
	"parkade/pkg/app"
	"parkade/pkg/audit"
	"parkade/pkg/config"
	"parkade/pkg/kafka"
	kafka_config "parkade/pkg/kafka/config"
	kafka_middleware "parkade/pkg/kafka/middleware"
)

const ServiceName = "spaces"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Spaces service")
	spaceService, sink := initServices(cfg)
	defer func() {
		if err := sink.Close(); err != nil {
			cfg.Log.Warn("Failed to close audit sink", "error", err)
		}
	}()

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewSpaceHandler(spaceService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config) (service.SpaceService, audit.Sink) {
	spaceValidator := validator.NewSpaceValidator(cfg.Log)
	spaceRepo := repository.NewMongoSpaceRepository(cfg)
	sink := initAuditSink(cfg)

	spaceService := service.NewSpaceService(
		spaceRepo,
		spaceValidator,
		sink,
		cfg,
	)

	cfg.Log.Info("Space service initialized", "database", cfg.MongoDatabaseName)
	return spaceService, sink
}

func initAuditSink(cfg *config.Config) audit.Sink {
	kafkaCfg := kafka_config.Load()
	if !kafkaCfg.Enabled() {
		cfg.Log.Info("Audit sink disabled, no Kafka brokers configured")
		return audit.NewNopSink(cfg.Log)
	}

	producer, err := kafka.NewProducer(kafkaCfg, cfg.AuditTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create audit producer", "error", err)
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))

	cfg.Log.Info("Audit sink initialized", "topic", cfg.AuditTopic, "brokers", kafkaCfg.Brokers)
	return audit.NewKafkaSink(producer, cfg.Log)
}
