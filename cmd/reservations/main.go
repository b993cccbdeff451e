package main

import (
	"parkade/internal/registry"
	"parkade/internal/reservations/handler"
	"parkade/internal/reservations/repository"
	"parkade/internal/reservations/service"
	"parkade/internal/reservations/validator"
	spacesrepo "parkade/internal/spaces/repository"
	"parkade/pkg/app"
	"parkade/pkg/audit"
	"parkade/pkg/config"
	"parkade/pkg/kafka"
	kafka_config "parkade/pkg/kafka/config"
	kafka_middleware "parkade/pkg/kafka/middleware"
)

const ServiceName = "reservations"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Reservations service")
	coordinator, sink := initServices(cfg)
	defer func() {
		if err := sink.Close(); err != nil {
			cfg.Log.Warn("Failed to close audit sink", "error", err)
		}
	}()

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewReservationHandler(coordinator, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config) (service.ReservationCoordinator, audit.Sink) {
	reservationValidator := validator.NewReservationValidator(cfg.Log)
	reservationRepo := repository.NewMongoReservationRepository(cfg)
	lockRepo := repository.NewSpaceLockRepository(cfg)
	spaceRepo := spacesrepo.NewMongoSpaceRepository(cfg)

	vehicles := initVehicleRegistry(cfg)
	owners := registry.NewMongoOwnerDirectory(cfg)
	sink := initAuditSink(cfg)

	coordinator := service.NewReservationCoordinator(
		reservationRepo,
		lockRepo,
		spaceRepo,
		reservationValidator,
		vehicles,
		owners,
		sink,
		cfg,
	)

	cfg.Log.Info("Reservation coordinator initialized", "database", cfg.MongoDatabaseName)
	return coordinator, sink
}

func initVehicleRegistry(cfg *config.Config) registry.VehicleRegistry {
	if cfg.VehicleRegistryURL != "" {
		cfg.Log.Info("Using external vehicle registry", "url", cfg.VehicleRegistryURL)
		return registry.NewHTTPVehicleRegistry(cfg.VehicleRegistryURL)
	}
	return registry.NewMongoVehicleRegistry(cfg)
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
