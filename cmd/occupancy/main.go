package main

import (
	"parkade/internal/occupancy/handler"
	"parkade/internal/occupancy/repository"
	"parkade/internal/occupancy/service"
	"parkade/pkg/app"
	"parkade/pkg/config"
)

const ServiceName = "occupancy"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Occupancy service")
	occupancyService := initServices(cfg)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewOccupancyHandler(occupancyService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config) service.OccupancyService {
	occupancyRepo := repository.NewMongoOccupancyRepository(cfg)
	occupancyService := service.NewOccupancyService(occupancyRepo, cfg)

	cfg.Log.Info("Occupancy service initialized", "database", cfg.MongoDatabaseName)
	return occupancyService
}
