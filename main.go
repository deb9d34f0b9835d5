package main

import (
	"log"

	"videogen-server/config"
	"videogen-server/models"
	"videogen-server/routers"
	"videogen-server/routers/api"
	"videogen-server/service"
)

func main() {
	config.InitConfig()
	cfg := config.AppConfig
	log.Println("Server starting on port", cfg.Server.Port)

	models.InitDB()
	repo := models.NewGenerationRepo(models.GormDB)

	service.InitQueue()
	repo.ActiveWindow = service.TaskTimeout()
	log.Println("Queue initialized")

	var archiver service.Archiver
	if a := service.InitMinIO(); a != nil {
		archiver = a
	}

	pipeline := service.NewPipelineClient(cfg.Pipeline.BaseURL, cfg.Pipeline.APIKey, cfg.Pipeline.Timeout)
	orchestrator := service.NewOrchestrator(pipeline, cfg.Poll.Interval, cfg.Poll.MaxAttempts)

	processor := service.NewProcessor(repo, orchestrator, archiver)
	processor.StartProcessor(cfg.Worker.Concurrency)

	r := routers.InitRouter(api.NewGenerationHandler(repo, service.EnqueueGeneration))
	if err := r.Run(cfg.Server.Port); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
