// cmd/server/main.go
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/app"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/config"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/di"
)

func main() {
	log.Println("starting newspaper PDF server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	createDirectories(cfg)

	application := app.New(cfg)
	if err := application.Initialize(); err != nil {
		log.Fatalf("initialize: %v", err)
	}

	if err := performHealthCheck(application.GetDIContainer()); err != nil {
		log.Fatalf("health check: %v", err)
	}

	log.Printf("listening on http://localhost:%s", cfg.Port)
	if err := application.Run(); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
	log.Println("server stopped")
}

// performHealthCheck makes sure the services the routes need were registered.
func performHealthCheck(container *di.Container) error {
	critical := []string{di.ServiceStore, di.ServiceEmbedding, di.ServiceSearch, di.ServiceJobs}
	for _, name := range critical {
		if !container.Has(name) {
			return fmt.Errorf("service not registered: %s", name)
		}
	}
	return nil
}

func createDirectories(cfg *config.Config) {
	dirs := []string{cfg.DataDir, cfg.UploadDir, cfg.TempDir, cfg.LogDir}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("create directory %s: %v", dir, err)
		}
	}
}
