package main

import (
	"log"
	"os"

	"github.com/existflow/joyful/internal/logger"
	"github.com/existflow/joyful/server"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	if err := logger.Init(logger.Config{
		Level:   logger.ParseLevel(os.Getenv("LOG_LEVEL")),
		Console: true,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	port := os.Getenv("PORT")
	if port == "" {
		port = "81"
	}

	cfg := server.DefaultConfig()
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "joyful-dev.db"
	}

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}
	defer func() {
		if err := srv.Close(); err != nil {
			log.Printf("Error closing server: %v", err)
		}
	}()

	log.Printf("Joyful development backend starting on :%s", port)
	if err := srv.Start(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
